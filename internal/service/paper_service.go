package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"paperflow/internal/middleware"
	"paperflow/internal/models"
	"paperflow/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// FileStore removes stored attachment bytes. Physical cleanup is best-effort
// and runs outside the delete transaction so a storage failure never leaves
// the database half-deleted.
type FileStore interface {
	Remove(ctx context.Context, path string) error
}

// PaperService provides concept paper intake, lookup, and deletion logic.
// Workflow transitions live in WorkflowService.
type PaperService struct {
	db             *gorm.DB
	paperRepo      repository.PaperRepository
	attachmentRepo repository.AttachmentRepository
	files          FileStore

	// Now is the injected clock for submission timestamps and overdue reads.
	Now func() time.Time
}

// NewPaperService returns a new PaperService.
func NewPaperService(db *gorm.DB, paperRepo repository.PaperRepository, attachmentRepo repository.AttachmentRepository, files FileStore) *PaperService {
	return &PaperService{
		db:             db,
		paperRepo:      paperRepo,
		attachmentRepo: attachmentRepo,
		files:          files,
		Now:            time.Now,
	}
}

// CreatePaperInput carries the intake fields a requisitioner controls.
type CreatePaperInput struct {
	RequisitionerID  uint
	Department       string
	Title            string
	NatureOfRequest  models.NatureOfRequest
	StudentsInvolved bool
	DeadlineOption   string
}

// CreatePaper records a new paper in status pending. The tracking number is
// generated here and never changes; the workflow is initialized separately.
func (s *PaperService) CreatePaper(ctx context.Context, input CreatePaperInput) (*models.ConceptPaper, error) {
	if input.Title == "" {
		return nil, models.NewValidationError("title is required")
	}
	if input.Department == "" {
		return nil, models.NewValidationError("department is required")
	}
	switch input.NatureOfRequest {
	case models.NatureRegular, models.NatureUrgent, models.NatureEmergency:
	case "":
		input.NatureOfRequest = models.NatureRegular
	default:
		return nil, models.NewValidationError("invalid nature of request")
	}

	now := s.Now()
	paper := &models.ConceptPaper{
		TrackingNumber:   generateTrackingNumber(now),
		RequisitionerID:  input.RequisitionerID,
		Department:       input.Department,
		Title:            input.Title,
		NatureOfRequest:  input.NatureOfRequest,
		SubmittedAt:      now,
		Status:           models.PaperStatusPending,
		StudentsInvolved: input.StudentsInvolved,
		DeadlineOption:   input.DeadlineOption,
	}
	if err := s.paperRepo.Create(ctx, paper); err != nil {
		return nil, err
	}
	return paper, nil
}

// GetPaper returns a paper with its stages loaded.
func (s *PaperService) GetPaper(ctx context.Context, id uint) (*models.ConceptPaper, error) {
	return s.paperRepo.GetByID(ctx, id)
}

// GetPaperByTrackingNumber returns a paper by its public tracking number.
func (s *PaperService) GetPaperByTrackingNumber(ctx context.Context, trackingNumber string) (*models.ConceptPaper, error) {
	return s.paperRepo.GetByTrackingNumber(ctx, trackingNumber)
}

// ListPapers returns papers matching the filter.
func (s *PaperService) ListPapers(ctx context.Context, filter repository.PaperFilter) ([]models.ConceptPaper, error) {
	return s.paperRepo.List(ctx, filter)
}

// ListOverduePapers returns active papers with at least one open stage past
// its deadline, evaluated against the service clock. Overdue is derived on
// read, never stored.
func (s *PaperService) ListOverduePapers(ctx context.Context) ([]models.ConceptPaper, error) {
	papers, err := s.paperRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	return lo.Filter(papers, func(p models.ConceptPaper, _ int) bool {
		return p.IsOverdue(now)
	}), nil
}

// DeletePaper soft-deletes a paper and its attachments in one transaction,
// then removes stored files best-effort. Phase two failures are logged and
// never surfaced: the database state is already consistent.
func (s *PaperService) DeletePaper(ctx context.Context, paperID uint) error {
	var attachments []models.Attachment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		papers := repository.NewPaperRepository(tx)
		attachmentRepo := repository.NewAttachmentRepository(tx)

		if _, err := papers.GetByID(ctx, paperID); err != nil {
			return err
		}
		var err error
		attachments, err = attachmentRepo.ListForPaper(ctx, paperID)
		if err != nil {
			return err
		}
		if err := attachmentRepo.SoftDeleteForPaper(ctx, paperID); err != nil {
			return err
		}
		return papers.SoftDelete(ctx, paperID)
	})
	if err != nil {
		return err
	}

	if s.files != nil {
		for _, attachment := range attachments {
			if err := s.files.Remove(ctx, attachment.FilePath); err != nil {
				middleware.Logger.Warn("attachment cleanup failed",
					slog.Any("paper_id", paperID),
					slog.String("path", attachment.FilePath),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return nil
}

// generateTrackingNumber builds the public paper identifier, e.g.
// CP-2026-9F2C41AB. The year comes from the submission instant; the suffix is
// the first segment of a v4 UUID.
func generateTrackingNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
	return fmt.Sprintf("CP-%d-%s", now.Year(), suffix)
}
