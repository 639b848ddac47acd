// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"paperflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaperFilter narrows paper listings.
type PaperFilter struct {
	Status     models.PaperStatus
	Department string
	Role       models.Role // papers whose current stage is assigned to this role
	Limit      int
	Offset     int
}

// PaperRepository defines the interface for concept paper data operations
type PaperRepository interface {
	Create(ctx context.Context, paper *models.ConceptPaper) error
	GetByID(ctx context.Context, id uint) (*models.ConceptPaper, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.ConceptPaper, error)
	GetForUpdate(ctx context.Context, id uint) (*models.ConceptPaper, error)
	List(ctx context.Context, filter PaperFilter) ([]models.ConceptPaper, error)
	ListActive(ctx context.Context) ([]models.ConceptPaper, error)
	CountByStatus(ctx context.Context) (map[models.PaperStatus]int64, error)
	SetCurrentStage(ctx context.Context, paperID uint, stageID *uint, status models.PaperStatus) error
	MarkCompleted(ctx context.Context, paperID uint, completedAt time.Time) error
	SoftDelete(ctx context.Context, paperID uint) error
}

// paperRepository implements PaperRepository
type paperRepository struct {
	db *gorm.DB
}

// NewPaperRepository creates a new paper repository
func NewPaperRepository(db *gorm.DB) PaperRepository {
	return &paperRepository{db: db}
}

func (r *paperRepository) Create(ctx context.Context, paper *models.ConceptPaper) error {
	if err := r.db.WithContext(ctx).Create(paper).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *paperRepository) GetByID(ctx context.Context, id uint) (*models.ConceptPaper, error) {
	var paper models.ConceptPaper
	if err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("stage_order ASC") }).
		Preload("CurrentStage").
		Preload("Requisitioner").
		First(&paper, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("ConceptPaper", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &paper, nil
}

func (r *paperRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.ConceptPaper, error) {
	var paper models.ConceptPaper
	if err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("stage_order ASC") }).
		Preload("CurrentStage").
		Where("tracking_number = ?", trackingNumber).
		First(&paper).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("ConceptPaper", trackingNumber)
		}
		return nil, models.NewInternalError(err)
	}
	return &paper, nil
}

// GetForUpdate loads the paper row under a row-level lock so concurrent
// transitions on the same paper serialize. SQLite has no FOR UPDATE; its
// single-writer transactions already serialize, so the clause is applied on
// postgres only.
func (r *paperRepository) GetForUpdate(ctx context.Context, id uint) (*models.ConceptPaper, error) {
	tx := r.db.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var paper models.ConceptPaper
	if err := tx.First(&paper, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("ConceptPaper", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &paper, nil
}

func (r *paperRepository) List(ctx context.Context, filter PaperFilter) ([]models.ConceptPaper, error) {
	query := r.db.WithContext(ctx).Model(&models.ConceptPaper{}).
		Preload("CurrentStage").
		Order("submitted_at DESC")

	if filter.Status != "" {
		query = query.Where("concept_papers.status = ?", filter.Status)
	}
	if filter.Department != "" {
		query = query.Where("concept_papers.department = ?", filter.Department)
	}
	if filter.Role != "" {
		query = query.Joins("JOIN workflow_stages ws ON ws.id = concept_papers.current_stage_id").
			Where("ws.assigned_role = ?", filter.Role)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var papers []models.ConceptPaper
	if err := query.Find(&papers).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return papers, nil
}

// ListActive returns papers that still have open stages, with stages loaded,
// for overdue evaluation.
func (r *paperRepository) ListActive(ctx context.Context) ([]models.ConceptPaper, error) {
	var papers []models.ConceptPaper
	if err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("stage_order ASC") }).
		Where("status IN ?", []models.PaperStatus{
			models.PaperStatusInProgress,
			models.PaperStatusReturned,
		}).
		Find(&papers).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return papers, nil
}

// CountByStatus groups live papers by status. Feeds the status gauge.
func (r *paperRepository) CountByStatus(ctx context.Context) (map[models.PaperStatus]int64, error) {
	var rows []struct {
		Status models.PaperStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ConceptPaper{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	counts := make(map[models.PaperStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// SetCurrentStage moves the paper's progress pointer. Only the pointer and
// status columns change; invariant-bearing fields are never mass-assigned.
func (r *paperRepository) SetCurrentStage(ctx context.Context, paperID uint, stageID *uint, status models.PaperStatus) error {
	if err := r.db.WithContext(ctx).
		Model(&models.ConceptPaper{}).
		Where("id = ?", paperID).
		Updates(map[string]interface{}{
			"current_stage_id": stageID,
			"status":           status,
		}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *paperRepository) MarkCompleted(ctx context.Context, paperID uint, completedAt time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&models.ConceptPaper{}).
		Where("id = ?", paperID).
		Updates(map[string]interface{}{
			"current_stage_id": nil,
			"status":           models.PaperStatusCompleted,
			"completed_at":     completedAt,
		}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *paperRepository) SoftDelete(ctx context.Context, paperID uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.ConceptPaper{}, paperID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
