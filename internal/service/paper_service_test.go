package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPaperFixture(t *testing.T) (*gorm.DB, *PaperService, *models.User) {
	t.Helper()
	db := testutil.NewTestDB(t)

	user := &models.User{
		Username: "liza_cruz",
		Email:    "liza@example.edu",
		Password: "hashed",
		FullName: "Liza Cruz",
		Role:     models.RoleRequisitioner,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)

	svc := NewPaperService(db, repository.NewPaperRepository(db), repository.NewAttachmentRepository(db), nil)
	return db, svc, user
}

func TestCreatePaper(t *testing.T) {
	_, svc, user := newPaperFixture(t)
	now := time.Date(2026, 5, 18, 14, 30, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	paper, err := svc.CreatePaper(context.Background(), CreatePaperInput{
		RequisitionerID: user.ID,
		Department:      "Registrar",
		Title:           "Transcript printer replacement",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaperStatusPending, paper.Status)
	assert.Nil(t, paper.CurrentStageID)
	assert.Equal(t, models.NatureRegular, paper.NatureOfRequest, "nature defaults to regular")
	assert.True(t, paper.SubmittedAt.Equal(now))
	assert.Regexp(t, regexp.MustCompile(`^CP-2026-[0-9A-F]{8}$`), paper.TrackingNumber)
}

func TestCreatePaper_Validation(t *testing.T) {
	_, svc, user := newPaperFixture(t)
	ctx := context.Background()

	_, err := svc.CreatePaper(ctx, CreatePaperInput{RequisitionerID: user.ID, Department: "Registrar"})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.CreatePaper(ctx, CreatePaperInput{RequisitionerID: user.ID, Title: "Untitled"})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.CreatePaper(ctx, CreatePaperInput{
		RequisitionerID: user.ID,
		Department:      "Registrar",
		Title:           "Untitled",
		NatureOfRequest: "whenever",
	})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestGetPaperByTrackingNumber(t *testing.T) {
	_, svc, user := newPaperFixture(t)
	ctx := context.Background()

	created, err := svc.CreatePaper(ctx, CreatePaperInput{
		RequisitionerID: user.ID,
		Department:      "Registrar",
		Title:           "Archive digitization",
	})
	require.NoError(t, err)

	found, err := svc.GetPaperByTrackingNumber(ctx, created.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetPaperByTrackingNumber(ctx, "CP-2026-DEADBEEF")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestListOverduePapers(t *testing.T) {
	db, svc, user := newPaperFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 18, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	makePaper := func(title string, deadline time.Time, status models.PaperStatus) *models.ConceptPaper {
		paper, err := svc.CreatePaper(ctx, CreatePaperInput{
			RequisitionerID: user.ID,
			Department:      "Registrar",
			Title:           title,
		})
		require.NoError(t, err)
		stage := models.WorkflowStage{
			ConceptPaperID: paper.ID,
			StageName:      models.StageSPSReview,
			StageOrder:     1,
			AssignedRole:   models.RoleSPS,
			Status:         models.StageStatusInProgress,
			DeadlineOption: "3_days",
			Deadline:       &deadline,
		}
		require.NoError(t, db.Create(&stage).Error)
		require.NoError(t, db.Model(paper).Updates(map[string]interface{}{
			"current_stage_id": stage.ID,
			"status":           status,
		}).Error)
		return paper
	}

	overdue := makePaper("Late paper", now.Add(-time.Hour), models.PaperStatusInProgress)
	makePaper("On-time paper", now.Add(time.Hour), models.PaperStatusInProgress)
	makePaper("Completed paper", now.Add(-2*time.Hour), models.PaperStatusCompleted)

	got, err := svc.ListOverduePapers(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)
}

func TestDeletePaper(t *testing.T) {
	db, _, user := newPaperFixture(t)
	ctx := context.Background()

	removed := make([]string, 0, 1)
	files := removeFunc(func(_ context.Context, path string) error {
		removed = append(removed, path)
		return nil
	})
	svc := NewPaperService(db, repository.NewPaperRepository(db), repository.NewAttachmentRepository(db), files)

	paper, err := svc.CreatePaper(ctx, CreatePaperInput{
		RequisitionerID: user.ID,
		Department:      "Registrar",
		Title:           "Obsolete request",
	})
	require.NoError(t, err)

	attachment := models.Attachment{
		ConceptPaperID: paper.ID,
		FileName:       "quote.pdf",
		FilePath:       "paper_1/quote.pdf",
		UploadedByID:   user.ID,
	}
	require.NoError(t, db.Create(&attachment).Error)

	require.NoError(t, svc.DeletePaper(ctx, paper.ID))

	_, err = svc.GetPaper(ctx, paper.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.Equal(t, []string{"paper_1/quote.pdf"}, removed)

	err = svc.DeletePaper(ctx, paper.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

// removeFunc adapts a function to the FileStore interface.
type removeFunc func(ctx context.Context, path string) error

func (f removeFunc) Remove(ctx context.Context, path string) error { return f(ctx, path) }
