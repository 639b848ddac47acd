package cron

import (
	"context"
	"testing"
	"time"

	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingPublisher struct {
	overdue []string // stage names, in sweep order
}

func (c *countingPublisher) StageAssigned(context.Context, *models.ConceptPaper, *models.WorkflowStage) {
}
func (c *countingPublisher) StageOverdue(_ context.Context, _ *models.ConceptPaper, stage *models.WorkflowStage) {
	c.overdue = append(c.overdue, stage.StageName)
}
func (c *countingPublisher) PaperCompleted(context.Context, *models.ConceptPaper) {}
func (c *countingPublisher) PaperReturned(context.Context, *models.ConceptPaper, *models.WorkflowStage, string) {
}
func (c *countingPublisher) StageReassigned(context.Context, *models.ConceptPaper, *models.WorkflowStage, *uint) {
}

func seedPaper(t *testing.T, db *gorm.DB, userID uint, tracking string, status models.PaperStatus, stages []models.WorkflowStage) {
	t.Helper()
	paper := models.ConceptPaper{
		TrackingNumber:  tracking,
		RequisitionerID: userID,
		Department:      "Registrar",
		Title:           "Sweep fixture",
		SubmittedAt:     time.Now(),
		Status:          status,
	}
	require.NoError(t, db.Create(&paper).Error)
	for i := range stages {
		stages[i].ConceptPaperID = paper.ID
		stages[i].StageOrder = i + 1
	}
	require.NoError(t, db.Create(&stages).Error)
}

func TestSweep(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := models.User{
		Username: "sweep_user",
		Email:    "sweep@example.edu",
		Password: "hashed",
		FullName: "Sweep User",
		Role:     models.RoleRequisitioner,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)

	now := time.Date(2026, 8, 3, 6, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	// One overdue in-progress stage.
	seedPaper(t, db, user.ID, "CP-2026-AAAA0001", models.PaperStatusInProgress, []models.WorkflowStage{
		{StageName: models.StageSPSReview, AssignedRole: models.RoleSPS, Status: models.StageStatusInProgress, DeadlineOption: "3_days", Deadline: &past},
		{StageName: models.StageVPAcadReview, AssignedRole: models.RoleVPAcad, Status: models.StageStatusPending, DeadlineOption: "3_days"},
	})
	// Within deadline.
	seedPaper(t, db, user.ID, "CP-2026-AAAA0002", models.PaperStatusInProgress, []models.WorkflowStage{
		{StageName: models.StageSPSReview, AssignedRole: models.RoleSPS, Status: models.StageStatusInProgress, DeadlineOption: "3_days", Deadline: &future},
	})
	// Returned stage with a stale deadline is not actionable and is skipped.
	seedPaper(t, db, user.ID, "CP-2026-AAAA0003", models.PaperStatusReturned, []models.WorkflowStage{
		{StageName: models.StageSPSReview, AssignedRole: models.RoleSPS, Status: models.StageStatusInProgress, DeadlineOption: "3_days", Deadline: &future},
		{StageName: models.StageVPAcadReview, AssignedRole: models.RoleVPAcad, Status: models.StageStatusReturned, DeadlineOption: "3_days", Deadline: &past},
	})
	// Rejected papers are not active and never scanned.
	seedPaper(t, db, user.ID, "CP-2026-AAAA0004", models.PaperStatusRejected, []models.WorkflowStage{
		{StageName: models.StageSPSReview, AssignedRole: models.RoleSPS, Status: models.StageStatusRejected, DeadlineOption: "3_days", Deadline: &past},
	})

	events := &countingPublisher{}
	sweeper := NewOverdueSweeper(repository.NewPaperRepository(db), events)
	sweeper.Now = func() time.Time { return now }

	sweeper.Sweep(context.Background())

	assert.Equal(t, []string{models.StageSPSReview}, events.overdue)
}

func TestSweep_NilPublisher(t *testing.T) {
	db := testutil.NewTestDB(t)
	sweeper := NewOverdueSweeper(repository.NewPaperRepository(db), nil)

	// Must not panic with an empty database and no publisher.
	sweeper.Sweep(context.Background())
}

func TestStartAndStop(t *testing.T) {
	db := testutil.NewTestDB(t)
	events := &countingPublisher{}
	sweeper := NewOverdueSweeper(repository.NewPaperRepository(db), events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sweeper.Start(ctx, "@every 1h"))
	sweeper.Stop()

	assert.Error(t, sweeper.Start(ctx, "not a cron spec"))
}
