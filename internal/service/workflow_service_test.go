package service

import (
	"context"
	"testing"
	"time"

	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/testutil"
	"paperflow/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingPublisher counts published events for assertions.
type recordingPublisher struct {
	assigned   int
	overdue    int
	completed  int
	returned   int
	reassigned int

	lastAssignedStage string
	lastReturnRemarks string
}

func (r *recordingPublisher) StageAssigned(_ context.Context, _ *models.ConceptPaper, stage *models.WorkflowStage) {
	r.assigned++
	r.lastAssignedStage = stage.StageName
}
func (r *recordingPublisher) StageOverdue(context.Context, *models.ConceptPaper, *models.WorkflowStage) {
	r.overdue++
}
func (r *recordingPublisher) PaperCompleted(context.Context, *models.ConceptPaper) { r.completed++ }
func (r *recordingPublisher) PaperReturned(_ context.Context, _ *models.ConceptPaper, _ *models.WorkflowStage, remarks string) {
	r.returned++
	r.lastReturnRemarks = remarks
}
func (r *recordingPublisher) StageReassigned(context.Context, *models.ConceptPaper, *models.WorkflowStage, *uint) {
	r.reassigned++
}

type workflowFixture struct {
	db     *gorm.DB
	svc    *WorkflowService
	events *recordingPublisher
	user   *models.User
	now    time.Time
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	db := testutil.NewTestDB(t)

	user := &models.User{
		Username: "maria_reyes",
		Email:    "maria@example.edu",
		Password: "hashed",
		FullName: "Maria Reyes",
		Role:     models.RoleRequisitioner,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)

	events := &recordingPublisher{}
	svc := NewWorkflowService(db, workflow.NewTemplateRegistry(), events)
	now := time.Date(2026, 4, 6, 8, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	return &workflowFixture{db: db, svc: svc, events: events, user: user, now: now}
}

func (f *workflowFixture) createPaper(t *testing.T, nature models.NatureOfRequest, students bool) *models.ConceptPaper {
	t.Helper()
	papers := NewPaperService(f.db, repository.NewPaperRepository(f.db), repository.NewAttachmentRepository(f.db), nil)
	papers.Now = f.svc.Now
	paper, err := papers.CreatePaper(context.Background(), CreatePaperInput{
		RequisitionerID:  f.user.ID,
		Department:       "College of Engineering",
		Title:            "Laboratory equipment acquisition",
		NatureOfRequest:  nature,
		StudentsInvolved: students,
	})
	require.NoError(t, err)
	return paper
}

func (f *workflowFixture) stages(t *testing.T, paperID uint) []models.WorkflowStage {
	t.Helper()
	stages, err := repository.NewStageRepository(f.db).GetForPaper(context.Background(), paperID)
	require.NoError(t, err)
	return stages
}

func TestInitializeWorkflow(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)

	got, err := f.svc.InitializeWorkflow(context.Background(), paper.ID, f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaperStatusInProgress, got.Status)
	require.NotNil(t, got.CurrentStageID)

	stages := f.stages(t, paper.ID)
	require.Len(t, stages, 7)
	for i, stage := range stages {
		assert.Equal(t, i+1, stage.StageOrder)
	}

	first := stages[0]
	assert.Equal(t, models.StageSPSReview, first.StageName)
	assert.Equal(t, models.StageStatusInProgress, first.Status)
	assert.Equal(t, *got.CurrentStageID, first.ID)
	require.NotNil(t, first.Deadline)
	assert.True(t, first.Deadline.Equal(f.now.Add(72*time.Hour)), "regular papers get the 3_days window")

	for _, stage := range stages[1:] {
		assert.Equal(t, models.StageStatusPending, stage.Status)
		assert.Nil(t, stage.Deadline, "later stage deadlines are computed at activation")
	}

	logs, err := repository.NewAuditLogRepository(f.db).ListForPaper(context.Background(), paper.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionSubmitted, logs[0].Action)

	assert.Equal(t, 1, f.events.assigned)
	assert.Equal(t, models.StageSPSReview, f.events.lastAssignedStage)
}

func TestInitializeWorkflow_Twice(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)

	_, err := f.svc.InitializeWorkflow(context.Background(), paper.ID, f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.InitializeWorkflow(context.Background(), paper.ID, f.user.ID)
	assert.True(t, models.IsCode(err, models.CodeAlreadyInitialized))

	assert.Len(t, f.stages(t, paper.ID), 7)
}

func TestInitializeWorkflow_StudentsInvolved(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureUrgent, true)

	_, err := f.svc.InitializeWorkflow(context.Background(), paper.ID, f.user.ID)
	require.NoError(t, err)

	stages := f.stages(t, paper.ID)
	require.Len(t, stages, 8)
	assert.Equal(t, models.StageStudentAffairs, stages[1].StageName)
	assert.Equal(t, models.RoleStudentAffairs, stages[1].AssignedRole)
}

func TestAdvanceStage_FullRun(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)
	ctx := context.Background()

	_, err := f.svc.InitializeWorkflow(ctx, paper.ID, f.user.ID)
	require.NoError(t, err)

	var latest *models.ConceptPaper
	for i := 0; i < 7; i++ {
		latest, err = f.svc.AdvanceStage(ctx, paper.ID, f.user.ID, "approved", "sig")
		require.NoError(t, err, "advance %d", i+1)
	}

	assert.Equal(t, models.PaperStatusCompleted, latest.Status)
	assert.Nil(t, latest.CurrentStageID)
	require.NotNil(t, latest.CompletedAt)
	assert.True(t, latest.CompletedAt.Equal(f.now))

	for _, stage := range f.stages(t, paper.ID) {
		assert.Equal(t, models.StageStatusCompleted, stage.Status)
	}

	// One assignment per activation: the initial stage plus six hand-offs.
	assert.Equal(t, 7, f.events.assigned)
	assert.Equal(t, 1, f.events.completed)

	logs, err := repository.NewAuditLogRepository(f.db).ListForPaper(ctx, paper.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 8) // submit + seven completions

	// Terminal paper: no further transitions.
	_, err = f.svc.AdvanceStage(ctx, paper.ID, f.user.ID, "", "")
	assert.True(t, models.IsCode(err, models.CodeIllegalTransition))
}

func TestReturnStage(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)
	ctx := context.Background()

	_, err := f.svc.InitializeWorkflow(ctx, paper.ID, f.user.ID)
	require.NoError(t, err)
	_, err = f.svc.AdvanceStage(ctx, paper.ID, f.user.ID, "fine", "")
	require.NoError(t, err)

	got, err := f.svc.ReturnStage(ctx, paper.ID, f.user.ID, "budget breakdown missing")
	require.NoError(t, err)

	assert.Equal(t, models.PaperStatusReturned, got.Status)
	stages := f.stages(t, paper.ID)
	assert.Equal(t, models.StageStatusInProgress, stages[0].Status)
	assert.Nil(t, stages[0].CompletedAt, "reopening clears the completion timestamp")
	require.NotNil(t, stages[0].Deadline)
	assert.True(t, stages[0].Deadline.Equal(f.now.Add(72*time.Hour)), "reopened stage gets a fresh deadline")
	assert.Equal(t, models.StageStatusReturned, stages[1].Status)
	assert.Equal(t, "budget breakdown missing", stages[1].Remarks)

	require.NotNil(t, got.CurrentStageID)
	assert.Equal(t, stages[0].ID, *got.CurrentStageID)
	assert.Equal(t, 1, f.events.returned)
	assert.Equal(t, "budget breakdown missing", f.events.lastReturnRemarks)

	// The corrected stage advances again and the chain resumes.
	got, err = f.svc.AdvanceStage(ctx, paper.ID, f.user.ID, "revised", "")
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusInProgress, got.Status)
	stages = f.stages(t, paper.ID)
	assert.Equal(t, models.StageStatusInProgress, stages[1].Status)
}

func TestReturnStage_Validation(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)
	ctx := context.Background()

	_, err := f.svc.InitializeWorkflow(ctx, paper.ID, f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.ReturnStage(ctx, paper.ID, f.user.ID, "")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	// Stage 1 has nothing upstream to return to.
	_, err = f.svc.ReturnStage(ctx, paper.ID, f.user.ID, "send back")
	assert.True(t, models.IsCode(err, models.CodeNoPreviousStage))
}

func TestRejectStage(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)
	ctx := context.Background()

	_, err := f.svc.InitializeWorkflow(ctx, paper.ID, f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.RejectStage(ctx, paper.ID, f.user.ID, "")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	got, err := f.svc.RejectStage(ctx, paper.ID, f.user.ID, "duplicate request")
	require.NoError(t, err)
	assert.Equal(t, models.PaperStatusRejected, got.Status)

	stages := f.stages(t, paper.ID)
	assert.Equal(t, models.StageStatusRejected, stages[0].Status)
	assert.True(t, stages[0].IsRejected)
	assert.Equal(t, "duplicate request", stages[0].RejectionReason)

	// Rejection is terminal.
	_, err = f.svc.AdvanceStage(ctx, paper.ID, f.user.ID, "", "")
	assert.True(t, models.IsCode(err, models.CodeIllegalTransition))
	_, err = f.svc.ReturnStage(ctx, paper.ID, f.user.ID, "x")
	assert.True(t, models.IsCode(err, models.CodeIllegalTransition))
}

func TestInsertStageAfter(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)
	ctx := context.Background()

	_, err := f.svc.InitializeWorkflow(ctx, paper.ID, f.user.ID)
	require.NoError(t, err)
	_, err = f.svc.AdvanceStage(ctx, paper.ID, f.user.ID, "ok", "")
	require.NoError(t, err)

	spec := workflow.InsertionSpec{
		StageName:    "Legal Review",
		AssignedRole: models.RoleAdmin,
		WaitDays:     3,
	}
	created, err := f.svc.InsertStageAfter(ctx, paper.ID, models.StageSPSReview, spec, &f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, created.StageOrder)
	require.NotNil(t, created.Deadline)
	assert.True(t, created.Deadline.Equal(f.now.Add(3*24*time.Hour)))

	stages := f.stages(t, paper.ID)
	require.Len(t, stages, 8)
	for i, stage := range stages {
		assert.Equal(t, i+1, stage.StageOrder, "stage orders stay dense after insertion")
	}
	assert.Equal(t, "Legal Review", stages[1].StageName)

	// The paper was already past the checkpoint, so it is rewound onto the
	// inserted stage and the displaced stage goes back to pending.
	refreshed, err := repository.NewPaperRepository(f.db).GetByID(ctx, paper.ID)
	require.NoError(t, err)
	require.NotNil(t, refreshed.CurrentStageID)
	assert.Equal(t, created.ID, *refreshed.CurrentStageID)
	assert.Equal(t, models.StageStatusInProgress, stages[1].Status)
	assert.Equal(t, models.StageStatusPending, stages[2].Status)
	assert.Equal(t, models.StageVPAcadReview, stages[2].StageName)

	// Same stage twice is refused.
	_, err = f.svc.InsertStageAfter(ctx, paper.ID, models.StageSPSReview, spec, &f.user.ID)
	assert.True(t, models.IsCode(err, models.CodeAlreadyInserted))

	// Only completed stages anchor an insertion.
	_, err = f.svc.InsertStageAfter(ctx, paper.ID, models.StageChequeReleasing, workflow.InsertionSpec{
		StageName:    "Final Countersign",
		AssignedRole: models.RoleAdmin,
	}, &f.user.ID)
	assert.True(t, models.IsCode(err, models.CodeCheckpointNotFound))
}

func TestInsertStageAfter_DeadlineOption(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)
	ctx := context.Background()

	_, err := f.svc.InitializeWorkflow(ctx, paper.ID, f.user.ID)
	require.NoError(t, err)
	_, err = f.svc.AdvanceStage(ctx, paper.ID, f.user.ID, "ok", "")
	require.NoError(t, err)

	created, err := f.svc.InsertStageAfter(ctx, paper.ID, models.StageSPSReview, workflow.InsertionSpec{
		StageName:      "Budget Office Review",
		AssignedRole:   models.RoleAccounting,
		DeadlineOption: "6_hours",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, created.Deadline)
	assert.True(t, created.Deadline.Equal(f.now.Add(6*time.Hour)))

	_, err = f.svc.InsertStageAfter(ctx, paper.ID, models.StageSPSReview, workflow.InsertionSpec{
		StageName:      "Another Review",
		AssignedRole:   models.RoleAccounting,
		DeadlineOption: "2_fortnights",
	}, nil)
	assert.True(t, models.IsCode(err, models.CodeUnknownOption))
}

func TestInsertStageAfter_TerminalPaper(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)
	ctx := context.Background()

	_, err := f.svc.InitializeWorkflow(ctx, paper.ID, f.user.ID)
	require.NoError(t, err)
	_, err = f.svc.RejectStage(ctx, paper.ID, f.user.ID, "withdrawn")
	require.NoError(t, err)

	_, err = f.svc.InsertStageAfter(ctx, paper.ID, models.StageSPSReview, workflow.InsertionSpec{
		StageName:    "Legal Review",
		AssignedRole: models.RoleAdmin,
	}, nil)
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestReassignStage(t *testing.T) {
	f := newWorkflowFixture(t)
	paper := f.createPaper(t, models.NatureRegular, false)
	ctx := context.Background()

	initialized, err := f.svc.InitializeWorkflow(ctx, paper.ID, f.user.ID)
	require.NoError(t, err)

	approver := &models.User{
		Username: "jun_santos",
		Email:    "jun@example.edu",
		Password: "hashed",
		FullName: "Jun Santos",
		Role:     models.RoleSPS,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(approver).Error)

	stage, err := f.svc.ReassignStage(ctx, *initialized.CurrentStageID, &approver.ID, f.user.ID)
	require.NoError(t, err)
	require.NotNil(t, stage.AssignedUserID)
	assert.Equal(t, approver.ID, *stage.AssignedUserID)
	assert.Equal(t, 1, f.events.reassigned)

	// Releasing the assignment reverts the stage to its role queue.
	stage, err = f.svc.ReassignStage(ctx, stage.ID, nil, f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, stage.AssignedUserID)
}
