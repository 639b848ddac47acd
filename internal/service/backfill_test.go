package service

import (
	"context"
	"testing"

	"paperflow/internal/models"
	"paperflow/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillStage(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	// Past the checkpoint: eligible.
	eligible := f.createPaper(t, models.NatureRegular, false)
	_, err := f.svc.InitializeWorkflow(ctx, eligible.ID, f.user.ID)
	require.NoError(t, err)
	_, err = f.svc.AdvanceStage(ctx, eligible.ID, f.user.ID, "ok", "")
	require.NoError(t, err)

	// Still sitting at the checkpoint stage: skipped.
	early := f.createPaper(t, models.NatureRegular, false)
	_, err = f.svc.InitializeWorkflow(ctx, early.ID, f.user.ID)
	require.NoError(t, err)

	// Rejected: not active, never scanned.
	rejected := f.createPaper(t, models.NatureRegular, false)
	_, err = f.svc.InitializeWorkflow(ctx, rejected.ID, f.user.ID)
	require.NoError(t, err)
	_, err = f.svc.RejectStage(ctx, rejected.ID, f.user.ID, "duplicate")
	require.NoError(t, err)

	spec := workflow.InsertionSpec{
		StageName:    "Legal Review",
		AssignedRole: models.RoleAdmin,
		WaitDays:     2,
	}
	inserted, err := f.svc.BackfillStage(ctx, models.StageSPSReview, spec)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	assert.Len(t, f.stages(t, eligible.ID), 8)
	assert.Len(t, f.stages(t, early.ID), 7)
	assert.Len(t, f.stages(t, rejected.ID), 7)

	// Re-running changes nothing: the eligible paper already carries the
	// stage and the others remain ineligible.
	inserted, err = f.svc.BackfillStage(ctx, models.StageSPSReview, spec)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Len(t, f.stages(t, eligible.ID), 8)
}
