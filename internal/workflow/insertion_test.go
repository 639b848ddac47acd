package workflow

import (
	"testing"

	"paperflow/internal/models"

	"github.com/stretchr/testify/assert"
)

func stageSet(statuses ...models.StageStatus) []models.WorkflowStage {
	names := []string{
		models.StageSPSReview,
		models.StageVPAcadReview,
		models.StageAuditingReview,
		models.StageAccounting,
	}
	stages := make([]models.WorkflowStage, len(statuses))
	for i, status := range statuses {
		stages[i] = models.WorkflowStage{
			ID:         uint(i + 1),
			StageName:  names[i],
			StageOrder: i + 1,
			Status:     status,
		}
	}
	return stages
}

func validSpec() InsertionSpec {
	return InsertionSpec{
		StageName:    models.StageSeniorVP,
		AssignedRole: models.RoleSeniorVP,
	}
}

func TestPlanInsertion_ShiftsLaterStagesDescending(t *testing.T) {
	stages := stageSet(
		models.StageStatusCompleted,
		models.StageStatusCompleted,
		models.StageStatusInProgress,
		models.StageStatusPending,
	)
	currentID := stages[2].ID

	plan, err := PlanInsertion(stages, &currentID, models.StageVPAcadReview, validSpec())
	assert.NoError(t, err)
	assert.Equal(t, 2, plan.CheckpointOrder)
	assert.Equal(t, 3, plan.NewStageOrder)

	// Stage 4 shifts before stage 3 so in-place updates never collide.
	assert.Equal(t, []StageShift{
		{StageID: 4, ToOrder: 5},
		{StageID: 3, ToOrder: 4},
	}, plan.Shifts)
}

func TestPlanInsertion_RedirectsCurrentPastCheckpoint(t *testing.T) {
	stages := stageSet(
		models.StageStatusCompleted,
		models.StageStatusCompleted,
		models.StageStatusCompleted,
		models.StageStatusInProgress,
	)
	currentID := stages[3].ID

	plan, err := PlanInsertion(stages, &currentID, models.StageVPAcadReview, validSpec())
	assert.NoError(t, err)
	assert.True(t, plan.RedirectCurrent)
}

func TestPlanInsertion_NoRedirectBeforeCheckpoint(t *testing.T) {
	stages := stageSet(
		models.StageStatusCompleted,
		models.StageStatusCompleted,
		models.StageStatusInProgress,
		models.StageStatusPending,
	)
	currentID := stages[0].ID
	stages[0].Status = models.StageStatusInProgress
	stages[2].Status = models.StageStatusPending

	plan, err := PlanInsertion(stages, &currentID, models.StageVPAcadReview, validSpec())
	assert.NoError(t, err)
	assert.False(t, plan.RedirectCurrent)
}

func TestPlanInsertion_DuplicateStageName(t *testing.T) {
	stages := stageSet(
		models.StageStatusCompleted,
		models.StageStatusInProgress,
		models.StageStatusPending,
		models.StageStatusPending,
	)
	currentID := stages[1].ID
	spec := validSpec()
	spec.StageName = models.StageAuditingReview

	_, err := PlanInsertion(stages, &currentID, models.StageSPSReview, spec)
	assert.True(t, models.IsCode(err, models.CodeAlreadyInserted))
}

func TestPlanInsertion_CheckpointMissing(t *testing.T) {
	stages := stageSet(
		models.StageStatusInProgress,
		models.StageStatusPending,
		models.StageStatusPending,
		models.StageStatusPending,
	)
	currentID := stages[0].ID

	_, err := PlanInsertion(stages, &currentID, "Provost Review", validSpec())
	assert.True(t, models.IsCode(err, models.CodeCheckpointNotFound))
}

func TestPlanInsertion_CheckpointNotCompleted(t *testing.T) {
	stages := stageSet(
		models.StageStatusCompleted,
		models.StageStatusInProgress,
		models.StageStatusPending,
		models.StageStatusPending,
	)
	currentID := stages[1].ID

	_, err := PlanInsertion(stages, &currentID, models.StageVPAcadReview, validSpec())
	assert.True(t, models.IsCode(err, models.CodeCheckpointNotFound))
}

func TestPlanInsertion_InvalidSpec(t *testing.T) {
	stages := stageSet(models.StageStatusCompleted, models.StageStatusInProgress, models.StageStatusPending, models.StageStatusPending)
	currentID := stages[1].ID

	_, err := PlanInsertion(stages, &currentID, models.StageSPSReview, InsertionSpec{AssignedRole: models.RoleSeniorVP})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = PlanInsertion(stages, &currentID, models.StageSPSReview, InsertionSpec{StageName: "X", AssignedRole: "nonexistent"})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestVerifyDenseOrder(t *testing.T) {
	assert.NoError(t, VerifyDenseOrder(stageSet(
		models.StageStatusPending, models.StageStatusPending,
		models.StageStatusPending, models.StageStatusPending,
	)))

	gap := stageSet(models.StageStatusPending, models.StageStatusPending, models.StageStatusPending, models.StageStatusPending)
	gap[2].StageOrder = 5
	err := VerifyDenseOrder(gap)
	assert.True(t, models.IsCode(err, models.CodeCorruptedState))

	dup := stageSet(models.StageStatusPending, models.StageStatusPending, models.StageStatusPending, models.StageStatusPending)
	dup[1].StageOrder = 1
	err = VerifyDenseOrder(dup)
	assert.True(t, models.IsCode(err, models.CodeCorruptedState))
}
