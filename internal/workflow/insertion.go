package workflow

import (
	"sort"

	"github.com/samber/lo"

	"paperflow/internal/models"
)

// InsertionSpec describes a stage to retrofit into an in-flight paper after a
// named, already-completed checkpoint stage.
type InsertionSpec struct {
	StageName      string
	AssignedRole   models.Role
	DeadlineOption string
	// WaitDays is the default deadline window for the new stage, applied
	// immediately at insertion when DeadlineOption is empty.
	WaitDays int
}

// RewindPastCheckpoint is the explicit policy decision for papers whose
// progress pointer had already moved past the insertion point: when true,
// their current stage is redirected onto the newly inserted stage so every
// paper passes through the new mandatory step. This matches the backfill
// semantics the engine was introduced for.
const RewindPastCheckpoint = true

// StageShift moves one existing stage down the pipeline by a single slot.
type StageShift struct {
	StageID uint
	ToOrder int
}

// InsertionPlan is the computed, not-yet-applied result of planning a stage
// insertion: which stages shift, where the new stage lands, and whether the
// paper's current-stage pointer moves onto it.
type InsertionPlan struct {
	CheckpointOrder int
	NewStageOrder   int
	// Shifts lists stages whose order increments by one, in descending
	// stage_order so in-place updates never collide on the
	// (paper, stage_order) uniqueness constraint.
	Shifts []StageShift
	// RedirectCurrent is true when the paper's current stage must become the
	// newly inserted stage (see RewindPastCheckpoint).
	RedirectCurrent bool
}

// PlanInsertion validates the insertion of spec after the stage named
// afterStageName and computes the renumbering plan. stages must be the
// paper's full stage set. currentStageID is the paper's current-stage
// pointer, nil when the paper is completed.
func PlanInsertion(stages []models.WorkflowStage, currentStageID *uint, afterStageName string, spec InsertionSpec) (*InsertionPlan, error) {
	if spec.StageName == "" {
		return nil, models.NewValidationError("inserted stage requires a name")
	}
	if !models.ValidRoles[spec.AssignedRole] {
		return nil, models.NewValidationError("inserted stage requires a valid assigned role")
	}

	if err := VerifyDenseOrder(stages); err != nil {
		return nil, err
	}

	if lo.ContainsBy(stages, func(s models.WorkflowStage) bool { return s.StageName == spec.StageName }) {
		return nil, models.NewAlreadyInsertedError(spec.StageName)
	}

	checkpoint, found := lo.Find(stages, func(s models.WorkflowStage) bool {
		return s.StageName == afterStageName
	})
	if !found || checkpoint.Status != models.StageStatusCompleted {
		return nil, models.NewCheckpointNotFoundError(afterStageName)
	}

	plan := &InsertionPlan{
		CheckpointOrder: checkpoint.StageOrder,
		NewStageOrder:   checkpoint.StageOrder + 1,
	}

	later := lo.Filter(stages, func(s models.WorkflowStage, _ int) bool {
		return s.StageOrder > checkpoint.StageOrder
	})
	sort.Slice(later, func(i, j int) bool { return later[i].StageOrder > later[j].StageOrder })
	plan.Shifts = lo.Map(later, func(s models.WorkflowStage, _ int) StageShift {
		return StageShift{StageID: s.ID, ToOrder: s.StageOrder + 1}
	})

	if RewindPastCheckpoint && currentStageID != nil {
		current, ok := lo.Find(stages, func(s models.WorkflowStage) bool { return s.ID == *currentStageID })
		if !ok {
			return nil, models.NewCorruptedStateError("current stage pointer references a stage outside the paper's stage set")
		}
		if current.StageOrder > checkpoint.StageOrder {
			plan.RedirectCurrent = true
		}
	}

	return plan, nil
}

// VerifyDenseOrder checks that stage_order values form exactly the dense set
// 1..N with no duplicates. A violation is reported as corrupted state, never
// silently repaired.
func VerifyDenseOrder(stages []models.WorkflowStage) error {
	seen := make(map[int]bool, len(stages))
	for i := range stages {
		order := stages[i].StageOrder
		if order < 1 || order > len(stages) || seen[order] {
			return models.NewCorruptedStateError("stage_order values are not a dense 1..N sequence")
		}
		seen[order] = true
	}
	return nil
}
