package models

import "time"

// Overdue status is always derived from stage state and the caller's clock,
// never stored. Callers inject "now" so dashboards and tests stay
// deterministic.

// IsOverdue reports whether the stage blew its deadline. Completed stages are
// never overdue; stages without a deadline (not yet activated) are not
// overdue either.
func (s *WorkflowStage) IsOverdue(now time.Time) bool {
	if s.Status == StageStatusCompleted {
		return false
	}
	if s.Deadline == nil {
		return false
	}
	return s.Deadline.Before(now)
}

// IsOverdue reports whether the paper has any open stage past its deadline.
// Requires Stages to be loaded; the current stage is covered by the same
// scan since it is pending or in_progress.
func (p *ConceptPaper) IsOverdue(now time.Time) bool {
	if p.Status == PaperStatusCompleted {
		return false
	}
	for i := range p.Stages {
		stage := &p.Stages[i]
		if stage.Status != StageStatusPending && stage.Status != StageStatusInProgress {
			continue
		}
		if stage.IsOverdue(now) {
			return true
		}
	}
	return false
}
