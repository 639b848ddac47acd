package models

import (
	"testing"
	"time"
)

func TestStageIsOverdue(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name  string
		stage WorkflowStage
		want  bool
	}{
		{"past deadline", WorkflowStage{Status: StageStatusInProgress, Deadline: &past}, true},
		{"future deadline", WorkflowStage{Status: StageStatusInProgress, Deadline: &future}, false},
		{"deadline exactly now", WorkflowStage{Status: StageStatusInProgress, Deadline: &now}, false},
		{"no deadline yet", WorkflowStage{Status: StageStatusPending}, false},
		{"completed late is not overdue", WorkflowStage{Status: StageStatusCompleted, Deadline: &past}, false},
		{"returned stage with stale deadline", WorkflowStage{Status: StageStatusReturned, Deadline: &past}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.stage.IsOverdue(now); got != tc.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPaperIsOverdue(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name  string
		paper ConceptPaper
		want  bool
	}{
		{
			"open stage past deadline",
			ConceptPaper{Status: PaperStatusInProgress, Stages: []WorkflowStage{
				{Status: StageStatusCompleted, Deadline: &past},
				{Status: StageStatusInProgress, Deadline: &past},
			}},
			true,
		},
		{
			"all open stages within deadline",
			ConceptPaper{Status: PaperStatusInProgress, Stages: []WorkflowStage{
				{Status: StageStatusInProgress, Deadline: &future},
				{Status: StageStatusPending},
			}},
			false,
		},
		{
			"completed paper never overdue",
			ConceptPaper{Status: PaperStatusCompleted, Stages: []WorkflowStage{
				{Status: StageStatusCompleted, Deadline: &past},
			}},
			false,
		},
		{
			"returned stage does not count, reopened predecessor does",
			ConceptPaper{Status: PaperStatusReturned, Stages: []WorkflowStage{
				{Status: StageStatusInProgress, Deadline: &past},
				{Status: StageStatusReturned, Deadline: &past},
			}},
			true,
		},
		{
			"no stages loaded",
			ConceptPaper{Status: PaperStatusInProgress},
			false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.paper.IsOverdue(now); got != tc.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tc.want)
			}
		})
	}
}
