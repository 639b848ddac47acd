package service

import (
	"context"

	"paperflow/internal/models"
)

// EventPublisher receives workflow events after a transition commits.
// Implementations must be fire-and-forget: a slow or failing notification
// channel never blocks or rolls back workflow progress.
type EventPublisher interface {
	StageAssigned(ctx context.Context, paper *models.ConceptPaper, stage *models.WorkflowStage)
	StageOverdue(ctx context.Context, paper *models.ConceptPaper, stage *models.WorkflowStage)
	PaperCompleted(ctx context.Context, paper *models.ConceptPaper)
	PaperReturned(ctx context.Context, paper *models.ConceptPaper, stage *models.WorkflowStage, remarks string)
	StageReassigned(ctx context.Context, paper *models.ConceptPaper, stage *models.WorkflowStage, previousUserID *uint)
}

// NopPublisher discards all events. Used when Redis is unavailable and in
// tests that do not assert on notifications.
type NopPublisher struct{}

func (NopPublisher) StageAssigned(context.Context, *models.ConceptPaper, *models.WorkflowStage) {}
func (NopPublisher) StageOverdue(context.Context, *models.ConceptPaper, *models.WorkflowStage) {}
func (NopPublisher) PaperCompleted(context.Context, *models.ConceptPaper)                      {}
func (NopPublisher) PaperReturned(context.Context, *models.ConceptPaper, *models.WorkflowStage, string) {
}
func (NopPublisher) StageReassigned(context.Context, *models.ConceptPaper, *models.WorkflowStage, *uint) {
}
