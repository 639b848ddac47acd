// Package cron hosts the periodic background jobs.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"

	"paperflow/internal/middleware"
	"paperflow/internal/models"
	"paperflow/internal/observability"
	"paperflow/internal/repository"
	"paperflow/internal/service"
)

// OverdueSweeper periodically scans active papers for open stages past their
// deadline. Overdue is never stored on the row: the sweep only emits
// notifications and refreshes gauges, so a corrected clock or an extended
// deadline needs no repair migration.
type OverdueSweeper struct {
	papers repository.PaperRepository
	events service.EventPublisher

	// Now is the injected clock used for deadline comparison.
	Now func() time.Time

	cron *cron.Cron
}

// NewOverdueSweeper returns a sweeper. A nil publisher disables notifications
// but keeps the gauges fresh.
func NewOverdueSweeper(papers repository.PaperRepository, events service.EventPublisher) *OverdueSweeper {
	if events == nil {
		events = service.NopPublisher{}
	}
	return &OverdueSweeper{
		papers: papers,
		events: events,
		Now:    time.Now,
		cron:   cron.New(),
	}
}

// Start schedules the sweep with the given cron spec (e.g. "@every 30m") and
// runs one sweep immediately so gauges are populated right after boot.
func (s *OverdueSweeper) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		s.Sweep(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	go s.Sweep(ctx)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *OverdueSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep runs a single pass. It is safe to call concurrently with the
// schedule; the repository reads are independent snapshots.
func (s *OverdueSweeper) Sweep(ctx context.Context) {
	span, ctx := observability.NewSpan(ctx, "cron.overdue_sweep")
	defer span.End()

	now := s.Now()

	papers, err := s.papers.ListActive(ctx)
	if err != nil {
		span.SetError(err)
		middleware.Logger.Error("overdue sweep failed",
			slog.String("error", err.Error()),
		)
		return
	}

	var overdueStages int
	for i := range papers {
		paper := &papers[i]
		for j := range paper.Stages {
			stage := &paper.Stages[j]
			if !stage.Actionable() || !stage.IsOverdue(now) {
				continue
			}
			overdueStages++
			s.events.StageOverdue(ctx, paper, stage)
		}
	}
	observability.OverdueStages.Set(float64(overdueStages))
	span.AddAttributes(
		attribute.Int("sweep.active_papers", len(papers)),
		attribute.Int("sweep.overdue_stages", overdueStages),
	)

	counts, err := s.papers.CountByStatus(ctx)
	if err != nil {
		span.SetError(err)
		middleware.Logger.Error("paper status count failed",
			slog.String("error", err.Error()),
		)
		return
	}
	for _, status := range []models.PaperStatus{
		models.PaperStatusPending,
		models.PaperStatusInProgress,
		models.PaperStatusCompleted,
		models.PaperStatusReturned,
		models.PaperStatusRejected,
	} {
		observability.PapersByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}

	middleware.Logger.Info("overdue sweep finished",
		slog.Int("active_papers", len(papers)),
		slog.Int("overdue_stages", overdueStages),
	)
}
