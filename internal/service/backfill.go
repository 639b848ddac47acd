package service

import (
	"context"
	"log/slog"

	"paperflow/internal/middleware"
	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/workflow"
)

// BackfillStage retrofits spec into every in-flight paper that has completed
// the checkpoint stage, one paper per transaction. Papers that have not
// reached the checkpoint yet and papers that already carry the stage are
// skipped, so the backfill can be re-run safely after a partial failure.
func (s *WorkflowService) BackfillStage(ctx context.Context, afterStageName string, spec workflow.InsertionSpec) (int, error) {
	papers, err := repository.NewPaperRepository(s.db).ListActive(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for i := range papers {
		paper := &papers[i]
		_, err := s.InsertStageAfter(ctx, paper.ID, afterStageName, spec, nil)
		switch {
		case err == nil:
			inserted++
		case models.IsCode(err, models.CodeAlreadyInserted),
			models.IsCode(err, models.CodeCheckpointNotFound):
			// Not eligible; leave untouched.
		default:
			middleware.Logger.Error("stage backfill failed",
				slog.Uint64("paper_id", uint64(paper.ID)),
				slog.String("stage", spec.StageName),
				slog.String("error", err.Error()),
			)
			return inserted, err
		}
	}

	middleware.Logger.Info("stage backfill finished",
		slog.String("stage", spec.StageName),
		slog.Int("inserted", inserted),
		slog.Int("scanned", len(papers)),
	)
	return inserted, nil
}
