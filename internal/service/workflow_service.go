package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"paperflow/internal/models"
	"paperflow/internal/observability"
	"paperflow/internal/repository"
	"paperflow/internal/workflow"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkflowService owns every legal transition for a paper and its stages.
// Each operation runs as one transaction over the paper's full stage set:
// the paper row is locked first, so concurrent transitions on the same paper
// serialize while different papers proceed independently. Events are
// published only after the transaction commits.
type WorkflowService struct {
	db        *gorm.DB
	templates *workflow.TemplateRegistry
	events    EventPublisher
	wlog      *observability.WorkflowLogger

	// Now is the injected clock for deadline computation. Tests override it.
	Now func() time.Time
}

// NewWorkflowService returns a new WorkflowService.
func NewWorkflowService(db *gorm.DB, templates *workflow.TemplateRegistry, events EventPublisher) *WorkflowService {
	if events == nil {
		events = NopPublisher{}
	}
	return &WorkflowService{
		db:        db,
		templates: templates,
		events:    events,
		wlog:      observability.NewWorkflowLogger(),
		Now:       time.Now,
	}
}

// transitionErr counts a rejected transition by error code and passes the
// error through unchanged.
func transitionErr(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		observability.WorkflowTransitionErrors.WithLabelValues(appErr.Code).Inc()
	}
	return err
}

// InitializeWorkflow creates the paper's full stage set in one atomic batch
// and activates stage 1. The paper moves from pending to in_progress; calling
// this twice on the same paper fails rather than duplicating stages.
func (s *WorkflowService) InitializeWorkflow(ctx context.Context, paperID uint, actorID uint) (*models.ConceptPaper, error) {
	now := s.Now()
	var firstStage models.WorkflowStage

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		papers := repository.NewPaperRepository(tx)
		stages := repository.NewStageRepository(tx)
		audit := repository.NewAuditLogRepository(tx)
		policy := workflow.NewDeadlinePolicy(repository.NewDeadlineOptionRepository(tx))

		paper, err := papers.GetForUpdate(ctx, paperID)
		if err != nil {
			return err
		}

		existing, err := stages.CountForPaper(ctx, paperID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return models.NewAlreadyInitializedError(paperID)
		}

		templates := s.templates.ForPaper(paper.NatureOfRequest, paper.StudentsInvolved)
		if len(templates) == 0 {
			return models.NewEmptyTemplateError()
		}

		batch := make([]models.WorkflowStage, len(templates))
		for i, tpl := range templates {
			batch[i] = models.WorkflowStage{
				ConceptPaperID: paperID,
				StageName:      tpl.StageName,
				StageOrder:     i + 1,
				AssignedRole:   tpl.AssignedRole,
				Status:         models.StageStatusPending,
				DeadlineOption: tpl.DeadlineOption,
			}
		}
		if err := stages.CreateBatch(ctx, batch); err != nil {
			return err
		}

		// Deadlines for later stages are computed at their own activation,
		// not here; only stage 1 gets one now.
		first := batch[0]
		deadline, err := policy.Resolve(ctx, first.DeadlineOption, now)
		if err != nil {
			return err
		}
		if err := stages.Activate(ctx, first.ID, now, deadline); err != nil {
			return err
		}
		if err := papers.SetCurrentStage(ctx, paperID, &first.ID, models.PaperStatusInProgress); err != nil {
			return err
		}

		if err := audit.Append(ctx, &models.AuditLog{
			ConceptPaperID: paperID,
			UserID:         &actorID,
			Action:         models.AuditActionSubmitted,
			StageName:      first.StageName,
		}); err != nil {
			return err
		}

		first.Status = models.StageStatusInProgress
		first.StartedAt = &now
		first.Deadline = &deadline
		firstStage = first
		return nil
	})
	if err != nil {
		return nil, transitionErr(err)
	}

	observability.WorkflowTransitionsTotal.WithLabelValues("initialize").Inc()
	s.wlog.LogTransition(ctx, "initialize", paperID, firstStage.StageName, nil)

	paper, err := repository.NewPaperRepository(s.db).GetByID(ctx, paperID)
	if err != nil {
		return nil, err
	}
	s.events.StageAssigned(ctx, paper, &firstStage)
	return paper, nil
}

// AdvanceStage completes the paper's current stage and activates the next
// one, or completes the paper when the current stage was the last.
func (s *WorkflowService) AdvanceStage(ctx context.Context, paperID uint, actorID uint, remarks, signature string) (*models.ConceptPaper, error) {
	now := s.Now()
	var (
		nextStage      *models.WorkflowStage
		paperCompleted bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		papers := repository.NewPaperRepository(tx)
		stages := repository.NewStageRepository(tx)
		audit := repository.NewAuditLogRepository(tx)
		policy := workflow.NewDeadlinePolicy(repository.NewDeadlineOptionRepository(tx))

		_, current, err := s.currentStage(ctx, papers, stages, paperID)
		if err != nil {
			return err
		}
		if !current.Actionable() {
			return models.NewIllegalTransitionError("complete", current.Status)
		}

		if err := stages.Complete(ctx, current.ID, now, remarks, signature); err != nil {
			return err
		}

		next, err := stages.GetByPaperAndOrder(ctx, paperID, current.StageOrder+1)
		if err != nil {
			return err
		}
		if next != nil {
			deadline, err := policy.Resolve(ctx, next.DeadlineOption, now)
			if err != nil {
				return err
			}
			if err := stages.Activate(ctx, next.ID, now, deadline); err != nil {
				return err
			}
			if err := papers.SetCurrentStage(ctx, paperID, &next.ID, models.PaperStatusInProgress); err != nil {
				return err
			}
			next.Status = models.StageStatusInProgress
			next.StartedAt = &now
			next.Deadline = &deadline
			nextStage = next
		} else {
			if err := papers.MarkCompleted(ctx, paperID, now); err != nil {
				return err
			}
			paperCompleted = true
		}

		return audit.Append(ctx, &models.AuditLog{
			ConceptPaperID: paperID,
			UserID:         &actorID,
			Action:         models.AuditActionCompleted,
			StageName:      current.StageName,
			Remarks:        remarks,
		})
	})
	if err != nil {
		return nil, transitionErr(err)
	}

	observability.WorkflowTransitionsTotal.WithLabelValues("advance").Inc()
	s.wlog.LogTransition(ctx, "advance", paperID, "", map[string]interface{}{
		"paper_completed": paperCompleted,
	})

	paper, err := repository.NewPaperRepository(s.db).GetByID(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if paperCompleted {
		s.events.PaperCompleted(ctx, paper)
	} else if nextStage != nil {
		s.events.StageAssigned(ctx, paper, nextStage)
	}
	return paper, nil
}

// ReturnStage sends the current stage back and re-opens the previous stage
// for correction. Remarks are mandatory: they are the payload the previous
// approver acts on. Returning the first stage is an invariant violation
// re-checked here even though the authorization layer already forbids it.
func (s *WorkflowService) ReturnStage(ctx context.Context, paperID uint, actorID uint, remarks string) (*models.ConceptPaper, error) {
	if remarks == "" {
		return nil, models.NewValidationError("remarks are required when returning a stage")
	}

	now := s.Now()
	var returnedStage models.WorkflowStage

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		papers := repository.NewPaperRepository(tx)
		stages := repository.NewStageRepository(tx)
		audit := repository.NewAuditLogRepository(tx)
		policy := workflow.NewDeadlinePolicy(repository.NewDeadlineOptionRepository(tx))

		_, current, err := s.currentStage(ctx, papers, stages, paperID)
		if err != nil {
			return err
		}
		if !current.Actionable() {
			return models.NewIllegalTransitionError("return", current.Status)
		}
		if current.StageOrder == 1 {
			return models.NewNoPreviousStageError()
		}

		previous, err := stages.GetByPaperAndOrder(ctx, paperID, current.StageOrder-1)
		if err != nil {
			return err
		}
		if previous == nil {
			return models.NewCorruptedStateError("stage ordering has a gap below the current stage")
		}

		if err := stages.MarkReturned(ctx, current.ID, remarks); err != nil {
			return err
		}
		deadline, err := policy.Resolve(ctx, previous.DeadlineOption, now)
		if err != nil {
			return err
		}
		if err := stages.Reopen(ctx, previous.ID, now, deadline); err != nil {
			return err
		}
		if err := papers.SetCurrentStage(ctx, paperID, &previous.ID, models.PaperStatusReturned); err != nil {
			return err
		}

		returnedStage = *current
		return audit.Append(ctx, &models.AuditLog{
			ConceptPaperID: paperID,
			UserID:         &actorID,
			Action:         models.AuditActionReturned,
			StageName:      current.StageName,
			Remarks:        remarks,
		})
	})
	if err != nil {
		return nil, transitionErr(err)
	}

	observability.WorkflowTransitionsTotal.WithLabelValues("return").Inc()
	s.wlog.LogTransition(ctx, "return", paperID, returnedStage.StageName, nil)

	paper, err := repository.NewPaperRepository(s.db).GetByID(ctx, paperID)
	if err != nil {
		return nil, err
	}
	s.events.PaperReturned(ctx, paper, &returnedStage, remarks)
	return paper, nil
}

// RejectStage rejects the paper at its current stage. Rejection is terminal:
// no further stage activity is permitted on the paper.
func (s *WorkflowService) RejectStage(ctx context.Context, paperID uint, actorID uint, reason string) (*models.ConceptPaper, error) {
	if reason == "" {
		return nil, models.NewValidationError("a rejection reason is required")
	}

	now := s.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		papers := repository.NewPaperRepository(tx)
		stages := repository.NewStageRepository(tx)
		audit := repository.NewAuditLogRepository(tx)

		_, current, err := s.currentStage(ctx, papers, stages, paperID)
		if err != nil {
			return err
		}
		if !current.Actionable() {
			return models.NewIllegalTransitionError("reject", current.Status)
		}

		if err := stages.Reject(ctx, current.ID, reason, now); err != nil {
			return err
		}
		if err := papers.SetCurrentStage(ctx, paperID, &current.ID, models.PaperStatusRejected); err != nil {
			return err
		}

		return audit.Append(ctx, &models.AuditLog{
			ConceptPaperID: paperID,
			UserID:         &actorID,
			Action:         models.AuditActionRejected,
			StageName:      current.StageName,
			Remarks:        reason,
		})
	})
	if err != nil {
		return nil, transitionErr(err)
	}

	observability.WorkflowTransitionsTotal.WithLabelValues("reject").Inc()
	s.wlog.LogTransition(ctx, "reject", paperID, "", nil)
	return repository.NewPaperRepository(s.db).GetByID(ctx, paperID)
}

// InsertStageAfter retrofits a new stage into an in-flight paper directly
// after the named, already-completed checkpoint stage, shifting every later
// stage down by one slot. Papers whose progress pointer had already moved
// past the checkpoint are redirected onto the new stage
// (workflow.RewindPastCheckpoint).
func (s *WorkflowService) InsertStageAfter(ctx context.Context, paperID uint, afterStageName string, spec workflow.InsertionSpec, actorID *uint) (*models.WorkflowStage, error) {
	now := s.Now()
	var (
		created    models.WorkflowStage
		redirected bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		papers := repository.NewPaperRepository(tx)
		stages := repository.NewStageRepository(tx)
		audit := repository.NewAuditLogRepository(tx)
		policy := workflow.NewDeadlinePolicy(repository.NewDeadlineOptionRepository(tx))

		paper, err := papers.GetForUpdate(ctx, paperID)
		if err != nil {
			return err
		}
		if paper.IsTerminal() {
			return models.NewValidationError("cannot insert a stage into a completed or rejected paper")
		}

		stageSet, err := stages.GetForPaper(ctx, paperID)
		if err != nil {
			return err
		}
		plan, err := workflow.PlanInsertion(stageSet, paper.CurrentStageID, afterStageName, spec)
		if err != nil {
			return err
		}

		// Descending order: shifting in place never collides on the
		// (paper, stage_order) unique index.
		for _, shift := range plan.Shifts {
			if err := stages.SetOrder(ctx, shift.StageID, shift.ToOrder); err != nil {
				return err
			}
		}

		deadline, err := s.insertionDeadline(ctx, policy, spec, now)
		if err != nil {
			return err
		}
		created = models.WorkflowStage{
			ConceptPaperID: paperID,
			StageName:      spec.StageName,
			StageOrder:     plan.NewStageOrder,
			AssignedRole:   spec.AssignedRole,
			Status:         models.StageStatusPending,
			DeadlineOption: spec.DeadlineOption,
			Deadline:       &deadline,
		}
		if err := stages.Create(ctx, &created); err != nil {
			return err
		}

		if plan.RedirectCurrent {
			if err := stages.ResetToPending(ctx, *paper.CurrentStageID); err != nil {
				return err
			}
			if err := stages.Activate(ctx, created.ID, now, deadline); err != nil {
				return err
			}
			if err := papers.SetCurrentStage(ctx, paperID, &created.ID, models.PaperStatusInProgress); err != nil {
				return err
			}
			created.Status = models.StageStatusInProgress
			created.StartedAt = &now
			redirected = true
		}

		metadata, _ := json.Marshal(map[string]interface{}{
			"checkpoint":  afterStageName,
			"stage_order": plan.NewStageOrder,
			"redirected":  plan.RedirectCurrent,
		})
		return audit.Append(ctx, &models.AuditLog{
			ConceptPaperID: paperID,
			UserID:         actorID,
			Action:         models.AuditActionInserted,
			StageName:      spec.StageName,
			Metadata:       datatypes.JSON(metadata),
		})
	})
	if err != nil {
		return nil, transitionErr(err)
	}

	observability.WorkflowTransitionsTotal.WithLabelValues("insert").Inc()
	s.wlog.LogTransition(ctx, "insert", paperID, created.StageName, map[string]interface{}{
		"checkpoint": afterStageName,
		"redirected": redirected,
	})

	if redirected {
		if paper, err := repository.NewPaperRepository(s.db).GetByID(ctx, paperID); err == nil {
			s.events.StageAssigned(ctx, paper, &created)
		}
	}
	return &created, nil
}

// ReassignStage binds or releases a specific approver on a stage. The stage
// stays role-gated; assignment only narrows who may act.
func (s *WorkflowService) ReassignStage(ctx context.Context, stageID uint, newUserID *uint, actorID uint) (*models.WorkflowStage, error) {
	var (
		stage        *models.WorkflowStage
		previousUser *uint
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stages := repository.NewStageRepository(tx)
		audit := repository.NewAuditLogRepository(tx)

		var err error
		stage, err = stages.GetByID(ctx, stageID)
		if err != nil {
			return err
		}
		if stage.IsTerminal() {
			return models.NewIllegalTransitionError("reassign", stage.Status)
		}

		previousUser = stage.AssignedUserID
		if err := stages.Reassign(ctx, stageID, newUserID); err != nil {
			return err
		}
		stage.AssignedUserID = newUserID

		return audit.Append(ctx, &models.AuditLog{
			ConceptPaperID: stage.ConceptPaperID,
			UserID:         &actorID,
			Action:         models.AuditActionReassigned,
			StageName:      stage.StageName,
		})
	})
	if err != nil {
		return nil, transitionErr(err)
	}

	observability.WorkflowTransitionsTotal.WithLabelValues("reassign").Inc()
	s.wlog.LogTransition(ctx, "reassign", stage.ConceptPaperID, stage.StageName, nil)

	if paper, err := repository.NewPaperRepository(s.db).GetByID(ctx, stage.ConceptPaperID); err == nil {
		s.events.StageReassigned(ctx, paper, stage, previousUser)
	}
	return stage, nil
}

// currentStage loads the paper under lock and resolves its current stage,
// validating the single-in-progress invariant on the way. A violated
// invariant is corrupted state, never a silent pick.
func (s *WorkflowService) currentStage(ctx context.Context, papers repository.PaperRepository, stages repository.StageRepository, paperID uint) (*models.ConceptPaper, *models.WorkflowStage, error) {
	paper, err := papers.GetForUpdate(ctx, paperID)
	if err != nil {
		return nil, nil, err
	}
	if paper.IsTerminal() {
		return nil, nil, models.NewIllegalTransitionError("act on", models.StageStatus(paper.Status))
	}
	if paper.CurrentStageID == nil {
		err := models.NewCorruptedStateError("paper has no current stage but is not terminal")
		s.wlog.LogInvariantViolation(ctx, paperID, err.Error())
		return nil, nil, err
	}

	inProgress, err := stages.CountInProgress(ctx, paperID)
	if err != nil {
		return nil, nil, err
	}
	if inProgress > 1 {
		err := models.NewCorruptedStateError("multiple stages are in_progress for one paper")
		s.wlog.LogInvariantViolation(ctx, paperID, err.Error())
		return nil, nil, err
	}

	current, err := stages.GetByID(ctx, *paper.CurrentStageID)
	if err != nil {
		return nil, nil, err
	}
	return paper, current, nil
}

// insertionDeadline computes the inserted stage's deadline immediately at
// insertion: from its option when configured, otherwise from the requested
// wait in days (2 days when unset).
func (s *WorkflowService) insertionDeadline(ctx context.Context, policy *workflow.DeadlinePolicy, spec workflow.InsertionSpec, now time.Time) (time.Time, error) {
	if spec.DeadlineOption != "" {
		return policy.Resolve(ctx, spec.DeadlineOption, now)
	}
	waitDays := spec.WaitDays
	if waitDays <= 0 {
		waitDays = 2
	}
	return now.Add(time.Duration(waitDays) * 24 * time.Hour), nil
}
