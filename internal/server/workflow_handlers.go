package server

import (
	"paperflow/internal/cache"
	"paperflow/internal/models"
	"paperflow/internal/workflow"

	"github.com/gofiber/fiber/v2"
)

// SubmitPaper handles POST /api/papers/:id/submit. It builds the paper's full
// stage set and activates the first stage. Only the requisitioner who created
// the paper or an admin may submit it.
func (s *Server) SubmitPaper(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.actor(c)
	if err != nil {
		return nil
	}

	paper, err := s.paperService.GetPaper(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if user.Role != models.RoleAdmin && paper.RequisitionerID != user.ID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Only the requisitioner or an admin may submit this paper"))
	}

	updated, err := s.workflowService.InitializeWorkflow(c.Context(), id, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	cache.InvalidateTracking(c.Context(), updated.TrackingNumber)
	return c.JSON(updated)
}

// AdvanceStage handles POST /api/papers/:id/advance. The actor must hold the
// current stage's role (and claim, when the stage is user-assigned).
func (s *Server) AdvanceStage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.authorizeCurrentStage(c, id)
	if err != nil {
		return nil
	}

	var req struct {
		Remarks   string `json:"remarks"`
		Signature string `json:"signature"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	paper, err := s.workflowService.AdvanceStage(c.Context(), id, user.ID, req.Remarks, req.Signature)
	if err != nil {
		return respondError(c, err)
	}
	cache.InvalidateTracking(c.Context(), paper.TrackingNumber)
	return c.JSON(paper)
}

// ReturnStage handles POST /api/papers/:id/return. Remarks are mandatory;
// they tell the previous approver what to fix.
func (s *Server) ReturnStage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.authorizeCurrentStage(c, id)
	if err != nil {
		return nil
	}

	var req struct {
		Remarks string `json:"remarks"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	paper, err := s.workflowService.ReturnStage(c.Context(), id, user.ID, req.Remarks)
	if err != nil {
		return respondError(c, err)
	}
	cache.InvalidateTracking(c.Context(), paper.TrackingNumber)
	return c.JSON(paper)
}

// RejectStage handles POST /api/papers/:id/reject. Rejection is terminal.
func (s *Server) RejectStage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.authorizeCurrentStage(c, id)
	if err != nil {
		return nil
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	paper, err := s.workflowService.RejectStage(c.Context(), id, user.ID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	cache.InvalidateTracking(c.Context(), paper.TrackingNumber)
	return c.JSON(paper)
}

// GetPaperStages handles GET /api/papers/:id/stages, ordered by stage_order.
func (s *Server) GetPaperStages(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.paperService.GetPaper(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	stages, err := s.stageRepo.GetForPaper(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stages)
}

// ReassignStage handles POST /api/stages/:id/reassign (admin). A null user_id
// releases the stage back to its role pool.
func (s *Server) ReassignStage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req struct {
		UserID *uint `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	stage, err := s.workflowService.ReassignStage(c.Context(), id, req.UserID, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stage)
}

// insertStageRequest carries the parameters for retrofitting a stage.
type insertStageRequest struct {
	AfterStage     string `json:"after_stage"`
	StageName      string `json:"stage_name"`
	AssignedRole   string `json:"assigned_role"`
	DeadlineOption string `json:"deadline_option"`
	WaitDays       int    `json:"wait_days"`
}

func (r insertStageRequest) spec() workflow.InsertionSpec {
	return workflow.InsertionSpec{
		StageName:      r.StageName,
		AssignedRole:   models.Role(r.AssignedRole),
		DeadlineOption: r.DeadlineOption,
		WaitDays:       r.WaitDays,
	}
}

// InsertStage handles POST /api/admin/papers/:id/stages: inserts a new stage
// into one in-flight paper directly after the named completed checkpoint.
func (s *Server) InsertStage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req insertStageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	stage, err := s.workflowService.InsertStageAfter(c.Context(), id, req.AfterStage, req.spec(), &user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stage)
}

// BackfillStage handles POST /api/admin/stages/backfill: applies one stage
// insertion across every active paper that has completed the checkpoint.
func (s *Server) BackfillStage(c *fiber.Ctx) error {
	var req insertStageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	inserted, err := s.workflowService.BackfillStage(c.Context(), req.AfterStage, req.spec())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"inserted": inserted})
}
