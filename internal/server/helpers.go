package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"paperflow/internal/middleware"
	"paperflow/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// statusForCode maps application error codes to HTTP statuses. Workflow rule
// violations are client errors: the request was understood but the transition
// is not legal from the paper's current state.
func statusForCode(code string) int {
	switch code {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation, models.CodeUnknownOption:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeIllegalTransition,
		models.CodeNoPreviousStage,
		models.CodeAlreadyInitialized,
		models.CodeEmptyTemplate,
		models.CodeCheckpointNotFound,
		models.CodeAlreadyInserted:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the response for a service-layer error.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return models.RespondWithError(c, statusForCode(appErr.Code), appErr)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError,
		models.NewInternalError(err))
}

// actor loads the authenticated user's account. On failure it writes the
// response and returns errResponseWritten.
func (s *Server) actor(c *fiber.Ctx) (*models.User, error) {
	id, ok := middleware.ActorID(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
		return nil, errResponseWritten
	}
	user, err := s.userRepo.GetByID(c.Context(), id)
	if err != nil {
		_ = respondError(c, err)
		return nil, errResponseWritten
	}
	return user, nil
}

// authorizeCurrentStage verifies the actor may act on the paper's current
// stage. Admins bypass the role gate; everyone else must satisfy
// middleware.CanActOnStage. On failure the response is written already.
func (s *Server) authorizeCurrentStage(c *fiber.Ctx, paperID uint) (*models.User, error) {
	user, err := s.actor(c)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return user, nil
	}

	paper, err := s.paperRepo.GetByID(c.Context(), paperID)
	if err != nil {
		_ = respondError(c, err)
		return nil, errResponseWritten
	}
	if paper.CurrentStageID == nil {
		_ = models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("paper has no active stage"))
		return nil, errResponseWritten
	}
	stage, err := s.stageRepo.GetByID(c.Context(), *paper.CurrentStageID)
	if err != nil {
		_ = respondError(c, err)
		return nil, errResponseWritten
	}
	if !middleware.CanActOnStage(user, stage) {
		_ = models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("You are not authorized to act on this stage"))
		return nil, errResponseWritten
	}
	return user, nil
}

// DiskStore stores attachment bytes under a base directory. It implements
// service.FileStore for the deletion cleanup pass.
type DiskStore struct {
	baseDir string
}

// NewDiskStore returns a DiskStore rooted at baseDir.
func NewDiskStore(baseDir string) *DiskStore {
	return &DiskStore{baseDir: baseDir}
}

// Save writes the given bytes under a relative path and returns that path.
func (d *DiskStore) Save(_ context.Context, relPath string, data []byte) (string, error) {
	full := filepath.Join(d.baseDir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return relPath, nil
}

// Remove deletes stored bytes. A missing file is not an error: cleanup is
// idempotent.
func (d *DiskStore) Remove(_ context.Context, relPath string) error {
	err := os.Remove(filepath.Join(d.baseDir, relPath))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
