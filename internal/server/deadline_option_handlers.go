package server

import (
	"encoding/json"

	"paperflow/internal/cache"
	"paperflow/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetDeadlineOptions handles GET /api/deadline-options. The catalog changes
// rarely, so reads go through the cache.
func (s *Server) GetDeadlineOptions(c *fiber.Ctx) error {
	if cached := cache.GetString(c.Context(), cache.OptionsKey); cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	options, err := s.optionService.ListOptions(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	if body, err := json.Marshal(options); err == nil {
		cache.SetString(c.Context(), cache.OptionsKey, string(body), cache.OptionsTTL)
	}
	return c.JSON(options)
}

type deadlineOptionRequest struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Hours     int    `json:"hours"`
	SortOrder int    `json:"sort_order"`
}

// CreateDeadlineOption handles POST /api/admin/deadline-options
func (s *Server) CreateDeadlineOption(c *fiber.Ctx) error {
	var req deadlineOptionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	option, err := s.optionService.CreateOption(c.Context(), req.Key, req.Label, req.Hours, req.SortOrder)
	if err != nil {
		return respondError(c, err)
	}
	cache.InvalidateOptions(c.Context())
	return c.Status(fiber.StatusCreated).JSON(option)
}

// UpdateDeadlineOption handles PUT /api/admin/deadline-options/:key. The key
// is immutable; stages reference options by key.
func (s *Server) UpdateDeadlineOption(c *fiber.Ctx) error {
	key := c.Params("key")
	var req deadlineOptionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	option, err := s.optionService.UpdateOption(c.Context(), key, req.Label, req.Hours, req.SortOrder)
	if err != nil {
		return respondError(c, err)
	}
	cache.InvalidateOptions(c.Context())
	return c.JSON(option)
}

// DeleteDeadlineOption handles DELETE /api/admin/deadline-options/:key
func (s *Server) DeleteDeadlineOption(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := s.optionService.DeleteOption(c.Context(), key); err != nil {
		return respondError(c, err)
	}
	cache.InvalidateOptions(c.Context())
	return c.SendStatus(fiber.StatusNoContent)
}
