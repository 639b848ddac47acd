package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetAuditTrail handles GET /api/papers/:id/audit. Entries come back in the
// order they were recorded; the trail is append-only.
func (s *Server) GetAuditTrail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.paperService.GetPaper(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	entries, err := s.auditService.History(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}
