package server

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"paperflow/internal/cache"
	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxAttachmentSize = 10 << 20 // 10 MiB

// CreatePaper handles POST /api/papers
// @Summary Create concept paper
// @Description Record a new concept paper in pending status
// @Tags papers
// @Accept json
// @Produce json
// @Param request body object{title=string,department=string,nature_of_request=string,students_involved=bool,deadline_option=string} true "Paper details"
// @Success 201 {object} models.ConceptPaper
// @Failure 400 {object} models.ErrorResponse
// @Router /papers [post]
func (s *Server) CreatePaper(c *fiber.Ctx) error {
	user, err := s.actor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Title            string `json:"title"`
		Department       string `json:"department"`
		NatureOfRequest  string `json:"nature_of_request"`
		StudentsInvolved bool   `json:"students_involved"`
		DeadlineOption   string `json:"deadline_option"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	department := req.Department
	if department == "" {
		department = user.Department
	}

	paper, err := s.paperService.CreatePaper(c.Context(), service.CreatePaperInput{
		RequisitionerID:  user.ID,
		Department:       department,
		Title:            req.Title,
		NatureOfRequest:  models.NatureOfRequest(req.NatureOfRequest),
		StudentsInvolved: req.StudentsInvolved,
		DeadlineOption:   req.DeadlineOption,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(paper)
}

// GetPapers handles GET /api/papers with status/department/role filters.
func (s *Server) GetPapers(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	papers, err := s.paperService.ListPapers(c.Context(), repository.PaperFilter{
		Status:     models.PaperStatus(c.Query("status")),
		Department: c.Query("department"),
		Role:       models.Role(c.Query("role")),
		Limit:      p.Limit,
		Offset:     p.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(papers)
}

// GetOverduePapers handles GET /api/papers/overdue
func (s *Server) GetOverduePapers(c *fiber.Ctx) error {
	papers, err := s.paperService.ListOverduePapers(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(papers)
}

// GetPaper handles GET /api/papers/:id
func (s *Server) GetPaper(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	paper, err := s.paperService.GetPaper(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(paper)
}

// GetPaperByTrackingNumber handles GET /api/papers/track/:trackingNumber.
// Public: anyone holding a tracking number may follow the paper's progress.
// Responses are cached briefly; every workflow transition invalidates.
func (s *Server) GetPaperByTrackingNumber(c *fiber.Ctx) error {
	trackingNumber := c.Params("trackingNumber")
	if trackingNumber == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid tracking number"))
	}

	if cached := cache.GetString(c.Context(), cache.TrackingKey(trackingNumber)); cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	paper, err := s.paperService.GetPaperByTrackingNumber(c.Context(), trackingNumber)
	if err != nil {
		return respondError(c, err)
	}

	if body, err := json.Marshal(paper); err == nil {
		cache.SetString(c.Context(), cache.TrackingKey(trackingNumber), string(body), cache.TrackingTTL)
	}
	return c.JSON(paper)
}

// DeletePaper handles DELETE /api/papers/:id. Only the requisitioner who
// submitted the paper or an admin may delete it.
func (s *Server) DeletePaper(c *fiber.Ctx) error {
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
			models.NewUnauthorizedError("Only the requisitioner or an admin may delete a paper"))
	}

	if err := s.paperService.DeletePaper(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	cache.InvalidateTracking(c.Context(), paper.TrackingNumber)
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadAttachment handles POST /api/papers/:id/attachments (multipart form,
// field "file").
func (s *Server) UploadAttachment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.actor(c)
	if err != nil {
		return nil
	}
	if _, err := s.paperService.GetPaper(c.Context(), id); err != nil {
		return respondError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A file upload is required"))
	}
	if fileHeader.Size > maxAttachmentSize {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
			models.NewValidationError("Attachment exceeds the 10 MiB limit"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	store := NewDiskStore(s.config.AttachmentDir)
	relPath := fmt.Sprintf("paper_%d/%s%s", id, uuid.NewString(), filepath.Ext(fileHeader.Filename))
	storedPath, err := store.Save(c.Context(), relPath, data)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	attachment := &models.Attachment{
		ConceptPaperID: id,
		UploadedByID:   user.ID,
		FileName:       fileHeader.Filename,
		FilePath:       storedPath,
		FileSize:       fileHeader.Size,
		MimeType:       fileHeader.Header.Get("Content-Type"),
	}
	if err := s.attachmentRepo.Create(c.Context(), attachment); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(attachment)
}

// GetAttachments handles GET /api/papers/:id/attachments
func (s *Server) GetAttachments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	attachments, err := s.attachmentRepo.ListForPaper(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(attachments)
}
