package service

import (
	"context"

	"paperflow/internal/models"
	"paperflow/internal/repository"
)

// AuditService exposes the read side of the audit trail. The write side is
// internal to workflow transitions; nothing outside them appends entries.
type AuditService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditService returns a new AuditService.
func NewAuditService(auditRepo repository.AuditLogRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// History returns a paper's audit entries in chronological order.
func (s *AuditService) History(ctx context.Context, paperID uint) ([]models.AuditLog, error) {
	return s.auditRepo.ListForPaper(ctx, paperID)
}
