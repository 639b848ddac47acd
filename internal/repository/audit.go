package repository

import (
	"context"

	"paperflow/internal/models"

	"gorm.io/gorm"
)

// AuditLogRepository is a pure append interface over the audit trail. There
// is no update or delete: entries are write-once and history is reconstructed
// by ordering on (paper, created_at).
type AuditLogRepository interface {
	Append(ctx context.Context, entry *models.AuditLog) error
	ListForPaper(ctx context.Context, paperID uint) ([]models.AuditLog, error)
	CountByAction(ctx context.Context, paperID uint, action string) (int64, error)
}

// auditLogRepository implements AuditLogRepository
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *auditLogRepository) ListForPaper(ctx context.Context, paperID uint) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	if err := r.db.WithContext(ctx).
		Where("concept_paper_id = ?", paperID).
		Order("created_at ASC, id ASC").
		Preload("User").
		Find(&entries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

func (r *auditLogRepository) CountByAction(ctx context.Context, paperID uint, action string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("concept_paper_id = ? AND action = ?", paperID, action).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
