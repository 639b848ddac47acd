package repository

import (
	"context"

	"paperflow/internal/models"

	"gorm.io/gorm"
)

// AttachmentRepository defines the interface for attachment metadata
// operations. File bytes are handled by the storage collaborator; this layer
// only tracks ownership so paper deletion can cascade.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	ListForPaper(ctx context.Context, paperID uint) ([]models.Attachment, error)
	SoftDeleteForPaper(ctx context.Context, paperID uint) error
}

// attachmentRepository implements AttachmentRepository
type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *attachmentRepository) ListForPaper(ctx context.Context, paperID uint) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := r.db.WithContext(ctx).
		Where("concept_paper_id = ?", paperID).
		Find(&attachments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return attachments, nil
}

func (r *attachmentRepository) SoftDeleteForPaper(ctx context.Context, paperID uint) error {
	if err := r.db.WithContext(ctx).
		Where("concept_paper_id = ?", paperID).
		Delete(&models.Attachment{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
