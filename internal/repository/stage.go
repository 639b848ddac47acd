package repository

import (
	"context"
	"errors"
	"time"

	"paperflow/internal/models"

	"gorm.io/gorm"
)

// StageRepository defines the interface for workflow stage data operations.
// Mutations are explicit, named transitions; there is no generic update that
// could touch stage_order or status as a side effect.
type StageRepository interface {
	CreateBatch(ctx context.Context, stages []models.WorkflowStage) error
	Create(ctx context.Context, stage *models.WorkflowStage) error
	GetByID(ctx context.Context, id uint) (*models.WorkflowStage, error)
	GetForPaper(ctx context.Context, paperID uint) ([]models.WorkflowStage, error)
	GetByPaperAndOrder(ctx context.Context, paperID uint, order int) (*models.WorkflowStage, error)
	CountForPaper(ctx context.Context, paperID uint) (int64, error)
	CountInProgress(ctx context.Context, paperID uint) (int64, error)
	Activate(ctx context.Context, stageID uint, startedAt, deadline time.Time) error
	Complete(ctx context.Context, stageID uint, completedAt time.Time, remarks, signature string) error
	MarkReturned(ctx context.Context, stageID uint, remarks string) error
	Reject(ctx context.Context, stageID uint, reason string, rejectedAt time.Time) error
	Reopen(ctx context.Context, stageID uint, startedAt, deadline time.Time) error
	ResetToPending(ctx context.Context, stageID uint) error
	SetOrder(ctx context.Context, stageID uint, order int) error
	Reassign(ctx context.Context, stageID uint, userID *uint) error
}

// stageRepository implements StageRepository
type stageRepository struct {
	db *gorm.DB
}

// NewStageRepository creates a new stage repository
func NewStageRepository(db *gorm.DB) StageRepository {
	return &stageRepository{db: db}
}

func (r *stageRepository) CreateBatch(ctx context.Context, stages []models.WorkflowStage) error {
	if err := r.db.WithContext(ctx).Create(&stages).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *stageRepository) Create(ctx context.Context, stage *models.WorkflowStage) error {
	if err := r.db.WithContext(ctx).Create(stage).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *stageRepository) GetByID(ctx context.Context, id uint) (*models.WorkflowStage, error) {
	var stage models.WorkflowStage
	if err := r.db.WithContext(ctx).Preload("AssignedUser").First(&stage, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("WorkflowStage", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &stage, nil
}

func (r *stageRepository) GetForPaper(ctx context.Context, paperID uint) ([]models.WorkflowStage, error) {
	var stages []models.WorkflowStage
	if err := r.db.WithContext(ctx).
		Where("concept_paper_id = ?", paperID).
		Order("stage_order ASC").
		Find(&stages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stages, nil
}

func (r *stageRepository) GetByPaperAndOrder(ctx context.Context, paperID uint, order int) (*models.WorkflowStage, error) {
	var stage models.WorkflowStage
	if err := r.db.WithContext(ctx).
		Where("concept_paper_id = ? AND stage_order = ?", paperID, order).
		First(&stage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // no stage at that position
		}
		return nil, models.NewInternalError(err)
	}
	return &stage, nil
}

func (r *stageRepository) CountForPaper(ctx context.Context, paperID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WorkflowStage{}).
		Where("concept_paper_id = ?", paperID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *stageRepository) CountInProgress(ctx context.Context, paperID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WorkflowStage{}).
		Where("concept_paper_id = ? AND status = ?", paperID, models.StageStatusInProgress).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// Activate transitions a stage to in_progress with a freshly computed deadline.
func (r *stageRepository) Activate(ctx context.Context, stageID uint, startedAt, deadline time.Time) error {
	return r.update(ctx, stageID, map[string]interface{}{
		"status":     models.StageStatusInProgress,
		"started_at": startedAt,
		"deadline":   deadline,
	})
}

func (r *stageRepository) Complete(ctx context.Context, stageID uint, completedAt time.Time, remarks, signature string) error {
	values := map[string]interface{}{
		"status":       models.StageStatusCompleted,
		"completed_at": completedAt,
	}
	if remarks != "" {
		values["remarks"] = remarks
	}
	if signature != "" {
		values["signature"] = signature
	}
	return r.update(ctx, stageID, values)
}

func (r *stageRepository) MarkReturned(ctx context.Context, stageID uint, remarks string) error {
	return r.update(ctx, stageID, map[string]interface{}{
		"status":  models.StageStatusReturned,
		"remarks": remarks,
	})
}

func (r *stageRepository) Reject(ctx context.Context, stageID uint, reason string, rejectedAt time.Time) error {
	return r.update(ctx, stageID, map[string]interface{}{
		"status":           models.StageStatusRejected,
		"is_rejected":      true,
		"rejection_reason": reason,
		"rejected_at":      rejectedAt,
	})
}

// Reopen re-activates a previously acted-on stage for correction, clearing
// its completion timestamp.
func (r *stageRepository) Reopen(ctx context.Context, stageID uint, startedAt, deadline time.Time) error {
	return r.update(ctx, stageID, map[string]interface{}{
		"status":       models.StageStatusInProgress,
		"started_at":   startedAt,
		"completed_at": nil,
		"deadline":     deadline,
	})
}

// ResetToPending parks a stage that lost the current-stage pointer to a
// newly inserted stage.
func (r *stageRepository) ResetToPending(ctx context.Context, stageID uint) error {
	return r.update(ctx, stageID, map[string]interface{}{
		"status":     models.StageStatusPending,
		"started_at": nil,
	})
}

func (r *stageRepository) SetOrder(ctx context.Context, stageID uint, order int) error {
	return r.update(ctx, stageID, map[string]interface{}{"stage_order": order})
}

func (r *stageRepository) Reassign(ctx context.Context, stageID uint, userID *uint) error {
	return r.update(ctx, stageID, map[string]interface{}{"assigned_user_id": userID})
}

func (r *stageRepository) update(ctx context.Context, stageID uint, values map[string]interface{}) error {
	if err := r.db.WithContext(ctx).
		Model(&models.WorkflowStage{}).
		Where("id = ?", stageID).
		Updates(values).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
