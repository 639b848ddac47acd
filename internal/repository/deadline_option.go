package repository

import (
	"context"
	"errors"

	"paperflow/internal/models"

	"gorm.io/gorm"
)

// DeadlineOptionRepository defines the interface for deadline option data
// operations. The key is immutable after creation; edits only touch label,
// hours, days, and sort order, so deadlines already snapshotted onto stages
// are never retroactively affected.
type DeadlineOptionRepository interface {
	GetByKey(ctx context.Context, key string) (*models.DeadlineOption, error)
	List(ctx context.Context) ([]models.DeadlineOption, error)
	Create(ctx context.Context, option *models.DeadlineOption) error
	Update(ctx context.Context, key string, label string, hours int, days float64, sortOrder int) error
	Delete(ctx context.Context, key string) error
}

// deadlineOptionRepository implements DeadlineOptionRepository
type deadlineOptionRepository struct {
	db *gorm.DB
}

// NewDeadlineOptionRepository creates a new deadline option repository
func NewDeadlineOptionRepository(db *gorm.DB) DeadlineOptionRepository {
	return &deadlineOptionRepository{db: db}
}

func (r *deadlineOptionRepository) GetByKey(ctx context.Context, key string) (*models.DeadlineOption, error) {
	var option models.DeadlineOption
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&option).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // lookup miss, not an internal failure
		}
		return nil, models.NewInternalError(err)
	}
	return &option, nil
}

func (r *deadlineOptionRepository) List(ctx context.Context) ([]models.DeadlineOption, error) {
	var options []models.DeadlineOption
	if err := r.db.WithContext(ctx).Order("sort_order ASC, key ASC").Find(&options).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return options, nil
}

func (r *deadlineOptionRepository) Create(ctx context.Context, option *models.DeadlineOption) error {
	if err := r.db.WithContext(ctx).Create(option).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *deadlineOptionRepository) Update(ctx context.Context, key string, label string, hours int, days float64, sortOrder int) error {
	result := r.db.WithContext(ctx).
		Model(&models.DeadlineOption{}).
		Where("key = ?", key).
		Updates(map[string]interface{}{
			"label":      label,
			"hours":      hours,
			"days":       days,
			"sort_order": sortOrder,
		})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("DeadlineOption", key)
	}
	return nil
}

func (r *deadlineOptionRepository) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.DeadlineOption{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("DeadlineOption", key)
	}
	return nil
}
