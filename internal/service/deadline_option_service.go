package service

import (
	"context"

	"paperflow/internal/models"
	"paperflow/internal/repository"
)

// DeadlineOptionService provides administration of named deadline durations.
// Keys are immutable once created; stage deadlines already computed from an
// option are snapshots and are never retouched by edits here.
type DeadlineOptionService struct {
	optionRepo repository.DeadlineOptionRepository
}

// NewDeadlineOptionService returns a new DeadlineOptionService.
func NewDeadlineOptionService(optionRepo repository.DeadlineOptionRepository) *DeadlineOptionService {
	return &DeadlineOptionService{optionRepo: optionRepo}
}

// ListOptions returns all options in display order.
func (s *DeadlineOptionService) ListOptions(ctx context.Context) ([]models.DeadlineOption, error) {
	return s.optionRepo.List(ctx)
}

// CreateOption adds a new named duration. Hours is the authoritative length;
// the legacy days field is kept in sync for old readers.
func (s *DeadlineOptionService) CreateOption(ctx context.Context, key, label string, hours, sortOrder int) (*models.DeadlineOption, error) {
	if key == "" {
		return nil, models.NewValidationError("option key is required")
	}
	if hours <= 0 {
		return nil, models.NewValidationError("option hours must be positive")
	}
	existing, err := s.optionRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("an option with this key already exists")
	}

	option := &models.DeadlineOption{
		Key:       key,
		Label:     label,
		Hours:     hours,
		Days:      float64(hours) / 24,
		SortOrder: sortOrder,
	}
	if err := s.optionRepo.Create(ctx, option); err != nil {
		return nil, err
	}
	return option, nil
}

// UpdateOption edits an option's label, length, and ordering. The key cannot
// change.
func (s *DeadlineOptionService) UpdateOption(ctx context.Context, key, label string, hours, sortOrder int) (*models.DeadlineOption, error) {
	if hours <= 0 {
		return nil, models.NewValidationError("option hours must be positive")
	}
	if err := s.optionRepo.Update(ctx, key, label, hours, float64(hours)/24, sortOrder); err != nil {
		return nil, err
	}
	return s.optionRepo.GetByKey(ctx, key)
}

// DeleteOption removes an option. Papers already holding deadlines computed
// from it are unaffected.
func (s *DeadlineOptionService) DeleteOption(ctx context.Context, key string) error {
	return s.optionRepo.Delete(ctx, key)
}
