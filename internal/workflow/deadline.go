package workflow

import (
	"context"
	"time"

	"paperflow/internal/models"
)

// OptionSource looks up deadline options by key. Implemented by the deadline
// option repository; tests supply a map-backed stub.
type OptionSource interface {
	GetByKey(ctx context.Context, key string) (*models.DeadlineOption, error)
}

// DeadlinePolicy converts a deadline-option key into an absolute deadline
// given an activation instant. Durations are plain hour arithmetic; there is
// no calendar-aware month/day handling for hour-based options.
type DeadlinePolicy struct {
	options OptionSource
}

// NewDeadlinePolicy returns a policy backed by the given option source.
func NewDeadlinePolicy(options OptionSource) *DeadlinePolicy {
	return &DeadlinePolicy{options: options}
}

// Resolve returns activatedAt plus the option's duration. An unconfigured key
// yields an UnknownOptionError.
func (p *DeadlinePolicy) Resolve(ctx context.Context, optionKey string, activatedAt time.Time) (time.Time, error) {
	option, err := p.options.GetByKey(ctx, optionKey)
	if err != nil {
		return time.Time{}, err
	}
	if option == nil {
		return time.Time{}, models.NewUnknownOptionError(optionKey)
	}
	return activatedAt.Add(option.Duration()), nil
}
