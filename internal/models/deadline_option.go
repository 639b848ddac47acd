package models

import (
	"time"
)

// DeadlineOption is a named, administrator-configurable duration used to
// compute a stage's deadline at activation time. In-flight deadlines are
// snapshotted at assignment and are not retouched by later edits.
type DeadlineOption struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"size:40;unique;not null" json:"key"`
	Label     string    `gorm:"size:80;not null" json:"label"`
	Hours     int       `gorm:"not null" json:"hours"`
	Days      float64   `json:"days"` // legacy; Hours is authoritative
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (DeadlineOption) TableName() string {
	return "deadline_options"
}

// Duration returns the option's length. Hours is authoritative; the legacy
// fractional Days field is only consulted when Hours was never set, avoiding
// rounding drift for sub-day durations.
func (o *DeadlineOption) Duration() time.Duration {
	if o.Hours > 0 {
		return time.Duration(o.Hours) * time.Hour
	}
	return time.Duration(o.Days * 24 * float64(time.Hour))
}
