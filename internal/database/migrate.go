package database

import (
	"log/slog"

	"paperflow/internal/middleware"
	"paperflow/internal/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate applies all pending schema and data migrations.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())

	m.InitSchema(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(PersistentModels()...); err != nil {
			return err
		}
		return SeedDeadlineOptions(tx)
	})

	if err := m.Migrate(); err != nil {
		return err
	}
	middleware.Logger.Info("Database migration completed")
	return nil
}

// Migrations returns the ordered migration list. IDs are dates; entries are
// append-only.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			// Baseline for databases that predate InitSchema.
			ID: "20260115_baseline_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(PersistentModels()...)
			},
			Rollback: func(tx *gorm.DB) error {
				return nil
			},
		},
		{
			ID: "20260116_seed_deadline_options",
			Migrate: func(tx *gorm.DB) error {
				return SeedDeadlineOptions(tx)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Where("1 = 1").Delete(&models.DeadlineOption{}).Error
			},
		},
	}
}

// DefaultDeadlineOptions is the shipped option set. Hours is authoritative;
// the days column is derived for legacy readers.
func DefaultDeadlineOptions() []models.DeadlineOption {
	return []models.DeadlineOption{
		{Key: "3_hours", Label: "3 Hours", Hours: 3, Days: 0.125, SortOrder: 1},
		{Key: "6_hours", Label: "6 Hours", Hours: 6, Days: 0.25, SortOrder: 2},
		{Key: "12_hours", Label: "12 Hours", Hours: 12, Days: 0.5, SortOrder: 3},
		{Key: "1_day", Label: "1 Day", Hours: 24, Days: 1, SortOrder: 4},
		{Key: "2_days", Label: "2 Days", Hours: 48, Days: 2, SortOrder: 5},
		{Key: "3_days", Label: "3 Days", Hours: 72, Days: 3, SortOrder: 6},
		{Key: "1_week", Label: "1 Week", Hours: 168, Days: 7, SortOrder: 7},
	}
}

// SeedDeadlineOptions inserts any shipped option missing from the table.
func SeedDeadlineOptions(tx *gorm.DB) error {
	for _, option := range DefaultDeadlineOptions() {
		var count int64
		if err := tx.Model(&models.DeadlineOption{}).Where("key = ?", option.Key).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := tx.Create(&option).Error; err != nil {
			return err
		}
		middleware.Logger.Info("Seeded deadline option", slog.String("key", option.Key))
	}
	return nil
}
