// Package testutil provides shared test fixtures.
package testutil

import (
	"testing"

	"paperflow/internal/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an isolated in-memory database with the full schema and the
// shipped deadline options. Each call gets its own database; tests never share
// state.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	if err := database.SeedDeadlineOptions(db); err != nil {
		t.Fatalf("seed deadline options: %v", err)
	}

	return db
}
