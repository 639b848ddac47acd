package database

import "paperflow/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.ConceptPaper{},
		&models.WorkflowStage{},
		&models.AuditLog{},
		&models.DeadlineOption{},
		&models.Attachment{},
	}
}
