package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded for externally visible transitions.
const (
	AuditActionSubmitted  = "submitted"
	AuditActionCompleted  = "completed"
	AuditActionReturned   = "returned"
	AuditActionRejected   = "rejected"
	AuditActionReassigned = "reassigned"
	AuditActionInserted   = "stage_inserted"
)

// AuditLog is a write-once record of a workflow transition. Rows are never
// updated or deleted; history is reconstructed by ordering on
// (concept_paper_id, created_at).
type AuditLog struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ConceptPaperID uint           `gorm:"not null;index:idx_audit_paper_time" json:"concept_paper_id"`
	UserID         *uint          `json:"user_id"`
	User           *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action         string         `gorm:"size:40;not null" json:"action"`
	StageName      string         `gorm:"size:80" json:"stage_name"`
	Remarks        string         `gorm:"type:text" json:"remarks"`
	Metadata       datatypes.JSON `json:"metadata"`
	CreatedAt      time.Time      `gorm:"index:idx_audit_paper_time" json:"created_at"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}
