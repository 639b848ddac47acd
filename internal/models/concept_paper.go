package models

import (
	"time"

	"gorm.io/gorm"
)

// PaperStatus defines lifecycle states for a concept paper.
type PaperStatus string

const (
	// PaperStatusPending indicates the paper is created but its workflow has
	// not been initialized yet.
	PaperStatusPending PaperStatus = "pending"
	// PaperStatusInProgress indicates an approval stage is actively awaiting
	// action.
	PaperStatusInProgress PaperStatus = "in_progress"
	// PaperStatusCompleted indicates every stage finished; terminal.
	PaperStatusCompleted PaperStatus = "completed"
	// PaperStatusReturned indicates the current stage was sent back for
	// correction and a previous stage was re-opened.
	PaperStatusReturned PaperStatus = "returned"
	// PaperStatusRejected indicates the paper was rejected; terminal.
	PaperStatusRejected PaperStatus = "rejected"
)

// NatureOfRequest classifies how urgently a paper must move.
type NatureOfRequest string

const (
	NatureRegular   NatureOfRequest = "regular"
	NatureUrgent    NatureOfRequest = "urgent"
	NatureEmergency NatureOfRequest = "emergency"
)

// ConceptPaper is one approval request moving through the stage pipeline.
type ConceptPaper struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	TrackingNumber   string          `gorm:"size:40;unique;not null" json:"tracking_number"`
	RequisitionerID  uint            `gorm:"not null;index" json:"requisitioner_id"`
	Requisitioner    *User           `gorm:"foreignKey:RequisitionerID" json:"requisitioner,omitempty"`
	Department       string          `gorm:"size:120;not null" json:"department"`
	Title            string          `gorm:"size:200;not null" json:"title"`
	NatureOfRequest  NatureOfRequest `gorm:"type:varchar(20);not null;default:'regular'" json:"nature_of_request"`
	SubmittedAt      time.Time       `gorm:"not null" json:"submitted_at"`
	CurrentStageID   *uint           `json:"current_stage_id"`
	CurrentStage     *WorkflowStage  `gorm:"foreignKey:CurrentStageID" json:"current_stage,omitempty"`
	Status           PaperStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CompletedAt      *time.Time      `json:"completed_at"`
	StudentsInvolved bool            `gorm:"not null;default:false" json:"students_involved"`
	DeadlineOption   string          `gorm:"size:40" json:"deadline_option"`
	DeadlineDate     *time.Time      `json:"deadline_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Stages      []WorkflowStage `gorm:"foreignKey:ConceptPaperID;constraint:OnDelete:CASCADE" json:"stages,omitempty"`
	AuditLogs   []AuditLog      `gorm:"foreignKey:ConceptPaperID;constraint:OnDelete:CASCADE" json:"audit_logs,omitempty"`
	Attachments []Attachment    `gorm:"foreignKey:ConceptPaperID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

// TableName specifies the table name for GORM
func (ConceptPaper) TableName() string {
	return "concept_papers"
}

// IsTerminal reports whether no further stage activity is permitted.
func (p *ConceptPaper) IsTerminal() bool {
	return p.Status == PaperStatusCompleted || p.Status == PaperStatusRejected
}
