package models

import (
	"time"
)

// StageStatus defines lifecycle states for a single workflow stage.
type StageStatus string

const (
	// StageStatusPending indicates the stage has not been activated.
	StageStatusPending StageStatus = "pending"
	// StageStatusInProgress indicates the stage is awaiting its approver.
	StageStatusInProgress StageStatus = "in_progress"
	// StageStatusCompleted indicates the stage was approved; terminal for the stage.
	StageStatusCompleted StageStatus = "completed"
	// StageStatusReturned indicates the stage was sent back; a later advance
	// may re-activate it.
	StageStatusReturned StageStatus = "returned"
	// StageStatusRejected indicates the stage rejected the paper; terminal.
	StageStatusRejected StageStatus = "rejected"
)

// Canonical stage names in pipeline order.
const (
	StageSPSReview       = "SPS Review"
	StageStudentAffairs  = "Student Affairs Review"
	StageVPAcadReview    = "VP Acad Review"
	StageAuditingReview  = "Auditing Review"
	StageSeniorVP        = "Senior VP Approval"
	StageAccounting      = "Accounting Review"
	StageVoucherPrep     = "Voucher Preparation"
	StageChequeReleasing = "Cheque Releasing"
)

// WorkflowStage is one step in a paper's approval pipeline. Stage order values
// for a paper form a dense 1..N sequence; exactly one stage may be in_progress
// at a time.
type WorkflowStage struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	ConceptPaperID  uint          `gorm:"not null;index:idx_stage_paper_order,unique" json:"concept_paper_id"`
	StageName       string        `gorm:"size:80;not null" json:"stage_name"`
	StageOrder      int           `gorm:"not null;index:idx_stage_paper_order,unique" json:"stage_order"`
	AssignedRole    Role          `gorm:"type:varchar(30);not null;index" json:"assigned_role"`
	AssignedUserID  *uint         `json:"assigned_user_id"`
	AssignedUser    *User         `gorm:"foreignKey:AssignedUserID" json:"assigned_user,omitempty"`
	Status          StageStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StartedAt       *time.Time    `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at"`
	Deadline        *time.Time    `json:"deadline"`
	DeadlineOption  string        `gorm:"size:40;not null" json:"deadline_option"`
	Remarks         string        `gorm:"type:text" json:"remarks"`
	Signature       string        `gorm:"type:text" json:"signature"`
	IsRejected      bool          `gorm:"not null;default:false" json:"is_rejected"`
	RejectionReason string        `gorm:"type:text" json:"rejection_reason"`
	RejectedAt      *time.Time    `json:"rejected_at"`
	ConceptPaper    *ConceptPaper `gorm:"foreignKey:ConceptPaperID" json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (WorkflowStage) TableName() string {
	return "workflow_stages"
}

// IsTerminal reports whether the stage permits no further transitions.
func (s *WorkflowStage) IsTerminal() bool {
	return s.Status == StageStatusCompleted || s.Status == StageStatusRejected
}

// Actionable reports whether the stage may be completed, returned, or
// rejected in its current status.
func (s *WorkflowStage) Actionable() bool {
	return s.Status == StageStatusPending || s.Status == StageStatusInProgress
}
