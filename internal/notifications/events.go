// Package notifications provides real-time notification delivery and management.
package notifications

import "time"

// Event types published on workflow channels.
const (
	EventStageAssigned   = "stage_assigned"
	EventStageOverdue    = "stage_overdue"
	EventPaperCompleted  = "paper_completed"
	EventPaperReturned   = "paper_returned"
	EventStageReassigned = "stage_reassigned"
)

// Event is the wire envelope for workflow notifications. Dashboards filter on
// Type and Role.
type Event struct {
	Type           string     `json:"type"`
	PaperID        uint       `json:"paper_id"`
	TrackingNumber string     `json:"tracking_number"`
	Title          string     `json:"title,omitempty"`
	StageName      string     `json:"stage_name,omitempty"`
	Role           string     `json:"role,omitempty"`
	Remarks        string     `json:"remarks,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	PreviousUserID *uint      `json:"previous_user_id,omitempty"`
	EmittedAt      time.Time  `json:"emitted_at"`
}
