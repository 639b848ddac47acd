// Package workflow holds the pure domain rules for the approval pipeline:
// the canonical stage chain, deadline resolution, and stage-insertion
// planning. Nothing in this package touches storage.
package workflow

import (
	"paperflow/internal/models"
)

// StageTemplate is one entry in the canonical chain for a new paper. Stage
// order is implied by list position, starting at 1.
type StageTemplate struct {
	StageName      string
	AssignedRole   models.Role
	DeadlineOption string
}

// TemplateRegistry produces the ordered stage definitions for a newly
// submitted paper. The chain is frozen once a paper's workflow is
// initialized; only the insertion engine may change it afterwards.
type TemplateRegistry struct{}

// NewTemplateRegistry returns the canonical template registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{}
}

// ForPaper returns the stage chain for the given request nature and flags.
// The Student Affairs Review stage is included only when students are
// involved. The returned slice is always non-empty.
func (r *TemplateRegistry) ForPaper(nature models.NatureOfRequest, studentsInvolved bool) []StageTemplate {
	option := defaultOption(nature)

	chain := []StageTemplate{
		{StageName: models.StageSPSReview, AssignedRole: models.RoleSPS, DeadlineOption: option},
	}
	if studentsInvolved {
		chain = append(chain, StageTemplate{
			StageName:      models.StageStudentAffairs,
			AssignedRole:   models.RoleStudentAffairs,
			DeadlineOption: option,
		})
	}
	chain = append(chain,
		StageTemplate{StageName: models.StageVPAcadReview, AssignedRole: models.RoleVPAcad, DeadlineOption: option},
		StageTemplate{StageName: models.StageAuditingReview, AssignedRole: models.RoleAuditing, DeadlineOption: option},
		StageTemplate{StageName: models.StageSeniorVP, AssignedRole: models.RoleSeniorVP, DeadlineOption: option},
		StageTemplate{StageName: models.StageAccounting, AssignedRole: models.RoleAccounting, DeadlineOption: option},
		StageTemplate{StageName: models.StageVoucherPrep, AssignedRole: models.RoleVoucher, DeadlineOption: option},
		StageTemplate{StageName: models.StageChequeReleasing, AssignedRole: models.RoleCashier, DeadlineOption: option},
	)
	return chain
}

// defaultOption maps request nature to the per-stage deadline option key.
func defaultOption(nature models.NatureOfRequest) string {
	switch nature {
	case models.NatureEmergency:
		return "3_hours"
	case models.NatureUrgent:
		return "1_day"
	default:
		return "3_days"
	}
}
