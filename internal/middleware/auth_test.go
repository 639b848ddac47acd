package middleware

import (
	"testing"

	"paperflow/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanActOnStage(t *testing.T) {
	actorID := uint(5)
	otherID := uint(9)

	actor := func() *models.User {
		return &models.User{ID: actorID, Role: models.RoleVPAcad, IsActive: true}
	}
	stage := func() *models.WorkflowStage {
		return &models.WorkflowStage{AssignedRole: models.RoleVPAcad, Status: models.StageStatusInProgress}
	}

	assert.True(t, CanActOnStage(actor(), stage()))

	t.Run("wrong role", func(t *testing.T) {
		a := actor()
		a.Role = models.RoleAuditing
		assert.False(t, CanActOnStage(a, stage()))
	})

	t.Run("inactive actor", func(t *testing.T) {
		a := actor()
		a.IsActive = false
		assert.False(t, CanActOnStage(a, stage()))
	})

	t.Run("claimed by the actor", func(t *testing.T) {
		s := stage()
		s.AssignedUserID = &actorID
		assert.True(t, CanActOnStage(actor(), s))
	})

	t.Run("claimed by someone else", func(t *testing.T) {
		s := stage()
		s.AssignedUserID = &otherID
		assert.False(t, CanActOnStage(actor(), s))
	})

	t.Run("nil inputs", func(t *testing.T) {
		assert.False(t, CanActOnStage(nil, stage()))
		assert.False(t, CanActOnStage(actor(), nil))
	})
}
