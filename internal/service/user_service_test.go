package service

import (
	"context"
	"testing"

	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerInput() RegisterInput {
	return RegisterInput{
		Username: "edna_cruz",
		Email:    "edna@example.edu",
		Password: "Sup3rSecret",
		FullName: "Edna Cruz",
		Role:     models.RoleAuditing,
	}
}

func TestRegister(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "Sup3rSecret", user.Password, "password is stored hashed")

	// Username and email are both unique.
	dup := registerInput()
	dup.Email = "edna2@example.edu"
	_, err = svc.Register(ctx, dup)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	dup = registerInput()
	dup.Username = "edna_cruz2"
	_, err = svc.Register(ctx, dup)
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestRegister_Validation(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"bad username", func(in *RegisterInput) { in.Username = "x" }},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"weak password", func(in *RegisterInput) { in.Password = "short" }},
		{"unknown role", func(in *RegisterInput) { in.Role = "provost" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := registerInput()
			tc.mutate(&in)
			_, err := svc.Register(ctx, in)
			assert.True(t, models.IsCode(err, models.CodeValidation))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	created, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "edna_cruz", "Sup3rSecret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(ctx, "edna_cruz", "WrongPass1")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = svc.Authenticate(ctx, "nobody", "Sup3rSecret")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	// Deactivated accounts cannot log in.
	require.NoError(t, repository.NewUserRepository(db).SetActive(ctx, created.ID, false))
	_, err = svc.Authenticate(ctx, "edna_cruz", "Sup3rSecret")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestListApprovers(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	approvers, err := svc.ListApprovers(ctx, models.RoleAuditing)
	require.NoError(t, err)
	assert.Len(t, approvers, 1)

	approvers, err = svc.ListApprovers(ctx, models.RoleCashier)
	require.NoError(t, err)
	assert.Empty(t, approvers)

	_, err = svc.ListApprovers(ctx, "registrar")
	assert.True(t, models.IsCode(err, models.CodeValidation))
}
