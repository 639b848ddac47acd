package service

import (
	"context"

	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService provides account registration and credential checks. Role and
// identity enforcement for workflow actions happens in the authorization
// middleware; this service only manages accounts.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// RegisterInput carries the fields for creating an account.
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Role       models.Role
	Department string
}

// Register creates a new active account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := validation.ValidateUsername(input.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(input.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(input.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if !models.ValidRoles[input.Role] {
		return nil, models.NewValidationError("invalid role")
	}
	if existing, _ := s.userRepo.GetByUsername(ctx, input.Username); existing != nil {
		return nil, models.NewValidationError("username is already taken")
	}
	if existing, _ := s.userRepo.GetByEmail(ctx, input.Email); existing != nil {
		return nil, models.NewValidationError("email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:   input.Username,
		Email:      input.Email,
		Password:   string(hash),
		FullName:   input.FullName,
		Role:       input.Role,
		Department: input.Department,
		IsActive:   true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies a username/password pair and returns the account.
// Inactive accounts cannot authenticate.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.IsActive {
		return nil, models.NewUnauthorizedError("Account is deactivated")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

// GetUser returns an account by id.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListApprovers returns active users in the given stage role.
func (s *UserService) ListApprovers(ctx context.Context, role models.Role) ([]models.User, error) {
	if !models.ValidRoles[role] {
		return nil, models.NewValidationError("invalid role")
	}
	return s.userRepo.ListByRole(ctx, role)
}
