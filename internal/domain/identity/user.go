package identity

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cargoledger/backend/internal/domain/shared"
)

// User is an operator of the system. Authentication is username/password;
// authorization comes from the fixed role permission map.
type User struct {
	shared.BaseAggregateRoot
	Username     string
	DisplayName  string
	PasswordHash string
	Role         Role
	Active       bool
}

// NewUser creates an active user with a bcrypt password hash
func NewUser(username, displayName, password string, role Role) (*User, error) {
	if username == "" {
		return nil, shared.NewDomainError("VALIDATION", "username is required")
	}
	if len(password) < 8 {
		return nil, shared.NewDomainError("VALIDATION", "password must be at least 8 characters")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "unknown role")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		DisplayName:       displayName,
		PasswordHash:      string(hash),
		Role:              role,
		Active:            true,
	}, nil
}

// CheckPassword verifies a plaintext password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword replaces the password hash
func (u *User) ChangePassword(newPassword string) error {
	if len(newPassword) < 8 {
		return shared.NewDomainError("VALIDATION", "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.Touch()
	return nil
}

// ChangeRole assigns a new role
func (u *User) ChangeRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("VALIDATION", "unknown role")
	}
	u.Role = role
	u.Touch()
	return nil
}

// Deactivate blocks the user from logging in
func (u *User) Deactivate() {
	u.Active = false
	u.Touch()
}

// Activate restores a deactivated user
func (u *User) Activate() {
	u.Active = true
	u.Touch()
}

// UserRepository defines persistence operations for users
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]User, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
}
