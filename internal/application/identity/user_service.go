package identity

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cargoledger/backend/internal/domain/audit"
	"github.com/cargoledger/backend/internal/domain/identity"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/infrastructure/telemetry"
)

// UserService manages operator accounts
type UserService struct {
	users  identity.UserRepository
	audits audit.LogRepository
	logger *zap.Logger
}

// NewUserService creates the user service
func NewUserService(users identity.UserRepository, audits audit.LogRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		audits: audits,
		logger: logger,
	}
}

// CreateUserRequest is the input to user creation
type CreateUserRequest struct {
	Username    string
	DisplayName string
	Password    string
	Role        identity.Role
	CreatedBy   uuid.UUID
}

// Create registers a new user. Usernames are unique.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*identity.User, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "create")
	defer span.End()

	existing, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "username is already taken")
	}

	user, err := identity.NewUser(req.Username, req.DisplayName, req.Password, req.Role)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.writeAudit(req.CreatedBy, user, audit.ActionCreate, map[string]string{
		"username": user.Username,
		"role":     string(user.Role),
	})
	s.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))
	return user, nil
}

// Get returns one user by ID
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "get")
	defer span.End()

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return user, nil
}

// List returns users matching the filter, paginated
func (s *UserService) List(ctx context.Context, filter shared.Filter) (shared.Paginated[identity.User], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "list")
	defer span.End()

	users, err := s.users.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[identity.User]{}, err
	}
	total, err := s.users.Count(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[identity.User]{}, err
	}
	return shared.NewPaginated(users, total, filter.Page, filter.PageSize), nil
}

// ChangePassword replaces a user's password after verifying the current one
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "change_password")
	defer span.End()

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !user.CheckPassword(currentPassword) {
		return shared.NewDomainError("UNAUTHORIZED", "current password is incorrect")
	}
	if err := user.ChangePassword(newPassword); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", id.String()))
	return nil
}

// ResetPassword sets a new password without the current one. Admin only;
// the handler enforces the permission.
func (s *UserService) ResetPassword(ctx context.Context, id uuid.UUID, newPassword string, resetBy uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "reset_password")
	defer span.End()

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := user.ChangePassword(newPassword); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.writeAudit(resetBy, user, audit.ActionUpdate, map[string]string{"change": "password_reset"})
	return nil
}

// ChangeRole assigns a new role to a user
func (s *UserService) ChangeRole(ctx context.Context, id uuid.UUID, role identity.Role, changedBy uuid.UUID) (*identity.User, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "change_role")
	defer span.End()

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	previous := user.Role
	if err := user.ChangeRole(role); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.writeAudit(changedBy, user, audit.ActionUpdate, map[string]string{
		"change":    "role",
		"from_role": string(previous),
		"to_role":   string(role),
	})
	return user, nil
}

// SetActive activates or deactivates a user. Users cannot deactivate
// themselves.
func (s *UserService) SetActive(ctx context.Context, id uuid.UUID, active bool, changedBy uuid.UUID) (*identity.User, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "set_active")
	defer span.End()

	if !active && id == changedBy {
		return nil, shared.NewDomainError("VALIDATION", "cannot deactivate your own account")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if active {
		user.Activate()
	} else {
		user.Deactivate()
	}
	if err := s.users.Save(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.writeAudit(changedBy, user, audit.ActionUpdate, map[string]string{
		"change": "active",
		"active": strconv.FormatBool(active),
	})
	return user, nil
}

// writeAudit records a user management action. Failures are logged and
// swallowed.
func (s *UserService) writeAudit(actorID uuid.UUID, user *identity.User, action audit.ActionType, details map[string]string) {
	if s.audits == nil {
		return
	}
	entry, err := audit.NewLog(actorID, "User", user.ID, action, details)
	if err != nil {
		s.logger.Warn("failed to build audit entry", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audits.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to write audit entry",
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
		}
	}()
}
