package identity

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cargoledger/backend/internal/domain/identity"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/infrastructure/auth"
	"github.com/cargoledger/backend/internal/infrastructure/telemetry"
)

// ErrInvalidCredentials is returned for a bad username or password. The
// two cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = shared.NewDomainError("UNAUTHORIZED", "invalid username or password")

// AuthService handles login, token refresh and logout
type AuthService struct {
	users     identity.UserRepository
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService creates the auth service
func NewAuthService(
	users identity.UserRepository,
	jwt *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		jwt:       jwt,
		blacklist: blacklist,
		logger:    logger,
	}
}

// LoginResult carries the tokens and the authenticated user
type LoginResult struct {
	User   *identity.User
	Tokens *auth.TokenPair
}

// Login authenticates a user and issues a token pair. Deactivated users
// cannot log in.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "login")
	defer span.End()

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !user.CheckPassword(password) {
		s.logger.Warn("failed login attempt", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, shared.NewDomainError("FORBIDDEN", "account is deactivated")
	}

	tokens, err := s.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        string(user.Role),
		Permissions: user.Role.Permissions(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. Role and
// permissions are re-read from the user so role changes take effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "refresh")
	defer span.End()

	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, shared.NewDomainError("UNAUTHORIZED", "invalid refresh token")
	}

	blacklisted, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if blacklisted {
		return nil, shared.NewDomainError("UNAUTHORIZED", "refresh token has been revoked")
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.NewDomainError("UNAUTHORIZED", "invalid refresh token")
	}

	invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, userID.String(), claims.IssuedAt.Time)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if invalidated {
		return nil, shared.NewDomainError("UNAUTHORIZED", "session has been terminated")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("UNAUTHORIZED", "invalid refresh token")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !user.Active {
		return nil, shared.NewDomainError("FORBIDDEN", "account is deactivated")
	}

	tokens, err := s.jwt.RefreshTokenPair(refreshToken, string(user.Role), user.Role.Permissions())
	if err != nil {
		if errors.Is(err, auth.ErrMaxRefreshExceeded) {
			return nil, shared.NewDomainError("UNAUTHORIZED", "session expired, please log in again")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	// The old refresh token is single-use
	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		s.logger.Warn("failed to blacklist rotated refresh token", zap.Error(err))
	}

	return tokens, nil
}

// Logout revokes the access token for the remainder of its lifetime
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "logout")
	defer span.End()

	claims, err := s.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		// Already invalid tokens have nothing to revoke
		return nil
	}

	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.logger.Info("user logged out", zap.String("user_id", claims.UserID))
	return nil
}

// LogoutAll terminates every session of a user by invalidating all tokens
// issued up to now
func (s *AuthService) LogoutAll(ctx context.Context, userID string, ttl time.Duration) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "logout_all")
	defer span.End()

	if err := s.blacklist.AddUserTokensToBlacklist(ctx, userID, ttl); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.logger.Info("all sessions terminated", zap.String("user_id", userID))
	return nil
}
