package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appidentity "github.com/cargoledger/backend/internal/application/identity"
	"github.com/cargoledger/backend/internal/interfaces/http/middleware"
)

// AuthHandler exposes login, token refresh and logout
type AuthHandler struct {
	BaseHandler
	auth *appidentity.AuthService
	// refreshTTL bounds how long a global logout must outlive the newest
	// refresh token
	refreshTTL time.Duration
	users      *appidentity.UserService
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(auth *appidentity.AuthService, users *appidentity.UserService, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, refreshTTL: refreshTTL}
}

// LoginRequest authenticates by username and password
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshRequest exchanges a refresh token for a new pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		User:   toUserResponse(result.User),
		Tokens: result.Tokens,
	})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tokens)
}

// Logout handles POST /auth/logout. The access token presented in the
// Authorization header is revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		h.Unauthorized(c, "authentication required")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// LogoutAll handles POST /auth/logout-all. Every session of the calling
// user is invalidated.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID := middleware.GetJWTUserID(c)
	if userID == "" {
		h.Unauthorized(c, "authentication required")
		return
	}

	if err := h.auth.LogoutAll(c.Request.Context(), userID, h.refreshTTL); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "authentication required")
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader(middleware.AuthHeaderKey)
	if !strings.HasPrefix(header, middleware.BearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, middleware.BearerPrefix)
}
