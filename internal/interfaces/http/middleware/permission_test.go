package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cargoledger/backend/internal/infrastructure/auth"
)

func newPermissionTestRouter(perms []string, required ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if perms != nil {
		router.Use(func(c *gin.Context) {
			c.Set(JWTClaimsKey, &auth.Claims{
				UserID:      "11111111-1111-1111-1111-111111111111",
				Username:    "amira",
				Permissions: perms,
			})
			c.Next()
		})
	}
	router.POST("/payments", RequireAnyPermission(required...), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func TestRequireAnyPermission(t *testing.T) {
	t.Run("allows a user holding the permission", func(t *testing.T) {
		router := newPermissionTestRouter([]string{"payment:read", "payment:write"}, "payment:write")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("allows when any of several permissions matches", func(t *testing.T) {
		router := newPermissionTestRouter([]string{"payment:read"}, "user:manage", "payment:read")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("denies a user lacking the permission", func(t *testing.T) {
		router := newPermissionTestRouter([]string{"shipment:read"}, "payment:write")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
	})

	t.Run("denies when no claims are present", func(t *testing.T) {
		router := newPermissionTestRouter(nil, "payment:write")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHasPermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.False(t, HasPermission(c, "report:read"))

	c.Set(JWTClaimsKey, &auth.Claims{Permissions: []string{"report:read"}})
	assert.True(t, HasPermission(c, "report:read"))
	assert.False(t, HasPermission(c, "user:manage"))
}
