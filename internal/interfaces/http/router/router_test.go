package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRouterSetup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("registers domain routes under the version prefix", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine, WithAPIVersion("v1"))

		shipments := NewDomainGroup("shipments", "/shipments")
		shipments.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
		r.Register(shipments).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/shipments", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("router middleware guards the whole API group", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine)
		r.Use(func(c *gin.Context) {
			c.AbortWithStatus(http.StatusUnauthorized)
		})

		payments := NewDomainGroup("payments", "/payments")
		payments.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
		r.Register(payments).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("group middleware applies to subgroups", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine)

		reports := NewDomainGroup("reports", "/reports")
		reports.Use(func(c *gin.Context) {
			c.Header("X-Guard", "seen")
			c.Next()
		})
		suppliers := reports.Group("suppliers", "/suppliers")
		suppliers.GET("/balances", func(c *gin.Context) { c.Status(http.StatusOK) })
		r.Register(reports).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/suppliers/balances", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "seen", w.Header().Get("X-Guard"))
	})
}
