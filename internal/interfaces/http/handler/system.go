package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler exposes liveness and build information
type SystemHandler struct {
	BaseHandler
	appName     string
	version     string
	environment string
	startedAt   time.Time
}

// NewSystemHandler creates a system handler
func NewSystemHandler(appName, version, environment string) *SystemHandler {
	return &SystemHandler{
		appName:     appName,
		version:     version,
		environment: environment,
		startedAt:   time.Now(),
	}
}

// Ping handles GET /system/ping
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{
		"message": "pong",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Info handles GET /system/info
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, gin.H{
		"name":        h.appName,
		"version":     h.version,
		"environment": h.environment,
		"go_version":  runtime.Version(),
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
	})
}
