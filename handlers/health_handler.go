package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is a named dependency probe.
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// HealthHandler reports liveness and dependency health.
type HealthHandler struct {
	version string
	checks  map[string]HealthChecker
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version: version,
		checks:  make(map[string]HealthChecker),
	}
}

// AddCheck registers a dependency probe under a name.
func (h *HealthHandler) AddCheck(name string, check HealthChecker) {
	h.checks[name] = check
}

// LivenessHandler is the cheap always-up probe.
func (h *HealthHandler) LivenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// ReadinessHandler probes the registered dependencies.
func (h *HealthHandler) ReadinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := check.Healthcheck(ctx); err != nil {
			results[name] = gin.H{"status": "down", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			results[name] = gin.H{"status": "up"}
		}
	}

	c.JSON(status, gin.H{
		"status":  map[bool]string{true: "ready", false: "degraded"}[status == http.StatusOK],
		"version": h.version,
		"checks":  results,
	})
}
