package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/store"
	"github.com/platformbuilds/sentra-core/pkg/cache"
)

// HealthHandler reports liveness and readiness of the engine and its
// dependencies.
type HealthHandler struct {
	store  store.Directory
	cache  cache.ValkeyCache
	logger logging.Logger
}

func NewHealthHandler(dir store.Directory, valkeyCache cache.ValkeyCache, log logging.Logger) *HealthHandler {
	return &HealthHandler{store: dir, cache: valkeyCache, logger: log}
}

// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "sentra-core",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /ready
// Readiness degrades to 503 when the directory backend is unreachable. A
// degraded cache is reported but does not fail readiness; the engine falls
// back to direct reads.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	components := gin.H{}
	ready := true

	if _, err := h.store.ListRoles(c.Request.Context(), ""); err != nil {
		components["store"] = gin.H{"status": "unhealthy", "error": err.Error()}
		ready = false
	} else {
		components["store"] = gin.H{"status": "healthy"}
	}

	if err := h.cache.HealthCheck(c.Request.Context()); err != nil {
		components["cache"] = gin.H{"status": "degraded", "error": err.Error()}
	} else {
		components["cache"] = gin.H{"status": "healthy"}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "components": components})
}
