package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/access"
	"github.com/platformbuilds/sentra-core/internal/api/middleware"
	"github.com/platformbuilds/sentra-core/internal/config"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
)

// SessionHandler drives session activation and permission checks.
type SessionHandler struct {
	access    *access.Service
	jwtConfig config.JWTConfig
	logger    logging.Logger
}

func NewSessionHandler(svc *access.Service, jwtConfig config.JWTConfig, log logging.Logger) *SessionHandler {
	return &SessionHandler{
		access:    svc,
		jwtConfig: jwtConfig,
		logger:    log,
	}
}

// POST /api/v1/sessions
// Body: { "userId": "...", "roles": ["..."], "isGroup": false }
// Activates the requested roles (all assigned roles when none are named) and
// returns the session plus a bearer token for subsequent calls.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		UserID  string   `json:"userId"`
		Roles   []string `json:"roles"`
		IsGroup bool     `json:"isGroup"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		respondBadRequest(c, "userId is required")
		return
	}

	tenant := tenantID(c)
	session, err := h.access.CreateSession(c.Request.Context(), tenant, req.UserID, req.Roles, req.IsGroup)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.IssueToken(h.jwtConfig, session.ID, session.TenantID, session.UserID)
	if err != nil {
		h.logger.Error("Failed to sign session token", "sessionID", session.ID, "error", err)
		respondError(c, err)
		return
	}

	respondCreated(c, gin.H{"session": session, "token": token})
}

// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.access.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, session)
}

// DELETE /api/v1/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.access.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

// POST /api/v1/check
// Body: { "object": "...", "operation": "...", "objectId": "..." }
// Evaluates the calling session's access to the named permission. A missing
// permission definition is an error, not a deny.
func (h *SessionHandler) CheckPermission(c *gin.Context) {
	var req struct {
		Object    string `json:"object"`
		Operation string `json:"operation"`
		ObjectID  string `json:"objectId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Object == "" || req.Operation == "" {
		respondBadRequest(c, "object and operation are required")
		return
	}

	value, exists := c.Get("session")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Authentication required"})
		return
	}
	session, ok := value.(*models.Session)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Authentication required"})
		return
	}

	granted, err := h.access.CheckPermission(c.Request.Context(), session, req.Object, req.Operation, req.ObjectID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"granted":   granted,
		"object":    models.Normalize(req.Object),
		"operation": models.Normalize(req.Operation),
	})
}
