package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
)

// UserHandler exposes user lifecycle administration. Role membership is
// managed through the role assignment endpoints, not here.
type UserHandler struct {
	admin  *admin.Service
	logger logging.Logger
}

func NewUserHandler(svc *admin.Service, log logging.Logger) *UserHandler {
	return &UserHandler{admin: svc, logger: log}
}

// POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var user models.User
	if err := c.ShouldBindJSON(&user); err != nil {
		respondBadRequest(c, "invalid user payload")
		return
	}
	user.TenantID = tenantID(c)

	created, err := h.admin.CreateUser(c.Request.Context(), &user)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"users": users, "total": len(users)})
}

// GET /api/v1/users/:userId
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.admin.GetUser(c.Request.Context(), tenantID(c), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

// PUT /api/v1/users/:userId
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var user models.User
	if err := c.ShouldBindJSON(&user); err != nil {
		respondBadRequest(c, "invalid user payload")
		return
	}
	user.TenantID = tenantID(c)
	user.UserID = c.Param("userId")

	updated, err := h.admin.UpdateUser(c.Request.Context(), &user)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// DELETE /api/v1/users/:userId
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.admin.DeleteUser(c.Request.Context(), tenantID(c), c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}
