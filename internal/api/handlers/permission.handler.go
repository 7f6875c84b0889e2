package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
)

// PermissionHandler exposes permission object and permission administration.
type PermissionHandler struct {
	admin  *admin.Service
	logger logging.Logger
}

func NewPermissionHandler(svc *admin.Service, log logging.Logger) *PermissionHandler {
	return &PermissionHandler{admin: svc, logger: log}
}

// POST /api/v1/perm-objs
func (h *PermissionHandler) CreatePermObj(c *gin.Context) {
	var obj models.PermObj
	if err := c.ShouldBindJSON(&obj); err != nil {
		respondBadRequest(c, "invalid permission object payload")
		return
	}
	obj.TenantID = tenantID(c)

	created, err := h.admin.CreatePermObj(c.Request.Context(), &obj)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

// GET /api/v1/perm-objs/:name
func (h *PermissionHandler) GetPermObj(c *gin.Context) {
	obj, err := h.admin.GetPermObj(c.Request.Context(), tenantID(c), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, obj)
}

// PUT /api/v1/perm-objs/:name
func (h *PermissionHandler) UpdatePermObj(c *gin.Context) {
	var obj models.PermObj
	if err := c.ShouldBindJSON(&obj); err != nil {
		respondBadRequest(c, "invalid permission object payload")
		return
	}
	obj.TenantID = tenantID(c)
	obj.Name = c.Param("name")

	updated, err := h.admin.UpdatePermObj(c.Request.Context(), &obj)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// DELETE /api/v1/perm-objs/:name
// Deletes the object and every permission defined on it.
func (h *PermissionHandler) DeletePermObj(c *gin.Context) {
	if err := h.admin.DeletePermObj(c.Request.Context(), tenantID(c), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

// POST /api/v1/permissions
func (h *PermissionHandler) CreatePermission(c *gin.Context) {
	var perm models.Permission
	if err := c.ShouldBindJSON(&perm); err != nil {
		respondBadRequest(c, "invalid permission payload")
		return
	}
	perm.TenantID = tenantID(c)

	created, err := h.admin.CreatePermission(c.Request.Context(), &perm)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

// GET /api/v1/permissions/:obj/:op?objectId=...
func (h *PermissionHandler) GetPermission(c *gin.Context) {
	perm, err := h.admin.GetPermission(c.Request.Context(), tenantID(c),
		c.Param("obj"), c.Param("op"), c.Query("objectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, perm)
}

// DELETE /api/v1/permissions/:obj/:op?objectId=...
func (h *PermissionHandler) DeletePermission(c *gin.Context) {
	err := h.admin.DeletePermission(c.Request.Context(), tenantID(c),
		c.Param("obj"), c.Param("op"), c.Query("objectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

// PUT /api/v1/permissions/:obj/:op/roles/:role?objectId=...
// For administrative permissions the grant target must be an admin role.
func (h *PermissionHandler) GrantToRole(c *gin.Context) {
	err := h.admin.GrantToRole(c.Request.Context(), tenantID(c),
		c.Param("obj"), c.Param("op"), c.Query("objectId"), c.Param("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"granted": true})
}

// DELETE /api/v1/permissions/:obj/:op/roles/:role?objectId=...
func (h *PermissionHandler) RevokeFromRole(c *gin.Context) {
	err := h.admin.RevokeFromRole(c.Request.Context(), tenantID(c),
		c.Param("obj"), c.Param("op"), c.Query("objectId"), c.Param("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"revoked": true})
}

// PUT /api/v1/permissions/:obj/:op/users/:userId?objectId=...
func (h *PermissionHandler) GrantToUser(c *gin.Context) {
	err := h.admin.GrantToUser(c.Request.Context(), tenantID(c),
		c.Param("obj"), c.Param("op"), c.Query("objectId"), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"granted": true})
}

// DELETE /api/v1/permissions/:obj/:op/users/:userId?objectId=...
func (h *PermissionHandler) RevokeFromUser(c *gin.Context) {
	err := h.admin.RevokeFromUser(c.Request.Context(), tenantID(c),
		c.Param("obj"), c.Param("op"), c.Query("objectId"), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"revoked": true})
}
