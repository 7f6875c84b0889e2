package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
)

// RoleHandler exposes role and admin-role administration.
type RoleHandler struct {
	admin  *admin.Service
	logger logging.Logger
}

func NewRoleHandler(svc *admin.Service, log logging.Logger) *RoleHandler {
	return &RoleHandler{admin: svc, logger: log}
}

// POST /api/v1/roles
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var role models.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		respondBadRequest(c, "invalid role payload")
		return
	}
	role.TenantID = tenantID(c)

	created, err := h.admin.CreateRole(c.Request.Context(), &role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

// GET /api/v1/roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.admin.ListRoles(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"roles": roles, "total": len(roles)})
}

// GET /api/v1/roles/:name
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.admin.GetRole(c.Request.Context(), tenantID(c), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, role)
}

// PUT /api/v1/roles/:name
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var role models.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		respondBadRequest(c, "invalid role payload")
		return
	}
	role.TenantID = tenantID(c)
	role.Name = c.Param("name")

	updated, err := h.admin.UpdateRole(c.Request.Context(), &role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// DELETE /api/v1/roles/:name
// Cascade delete: deassigns every occupant and strips permission grants, but
// is refused while the role still has hierarchy children.
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.admin.DeleteRole(c.Request.Context(), tenantID(c), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

// POST /api/v1/roles/:name/users/:userId
// Body (optional): { "constraint": { ... } }
func (h *RoleHandler) AssignUser(c *gin.Context) {
	var req struct {
		Constraint *models.Constraint `json:"constraint"`
	}
	// Empty body means no explicit constraint.
	_ = c.ShouldBindJSON(&req)

	err := h.admin.AssignUser(c.Request.Context(), tenantID(c), c.Param("userId"), c.Param("name"), req.Constraint)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"assigned": true})
}

// DELETE /api/v1/roles/:name/users/:userId
func (h *RoleHandler) DeassignUser(c *gin.Context) {
	err := h.admin.DeassignUser(c.Request.Context(), tenantID(c), c.Param("userId"), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deassigned": true})
}

// PUT /api/v1/roles/:name/parents/:parent
func (h *RoleHandler) AddInheritance(c *gin.Context) {
	err := h.admin.AddRoleInheritance(c.Request.Context(), tenantID(c), c.Param("name"), c.Param("parent"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"linked": true})
}

// DELETE /api/v1/roles/:name/parents/:parent
func (h *RoleHandler) DeleteInheritance(c *gin.Context) {
	err := h.admin.DeleteRoleInheritance(c.Request.Context(), tenantID(c), c.Param("name"), c.Param("parent"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"unlinked": true})
}

// POST /api/v1/roles/:name/descendants
// Creates a new role already linked as a child of :name.
func (h *RoleHandler) AddDescendant(c *gin.Context) {
	var role models.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		respondBadRequest(c, "invalid role payload")
		return
	}
	role.TenantID = tenantID(c)

	created, err := h.admin.AddRoleDescendant(c.Request.Context(), &role, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

// POST /api/v1/roles/:name/ascendants
// Creates a new role already linked as a parent of :name.
func (h *RoleHandler) AddAscendant(c *gin.Context) {
	var role models.Role
	if err := c.ShouldBindJSON(&role); err != nil {
		respondBadRequest(c, "invalid role payload")
		return
	}
	role.TenantID = tenantID(c)

	created, err := h.admin.AddRoleAscendant(c.Request.Context(), &role, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

// POST /api/v1/admin-roles
func (h *RoleHandler) CreateAdminRole(c *gin.Context) {
	var role models.AdminRole
	if err := c.ShouldBindJSON(&role); err != nil {
		respondBadRequest(c, "invalid admin role payload")
		return
	}
	role.TenantID = tenantID(c)

	created, err := h.admin.CreateAdminRole(c.Request.Context(), &role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

// GET /api/v1/admin-roles
func (h *RoleHandler) ListAdminRoles(c *gin.Context) {
	roles, err := h.admin.ListAdminRoles(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"adminRoles": roles, "total": len(roles)})
}

// GET /api/v1/admin-roles/:name
func (h *RoleHandler) GetAdminRole(c *gin.Context) {
	role, err := h.admin.GetAdminRole(c.Request.Context(), tenantID(c), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, role)
}

// PUT /api/v1/admin-roles/:name
func (h *RoleHandler) UpdateAdminRole(c *gin.Context) {
	var role models.AdminRole
	if err := c.ShouldBindJSON(&role); err != nil {
		respondBadRequest(c, "invalid admin role payload")
		return
	}
	role.TenantID = tenantID(c)
	role.Name = c.Param("name")

	updated, err := h.admin.UpdateAdminRole(c.Request.Context(), &role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// DELETE /api/v1/admin-roles/:name
func (h *RoleHandler) DeleteAdminRole(c *gin.Context) {
	if err := h.admin.DeleteAdminRole(c.Request.Context(), tenantID(c), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

// POST /api/v1/admin-roles/:name/users/:userId
func (h *RoleHandler) AssignAdminRole(c *gin.Context) {
	var req struct {
		Constraint *models.Constraint `json:"constraint"`
	}
	_ = c.ShouldBindJSON(&req)

	err := h.admin.AssignAdminRole(c.Request.Context(), tenantID(c), c.Param("userId"), c.Param("name"), req.Constraint)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"assigned": true})
}

// DELETE /api/v1/admin-roles/:name/users/:userId
func (h *RoleHandler) DeassignAdminRole(c *gin.Context) {
	err := h.admin.DeassignAdminRole(c.Request.Context(), tenantID(c), c.Param("userId"), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deassigned": true})
}

// PUT /api/v1/admin-roles/:name/parents/:parent
func (h *RoleHandler) AddAdminInheritance(c *gin.Context) {
	err := h.admin.AddAdminRoleInheritance(c.Request.Context(), tenantID(c), c.Param("name"), c.Param("parent"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"linked": true})
}

// DELETE /api/v1/admin-roles/:name/parents/:parent
func (h *RoleHandler) DeleteAdminInheritance(c *gin.Context) {
	err := h.admin.DeleteAdminRoleInheritance(c.Request.Context(), tenantID(c), c.Param("name"), c.Param("parent"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"unlinked": true})
}
