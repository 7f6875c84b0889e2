package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
)

// OrgUnitHandler exposes org unit administration for the USER and PERM trees.
type OrgUnitHandler struct {
	admin  *admin.Service
	logger logging.Logger
}

func NewOrgUnitHandler(svc *admin.Service, log logging.Logger) *OrgUnitHandler {
	return &OrgUnitHandler{admin: svc, logger: log}
}

// POST /api/v1/org-units
func (h *OrgUnitHandler) CreateOrgUnit(c *gin.Context) {
	var ou models.OrgUnit
	if err := c.ShouldBindJSON(&ou); err != nil {
		respondBadRequest(c, "invalid org unit payload")
		return
	}
	ou.TenantID = tenantID(c)

	created, err := h.admin.CreateOrgUnit(c.Request.Context(), &ou)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

// GET /api/v1/org-units/:type
func (h *OrgUnitHandler) ListOrgUnits(c *gin.Context) {
	units, err := h.admin.ListOrgUnits(c.Request.Context(), tenantID(c), c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"orgUnits": units, "total": len(units)})
}

// GET /api/v1/org-units/:type/:name
func (h *OrgUnitHandler) GetOrgUnit(c *gin.Context) {
	ou, err := h.admin.GetOrgUnit(c.Request.Context(), tenantID(c), c.Param("type"), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, ou)
}

// PUT /api/v1/org-units/:type/:name
func (h *OrgUnitHandler) UpdateOrgUnit(c *gin.Context) {
	var ou models.OrgUnit
	if err := c.ShouldBindJSON(&ou); err != nil {
		respondBadRequest(c, "invalid org unit payload")
		return
	}
	ou.TenantID = tenantID(c)
	ou.Type = c.Param("type")
	ou.Name = c.Param("name")

	updated, err := h.admin.UpdateOrgUnit(c.Request.Context(), &ou)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// DELETE /api/v1/org-units/:type/:name
func (h *OrgUnitHandler) DeleteOrgUnit(c *gin.Context) {
	err := h.admin.DeleteOrgUnit(c.Request.Context(), tenantID(c), c.Param("type"), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

// PUT /api/v1/org-units/:type/:name/parents/:parent
func (h *OrgUnitHandler) AddInheritance(c *gin.Context) {
	err := h.admin.AddOrgUnitInheritance(c.Request.Context(), tenantID(c),
		c.Param("type"), c.Param("name"), c.Param("parent"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"linked": true})
}

// DELETE /api/v1/org-units/:type/:name/parents/:parent
func (h *OrgUnitHandler) DeleteInheritance(c *gin.Context) {
	err := h.admin.DeleteOrgUnitInheritance(c.Request.Context(), tenantID(c),
		c.Param("type"), c.Param("name"), c.Param("parent"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"unlinked": true})
}
