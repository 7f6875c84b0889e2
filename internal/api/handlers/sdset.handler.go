package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
)

// SDSetHandler exposes separation-of-duty set administration.
type SDSetHandler struct {
	admin  *admin.Service
	logger logging.Logger
}

func NewSDSetHandler(svc *admin.Service, log logging.Logger) *SDSetHandler {
	return &SDSetHandler{admin: svc, logger: log}
}

// POST /api/v1/sd-sets
func (h *SDSetHandler) CreateSDSet(c *gin.Context) {
	var set models.SDSet
	if err := c.ShouldBindJSON(&set); err != nil {
		respondBadRequest(c, "invalid SD set payload")
		return
	}
	set.TenantID = tenantID(c)

	created, err := h.admin.CreateSDSet(c.Request.Context(), &set)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, created)
}

// GET /api/v1/sd-sets?type=STATIC|DYNAMIC
func (h *SDSetHandler) ListSDSets(c *gin.Context) {
	sets, err := h.admin.ListSDSets(c.Request.Context(), tenantID(c), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"sdSets": sets, "total": len(sets)})
}

// GET /api/v1/sd-sets/:name
func (h *SDSetHandler) GetSDSet(c *gin.Context) {
	set, err := h.admin.GetSDSet(c.Request.Context(), tenantID(c), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, set)
}

// PUT /api/v1/sd-sets/:name
// Membership is not updatable here; use the member endpoints.
func (h *SDSetHandler) UpdateSDSet(c *gin.Context) {
	var set models.SDSet
	if err := c.ShouldBindJSON(&set); err != nil {
		respondBadRequest(c, "invalid SD set payload")
		return
	}
	set.TenantID = tenantID(c)
	set.Name = c.Param("name")

	updated, err := h.admin.UpdateSDSet(c.Request.Context(), &set)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// DELETE /api/v1/sd-sets/:name
func (h *SDSetHandler) DeleteSDSet(c *gin.Context) {
	if err := h.admin.DeleteSDSet(c.Request.Context(), tenantID(c), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

// PUT /api/v1/sd-sets/:name/members/:role
func (h *SDSetHandler) AddMember(c *gin.Context) {
	set, err := h.admin.AddSDSetMember(c.Request.Context(), tenantID(c), c.Param("name"), c.Param("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, set)
}

// DELETE /api/v1/sd-sets/:name/members/:role
func (h *SDSetHandler) RemoveMember(c *gin.Context) {
	set, err := h.admin.RemoveSDSetMember(c.Request.Context(), tenantID(c), c.Param("name"), c.Param("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, set)
}
