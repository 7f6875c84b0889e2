package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/access"
	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/hier"
	"github.com/platformbuilds/sentra-core/internal/sod"
	"github.com/platformbuilds/sentra-core/internal/store"
)

// tenantID resolves the tenant for a request. Authenticated requests carry it
// in the context; unauthenticated admin tooling may pass the header directly.
func tenantID(c *gin.Context) string {
	if id := c.GetString("tenant_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Tenant-ID")
}

// respondError translates the policy engine error taxonomy into HTTP status
// codes with a uniform error envelope.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"status": "error", "error": err.Error()}

	var (
		validationErr *admin.ValidationError
		policyErr     *admin.PolicyError
		hierErr       *hier.ValidationError
		sodViolation  *sod.Violation
		notFoundErr   *store.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &policyErr):
		status = http.StatusConflict
		body["code"] = policyErr.Code
	case errors.As(err, &sodViolation):
		status = http.StatusConflict
		body["code"] = "SSD_VIOLATION"
		body["set"] = sodViolation.Set
	case errors.As(err, &hierErr):
		body["code"] = hierErr.Code
		switch hierErr.Code {
		case hier.CodeRelationshipExists, hier.CodeRelationshipCyclic:
			status = http.StatusConflict
		default:
			status = http.StatusBadRequest
		}
	case errors.Is(err, access.ErrPermissionNotFound):
		status = http.StatusNotFound
	case errors.As(err, &notFoundErr), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		status = http.StatusConflict
	}

	c.JSON(status, body)
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": data})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": msg})
}
