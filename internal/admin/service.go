// Package admin is the administrative operations layer. It orchestrates
// entity CRUD, hierarchy graph mutation and separation-of-duty bookkeeping
// so that cross-entity invariants hold: no dangling occupants, no orphaned
// permission grants, no hierarchy node deleted while it still has children.
package admin

import (
	"fmt"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/sod"
	"github.com/platformbuilds/sentra-core/internal/store"
)

// Policy violation codes.
const (
	CodeDeleteHasChild = "HIER_DEL_FAILED_HAS_CHILD"
)

// ValidationError reports malformed or inconsistent input. It is always
// raised before any mutating store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// PolicyError reports a business-rule violation, with enough context for the
// caller to self-correct.
type PolicyError struct {
	Code   string
	Entity string
	Name   string
	Detail string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", e.Code, e.Entity, e.Name, e.Detail)
}

// Service carries the collaborators every administrative operation needs.
type Service struct {
	store  store.Directory
	reg    *repo.Registry
	sod    *sod.Evaluator
	audit  audit.Sink
	logger logging.Logger
}

func NewService(dir store.Directory, reg *repo.Registry, eval *sod.Evaluator,
	sink audit.Sink, log logging.Logger) *Service {
	return &Service{
		store:  dir,
		reg:    reg,
		sod:    eval,
		audit:  sink,
		logger: log,
	}
}
