// Package sod evaluates separation-of-duty constraints. Static sets guard
// assignment time: a user may hold fewer than cardinality roles from any one
// set. Dynamic sets guard activation time: a session may activate fewer than
// cardinality roles from any one set.
package sod

import (
	"context"
	"fmt"
	"sync"

	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/store"
)

// Violation reports a static constraint stopping an assignment.
type Violation struct {
	Set         string
	Role        string
	Cardinality int
}

func (v *Violation) Error() string {
	return fmt.Sprintf("SSD violation: assigning %s would reach cardinality %d of set %s", v.Role, v.Cardinality, v.Set)
}

// Evaluator resolves the SD sets relevant to a role through the role's
// inheritance closure and applies the cardinality rules. Lookups are cached
// per (tenant, type, role) until an administrative write invalidates them.
type Evaluator struct {
	store  store.Directory
	reg    *repo.Registry
	logger logging.Logger

	mu   sync.RWMutex
	sets map[string][]*models.SDSet
}

func NewEvaluator(dir store.Directory, reg *repo.Registry, log logging.Logger) *Evaluator {
	return &Evaluator{
		store:  dir,
		reg:    reg,
		logger: log,
		sets:   make(map[string][]*models.SDSet),
	}
}

func cacheKey(tenantID, typ, role string) string {
	return tenantID + ":" + typ + ":" + role
}

// setsForRole returns the SD sets of the given type that name the role as a
// direct member.
func (e *Evaluator) setsForRole(ctx context.Context, tenantID, typ, role string) ([]*models.SDSet, error) {
	key := cacheKey(tenantID, typ, role)

	e.mu.RLock()
	sets, ok := e.sets[key]
	e.mu.RUnlock()
	if ok {
		return sets, nil
	}

	sets, err := e.store.SearchSDSetsByMember(ctx, tenantID, typ, role)
	if err != nil {
		return nil, fmt.Errorf("search %s sets for %s: %w", typ, role, err)
	}
	e.mu.Lock()
	e.sets[key] = sets
	e.mu.Unlock()
	return sets, nil
}

// setsForClosure unions the sets touching any role in the closure, keyed by
// set name so each set counts once.
func (e *Evaluator) setsForClosure(ctx context.Context, tenantID, typ string, closure []string) (map[string]*models.SDSet, error) {
	out := make(map[string]*models.SDSet)
	for _, role := range closure {
		sets, err := e.setsForRole(ctx, tenantID, typ, role)
		if err != nil {
			return nil, err
		}
		for _, set := range sets {
			out[set.Name] = set
		}
	}
	return out, nil
}

// Invalidate drops every cached lookup for the tenant. Called after SD set
// writes and hierarchy changes, both of which can change which sets apply.
func (e *Evaluator) Invalidate(tenantID string) {
	prefix := tenantID + ":"
	e.mu.Lock()
	for key := range e.sets {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(e.sets, key)
		}
	}
	e.mu.Unlock()
}

// ValidateAssign checks whether assigning newRole to the user would violate
// any static set. Matching runs over inheritance closures on both sides: the
// roles the user already holds (expanded) and the candidate role (expanded).
func (e *Evaluator) ValidateAssign(ctx context.Context, user *models.User, newRole string) error {
	newRole = models.Normalize(newRole)
	candidateClosure, err := e.reg.InheritedRoles(ctx, user.TenantID, models.HierarchyRole, []string{newRole})
	if err != nil {
		return err
	}

	assigned := make([]string, 0, len(user.Roles))
	for _, ur := range user.Roles {
		assigned = append(assigned, ur.Name)
	}
	assignedClosure, err := e.reg.InheritedRoles(ctx, user.TenantID, models.HierarchyRole, assigned)
	if err != nil {
		return err
	}

	sets, err := e.setsForClosure(ctx, user.TenantID, models.SDSetStatic, candidateClosure)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return nil
	}

	held := make(map[string]bool, len(assignedClosure)+len(candidateClosure))
	for _, r := range assignedClosure {
		held[r] = true
	}
	for _, r := range candidateClosure {
		held[r] = true
	}

	for _, set := range sets {
		matched := 0
		for _, member := range set.MemberNames() {
			if held[member] {
				matched++
			}
		}
		if matched >= effectiveCardinality(set) {
			monitoring.RecordSoDViolation("static")
			e.logger.Warn("Static separation-of-duty violation",
				"tenant", user.TenantID, "user", user.UserID, "role", newRole, "set", set.Name)
			return &Violation{Set: set.Name, Role: newRole, Cardinality: effectiveCardinality(set)}
		}
	}
	return nil
}

// FilterActivation applies dynamic sets to the requested activation list.
// Roles are considered in request order and the first requested wins: a role
// whose activation would reach a set's cardinality is dropped with a session
// warning rather than failing the whole activation.
func (e *Evaluator) FilterActivation(ctx context.Context, tenantID string, requested []models.UserRole) ([]models.UserRole, []models.SessionWarning, error) {
	active := make([]models.UserRole, 0, len(requested))
	var warnings []models.SessionWarning

	// running member count per dynamic set across already-activated roles
	counts := make(map[string]int)
	cards := make(map[string]int)

	for _, candidate := range requested {
		closure, err := e.reg.InheritedRoles(ctx, tenantID, models.HierarchyRole, []string{candidate.Name})
		if err != nil {
			return nil, nil, err
		}
		sets, err := e.setsForClosure(ctx, tenantID, models.SDSetDynamic, closure)
		if err != nil {
			return nil, nil, err
		}

		inClosure := make(map[string]bool, len(closure))
		for _, r := range closure {
			inClosure[r] = true
		}

		blocked := ""
		for _, set := range sets {
			contributes := 0
			for _, member := range set.MemberNames() {
				if inClosure[member] {
					contributes++
				}
			}
			if contributes == 0 {
				continue
			}
			cards[set.Name] = effectiveCardinality(set)
			if counts[set.Name]+contributes >= cards[set.Name] {
				blocked = set.Name
				break
			}
		}

		if blocked != "" {
			monitoring.RecordSoDViolation("dynamic")
			warnings = append(warnings, models.SessionWarning{
				Name: candidate.Name,
				Type: "DSD",
				Msg:  fmt.Sprintf("role %s not activated: dynamic separation-of-duty set %s", candidate.Name, blocked),
			})
			continue
		}

		for _, set := range sets {
			for _, member := range set.MemberNames() {
				if inClosure[member] {
					counts[set.Name]++
				}
			}
		}
		active = append(active, candidate)
	}

	return active, warnings, nil
}

// Cardinality below 2 cannot express a usable constraint, so sets written
// without one behave as mutual exclusion.
func effectiveCardinality(set *models.SDSet) int {
	if set.Cardinality < 2 {
		return 2
	}
	return set.Cardinality
}
