// Package access implements the runtime side of the engine: session
// activation with temporal and dynamic separation-of-duty filtering, and the
// permission authorization decision procedure.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/sod"
	"github.com/platformbuilds/sentra-core/internal/store"
	"github.com/platformbuilds/sentra-core/pkg/cache"
)

// ErrPermissionNotFound distinguishes "no such permission is defined" from a
// deny. Callers must treat it as a hard error, never as access denied.
var ErrPermissionNotFound = errors.New("permission not defined")

type Service struct {
	store   store.Directory
	reg     *repo.Registry
	sod     *sod.Evaluator
	session cache.ValkeyCache
	audit   audit.Sink
	logger  logging.Logger
}

func NewService(dir store.Directory, reg *repo.Registry, eval *sod.Evaluator,
	sessions cache.ValkeyCache, sink audit.Sink, log logging.Logger) *Service {
	return &Service{
		store:   dir,
		reg:     reg,
		sod:     eval,
		session: sessions,
		audit:   sink,
		logger:  log,
	}
}

// CreateSession authenticates nothing: the caller has already established the
// identity. It loads the user, filters the requested roles through temporal
// constraints and dynamic separation-of-duty sets, activates every admin
// role that passes its own temporal check, and stores the session.
//
// requested names the roles to activate; empty means "all assigned". A role
// dropped by a constraint is reported as a session warning, never an error.
func (s *Service) CreateSession(ctx context.Context, tenantID, userID string, requested []string, isGroup bool) (*models.Session, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("create_session", "session", time.Since(start), err == nil)
	}()

	user, err := s.store.GetUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	candidates, warnings := selectCandidates(user, requested, now)

	active, dsdWarnings, ferr := s.sod.FilterActivation(ctx, tenantID, candidates)
	if ferr != nil {
		err = ferr
		return nil, err
	}
	warnings = append(warnings, dsdWarnings...)

	session := &models.Session{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		UserID:    user.UserID,
		IsGroup:   isGroup,
		Roles:     active,
		Warnings:  warnings,
		CreatedAt: now,
	}
	for _, ar := range user.AdminRoles {
		if !constraintAllows(ar.Constraint, now) {
			session.Warnings = append(session.Warnings, models.SessionWarning{
				Name: ar.Name,
				Type: "TEMPORAL",
				Msg:  fmt.Sprintf("admin role %s not activated: outside temporal constraint", ar.Name),
			})
			continue
		}
		session.AdminRoles = append(session.AdminRoles, ar)
	}

	if serr := s.session.SetSession(ctx, session); serr != nil {
		err = fmt.Errorf("store session: %w", serr)
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID,
		Actor:    user.UserID,
		Action:   "session.create",
		Target:   session.ID,
		Granted:  true,
		Detail:   fmt.Sprintf("activated %d of %d roles", len(active), len(candidates)+len(warnings)),
	})
	return session, nil
}

// selectCandidates picks the assignments to activate, dropping any outside
// their temporal constraint with a warning.
func selectCandidates(user *models.User, requested []string, now time.Time) ([]models.UserRole, []models.SessionWarning) {
	byName := make(map[string]models.UserRole, len(user.Roles))
	order := make([]string, 0, len(user.Roles))
	for _, ur := range user.Roles {
		name := models.Normalize(ur.Name)
		byName[name] = ur
		order = append(order, name)
	}

	names := order
	var warnings []models.SessionWarning
	if len(requested) > 0 {
		names = nil
		for _, r := range requested {
			name := models.Normalize(r)
			if _, ok := byName[name]; !ok {
				warnings = append(warnings, models.SessionWarning{
					Name: name,
					Type: "NOT_ASSIGNED",
					Msg:  fmt.Sprintf("role %s not activated: not assigned to user", name),
				})
				continue
			}
			names = append(names, name)
		}
	}

	candidates := make([]models.UserRole, 0, len(names))
	for _, name := range names {
		ur := byName[name]
		if !constraintAllows(ur.Constraint, now) {
			warnings = append(warnings, models.SessionWarning{
				Name: name,
				Type: "TEMPORAL",
				Msg:  fmt.Sprintf("role %s not activated: outside temporal constraint", name),
			})
			continue
		}
		ur.Name = name
		candidates = append(candidates, ur)
	}
	return candidates, warnings
}

func constraintAllows(c models.Constraint, now time.Time) bool {
	return c.IsEmpty() || c.ValidAt(now)
}

// GetSession resolves a stored session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.session.GetSession(ctx, sessionID)
}

// DeleteSession drops the stored session.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	return s.session.InvalidateSession(ctx, sessionID)
}

// CheckPermission runs the authorization decision procedure:
//
//  1. the permission record must exist; its absence is a hard error,
//  2. a direct user grant authorizes immediately unless this is a group
//     session,
//  3. otherwise the session's activated roles (RBAC or ARBAC, selected by
//     the permission's admin flag) are expanded through inheritance and
//     intersected with the permission's granted roles.
//
// A false return is a deny, not an error. Every outcome is audited.
func (s *Service) CheckPermission(ctx context.Context, session *models.Session, objName, opName, objID string) (bool, error) {
	start := time.Now()
	var err error
	granted := false
	kind := "rbac"
	defer func() {
		monitoring.RecordAPIOperation("check_permission", "permission", time.Since(start), err == nil)
		if err == nil {
			monitoring.RecordCheckDecision(kind, granted)
		}
	}()

	perm, gerr := s.store.GetPermission(ctx, session.TenantID, objName, opName, objID)
	if gerr != nil {
		if errors.Is(gerr, store.ErrNotFound) {
			err = fmt.Errorf("%w: %s.%s", ErrPermissionNotFound, models.Normalize(objName), models.Normalize(opName))
			return false, err
		}
		err = gerr
		return false, err
	}
	if perm.IsAdmin {
		kind = "arbac"
	}

	granted, err = s.decide(ctx, session, perm)
	if err != nil {
		return false, err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: session.TenantID,
		Actor:    session.UserID,
		Action:   decisionAction(granted),
		Entity:   "permission",
		Target:   perm.Ident(),
		Granted:  granted,
	})
	return granted, nil
}

func (s *Service) decide(ctx context.Context, session *models.Session, perm *models.Permission) (bool, error) {
	// direct user grant short-circuits, but never for group sessions
	if !session.IsGroup {
		for _, u := range perm.Users {
			if models.Normalize(u) == models.Normalize(session.UserID) {
				return true, nil
			}
		}
	}

	activated := session.ActiveRoleNames()
	hierarchy := models.HierarchyRole
	if perm.IsAdmin {
		activated = session.ActiveAdminRoleNames()
		hierarchy = models.HierarchyAdminRole
	}
	if len(activated) == 0 {
		return false, nil
	}

	closure, err := s.reg.InheritedRoles(ctx, session.TenantID, hierarchy, activated)
	if err != nil {
		return false, err
	}

	authorized := make(map[string]bool, len(closure))
	for _, r := range closure {
		authorized[r] = true
	}
	for _, r := range perm.Roles {
		if authorized[models.Normalize(r)] {
			return true, nil
		}
	}
	return false, nil
}

// Granted and denied outcomes use distinct audit action values so trail
// consumers can filter on either without parsing details.
func decisionAction(granted bool) string {
	if granted {
		return "permission.grant"
	}
	return "permission.deny"
}
