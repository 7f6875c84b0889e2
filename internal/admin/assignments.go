package admin

import (
	"context"
	"time"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
)

// AssignUser grants a role to a user. The static separation-of-duty check
// runs before any persistent write; when the assignment does not carry its
// own temporal constraint the role's declared default is copied onto it.
// The user is also recorded as an occupant on the role node.
func (s *Service) AssignUser(ctx context.Context, tenantID, userID, roleName string, constraint *models.Constraint) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("assign", "user_role", time.Since(start), err == nil)
	}()

	roleName = models.Normalize(roleName)
	userID = models.Normalize(userID)

	role, rerr := s.store.GetRole(ctx, tenantID, roleName)
	if rerr != nil {
		err = rerr
		return err
	}
	user, uerr := s.store.GetUser(ctx, tenantID, userID)
	if uerr != nil {
		err = uerr
		return err
	}
	for _, ur := range user.Roles {
		if models.Normalize(ur.Name) == roleName {
			err = &ValidationError{Field: "role", Message: "role " + roleName + " already assigned to " + userID}
			return err
		}
	}

	if err = s.sod.ValidateAssign(ctx, user, roleName); err != nil {
		return err
	}

	assignment := models.UserRole{UserID: userID, Name: roleName}
	if constraint != nil && !constraint.IsEmpty() {
		assignment.Constraint = *constraint
	} else {
		assignment.Constraint = role.Constraint
	}

	if _, err = s.store.UpdateUser(ctx, &models.User{
		TenantID: tenantID, UserID: userID,
		Roles: append(user.Roles, assignment),
	}); err != nil {
		return err
	}
	if _, err = s.store.UpdateRole(ctx, &models.Role{
		TenantID: tenantID, Name: roleName,
		Occupants: appendUnique(role.Occupants, userID),
	}); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Actor: userID,
		Action: "user.assign", Entity: "role", Target: roleName, Granted: true,
	})
	return nil
}

// DeassignUser removes a role from a user and drops the occupant record.
func (s *Service) DeassignUser(ctx context.Context, tenantID, userID, roleName string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("deassign", "user_role", time.Since(start), err == nil)
	}()

	roleName = models.Normalize(roleName)
	userID = models.Normalize(userID)

	user, uerr := s.store.GetUser(ctx, tenantID, userID)
	if uerr != nil {
		err = uerr
		return err
	}

	kept := make([]models.UserRole, 0, len(user.Roles))
	found := false
	for _, ur := range user.Roles {
		if models.Normalize(ur.Name) == roleName {
			found = true
			continue
		}
		kept = append(kept, ur)
	}
	if !found {
		err = &ValidationError{Field: "role", Message: "role " + roleName + " not assigned to " + userID}
		return err
	}

	if _, err = s.store.UpdateUser(ctx, &models.User{
		TenantID: tenantID, UserID: userID, Roles: kept,
	}); err != nil {
		return err
	}

	// role may already be gone when called from a cascade delete
	if role, rerr := s.store.GetRole(ctx, tenantID, roleName); rerr == nil {
		if _, err = s.store.UpdateRole(ctx, &models.Role{
			TenantID: tenantID, Name: roleName,
			Occupants: removeValue(role.Occupants, userID),
		}); err != nil {
			return err
		}
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Actor: userID,
		Action: "user.deassign", Entity: "role", Target: roleName, Granted: true,
	})
	return nil
}

// AssignAdminRole grants an administrative role. The admin scope (org-unit
// pools and role range) is copied from the role declaration at assignment
// time, so later edits to the declaration do not retroactively widen
// existing assignments.
func (s *Service) AssignAdminRole(ctx context.Context, tenantID, userID, roleName string, constraint *models.Constraint) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("assign", "user_adminrole", time.Since(start), err == nil)
	}()

	roleName = models.Normalize(roleName)
	userID = models.Normalize(userID)

	role, rerr := s.store.GetAdminRole(ctx, tenantID, roleName)
	if rerr != nil {
		err = rerr
		return err
	}
	user, uerr := s.store.GetUser(ctx, tenantID, userID)
	if uerr != nil {
		err = uerr
		return err
	}
	for _, ar := range user.AdminRoles {
		if models.Normalize(ar.Name) == roleName {
			err = &ValidationError{Field: "adminRole", Message: "admin role " + roleName + " already assigned to " + userID}
			return err
		}
	}

	assignment := models.UserAdminRole{
		UserRole: models.UserRole{UserID: userID, Name: roleName},
		UserOUs:  append([]string(nil), role.UserOUs...),
		PermOUs:  append([]string(nil), role.PermOUs...),
	}
	if constraint != nil && !constraint.IsEmpty() {
		assignment.Constraint = *constraint
	} else {
		assignment.Constraint = role.Constraint
	}

	if _, err = s.store.UpdateUser(ctx, &models.User{
		TenantID: tenantID, UserID: userID,
		AdminRoles: append(user.AdminRoles, assignment),
	}); err != nil {
		return err
	}
	if _, err = s.store.UpdateAdminRole(ctx, &models.AdminRole{
		Role: models.Role{
			TenantID: tenantID, Name: roleName,
			Occupants: appendUnique(role.Occupants, userID),
		},
	}); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Actor: userID,
		Action: "user.assign", Entity: "adminrole", Target: roleName, Granted: true,
	})
	return nil
}

func (s *Service) DeassignAdminRole(ctx context.Context, tenantID, userID, roleName string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("deassign", "user_adminrole", time.Since(start), err == nil)
	}()

	roleName = models.Normalize(roleName)
	userID = models.Normalize(userID)

	user, uerr := s.store.GetUser(ctx, tenantID, userID)
	if uerr != nil {
		err = uerr
		return err
	}

	kept := make([]models.UserAdminRole, 0, len(user.AdminRoles))
	found := false
	for _, ar := range user.AdminRoles {
		if models.Normalize(ar.Name) == roleName {
			found = true
			continue
		}
		kept = append(kept, ar)
	}
	if !found {
		err = &ValidationError{Field: "adminRole", Message: "admin role " + roleName + " not assigned to " + userID}
		return err
	}

	if _, err = s.store.UpdateUser(ctx, &models.User{
		TenantID: tenantID, UserID: userID, AdminRoles: kept,
	}); err != nil {
		return err
	}
	if role, rerr := s.store.GetAdminRole(ctx, tenantID, roleName); rerr == nil {
		if _, err = s.store.UpdateAdminRole(ctx, &models.AdminRole{
			Role: models.Role{
				TenantID: tenantID, Name: roleName,
				Occupants: removeValue(role.Occupants, userID),
			},
		}); err != nil {
			return err
		}
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Actor: userID,
		Action: "user.deassign", Entity: "adminrole", Target: roleName, Granted: true,
	})
	return nil
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return append([]string(nil), values...)
		}
	}
	out := make([]string, 0, len(values)+1)
	out = append(out, values...)
	return append(out, v)
}

func removeValue(values []string, v string) []string {
	out := make([]string, 0, len(values))
	for _, existing := range values {
		if existing != v {
			out = append(out, existing)
		}
	}
	return out
}
