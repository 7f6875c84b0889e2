package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
)

// CreateRole stores a new role and, when parents are named, links it into
// the hierarchy.
func (s *Service) CreateRole(ctx context.Context, role *models.Role) (*models.Role, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("create", "role", time.Since(start), err == nil)
	}()

	if models.Normalize(role.Name) == "" {
		err = &ValidationError{Field: "name", Message: "role name is required"}
		return nil, err
	}

	created, cerr := s.store.CreateRole(ctx, role)
	if cerr != nil {
		err = cerr
		return nil, err
	}

	for _, parent := range created.Parents {
		if aerr := s.reg.AddRelationship(ctx, role.TenantID, models.HierarchyRole, created.Name, parent, false); aerr != nil {
			err = aerr
			return nil, err
		}
	}
	s.sod.Invalidate(role.TenantID)

	s.audit.Record(ctx, audit.Event{
		TenantID: role.TenantID, Actor: role.CreatedBy,
		Action: "role.create", Entity: "role", Target: created.Name, Granted: true,
	})
	return created, nil
}

func (s *Service) UpdateRole(ctx context.Context, role *models.Role) (*models.Role, error) {
	start := time.Now()
	updated, err := s.store.UpdateRole(ctx, role)
	monitoring.RecordAPIOperation("update", "role", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: role.TenantID, Actor: role.UpdatedBy,
		Action: "role.update", Entity: "role", Target: updated.Name, Granted: true,
	})
	return updated, nil
}

func (s *Service) GetRole(ctx context.Context, tenantID, name string) (*models.Role, error) {
	return s.store.GetRole(ctx, tenantID, name)
}

func (s *Service) ListRoles(ctx context.Context, tenantID string) ([]*models.Role, error) {
	return s.store.ListRoles(ctx, tenantID)
}

// DeleteRole removes a role and every reference to it. The operation is
// refused outright while the role still has hierarchy children; the
// precondition is checked before any mutation so a refusal leaves no partial
// state. Otherwise: deassign every holder, strip the role from every
// permission grant, detach its parent edges, then delete the node.
func (s *Service) DeleteRole(ctx context.Context, tenantID, name string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("delete", "role", time.Since(start), err == nil)
	}()

	name = models.Normalize(name)
	if _, err = s.store.GetRole(ctx, tenantID, name); err != nil {
		return err
	}

	g, gerr := s.reg.Graph(ctx, tenantID, models.HierarchyRole)
	if gerr != nil {
		err = gerr
		return err
	}
	if n := g.NumChildren(name); n > 0 {
		err = &PolicyError{
			Code: CodeDeleteHasChild, Entity: "role", Name: name,
			Detail: fmt.Sprintf("%d descendant roles depend on it", n),
		}
		return err
	}

	if err = s.deassignAll(ctx, tenantID, name); err != nil {
		return err
	}
	if err = s.stripPermissionGrants(ctx, tenantID, name); err != nil {
		return err
	}
	for _, parent := range g.Parents(name) {
		if err = s.reg.RemoveRelationship(ctx, tenantID, models.HierarchyRole, name, parent); err != nil {
			return err
		}
	}

	if err = s.store.DeleteRole(ctx, tenantID, name); err != nil {
		return err
	}
	s.sod.Invalidate(tenantID)

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "role.delete", Entity: "role", Target: name, Granted: true,
	})
	return nil
}

func (s *Service) deassignAll(ctx context.Context, tenantID, roleName string) error {
	holders, err := s.store.AssignedUsers(ctx, tenantID, roleName)
	if err != nil {
		return err
	}
	for _, userID := range holders {
		user, err := s.store.GetUser(ctx, tenantID, userID)
		if err != nil {
			return err
		}
		kept := make([]models.UserRole, 0, len(user.Roles))
		for _, ur := range user.Roles {
			if models.Normalize(ur.Name) != roleName {
				kept = append(kept, ur)
			}
		}
		if _, err := s.store.UpdateUser(ctx, &models.User{
			TenantID: tenantID, UserID: userID, Roles: kept,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) stripPermissionGrants(ctx context.Context, tenantID, roleName string) error {
	perms, err := s.store.SearchPermissionsByRole(ctx, tenantID, roleName)
	if err != nil {
		return err
	}
	for _, perm := range perms {
		kept := make([]string, 0, len(perm.Roles))
		for _, r := range perm.Roles {
			if models.Normalize(r) != roleName {
				kept = append(kept, r)
			}
		}
		perm.Roles = kept
		if _, err := s.store.UpdatePermission(ctx, perm); err != nil {
			return err
		}
	}
	return nil
}

/* ------------------------------ admin roles ------------------------------ */

func (s *Service) CreateAdminRole(ctx context.Context, role *models.AdminRole) (*models.AdminRole, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("create", "adminrole", time.Since(start), err == nil)
	}()

	if models.Normalize(role.Name) == "" {
		err = &ValidationError{Field: "name", Message: "admin role name is required"}
		return nil, err
	}
	for _, ou := range role.UserOUs {
		if _, err = s.store.GetOrgUnit(ctx, role.TenantID, models.OrgUnitUser, ou); err != nil {
			return nil, err
		}
	}
	for _, ou := range role.PermOUs {
		if _, err = s.store.GetOrgUnit(ctx, role.TenantID, models.OrgUnitPerm, ou); err != nil {
			return nil, err
		}
	}

	created, cerr := s.store.CreateAdminRole(ctx, role)
	if cerr != nil {
		err = cerr
		return nil, err
	}
	for _, parent := range created.Parents {
		if aerr := s.reg.AddRelationship(ctx, role.TenantID, models.HierarchyAdminRole, created.Name, parent, false); aerr != nil {
			err = aerr
			return nil, err
		}
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: role.TenantID, Actor: role.CreatedBy,
		Action: "adminrole.create", Entity: "adminrole", Target: created.Name, Granted: true,
	})
	return created, nil
}

func (s *Service) UpdateAdminRole(ctx context.Context, role *models.AdminRole) (*models.AdminRole, error) {
	start := time.Now()
	updated, err := s.store.UpdateAdminRole(ctx, role)
	monitoring.RecordAPIOperation("update", "adminrole", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: role.TenantID, Actor: role.UpdatedBy,
		Action: "adminrole.update", Entity: "adminrole", Target: updated.Name, Granted: true,
	})
	return updated, nil
}

func (s *Service) GetAdminRole(ctx context.Context, tenantID, name string) (*models.AdminRole, error) {
	return s.store.GetAdminRole(ctx, tenantID, name)
}

func (s *Service) ListAdminRoles(ctx context.Context, tenantID string) ([]*models.AdminRole, error) {
	return s.store.ListAdminRoles(ctx, tenantID)
}

// DeleteAdminRole mirrors DeleteRole against the administrative hierarchy.
func (s *Service) DeleteAdminRole(ctx context.Context, tenantID, name string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("delete", "adminrole", time.Since(start), err == nil)
	}()

	name = models.Normalize(name)
	if _, err = s.store.GetAdminRole(ctx, tenantID, name); err != nil {
		return err
	}

	g, gerr := s.reg.Graph(ctx, tenantID, models.HierarchyAdminRole)
	if gerr != nil {
		err = gerr
		return err
	}
	if n := g.NumChildren(name); n > 0 {
		err = &PolicyError{
			Code: CodeDeleteHasChild, Entity: "adminrole", Name: name,
			Detail: fmt.Sprintf("%d descendant roles depend on it", n),
		}
		return err
	}

	// drop the assignment from every holder
	users, uerr := s.store.ListUsers(ctx, tenantID)
	if uerr != nil {
		err = uerr
		return err
	}
	for _, user := range users {
		kept := make([]models.UserAdminRole, 0, len(user.AdminRoles))
		for _, ar := range user.AdminRoles {
			if models.Normalize(ar.Name) != name {
				kept = append(kept, ar)
			}
		}
		if len(kept) == len(user.AdminRoles) {
			continue
		}
		if _, err = s.store.UpdateUser(ctx, &models.User{
			TenantID: tenantID, UserID: user.UserID, AdminRoles: kept,
		}); err != nil {
			return err
		}
	}
	if err = s.stripPermissionGrants(ctx, tenantID, name); err != nil {
		return err
	}
	for _, parent := range g.Parents(name) {
		if err = s.reg.RemoveRelationship(ctx, tenantID, models.HierarchyAdminRole, name, parent); err != nil {
			return err
		}
	}

	if err = s.store.DeleteAdminRole(ctx, tenantID, name); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "adminrole.delete", Entity: "adminrole", Target: name, Granted: true,
	})
	return nil
}

/* ------------------------------ hierarchy -------------------------------- */

// AddRoleInheritance links child under parent in the role hierarchy. Both
// roles must already exist as entities. Validation happens inside the
// registry's per-graph write lock, immediately before the mutation, so a
// concurrent edit cannot invalidate an earlier check.
func (s *Service) AddRoleInheritance(ctx context.Context, tenantID, child, parent string) error {
	return s.addInheritance(ctx, tenantID, models.HierarchyRole, child, parent)
}

func (s *Service) DeleteRoleInheritance(ctx context.Context, tenantID, child, parent string) error {
	return s.deleteInheritance(ctx, tenantID, models.HierarchyRole, child, parent)
}

func (s *Service) AddAdminRoleInheritance(ctx context.Context, tenantID, child, parent string) error {
	return s.addInheritance(ctx, tenantID, models.HierarchyAdminRole, child, parent)
}

func (s *Service) DeleteAdminRoleInheritance(ctx context.Context, tenantID, child, parent string) error {
	return s.deleteInheritance(ctx, tenantID, models.HierarchyAdminRole, child, parent)
}

// AddRoleDescendant creates a new role below an existing parent in one step.
func (s *Service) AddRoleDescendant(ctx context.Context, role *models.Role, parent string) (*models.Role, error) {
	if _, err := s.store.GetRole(ctx, role.TenantID, parent); err != nil {
		return nil, err
	}
	role.Parents = []string{models.Normalize(parent)}
	return s.CreateRole(ctx, role)
}

// AddRoleAscendant creates a new role above an existing child in one step.
func (s *Service) AddRoleAscendant(ctx context.Context, role *models.Role, child string) (*models.Role, error) {
	if _, err := s.store.GetRole(ctx, role.TenantID, child); err != nil {
		return nil, err
	}
	role.Parents = nil
	created, err := s.CreateRole(ctx, role)
	if err != nil {
		return nil, err
	}
	if err := s.addInheritance(ctx, role.TenantID, models.HierarchyRole, child, created.Name); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) addInheritance(ctx context.Context, tenantID, hierarchy, child, parent string) error {
	if err := s.requireNode(ctx, tenantID, hierarchy, child); err != nil {
		return err
	}
	if err := s.requireNode(ctx, tenantID, hierarchy, parent); err != nil {
		return err
	}
	if err := s.reg.AddRelationship(ctx, tenantID, hierarchy, child, parent, false); err != nil {
		return err
	}
	s.sod.Invalidate(tenantID)
	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: hierarchy + ".inherit.add",
		Target: models.Normalize(child) + "->" + models.Normalize(parent), Granted: true,
	})
	return nil
}

func (s *Service) deleteInheritance(ctx context.Context, tenantID, hierarchy, child, parent string) error {
	if err := s.reg.RemoveRelationship(ctx, tenantID, hierarchy, child, parent); err != nil {
		return err
	}
	s.sod.Invalidate(tenantID)
	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: hierarchy + ".inherit.remove",
		Target: models.Normalize(child) + "->" + models.Normalize(parent), Granted: true,
	})
	return nil
}

// requireNode checks that the named hierarchy member exists as an entity.
func (s *Service) requireNode(ctx context.Context, tenantID, hierarchy, name string) error {
	var err error
	switch hierarchy {
	case models.HierarchyRole:
		_, err = s.store.GetRole(ctx, tenantID, name)
	case models.HierarchyAdminRole:
		_, err = s.store.GetAdminRole(ctx, tenantID, name)
	case models.HierarchyUserOU:
		_, err = s.store.GetOrgUnit(ctx, tenantID, models.OrgUnitUser, name)
	case models.HierarchyPermOU:
		_, err = s.store.GetOrgUnit(ctx, tenantID, models.OrgUnitPerm, name)
	default:
		err = &ValidationError{Field: "hierarchy", Message: "unknown hierarchy type " + hierarchy}
	}
	return err
}
