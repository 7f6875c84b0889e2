package admin

import (
	"context"
	"time"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
)

// CreatePermObj stores a permission object. When an org unit is named it
// must exist in the PERM hierarchy.
func (s *Service) CreatePermObj(ctx context.Context, obj *models.PermObj) (*models.PermObj, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("create", "permobj", time.Since(start), err == nil)
	}()

	if models.Normalize(obj.Name) == "" {
		err = &ValidationError{Field: "name", Message: "object name is required"}
		return nil, err
	}
	if obj.OrgUnit != "" {
		if _, err = s.store.GetOrgUnit(ctx, obj.TenantID, models.OrgUnitPerm, obj.OrgUnit); err != nil {
			return nil, err
		}
	}

	created, cerr := s.store.CreatePermObj(ctx, obj)
	if cerr != nil {
		err = cerr
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: obj.TenantID, Action: "permobj.create", Entity: "permobj", Target: created.Name, Granted: true,
	})
	return created, nil
}

func (s *Service) GetPermObj(ctx context.Context, tenantID, name string) (*models.PermObj, error) {
	return s.store.GetPermObj(ctx, tenantID, name)
}

func (s *Service) UpdatePermObj(ctx context.Context, obj *models.PermObj) (*models.PermObj, error) {
	start := time.Now()
	updated, err := s.store.UpdatePermObj(ctx, obj)
	monitoring.RecordAPIOperation("update", "permobj", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: obj.TenantID, Action: "permobj.update", Entity: "permobj", Target: updated.Name, Granted: true,
	})
	return updated, nil
}

// DeletePermObj removes the object together with every permission defined
// under it.
func (s *Service) DeletePermObj(ctx context.Context, tenantID, name string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("delete", "permobj", time.Since(start), err == nil)
	}()

	name = models.Normalize(name)
	if _, err = s.store.GetPermObj(ctx, tenantID, name); err != nil {
		return err
	}
	perms, perr := s.store.ListPermissions(ctx, tenantID, name)
	if perr != nil {
		err = perr
		return err
	}
	for _, perm := range perms {
		if err = s.store.DeletePermission(ctx, tenantID, perm.ObjName, perm.OpName, perm.ObjID); err != nil {
			return err
		}
	}
	if err = s.store.DeletePermObj(ctx, tenantID, name); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "permobj.delete", Entity: "permobj", Target: name, Granted: true,
	})
	return nil
}

// CreatePermission stores an (object, operation[, objectId]) permission.
// The parent object must already exist.
func (s *Service) CreatePermission(ctx context.Context, perm *models.Permission) (*models.Permission, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("create", "permission", time.Since(start), err == nil)
	}()

	if models.Normalize(perm.ObjName) == "" || models.Normalize(perm.OpName) == "" {
		err = &ValidationError{Field: "permission", Message: "object and operation names are required"}
		return nil, err
	}
	if _, err = s.store.GetPermObj(ctx, perm.TenantID, perm.ObjName); err != nil {
		return nil, err
	}
	for _, roleName := range perm.Roles {
		if err = s.requireGrantTarget(ctx, perm.TenantID, roleName, perm.IsAdmin); err != nil {
			return nil, err
		}
	}

	created, cerr := s.store.CreatePermission(ctx, perm)
	if cerr != nil {
		err = cerr
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: perm.TenantID, Action: "permission.create", Entity: "permission",
		Target: created.Ident(), Granted: true,
	})
	return created, nil
}

func (s *Service) GetPermission(ctx context.Context, tenantID, objName, opName, objID string) (*models.Permission, error) {
	return s.store.GetPermission(ctx, tenantID, objName, opName, objID)
}

func (s *Service) DeletePermission(ctx context.Context, tenantID, objName, opName, objID string) error {
	start := time.Now()
	err := s.store.DeletePermission(ctx, tenantID, objName, opName, objID)
	monitoring.RecordAPIOperation("delete", "permission", time.Since(start), err == nil)
	if err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "permission.delete", Entity: "permission",
		Target: (&models.Permission{ObjName: objName, OpName: opName, ObjID: objID}).Ident(), Granted: true,
	})
	return nil
}

// GrantToRole adds a role to the permission's granted set. Admin permissions
// grant to admin roles, regular permissions to regular roles; the target
// must exist.
func (s *Service) GrantToRole(ctx context.Context, tenantID, objName, opName, objID, roleName string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("grant", "permission", time.Since(start), err == nil)
	}()

	perm, gerr := s.store.GetPermission(ctx, tenantID, objName, opName, objID)
	if gerr != nil {
		err = gerr
		return err
	}
	roleName = models.Normalize(roleName)
	if err = s.requireGrantTarget(ctx, tenantID, roleName, perm.IsAdmin); err != nil {
		return err
	}

	perm.Roles = appendUnique(perm.Roles, roleName)
	if _, err = s.store.UpdatePermission(ctx, perm); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "permission.grant.role", Entity: "permission",
		Target: perm.Ident() + ":" + roleName, Granted: true,
	})
	return nil
}

// RevokeFromRole removes a role from the permission's granted set.
func (s *Service) RevokeFromRole(ctx context.Context, tenantID, objName, opName, objID, roleName string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("revoke", "permission", time.Since(start), err == nil)
	}()

	perm, gerr := s.store.GetPermission(ctx, tenantID, objName, opName, objID)
	if gerr != nil {
		err = gerr
		return err
	}
	roleName = models.Normalize(roleName)
	kept := removeValue(perm.Roles, roleName)
	if len(kept) == len(perm.Roles) {
		err = &ValidationError{Field: "role", Message: "role " + roleName + " is not granted " + perm.Ident()}
		return err
	}

	perm.Roles = kept
	if _, err = s.store.UpdatePermission(ctx, perm); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "permission.revoke.role", Entity: "permission",
		Target: perm.Ident() + ":" + roleName, Granted: true,
	})
	return nil
}

// GrantToUser adds a direct user grant.
func (s *Service) GrantToUser(ctx context.Context, tenantID, objName, opName, objID, userID string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("grant", "permission", time.Since(start), err == nil)
	}()

	perm, gerr := s.store.GetPermission(ctx, tenantID, objName, opName, objID)
	if gerr != nil {
		err = gerr
		return err
	}
	userID = models.Normalize(userID)
	if _, err = s.store.GetUser(ctx, tenantID, userID); err != nil {
		return err
	}

	perm.Users = appendUnique(perm.Users, userID)
	if _, err = s.store.UpdatePermission(ctx, perm); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "permission.grant.user", Entity: "permission",
		Target: perm.Ident() + ":" + userID, Granted: true,
	})
	return nil
}

// RevokeFromUser removes a direct user grant.
func (s *Service) RevokeFromUser(ctx context.Context, tenantID, objName, opName, objID, userID string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("revoke", "permission", time.Since(start), err == nil)
	}()

	perm, gerr := s.store.GetPermission(ctx, tenantID, objName, opName, objID)
	if gerr != nil {
		err = gerr
		return err
	}
	userID = models.Normalize(userID)
	kept := removeValue(perm.Users, userID)
	if len(kept) == len(perm.Users) {
		err = &ValidationError{Field: "user", Message: "user " + userID + " is not granted " + perm.Ident()}
		return err
	}

	perm.Users = kept
	if _, err = s.store.UpdatePermission(ctx, perm); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "permission.revoke.user", Entity: "permission",
		Target: perm.Ident() + ":" + userID, Granted: true,
	})
	return nil
}

func (s *Service) requireGrantTarget(ctx context.Context, tenantID, roleName string, isAdmin bool) error {
	if isAdmin {
		_, err := s.store.GetAdminRole(ctx, tenantID, roleName)
		return err
	}
	_, err := s.store.GetRole(ctx, tenantID, roleName)
	return err
}
