// Package store defines the abstract directory contract the policy engine
// persists through. Implementations live in the ldap and memory subpackages;
// the engine never talks wire protocol itself.
package store

import (
	"context"

	"github.com/platformbuilds/sentra-core/internal/models"
)

// Directory is the persistence collaborator for all RBAC entities. Every
// call is scoped by a tenant identifier; the empty tenant selects the default
// scope.
//
// Update methods follow the "ignore empty" convention carried over from the
// directory encoding: nil slices and zero-value fields on the passed entity
// are left untouched in the stored record, while non-nil empty slices
// overwrite. Create methods assign the generated internal ID and return the
// stored entity.
//
// Hierarchy relationships are persisted wholesale: one attribute per
// (tenant, hierarchy type) holding the full (child, parent) pair list, read
// and rewritten in full on structural change.
type Directory interface {
	// Roles
	CreateRole(ctx context.Context, role *models.Role) (*models.Role, error)
	GetRole(ctx context.Context, tenantID, name string) (*models.Role, error)
	UpdateRole(ctx context.Context, role *models.Role) (*models.Role, error)
	DeleteRole(ctx context.Context, tenantID, name string) error
	ListRoles(ctx context.Context, tenantID string) ([]*models.Role, error)

	// Administrative roles
	CreateAdminRole(ctx context.Context, role *models.AdminRole) (*models.AdminRole, error)
	GetAdminRole(ctx context.Context, tenantID, name string) (*models.AdminRole, error)
	UpdateAdminRole(ctx context.Context, role *models.AdminRole) (*models.AdminRole, error)
	DeleteAdminRole(ctx context.Context, tenantID, name string) error
	ListAdminRoles(ctx context.Context, tenantID string) ([]*models.AdminRole, error)

	// Org units (two independent hierarchies selected by typ: USER | PERM)
	CreateOrgUnit(ctx context.Context, ou *models.OrgUnit) (*models.OrgUnit, error)
	GetOrgUnit(ctx context.Context, tenantID, typ, name string) (*models.OrgUnit, error)
	UpdateOrgUnit(ctx context.Context, ou *models.OrgUnit) (*models.OrgUnit, error)
	DeleteOrgUnit(ctx context.Context, tenantID, typ, name string) error
	ListOrgUnits(ctx context.Context, tenantID, typ string) ([]*models.OrgUnit, error)

	// Separation-of-duty sets
	CreateSDSet(ctx context.Context, set *models.SDSet) (*models.SDSet, error)
	GetSDSet(ctx context.Context, tenantID, name string) (*models.SDSet, error)
	UpdateSDSet(ctx context.Context, set *models.SDSet) (*models.SDSet, error)
	DeleteSDSet(ctx context.Context, tenantID, name string) error
	ListSDSets(ctx context.Context, tenantID, typ string) ([]*models.SDSet, error)
	// SearchSDSetsByMember returns every set of the given type holding the
	// member role directly.
	SearchSDSetsByMember(ctx context.Context, tenantID, typ, member string) ([]*models.SDSet, error)

	// Permission objects and permissions
	CreatePermObj(ctx context.Context, obj *models.PermObj) (*models.PermObj, error)
	GetPermObj(ctx context.Context, tenantID, name string) (*models.PermObj, error)
	UpdatePermObj(ctx context.Context, obj *models.PermObj) (*models.PermObj, error)
	DeletePermObj(ctx context.Context, tenantID, name string) error
	CreatePermission(ctx context.Context, perm *models.Permission) (*models.Permission, error)
	GetPermission(ctx context.Context, tenantID, objName, opName, objID string) (*models.Permission, error)
	UpdatePermission(ctx context.Context, perm *models.Permission) (*models.Permission, error)
	DeletePermission(ctx context.Context, tenantID, objName, opName, objID string) error
	ListPermissions(ctx context.Context, tenantID, objName string) ([]*models.Permission, error)
	// SearchPermissionsByRole returns every permission whose granted-role set
	// contains the role.
	SearchPermissionsByRole(ctx context.Context, tenantID, roleName string) ([]*models.Permission, error)

	// Users
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, tenantID, userID string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) (*models.User, error)
	DeleteUser(ctx context.Context, tenantID, userID string) error
	ListUsers(ctx context.Context, tenantID string) ([]*models.User, error)
	// AssignedUsers returns the IDs of users carrying a UserRole for the role.
	AssignedUsers(ctx context.Context, tenantID, roleName string) ([]string, error)

	// Hierarchy relationship attribute, per hierarchy type
	GetRelationships(ctx context.Context, tenantID, hierarchy string) ([]models.Relationship, error)
	SetRelationships(ctx context.Context, tenantID, hierarchy string, rels []models.Relationship) error
}
