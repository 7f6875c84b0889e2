// Package memory provides an in-process Directory implementation. It backs
// the engine-level tests and the standalone development mode; production
// deployments use the ldap package.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/store"
)

// Store keeps every entity in tenant-scoped maps guarded by one RWMutex.
// Entities are deep-copied on the way in and out so callers can never alias
// stored state.
type Store struct {
	mu         sync.RWMutex
	roles      map[string]map[string]*models.Role
	adminRoles map[string]map[string]*models.AdminRole
	orgUnits   map[string]map[string]*models.OrgUnit
	sdsets     map[string]map[string]*models.SDSet
	permObjs   map[string]map[string]*models.PermObj
	perms      map[string]map[string]*models.Permission
	users      map[string]map[string]*models.User
	rels       map[string]map[string][]models.Relationship
}

var _ store.Directory = (*Store)(nil)

func New() *Store {
	return &Store{
		roles:      make(map[string]map[string]*models.Role),
		adminRoles: make(map[string]map[string]*models.AdminRole),
		orgUnits:   make(map[string]map[string]*models.OrgUnit),
		sdsets:     make(map[string]map[string]*models.SDSet),
		permObjs:   make(map[string]map[string]*models.PermObj),
		perms:      make(map[string]map[string]*models.Permission),
		users:      make(map[string]map[string]*models.User),
		rels:       make(map[string]map[string][]models.Relationship),
	}
}

// Roles

func (s *Store) CreateRole(_ context.Context, role *models.Role) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(role.Name)
	pool := tenantPool(s.roles, role.TenantID)
	if _, ok := pool[key]; ok {
		return nil, store.ErrAlreadyExists
	}

	stored := cloneRole(role)
	stored.ID = uuid.NewString()
	stored.Name = key
	stored.Parents = models.NormalizeAll(stored.Parents)
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	pool[key] = stored
	return cloneRole(stored), nil
}

func (s *Store) GetRole(_ context.Context, tenantID, name string) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[tenantID][models.Normalize(name)]
	if !ok {
		return nil, &store.NotFoundError{Entity: "role", Key: models.Normalize(name), Tenant: tenantID}
	}
	return cloneRole(role), nil
}

func (s *Store) UpdateRole(_ context.Context, role *models.Role) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(role.Name)
	existing, ok := s.roles[role.TenantID][key]
	if !ok {
		return nil, &store.NotFoundError{Entity: "role", Key: key, Tenant: role.TenantID}
	}

	mergeRole(existing, role)
	existing.UpdatedAt = time.Now()
	return cloneRole(existing), nil
}

func (s *Store) DeleteRole(_ context.Context, tenantID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(name)
	if _, ok := s.roles[tenantID][key]; !ok {
		return &store.NotFoundError{Entity: "role", Key: key, Tenant: tenantID}
	}
	delete(s.roles[tenantID], key)
	return nil
}

func (s *Store) ListRoles(_ context.Context, tenantID string) ([]*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Role, 0, len(s.roles[tenantID]))
	for _, r := range s.roles[tenantID] {
		out = append(out, cloneRole(r))
	}
	return out, nil
}

// Admin roles

func (s *Store) CreateAdminRole(_ context.Context, role *models.AdminRole) (*models.AdminRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(role.Name)
	pool := tenantPool(s.adminRoles, role.TenantID)
	if _, ok := pool[key]; ok {
		return nil, store.ErrAlreadyExists
	}

	stored := cloneAdminRole(role)
	stored.ID = uuid.NewString()
	stored.Name = key
	stored.Parents = models.NormalizeAll(stored.Parents)
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	pool[key] = stored
	return cloneAdminRole(stored), nil
}

func (s *Store) GetAdminRole(_ context.Context, tenantID, name string) (*models.AdminRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.adminRoles[tenantID][models.Normalize(name)]
	if !ok {
		return nil, &store.NotFoundError{Entity: "adminrole", Key: models.Normalize(name), Tenant: tenantID}
	}
	return cloneAdminRole(role), nil
}

func (s *Store) UpdateAdminRole(_ context.Context, role *models.AdminRole) (*models.AdminRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(role.Name)
	existing, ok := s.adminRoles[role.TenantID][key]
	if !ok {
		return nil, &store.NotFoundError{Entity: "adminrole", Key: key, Tenant: role.TenantID}
	}

	mergeRole(&existing.Role, &role.Role)
	if role.UserOUs != nil {
		existing.UserOUs = append([]string(nil), role.UserOUs...)
	}
	if role.PermOUs != nil {
		existing.PermOUs = append([]string(nil), role.PermOUs...)
	}
	if role.BeginRange != "" {
		existing.BeginRange = role.BeginRange
		existing.BeginInclusive = role.BeginInclusive
	}
	if role.EndRange != "" {
		existing.EndRange = role.EndRange
		existing.EndInclusive = role.EndInclusive
	}
	existing.UpdatedAt = time.Now()
	return cloneAdminRole(existing), nil
}

func (s *Store) DeleteAdminRole(_ context.Context, tenantID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(name)
	if _, ok := s.adminRoles[tenantID][key]; !ok {
		return &store.NotFoundError{Entity: "adminrole", Key: key, Tenant: tenantID}
	}
	delete(s.adminRoles[tenantID], key)
	return nil
}

func (s *Store) ListAdminRoles(_ context.Context, tenantID string) ([]*models.AdminRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AdminRole, 0, len(s.adminRoles[tenantID]))
	for _, r := range s.adminRoles[tenantID] {
		out = append(out, cloneAdminRole(r))
	}
	return out, nil
}

// Org units

func ouKey(typ, name string) string {
	return strings.ToUpper(typ) + "/" + models.Normalize(name)
}

func (s *Store) CreateOrgUnit(_ context.Context, ou *models.OrgUnit) (*models.OrgUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ouKey(ou.Type, ou.Name)
	pool := tenantPool(s.orgUnits, ou.TenantID)
	if _, ok := pool[key]; ok {
		return nil, store.ErrAlreadyExists
	}

	stored := cloneOrgUnit(ou)
	stored.ID = uuid.NewString()
	stored.Name = models.Normalize(ou.Name)
	stored.Type = strings.ToUpper(ou.Type)
	stored.Parents = models.NormalizeAll(stored.Parents)
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	pool[key] = stored
	return cloneOrgUnit(stored), nil
}

func (s *Store) GetOrgUnit(_ context.Context, tenantID, typ, name string) (*models.OrgUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ou, ok := s.orgUnits[tenantID][ouKey(typ, name)]
	if !ok {
		return nil, &store.NotFoundError{Entity: "orgunit", Key: ouKey(typ, name), Tenant: tenantID}
	}
	return cloneOrgUnit(ou), nil
}

func (s *Store) UpdateOrgUnit(_ context.Context, ou *models.OrgUnit) (*models.OrgUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ouKey(ou.Type, ou.Name)
	existing, ok := s.orgUnits[ou.TenantID][key]
	if !ok {
		return nil, &store.NotFoundError{Entity: "orgunit", Key: key, Tenant: ou.TenantID}
	}

	if ou.Description != "" {
		existing.Description = ou.Description
	}
	if ou.Parents != nil {
		existing.Parents = models.NormalizeAll(ou.Parents)
	}
	if ou.Children != nil {
		existing.Children = models.NormalizeAll(ou.Children)
	}
	existing.UpdatedAt = time.Now()
	return cloneOrgUnit(existing), nil
}

func (s *Store) DeleteOrgUnit(_ context.Context, tenantID, typ, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ouKey(typ, name)
	if _, ok := s.orgUnits[tenantID][key]; !ok {
		return &store.NotFoundError{Entity: "orgunit", Key: key, Tenant: tenantID}
	}
	delete(s.orgUnits[tenantID], key)
	return nil
}

func (s *Store) ListOrgUnits(_ context.Context, tenantID, typ string) ([]*models.OrgUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typ = strings.ToUpper(typ)
	var out []*models.OrgUnit
	for _, ou := range s.orgUnits[tenantID] {
		if typ == "" || ou.Type == typ {
			out = append(out, cloneOrgUnit(ou))
		}
	}
	return out, nil
}

// SD sets

func (s *Store) CreateSDSet(_ context.Context, set *models.SDSet) (*models.SDSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(set.Name)
	pool := tenantPool(s.sdsets, set.TenantID)
	if _, ok := pool[key]; ok {
		return nil, store.ErrAlreadyExists
	}

	stored := cloneSDSet(set)
	stored.ID = uuid.NewString()
	stored.Name = key
	stored.Type = strings.ToUpper(set.Type)
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	pool[key] = stored
	return cloneSDSet(stored), nil
}

func (s *Store) GetSDSet(_ context.Context, tenantID, name string) (*models.SDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sdsets[tenantID][models.Normalize(name)]
	if !ok {
		return nil, &store.NotFoundError{Entity: "sdset", Key: models.Normalize(name), Tenant: tenantID}
	}
	return cloneSDSet(set), nil
}

func (s *Store) UpdateSDSet(_ context.Context, set *models.SDSet) (*models.SDSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(set.Name)
	existing, ok := s.sdsets[set.TenantID][key]
	if !ok {
		return nil, &store.NotFoundError{Entity: "sdset", Key: key, Tenant: set.TenantID}
	}

	if set.Description != "" {
		existing.Description = set.Description
	}
	if set.Members != nil {
		existing.Members = cloneMembers(set.Members)
	}
	if set.Cardinality != 0 {
		existing.Cardinality = set.Cardinality
	}
	existing.UpdatedAt = time.Now()
	return cloneSDSet(existing), nil
}

func (s *Store) DeleteSDSet(_ context.Context, tenantID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(name)
	if _, ok := s.sdsets[tenantID][key]; !ok {
		return &store.NotFoundError{Entity: "sdset", Key: key, Tenant: tenantID}
	}
	delete(s.sdsets[tenantID], key)
	return nil
}

func (s *Store) ListSDSets(_ context.Context, tenantID, typ string) ([]*models.SDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typ = strings.ToUpper(typ)
	var out []*models.SDSet
	for _, set := range s.sdsets[tenantID] {
		if typ == "" || set.Type == typ {
			out = append(out, cloneSDSet(set))
		}
	}
	return out, nil
}

func (s *Store) SearchSDSetsByMember(_ context.Context, tenantID, typ, member string) ([]*models.SDSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typ = strings.ToUpper(typ)
	member = models.Normalize(member)
	var out []*models.SDSet
	for _, set := range s.sdsets[tenantID] {
		if typ != "" && set.Type != typ {
			continue
		}
		if set.Members[member] {
			out = append(out, cloneSDSet(set))
		}
	}
	return out, nil
}

// Permission objects

func (s *Store) CreatePermObj(_ context.Context, obj *models.PermObj) (*models.PermObj, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(obj.Name)
	pool := tenantPool(s.permObjs, obj.TenantID)
	if _, ok := pool[key]; ok {
		return nil, store.ErrAlreadyExists
	}

	stored := *obj
	stored.ID = uuid.NewString()
	stored.Name = key
	stored.OrgUnit = models.Normalize(obj.OrgUnit)
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	pool[key] = &stored
	copied := stored
	return &copied, nil
}

func (s *Store) GetPermObj(_ context.Context, tenantID, name string) (*models.PermObj, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.permObjs[tenantID][models.Normalize(name)]
	if !ok {
		return nil, &store.NotFoundError{Entity: "permobj", Key: models.Normalize(name), Tenant: tenantID}
	}
	copied := *obj
	return &copied, nil
}

func (s *Store) UpdatePermObj(_ context.Context, obj *models.PermObj) (*models.PermObj, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(obj.Name)
	existing, ok := s.permObjs[obj.TenantID][key]
	if !ok {
		return nil, &store.NotFoundError{Entity: "permobj", Key: key, Tenant: obj.TenantID}
	}

	if obj.Description != "" {
		existing.Description = obj.Description
	}
	if obj.OrgUnit != "" {
		existing.OrgUnit = models.Normalize(obj.OrgUnit)
	}
	existing.UpdatedAt = time.Now()
	copied := *existing
	return &copied, nil
}

func (s *Store) DeletePermObj(_ context.Context, tenantID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(name)
	if _, ok := s.permObjs[tenantID][key]; !ok {
		return &store.NotFoundError{Entity: "permobj", Key: key, Tenant: tenantID}
	}
	delete(s.permObjs[tenantID], key)
	return nil
}

// Permissions

func permKey(objName, opName, objID string) string {
	key := models.Normalize(objName) + "." + models.Normalize(opName)
	if objID != "" {
		key += "." + models.Normalize(objID)
	}
	return key
}

func (s *Store) CreatePermission(_ context.Context, perm *models.Permission) (*models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := permKey(perm.ObjName, perm.OpName, perm.ObjID)
	pool := tenantPool(s.perms, perm.TenantID)
	if _, ok := pool[key]; ok {
		return nil, store.ErrAlreadyExists
	}

	stored := clonePermission(perm)
	stored.ID = uuid.NewString()
	stored.ObjName = models.Normalize(perm.ObjName)
	stored.OpName = models.Normalize(perm.OpName)
	stored.ObjID = models.Normalize(perm.ObjID)
	stored.Roles = models.NormalizeAll(stored.Roles)
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	pool[key] = stored
	return clonePermission(stored), nil
}

func (s *Store) GetPermission(_ context.Context, tenantID, objName, opName, objID string) (*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := permKey(objName, opName, objID)
	perm, ok := s.perms[tenantID][key]
	if !ok {
		return nil, &store.NotFoundError{Entity: "permission", Key: key, Tenant: tenantID}
	}
	return clonePermission(perm), nil
}

func (s *Store) UpdatePermission(_ context.Context, perm *models.Permission) (*models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := permKey(perm.ObjName, perm.OpName, perm.ObjID)
	existing, ok := s.perms[perm.TenantID][key]
	if !ok {
		return nil, &store.NotFoundError{Entity: "permission", Key: key, Tenant: perm.TenantID}
	}

	if perm.Roles != nil {
		existing.Roles = models.NormalizeAll(perm.Roles)
	}
	if perm.Users != nil {
		existing.Users = append([]string(nil), perm.Users...)
	}
	if perm.AttrSets != nil {
		existing.AttrSets = append([]string(nil), perm.AttrSets...)
	}
	existing.UpdatedAt = time.Now()
	return clonePermission(existing), nil
}

func (s *Store) DeletePermission(_ context.Context, tenantID, objName, opName, objID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := permKey(objName, opName, objID)
	if _, ok := s.perms[tenantID][key]; !ok {
		return &store.NotFoundError{Entity: "permission", Key: key, Tenant: tenantID}
	}
	delete(s.perms[tenantID], key)
	return nil
}

func (s *Store) ListPermissions(_ context.Context, tenantID, objName string) ([]*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objName = models.Normalize(objName)
	var out []*models.Permission
	for _, perm := range s.perms[tenantID] {
		if objName == "" || perm.ObjName == objName {
			out = append(out, clonePermission(perm))
		}
	}
	return out, nil
}

func (s *Store) SearchPermissionsByRole(_ context.Context, tenantID, roleName string) ([]*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roleName = models.Normalize(roleName)
	var out []*models.Permission
	for _, perm := range s.perms[tenantID] {
		for _, r := range perm.Roles {
			if r == roleName {
				out = append(out, clonePermission(perm))
				break
			}
		}
	}
	return out, nil
}

// Users

func (s *Store) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(user.UserID)
	pool := tenantPool(s.users, user.TenantID)
	if _, ok := pool[key]; ok {
		return nil, store.ErrAlreadyExists
	}

	stored := cloneUser(user)
	stored.ID = uuid.NewString()
	stored.UserID = key
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	pool[key] = stored
	return cloneUser(stored), nil
}

func (s *Store) GetUser(_ context.Context, tenantID, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[tenantID][models.Normalize(userID)]
	if !ok {
		return nil, &store.NotFoundError{Entity: "user", Key: models.Normalize(userID), Tenant: tenantID}
	}
	return cloneUser(user), nil
}

func (s *Store) UpdateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(user.UserID)
	existing, ok := s.users[user.TenantID][key]
	if !ok {
		return nil, &store.NotFoundError{Entity: "user", Key: key, Tenant: user.TenantID}
	}

	if user.OrgUnit != "" {
		existing.OrgUnit = models.Normalize(user.OrgUnit)
	}
	if user.Status != "" {
		existing.Status = user.Status
	}
	if user.Roles != nil {
		existing.Roles = cloneUserRoles(user.Roles)
	}
	if user.AdminRoles != nil {
		existing.AdminRoles = cloneUserAdminRoles(user.AdminRoles)
	}
	existing.UpdatedAt = time.Now()
	return cloneUser(existing), nil
}

func (s *Store) DeleteUser(_ context.Context, tenantID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.Normalize(userID)
	if _, ok := s.users[tenantID][key]; !ok {
		return &store.NotFoundError{Entity: "user", Key: key, Tenant: tenantID}
	}
	delete(s.users[tenantID], key)
	return nil
}

func (s *Store) ListUsers(_ context.Context, tenantID string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(s.users[tenantID]))
	for _, u := range s.users[tenantID] {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (s *Store) AssignedUsers(_ context.Context, tenantID, roleName string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roleName = models.Normalize(roleName)
	var out []string
	for _, u := range s.users[tenantID] {
		for _, ur := range u.Roles {
			if models.Normalize(ur.Name) == roleName {
				out = append(out, u.UserID)
				break
			}
		}
	}
	return out, nil
}

// Relationships

func (s *Store) GetRelationships(_ context.Context, tenantID, hierarchy string) ([]models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rels := s.rels[tenantID][hierarchy]
	out := make([]models.Relationship, len(rels))
	copy(out, rels)
	return out, nil
}

func (s *Store) SetRelationships(_ context.Context, tenantID, hierarchy string, rels []models.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rels[tenantID] == nil {
		s.rels[tenantID] = make(map[string][]models.Relationship)
	}
	stored := make([]models.Relationship, len(rels))
	copy(stored, rels)
	s.rels[tenantID][hierarchy] = stored
	return nil
}

// helpers

func tenantPool[T any](m map[string]map[string]*T, tenantID string) map[string]*T {
	pool, ok := m[tenantID]
	if !ok {
		pool = make(map[string]*T)
		m[tenantID] = pool
	}
	return pool
}

func mergeRole(existing, update *models.Role) {
	if update.Description != "" {
		existing.Description = update.Description
	}
	if update.Parent != "" {
		existing.Parent = models.Normalize(update.Parent)
	}
	if update.Parents != nil {
		existing.Parents = models.NormalizeAll(update.Parents)
	}
	if update.Children != nil {
		existing.Children = models.NormalizeAll(update.Children)
	}
	if update.Occupants != nil {
		existing.Occupants = append([]string(nil), update.Occupants...)
	}
	if !update.Constraint.IsEmpty() {
		existing.Constraint = update.Constraint
	}
	if update.UpdatedBy != "" {
		existing.UpdatedBy = update.UpdatedBy
	}
}

func cloneRole(r *models.Role) *models.Role {
	copied := *r
	copied.Parents = append([]string(nil), r.Parents...)
	copied.Children = append([]string(nil), r.Children...)
	copied.Occupants = append([]string(nil), r.Occupants...)
	return &copied
}

func cloneAdminRole(r *models.AdminRole) *models.AdminRole {
	copied := *r
	copied.Role = *cloneRole(&r.Role)
	copied.UserOUs = append([]string(nil), r.UserOUs...)
	copied.PermOUs = append([]string(nil), r.PermOUs...)
	return &copied
}

func cloneOrgUnit(ou *models.OrgUnit) *models.OrgUnit {
	copied := *ou
	copied.Parents = append([]string(nil), ou.Parents...)
	copied.Children = append([]string(nil), ou.Children...)
	return &copied
}

func cloneSDSet(set *models.SDSet) *models.SDSet {
	copied := *set
	copied.Members = cloneMembers(set.Members)
	return &copied
}

func cloneMembers(members map[string]bool) map[string]bool {
	out := make(map[string]bool, len(members))
	for k, v := range members {
		out[models.Normalize(k)] = v
	}
	return out
}

func clonePermission(p *models.Permission) *models.Permission {
	copied := *p
	copied.Roles = append([]string(nil), p.Roles...)
	copied.Users = append([]string(nil), p.Users...)
	copied.AttrSets = append([]string(nil), p.AttrSets...)
	return &copied
}

func cloneUser(u *models.User) *models.User {
	copied := *u
	copied.Roles = cloneUserRoles(u.Roles)
	copied.AdminRoles = cloneUserAdminRoles(u.AdminRoles)
	return &copied
}

func cloneUserRoles(roles []models.UserRole) []models.UserRole {
	out := make([]models.UserRole, len(roles))
	for i, r := range roles {
		out[i] = r
		out[i].Constraints = append([]models.RoleConstraint(nil), r.Constraints...)
	}
	return out
}

func cloneUserAdminRoles(roles []models.UserAdminRole) []models.UserAdminRole {
	out := make([]models.UserAdminRole, len(roles))
	for i, r := range roles {
		out[i] = r
		out[i].Constraints = append([]models.RoleConstraint(nil), r.Constraints...)
		out[i].UserOUs = append([]string(nil), r.UserOUs...)
		out[i].PermOUs = append([]string(nil), r.PermOUs...)
	}
	return out
}
