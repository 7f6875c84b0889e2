package models

import (
	"strings"
	"time"
)

// RBAC / ARBAC entity model for the SENTRA-CORE policy engine. Every entity
// name is case-insensitive and normalized to uppercase before it reaches the
// hierarchy graphs or the directory store. Tenant ("context") identifiers
// scope every lookup; the empty tenant denotes the default scope.

// Hierarchy types maintained per tenant.
const (
	HierarchyRole      = "role"
	HierarchyAdminRole = "adminrole"
	HierarchyUserOU    = "userou"
	HierarchyPermOU    = "permou"
)

// OrgUnit types. A USER org unit scopes which users an admin role may manage;
// a PERM org unit scopes which permission objects it may manage.
const (
	OrgUnitUser = "USER"
	OrgUnitPerm = "PERM"
)

// SDSet types.
const (
	SDSetStatic  = "STATIC"
	SDSetDynamic = "DYNAMIC"
)

// SDSetPlaceholder is the reserved member substituted when the last real
// member of an SDSet is removed. The directory encoding requires at least one
// value in the member attribute; the placeholder is excluded from evaluation.
const SDSetPlaceholder = "__SENTRA_SDSET_NONE__"

// Normalize returns the canonical (upper-cased, trimmed) form of an entity
// name.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// NormalizeAll returns the canonical form of each name.
func NormalizeAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, Normalize(n))
	}
	return out
}

// Constraint holds temporal activation restrictions for a role or an
// assignment. Zero values mean "unrestricted" for that dimension.
type Constraint struct {
	BeginDate string `json:"beginDate,omitempty"` // YYYYMMDD
	EndDate   string `json:"endDate,omitempty"`   // YYYYMMDD
	BeginTime string `json:"beginTime,omitempty"` // HHMM
	EndTime   string `json:"endTime,omitempty"`   // HHMM
	DayMask   string `json:"dayMask,omitempty"`   // subset of "1234567", 1=Sunday
	Timeout   int    `json:"timeout,omitempty"`   // max inactivity, minutes
}

// IsEmpty reports whether no temporal restriction is set.
func (c Constraint) IsEmpty() bool {
	return c.BeginDate == "" && c.EndDate == "" && c.BeginTime == "" &&
		c.EndTime == "" && c.DayMask == "" && c.Timeout == 0
}

// ValidAt reports whether the constraint permits activation at the given
// instant.
func (c Constraint) ValidAt(t time.Time) bool {
	date := t.Format("20060102")
	if c.BeginDate != "" && date < c.BeginDate {
		return false
	}
	if c.EndDate != "" && date > c.EndDate {
		return false
	}
	clock := t.Format("1504")
	if c.BeginTime != "" && clock < c.BeginTime {
		return false
	}
	if c.EndTime != "" && clock > c.EndTime {
		return false
	}
	if c.DayMask != "" {
		// time.Weekday: Sunday == 0; mask digits are 1-based.
		day := byte('1' + t.Weekday())
		if !strings.ContainsRune(c.DayMask, rune(day)) {
			return false
		}
	}
	return true
}

// Relationship is a directed hierarchy edge: the child inherits from the
// parent. Both names are stored upper-cased.
type Relationship struct {
	Child  string `json:"child"`
	Parent string `json:"parent"`
}

// Role is a node in the RBAC role hierarchy.
type Role struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Parent      string     `json:"parent,omitempty"` // convenience single-parent field
	Parents     []string   `json:"parents,omitempty"`
	Children    []string   `json:"children,omitempty"`
	Constraint  Constraint `json:"constraint,omitempty"`
	Occupants   []string   `json:"occupants,omitempty"` // directly assigned user IDs
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
}

// AdminRole is a node in the ARBAC administrative role hierarchy. On top of a
// regular role it carries the administrative scope: the org-unit pools it may
// manage and inclusive/exclusive range bounds on the role pool.
type AdminRole struct {
	Role
	UserOUs        []string `json:"userOus,omitempty"` // USER org units administered
	PermOUs        []string `json:"permOus,omitempty"` // PERM org units administered
	BeginRange     string   `json:"beginRange,omitempty"`
	EndRange       string   `json:"endRange,omitempty"`
	BeginInclusive bool     `json:"beginInclusive,omitempty"`
	EndInclusive   bool     `json:"endInclusive,omitempty"`
}

// OrgUnit is a node in one of the two org-unit hierarchies (USER or PERM).
type OrgUnit struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Type        string    `json:"type"` // USER | PERM
	Description string    `json:"description,omitempty"`
	Parents     []string  `json:"parents,omitempty"`
	Children    []string  `json:"children,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SDSet is a named separation-of-duty constraint: at most Cardinality-1 of
// the member roles may be simultaneously assigned (STATIC) or activated in
// one session (DYNAMIC).
type SDSet struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	Name        string          `json:"name"`
	Type        string          `json:"type"` // STATIC | DYNAMIC
	Description string          `json:"description,omitempty"`
	Members     map[string]bool `json:"members"`
	Cardinality int             `json:"cardinality"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// MemberNames returns the member role names excluding the reserved
// placeholder.
func (s *SDSet) MemberNames() []string {
	out := make([]string, 0, len(s.Members))
	for m := range s.Members {
		if m == SDSetPlaceholder {
			continue
		}
		out = append(out, m)
	}
	return out
}

// PermObj is a protected object, scoped to a PERM org unit. Operations on it
// are modeled as Permission records.
type PermObj struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	OrgUnit     string    `json:"orgUnit"`
	Description string    `json:"description,omitempty"`
	IsAdmin     bool      `json:"isAdmin,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Permission is an (object, operation[, objectId]) triple with its grants.
type Permission struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	ObjName   string    `json:"objName"`
	OpName    string    `json:"opName"`
	ObjID     string    `json:"objId,omitempty"`
	IsAdmin   bool      `json:"isAdmin,omitempty"` // ARBAC permission when true
	Roles     []string  `json:"roles,omitempty"`   // granted role names
	Users     []string  `json:"users,omitempty"`   // directly granted user IDs
	AttrSets  []string  `json:"attrSets,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Ident returns the canonical "OBJECT.OPERATION[.OBJID]" identity of the
// permission.
func (p *Permission) Ident() string {
	ident := Normalize(p.ObjName) + "." + Normalize(p.OpName)
	if p.ObjID != "" {
		ident += "." + Normalize(p.ObjID)
	}
	return ident
}

// RoleConstraint is a key/value restriction attached to a user-role
// assignment, e.g. relative to a permission attribute set.
type RoleConstraint struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// UserRole links a user to a role, optionally overriding the role's default
// temporal constraint.
type UserRole struct {
	UserID      string           `json:"userId"`
	Name        string           `json:"name"` // role name
	Constraint  Constraint       `json:"constraint,omitempty"`
	Constraints []RoleConstraint `json:"constraints,omitempty"`
}

// UserAdminRole links a user to an administrative role, with the admin scope
// copied from the role declaration at assignment time.
type UserAdminRole struct {
	UserRole
	UserOUs []string `json:"userOus,omitempty"`
	PermOUs []string `json:"permOus,omitempty"`
}

// User is a directory user entity.
type User struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenantId"`
	UserID     string          `json:"userId"` // login identifier
	OrgUnit    string          `json:"orgUnit,omitempty"`
	Roles      []UserRole      `json:"roles,omitempty"`
	AdminRoles []UserAdminRole `json:"adminRoles,omitempty"`
	Status     string          `json:"status,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Session is the ephemeral product of authentication/activation. It is never
// persisted; it holds the subset of the user's roles actually activated,
// after temporal and DSD filtering.
type Session struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenantId"`
	UserID       string           `json:"userId"`
	IsGroup      bool             `json:"isGroup,omitempty"` // group sessions carry no user-direct grants
	Roles        []UserRole       `json:"roles,omitempty"`
	AdminRoles   []UserAdminRole  `json:"adminRoles,omitempty"`
	Warnings     []SessionWarning `json:"warnings,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	LastAccessAt time.Time        `json:"lastAccessAt"`
}

// SessionWarning records a role that was requested but not activated, e.g.
// because a DSD constraint excluded it.
type SessionWarning struct {
	Name string `json:"name"` // role name
	Msg  string `json:"msg"`
	Type string `json:"type"` // "DSD", "TEMPORAL" or "NOT_ASSIGNED"
}

// ActiveRoleNames returns the names of the session's activated RBAC roles.
func (s *Session) ActiveRoleNames() []string {
	out := make([]string, 0, len(s.Roles))
	for _, r := range s.Roles {
		out = append(out, Normalize(r.Name))
	}
	return out
}

// ActiveAdminRoleNames returns the names of the session's activated ARBAC
// roles.
func (s *Session) ActiveAdminRoleNames() []string {
	out := make([]string, 0, len(s.AdminRoles))
	for _, r := range s.AdminRoles {
		out = append(out, Normalize(r.Name))
	}
	return out
}
