// Package ldap implements the Directory contract against an LDAP server.
// Entities live under per-tenant subtrees; complex nested values (temporal
// constraints, per-user role assignments) are carried as JSON attribute
// values so the schema stays flat.
package ldap

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"

	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/store"
	"github.com/platformbuilds/sentra-core/pkg/logger"
)

const (
	containerRoles      = "ou=Roles"
	containerAdminRoles = "ou=AdminRoles"
	containerOrgUnits   = "ou=OrgUnits"
	containerSDSets     = "ou=Constraints"
	containerPermObjs   = "ou=Objects"
	containerPerms      = "ou=Permissions"
	containerUsers      = "ou=Users"
	containerHier       = "ou=Hierarchies"

	attrID           = "sentraId"
	attrDescription  = "description"
	attrParent       = "sentraParent"
	attrOccupant     = "sentraOccupant"
	attrConstraint   = "sentraConstraint"
	attrType         = "sentraType"
	attrMember       = "sentraMember"
	attrCardinality  = "sentraCardinality"
	attrOrgUnit      = "sentraOrgUnit"
	attrUserOU       = "sentraUserOU"
	attrPermOU       = "sentraPermOU"
	attrRange        = "sentraRange"
	attrRole         = "sentraRole"
	attrUser         = "sentraUser"
	attrAttrSet      = "sentraAttrSet"
	attrObjName      = "sentraObjName"
	attrOpName       = "sentraOpName"
	attrObjID        = "sentraObjId"
	attrAdmin        = "sentraAdmin"
	attrStatus       = "sentraStatus"
	attrRelationship = "sentraRelationship"
	attrRoleAsgn     = "sentraRoleAssignment"
	attrAdminAsgn    = "sentraAdminRoleAssignment"
	attrCreatedAt    = "sentraCreatedAt"
	attrUpdatedAt    = "sentraUpdatedAt"

	timeLayout = "20060102150405Z"
)

// Config holds the connection settings for the backing directory server.
type Config struct {
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string
}

// Store talks to the directory one short-lived connection per operation,
// the same way the authenticator side of the platform does.
type Store struct {
	cfg    Config
	logger logger.Logger
}

var _ store.Directory = (*Store)(nil)

func New(cfg Config, log logger.Logger) *Store {
	return &Store{cfg: cfg, logger: log}
}

func (s *Store) dial() (*ldap.Conn, error) {
	conn, err := ldap.DialURL(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("LDAP connection failed: %w", err)
	}
	if s.cfg.BindDN != "" {
		if err := conn.Bind(s.cfg.BindDN, s.cfg.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("LDAP bind failed: %w", err)
		}
	}
	return conn, nil
}

func (s *Store) tenantDN(tenantID, container string) string {
	if tenantID == "" {
		tenantID = "default"
	}
	return fmt.Sprintf("%s,ou=%s,%s", container, ldap.EscapeFilter(tenantID), s.cfg.BaseDN)
}

func entryDN(cn, containerDN string) string {
	return fmt.Sprintf("cn=%s,%s", ldap.EscapeDN(cn), containerDN)
}

func sysErr(op string, err error) error {
	return &store.SystemError{Op: op, Err: err}
}

// mapErr translates directory result codes into the store error taxonomy.
func mapErr(op, entity, key, tenant string, err error) error {
	if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		return &store.NotFoundError{Entity: entity, Key: key, Tenant: tenant}
	}
	if ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists) {
		return store.ErrAlreadyExists
	}
	return sysErr(op, err)
}

func (s *Store) searchOne(conn *ldap.Conn, baseDN, filter string, attrs []string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeSingleLevel,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attrs,
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return nil, err
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	return res.Entries[0], nil
}

func (s *Store) searchAll(conn *ldap.Conn, baseDN, filter string, attrs []string) ([]*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeSingleLevel,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attrs,
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, nil
		}
		return nil, err
	}
	return res.Entries, nil
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func addIfSet(req *ldap.AddRequest, attr string, values ...string) {
	var kept []string
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) > 0 {
		req.Attribute(attr, kept)
	}
}

func constraintJSON(c models.Constraint) string {
	if c.IsEmpty() {
		return ""
	}
	b, _ := json.Marshal(c)
	return string(b)
}

func decodeConstraint(v string) models.Constraint {
	var c models.Constraint
	if v != "" {
		_ = json.Unmarshal([]byte(v), &c)
	}
	return c
}

/* -------------------------------- roles -------------------------------- */

var roleAttrs = []string{"cn", attrID, attrDescription, attrParent, attrOccupant, attrConstraint, attrCreatedAt, attrUpdatedAt}

func (s *Store) entryToRole(e *ldap.Entry, tenantID string) *models.Role {
	return &models.Role{
		ID:          e.GetAttributeValue(attrID),
		TenantID:    tenantID,
		Name:        e.GetAttributeValue("cn"),
		Description: e.GetAttributeValue(attrDescription),
		Parents:     e.GetAttributeValues(attrParent),
		Occupants:   e.GetAttributeValues(attrOccupant),
		Constraint:  decodeConstraint(e.GetAttributeValue(attrConstraint)),
		CreatedAt:   parseTime(e.GetAttributeValue(attrCreatedAt)),
		UpdatedAt:   parseTime(e.GetAttributeValue(attrUpdatedAt)),
	}
}

func (s *Store) CreateRole(ctx context.Context, role *models.Role) (*models.Role, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("role.create", err)
	}
	defer conn.Close()

	stored := *role
	stored.ID = uuid.NewString()
	stored.Name = models.Normalize(role.Name)
	stored.Parents = models.NormalizeAll(role.Parents)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	dn := entryDN(stored.Name, s.tenantDN(role.TenantID, containerRoles))
	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"top", "sentraRole"})
	req.Attribute("cn", []string{stored.Name})
	req.Attribute(attrID, []string{stored.ID})
	req.Attribute(attrCreatedAt, []string{now.Format(timeLayout)})
	req.Attribute(attrUpdatedAt, []string{now.Format(timeLayout)})
	addIfSet(req, attrDescription, stored.Description)
	addIfSet(req, attrParent, stored.Parents...)
	addIfSet(req, attrOccupant, stored.Occupants...)
	addIfSet(req, attrConstraint, constraintJSON(stored.Constraint))

	if err := conn.Add(req); err != nil {
		return nil, mapErr("role.create", "role", stored.Name, role.TenantID, err)
	}
	return &stored, nil
}

func (s *Store) GetRole(ctx context.Context, tenantID, name string) (*models.Role, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("role.get", err)
	}
	defer conn.Close()

	key := models.Normalize(name)
	entry, err := s.searchOne(conn, s.tenantDN(tenantID, containerRoles),
		fmt.Sprintf("(&(objectClass=sentraRole)(cn=%s))", ldap.EscapeFilter(key)), roleAttrs)
	if err != nil {
		return nil, mapErr("role.get", "role", key, tenantID, err)
	}
	if entry == nil {
		return nil, &store.NotFoundError{Entity: "role", Key: key, Tenant: tenantID}
	}
	return s.entryToRole(entry, tenantID), nil
}

func (s *Store) UpdateRole(ctx context.Context, role *models.Role) (*models.Role, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("role.update", err)
	}
	defer conn.Close()

	key := models.Normalize(role.Name)
	dn := entryDN(key, s.tenantDN(role.TenantID, containerRoles))
	req := ldap.NewModifyRequest(dn, nil)
	if role.Description != "" {
		req.Replace(attrDescription, []string{role.Description})
	}
	if role.Parents != nil {
		req.Replace(attrParent, models.NormalizeAll(role.Parents))
	}
	if role.Occupants != nil {
		req.Replace(attrOccupant, role.Occupants)
	}
	if !role.Constraint.IsEmpty() {
		req.Replace(attrConstraint, []string{constraintJSON(role.Constraint)})
	}
	req.Replace(attrUpdatedAt, []string{time.Now().UTC().Format(timeLayout)})

	if err := conn.Modify(req); err != nil {
		return nil, mapErr("role.update", "role", key, role.TenantID, err)
	}
	return s.GetRole(ctx, role.TenantID, key)
}

func (s *Store) DeleteRole(ctx context.Context, tenantID, name string) error {
	return s.deleteEntry("role", tenantID, containerRoles, models.Normalize(name))
}

func (s *Store) ListRoles(ctx context.Context, tenantID string) ([]*models.Role, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("role.list", err)
	}
	defer conn.Close()

	entries, err := s.searchAll(conn, s.tenantDN(tenantID, containerRoles), "(objectClass=sentraRole)", roleAttrs)
	if err != nil {
		return nil, sysErr("role.list", err)
	}
	out := make([]*models.Role, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.entryToRole(e, tenantID))
	}
	return out, nil
}

func (s *Store) deleteEntry(entity, tenantID, container, cn string) error {
	conn, err := s.dial()
	if err != nil {
		return sysErr(entity+".delete", err)
	}
	defer conn.Close()

	dn := entryDN(cn, s.tenantDN(tenantID, container))
	if err := conn.Del(ldap.NewDelRequest(dn, nil)); err != nil {
		return mapErr(entity+".delete", entity, cn, tenantID, err)
	}
	return nil
}

/* ----------------------------- admin roles ------------------------------ */

var adminRoleAttrs = []string{"cn", attrID, attrDescription, attrParent, attrOccupant, attrConstraint,
	attrUserOU, attrPermOU, attrRange, attrCreatedAt, attrUpdatedAt}

func (s *Store) entryToAdminRole(e *ldap.Entry, tenantID string) *models.AdminRole {
	ar := &models.AdminRole{Role: *s.entryToRole(e, tenantID)}
	ar.UserOUs = e.GetAttributeValues(attrUserOU)
	ar.PermOUs = e.GetAttributeValues(attrPermOU)
	decodeRange(e.GetAttributeValue(attrRange), ar)
	return ar
}

// encodeRange packs the authority range as "begin:end:beginIncl:endIncl".
func encodeRange(ar *models.AdminRole) string {
	if ar.BeginRange == "" && ar.EndRange == "" {
		return ""
	}
	return strings.Join([]string{
		ar.BeginRange, ar.EndRange,
		strconv.FormatBool(ar.BeginInclusive), strconv.FormatBool(ar.EndInclusive),
	}, ":")
}

func decodeRange(v string, ar *models.AdminRole) {
	parts := strings.Split(v, ":")
	if len(parts) != 4 {
		return
	}
	ar.BeginRange = parts[0]
	ar.EndRange = parts[1]
	ar.BeginInclusive, _ = strconv.ParseBool(parts[2])
	ar.EndInclusive, _ = strconv.ParseBool(parts[3])
}

func (s *Store) CreateAdminRole(ctx context.Context, role *models.AdminRole) (*models.AdminRole, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("adminrole.create", err)
	}
	defer conn.Close()

	stored := *role
	stored.ID = uuid.NewString()
	stored.Name = models.Normalize(role.Name)
	stored.Parents = models.NormalizeAll(role.Parents)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	dn := entryDN(stored.Name, s.tenantDN(role.TenantID, containerAdminRoles))
	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"top", "sentraAdminRole"})
	req.Attribute("cn", []string{stored.Name})
	req.Attribute(attrID, []string{stored.ID})
	req.Attribute(attrCreatedAt, []string{now.Format(timeLayout)})
	req.Attribute(attrUpdatedAt, []string{now.Format(timeLayout)})
	addIfSet(req, attrDescription, stored.Description)
	addIfSet(req, attrParent, stored.Parents...)
	addIfSet(req, attrOccupant, stored.Occupants...)
	addIfSet(req, attrConstraint, constraintJSON(stored.Constraint))
	addIfSet(req, attrUserOU, models.NormalizeAll(stored.UserOUs)...)
	addIfSet(req, attrPermOU, models.NormalizeAll(stored.PermOUs)...)
	addIfSet(req, attrRange, encodeRange(&stored))

	if err := conn.Add(req); err != nil {
		return nil, mapErr("adminrole.create", "adminrole", stored.Name, role.TenantID, err)
	}
	return &stored, nil
}

func (s *Store) GetAdminRole(ctx context.Context, tenantID, name string) (*models.AdminRole, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("adminrole.get", err)
	}
	defer conn.Close()

	key := models.Normalize(name)
	entry, err := s.searchOne(conn, s.tenantDN(tenantID, containerAdminRoles),
		fmt.Sprintf("(&(objectClass=sentraAdminRole)(cn=%s))", ldap.EscapeFilter(key)), adminRoleAttrs)
	if err != nil {
		return nil, mapErr("adminrole.get", "adminrole", key, tenantID, err)
	}
	if entry == nil {
		return nil, &store.NotFoundError{Entity: "adminrole", Key: key, Tenant: tenantID}
	}
	return s.entryToAdminRole(entry, tenantID), nil
}

func (s *Store) UpdateAdminRole(ctx context.Context, role *models.AdminRole) (*models.AdminRole, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("adminrole.update", err)
	}
	defer conn.Close()

	key := models.Normalize(role.Name)
	dn := entryDN(key, s.tenantDN(role.TenantID, containerAdminRoles))
	req := ldap.NewModifyRequest(dn, nil)
	if role.Description != "" {
		req.Replace(attrDescription, []string{role.Description})
	}
	if role.Parents != nil {
		req.Replace(attrParent, models.NormalizeAll(role.Parents))
	}
	if role.Occupants != nil {
		req.Replace(attrOccupant, role.Occupants)
	}
	if !role.Constraint.IsEmpty() {
		req.Replace(attrConstraint, []string{constraintJSON(role.Constraint)})
	}
	if role.UserOUs != nil {
		req.Replace(attrUserOU, models.NormalizeAll(role.UserOUs))
	}
	if role.PermOUs != nil {
		req.Replace(attrPermOU, models.NormalizeAll(role.PermOUs))
	}
	if r := encodeRange(role); r != "" {
		req.Replace(attrRange, []string{r})
	}
	req.Replace(attrUpdatedAt, []string{time.Now().UTC().Format(timeLayout)})

	if err := conn.Modify(req); err != nil {
		return nil, mapErr("adminrole.update", "adminrole", key, role.TenantID, err)
	}
	return s.GetAdminRole(ctx, role.TenantID, key)
}

func (s *Store) DeleteAdminRole(ctx context.Context, tenantID, name string) error {
	return s.deleteEntry("adminrole", tenantID, containerAdminRoles, models.Normalize(name))
}

func (s *Store) ListAdminRoles(ctx context.Context, tenantID string) ([]*models.AdminRole, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("adminrole.list", err)
	}
	defer conn.Close()

	entries, err := s.searchAll(conn, s.tenantDN(tenantID, containerAdminRoles), "(objectClass=sentraAdminRole)", adminRoleAttrs)
	if err != nil {
		return nil, sysErr("adminrole.list", err)
	}
	out := make([]*models.AdminRole, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.entryToAdminRole(e, tenantID))
	}
	return out, nil
}

/* ------------------------------ org units ------------------------------- */

var orgUnitAttrs = []string{"cn", attrID, attrDescription, attrType, attrParent, attrCreatedAt, attrUpdatedAt}

func ouCN(typ, name string) string {
	return strings.ToUpper(typ) + ":" + models.Normalize(name)
}

func (s *Store) entryToOrgUnit(e *ldap.Entry, tenantID string) *models.OrgUnit {
	cn := e.GetAttributeValue("cn")
	name := cn
	if i := strings.IndexByte(cn, ':'); i >= 0 {
		name = cn[i+1:]
	}
	return &models.OrgUnit{
		ID:          e.GetAttributeValue(attrID),
		TenantID:    tenantID,
		Name:        name,
		Type:        e.GetAttributeValue(attrType),
		Description: e.GetAttributeValue(attrDescription),
		Parents:     e.GetAttributeValues(attrParent),
		CreatedAt:   parseTime(e.GetAttributeValue(attrCreatedAt)),
		UpdatedAt:   parseTime(e.GetAttributeValue(attrUpdatedAt)),
	}
}

func (s *Store) CreateOrgUnit(ctx context.Context, ou *models.OrgUnit) (*models.OrgUnit, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("orgunit.create", err)
	}
	defer conn.Close()

	stored := *ou
	stored.ID = uuid.NewString()
	stored.Name = models.Normalize(ou.Name)
	stored.Type = strings.ToUpper(ou.Type)
	stored.Parents = models.NormalizeAll(ou.Parents)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	dn := entryDN(ouCN(stored.Type, stored.Name), s.tenantDN(ou.TenantID, containerOrgUnits))
	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"top", "sentraOrgUnit"})
	req.Attribute("cn", []string{ouCN(stored.Type, stored.Name)})
	req.Attribute(attrID, []string{stored.ID})
	req.Attribute(attrType, []string{stored.Type})
	req.Attribute(attrCreatedAt, []string{now.Format(timeLayout)})
	req.Attribute(attrUpdatedAt, []string{now.Format(timeLayout)})
	addIfSet(req, attrDescription, stored.Description)
	addIfSet(req, attrParent, stored.Parents...)

	if err := conn.Add(req); err != nil {
		return nil, mapErr("orgunit.create", "orgunit", stored.Name, ou.TenantID, err)
	}
	return &stored, nil
}

func (s *Store) GetOrgUnit(ctx context.Context, tenantID, typ, name string) (*models.OrgUnit, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("orgunit.get", err)
	}
	defer conn.Close()

	cn := ouCN(typ, name)
	entry, err := s.searchOne(conn, s.tenantDN(tenantID, containerOrgUnits),
		fmt.Sprintf("(&(objectClass=sentraOrgUnit)(cn=%s))", ldap.EscapeFilter(cn)), orgUnitAttrs)
	if err != nil {
		return nil, mapErr("orgunit.get", "orgunit", cn, tenantID, err)
	}
	if entry == nil {
		return nil, &store.NotFoundError{Entity: "orgunit", Key: cn, Tenant: tenantID}
	}
	return s.entryToOrgUnit(entry, tenantID), nil
}

func (s *Store) UpdateOrgUnit(ctx context.Context, ou *models.OrgUnit) (*models.OrgUnit, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("orgunit.update", err)
	}
	defer conn.Close()

	cn := ouCN(ou.Type, ou.Name)
	dn := entryDN(cn, s.tenantDN(ou.TenantID, containerOrgUnits))
	req := ldap.NewModifyRequest(dn, nil)
	if ou.Description != "" {
		req.Replace(attrDescription, []string{ou.Description})
	}
	if ou.Parents != nil {
		req.Replace(attrParent, models.NormalizeAll(ou.Parents))
	}
	req.Replace(attrUpdatedAt, []string{time.Now().UTC().Format(timeLayout)})

	if err := conn.Modify(req); err != nil {
		return nil, mapErr("orgunit.update", "orgunit", cn, ou.TenantID, err)
	}
	return s.GetOrgUnit(ctx, ou.TenantID, ou.Type, ou.Name)
}

func (s *Store) DeleteOrgUnit(ctx context.Context, tenantID, typ, name string) error {
	return s.deleteEntry("orgunit", tenantID, containerOrgUnits, ouCN(typ, name))
}

func (s *Store) ListOrgUnits(ctx context.Context, tenantID, typ string) ([]*models.OrgUnit, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("orgunit.list", err)
	}
	defer conn.Close()

	filter := "(objectClass=sentraOrgUnit)"
	if typ != "" {
		filter = fmt.Sprintf("(&(objectClass=sentraOrgUnit)(%s=%s))", attrType, ldap.EscapeFilter(strings.ToUpper(typ)))
	}
	entries, err := s.searchAll(conn, s.tenantDN(tenantID, containerOrgUnits), filter, orgUnitAttrs)
	if err != nil {
		return nil, sysErr("orgunit.list", err)
	}
	out := make([]*models.OrgUnit, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.entryToOrgUnit(e, tenantID))
	}
	return out, nil
}

/* -------------------------------- SD sets ------------------------------- */

var sdsetAttrs = []string{"cn", attrID, attrDescription, attrType, attrMember, attrCardinality, attrCreatedAt, attrUpdatedAt}

func (s *Store) entryToSDSet(e *ldap.Entry, tenantID string) *models.SDSet {
	members := make(map[string]bool)
	for _, m := range e.GetAttributeValues(attrMember) {
		members[m] = true
	}
	card, _ := strconv.Atoi(e.GetAttributeValue(attrCardinality))
	return &models.SDSet{
		ID:          e.GetAttributeValue(attrID),
		TenantID:    tenantID,
		Name:        e.GetAttributeValue("cn"),
		Type:        e.GetAttributeValue(attrType),
		Description: e.GetAttributeValue(attrDescription),
		Members:     members,
		Cardinality: card,
		CreatedAt:   parseTime(e.GetAttributeValue(attrCreatedAt)),
		UpdatedAt:   parseTime(e.GetAttributeValue(attrUpdatedAt)),
	}
}

func memberValues(members map[string]bool) []string {
	out := make([]string, 0, len(members))
	for m, ok := range members {
		if ok {
			out = append(out, models.Normalize(m))
		}
	}
	sort.Strings(out)
	return out
}

func (s *Store) CreateSDSet(ctx context.Context, set *models.SDSet) (*models.SDSet, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("sdset.create", err)
	}
	defer conn.Close()

	stored := *set
	stored.ID = uuid.NewString()
	stored.Name = models.Normalize(set.Name)
	stored.Type = strings.ToUpper(set.Type)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	dn := entryDN(stored.Name, s.tenantDN(set.TenantID, containerSDSets))
	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"top", "sentraSDSet"})
	req.Attribute("cn", []string{stored.Name})
	req.Attribute(attrID, []string{stored.ID})
	req.Attribute(attrType, []string{stored.Type})
	req.Attribute(attrCardinality, []string{strconv.Itoa(stored.Cardinality)})
	req.Attribute(attrCreatedAt, []string{now.Format(timeLayout)})
	req.Attribute(attrUpdatedAt, []string{now.Format(timeLayout)})
	addIfSet(req, attrDescription, stored.Description)
	addIfSet(req, attrMember, memberValues(stored.Members)...)

	if err := conn.Add(req); err != nil {
		return nil, mapErr("sdset.create", "sdset", stored.Name, set.TenantID, err)
	}
	return &stored, nil
}

func (s *Store) GetSDSet(ctx context.Context, tenantID, name string) (*models.SDSet, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("sdset.get", err)
	}
	defer conn.Close()

	key := models.Normalize(name)
	entry, err := s.searchOne(conn, s.tenantDN(tenantID, containerSDSets),
		fmt.Sprintf("(&(objectClass=sentraSDSet)(cn=%s))", ldap.EscapeFilter(key)), sdsetAttrs)
	if err != nil {
		return nil, mapErr("sdset.get", "sdset", key, tenantID, err)
	}
	if entry == nil {
		return nil, &store.NotFoundError{Entity: "sdset", Key: key, Tenant: tenantID}
	}
	return s.entryToSDSet(entry, tenantID), nil
}

func (s *Store) UpdateSDSet(ctx context.Context, set *models.SDSet) (*models.SDSet, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("sdset.update", err)
	}
	defer conn.Close()

	key := models.Normalize(set.Name)
	dn := entryDN(key, s.tenantDN(set.TenantID, containerSDSets))
	req := ldap.NewModifyRequest(dn, nil)
	if set.Description != "" {
		req.Replace(attrDescription, []string{set.Description})
	}
	if set.Members != nil {
		req.Replace(attrMember, memberValues(set.Members))
	}
	if set.Cardinality != 0 {
		req.Replace(attrCardinality, []string{strconv.Itoa(set.Cardinality)})
	}
	req.Replace(attrUpdatedAt, []string{time.Now().UTC().Format(timeLayout)})

	if err := conn.Modify(req); err != nil {
		return nil, mapErr("sdset.update", "sdset", key, set.TenantID, err)
	}
	return s.GetSDSet(ctx, set.TenantID, key)
}

func (s *Store) DeleteSDSet(ctx context.Context, tenantID, name string) error {
	return s.deleteEntry("sdset", tenantID, containerSDSets, models.Normalize(name))
}

func (s *Store) ListSDSets(ctx context.Context, tenantID, typ string) ([]*models.SDSet, error) {
	return s.searchSDSets(tenantID, typ, "")
}

func (s *Store) SearchSDSetsByMember(ctx context.Context, tenantID, typ, member string) ([]*models.SDSet, error) {
	return s.searchSDSets(tenantID, typ, models.Normalize(member))
}

func (s *Store) searchSDSets(tenantID, typ, member string) ([]*models.SDSet, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("sdset.search", err)
	}
	defer conn.Close()

	clauses := []string{"(objectClass=sentraSDSet)"}
	if typ != "" {
		clauses = append(clauses, fmt.Sprintf("(%s=%s)", attrType, ldap.EscapeFilter(strings.ToUpper(typ))))
	}
	if member != "" {
		clauses = append(clauses, fmt.Sprintf("(%s=%s)", attrMember, ldap.EscapeFilter(member)))
	}
	filter := clauses[0]
	if len(clauses) > 1 {
		filter = "(&" + strings.Join(clauses, "") + ")"
	}

	entries, err := s.searchAll(conn, s.tenantDN(tenantID, containerSDSets), filter, sdsetAttrs)
	if err != nil {
		return nil, sysErr("sdset.search", err)
	}
	out := make([]*models.SDSet, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.entryToSDSet(e, tenantID))
	}
	return out, nil
}

/* --------------------------- permission objects -------------------------- */

var permObjAttrs = []string{"cn", attrID, attrDescription, attrOrgUnit, attrAdmin, attrCreatedAt, attrUpdatedAt}

func (s *Store) entryToPermObj(e *ldap.Entry, tenantID string) *models.PermObj {
	isAdmin, _ := strconv.ParseBool(e.GetAttributeValue(attrAdmin))
	return &models.PermObj{
		ID:          e.GetAttributeValue(attrID),
		TenantID:    tenantID,
		Name:        e.GetAttributeValue("cn"),
		OrgUnit:     e.GetAttributeValue(attrOrgUnit),
		Description: e.GetAttributeValue(attrDescription),
		IsAdmin:     isAdmin,
		CreatedAt:   parseTime(e.GetAttributeValue(attrCreatedAt)),
		UpdatedAt:   parseTime(e.GetAttributeValue(attrUpdatedAt)),
	}
}

func (s *Store) CreatePermObj(ctx context.Context, obj *models.PermObj) (*models.PermObj, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("permobj.create", err)
	}
	defer conn.Close()

	stored := *obj
	stored.ID = uuid.NewString()
	stored.Name = models.Normalize(obj.Name)
	stored.OrgUnit = models.Normalize(obj.OrgUnit)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	dn := entryDN(stored.Name, s.tenantDN(obj.TenantID, containerPermObjs))
	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"top", "sentraPermObj"})
	req.Attribute("cn", []string{stored.Name})
	req.Attribute(attrID, []string{stored.ID})
	req.Attribute(attrCreatedAt, []string{now.Format(timeLayout)})
	req.Attribute(attrUpdatedAt, []string{now.Format(timeLayout)})
	addIfSet(req, attrDescription, stored.Description)
	addIfSet(req, attrOrgUnit, stored.OrgUnit)
	if stored.IsAdmin {
		req.Attribute(attrAdmin, []string{"true"})
	}

	if err := conn.Add(req); err != nil {
		return nil, mapErr("permobj.create", "permobj", stored.Name, obj.TenantID, err)
	}
	return &stored, nil
}

func (s *Store) GetPermObj(ctx context.Context, tenantID, name string) (*models.PermObj, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("permobj.get", err)
	}
	defer conn.Close()

	key := models.Normalize(name)
	entry, err := s.searchOne(conn, s.tenantDN(tenantID, containerPermObjs),
		fmt.Sprintf("(&(objectClass=sentraPermObj)(cn=%s))", ldap.EscapeFilter(key)), permObjAttrs)
	if err != nil {
		return nil, mapErr("permobj.get", "permobj", key, tenantID, err)
	}
	if entry == nil {
		return nil, &store.NotFoundError{Entity: "permobj", Key: key, Tenant: tenantID}
	}
	return s.entryToPermObj(entry, tenantID), nil
}

func (s *Store) UpdatePermObj(ctx context.Context, obj *models.PermObj) (*models.PermObj, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("permobj.update", err)
	}
	defer conn.Close()

	key := models.Normalize(obj.Name)
	dn := entryDN(key, s.tenantDN(obj.TenantID, containerPermObjs))
	req := ldap.NewModifyRequest(dn, nil)
	if obj.Description != "" {
		req.Replace(attrDescription, []string{obj.Description})
	}
	if obj.OrgUnit != "" {
		req.Replace(attrOrgUnit, []string{models.Normalize(obj.OrgUnit)})
	}
	req.Replace(attrUpdatedAt, []string{time.Now().UTC().Format(timeLayout)})

	if err := conn.Modify(req); err != nil {
		return nil, mapErr("permobj.update", "permobj", key, obj.TenantID, err)
	}
	return s.GetPermObj(ctx, obj.TenantID, key)
}

func (s *Store) DeletePermObj(ctx context.Context, tenantID, name string) error {
	return s.deleteEntry("permobj", tenantID, containerPermObjs, models.Normalize(name))
}

/* ------------------------------ permissions ------------------------------ */

var permAttrs = []string{"cn", attrID, attrObjName, attrOpName, attrObjID, attrAdmin,
	attrRole, attrUser, attrAttrSet, attrCreatedAt, attrUpdatedAt}

func permCN(objName, opName, objID string) string {
	cn := models.Normalize(objName) + "." + models.Normalize(opName)
	if objID != "" {
		cn += "." + models.Normalize(objID)
	}
	return cn
}

func (s *Store) entryToPermission(e *ldap.Entry, tenantID string) *models.Permission {
	isAdmin, _ := strconv.ParseBool(e.GetAttributeValue(attrAdmin))
	return &models.Permission{
		ID:        e.GetAttributeValue(attrID),
		TenantID:  tenantID,
		ObjName:   e.GetAttributeValue(attrObjName),
		OpName:    e.GetAttributeValue(attrOpName),
		ObjID:     e.GetAttributeValue(attrObjID),
		IsAdmin:   isAdmin,
		Roles:     e.GetAttributeValues(attrRole),
		Users:     e.GetAttributeValues(attrUser),
		AttrSets:  e.GetAttributeValues(attrAttrSet),
		CreatedAt: parseTime(e.GetAttributeValue(attrCreatedAt)),
		UpdatedAt: parseTime(e.GetAttributeValue(attrUpdatedAt)),
	}
}

func (s *Store) CreatePermission(ctx context.Context, perm *models.Permission) (*models.Permission, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("perm.create", err)
	}
	defer conn.Close()

	stored := *perm
	stored.ID = uuid.NewString()
	stored.ObjName = models.Normalize(perm.ObjName)
	stored.OpName = models.Normalize(perm.OpName)
	stored.ObjID = models.Normalize(perm.ObjID)
	stored.Roles = models.NormalizeAll(perm.Roles)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	cn := permCN(stored.ObjName, stored.OpName, stored.ObjID)
	dn := entryDN(cn, s.tenantDN(perm.TenantID, containerPerms))
	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"top", "sentraPermission"})
	req.Attribute("cn", []string{cn})
	req.Attribute(attrID, []string{stored.ID})
	req.Attribute(attrObjName, []string{stored.ObjName})
	req.Attribute(attrOpName, []string{stored.OpName})
	req.Attribute(attrCreatedAt, []string{now.Format(timeLayout)})
	req.Attribute(attrUpdatedAt, []string{now.Format(timeLayout)})
	addIfSet(req, attrObjID, stored.ObjID)
	addIfSet(req, attrRole, stored.Roles...)
	addIfSet(req, attrUser, stored.Users...)
	addIfSet(req, attrAttrSet, stored.AttrSets...)
	if stored.IsAdmin {
		req.Attribute(attrAdmin, []string{"true"})
	}

	if err := conn.Add(req); err != nil {
		return nil, mapErr("perm.create", "permission", cn, perm.TenantID, err)
	}
	return &stored, nil
}

func (s *Store) GetPermission(ctx context.Context, tenantID, objName, opName, objID string) (*models.Permission, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("perm.get", err)
	}
	defer conn.Close()

	cn := permCN(objName, opName, objID)
	entry, err := s.searchOne(conn, s.tenantDN(tenantID, containerPerms),
		fmt.Sprintf("(&(objectClass=sentraPermission)(cn=%s))", ldap.EscapeFilter(cn)), permAttrs)
	if err != nil {
		return nil, mapErr("perm.get", "permission", cn, tenantID, err)
	}
	if entry == nil {
		return nil, &store.NotFoundError{Entity: "permission", Key: cn, Tenant: tenantID}
	}
	return s.entryToPermission(entry, tenantID), nil
}

func (s *Store) UpdatePermission(ctx context.Context, perm *models.Permission) (*models.Permission, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("perm.update", err)
	}
	defer conn.Close()

	cn := permCN(perm.ObjName, perm.OpName, perm.ObjID)
	dn := entryDN(cn, s.tenantDN(perm.TenantID, containerPerms))
	req := ldap.NewModifyRequest(dn, nil)
	if perm.Roles != nil {
		req.Replace(attrRole, models.NormalizeAll(perm.Roles))
	}
	if perm.Users != nil {
		req.Replace(attrUser, perm.Users)
	}
	if perm.AttrSets != nil {
		req.Replace(attrAttrSet, perm.AttrSets)
	}
	req.Replace(attrUpdatedAt, []string{time.Now().UTC().Format(timeLayout)})

	if err := conn.Modify(req); err != nil {
		return nil, mapErr("perm.update", "permission", cn, perm.TenantID, err)
	}
	return s.GetPermission(ctx, perm.TenantID, perm.ObjName, perm.OpName, perm.ObjID)
}

func (s *Store) DeletePermission(ctx context.Context, tenantID, objName, opName, objID string) error {
	return s.deleteEntry("permission", tenantID, containerPerms, permCN(objName, opName, objID))
}

func (s *Store) ListPermissions(ctx context.Context, tenantID, objName string) ([]*models.Permission, error) {
	filter := "(objectClass=sentraPermission)"
	if objName != "" {
		filter = fmt.Sprintf("(&(objectClass=sentraPermission)(%s=%s))",
			attrObjName, ldap.EscapeFilter(models.Normalize(objName)))
	}
	return s.searchPermissions(tenantID, filter)
}

func (s *Store) SearchPermissionsByRole(ctx context.Context, tenantID, roleName string) ([]*models.Permission, error) {
	filter := fmt.Sprintf("(&(objectClass=sentraPermission)(%s=%s))",
		attrRole, ldap.EscapeFilter(models.Normalize(roleName)))
	return s.searchPermissions(tenantID, filter)
}

func (s *Store) searchPermissions(tenantID, filter string) ([]*models.Permission, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("perm.search", err)
	}
	defer conn.Close()

	entries, err := s.searchAll(conn, s.tenantDN(tenantID, containerPerms), filter, permAttrs)
	if err != nil {
		return nil, sysErr("perm.search", err)
	}
	out := make([]*models.Permission, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.entryToPermission(e, tenantID))
	}
	return out, nil
}

/* --------------------------------- users -------------------------------- */

var userAttrs = []string{"cn", attrID, attrOrgUnit, attrStatus, attrRoleAsgn, attrAdminAsgn, attrCreatedAt, attrUpdatedAt}

func (s *Store) entryToUser(e *ldap.Entry, tenantID string) *models.User {
	u := &models.User{
		ID:        e.GetAttributeValue(attrID),
		TenantID:  tenantID,
		UserID:    e.GetAttributeValue("cn"),
		OrgUnit:   e.GetAttributeValue(attrOrgUnit),
		Status:    e.GetAttributeValue(attrStatus),
		CreatedAt: parseTime(e.GetAttributeValue(attrCreatedAt)),
		UpdatedAt: parseTime(e.GetAttributeValue(attrUpdatedAt)),
	}
	for _, v := range e.GetAttributeValues(attrRoleAsgn) {
		var ur models.UserRole
		if json.Unmarshal([]byte(v), &ur) == nil {
			u.Roles = append(u.Roles, ur)
		}
	}
	for _, v := range e.GetAttributeValues(attrAdminAsgn) {
		var ar models.UserAdminRole
		if json.Unmarshal([]byte(v), &ar) == nil {
			u.AdminRoles = append(u.AdminRoles, ar)
		}
	}
	return u
}

func roleAssignmentValues(roles []models.UserRole) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		b, err := json.Marshal(r)
		if err != nil {
			continue
		}
		out = append(out, string(b))
	}
	return out
}

func adminAssignmentValues(roles []models.UserAdminRole) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		b, err := json.Marshal(r)
		if err != nil {
			continue
		}
		out = append(out, string(b))
	}
	return out
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("user.create", err)
	}
	defer conn.Close()

	stored := *user
	stored.ID = uuid.NewString()
	stored.UserID = models.Normalize(user.UserID)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	dn := entryDN(stored.UserID, s.tenantDN(user.TenantID, containerUsers))
	req := ldap.NewAddRequest(dn, nil)
	req.Attribute("objectClass", []string{"top", "sentraUser"})
	req.Attribute("cn", []string{stored.UserID})
	req.Attribute(attrID, []string{stored.ID})
	req.Attribute(attrCreatedAt, []string{now.Format(timeLayout)})
	req.Attribute(attrUpdatedAt, []string{now.Format(timeLayout)})
	addIfSet(req, attrOrgUnit, models.Normalize(stored.OrgUnit))
	addIfSet(req, attrStatus, stored.Status)
	addIfSet(req, attrRoleAsgn, roleAssignmentValues(stored.Roles)...)
	addIfSet(req, attrAdminAsgn, adminAssignmentValues(stored.AdminRoles)...)

	if err := conn.Add(req); err != nil {
		return nil, mapErr("user.create", "user", stored.UserID, user.TenantID, err)
	}
	return &stored, nil
}

func (s *Store) GetUser(ctx context.Context, tenantID, userID string) (*models.User, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("user.get", err)
	}
	defer conn.Close()

	key := models.Normalize(userID)
	entry, err := s.searchOne(conn, s.tenantDN(tenantID, containerUsers),
		fmt.Sprintf("(&(objectClass=sentraUser)(cn=%s))", ldap.EscapeFilter(key)), userAttrs)
	if err != nil {
		return nil, mapErr("user.get", "user", key, tenantID, err)
	}
	if entry == nil {
		return nil, &store.NotFoundError{Entity: "user", Key: key, Tenant: tenantID}
	}
	return s.entryToUser(entry, tenantID), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("user.update", err)
	}
	defer conn.Close()

	key := models.Normalize(user.UserID)
	dn := entryDN(key, s.tenantDN(user.TenantID, containerUsers))
	req := ldap.NewModifyRequest(dn, nil)
	if user.OrgUnit != "" {
		req.Replace(attrOrgUnit, []string{models.Normalize(user.OrgUnit)})
	}
	if user.Status != "" {
		req.Replace(attrStatus, []string{user.Status})
	}
	if user.Roles != nil {
		req.Replace(attrRoleAsgn, roleAssignmentValues(user.Roles))
	}
	if user.AdminRoles != nil {
		req.Replace(attrAdminAsgn, adminAssignmentValues(user.AdminRoles))
	}
	req.Replace(attrUpdatedAt, []string{time.Now().UTC().Format(timeLayout)})

	if err := conn.Modify(req); err != nil {
		return nil, mapErr("user.update", "user", key, user.TenantID, err)
	}
	return s.GetUser(ctx, user.TenantID, key)
}

func (s *Store) DeleteUser(ctx context.Context, tenantID, userID string) error {
	return s.deleteEntry("user", tenantID, containerUsers, models.Normalize(userID))
}

func (s *Store) ListUsers(ctx context.Context, tenantID string) ([]*models.User, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("user.list", err)
	}
	defer conn.Close()

	entries, err := s.searchAll(conn, s.tenantDN(tenantID, containerUsers), "(objectClass=sentraUser)", userAttrs)
	if err != nil {
		return nil, sysErr("user.list", err)
	}
	out := make([]*models.User, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.entryToUser(e, tenantID))
	}
	return out, nil
}

// AssignedUsers scans user entries for an assignment mentioning the role.
// Assignments are JSON blobs, so the substring filter narrows the candidate
// set server-side and exact matching happens here.
func (s *Store) AssignedUsers(ctx context.Context, tenantID, roleName string) ([]string, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("user.assigned", err)
	}
	defer conn.Close()

	roleName = models.Normalize(roleName)
	filter := fmt.Sprintf("(&(objectClass=sentraUser)(%s=*%s*))",
		attrRoleAsgn, ldap.EscapeFilter(roleName))
	entries, err := s.searchAll(conn, s.tenantDN(tenantID, containerUsers), filter, userAttrs)
	if err != nil {
		return nil, sysErr("user.assigned", err)
	}

	var out []string
	for _, e := range entries {
		u := s.entryToUser(e, tenantID)
		for _, ur := range u.Roles {
			if models.Normalize(ur.Name) == roleName {
				out = append(out, u.UserID)
				break
			}
		}
	}
	return out, nil
}

/* ---------------------------- relationships ------------------------------ */

// Relationships are stored wholesale: one entry per hierarchy type whose
// multi-valued attribute holds every "child|parent" pair. Reads and rewrites
// always cover the full list.

func (s *Store) GetRelationships(ctx context.Context, tenantID, hierarchy string) ([]models.Relationship, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, sysErr("hier.get", err)
	}
	defer conn.Close()

	entry, err := s.searchOne(conn, s.tenantDN(tenantID, containerHier),
		fmt.Sprintf("(&(objectClass=sentraHierarchy)(cn=%s))", ldap.EscapeFilter(hierarchy)),
		[]string{"cn", attrRelationship})
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return []models.Relationship{}, nil
		}
		return nil, sysErr("hier.get", err)
	}
	if entry == nil {
		return []models.Relationship{}, nil
	}

	values := entry.GetAttributeValues(attrRelationship)
	rels := make([]models.Relationship, 0, len(values))
	for _, v := range values {
		child, parent, ok := strings.Cut(v, "|")
		if !ok {
			s.logger.Warn("Skipping malformed relationship value", "hierarchy", hierarchy, "value", v)
			continue
		}
		rels = append(rels, models.Relationship{Child: child, Parent: parent})
	}
	return rels, nil
}

func (s *Store) SetRelationships(ctx context.Context, tenantID, hierarchy string, rels []models.Relationship) error {
	conn, err := s.dial()
	if err != nil {
		return sysErr("hier.set", err)
	}
	defer conn.Close()

	values := make([]string, 0, len(rels))
	for _, r := range rels {
		values = append(values, r.Child+"|"+r.Parent)
	}

	dn := entryDN(hierarchy, s.tenantDN(tenantID, containerHier))
	mod := ldap.NewModifyRequest(dn, nil)
	mod.Replace(attrRelationship, values)
	err = conn.Modify(mod)
	if err == nil {
		return nil
	}
	if !ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		return sysErr("hier.set", err)
	}

	// First write for this hierarchy type; create the entry.
	add := ldap.NewAddRequest(dn, nil)
	add.Attribute("objectClass", []string{"top", "sentraHierarchy"})
	add.Attribute("cn", []string{hierarchy})
	addIfSet(add, attrRelationship, values...)
	if err := conn.Add(add); err != nil {
		return sysErr("hier.set", err)
	}
	return nil
}
