// Package seed loads a declarative policy fixture from YAML and applies it
// through the administrative layer, so every invariant (hierarchy cycles,
// separation of duty, grant targets) is enforced during bootstrap exactly as
// it would be at runtime.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/store"
)

type Policy struct {
	Tenant      string           `yaml:"tenant"`
	OrgUnits    []OrgUnitSeed    `yaml:"orgUnits"`
	Roles       []RoleSeed       `yaml:"roles"`
	AdminRoles  []AdminRoleSeed  `yaml:"adminRoles"`
	Users       []UserSeed       `yaml:"users"`
	SDSets      []SDSetSeed      `yaml:"sdSets"`
	PermObjs    []PermObjSeed    `yaml:"permObjs"`
	Permissions []PermissionSeed `yaml:"permissions"`
	Assignments []AssignmentSeed `yaml:"assignments"`
}

type OrgUnitSeed struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Parents []string `yaml:"parents"`
}

type RoleSeed struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Parents     []string `yaml:"parents"`
}

type AdminRoleSeed struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Parents     []string `yaml:"parents"`
	UserOUs     []string `yaml:"userOus"`
	PermOUs     []string `yaml:"permOus"`
}

type UserSeed struct {
	UserID  string `yaml:"userId"`
	Name    string `yaml:"name"`
	OrgUnit string `yaml:"orgUnit"`
}

type SDSetSeed struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Members     []string `yaml:"members"`
	Cardinality int      `yaml:"cardinality"`
}

type PermObjSeed struct {
	Name    string `yaml:"name"`
	OrgUnit string `yaml:"orgUnit"`
	IsAdmin bool   `yaml:"isAdmin"`
}

type PermissionSeed struct {
	Object    string   `yaml:"object"`
	Operation string   `yaml:"operation"`
	ObjectID  string   `yaml:"objectId"`
	IsAdmin   bool     `yaml:"isAdmin"`
	Roles     []string `yaml:"roles"`
	Users     []string `yaml:"users"`
}

type AssignmentSeed struct {
	UserID string `yaml:"userId"`
	Role   string `yaml:"role"`
	Admin  bool   `yaml:"admin"`
}

// LoadFile reads and parses a policy fixture.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &p, nil
}

// Apply pushes the fixture through the admin layer in dependency order.
// Entities that already exist are skipped, so re-running bootstrap against a
// populated directory is safe.
func Apply(ctx context.Context, svc *admin.Service, p *Policy, log logging.Logger) error {
	tenant := p.Tenant

	for _, ou := range p.OrgUnits {
		_, err := svc.CreateOrgUnit(ctx, &models.OrgUnit{
			TenantID: tenant, Name: ou.Name, Type: ou.Type, Parents: ou.Parents,
		})
		if skip, err := skipExisting(err); err != nil {
			return fmt.Errorf("org unit %s: %w", ou.Name, err)
		} else if skip {
			log.Debug("Org unit already present, skipping", "name", ou.Name)
		}
	}

	for _, r := range p.Roles {
		_, err := svc.CreateRole(ctx, &models.Role{
			TenantID: tenant, Name: r.Name, Description: r.Description, Parents: r.Parents,
		})
		if skip, err := skipExisting(err); err != nil {
			return fmt.Errorf("role %s: %w", r.Name, err)
		} else if skip {
			log.Debug("Role already present, skipping", "name", r.Name)
		}
	}

	for _, r := range p.AdminRoles {
		_, err := svc.CreateAdminRole(ctx, &models.AdminRole{
			Role: models.Role{
				TenantID: tenant, Name: r.Name, Description: r.Description, Parents: r.Parents,
			},
			UserOUs: r.UserOUs,
			PermOUs: r.PermOUs,
		})
		if skip, err := skipExisting(err); err != nil {
			return fmt.Errorf("admin role %s: %w", r.Name, err)
		} else if skip {
			log.Debug("Admin role already present, skipping", "name", r.Name)
		}
	}

	for _, u := range p.Users {
		_, err := svc.CreateUser(ctx, &models.User{
			TenantID: tenant, UserID: u.UserID, OrgUnit: u.OrgUnit,
		})
		if skip, err := skipExisting(err); err != nil {
			return fmt.Errorf("user %s: %w", u.UserID, err)
		} else if skip {
			log.Debug("User already present, skipping", "userId", u.UserID)
		}
	}

	for _, s := range p.SDSets {
		members := make(map[string]bool, len(s.Members))
		for _, m := range s.Members {
			members[models.Normalize(m)] = true
		}
		_, err := svc.CreateSDSet(ctx, &models.SDSet{
			TenantID: tenant, Name: s.Name, Type: s.Type,
			Members: members, Cardinality: s.Cardinality,
		})
		if skip, err := skipExisting(err); err != nil {
			return fmt.Errorf("SD set %s: %w", s.Name, err)
		} else if skip {
			log.Debug("SD set already present, skipping", "name", s.Name)
		}
	}

	for _, o := range p.PermObjs {
		_, err := svc.CreatePermObj(ctx, &models.PermObj{
			TenantID: tenant, Name: o.Name, OrgUnit: o.OrgUnit, IsAdmin: o.IsAdmin,
		})
		if skip, err := skipExisting(err); err != nil {
			return fmt.Errorf("perm obj %s: %w", o.Name, err)
		} else if skip {
			log.Debug("Perm obj already present, skipping", "name", o.Name)
		}
	}

	for _, perm := range p.Permissions {
		_, err := svc.CreatePermission(ctx, &models.Permission{
			TenantID: tenant, ObjName: perm.Object, OpName: perm.Operation,
			ObjID: perm.ObjectID, IsAdmin: perm.IsAdmin,
			Roles: perm.Roles, Users: perm.Users,
		})
		if skip, err := skipExisting(err); err != nil {
			return fmt.Errorf("permission %s.%s: %w", perm.Object, perm.Operation, err)
		} else if skip {
			log.Debug("Permission already present, skipping", "object", perm.Object, "operation", perm.Operation)
		}
	}

	for _, a := range p.Assignments {
		var err error
		if a.Admin {
			err = svc.AssignAdminRole(ctx, tenant, a.UserID, a.Role, nil)
		} else {
			err = svc.AssignUser(ctx, tenant, a.UserID, a.Role, nil)
		}
		if err != nil {
			var verr *admin.ValidationError
			if errors.As(err, &verr) {
				// already assigned
				log.Debug("Assignment already present, skipping", "userId", a.UserID, "role", a.Role)
				continue
			}
			return fmt.Errorf("assignment %s -> %s: %w", a.UserID, a.Role, err)
		}
	}

	return nil
}

func skipExisting(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, store.ErrAlreadyExists) {
		return true, nil
	}
	return false, err
}
