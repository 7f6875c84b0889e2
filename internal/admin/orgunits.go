package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
)

func ouHierarchy(typ string) string {
	if models.Normalize(typ) == models.OrgUnitPerm {
		return models.HierarchyPermOU
	}
	return models.HierarchyUserOU
}

// CreateOrgUnit stores an org unit in the USER or PERM hierarchy and links
// it under any named parents.
func (s *Service) CreateOrgUnit(ctx context.Context, ou *models.OrgUnit) (*models.OrgUnit, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("create", "orgunit", time.Since(start), err == nil)
	}()

	if models.Normalize(ou.Name) == "" {
		err = &ValidationError{Field: "name", Message: "org unit name is required"}
		return nil, err
	}
	typ := models.Normalize(ou.Type)
	if typ != models.OrgUnitUser && typ != models.OrgUnitPerm {
		err = &ValidationError{Field: "type", Message: "org unit type must be USER or PERM"}
		return nil, err
	}
	ou.Type = typ

	created, cerr := s.store.CreateOrgUnit(ctx, ou)
	if cerr != nil {
		err = cerr
		return nil, err
	}
	for _, parent := range created.Parents {
		if aerr := s.reg.AddRelationship(ctx, ou.TenantID, ouHierarchy(typ), created.Name, parent, false); aerr != nil {
			err = aerr
			return nil, err
		}
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: ou.TenantID, Action: "orgunit.create", Entity: "orgunit",
		Target: typ + ":" + created.Name, Granted: true,
	})
	return created, nil
}

func (s *Service) GetOrgUnit(ctx context.Context, tenantID, typ, name string) (*models.OrgUnit, error) {
	return s.store.GetOrgUnit(ctx, tenantID, typ, name)
}

func (s *Service) ListOrgUnits(ctx context.Context, tenantID, typ string) ([]*models.OrgUnit, error) {
	return s.store.ListOrgUnits(ctx, tenantID, typ)
}

func (s *Service) UpdateOrgUnit(ctx context.Context, ou *models.OrgUnit) (*models.OrgUnit, error) {
	start := time.Now()
	updated, err := s.store.UpdateOrgUnit(ctx, ou)
	monitoring.RecordAPIOperation("update", "orgunit", time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: ou.TenantID, Action: "orgunit.update", Entity: "orgunit",
		Target: models.Normalize(ou.Type) + ":" + updated.Name, Granted: true,
	})
	return updated, nil
}

// DeleteOrgUnit refuses while the unit still has hierarchy children, then
// detaches its parent edges and deletes the node.
func (s *Service) DeleteOrgUnit(ctx context.Context, tenantID, typ, name string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("delete", "orgunit", time.Since(start), err == nil)
	}()

	typ = models.Normalize(typ)
	name = models.Normalize(name)
	if _, err = s.store.GetOrgUnit(ctx, tenantID, typ, name); err != nil {
		return err
	}

	g, gerr := s.reg.Graph(ctx, tenantID, ouHierarchy(typ))
	if gerr != nil {
		err = gerr
		return err
	}
	if n := g.NumChildren(name); n > 0 {
		err = &PolicyError{
			Code: CodeDeleteHasChild, Entity: "orgunit", Name: name,
			Detail: fmt.Sprintf("%d descendant org units depend on it", n),
		}
		return err
	}

	for _, parent := range g.Parents(name) {
		if err = s.reg.RemoveRelationship(ctx, tenantID, ouHierarchy(typ), name, parent); err != nil {
			return err
		}
	}
	if err = s.store.DeleteOrgUnit(ctx, tenantID, typ, name); err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "orgunit.delete", Entity: "orgunit",
		Target: typ + ":" + name, Granted: true,
	})
	return nil
}

// AddOrgUnitInheritance links child under parent in the org unit hierarchy
// selected by typ.
func (s *Service) AddOrgUnitInheritance(ctx context.Context, tenantID, typ, child, parent string) error {
	return s.addInheritance(ctx, tenantID, ouHierarchy(typ), child, parent)
}

func (s *Service) DeleteOrgUnitInheritance(ctx context.Context, tenantID, typ, child, parent string) error {
	return s.deleteInheritance(ctx, tenantID, ouHierarchy(typ), child, parent)
}
