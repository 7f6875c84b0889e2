package admin

import (
	"context"
	"time"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
)

// CreateSDSet stores a separation-of-duty set. Cardinality defaults to 2
// (mutual exclusion). Every member must exist as a role. A set with no
// members is stored holding the reserved placeholder so the member attribute
// never persists empty.
func (s *Service) CreateSDSet(ctx context.Context, set *models.SDSet) (*models.SDSet, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("create", "sdset", time.Since(start), err == nil)
	}()

	if models.Normalize(set.Name) == "" {
		err = &ValidationError{Field: "name", Message: "set name is required"}
		return nil, err
	}
	if set.Type != models.SDSetStatic && set.Type != models.SDSetDynamic {
		err = &ValidationError{Field: "type", Message: "set type must be STATIC or DYNAMIC"}
		return nil, err
	}
	if set.Cardinality == 0 {
		set.Cardinality = 2
	}
	if set.Cardinality < 2 {
		err = &ValidationError{Field: "cardinality", Message: "cardinality must be at least 2"}
		return nil, err
	}

	members := make(map[string]bool, len(set.Members))
	for member, ok := range set.Members {
		if !ok {
			continue
		}
		member = models.Normalize(member)
		if _, gerr := s.store.GetRole(ctx, set.TenantID, member); gerr != nil {
			err = gerr
			return nil, err
		}
		members[member] = true
	}
	if len(members) == 0 {
		members[models.SDSetPlaceholder] = true
	}
	set.Members = members

	created, cerr := s.store.CreateSDSet(ctx, set)
	if cerr != nil {
		err = cerr
		return nil, err
	}
	s.sod.Invalidate(set.TenantID)

	s.audit.Record(ctx, audit.Event{
		TenantID: set.TenantID, Action: "sdset.create", Entity: "sdset", Target: created.Name, Granted: true,
	})
	return created, nil
}

func (s *Service) GetSDSet(ctx context.Context, tenantID, name string) (*models.SDSet, error) {
	return s.store.GetSDSet(ctx, tenantID, name)
}

func (s *Service) ListSDSets(ctx context.Context, tenantID, typ string) ([]*models.SDSet, error) {
	return s.store.ListSDSets(ctx, tenantID, typ)
}

// UpdateSDSet changes description or cardinality. Membership changes go
// through AddSDSetMember/RemoveSDSetMember so the placeholder rules hold.
func (s *Service) UpdateSDSet(ctx context.Context, set *models.SDSet) (*models.SDSet, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("update", "sdset", time.Since(start), err == nil)
	}()

	if set.Cardinality != 0 && set.Cardinality < 2 {
		err = &ValidationError{Field: "cardinality", Message: "cardinality must be at least 2"}
		return nil, err
	}
	set.Members = nil

	updated, uerr := s.store.UpdateSDSet(ctx, set)
	if uerr != nil {
		err = uerr
		return nil, err
	}
	s.sod.Invalidate(set.TenantID)

	s.audit.Record(ctx, audit.Event{
		TenantID: set.TenantID, Action: "sdset.update", Entity: "sdset", Target: updated.Name, Granted: true,
	})
	return updated, nil
}

// AddSDSetMember adds a role to the set, displacing the placeholder if it
// was the only member.
func (s *Service) AddSDSetMember(ctx context.Context, tenantID, setName, roleName string) (*models.SDSet, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("add_member", "sdset", time.Since(start), err == nil)
	}()

	roleName = models.Normalize(roleName)
	if _, err = s.store.GetRole(ctx, tenantID, roleName); err != nil {
		return nil, err
	}
	set, gerr := s.store.GetSDSet(ctx, tenantID, setName)
	if gerr != nil {
		err = gerr
		return nil, err
	}

	members := make(map[string]bool, len(set.Members)+1)
	for m, ok := range set.Members {
		if ok && m != models.SDSetPlaceholder {
			members[m] = true
		}
	}
	members[roleName] = true

	updated, uerr := s.store.UpdateSDSet(ctx, &models.SDSet{
		TenantID: tenantID, Name: set.Name, Members: members,
	})
	if uerr != nil {
		err = uerr
		return nil, err
	}
	s.sod.Invalidate(tenantID)

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "sdset.member.add", Entity: "sdset",
		Target: set.Name + ":" + roleName, Granted: true,
	})
	return updated, nil
}

// RemoveSDSetMember removes a role from the set. Removing the last real
// member leaves the set holding exactly the placeholder, never zero members.
func (s *Service) RemoveSDSetMember(ctx context.Context, tenantID, setName, roleName string) (*models.SDSet, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("remove_member", "sdset", time.Since(start), err == nil)
	}()

	roleName = models.Normalize(roleName)
	set, gerr := s.store.GetSDSet(ctx, tenantID, setName)
	if gerr != nil {
		err = gerr
		return nil, err
	}
	if !set.Members[roleName] {
		err = &ValidationError{Field: "member", Message: "role " + roleName + " is not a member of " + set.Name}
		return nil, err
	}

	members := make(map[string]bool, len(set.Members))
	for m, ok := range set.Members {
		if ok && m != roleName && m != models.SDSetPlaceholder {
			members[m] = true
		}
	}
	if len(members) == 0 {
		members[models.SDSetPlaceholder] = true
	}

	updated, uerr := s.store.UpdateSDSet(ctx, &models.SDSet{
		TenantID: tenantID, Name: set.Name, Members: members,
	})
	if uerr != nil {
		err = uerr
		return nil, err
	}
	s.sod.Invalidate(tenantID)

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "sdset.member.remove", Entity: "sdset",
		Target: set.Name + ":" + roleName, Granted: true,
	})
	return updated, nil
}

func (s *Service) DeleteSDSet(ctx context.Context, tenantID, name string) error {
	start := time.Now()
	err := s.store.DeleteSDSet(ctx, tenantID, name)
	monitoring.RecordAPIOperation("delete", "sdset", time.Since(start), err == nil)
	if err != nil {
		return err
	}
	s.sod.Invalidate(tenantID)

	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "sdset.delete", Entity: "sdset",
		Target: models.Normalize(name), Granted: true,
	})
	return nil
}
