package admin

import (
	"context"
	"time"

	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
)

// CreateUser stores a user. A named org unit must exist in the USER
// hierarchy. Role assignments are not accepted here; they go through
// AssignUser so the separation-of-duty check always runs.
func (s *Service) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("create", "user", time.Since(start), err == nil)
	}()

	if models.Normalize(user.UserID) == "" {
		err = &ValidationError{Field: "userId", Message: "user id is required"}
		return nil, err
	}
	if len(user.Roles) > 0 || len(user.AdminRoles) > 0 {
		err = &ValidationError{Field: "roles", Message: "assign roles via the assignment operations"}
		return nil, err
	}
	if user.OrgUnit != "" {
		if _, err = s.store.GetOrgUnit(ctx, user.TenantID, models.OrgUnitUser, user.OrgUnit); err != nil {
			return nil, err
		}
	}

	created, cerr := s.store.CreateUser(ctx, user)
	if cerr != nil {
		err = cerr
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: user.TenantID, Action: "user.create", Entity: "user", Target: created.UserID, Granted: true,
	})
	return created, nil
}

func (s *Service) GetUser(ctx context.Context, tenantID, userID string) (*models.User, error) {
	return s.store.GetUser(ctx, tenantID, userID)
}

func (s *Service) ListUsers(ctx context.Context, tenantID string) ([]*models.User, error) {
	return s.store.ListUsers(ctx, tenantID)
}

func (s *Service) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("update", "user", time.Since(start), err == nil)
	}()

	// assignment lists are managed by the assignment operations
	user.Roles = nil
	user.AdminRoles = nil
	if user.OrgUnit != "" {
		if _, err = s.store.GetOrgUnit(ctx, user.TenantID, models.OrgUnitUser, user.OrgUnit); err != nil {
			return nil, err
		}
	}

	updated, uerr := s.store.UpdateUser(ctx, user)
	if uerr != nil {
		err = uerr
		return nil, err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: user.TenantID, Action: "user.update", Entity: "user", Target: updated.UserID, Granted: true,
	})
	return updated, nil
}

// DeleteUser removes the user after clearing their occupant records from
// every assigned role.
func (s *Service) DeleteUser(ctx context.Context, tenantID, userID string) error {
	start := time.Now()
	var err error
	defer func() {
		monitoring.RecordAPIOperation("delete", "user", time.Since(start), err == nil)
	}()

	userID = models.Normalize(userID)
	user, gerr := s.store.GetUser(ctx, tenantID, userID)
	if gerr != nil {
		err = gerr
		return err
	}

	for _, ur := range user.Roles {
		role, rerr := s.store.GetRole(ctx, tenantID, ur.Name)
		if rerr != nil {
			continue
		}
		if _, err = s.store.UpdateRole(ctx, &models.Role{
			TenantID: tenantID, Name: role.Name,
			Occupants: removeValue(role.Occupants, userID),
		}); err != nil {
			return err
		}
	}
	for _, ar := range user.AdminRoles {
		role, rerr := s.store.GetAdminRole(ctx, tenantID, ar.Name)
		if rerr != nil {
			continue
		}
		if _, err = s.store.UpdateAdminRole(ctx, &models.AdminRole{
			Role: models.Role{
				TenantID: tenantID, Name: role.Name,
				Occupants: removeValue(role.Occupants, userID),
			},
		}); err != nil {
			return err
		}
	}

	if err = s.store.DeleteUser(ctx, tenantID, userID); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID: tenantID, Action: "user.delete", Entity: "user", Target: userID, Granted: true,
	})
	return nil
}
