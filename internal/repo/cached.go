package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
	"github.com/platformbuilds/sentra-core/internal/store"
	"github.com/platformbuilds/sentra-core/pkg/cache"
)

// CachedDirectory fronts a Directory with Valkey for single-entity reads.
// Lists and searches always go to the directory; writes pass through and
// invalidate the affected keys. Relationship reads are not cached here
// because the Registry keeps whole graphs in process memory.
type CachedDirectory struct {
	store.Directory
	cache cache.ValkeyCache
	ttl   time.Duration
}

var _ store.Directory = (*CachedDirectory)(nil)

func NewCachedDirectory(dir store.Directory, c cache.ValkeyCache, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{Directory: dir, cache: c, ttl: ttl}
}

func entityKey(class, tenantID string, parts ...string) string {
	key := "sentra:" + class + ":" + tenantID
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// readThrough fills dst from cache or falls back to load and caches the
// result. dst must be a pointer to the entity type.
func (d *CachedDirectory) readThrough(ctx context.Context, class, key string, dst interface{}, load func() (interface{}, error)) error {
	if b, err := d.cache.Get(ctx, key); err == nil {
		if json.Unmarshal(b, dst) == nil {
			return nil
		}
	}

	start := time.Now()
	entity, err := load()
	monitoring.RecordStoreOperation("get", class, time.Since(start), err == nil)
	if err != nil {
		return err
	}
	b, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal for cache key %s: %w", key, err)
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		monitoring.RecordCacheOperation("fill", "error")
	}
	return json.Unmarshal(b, dst)
}

func (d *CachedDirectory) invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		_ = d.cache.Delete(ctx, key)
	}
}

/* --------------------------------- roles -------------------------------- */

func (d *CachedDirectory) GetRole(ctx context.Context, tenantID, name string) (*models.Role, error) {
	key := entityKey("role", tenantID, models.Normalize(name))
	var role models.Role
	err := d.readThrough(ctx, "role", key, &role, func() (interface{}, error) {
		return d.Directory.GetRole(ctx, tenantID, name)
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (d *CachedDirectory) UpdateRole(ctx context.Context, role *models.Role) (*models.Role, error) {
	updated, err := d.Directory.UpdateRole(ctx, role)
	if err != nil {
		return nil, err
	}
	d.invalidate(ctx, entityKey("role", role.TenantID, models.Normalize(role.Name)))
	return updated, nil
}

func (d *CachedDirectory) DeleteRole(ctx context.Context, tenantID, name string) error {
	if err := d.Directory.DeleteRole(ctx, tenantID, name); err != nil {
		return err
	}
	d.invalidate(ctx, entityKey("role", tenantID, models.Normalize(name)))
	return nil
}

/* ------------------------------ admin roles ------------------------------ */

func (d *CachedDirectory) GetAdminRole(ctx context.Context, tenantID, name string) (*models.AdminRole, error) {
	key := entityKey("adminrole", tenantID, models.Normalize(name))
	var role models.AdminRole
	err := d.readThrough(ctx, "adminrole", key, &role, func() (interface{}, error) {
		return d.Directory.GetAdminRole(ctx, tenantID, name)
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (d *CachedDirectory) UpdateAdminRole(ctx context.Context, role *models.AdminRole) (*models.AdminRole, error) {
	updated, err := d.Directory.UpdateAdminRole(ctx, role)
	if err != nil {
		return nil, err
	}
	d.invalidate(ctx, entityKey("adminrole", role.TenantID, models.Normalize(role.Name)))
	return updated, nil
}

func (d *CachedDirectory) DeleteAdminRole(ctx context.Context, tenantID, name string) error {
	if err := d.Directory.DeleteAdminRole(ctx, tenantID, name); err != nil {
		return err
	}
	d.invalidate(ctx, entityKey("adminrole", tenantID, models.Normalize(name)))
	return nil
}

/* -------------------------------- SD sets -------------------------------- */

func (d *CachedDirectory) GetSDSet(ctx context.Context, tenantID, name string) (*models.SDSet, error) {
	key := entityKey("sdset", tenantID, models.Normalize(name))
	var set models.SDSet
	err := d.readThrough(ctx, "sdset", key, &set, func() (interface{}, error) {
		return d.Directory.GetSDSet(ctx, tenantID, name)
	})
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (d *CachedDirectory) UpdateSDSet(ctx context.Context, set *models.SDSet) (*models.SDSet, error) {
	updated, err := d.Directory.UpdateSDSet(ctx, set)
	if err != nil {
		return nil, err
	}
	d.invalidate(ctx, entityKey("sdset", set.TenantID, models.Normalize(set.Name)))
	return updated, nil
}

func (d *CachedDirectory) DeleteSDSet(ctx context.Context, tenantID, name string) error {
	if err := d.Directory.DeleteSDSet(ctx, tenantID, name); err != nil {
		return err
	}
	d.invalidate(ctx, entityKey("sdset", tenantID, models.Normalize(name)))
	return nil
}

/* ------------------------------ permissions ------------------------------ */

func (d *CachedDirectory) GetPermission(ctx context.Context, tenantID, objName, opName, objID string) (*models.Permission, error) {
	key := entityKey("perm", tenantID,
		models.Normalize(objName), models.Normalize(opName), models.Normalize(objID))
	var perm models.Permission
	err := d.readThrough(ctx, "perm", key, &perm, func() (interface{}, error) {
		return d.Directory.GetPermission(ctx, tenantID, objName, opName, objID)
	})
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (d *CachedDirectory) UpdatePermission(ctx context.Context, perm *models.Permission) (*models.Permission, error) {
	updated, err := d.Directory.UpdatePermission(ctx, perm)
	if err != nil {
		return nil, err
	}
	d.invalidate(ctx, entityKey("perm", perm.TenantID,
		models.Normalize(perm.ObjName), models.Normalize(perm.OpName), models.Normalize(perm.ObjID)))
	return updated, nil
}

func (d *CachedDirectory) DeletePermission(ctx context.Context, tenantID, objName, opName, objID string) error {
	if err := d.Directory.DeletePermission(ctx, tenantID, objName, opName, objID); err != nil {
		return err
	}
	d.invalidate(ctx, entityKey("perm", tenantID,
		models.Normalize(objName), models.Normalize(opName), models.Normalize(objID)))
	return nil
}

/* --------------------------------- users --------------------------------- */

func (d *CachedDirectory) GetUser(ctx context.Context, tenantID, userID string) (*models.User, error) {
	key := entityKey("user", tenantID, models.Normalize(userID))
	var user models.User
	err := d.readThrough(ctx, "user", key, &user, func() (interface{}, error) {
		return d.Directory.GetUser(ctx, tenantID, userID)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *CachedDirectory) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	updated, err := d.Directory.UpdateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	d.invalidate(ctx, entityKey("user", user.TenantID, models.Normalize(user.UserID)))
	return updated, nil
}

func (d *CachedDirectory) DeleteUser(ctx context.Context, tenantID, userID string) error {
	if err := d.Directory.DeleteUser(ctx, tenantID, userID); err != nil {
		return err
	}
	d.invalidate(ctx, entityKey("user", tenantID, models.Normalize(userID)))
	return nil
}
