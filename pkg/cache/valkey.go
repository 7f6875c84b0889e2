package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
	"github.com/platformbuilds/sentra-core/pkg/logger"
)

// ValkeyCache fronts the directory with a shared Valkey/Redis instance.
// Entities and evaluation results are stored as JSON; policy sessions live
// here exclusively and are never written to the directory.
type ValkeyCache interface {
	// General caching
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key under the prefix. Used to invalidate
	// tenant- or role-scoped entries after administrative writes.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Policy session management
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	InvalidateSession(ctx context.Context, sessionID string) error

	HealthCheck(ctx context.Context) error
}

type valkeyImpl struct {
	client *redis.Client
	logger logger.Logger
	ttl    time.Duration
}

func NewValkey(addr string, db int, password string, defaultTTL time.Duration) (ValkeyCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &valkeyImpl{
		client: client,
		logger: logger.New("info"),
		ttl:    defaultTTL,
	}, nil
}

func (v *valkeyImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		monitoring.RecordCacheOperation("get", "miss")
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if err != nil {
		monitoring.RecordCacheOperation("get", "error")
		return nil, err
	}
	monitoring.RecordCacheOperation("get", "hit")
	return b, nil
}

func (v *valkeyImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var data []byte
	switch x := value.(type) {
	case []byte:
		data = x
	case string:
		data = []byte(x)
	default:
		j, err := json.Marshal(x)
		if err != nil {
			monitoring.RecordCacheOperation("set", "error")
			return fmt.Errorf("marshal value for key %s: %w", key, err)
		}
		data = j
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	if err := v.client.Set(ctx, key, data, ttl).Err(); err != nil {
		monitoring.RecordCacheOperation("set", "error")
		return err
	}
	monitoring.RecordCacheOperation("set", "success")
	return nil
}

func (v *valkeyImpl) Delete(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, key).Err(); err != nil {
		monitoring.RecordCacheOperation("delete", "error")
		return err
	}
	monitoring.RecordCacheOperation("delete", "success")
	return nil
}

func (v *valkeyImpl) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := v.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		monitoring.RecordCacheOperation("delete_prefix", "error")
		return err
	}
	if len(keys) == 0 {
		monitoring.RecordCacheOperation("delete_prefix", "success")
		return nil
	}
	if err := v.client.Del(ctx, keys...).Err(); err != nil {
		monitoring.RecordCacheOperation("delete_prefix", "error")
		return err
	}
	monitoring.RecordCacheOperation("delete_prefix", "success")
	return nil
}

func (v *valkeyImpl) SetSession(ctx context.Context, session *models.Session) error {
	session.LastAccessAt = time.Now()
	key := fmt.Sprintf("session:%s", session.ID)
	if err := v.Set(ctx, key, session, 24*time.Hour); err != nil {
		monitoring.RecordCacheOperation("set_session", "error")
		return err
	}
	monitoring.RecordCacheOperation("set_session", "success")
	return nil
}

func (v *valkeyImpl) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	data, err := v.Get(ctx, fmt.Sprintf("session:%s", sessionID))
	if err != nil {
		monitoring.RecordCacheOperation("get_session", "miss")
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		monitoring.RecordCacheOperation("get_session", "error")
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	monitoring.RecordCacheOperation("get_session", "hit")
	return &session, nil
}

func (v *valkeyImpl) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := v.Delete(ctx, fmt.Sprintf("session:%s", sessionID)); err != nil {
		monitoring.RecordCacheOperation("invalidate_session", "error")
		return err
	}
	monitoring.RecordCacheOperation("invalidate_session", "success")
	return nil
}

// HealthCheck pings the Valkey instance.
func (v *valkeyImpl) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ctx = c
	}
	return v.client.Ping(ctx).Err()
}
