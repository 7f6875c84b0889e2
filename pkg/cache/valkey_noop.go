package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/pkg/logger"
)

// noopValkeyCache provides an in-memory, process-local fallback that satisfies
// ValkeyCache when the external cache is unavailable. It is best-effort and
// intended for development and degraded operation; data is not shared across
// replicas and is lost on restart.
type noopValkeyCache struct {
	m      map[string][]byte
	mu     sync.RWMutex
	logger logger.Logger
}

func NewNoopValkeyCache(log logger.Logger) ValkeyCache {
	log.Warn("Valkey cache unavailable; using in-memory fallback (noop)")
	return &noopValkeyCache{m: make(map[string][]byte), logger: log}
}

func (n *noopValkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	b, ok := n.m[key]
	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return b, nil
}

func (n *noopValkeyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		jb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b = jb
	}
	n.mu.Lock()
	n.m[key] = b
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCache) Delete(ctx context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, key)
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	n.mu.Lock()
	for k := range n.m {
		if strings.HasPrefix(k, prefix) {
			delete(n.m, k)
		}
	}
	n.mu.Unlock()
	return nil
}

func (n *noopValkeyCache) SetSession(ctx context.Context, session *models.Session) error {
	session.LastAccessAt = time.Now()
	return n.Set(ctx, "session:"+session.ID, session, 24*time.Hour)
}

func (n *noopValkeyCache) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	b, err := n.Get(ctx, "session:"+sessionID)
	if err != nil {
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (n *noopValkeyCache) InvalidateSession(ctx context.Context, sessionID string) error {
	return n.Delete(ctx, "session:"+sessionID)
}

// HealthCheck returns an error to indicate no external Valkey connectivity.
func (n *noopValkeyCache) HealthCheck(ctx context.Context) error {
	return fmt.Errorf("valkey noop cache in use (external cache not connected)")
}
