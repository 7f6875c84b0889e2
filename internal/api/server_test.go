package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/sentra-core/internal/access"
	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/config"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/sod"
	"github.com/platformbuilds/sentra-core/internal/store/memory"
	"github.com/platformbuilds/sentra-core/pkg/cache"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Environment: "test",
		Port:        8080,
		Policy:      config.PolicyConfig{DefaultTenant: "t1"},
		Monitoring:  config.MonitoringConfig{Enabled: false},
	}

	log := logging.New("error")
	st := memory.New()
	reg := repo.NewRegistry(st, log)
	eval := sod.NewEvaluator(st, reg, log)
	sink := audit.NewNopSink()
	sessions := cache.NewNoopValkeyCache(log)

	adminSvc := admin.NewService(st, reg, eval, sink, log)
	accessSvc := access.NewService(st, reg, eval, sessions, sink, log)

	return NewServer(cfg, log, st, sessions, adminSvc, accessSvc)
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/roles", map[string]interface{}{"name": "engineer"})
	require.Equal(t, http.StatusCreated, w.Code)

	// duplicate create conflicts
	w = doJSON(t, srv, http.MethodPost, "/api/v1/roles", map[string]interface{}{"name": "engineer"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/roles/engineer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ENGINEER")

	w = doJSON(t, srv, http.MethodGet, "/api/v1/roles/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/roles/engineer", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteRoleWithChildConflictsOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/roles", map[string]interface{}{"name": "employee"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, srv, http.MethodPost, "/api/v1/roles", map[string]interface{}{
		"name": "engineer", "parents": []string{"employee"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/roles/employee", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "HIER_DEL_FAILED_HAS_CHILD")
}

func TestSessionAndCheckOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []map[string]interface{}{
		{"name": "auditor"},
	} {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/roles", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := doJSON(t, srv, http.MethodPost, "/api/v1/users", map[string]interface{}{"userId": "alice"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, srv, http.MethodPost, "/api/v1/roles/auditor/users/alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/perm-objs", map[string]interface{}{"name": "ledger"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, srv, http.MethodPost, "/api/v1/permissions", map[string]interface{}{
		"objName": "ledger", "opName": "read",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, srv, http.MethodPut, "/api/v1/permissions/ledger/read/roles/auditor", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/sessions", map[string]interface{}{"userId": "alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	var sessionResp struct {
		Data struct {
			Session struct {
				ID string `json:"id"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessionResp))
	assert.NotEmpty(t, sessionResp.Data.Session.ID)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/sessions/"+sessionResp.Data.Session.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/sessions/"+sessionResp.Data.Session.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSSDViolationOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	for _, name := range []string{"cashier", "supervisor"} {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/roles", map[string]interface{}{"name": name})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := doJSON(t, srv, http.MethodPost, "/api/v1/sd-sets", map[string]interface{}{
		"name": "payments", "type": "STATIC",
		"members": map[string]bool{"CASHIER": true, "SUPERVISOR": true},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/users", map[string]interface{}{"userId": "alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/roles/cashier/users/alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/roles/supervisor/users/alice", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SSD_VIOLATION")
}
