package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/caseflow/internal/api"
	mw "github.com/kiranshivaraju/caseflow/internal/api/middleware"
	"github.com/kiranshivaraju/caseflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- stub key store: one key with the given scopes, or none ---

type stubStore struct {
	keys []*models.APIKey
}

func (s *stubStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}
func (s *stubStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

// --- stub counter ---

type stubCache struct{}

func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

func okJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func newTestRouter(s *stubStore) http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:               mw.NewAuth(s),
		RateLimit:          mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler:      okJSON,
		ProcessCaseHandler: okJSON,
		ListKeysHandler:    okJSON,
	})
}

func keyWithScopes(t *testing.T, raw string, scopes ...string) *models.APIKey {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.APIKey{ID: uuid.New(), KeyHash: string(h), KeyPrefix: raw[:8], Scopes: scopes}
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter(&stubStore{})

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		req := httptest.NewRequest(method, "/api/v1/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, method)
	}
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter(&stubStore{})

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/process-case"},
		{"GET", "/api/v1/runs/" + uuid.NewString()},
		{"POST", "/api/v1/admin/keys"},
		{"GET", "/api/v1/admin/keys"},
		{"DELETE", "/api/v1/admin/keys/" + uuid.NewString()},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_ScopeEnforced(t *testing.T) {
	processKey := "cf_proc_1234567890abcdef"
	adminKey := "cf_admn_1234567890abcdef"
	router := newTestRouter(&stubStore{keys: []*models.APIKey{
		keyWithScopes(t, processKey, models.ScopeProcess),
		keyWithScopes(t, adminKey, models.ScopeAdmin),
	}})

	tests := []struct {
		name   string
		key    string
		method string
		path   string
		want   int
	}{
		{"process key on process-case", processKey, "POST", "/api/v1/process-case", http.StatusOK},
		{"process key on admin", processKey, "GET", "/api/v1/admin/keys", http.StatusForbidden},
		{"admin key on admin", adminKey, "GET", "/api/v1/admin/keys", http.StatusOK},
		{"admin key on process-case", adminKey, "POST", "/api/v1/process-case", http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+tc.key)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRouter_UnwiredHandler_NotImplemented(t *testing.T) {
	adminKey := "cf_admn_1234567890abcdef"
	router := newTestRouter(&stubStore{keys: []*models.APIKey{keyWithScopes(t, adminKey, models.ScopeAdmin)}})

	req := httptest.NewRequest("POST", "/api/v1/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer "+adminKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(&stubStore{})

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Verify stubs satisfy the middleware interfaces
var _ mw.KeyStore = (*stubStore)(nil)
var _ mw.Counter = (*stubCache)(nil)
