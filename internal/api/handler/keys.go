package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/caseflow/internal/api/response"
	"github.com/kiranshivaraju/caseflow/internal/apikey"
	"github.com/kiranshivaraju/caseflow/internal/store"
	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// KeyStore is the store surface the admin key handlers need.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

var knownScopes = map[string]bool{
	models.ScopeProcess: true,
	models.ScopeAdmin:   true,
}

type createKeyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
// The raw key is only ever present in this response.
func NewCreateKeyHandler(keys KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name   string   `json:"name"`
			Scopes []string `json:"scopes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}
		if len(req.Scopes) == 0 {
			req.Scopes = []string{models.ScopeProcess}
		}
		for _, s := range req.Scopes {
			if !knownScopes[s] {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "unknown scope: "+s, nil)
				return
			}
		}

		raw, key, err := apikey.Generate(req.Name, req.Scopes)
		if err != nil {
			slog.Error("api key generation failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key", nil)
			return
		}

		if err := keys.CreateAPIKey(r.Context(), key); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "DUPLICATE_KEY", "Key prefix collision, retry", nil)
				return
			}
			slog.Error("api key insert failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key", nil)
			return
		}

		response.Created(w, createKeyResponse{
			ID:        key.ID,
			Name:      key.Name,
			Key:       raw,
			KeyPrefix: key.KeyPrefix,
			Scopes:    key.Scopes,
			CreatedAt: key.CreatedAt,
		})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys.
func NewListKeysHandler(keys KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := keys.ListAPIKeys(r.Context())
		if err != nil {
			slog.Error("api key list failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list API keys", nil)
			return
		}
		if list == nil {
			list = []*models.APIKey{}
		}
		response.JSON(w, list)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/admin/keys/{keyID}.
func NewRevokeKeyHandler(keys KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "keyID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "keyID must be a valid UUID", nil)
			return
		}

		if err := keys.RevokeAPIKey(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "API key not found", nil)
				return
			}
			slog.Error("api key revoke failed", "key_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke API key", nil)
			return
		}

		response.NoContent(w)
	}
}
