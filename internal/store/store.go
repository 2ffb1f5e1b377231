package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	CreateCase(ctx context.Context, c *models.Case) error
	GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error)
	UpdateCaseSummary(ctx context.Context, id uuid.UUID, summary string) error
	MarkCaseFailed(ctx context.Context, id uuid.UUID) error
}
