package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/caseflow/internal/store"
	"github.com/kiranshivaraju/caseflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("caseflow_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, store.RunMigrations(connStr, migrationsDir()))
	// Second run is a no-op.
	require.NoError(t, store.RunMigrations(connStr, migrationsDir()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func newAPIKey(prefix string) *models.APIKey {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.APIKey{
		ID:        uuid.New(),
		Name:      "key-" + prefix,
		KeyHash:   "bcrypt-hash-" + prefix,
		KeyPrefix: prefix,
		Scopes:    []string{models.ScopeProcess},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newCase(t *testing.T, s store.Store) *models.Case {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := uuid.New()
	c := &models.Case{
		ID:         uuid.New(),
		UserID:     &userID,
		Processing: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, s.CreateCase(context.Background(), c))
	return c
}

// --- API Key Tests ---

func TestAPIKey_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	key := newAPIKey("cf_abcd1")
	require.NoError(t, s.CreateAPIKey(ctx, key))

	keys, err := s.GetAPIKeyByPrefix(ctx, "cf_abcd1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key.ID, keys[0].ID)
	assert.Equal(t, []string{"process"}, keys[0].Scopes)
	assert.Nil(t, keys[0].LastUsedAt)
}

func TestAPIKey_ListAndRevoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	a, b := newAPIKey("cf_aaaa1"), newAPIKey("cf_bbbb1")
	require.NoError(t, s.CreateAPIKey(ctx, a))
	require.NoError(t, s.CreateAPIKey(ctx, b))

	keys, err := s.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	require.NoError(t, s.RevokeAPIKey(ctx, a.ID))

	keys, err = s.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, b.ID, keys[0].ID)

	keys, err = s.GetAPIKeyByPrefix(ctx, "cf_aaaa1")
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.ErrorIs(t, s.RevokeAPIKey(ctx, a.ID), store.ErrNotFound)
}

func TestAPIKey_UpdateLastUsed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	key := newAPIKey("cf_used1")
	require.NoError(t, s.CreateAPIKey(ctx, key))
	require.NoError(t, s.UpdateAPIKeyLastUsed(ctx, key.ID))

	keys, err := s.GetAPIKeyByPrefix(ctx, "cf_used1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestAPIKey_DuplicateID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	key := newAPIKey("cf_dup01")
	require.NoError(t, s.CreateAPIKey(ctx, key))

	dup := newAPIKey("cf_dup02")
	dup.ID = key.ID
	assert.ErrorIs(t, s.CreateAPIKey(ctx, dup), store.ErrDuplicateKey)
}

// --- Case Tests ---

func TestCase_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	c := newCase(t, s)
	got, err := s.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, got.Processing)
	assert.Equal(t, models.CaseStatusProcessing, got.Status)
	assert.Nil(t, got.Summary)
	assert.Equal(t, *c.UserID, *got.UserID)
}

func TestCase_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	_, err := s.GetCase(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCase_UpdateSummary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()
	c := newCase(t, s)

	require.NoError(t, s.UpdateCaseSummary(ctx, c.ID, "# Summary\n\nAll clear."))

	got, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "# Summary\n\nAll clear.", *got.Summary)
	assert.False(t, got.Processing)
	assert.Equal(t, models.CaseStatusCompleted, got.Status)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt) || got.UpdatedAt.Equal(c.UpdatedAt))
}

func TestCase_MarkFailed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()
	c := newCase(t, s)

	require.NoError(t, s.MarkCaseFailed(ctx, c.ID))

	got, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.Processing)
	assert.Equal(t, models.CaseStatusFailed, got.Status)
}

func TestCase_MarkFailedDoesNotOverwriteCompleted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()
	c := newCase(t, s)

	require.NoError(t, s.UpdateCaseSummary(ctx, c.ID, "done"))
	assert.ErrorIs(t, s.MarkCaseFailed(ctx, c.ID), store.ErrNotFound)

	got, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCompleted, got.Status)
}

func TestCase_UpdateUnknown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	assert.ErrorIs(t, s.UpdateCaseSummary(context.Background(), uuid.New(), "x"), store.ErrNotFound)
	assert.ErrorIs(t, s.MarkCaseFailed(context.Background(), uuid.New()), store.ErrNotFound)
}

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	assert.NoError(t, s.Ping(context.Background()))
}
