package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// psql builds statements with pgx-style $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

const apiKeyColumns = `id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at`

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// --- Cases ---

func (s *PostgresStore) CreateCase(ctx context.Context, c *models.Case) error {
	if c.Status == "" {
		c.Status = models.CaseStatusProcessing
	}
	query, args, err := psql.Insert("cases").
		Columns("id", "user_id", "summary", "processing", "status", "created_at", "updated_at").
		Values(c.ID, c.UserID, c.Summary, c.Processing, c.Status, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create case: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	query, args, err := psql.
		Select("id", "user_id", "summary", "processing", "status", "created_at", "updated_at").
		From("cases").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get case: %w", err)
	}

	var c models.Case
	err = s.pool.QueryRow(ctx, query, args...).
		Scan(&c.ID, &c.UserID, &c.Summary, &c.Processing, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	return &c, nil
}

// UpdateCaseSummary stores the extraction result and ends processing.
func (s *PostgresStore) UpdateCaseSummary(ctx context.Context, id uuid.UUID, summary string) error {
	return s.updateCase(ctx, id, "update case summary", nil, map[string]any{
		"summary":    summary,
		"processing": false,
		"status":     models.CaseStatusCompleted,
	})
}

// MarkCaseFailed ends processing without a summary. A case that already
// completed is left alone.
func (s *PostgresStore) MarkCaseFailed(ctx context.Context, id uuid.UUID) error {
	return s.updateCase(ctx, id, "mark case failed", sq.NotEq{"status": models.CaseStatusCompleted}, map[string]any{
		"processing": false,
		"status":     models.CaseStatusFailed,
	})
}

func (s *PostgresStore) updateCase(ctx context.Context, id uuid.UUID, op string, guard sq.Sqlizer, set map[string]any) error {
	set["updated_at"] = time.Now().UTC()
	b := psql.Update("cases").
		SetMap(set).
		Where(sq.Eq{"id": id})
	if guard != nil {
		b = b.Where(guard)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
