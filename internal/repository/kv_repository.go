package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/sma-idcard/pkg/errors"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLKVRepository persists opaque values by key in a single table.
// The same statements serve sqlite and postgres; placeholders are rebound per driver.
type SQLKVRepository struct {
	db *sqlx.DB
}

// NewSQLKVRepository constructs the repository.
func NewSQLKVRepository(db *sqlx.DB) *SQLKVRepository {
	return &SQLKVRepository{db: db}
}

// EnsureSchema creates the kv_store table when missing.
func (r *SQLKVRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, kvSchema); err != nil {
		return fmt.Errorf("create kv_store: %w", err)
	}
	return nil
}

// Get returns the stored value or appErrors.ErrCacheMiss.
func (r *SQLKVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query := r.db.Rebind(`SELECT value FROM kv_store WHERE key = ?`)
	var value string
	if err := r.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(value), nil
}

const kvUpsert = `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Set inserts or replaces the value stored under key.
func (r *SQLKVRepository) Set(ctx context.Context, key string, value []byte) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(kvUpsert), key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// SetMany writes every value in one transaction; either all keys change or none do.
func (r *SQLKVRepository) SetMany(ctx context.Context, values map[string][]byte) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kv transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	query := tx.Rebind(kvUpsert)
	now := time.Now().UTC()
	for _, key := range keys {
		if _, err = tx.ExecContext(ctx, query, key, string(values[key]), now); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit kv transaction: %w", err)
	}
	return nil
}
