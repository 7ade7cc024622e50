package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PGStore keeps entries in the kv_entries table
type PGStore struct {
	db DB
}

var _ KV = (*PGStore)(nil)

// NewPGStore creates a store over the kv_entries table
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: pool}
}

// NewPGStoreWithDB creates a store over a custom DB interface
func NewPGStoreWithDB(db DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_entries WHERE key = $1`

	var value []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *PGStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`
	_, err := s.db.Exec(ctx, query, key, value)
	return err
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_entries WHERE key = $1`
	_, err := s.db.Exec(ctx, query, key)
	return err
}

// DeletePrefix removes every key starting with prefix and returns how many went
func (s *PGStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	query := `DELETE FROM kv_entries WHERE starts_with(key, $1)`
	result, err := s.db.Exec(ctx, query, prefix)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
