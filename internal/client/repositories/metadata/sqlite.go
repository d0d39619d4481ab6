package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/sitemapkeeper/internal/dbx"
)

// SQLiteRepository implements Repository over a DBTX, so it runs the same
// inside dbx.WithTx as on the bare *sql.DB.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("metadata[%s]: get: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Set upserts key. A nil value is stored as an empty blob; the column is NOT NULL.
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	const q = `INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := r.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("metadata[%s]: set: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("metadata[%s]: delete: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Counter(ctx context.Context, key string) (int64, error) {
	v, err := r.Get(ctx, key)
	if err != nil || len(v) == 0 {
		return 0, err
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (r *SQLiteRepository) SetCounter(ctx context.Context, key string, n int64) error {
	return r.Set(ctx, key, []byte(strconv.FormatInt(n, 10)))
}

func (r *SQLiteRepository) SizeWithout(ctx context.Context, skip string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(length(value)), 0) FROM metadata WHERE key <> ?`, skip).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("metadata: size: %w", err)
	}
	return n, nil
}
