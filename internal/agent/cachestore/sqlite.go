package cachestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
	"github.com/dmitrijs2005/sitemapkeeper/internal/dbx"
)

// SQLiteStorage implements Storage over the caches table.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

func (s *SQLiteStorage) Put(ctx context.Context, cache string, e Entry) error {
	return put(ctx, s.db, cache, e)
}

func (s *SQLiteStorage) PutAll(ctx context.Context, cache string, entries []Entry) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, e := range entries {
			if err := put(ctx, tx, cache, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func put(ctx context.Context, db dbx.DBTX, cache string, e Entry) error {
	header, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("failed to encode header for %s: %w", e.URL, err)
	}
	body := e.Body
	if body == nil {
		body = []byte{}
	}
	storedAt := e.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO caches (cache_name, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_name, url) DO UPDATE SET
			status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			stored_at = excluded.stored_at
	`, cache, e.URL, e.Status, header, body, storedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to put %s in %s: %w", e.URL, cache, err)
	}
	return nil
}

func (s *SQLiteStorage) Match(ctx context.Context, cache, url string) (*Entry, error) {
	var (
		e        = Entry{URL: url}
		header   []byte
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT status, header, body, stored_at FROM caches WHERE cache_name = ? AND url = ?
	`, cache, url).Scan(&e.Status, &header, &e.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to match %s in %s: %w", url, cache, err)
	}
	e.Header = http.Header{}
	if len(header) > 0 {
		if err := json.Unmarshal(header, &e.Header); err != nil {
			return nil, fmt.Errorf("failed to decode header for %s: %w", url, err)
		}
	}
	e.StoredAt = time.UnixMilli(storedAt)
	return &e, nil
}

func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	return s.strings(ctx, `SELECT DISTINCT cache_name FROM caches ORDER BY cache_name`)
}

func (s *SQLiteStorage) URLs(ctx context.Context, cache string) ([]string, error) {
	return s.strings(ctx, `SELECT url FROM caches WHERE cache_name = ? ORDER BY url`, cache)
}

func (s *SQLiteStorage) Delete(ctx context.Context, cache string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM caches WHERE cache_name = ?`, cache)
	if err != nil {
		return fmt.Errorf("failed to delete cache %s: %w", cache, err)
	}
	return nil
}

func (s *SQLiteStorage) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query caches: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan cache row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache rows: %w", err)
	}
	return out, nil
}
