// Package store is the client's persistent store: the identifier -> UserRecord
// mapping serialized as one blob under common.UsersKey, plus the active
// session identifier under common.SessionKey.
//
// Every write replaces the whole blob inside a single transaction, so a
// reader sees either the previous store or the new one and never a mix.
// Save is last-writer-wins; CompareAndSave additionally checks the revision
// counter the snapshot was loaded at and rejects stale snapshots with
// common.ErrVersionConflict.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
	"github.com/dmitrijs2005/sitemapkeeper/internal/dbx"
	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
)

// Repository is the persistence contract the feature layer depends on.
type Repository interface {
	// Load reads the whole store. Missing or corrupt data yields an empty
	// store; only infrastructure failures are returned as errors.
	Load(ctx context.Context) (*models.Store, error)
	// Save overwrites the persisted store with s (last writer wins).
	Save(ctx context.Context, s *models.Store) error
	// CompareAndSave is Save guarded by the revision s was loaded at.
	CompareAndSave(ctx context.Context, s *models.Store) error
	// ActiveUser returns the record of the logged-in identity, if any.
	ActiveUser(ctx context.Context, s *models.Store) (*models.UserRecord, bool, error)
	ActiveID(ctx context.Context) (string, error)
	SetActive(ctx context.Context, id string) error
	ClearActive(ctx context.Context) error
	Usage(ctx context.Context) (Usage, error)
}

// Usage describes how much of the configured quota is in use.
type Usage struct {
	Used  int64
	Quota int64
}

// Percent returns Used as a rounded percentage of Quota, 0 when unlimited.
func (u Usage) Percent() int {
	if u.Quota <= 0 {
		return 0
	}
	return int((u.Used*100 + u.Quota/2) / u.Quota)
}

// SQLiteStore implements Repository on top of the metadata table.
type SQLiteStore struct {
	db     *sql.DB
	quota  int64
	logger logging.Logger
}

// New returns a store over db. quota bounds the total persisted bytes;
// zero or negative means unlimited.
func New(db *sql.DB, quota int64, logger logging.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, quota: quota, logger: logger}
}

func (s *SQLiteStore) Load(ctx context.Context) (*models.Store, error) {
	var (
		blob []byte
		rev  int64
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		var err error
		if blob, err = repo.Get(ctx, common.UsersKey); err != nil {
			return err
		}
		rev, err = repo.Counter(ctx, common.UsersRevisionKey)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}

	st := models.NewStore()
	st.Revision = rev
	if len(blob) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(blob, &st.Users); err != nil {
		s.logger.Warn(ctx, "persisted store is corrupt, starting empty", "err", err, "bytes", len(blob))
		st.Users = make(map[string]*models.UserRecord)
		return st, nil
	}
	if st.Users == nil {
		st.Users = make(map[string]*models.UserRecord)
	}
	for id, u := range st.Users {
		if u == nil {
			delete(st.Users, id)
		}
	}
	return st, nil
}

func (s *SQLiteStore) Save(ctx context.Context, st *models.Store) error {
	return s.save(ctx, st, false)
}

func (s *SQLiteStore) CompareAndSave(ctx context.Context, st *models.Store) error {
	return s.save(ctx, st, true)
}

func (s *SQLiteStore) save(ctx context.Context, st *models.Store, checkRevision bool) error {
	users := st.Users
	if users == nil {
		users = map[string]*models.UserRecord{}
	}
	blob, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("serialize store: %w", err)
	}

	var newRev int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		rev, err := repo.Counter(ctx, common.UsersRevisionKey)
		if err != nil {
			return err
		}
		if checkRevision && rev != st.Revision {
			return fmt.Errorf("store at revision %d, snapshot at %d: %w", rev, st.Revision, common.ErrVersionConflict)
		}

		if s.quota > 0 {
			others, err := repo.SizeWithout(ctx, common.UsersKey)
			if err != nil {
				return err
			}
			projected := others + int64(len(blob))
			if projected > s.quota {
				return fmt.Errorf("%d of %d bytes: %w", projected, s.quota, common.ErrQuotaExceeded)
			}
		}

		if err := repo.Set(ctx, common.UsersKey, blob); err != nil {
			return err
		}
		newRev = rev + 1
		return repo.SetCounter(ctx, common.UsersRevisionKey, newRev)
	})
	if err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	st.Revision = newRev
	return nil
}

func (s *SQLiteStore) ActiveUser(ctx context.Context, st *models.Store) (*models.UserRecord, bool, error) {
	id, err := s.ActiveID(ctx)
	if err != nil {
		return nil, false, err
	}
	if id == "" {
		return nil, false, nil
	}
	u, ok := st.Get(id)
	return u, ok, nil
}

func (s *SQLiteStore) ActiveID(ctx context.Context) (string, error) {
	v, err := metadata.NewSQLiteRepository(s.db).Get(ctx, common.SessionKey)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return string(v), nil
}

func (s *SQLiteStore) SetActive(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("empty session identifier")
	}
	if err := metadata.NewSQLiteRepository(s.db).Set(ctx, common.SessionKey, []byte(id)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearActive(ctx context.Context) error {
	if err := metadata.NewSQLiteRepository(s.db).Delete(ctx, common.SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Usage(ctx context.Context) (Usage, error) {
	n, err := metadata.NewSQLiteRepository(s.db).SizeWithout(ctx, "")
	if err != nil {
		return Usage{}, err
	}
	return Usage{Used: n, Quota: s.quota}, nil
}
