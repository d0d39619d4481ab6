// Package services contains the application services of the sitemapkeeper
// client. Every mutation follows the same cycle: load the whole store, clone
// the active user's record, apply the change to the clone, and write the
// store back with a revision check. A lost race is retried on a fresh
// snapshot, so concurrent CLI processes do not silently drop each other's
// edits.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/activity"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/store"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
)

// maxUpdateAttempts bounds retries after a revision conflict.
const maxUpdateAttempts = 3

// ReadOnlySource reports whether mutating operations are locked.
// connectivity.Monitor satisfies it.
type ReadOnlySource interface {
	ReadOnly() bool
}

type alwaysWritable struct{}

func (alwaysWritable) ReadOnly() bool { return false }

// Deps are the collaborators shared by all services.
type Deps struct {
	Store    store.Repository
	Recorder *activity.Recorder
	ReadOnly ReadOnlySource
	Logger   logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type core struct {
	store    store.Repository
	recorder *activity.Recorder
	readOnly ReadOnlySource
	logger   logging.Logger
	now      func() time.Time
}

func newCore(d Deps) core {
	c := core{
		store:    d.Store,
		recorder: d.Recorder,
		readOnly: d.ReadOnly,
		logger:   d.Logger,
		now:      d.Now,
	}
	if c.readOnly == nil {
		c.readOnly = alwaysWritable{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *core) checkWritable() error {
	if c.readOnly.ReadOnly() {
		return common.ErrReadOnly
	}
	return nil
}

// today is the UTC date used for lastmod.
func (c *core) today() string {
	return c.now().UTC().Format(common.DateLayout)
}

// current returns the active user's record from a fresh load.
func (c *core) current(ctx context.Context) (string, *models.UserRecord, error) {
	st, err := c.store.Load(ctx)
	if err != nil {
		return "", nil, err
	}
	id, err := c.store.ActiveID(ctx)
	if err != nil {
		return "", nil, err
	}
	u, ok := st.Get(id)
	if id == "" || !ok {
		return "", nil, common.ErrNoSession
	}
	return id, u, nil
}

// update runs fn against a copy of the active user's record and persists
// the result. fn must only touch the record it is given; on a revision
// conflict it is called again on a newer snapshot.
func (c *core) update(ctx context.Context, fn func(u *models.UserRecord) error) (*models.UserRecord, error) {
	for attempt := 1; ; attempt++ {
		st, err := c.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		id, err := c.store.ActiveID(ctx)
		if err != nil {
			return nil, err
		}
		u, ok := st.Get(id)
		if id == "" || !ok {
			return nil, common.ErrNoSession
		}

		next := u.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		st.Put(id, next)

		err = c.store.CompareAndSave(ctx, st)
		if err == nil {
			return next, nil
		}
		if !isConflict(err) || attempt == maxUpdateAttempts {
			return nil, err
		}
		c.logger.Debug(ctx, "store changed underneath, retrying", "attempt", attempt)
	}
}

// HashPassword returns the lowercase hex SHA-256 digest of password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

func checkNewPassword(password, confirm string) error {
	if len(password) < MinPasswordLength || password != confirm {
		return common.ErrInvalidPassword
	}
	return nil
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

func isConflict(err error) bool {
	return errors.Is(err, common.ErrVersionConflict)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(common.DateLayout, s)
}
