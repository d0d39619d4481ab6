package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/sitemapkeeper/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := dbx.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSetAndGet_InsertThenGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_NotExists_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSet_UpsertOverwritesValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestSet_NilValueStoredAsEmpty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", nil))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Empty(t, v)
}

func TestDelete_RemovesOnlyThatKey(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte("1")))
	require.NoError(t, r.Set(ctx, "b", []byte("2")))

	require.NoError(t, r.Delete(ctx, "a"))
	require.NoError(t, r.Delete(ctx, "missing"))

	v, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = r.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}

func TestCounter(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	n, err := r.Counter(ctx, "rev")
	require.NoError(t, err)
	assert.Zero(t, n, "missing counter reads as zero")

	require.NoError(t, r.SetCounter(ctx, "rev", 41))
	n, err = r.Counter(ctx, "rev")
	require.NoError(t, err)
	assert.Equal(t, int64(41), n)

	require.NoError(t, r.Set(ctx, "rev", []byte("not a number")))
	n, err = r.Counter(ctx, "rev")
	require.NoError(t, err)
	assert.Zero(t, n, "garbage counter reads as zero")
}

func TestSizeWithout_SumsValueBytes(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	n, err := r.SizeWithout(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, r.Set(ctx, "a", []byte("12345")))
	require.NoError(t, r.Set(ctx, "b", []byte("678")))

	n, err = r.SizeWithout(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	n, err = r.SizeWithout(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestClosedDB_ReturnsWrappedErrors(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())
	ctx := context.Background()

	_, err := r.Get(ctx, "k")
	require.Error(t, err)
	require.Error(t, r.Set(ctx, "k", []byte("v")))
	require.Error(t, r.Delete(ctx, "k"))
	_, err = r.Counter(ctx, "k")
	require.Error(t, err)
	_, err = r.SizeWithout(ctx, "")
	require.Error(t, err)
}
