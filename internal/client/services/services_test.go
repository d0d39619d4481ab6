package services

import (
	"archive/zip"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/activity"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
	"github.com/dmitrijs2005/sitemapkeeper/internal/client/store"
	"github.com/dmitrijs2005/sitemapkeeper/internal/common"
	"github.com/dmitrijs2005/sitemapkeeper/internal/dbx"
	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

type toggle struct{ v atomic.Bool }

func (t *toggle) ReadOnly() bool { return t.v.Load() }

type fixture struct {
	db        *sql.DB
	store     *store.SQLiteStore
	readOnly  *toggle
	deps      Deps
	accounts  AccountService
	workspace WorkspaceService
	transfer  TransferService
	exportDir string
}

var fixedNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, quota int64) *fixture {
	t.Helper()
	db, err := dbx.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:        db,
		store:     store.New(db, quota, logging.Discard()),
		readOnly:  &toggle{},
		exportDir: t.TempDir(),
	}
	clock := func() time.Time { return fixedNow }
	f.deps = Deps{
		Store:    f.store,
		Recorder: activity.NewWithClock("v1.0.0", clock),
		ReadOnly: f.readOnly,
		Logger:   logging.Discard(),
		Now:      clock,
	}
	f.accounts = NewAccountService(f.deps)
	f.workspace = NewWorkspaceService(f.deps)
	f.transfer = NewTransferService(f.deps, f.exportDir)
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.accounts.Register(ctx, NewAccount{
		Email: "ann@x.com", Name: "Ann", DateOfBirth: "1990-05-01",
		Password: "secret-pass", Confirm: "secret-pass",
	}))
	require.NoError(t, f.accounts.Login(ctx, "ann@x.com", "secret-pass"))
}

func (f *fixture) user(t *testing.T) *models.UserRecord {
	t.Helper()
	u, err := f.accounts.Current(context.Background())
	require.NoError(t, err)
	return u
}

func (f *fixture) revision(t *testing.T) int64 {
	t.Helper()
	st, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return st.Revision
}

// ---- account ----

func TestAccount_RegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, err := f.accounts.Current(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)

	f.login(t)
	u := f.user(t)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, HashPassword("secret-pass"), u.PasswordHash)
	assert.Len(t, u.PasswordHash, 64)
	require.Len(t, u.Logs, 1)
	assert.Equal(t, fixedNow.Local().Format(activity.LogLayout)+" — Account created", u.Logs[0])

	require.NoError(t, f.accounts.Logout(ctx))
	_, err = f.accounts.Current(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)
}

func TestAccount_RegisterErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)

	tests := []struct {
		name    string
		in      NewAccount
		wantErr error
	}{
		{"duplicate", NewAccount{Email: "ann@x.com", Password: "12345678", Confirm: "12345678"}, common.ErrAlreadyExists},
		{"short password", NewAccount{Email: "bob@x.com", Password: "short", Confirm: "short"}, common.ErrInvalidPassword},
		{"mismatch", NewAccount{Email: "bob@x.com", Password: "12345678", Confirm: "12345679"}, common.ErrInvalidPassword},
		{"not an email", NewAccount{Email: "bob", Password: "12345678", Confirm: "12345678"}, common.ErrValidation},
		{"bad dob", NewAccount{Email: "bob@x.com", DateOfBirth: "01/02/1990", Password: "12345678", Confirm: "12345678"}, common.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, f.accounts.Register(ctx, tt.in), tt.wantErr)
		})
	}
}

func TestAccount_LoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)
	require.NoError(t, f.accounts.Logout(ctx))

	require.ErrorIs(t, f.accounts.Login(ctx, "ann@x.com", "wrong-pass"), common.ErrUnauthorized)
	require.ErrorIs(t, f.accounts.Login(ctx, "nobody@x.com", "secret-pass"), common.ErrUnauthorized)
	_, err := f.accounts.Current(ctx)
	require.ErrorIs(t, err, common.ErrNoSession)
}

func TestAccount_StartSession(t *testing.T) {
	f := newFixture(t, 0)
	f.login(t)
	require.NoError(t, f.accounts.StartSession(context.Background()))

	u := f.user(t)
	assert.True(t, strings.HasSuffix(u.Logs[0], " — Session started"))
	require.Len(t, u.VersionHistory, 1)
	assert.Equal(t, activity.ActionAppLoaded, u.VersionHistory[0].Action)
	assert.Equal(t, "v1.0.0", u.VersionHistory[0].Version)
}

func TestAccount_RecordConnectivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	require.NoError(t, f.accounts.RecordConnectivity(ctx, true), "no session, nothing to record")

	f.login(t)
	require.NoError(t, f.accounts.RecordConnectivity(ctx, true))
	require.NoError(t, f.accounts.RecordConnectivity(ctx, false))

	u := f.user(t)
	assert.True(t, strings.HasSuffix(u.Logs[0], OfflineAudit))
	assert.True(t, strings.HasSuffix(u.Logs[1], OnlineAudit))
}

// ---- workspace ----

func TestWorkspace_FoldersAndEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)

	idx, err := f.workspace.CreateFolder(ctx, "  Blog ")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = f.workspace.CreateFolder(ctx, "Blog")
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "duplicate names are allowed")

	_, err = f.workspace.CreateFolder(ctx, "   ")
	require.ErrorIs(t, err, common.ErrValidation)

	e, err := f.workspace.AddEntry(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, models.SitemapEntry{URL: "https://example.com/", Priority: "0.8", Changefreq: "monthly", Lastmod: "2024-06-15"}, e)
	_, err = f.workspace.AddEntry(ctx, 0)
	require.NoError(t, err)

	_, err = f.workspace.AddEntry(ctx, 5)
	require.ErrorIs(t, err, common.ErrorNotFound)

	folders, err := f.workspace.Folders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "Blog", folders[0].Name)
	assert.Len(t, folders[0].Files, 2)

	u := f.user(t)
	assert.True(t, strings.HasSuffix(u.Logs[0], "Sitemap entry added"))
	assert.True(t, strings.HasSuffix(u.Logs[3], "Folder created: Blog"))
}

func TestWorkspace_EditEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)
	_, err := f.workspace.CreateFolder(ctx, "Blog")
	require.NoError(t, err)

	// seed an entry with an old lastmod directly in the store
	st, err := f.store.Load(ctx)
	require.NoError(t, err)
	u, _ := st.Get("ann@x.com")
	u.Folders[0].Files = []models.SitemapEntry{
		{URL: "https://x.com/a", Priority: "0.5", Changefreq: "weekly", Lastmod: "2020-01-01"},
		{URL: "https://x.com/b", Priority: "0.5", Changefreq: "weekly", Lastmod: "2020-01-01"},
	}
	require.NoError(t, f.store.Save(ctx, st))

	got, err := f.workspace.EditEntry(ctx, 0, 1, EntryEdit{URL: " https://x.com/new "})
	require.NoError(t, err)
	assert.Equal(t, models.SitemapEntry{URL: "https://x.com/new", Priority: "0.5", Changefreq: "weekly", Lastmod: "2024-06-15"}, got)

	got, err = f.workspace.EditEntry(ctx, 0, 0, EntryEdit{URL: "https://x.com/a", Priority: "1.0", Changefreq: "daily"})
	require.NoError(t, err)
	assert.Equal(t, "1.0", got.Priority)
	assert.Equal(t, "daily", got.Changefreq)
	assert.Equal(t, "2024-06-15", got.Lastmod)

	folders, err := f.workspace.Folders(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/a", folders[0].Files[0].URL, "order is preserved")
	assert.Equal(t, "https://x.com/new", folders[0].Files[1].URL)
}

func TestWorkspace_EditEntryRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)
	_, err := f.workspace.CreateFolder(ctx, "Blog")
	require.NoError(t, err)
	_, err = f.workspace.AddEntry(ctx, 0)
	require.NoError(t, err)
	before := f.revision(t)

	tests := []struct {
		name    string
		folder  int
		entry   int
		edit    EntryEdit
		wantErr error
	}{
		{"empty url", 0, 0, EntryEdit{URL: "  "}, common.ErrValidation},
		{"priority too high", 0, 0, EntryEdit{URL: "https://x.com", Priority: "1.5"}, common.ErrValidation},
		{"priority not a number", 0, 0, EntryEdit{URL: "https://x.com", Priority: "high"}, common.ErrValidation},
		{"bad changefreq", 0, 0, EntryEdit{URL: "https://x.com", Changefreq: "sometimes"}, common.ErrValidation},
		{"missing entry", 0, 3, EntryEdit{URL: "https://x.com"}, common.ErrorNotFound},
		{"missing folder", 2, 0, EntryEdit{URL: "https://x.com"}, common.ErrorNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.workspace.EditEntry(ctx, tt.folder, tt.entry, tt.edit)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, before, f.revision(t), "rejected edits never write")
}

func TestWorkspace_ReadOnlyLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)
	_, err := f.workspace.CreateFolder(ctx, "Blog")
	require.NoError(t, err)

	f.readOnly.v.Store(true)
	_, err = f.workspace.CreateFolder(ctx, "Docs")
	require.ErrorIs(t, err, common.ErrReadOnly)
	require.ErrorIs(t, f.workspace.UpdatePassword(ctx, "another-pass", "another-pass"), common.ErrReadOnly)
	_, err = f.workspace.GenerateRobots(ctx, "", "", "")
	require.ErrorIs(t, err, common.ErrReadOnly)

	// entry edits stay available offline
	_, err = f.workspace.AddEntry(ctx, 0)
	require.NoError(t, err)

	f.readOnly.v.Store(false)
	_, err = f.workspace.CreateFolder(ctx, "Docs")
	require.NoError(t, err)
}

func TestWorkspace_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)

	require.ErrorIs(t, f.workspace.UpdatePassword(ctx, "short", "short"), common.ErrInvalidPassword)
	require.ErrorIs(t, f.workspace.UpdatePassword(ctx, "another-pass", "another-pasS"), common.ErrInvalidPassword)
	require.NoError(t, f.workspace.UpdatePassword(ctx, "another-pass", "another-pass"))

	assert.Equal(t, HashPassword("another-pass"), f.user(t).PasswordHash)
	require.NoError(t, f.accounts.Logout(ctx))
	require.NoError(t, f.accounts.Login(ctx, "ann@x.com", "another-pass"))
}

func TestWorkspace_UpdatePhoto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	require.NoError(t, f.workspace.UpdatePhoto(ctx, png))
	assert.True(t, strings.HasPrefix(f.user(t).Photo, "data:image/png;base64,"))

	require.ErrorIs(t, f.workspace.UpdatePhoto(ctx, []byte("plain text")), common.ErrValidation)
}

func TestWorkspace_GenerateRobots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)

	txt, err := f.workspace.GenerateRobots(ctx, "", "/private", "https://x.com/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, "User-agent: *\nAllow: /\nDisallow: /private\n\nSitemap: https://x.com/sitemap.xml", txt)

	stored, err := f.workspace.Robots(ctx)
	require.NoError(t, err)
	assert.Equal(t, txt, stored)
}

// ---- transfer ----

func TestTransfer_ExportKinds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)
	_, err := f.workspace.CreateFolder(ctx, "Blog")
	require.NoError(t, err)
	_, err = f.workspace.AddEntry(ctx, 0)
	require.NoError(t, err)
	robots, err := f.workspace.GenerateRobots(ctx, "/", "", "")
	require.NoError(t, err)

	path, err := f.transfer.Export(ctx, 0, KindXML)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.exportDir, "Blog.xml"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<loc>https://example.com/</loc>")

	path, err = f.transfer.Export(ctx, 0, KindReport)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1. https://example.com/")

	path, err = f.transfer.Export(ctx, 0, KindZip)
	require.NoError(t, err)
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	names := map[string]string{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names[zf.Name] = string(b)
	}
	assert.Equal(t, robots, names["robots.txt"])
	assert.Contains(t, names["README.txt"], "Entries: 1")

	_, err = f.transfer.Export(ctx, 0, "pdf")
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = f.transfer.Export(ctx, 9, KindXML)
	require.ErrorIs(t, err, common.ErrorNotFound)

	u := f.user(t)
	assert.True(t, strings.HasSuffix(u.Logs[0], "ZIP exported"))
	assert.True(t, strings.HasSuffix(u.Logs[1], "Report exported"))
	assert.True(t, strings.HasSuffix(u.Logs[2], "XML exported"))
}

func TestTransfer_ExportKeepsWholeFolderName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)
	_, err := f.workspace.CreateFolder(ctx, "a/b")
	require.NoError(t, err)
	_, err = f.workspace.CreateFolder(ctx, `..\c`)
	require.NoError(t, err)

	path, err := f.transfer.Export(ctx, 0, KindXML)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.exportDir, "a_b.xml"), path)
	assert.FileExists(t, path)

	path, err = f.transfer.Export(ctx, 1, KindZip)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.exportDir, ".._c.zip"), path)
	assert.FileExists(t, path)
}

func TestExportName(t *testing.T) {
	tests := []struct {
		folder, ext, want string
	}{
		{"Blog", ".xml", "Blog.xml"},
		{"a/b", ".xml", "a_b.xml"},
		{`a\b/c`, ".txt", "a_b_c.txt"},
		{"../up", ".zip", ".._up.zip"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, exportName(tc.folder, tc.ext), tc.folder)
	}
}

func TestTransfer_ExportRobots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)

	_, err := f.transfer.ExportRobots(ctx)
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.workspace.GenerateRobots(ctx, "", "", "")
	require.NoError(t, err)
	path, err := f.transfer.ExportRobots(ctx)
	require.NoError(t, err)
	assert.Equal(t, "robots.txt", filepath.Base(path))
}

func TestTransfer_BackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)
	_, err := f.workspace.CreateFolder(ctx, "Blog")
	require.NoError(t, err)
	_, err = f.workspace.AddEntry(ctx, 0)
	require.NoError(t, err)

	path, err := f.transfer.ExportBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sitemap-backup-1718443800000.json", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	snapshot := f.user(t)
	assert.Equal(t, activity.ActionBackupExported, snapshot.VersionHistory[0].Action)

	// diverge, then restore
	_, err = f.workspace.CreateFolder(ctx, "Scratch")
	require.NoError(t, err)
	require.NoError(t, f.transfer.ImportBackup(ctx, data))

	u := f.user(t)
	require.Len(t, u.Folders, 1)
	assert.Equal(t, "Blog", u.Folders[0].Name)
	assert.True(t, strings.HasSuffix(u.Logs[0], "Backup imported"))
	assert.Equal(t, activity.ActionBackupImported, u.VersionHistory[0].Action)

	// apart from the two import records, the backup's record came back intact
	u.Logs = u.Logs[1:]
	u.VersionHistory = u.VersionHistory[1:]
	backupUser := *snapshot
	backupUser.Logs = backupUser.Logs[1:]
	backupUser.VersionHistory = backupUser.VersionHistory[1:]
	if diff := cmp.Diff(&backupUser, u, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("restored record mismatch (-want +got):\n%s", diff)
	}
}

func TestTransfer_ImportKeepsActiveIdentifier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)

	backup := `{"appVersion":"v1.0.0","exportedAt":"2024-01-01T00:00:00.000Z","userData":{"email":"other@x.com","name":"Other","logs":[],"folders":[],"settings":{},"versionHistory":[]}}`
	require.NoError(t, f.transfer.ImportBackup(ctx, []byte(backup)))

	u := f.user(t)
	assert.Equal(t, "ann@x.com", u.Email)
	assert.Equal(t, "Other", u.Name)

	st, err := f.store.Load(ctx)
	require.NoError(t, err)
	_, other := st.Get("other@x.com")
	assert.False(t, other)
}

func TestTransfer_ImportRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)
	before := f.revision(t)

	require.ErrorIs(t, f.transfer.ImportBackup(ctx, []byte(`{"appVersion":"v1"}`)), common.ErrInvalidBackup)
	require.ErrorIs(t, f.transfer.ImportBackup(ctx, []byte(`{broken`)), common.ErrRestoreFailed)
	assert.Equal(t, before, f.revision(t))
}

func TestTransfer_StorageStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	st, err := f.transfer.StorageStatus(ctx)
	require.NoError(t, err)
	assert.False(t, st.Warning, "unlimited quota never warns")

	f.login(t)
	used, err := f.store.Usage(ctx)
	require.NoError(t, err)
	require.Positive(t, used.Used)

	// a quota the current data fills to roughly 85%
	d := f.deps
	tight := store.New(f.db, used.Used*100/85, logging.Discard())
	d.Store = tight
	transfer := NewTransferService(d, f.exportDir)
	workspace := NewWorkspaceService(d)

	st, err = transfer.StorageStatus(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st.Percent, StorageWarnPercent)
	assert.True(t, st.Warning)

	_, err = workspace.CreateFolder(ctx, strings.Repeat("x", int(used.Used)))
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
	folders, err := workspace.Folders(ctx)
	require.NoError(t, err)
	assert.Empty(t, folders, "a write over quota leaves the previous state")
}

// ---- concurrency ----

// racingStore lets another writer slip in right before the first guarded save.
type racingStore struct {
	store.Repository
	race func(ctx context.Context)
	done atomic.Bool
}

func (r *racingStore) CompareAndSave(ctx context.Context, st *models.Store) error {
	if r.done.CompareAndSwap(false, true) {
		r.race(ctx)
	}
	return r.Repository.CompareAndSave(ctx, st)
}

func TestUpdate_RetriesAfterConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.login(t)

	other := NewWorkspaceService(f.deps)
	racing := &racingStore{Repository: f.store, race: func(ctx context.Context) {
		_, err := other.CreateFolder(ctx, "From other tab")
		require.NoError(t, err)
	}}
	d := f.deps
	d.Store = racing
	ws := NewWorkspaceService(d)

	_, err := ws.CreateFolder(ctx, "From this tab")
	require.NoError(t, err)

	folders, err := f.workspace.Folders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 2, "neither tab's folder is lost")
	assert.Equal(t, "From other tab", folders[0].Name)
	assert.Equal(t, "From this tab", folders[1].Name)
}
