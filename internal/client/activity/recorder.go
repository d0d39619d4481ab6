// Package activity appends audit lines and version-history events to user
// records. Both sequences are most-recent-first: new items are prepended and
// existing items are never reordered, pruned or deduplicated.
package activity

import (
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
)

// LogLayout is the local-time layout used at the head of every audit line.
const LogLayout = "2006-01-02 15:04:05"

// Version actions recorded by the application.
const (
	ActionAppLoaded      = "App Loaded"
	ActionBackupExported = "Backup Exported"
	ActionBackupImported = "Backup Imported"
)

// Recorder stamps audit entries with its clock and version tag.
type Recorder struct {
	now     func() time.Time
	version string
}

// New returns a Recorder using the wall clock.
func New(version string) *Recorder {
	return &Recorder{now: time.Now, version: version}
}

// NewWithClock returns a Recorder using now as its clock.
func NewWithClock(version string, now func() time.Time) *Recorder {
	return &Recorder{now: now, version: version}
}

// Version is the tag written into version events.
func (r *Recorder) Version() string { return r.version }

// Log prepends "<time> — msg" to u.Logs.
func (r *Recorder) Log(u *models.UserRecord, msg string) {
	line := r.now().Local().Format(LogLayout) + " — " + msg
	u.Logs = append([]string{line}, u.Logs...)
}

// Event prepends a version event for action to u.VersionHistory.
func (r *Recorder) Event(u *models.UserRecord, action string) {
	ev := models.VersionEvent{
		Version: r.version,
		Action:  action,
		Time:    r.now().Local().Format(LogLayout),
	}
	u.VersionHistory = append([]models.VersionEvent{ev}, u.VersionHistory...)
}
