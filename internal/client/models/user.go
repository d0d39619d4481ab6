// Package models defines the client-side data model of sitemapkeeper: user
// records with their folders of sitemap entries, audit logs and version
// history, plus the whole-store and backup envelopes.
package models

import "time"

// Defaults applied to freshly added sitemap entries.
const (
	DefaultEntryURL   = "https://example.com/"
	DefaultPriority   = "0.8"
	DefaultChangefreq = "monthly"
)

// ChangeFrequencies lists the values accepted for SitemapEntry.Changefreq.
var ChangeFrequencies = []string{"always", "hourly", "daily", "weekly", "monthly", "yearly", "never"}

// UserRecord is everything the application keeps for one identity.
//
// Logs and VersionHistory are most-recent-first and are only ever prepended.
type UserRecord struct {
	Email          string            `json:"email" validate:"required,email"`
	Name           string            `json:"name"`
	DateOfBirth    string            `json:"dob"`
	PasswordHash   string            `json:"pass" validate:"omitempty,hexadecimal"`
	Photo          string            `json:"photo,omitempty" validate:"omitempty,datauri"`
	Logs           []string          `json:"logs"`
	Folders        []Folder          `json:"folders" validate:"dive"`
	Settings       map[string]string `json:"settings"`
	VersionHistory []VersionEvent    `json:"versionHistory" validate:"dive"`
}

// Folder is a named, ordered collection of sitemap entries. The order of
// Files is the display and export order.
type Folder struct {
	Name  string         `json:"name" validate:"required"`
	Files []SitemapEntry `json:"files" validate:"dive"`
}

// SitemapEntry is one <url> of a sitemap.
type SitemapEntry struct {
	URL        string `json:"url" validate:"required"`
	Priority   string `json:"priority" validate:"priority"`
	Changefreq string `json:"changefreq" validate:"changefreq"`
	Lastmod    string `json:"lastmod" validate:"datetime=2006-01-02"`
}

// VersionEvent is one entry of a user's version history.
type VersionEvent struct {
	Version string `json:"version" validate:"required"`
	Action  string `json:"action" validate:"required"`
	Time    string `json:"time"`
}

// NewEntry returns an entry with the default values and lastmod set to the
// date of now.
func NewEntry(now time.Time) SitemapEntry {
	return SitemapEntry{
		URL:        DefaultEntryURL,
		Priority:   DefaultPriority,
		Changefreq: DefaultChangefreq,
		Lastmod:    now.Format("2006-01-02"),
	}
}

// Clone returns a deep copy of u so callers can mutate it without touching
// the original.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	c := *u
	if u.Logs != nil {
		c.Logs = append([]string(nil), u.Logs...)
	}
	if u.Folders != nil {
		c.Folders = make([]Folder, len(u.Folders))
		for i, f := range u.Folders {
			c.Folders[i] = Folder{Name: f.Name}
			if f.Files != nil {
				c.Folders[i].Files = append([]SitemapEntry(nil), f.Files...)
			}
		}
	}
	if u.Settings != nil {
		c.Settings = make(map[string]string, len(u.Settings))
		for k, v := range u.Settings {
			c.Settings[k] = v
		}
	}
	if u.VersionHistory != nil {
		c.VersionHistory = append([]VersionEvent(nil), u.VersionHistory...)
	}
	return &c
}
