// Package common contains shared constants and sentinel errors used across
// sitemapkeeper components.
package common

// Well-known keys of the persisted client state.
const (
	// UsersKey holds the serialized identifier -> UserRecord mapping.
	UsersKey = "users_db"
	// UsersRevisionKey holds the revision counter written together with UsersKey.
	UsersRevisionKey = "users_db_rev"
	// SessionKey holds the identifier of the logged-in user; absent when logged out.
	SessionKey = "active_session"
)

// DateLayout is the date-only layout used for sitemap lastmod values.
const DateLayout = "2006-01-02"
