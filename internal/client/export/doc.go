// Package export turns a folder of sitemap entries into the artifacts a
// user downloads: the sitemap XML, a robots.txt document, a paginated
// report, a zip bundle, and the full-backup JSON envelope (plus its parser).
//
// Every function here is pure apart from the timestamp passed in by the
// caller; nothing touches the store.
package export
