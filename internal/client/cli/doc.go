// Package cli provides the interactive sitemapkeeper command-line client.
//
// It wires configuration, the local store, the application services and an
// interactive REPL. Typical flow: resume or start a session, start the
// background connectivity monitor and update listener, and execute user
// commands until the user exits.
//
// Key features:
//   - Register / Login / Logout on the local store
//   - Folders of sitemap entries: create, add, edit, show
//   - Exports: sitemap XML, paged report, ZIP bundle, robots.txt
//   - Full backup and restore of the account
//   - Read-only lock while offline and update notices from the caching agent
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
