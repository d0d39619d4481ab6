// Package cachestore persists the caching agent's named response caches.
// A cache is identified by name (one per agent version) and maps absolute
// request URLs to stored responses.
package cachestore

import (
	"context"
	"net/http"
	"time"
)

// Entry is one stored response.
type Entry struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Storage is the cache persistence contract.
type Storage interface {
	// Put stores e in cache, replacing any entry for the same URL.
	Put(ctx context.Context, cache string, e Entry) error
	// PutAll stores every entry or none of them.
	PutAll(ctx context.Context, cache string, entries []Entry) error
	// Match returns the entry for url, or common.ErrorNotFound.
	Match(ctx context.Context, cache, url string) (*Entry, error)
	// Keys lists the names of all non-empty caches.
	Keys(ctx context.Context) ([]string, error)
	// URLs lists the URLs held by cache.
	URLs(ctx context.Context, cache string) ([]string, error)
	// Delete drops a whole cache.
	Delete(ctx context.Context, cache string) error
}
