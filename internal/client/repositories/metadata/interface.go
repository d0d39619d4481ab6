// Package metadata provides the client-side key -> blob repository that
// backs the persisted store. Two keys matter to the application (see
// common.UsersKey and common.SessionKey) plus the revision counter kept
// next to the users blob.
package metadata

import (
	"context"
)

// Repository is a key/value store of opaque byte values.
// Get returns (nil, nil) when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Counter reads a decimal counter. Missing or unparsable values read as 0.
	Counter(ctx context.Context, key string) (int64, error)
	SetCounter(ctx context.Context, key string, n int64) error

	// SizeWithout returns the value bytes held under every key but skip.
	// An empty skip counts everything.
	SizeWithout(ctx context.Context, skip string) (int64, error)
}
