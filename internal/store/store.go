// Package store persists interview sessions and archives finished live
// transcripts.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Backend.Get for a missing key.
var ErrNotFound = errors.New("store: not found")

// Backend is a keyed blob store holding serialized sessions.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
