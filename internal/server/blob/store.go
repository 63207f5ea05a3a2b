// Package blob stores attachment bytes under opaque keys, on the local
// filesystem or in an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("blob not found")

// Store is the attachment object store. Keys are "/"-separated relative
// paths produced by NewStorageKey.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Get returns the object bytes or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object. Backends that can tell report a missing
	// object as ErrNotFound; S3 deletes are idempotent and never do.
	Delete(ctx context.Context, key string) error
}
