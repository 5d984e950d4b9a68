package drive

import (
	"context"
	"io"
	"time"
)

// ObjectStore holds file bytes. Paths are opaque keys chosen by the engine.
type ObjectStore interface {
	// Put stores size bytes read from r under key and returns the stored path.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)

	// PublicURL returns the unsigned address of a stored path.
	PublicURL(path string) string

	// SignedURL returns a URL granting read access to path until ttl elapses.
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Delete removes path. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error

	// ValidateSetup verifies that the store is reachable and configured.
	ValidateSetup(ctx context.Context) error
}
