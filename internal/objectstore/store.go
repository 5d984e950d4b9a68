package objectstore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"drive-go/internal/drive"
)

// Object is an open stored blob.
type Object struct {
	Body        io.ReadSeekCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// LocalStore is an ObjectStore whose bytes this process serves itself, under
// URLs checked by its URLSigner.
type LocalStore interface {
	drive.ObjectStore

	// Open returns the stored object. A missing path wraps drive.ErrNotFound.
	Open(ctx context.Context, path string) (*Object, error)

	// Signer returns the signer of the store's URLs.
	Signer() *URLSigner
}

// validKey rejects keys that would escape the store's namespace.
func validKey(key string) error {
	if key == "" || !filepath.IsLocal(filepath.FromSlash(key)) {
		return fmt.Errorf("%w: invalid object key %q", drive.ErrBadRequest, key)
	}
	return nil
}

// readExactly reads size bytes from r and fails on any other length.
func readExactly(r io.Reader, size int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, size+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("%w: size mismatch: expected %d bytes, got %d", drive.ErrBadRequest, size, len(data))
	}
	return data, nil
}
