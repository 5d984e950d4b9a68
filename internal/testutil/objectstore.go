package testutil

import (
	"context"
	"io"
	"sync"
	"time"

	"drive-go/internal/drive"
	"drive-go/internal/objectstore"
)

const (
	// TestSigningSecret keys download URLs of test stores.
	TestSigningSecret = "test-signing-secret-test-signing"

	// TestBaseURL is the public base URL of test stores.
	TestBaseURL = "http://drive.test"
)

// NewTestObjectStore creates a new in-memory object store for testing.
func NewTestObjectStore() *objectstore.MemoryStore {
	return objectstore.NewMemoryStore(objectstore.NewURLSigner(TestSigningSecret, TestBaseURL))
}

// FaultyObjectStore wraps a store and fails selected calls. Deleted paths are
// recorded whether or not the delete fails.
type FaultyObjectStore struct {
	drive.ObjectStore

	mu        sync.Mutex
	PutErr    error
	DeleteErr error
	SignErr   error
	deleted   []string
}

func NewFaultyObjectStore(inner drive.ObjectStore) *FaultyObjectStore {
	return &FaultyObjectStore{ObjectStore: inner}
}

func (f *FaultyObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := f.err(&f.PutErr); err != nil {
		return "", err
	}
	return f.ObjectStore.Put(ctx, key, r, size, contentType)
}

func (f *FaultyObjectStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, path)
	err := f.DeleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ObjectStore.Delete(ctx, path)
}

func (f *FaultyObjectStore) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if err := f.err(&f.SignErr); err != nil {
		return "", err
	}
	return f.ObjectStore.SignedURL(ctx, path, ttl)
}

// Deleted returns every path passed to Delete.
func (f *FaultyObjectStore) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *FaultyObjectStore) err(p *error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *p
}
