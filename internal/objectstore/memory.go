package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"drive-go/internal/drive"
)

type memoryObject struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// MemoryStore is an in-memory implementation of the ObjectStore interface.
// It is useful for testing and safe for concurrent use.
type MemoryStore struct {
	signer  *URLSigner
	objects map[string]memoryObject
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty store whose URLs are signed by signer.
func NewMemoryStore(signer *URLSigner) *MemoryStore {
	return &MemoryStore{
		signer:  signer,
		objects: make(map[string]memoryObject),
	}
}

// Put stores the content under key. An existing key is a conflict and the
// reader is left untouched.
func (m *MemoryStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if m.Exists(key) {
		return "", fmt.Errorf("%w: object %s already exists", drive.ErrConflict, key)
	}

	data, err := readExactly(r, size)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; ok {
		return "", fmt.Errorf("%w: object %s already exists", drive.ErrConflict, key)
	}
	m.objects[key] = memoryObject{data: data, contentType: contentType, modTime: m.signer.now()}
	return key, nil
}

// Exists reports whether key is stored.
func (m *MemoryStore) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryStore) Open(_ context.Context, path string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", drive.ErrNotFound, path)
	}
	return &Object{
		Body:        nopSeekCloser{bytes.NewReader(obj.data)},
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		ModTime:     obj.modTime,
	}, nil
}

func (m *MemoryStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *MemoryStore) PublicURL(path string) string {
	return m.signer.URL(path)
}

func (m *MemoryStore) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	return m.signer.Sign(path, ttl)
}

func (m *MemoryStore) Signer() *URLSigner {
	return m.signer
}

// ValidateSetup always succeeds for memory stores.
func (m *MemoryStore) ValidateSetup(context.Context) error {
	return nil
}

type nopSeekCloser struct {
	io.ReadSeeker
}

func (nopSeekCloser) Close() error { return nil }

// Compile-time check that MemoryStore implements LocalStore interface
var _ LocalStore = (*MemoryStore)(nil)
