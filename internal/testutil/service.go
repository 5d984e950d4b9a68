package testutil

import (
	"testing"

	"drive-go/internal/drive"
	"drive-go/internal/objectstore"
)

// Env bundles a DriveService with the stubs behind it.
type Env struct {
	Service *drive.DriveService
	DB      drive.Database
	Store   *objectstore.MemoryStore
	Clock   *StubClock
	IDs     *StubIDGenerator
	Tokens  *StubTokenGenerator
}

// NewTestService creates a DriveService over an in-memory database and
// object store. A nil opts uses drive.DefaultOptions.
func NewTestService(t *testing.T, opts *drive.Options) *Env {
	t.Helper()

	o := drive.DefaultOptions()
	if opts != nil {
		o = *opts
	}
	env := &Env{
		DB:     NewTestDatabase(t),
		Store:  NewTestObjectStore(),
		Clock:  FixedClock(),
		IDs:    NewStubIDGenerator(),
		Tokens: NewStubTokenGenerator(),
	}
	env.Service = drive.NewDriveService(env.DB, env.Store, drive.NewNopLogger(), env.Clock, env.IDs, env.Tokens, o)
	return env
}

// WithStore rebuilds the service around store, keeping the other stubs.
func (e *Env) WithStore(store drive.ObjectStore) *drive.DriveService {
	return drive.NewDriveService(e.DB, store, drive.NewNopLogger(), e.Clock, e.IDs, e.Tokens, e.Service.Options())
}
