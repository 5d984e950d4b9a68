package testutil

import (
	"testing"

	"drive-go/internal/database"
)

// NewTestDatabase creates a new in-memory SQLite database with migrations
// applied. The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
