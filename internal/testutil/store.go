package testutil

import (
	"context"
	"testing"

	"github.com/lepinkainen/gutenshelf/internal/datastore"
)

// NewMemoryStore returns a connected SQLite catalog store backed by a
// private in-memory database. It is closed when the test completes.
func NewMemoryStore(t *testing.T) *datastore.SQLiteStore {
	t.Helper()

	store := datastore.NewSQLiteStore(":memory:")
	if err := store.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect memory store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
