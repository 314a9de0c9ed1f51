// Package testutil provides shared test helpers for setting up item stores.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/tasklist/internal/store/sqlitestore"
)

// TestStore creates a temporary SQLite item store that is automatically cleaned up.
func TestStore(t *testing.T) *sqlitestore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tasklist-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	db, err := sqlitestore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })
	return db
}
