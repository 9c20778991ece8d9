// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/soundtech/meeting-backend/internal/store"
)

// MustOpenStore opens a migrated SQLite store in a temp dir and registers cleanup.
func MustOpenStore(t testing.TB) store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "meeting.db"), nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
