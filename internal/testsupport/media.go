package testsupport

import (
	"bytes"
	"testing"

	"github.com/soundtech/meeting-backend/pkg/storage"
)

// NewMediaStore returns a local media store rooted in a temp dir.
func NewMediaStore(t testing.TB) *storage.LocalStore {
	t.Helper()

	ms, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("storage.NewLocalStore: %v", err)
	}
	return ms
}

// Payload returns size bytes of a repeating, position-dependent pattern.
func Payload(size int) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, size))
	for i := 0; i < size; i++ {
		buf.WriteByte(byte(i % 251))
	}
	return buf.Bytes()
}
