package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore opens a fresh journal in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// createTestRequest builds a journal row with minimal required fields.
func createTestRequest(id, operation, state string) Request {
	return Request{
		ID:        id,
		Operation: operation,
		Method:    "GET",
		URL:       "http://svc/Products",
		State:     state,
		StartedAt: testStart,
		Duration:  1500 * time.Microsecond,
	}
}
