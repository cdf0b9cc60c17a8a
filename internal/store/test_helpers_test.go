package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/wikichain/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
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

// createTestRecord creates a new record with the given content and permission.
func createTestRecord(content string, perm ir.Permission, author ir.AgentID, target ir.Address) ir.NewRecord {
	return ir.NewRecord{
		Page:   ir.NewWikiPage(content, perm),
		Author: author,
		Target: target,
	}
}

// countElements returns the number of elements in the log.
func countElements(t *testing.T, s *Store) int {
	t.Helper()
	log, err := s.Log(context.Background())
	if err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	return len(log)
}
