package store

import (
	"context"
	"path/filepath"
	"testing"

	"mailsweep/internal/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadEmpty(t *testing.T) {
	s := testStore(t)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	records := map[string]model.HistoryRecord{
		"a@b.com": {Name: "A", Email: "a@b.com", Attempted: true, Success: true, Timestamp: "2024-01-01T00:00:00Z", URL: "https://b.com/u"},
		"c@d.com": {Name: "C", Email: "c@d.com", Attempted: true, Success: false, Timestamp: "2024-01-02T00:00:00Z", URL: "https://d.com/u"},
	}
	if err := s.Save(ctx, records); err != nil {
		t.Fatalf("Save: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded["a@b.com"] != records["a@b.com"] || loaded["c@d.com"] != records["c@d.com"] {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestSaveRewritesEverything(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Save(ctx, map[string]model.HistoryRecord{
		"a@b.com": {Email: "a@b.com", Attempted: true},
		"c@d.com": {Email: "c@d.com", Attempted: true},
	})
	if err := s.Save(ctx, map[string]model.HistoryRecord{
		"c@d.com": {Email: "c@d.com", Attempted: true, Success: true},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, _ := s.Load(ctx)
	if len(loaded) != 1 {
		t.Fatalf("expected 1 after rewrite, got %d", len(loaded))
	}
	if !loaded["c@d.com"].Success {
		t.Fatal("rewrite did not update existing record")
	}
}

func TestInMemory(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	if err := s.Save(ctx, map[string]model.HistoryRecord{"x@y.com": {Email: "x@y.com", Attempted: true}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
}
