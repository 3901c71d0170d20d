package infra

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"signal_hub/internal/domain"
)

func newTestFeedbackLog(t *testing.T) *FeedbackLog {
	t.Helper()
	log, err := NewFeedbackLog(filepath.Join(t.TempDir(), "trade_feedback.json"))
	if err != nil {
		t.Fatalf("NewFeedbackLog failed: %v", err)
	}
	return log
}

func mustEntries(t *testing.T, log *FeedbackLog) []map[string]any {
	t.Helper()
	entries, err := log.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	return entries
}

func TestFeedbackLog_AppendCreatesFile(t *testing.T) {
	log := newTestFeedbackLog(t)

	if err := log.Append(map[string]any{"signal_id": "abc", "result": "TP"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries := mustEntries(t, log)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["signal_id"] != "abc" {
		t.Errorf("expected signal_id abc, got %v", entries[0]["signal_id"])
	}
}

func TestFeedbackLog_AppendAccumulates(t *testing.T) {
	log := newTestFeedbackLog(t)

	for i := 0; i < 3; i++ {
		if err := log.Append(map[string]any{"n": float64(i)}); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	entries := mustEntries(t, log)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Append order is preserved
	if entries[0]["n"] != float64(0) || entries[2]["n"] != float64(2) {
		t.Error("entries must keep append order")
	}
}

func TestFeedbackLog_CorruptFileRecreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_feedback.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	log, err := NewFeedbackLog(path)
	if err != nil {
		t.Fatalf("NewFeedbackLog failed: %v", err)
	}

	// Corrupt contents count as an empty store
	if entries := mustEntries(t, log); len(entries) != 0 {
		t.Fatalf("corrupt file should read as empty, got %d entries", len(entries))
	}

	if err := log.Append(map[string]any{"result": "SL"}); err != nil {
		t.Fatalf("Append over corrupt file failed: %v", err)
	}
	if entries := mustEntries(t, log); len(entries) != 1 {
		t.Errorf("expected recreated store with 1 entry, got %d", len(entries))
	}
}

func TestFeedbackLog_ReadFailureDoesNotWipeStore(t *testing.T) {
	// A path that exists but cannot be read as a file: reading a directory
	// fails with something other than ErrNotExist. Only a truly missing or
	// undecodable file may be treated as empty; every other read failure must
	// surface instead of letting Append rewrite the store from scratch.
	dir := t.TempDir()
	path := filepath.Join(dir, "trade_feedback.json")
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}

	log, err := NewFeedbackLog(path)
	if err != nil {
		t.Fatalf("NewFeedbackLog failed: %v", err)
	}

	err = log.Append(map[string]any{"result": "TP"})
	if err == nil {
		t.Fatal("Append must fail when the store cannot be read")
	}
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %T: %v", err, err)
	}

	if _, err := log.Entries(); err == nil {
		t.Error("Entries must surface the read failure")
	}
}

func TestFeedbackLog_ConcurrentAppends(t *testing.T) {
	log := newTestFeedbackLog(t)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := log.Append(map[string]any{"writer": float64(i)}); err != nil {
				t.Errorf("Append failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if entries := mustEntries(t, log); len(entries) != writers {
		t.Errorf("expected %d entries, got %d", writers, len(entries))
	}
}
