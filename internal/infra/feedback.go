package infra

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"signal_hub/internal/domain"
)

// FeedbackLog is the append-only store for post-trade outcome reports: one
// JSON array on disk, rewritten in full on every append. The load-append-
// persist sequence runs under a single lock; a missing or corrupt file is
// treated as an empty store and recreated.
type FeedbackLog struct {
	mu   sync.Mutex
	path string
}

// NewFeedbackLog creates a log backed by the given file, making sure its
// directory exists.
func NewFeedbackLog(path string) (*FeedbackLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &domain.StorageError{Op: "create feedback directory", Err: err}
		}
	}
	return &FeedbackLog{path: path}, nil
}

// Append adds one record to the end of the store.
func (l *FeedbackLog) Append(record map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return err
	}
	records = append(records, record)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &domain.StorageError{Op: "encode feedback", Err: err}
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return &domain.StorageError{Op: "persist feedback", Err: err}
	}
	return nil
}

// Entries returns every stored record.
func (l *FeedbackLog) Entries() ([]map[string]any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.load()
}

// load reads the current contents. A missing or undecodable file counts as
// empty and is recreated on the next Append; any other read failure is an
// infrastructure error, never an excuse to overwrite stored records.
func (l *FeedbackLog) load() ([]map[string]any, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "read feedback", Err: err}
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil
	}
	return records, nil
}
