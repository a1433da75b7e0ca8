package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileRepo keeps the activity log in a single JSON file, newest first,
// rewritten wholesale on every mutation. Single-process access assumed.
type FileRepo struct {
	mu      sync.Mutex
	path    string
	entries []Entry
}

func NewFileRepo(dir string) (*FileRepo, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	r := &FileRepo{path: filepath.Join(dir, "tab-history.json"), entries: []Entry{}}

	data, err := os.ReadFile(r.path) // #nosec G304 -- path is built from configured data dir
	if os.IsNotExist(err) {
		return r, os.WriteFile(r.path, []byte("[]"), 0o600)
	}
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.entries); err != nil {
			slog.Warn("history file unreadable, starting empty", "path", r.path, "error", err)
			r.entries = []Entry{}
		}
	}

	slog.Info("history store ready", "entries", len(r.entries))
	return r, nil
}

func (r *FileRepo) Append(ctx context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append([]Entry{entry}, r.entries...)
	if len(r.entries) > MaxEntries {
		r.entries = r.entries[:MaxEntries]
	}
	return r.persistLocked()
}

func (r *FileRepo) List(ctx context.Context, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, r.entries[:n])
	return out, nil
}

func (r *FileRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true, r.persistLocked()
		}
	}
	return false, nil
}

func (r *FileRepo) persistLocked() error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o600)
}
