package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileRepo keeps notes in one JSON file keyed by tab id, rewritten wholesale
// on every mutation. Single-process access assumed.
type FileRepo struct {
	mu    sync.Mutex
	path  string
	notes map[string][]Note
}

func NewFileRepo(dir string) (*FileRepo, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	r := &FileRepo{path: filepath.Join(dir, "notes.json"), notes: map[string][]Note{}}

	data, err := os.ReadFile(r.path) // #nosec G304 -- path is built from configured data dir
	if os.IsNotExist(err) {
		return r, os.WriteFile(r.path, []byte("{}"), 0o600)
	}
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.notes); err != nil {
			slog.Warn("notes file unreadable, starting empty", "path", r.path, "error", err)
			r.notes = map[string][]Note{}
		}
	}

	return r, nil
}

func (r *FileRepo) Save(ctx context.Context, note Note) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.notes[note.TabID]
	replaced := false
	for i, existing := range list {
		if existing.ID == note.ID {
			list[i] = note
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, note)
	}
	r.notes[note.TabID] = list

	if err := r.persistLocked(); err != nil {
		return Note{}, err
	}
	return note, nil
}

func (r *FileRepo) ListForTab(ctx context.Context, tabID string) ([]Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.notes[tabID]
	out := make([]Note, len(list))
	copy(out, list)
	return out, nil
}

func (r *FileRepo) Delete(ctx context.Context, tabID, noteID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.notes[tabID]
	if !ok {
		return false, nil
	}
	for i, note := range list {
		if note.ID == noteID {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(r.notes, tabID)
			} else {
				r.notes[tabID] = list
			}
			return true, r.persistLocked()
		}
	}
	return false, nil
}

func (r *FileRepo) persistLocked() error {
	data, err := json.MarshalIndent(r.notes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o600)
}
