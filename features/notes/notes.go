package notes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrTabIDRequired = errors.New("tab id is required")

// Note is a user annotation attached to an indexed tab.
type Note struct {
	ID          string `json:"id"`
	TabID       string `json:"tabId"`
	Content     string `json:"content"`
	Timestamp   string `json:"timestamp"`
	LastUpdated string `json:"lastUpdated"`
}

type Repository interface {
	Save(ctx context.Context, note Note) (Note, error)
	ListForTab(ctx context.Context, tabID string) ([]Note, error)
	Delete(ctx context.Context, tabID, noteID string) (bool, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save upserts a note: an existing note id updates in place, a missing one
// gets generated.
func (s *Service) Save(ctx context.Context, tabID string, note Note) (Note, error) {
	if tabID == "" {
		return Note{}, ErrTabIDRequired
	}

	now := time.Now().UTC().Format(time.RFC3339)
	note.TabID = tabID
	note.LastUpdated = now
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.Timestamp == "" {
		note.Timestamp = now
	}
	return s.repo.Save(ctx, note)
}

func (s *Service) ListForTab(ctx context.Context, tabID string) ([]Note, error) {
	if tabID == "" {
		return nil, ErrTabIDRequired
	}
	return s.repo.ListForTab(ctx, tabID)
}

func (s *Service) Delete(ctx context.Context, tabID, noteID string) (bool, error) {
	if tabID == "" || noteID == "" {
		return false, ErrTabIDRequired
	}
	return s.repo.Delete(ctx, tabID, noteID)
}
