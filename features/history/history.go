package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MaxEntries bounds the activity log; the oldest entries fall off.
const MaxEntries = 500

// Entry is one recorded tab activity (visit, index, removal).
type Entry struct {
	ID        string `json:"id"`
	TabID     string `json:"tabId,omitempty"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

type Repository interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if entry.Action == "" {
		entry.Action = "visited"
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxEntries {
		limit = MaxEntries
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}
