package retrieval

import (
	"context"
	"time"

	"tabrecall/backend/internal/index"
)

const defaultLimit = 10

// Store is the fallback chain the service searches against.
type Store interface {
	Search(ctx context.Context, query string, limit int) ([]index.QueryResult, bool, error)
	Stats(ctx context.Context) (index.Stats, error)
}

type Service struct {
	store  Store
	logger *QueryLogger
}

func NewService(store Store, logger *QueryLogger) *Service {
	return &Service{store: store, logger: logger}
}

// Search ranks indexed tabs against the query. The fromFallback flag reports
// which tier answered; results look the same either way.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.QueryResult, bool, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	start := time.Now()
	results, fromFallback, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return nil, false, err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:        query,
			NumResults:   len(results),
			Duration:     time.Since(start),
			FromFallback: fromFallback,
		})
	}
	return results, fromFallback, nil
}

func (s *Service) Stats(ctx context.Context) (index.Stats, error) {
	return s.store.Stats(ctx)
}
