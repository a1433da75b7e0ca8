package index

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tabrecall/backend/internal/embedding"
)

// ErrBadConfig marks an initialization failure that retrying cannot fix (for
// example a rejected credential). It is cached so later calls fail fast.
var ErrBadConfig = errors.New("remote store misconfigured")

// RemoteBackend is what the Weaviate adapter implements. Every method is a
// network call; the RemoteStore owns timeouts, initialization, and retries.
type RemoteBackend interface {
	Ready(ctx context.Context) error
	Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error
	Query(ctx context.Context, vector []float32, limit int) ([]QueryResult, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	DeleteByParent(ctx context.Context, parentID string) (int, error)
	Count(ctx context.Context) (int, error)
}

// RemoteStore is the primary tier. Initialization is lazy and memoized:
// concurrent first callers share a single in-flight attempt, transient
// failures retry a bounded number of times, and hard failures are cached.
type RemoteStore struct {
	backend  RemoteBackend
	embedder embedding.Provider

	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration

	group       singleflight.Group
	mu          sync.Mutex
	initialized bool
	initErr     error
}

type RemoteOptions struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

func NewRemoteStore(backend RemoteBackend, embedder embedding.Provider, opts RemoteOptions) *RemoteStore {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	return &RemoteStore{
		backend:       backend,
		embedder:      embedder,
		timeout:       opts.Timeout,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
	}
}

func (s *RemoteStore) Name() string { return "remote" }

func (s *RemoteStore) init(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	if s.initErr != nil {
		err := s.initErr
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	_, err, _ := s.group.Do("init", func() (any, error) {
		var lastErr error
		for attempt := 1; attempt <= s.retryAttempts; attempt++ {
			callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
			lastErr = s.backend.Ready(callCtx)
			cancel()

			if lastErr == nil {
				s.mu.Lock()
				s.initialized = true
				s.mu.Unlock()
				slog.InfoContext(ctx, "remote vector store initialized")
				return nil, nil
			}
			if errors.Is(lastErr, ErrBadConfig) {
				s.mu.Lock()
				s.initErr = lastErr
				s.mu.Unlock()
				slog.ErrorContext(ctx, "remote vector store misconfigured", "error", lastErr)
				return nil, lastErr
			}

			slog.WarnContext(ctx, "remote store init failed",
				"attempt", attempt, "max_attempts", s.retryAttempts, "error", lastErr)
			if attempt < s.retryAttempts {
				time.Sleep(s.retryDelay)
			}
		}
		return nil, lastErr
	})
	return err
}

func (s *RemoteStore) call(ctx context.Context, op func(ctx context.Context) error) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return op(callCtx)
}

func (s *RemoteStore) Upsert(ctx context.Context, rec Record) (string, error) {
	vec := rec.Vector
	if len(vec) == 0 {
		var err error
		vec, err = s.embedder.Embed(ctx, rec.Text)
		if err != nil {
			return "", err
		}
	}

	id := rec.ID
	if id == "" {
		id = DeriveID(rec.Meta.URL)
	}

	err := s.call(ctx, func(ctx context.Context) error {
		return s.backend.Upsert(ctx, id, vec, rec.Meta)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *RemoteStore) Search(ctx context.Context, query string, limit int) ([]QueryResult, error) {
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	var results []QueryResult
	err = s.call(ctx, func(ctx context.Context) error {
		var qerr error
		results, qerr = s.backend.Query(ctx, qvec, limit)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *RemoteStore) Delete(ctx context.Context, id string) (int, error) {
	deleted := 0
	err := s.call(ctx, func(ctx context.Context) error {
		found, derr := s.backend.DeleteByID(ctx, id)
		if derr != nil {
			return derr
		}
		if found {
			deleted++
		}
		n, derr := s.backend.DeleteByParent(ctx, id)
		if derr != nil {
			return derr
		}
		deleted += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *RemoteStore) Stats(ctx context.Context) (Stats, error) {
	var count int
	err := s.call(ctx, func(ctx context.Context) error {
		var cerr error
		count, cerr = s.backend.Count(ctx)
		return cerr
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalVectors: count,
		Namespaces:   map[string]NamespaceStats{"default": {VectorCount: count}},
	}, nil
}
