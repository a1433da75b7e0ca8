package index

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNotReady marks a tier that cannot currently serve (unreachable backend,
// failed initialization). The chain treats it the same as any other tier error.
var ErrNotReady = errors.New("store not ready")

// Tier is one storage strategy in the fallback chain. All tiers share the same
// semantics so callers cannot tell which one answered.
type Tier interface {
	Name() string
	Upsert(ctx context.Context, rec Record) (string, error)
	Search(ctx context.Context, query string, limit int) ([]QueryResult, error)
	Delete(ctx context.Context, id string) (int, error)
	Stats(ctx context.Context) (Stats, error)
}

// SearchTier is a read-only strategy; the text-match tier implements only this.
type SearchTier interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]QueryResult, error)
}

// Chain tries tiers in order until one succeeds, tagging anything answered by
// a non-primary tier as degraded. It is the caller-facing store: operations
// return best-effort success, never a remote-store error.
type Chain struct {
	writeTiers  []Tier
	searchTiers []SearchTier
	counter     interface{ Count() int }
}

// NewChain builds the standard chain: remote first, local vector scan second,
// text match last (search only). local doubles as the fallback record counter
// reported in stats.
func NewChain(remote Tier, local *LocalStore) *Chain {
	return &Chain{
		writeTiers:  []Tier{remote, local},
		searchTiers: []SearchTier{remote, local, NewTextMatch(local)},
		counter:     local,
	}
}

// NewChainFromTiers exists for tests that assemble custom tier lists.
func NewChainFromTiers(write []Tier, search []SearchTier, counter interface{ Count() int }) *Chain {
	return &Chain{writeTiers: write, searchTiers: search, counter: counter}
}

func (c *Chain) Upsert(ctx context.Context, rec Record) (UpsertResult, error) {
	var lastErr error
	for i, tier := range c.writeTiers {
		id, err := tier.Upsert(ctx, rec)
		if err != nil {
			slog.WarnContext(ctx, "upsert failed, trying next tier", "tier", tier.Name(), "error", err)
			lastErr = err
			continue
		}
		return UpsertResult{ID: id, FromFallback: i > 0}, nil
	}
	return UpsertResult{}, lastErr
}

// Search returns ranked results plus a degradation flag. The flag is
// observability only; result shape is identical across tiers.
func (c *Chain) Search(ctx context.Context, query string, limit int) ([]QueryResult, bool, error) {
	var lastErr error
	for i, tier := range c.searchTiers {
		results, err := tier.Search(ctx, query, limit)
		if err != nil {
			slog.WarnContext(ctx, "search failed, trying next tier", "tier", tier.Name(), "error", err)
			lastErr = err
			continue
		}
		return results, i > 0, nil
	}
	return nil, false, lastErr
}

// Delete removes id (and every record whose parentId equals id) from every
// write tier it can reach, keeping the local mirror consistent with the remote
// store. It succeeds when any tier succeeded.
func (c *Chain) Delete(ctx context.Context, id string) (DeleteResult, error) {
	var (
		lastErr      error
		anyOK        bool
		deleted      int
		primaryFail  bool
		fromFallback bool
	)
	for i, tier := range c.writeTiers {
		n, err := tier.Delete(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "delete failed on tier", "tier", tier.Name(), "error", err)
			lastErr = err
			if i == 0 {
				primaryFail = true
			}
			continue
		}
		if primaryFail && !anyOK {
			fromFallback = true
		}
		anyOK = true
		deleted += n
	}
	if !anyOK {
		return DeleteResult{}, lastErr
	}
	return DeleteResult{Found: deleted > 0, Deleted: deleted, FromFallback: fromFallback}, nil
}

func (c *Chain) Stats(ctx context.Context) (Stats, error) {
	var lastErr error
	for i, tier := range c.writeTiers {
		stats, err := tier.Stats(ctx)
		if err != nil {
			slog.WarnContext(ctx, "stats failed, trying next tier", "tier", tier.Name(), "error", err)
			lastErr = err
			continue
		}
		stats.FromFallback = i > 0
		if i == 0 && c.counter != nil {
			stats.FallbackCount = c.counter.Count()
		}
		return stats, nil
	}
	return Stats{}, lastErr
}
