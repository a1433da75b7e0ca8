package embedding

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"unicode/utf8"
)

// Provider turns text into a fixed-length vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MockProvider produces synthetic vectors with components drawn uniformly from
// [-1, 1). It keeps indexing and search functional when no embedding credential
// is configured; the vectors carry no semantic meaning.
type MockProvider struct {
	Dimension int
}

func NewMockProvider(dimension int) *MockProvider {
	return &MockProvider{Dimension: dimension}
}

func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.Dimension)
	for i := range vec {
		vec[i] = rand.Float32()*2 - 1
	}
	return vec, nil
}

// Resilient wraps a real provider with the degradation policy: inputs are
// truncated to a provider-safe length, and any provider failure (or a missing
// provider) yields a synthetic vector of the same dimensionality instead of an
// error. Callers get an identical return shape either way; only the logs tell
// mock vectors from genuine ones.
type Resilient struct {
	provider Provider
	mock     *MockProvider
	maxChars int
}

// NewResilient builds the wrapper. provider may be nil when no credential is
// configured; every call then uses the synthetic fallback.
func NewResilient(provider Provider, dimension, maxChars int) *Resilient {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Resilient{
		provider: provider,
		mock:     NewMockProvider(dimension),
		maxChars: maxChars,
	}
}

func (r *Resilient) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > r.maxChars {
		// Cut on a rune boundary; a torn trailing character would reach the
		// provider as invalid UTF-8.
		cut := r.maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	if r.provider == nil {
		slog.DebugContext(ctx, "no embedding provider configured, using mock embedding")
		return r.mock.Embed(ctx, text)
	}

	vec, err := r.provider.Embed(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "embedding failed, using mock embedding", "error", err)
		return r.mock.Embed(ctx, text)
	}
	if len(vec) == 0 {
		slog.WarnContext(ctx, "embedding provider returned empty vector, using mock embedding")
		return r.mock.Embed(ctx, text)
	}
	return vec, nil
}
