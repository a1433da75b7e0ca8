package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"tabrecall/backend/internal/embedding"
	"tabrecall/backend/internal/text"
)

const snippetPreviewLen = 200

// LocalStore is the fallback tier: an exact brute-force cosine index held in
// memory and mirrored to two flat JSON files (vectors by id, metadata by id),
// rewritten wholesale on every mutation. One process owns the files; concurrent
// writers from other processes are unsupported.
type LocalStore struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	meta     map[string]Metadata
	embedder embedding.Provider

	vectorsPath string
	metaPath    string
}

// NewLocalStore loads (or creates) the backing files under dir.
func NewLocalStore(dir string, embedder embedding.Provider) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &LocalStore{
		vectors:     make(map[string][]float32),
		meta:        make(map[string]Metadata),
		embedder:    embedder,
		vectorsPath: filepath.Join(dir, "vectors.json"),
		metaPath:    filepath.Join(dir, "metadata.json"),
	}

	if err := loadJSONFile(s.vectorsPath, &s.vectors); err != nil {
		return nil, err
	}
	if err := loadJSONFile(s.metaPath, &s.meta); err != nil {
		return nil, err
	}

	slog.Info("local fallback store ready", "records", len(s.vectors))
	return s, nil
}

func loadJSONFile(path string, v any) error {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path is built from configured data dir
	if os.IsNotExist(err) {
		return os.WriteFile(path, []byte("{}"), 0o600)
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		// A corrupt file should not brick the fallback tier; start empty.
		slog.Warn("fallback store file unreadable, starting empty", "path", path, "error", err)
	}
	return nil
}

func (s *LocalStore) Name() string { return "local" }

func (s *LocalStore) Upsert(ctx context.Context, rec Record) (string, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[id] = vec
	s.meta[id] = rec.Meta
	if err := s.persistLocked(); err != nil {
		return "", err
	}
	return id, nil
}

// Search embeds the query and ranks every stored vector by cosine similarity.
// O(n) per query is the accepted cost of this tier.
func (s *LocalStore) Search(ctx context.Context, query string, limit int) ([]QueryResult, error) {
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]QueryResult, 0, len(s.vectors))
	for id, vec := range s.vectors {
		results = append(results, s.resultLocked(id, cosineSimilarity(qvec, vec)))
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SearchText is the even-more-degraded tier used when vector search cannot
// serve: substring presence scoring, title matches above snippet/URL matches,
// misses excluded entirely.
func (s *LocalStore) SearchText(ctx context.Context, query string, limit int) ([]QueryResult, error) {
	q := strings.ToLower(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	var results []QueryResult
	for id, meta := range s.meta {
		score := 0.0
		switch {
		case strings.Contains(strings.ToLower(meta.Title), q):
			score = 0.8
		case strings.Contains(strings.ToLower(meta.Snippet), q),
			strings.Contains(strings.ToLower(meta.URL), q):
			score = 0.5
		default:
			continue
		}
		results = append(results, s.resultLocked(id, score))
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes id and cascades to every record whose parentId equals id,
// found by scanning all metadata — there is no secondary index.
func (s *LocalStore) Delete(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	if _, ok := s.meta[id]; ok {
		ids = append(ids, id)
	}
	for recID, meta := range s.meta {
		if meta.ParentID == id {
			ids = append(ids, recID)
		}
	}
	for _, recID := range ids {
		delete(s.vectors, recID)
		delete(s.meta, recID)
	}
	if len(ids) > 0 {
		if err := s.persistLocked(); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (s *LocalStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.vectors)
	return Stats{
		TotalVectors: n,
		Namespaces:   map[string]NamespaceStats{"default": {VectorCount: n}},
	}, nil
}

func (s *LocalStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vectors)
}

func (s *LocalStore) resultLocked(id string, score float64) QueryResult {
	meta := s.meta[id]
	snippet := text.Truncate(meta.Snippet, snippetPreviewLen)
	return QueryResult{
		ID:          id,
		URL:         meta.URL,
		Title:       meta.Title,
		Snippet:     snippet,
		Score:       score,
		Timestamp:   meta.Timestamp,
		Summary:     meta.Summary,
		ReadingTime: meta.ReadingTime,
		WordCount:   meta.WordCount,
	}
}

func (s *LocalStore) persistLocked() error {
	if err := writeJSONFile(s.vectorsPath, s.vectors); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := writeJSONFile(s.metaPath, s.meta); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// cosineSimilarity is the normalized dot product of two vectors, 0 when either
// magnitude is 0. Mismatched lengths compare over the shorter prefix.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	for i := n; i < len(a); i++ {
		magA += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		magB += float64(b[i]) * float64(b[i])
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}

// TextMatch adapts a LocalStore's substring search into a read-only tier so
// search never returns a hard failure.
type TextMatch struct {
	store *LocalStore
}

func NewTextMatch(store *LocalStore) *TextMatch { return &TextMatch{store: store} }

func (t *TextMatch) Name() string { return "text-match" }

func (t *TextMatch) Search(ctx context.Context, query string, limit int) ([]QueryResult, error) {
	return t.store.SearchText(ctx, query, limit)
}
