package index

import (
	"crypto/sha256"
	"fmt"
)

// Record is one indexed unit: a whole short page, or one chunk of a long one.
// Text carries the raw content for embedding and is never persisted; tiers
// embed it lazily when Vector is absent.
type Record struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector,omitempty"`
	Text   string    `json:"-"`
	Meta   Metadata  `json:"metadata"`
}

// Metadata is the persisted payload attached to a record's vector. Optional
// fields use omitempty so backends that reject null values never see them.
type Metadata struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Timestamp   string `json:"timestamp"`
	ParentID    string `json:"parentId,omitempty"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	Summary     string `json:"summary,omitempty"`
	ReadingTime int    `json:"readingTime,omitempty"`
	WordCount   int    `json:"wordCount,omitempty"`
}

// QueryResult is produced by search and never persisted. Score is only
// comparable within a single response: the remote tier reports Weaviate
// certainty ((1+cosine)/2, in [0,1]), the local tier raw cosine similarity
// (in [-1,1]), and text match fixed field weights.
type QueryResult struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
	Timestamp   string  `json:"timestamp"`
	Summary     string  `json:"summary,omitempty"`
	ReadingTime int     `json:"readingTime,omitempty"`
	WordCount   int     `json:"wordCount,omitempty"`
}

type NamespaceStats struct {
	VectorCount int `json:"vectorCount"`
}

type Stats struct {
	TotalVectors  int                       `json:"totalVectors"`
	Namespaces    map[string]NamespaceStats `json:"namespaces,omitempty"`
	FallbackCount int                       `json:"fallbackCount,omitempty"`
	FromFallback  bool                      `json:"fromFallback,omitempty"`
}

type UpsertResult struct {
	ID           string `json:"id"`
	FromFallback bool   `json:"fromFallback,omitempty"`
}

type DeleteResult struct {
	Found        bool `json:"found"`
	Deleted      int  `json:"deleted"`
	FromFallback bool `json:"fromFallback,omitempty"`
}

// DeriveID produces a stable identifier for a page from its URL, so indexing
// the same page twice overwrites rather than duplicates.
func DeriveID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", sum)[:16]
}

// ChunkID names the i-th chunk of a parent record.
func ChunkID(parentID string, i int) string {
	return fmt.Sprintf("%s-chunk-%d", parentID, i)
}
