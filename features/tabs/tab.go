package tabs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"tabrecall/backend/internal/index"
	"tabrecall/backend/internal/middleware"
	"tabrecall/backend/internal/text"
	"tabrecall/backend/internal/worker"
)

const (
	snippetLen    = 500
	excerptLen    = 200
	summarizeFrom = 1000
)

// TabData is what the extension captures from one tab.
type TabData struct {
	ID        string  `json:"id,omitempty"`
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Content   Content `json:"content"`
	Timestamp string  `json:"timestamp,omitempty"`
}

type Content struct {
	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`
}

type IndexResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ID           string `json:"id,omitempty"`
	ChunkCount   int    `json:"chunkCount,omitempty"`
	FromFallback bool   `json:"fromFallback,omitempty"`
}

type SyncResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type RemoveResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ID           string `json:"id"`
	FromFallback bool   `json:"fromFallback,omitempty"`
}

// Store is the slice of the fallback chain the tab service writes to.
type Store interface {
	Upsert(ctx context.Context, rec index.Record) (index.UpsertResult, error)
	Delete(ctx context.Context, id string) (index.DeleteResult, error)
}

// ChatClient generates the optional one-line summaries stored with a record.
type ChatClient interface {
	Complete(ctx context.Context, system, user string, maxTokens int, jsonMode bool) (string, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Options carries the content-processing thresholds from configuration.
type Options struct {
	MaxContentLength int
	MinContentLength int
	ChunkThreshold   int
	MaxChunkSize     int
	ChunkOverlap     int
	SyncDelay        time.Duration
}

type Service struct {
	store   Store
	chat    ChatClient
	pub     EventPublisher
	opts    Options
	limiter *rate.Limiter
}

// NewService wires the indexing pipeline. chat and pub may be nil; summaries
// fall back to excerpts and events are skipped.
func NewService(store Store, chat ChatClient, pub EventPublisher, opts Options) *Service {
	if opts.SyncDelay <= 0 {
		opts.SyncDelay = 500 * time.Millisecond
	}
	return &Service{
		store:   store,
		chat:    chat,
		pub:     pub,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.SyncDelay), 1),
	}
}

// IndexTab cleans, enhances, and indexes one tab. Long documents are split
// into overlapping chunks indexed as independent records that back-reference
// the parent id.
func (s *Service) IndexTab(ctx context.Context, tab TabData) (IndexResult, error) {
	cleaned := text.Clean(tab.Content.Text)
	if cleaned == "" {
		cleaned = text.Clean(tab.Content.HTML)
	}
	if s.opts.MaxContentLength > 0 && len(cleaned) > s.opts.MaxContentLength {
		cleaned = cleaned[:s.opts.MaxContentLength]
	}

	if len(cleaned) < s.opts.MinContentLength {
		return IndexResult{Success: false, Message: "Content too short to index"}, nil
	}

	id := tab.ID
	if id == "" {
		id = index.DeriveID(tab.URL)
	}
	timestamp := tab.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	wordCount := text.WordCount(cleaned)
	readingTime := text.ReadingTimeMinutes(wordCount)
	summary := s.summarize(ctx, cleaned, tab.Title)

	meta := index.Metadata{
		URL:         tab.URL,
		Title:       tab.Title,
		Timestamp:   timestamp,
		TotalChunks: 1,
		Summary:     summary,
		ReadingTime: readingTime,
		WordCount:   wordCount,
	}

	if len(cleaned) > s.opts.ChunkThreshold {
		return s.indexChunked(ctx, id, cleaned, meta)
	}

	meta.Snippet = text.Excerpt(cleaned, snippetLen)
	res, err := s.store.Upsert(ctx, index.Record{ID: id, Text: cleaned, Meta: meta})
	if err != nil {
		return IndexResult{}, err
	}

	s.publish(ctx, worker.ActionIndexed, res.ID, tab.URL, tab.Title, 0)
	return IndexResult{
		Success:      true,
		Message:      "Tab indexed successfully",
		ID:           res.ID,
		FromFallback: res.FromFallback,
	}, nil
}

func (s *Service) indexChunked(ctx context.Context, parentID, cleaned string, meta index.Metadata) (IndexResult, error) {
	chunks := text.Chunk(cleaned, s.opts.MaxChunkSize, s.opts.ChunkOverlap)

	fromFallback := false
	for i, chunk := range chunks {
		chunkMeta := meta
		chunkMeta.ParentID = parentID
		chunkMeta.ChunkIndex = i
		chunkMeta.TotalChunks = len(chunks)
		chunkMeta.Snippet = text.Excerpt(chunk, snippetLen)

		res, err := s.store.Upsert(ctx, index.Record{
			ID:   index.ChunkID(parentID, i),
			Text: chunk,
			Meta: chunkMeta,
		})
		if err != nil {
			return IndexResult{}, err
		}
		fromFallback = fromFallback || res.FromFallback
	}

	slog.InfoContext(ctx, "indexed tab in chunks", "id", parentID, "chunks", len(chunks))
	s.publish(ctx, worker.ActionIndexed, parentID, meta.URL, meta.Title, len(chunks))
	return IndexResult{
		Success:      true,
		Message:      "Tab indexed in chunks",
		ID:           parentID,
		ChunkCount:   len(chunks),
		FromFallback: fromFallback,
	}, nil
}

// SyncTabs indexes a batch serially, pacing items so the embedding and vector
// backends are not overwhelmed. The delay is a throttle, not a correctness
// requirement.
func (s *Service) SyncTabs(ctx context.Context, batch []TabData) []SyncResult {
	results := make([]SyncResult, 0, len(batch))
	for i, tab := range batch {
		if i > 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				results = append(results, SyncResult{URL: tab.URL, Title: tab.Title, Success: false, Error: err.Error()})
				continue
			}
		}

		res, err := s.IndexTab(ctx, tab)
		if err != nil {
			results = append(results, SyncResult{URL: tab.URL, Title: tab.Title, Success: false, Error: err.Error()})
			continue
		}
		if !res.Success {
			results = append(results, SyncResult{URL: tab.URL, Title: tab.Title, Success: false, Error: res.Message})
			continue
		}
		results = append(results, SyncResult{URL: tab.URL, Title: tab.Title, Success: true, ID: res.ID})
	}
	return results
}

// RemoveTab deletes a record and its chunks from the index.
func (s *Service) RemoveTab(ctx context.Context, id string) (RemoveResult, error) {
	res, err := s.store.Delete(ctx, id)
	if err != nil {
		return RemoveResult{}, err
	}

	message := "Tab removed from index"
	if !res.Found {
		message = "Tab not found"
	} else {
		s.publish(ctx, worker.ActionRemoved, id, "", "", 0)
	}
	return RemoveResult{Success: true, Message: message, ID: id, FromFallback: res.FromFallback}, nil
}

const summarySystemPrompt = `You are a summarization assistant that creates very concise summaries.
Given a web page's title and content, create a 1-2 sentence summary that captures the main point.
Focus on what makes this content unique or valuable.
Be factual and objective. Do not use phrases like "this article" or "this page".
Keep the summary under 200 characters if possible.`

// summarize asks the LLM for a short summary of long documents and falls back
// to an excerpt for short ones or on any failure.
func (s *Service) summarize(ctx context.Context, cleaned, title string) string {
	if len(cleaned) <= summarizeFrom || s.chat == nil {
		return text.Excerpt(cleaned, excerptLen)
	}

	user := "Title: " + title + "\n\nContent: " + text.Excerpt(cleaned, 4000)
	summary, err := s.chat.Complete(ctx, summarySystemPrompt, user, 100, false)
	if err != nil {
		slog.WarnContext(ctx, "summary generation failed, using excerpt", "error", err)
		return text.Excerpt(cleaned, excerptLen)
	}
	return summary
}

func (s *Service) publish(ctx context.Context, action, id, url, title string, chunkCount int) {
	if s.pub == nil {
		return
	}
	payload, err := json.Marshal(worker.TabActivityPayload{
		Action:        action,
		TabID:         id,
		URL:           url,
		Title:         title,
		ChunkCount:    chunkCount,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err != nil {
		return
	}
	if err := s.pub.Publish(worker.TopicTabActivity, payload); err != nil {
		slog.WarnContext(ctx, "failed to publish tab activity event", "error", err, "action", action)
	}
}
