package tabs_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tabrecall/backend/features/tabs"
	"tabrecall/backend/internal/index"
)

type MockStore struct{ mock.Mock }

func (m *MockStore) Upsert(ctx context.Context, rec index.Record) (index.UpsertResult, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(index.UpsertResult), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) (index.DeleteResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(index.DeleteResult), args.Error(1)
}

type MockChat struct{ mock.Mock }

func (m *MockChat) Complete(ctx context.Context, system, user string, maxTokens int, jsonMode bool) (string, error) {
	args := m.Called(ctx, system, user, maxTokens, jsonMode)
	return args.String(0), args.Error(1)
}

type recordingPublisher struct {
	topics []string
	bodies [][]byte
}

func (p *recordingPublisher) Publish(topic string, body []byte) error {
	p.topics = append(p.topics, topic)
	p.bodies = append(p.bodies, body)
	return nil
}

func testOptions() tabs.Options {
	return tabs.Options{
		MaxContentLength: 20000,
		MinContentLength: 50,
		ChunkThreshold:   5000,
		MaxChunkSize:     1000,
		ChunkOverlap:     100,
		SyncDelay:        time.Millisecond,
	}
}

func tabWithContent(n int) tabs.TabData {
	return tabs.TabData{
		URL:     "https://example.com/article",
		Title:   "An Article",
		Content: tabs.Content{Text: strings.Repeat("content word ", n/13+1)[:n]},
	}
}

func TestService_IndexTab(t *testing.T) {
	ctx := context.Background()

	t.Run("Short Content Rejected", func(t *testing.T) {
		store := new(MockStore)
		svc := tabs.NewService(store, nil, nil, testOptions())

		res, err := svc.IndexTab(ctx, tabs.TabData{
			URL:     "https://example.com",
			Title:   "Short",
			Content: tabs.Content{Text: "too short"},
		})

		assert.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Content too short to index", res.Message)
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("Single Record Below Chunk Threshold", func(t *testing.T) {
		store := new(MockStore)
		var captured index.Record
		store.On("Upsert", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).(index.Record) }).
			Return(index.UpsertResult{ID: index.DeriveID("https://example.com/article")}, nil)

		svc := tabs.NewService(store, nil, nil, testOptions())
		res, err := svc.IndexTab(ctx, tabWithContent(4000))

		assert.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "Tab indexed successfully", res.Message)
		assert.Zero(t, res.ChunkCount)
		assert.Equal(t, index.DeriveID("https://example.com/article"), captured.ID)
		assert.Equal(t, 1, captured.Meta.TotalChunks)
		assert.NotEmpty(t, captured.Meta.Snippet)
		assert.NotZero(t, captured.Meta.WordCount)
		assert.NotEmpty(t, captured.Meta.Timestamp)
		store.AssertNumberOfCalls(t, "Upsert", 1)
	})

	t.Run("Long Content Chunked", func(t *testing.T) {
		store := new(MockStore)
		var records []index.Record
		store.On("Upsert", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { records = append(records, args.Get(1).(index.Record)) }).
			Return(index.UpsertResult{ID: "x"}, nil)

		svc := tabs.NewService(store, nil, nil, testOptions())
		res, err := svc.IndexTab(ctx, tabWithContent(6000))

		assert.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "Tab indexed in chunks", res.Message)
		assert.Equal(t, len(records), res.ChunkCount)
		assert.True(t, res.ChunkCount > 1)

		parent := index.DeriveID("https://example.com/article")
		assert.Equal(t, parent, res.ID)
		for i, rec := range records {
			assert.Equal(t, index.ChunkID(parent, i), rec.ID)
			assert.Equal(t, parent, rec.Meta.ParentID)
			assert.Equal(t, i, rec.Meta.ChunkIndex)
			assert.Equal(t, len(records), rec.Meta.TotalChunks)
		}
	})

	t.Run("Explicit ID Preserved", func(t *testing.T) {
		store := new(MockStore)
		store.On("Upsert", mock.Anything, mock.MatchedBy(func(rec index.Record) bool {
			return rec.ID == "custom-id"
		})).Return(index.UpsertResult{ID: "custom-id"}, nil)

		svc := tabs.NewService(store, nil, nil, testOptions())
		tab := tabWithContent(4000)
		tab.ID = "custom-id"
		res, err := svc.IndexTab(ctx, tab)

		assert.NoError(t, err)
		assert.Equal(t, "custom-id", res.ID)
	})

	t.Run("HTML Fallback When Text Empty", func(t *testing.T) {
		store := new(MockStore)
		store.On("Upsert", mock.Anything, mock.Anything).Return(index.UpsertResult{ID: "h"}, nil)

		svc := tabs.NewService(store, nil, nil, testOptions())
		res, err := svc.IndexTab(ctx, tabs.TabData{
			URL:     "https://example.com",
			Title:   "HTML Only",
			Content: tabs.Content{HTML: strings.Repeat("rendered text ", 20)},
		})

		assert.NoError(t, err)
		assert.True(t, res.Success)
	})

	t.Run("Fallback Flag Propagated", func(t *testing.T) {
		store := new(MockStore)
		store.On("Upsert", mock.Anything, mock.Anything).
			Return(index.UpsertResult{ID: "f", FromFallback: true}, nil)

		svc := tabs.NewService(store, nil, nil, testOptions())
		res, err := svc.IndexTab(ctx, tabWithContent(4000))

		assert.NoError(t, err)
		assert.True(t, res.FromFallback)
	})

	t.Run("Store Error Surfaces", func(t *testing.T) {
		store := new(MockStore)
		store.On("Upsert", mock.Anything, mock.Anything).
			Return(index.UpsertResult{}, errors.New("disk full"))

		svc := tabs.NewService(store, nil, nil, testOptions())
		_, err := svc.IndexTab(ctx, tabWithContent(4000))

		assert.EqualError(t, err, "disk full")
	})

	t.Run("Summary From Chat For Long Content", func(t *testing.T) {
		store := new(MockStore)
		var captured index.Record
		store.On("Upsert", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).(index.Record) }).
			Return(index.UpsertResult{ID: "s"}, nil)

		chat := new(MockChat)
		chat.On("Complete", mock.Anything, mock.Anything, mock.Anything, 100, false).
			Return("A concise summary.", nil)

		svc := tabs.NewService(store, chat, nil, testOptions())
		_, err := svc.IndexTab(ctx, tabWithContent(4000))

		assert.NoError(t, err)
		assert.Equal(t, "A concise summary.", captured.Meta.Summary)
		chat.AssertExpectations(t)
	})

	t.Run("Publishes Activity Event", func(t *testing.T) {
		store := new(MockStore)
		store.On("Upsert", mock.Anything, mock.Anything).Return(index.UpsertResult{ID: "e"}, nil)

		pub := &recordingPublisher{}
		svc := tabs.NewService(store, nil, pub, testOptions())
		_, err := svc.IndexTab(ctx, tabWithContent(4000))

		assert.NoError(t, err)
		assert.Equal(t, []string{"tabs.activity"}, pub.topics)
		assert.Contains(t, string(pub.bodies[0]), `"action":"indexed"`)
	})
}

func TestService_SyncTabs(t *testing.T) {
	ctx := context.Background()

	store := new(MockStore)
	store.On("Upsert", mock.Anything, mock.Anything).Return(index.UpsertResult{}, nil).Once()
	store.On("Upsert", mock.Anything, mock.Anything).Return(index.UpsertResult{}, errors.New("boom")).Once()

	svc := tabs.NewService(store, nil, nil, testOptions())
	batch := []tabs.TabData{
		tabWithContent(4000),
		{URL: "https://example.com/short", Title: "Short", Content: tabs.Content{Text: "tiny"}},
		tabWithContent(4000),
	}
	batch[2].URL = "https://example.com/other"

	results := svc.SyncTabs(ctx, batch)

	assert.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "Content too short to index", results[1].Error)
	assert.False(t, results[2].Success)
	assert.Equal(t, "boom", results[2].Error)
}

func TestService_RemoveTab(t *testing.T) {
	ctx := context.Background()

	t.Run("Removed", func(t *testing.T) {
		store := new(MockStore)
		store.On("Delete", mock.Anything, "abc").Return(index.DeleteResult{Found: true, Deleted: 4}, nil)

		pub := &recordingPublisher{}
		svc := tabs.NewService(store, nil, pub, testOptions())
		res, err := svc.RemoveTab(ctx, "abc")

		assert.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "Tab removed from index", res.Message)
		assert.Equal(t, "abc", res.ID)
		assert.Len(t, pub.topics, 1)
		assert.Contains(t, string(pub.bodies[0]), `"action":"removed"`)
	})

	t.Run("Not Found Still Succeeds", func(t *testing.T) {
		store := new(MockStore)
		store.On("Delete", mock.Anything, "nope").Return(index.DeleteResult{}, nil)

		pub := &recordingPublisher{}
		svc := tabs.NewService(store, nil, pub, testOptions())
		res, err := svc.RemoveTab(ctx, "nope")

		assert.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "Tab not found", res.Message)
		assert.Empty(t, pub.topics)
	})

	t.Run("Error Surfaces", func(t *testing.T) {
		store := new(MockStore)
		store.On("Delete", mock.Anything, "abc").Return(index.DeleteResult{}, errors.New("all tiers down"))

		svc := tabs.NewService(store, nil, nil, testOptions())
		_, err := svc.RemoveTab(ctx, "abc")

		assert.EqualError(t, err, "all tiers down")
	})
}

func TestService_IndexTab_TruncatesOversizedContent(t *testing.T) {
	store := new(MockStore)
	var captured index.Record
	store.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(index.Record) }).
		Return(index.UpsertResult{ID: "t"}, nil)

	opts := testOptions()
	opts.MaxContentLength = 2000
	svc := tabs.NewService(store, nil, nil, opts)

	_, err := svc.IndexTab(context.Background(), tabWithContent(10000))
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(captured.Text), 2000)
}
