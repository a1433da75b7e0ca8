package history_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tabrecall/backend/features/history"
)

func newService(t *testing.T) *history.Service {
	t.Helper()
	repo, err := history.NewFileRepo(t.TempDir())
	assert.NoError(t, err)
	return history.NewService(repo)
}

func TestService_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("Fills Defaults", func(t *testing.T) {
		svc := newService(t)

		entry, err := svc.Record(ctx, history.Entry{URL: "https://example.com", Title: "Example"})

		assert.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
		assert.NotEmpty(t, entry.Timestamp)
		assert.Equal(t, "visited", entry.Action)
	})

	t.Run("Keeps Explicit Fields", func(t *testing.T) {
		svc := newService(t)

		entry, err := svc.Record(ctx, history.Entry{
			ID:        "fixed",
			URL:       "https://example.com",
			Action:    "indexed",
			Timestamp: "2026-01-02T03:04:05Z",
		})

		assert.NoError(t, err)
		assert.Equal(t, "fixed", entry.ID)
		assert.Equal(t, "indexed", entry.Action)
		assert.Equal(t, "2026-01-02T03:04:05Z", entry.Timestamp)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	for i := 0; i < 5; i++ {
		_, err := svc.Record(ctx, history.Entry{URL: fmt.Sprintf("https://example.com/%d", i)})
		assert.NoError(t, err)
	}

	t.Run("Newest First", func(t *testing.T) {
		entries, err := svc.List(ctx, 0)
		assert.NoError(t, err)
		assert.Len(t, entries, 5)
		assert.Equal(t, "https://example.com/4", entries[0].URL)
	})

	t.Run("Respects Limit", func(t *testing.T) {
		entries, err := svc.List(ctx, 2)
		assert.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}

func TestFileRepo_CapsEntries(t *testing.T) {
	repo, err := history.NewFileRepo(t.TempDir())
	assert.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < history.MaxEntries+10; i++ {
		err := repo.Append(ctx, history.Entry{ID: fmt.Sprintf("e%d", i)})
		assert.NoError(t, err)
	}

	entries, err := repo.List(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, history.MaxEntries)
	// The newest entry survives; the oldest fell off.
	assert.Equal(t, fmt.Sprintf("e%d", history.MaxEntries+9), entries[0].ID)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	entry, err := svc.Record(ctx, history.Entry{URL: "https://example.com"})
	assert.NoError(t, err)

	found, err := svc.Delete(ctx, entry.ID)
	assert.NoError(t, err)
	assert.True(t, found)

	found, err = svc.Delete(ctx, entry.ID)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestHandler(t *testing.T) {
	t.Run("Record And List", func(t *testing.T) {
		h := history.NewHandler(newService(t))

		req := httptest.NewRequest(http.MethodPost, "/api/history",
			strings.NewReader(`{"url":"https://example.com","title":"Example"}`))
		rec := httptest.NewRecorder()
		h.Record(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/history?limit=10", nil)
		rec = httptest.NewRecorder()
		h.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Success bool            `json:"success"`
			History []history.Entry `json:"history"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Len(t, resp.History, 1)
	})

	t.Run("Record Requires URL Or TabID", func(t *testing.T) {
		h := history.NewHandler(newService(t))

		req := httptest.NewRequest(http.MethodPost, "/api/history", strings.NewReader(`{"title":"x"}`))
		rec := httptest.NewRecorder()
		h.Record(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Bad Limit Rejected", func(t *testing.T) {
		h := history.NewHandler(newService(t))

		req := httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
