package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tabrecall/backend/features/search"
	"tabrecall/backend/internal/index"
	"tabrecall/backend/internal/retrieval"
)

type MockRetriever struct{ mock.Mock }

func (m *MockRetriever) Search(ctx context.Context, query string, limit int) ([]index.QueryResult, bool, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]index.QueryResult), args.Bool(1), args.Error(2)
}

func (m *MockRetriever) Stats(ctx context.Context) (index.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(index.Stats), args.Error(1)
}

type MockAnswerer struct{ mock.Mock }

func (m *MockAnswerer) Answer(ctx context.Context, query string, results []index.QueryResult) retrieval.Answer {
	args := m.Called(ctx, query, results)
	return args.Get(0).(retrieval.Answer)
}

func TestHandler_Search(t *testing.T) {
	hits := []index.QueryResult{{ID: "a", Title: "A", Score: 0.9}}

	t.Run("Success", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Search", mock.Anything, "golang", 5).Return(hits, false, nil)
		answerer := new(MockAnswerer)
		answerer.On("Answer", mock.Anything, "golang", hits).
			Return(retrieval.Answer{Text: "An answer.", Sources: hits})

		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"golang","limit":5}`))
		rec := httptest.NewRecorder()

		search.NewHandler(retriever, answerer).Search(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "An answer.", resp["ai_answer"])
		assert.Equal(t, false, resp["fromFallback"])
		assert.Len(t, resp["results"], 1)
		assert.Len(t, resp["source_tabs"], 1)
	})

	t.Run("Missing Query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		search.NewHandler(new(MockRetriever), new(MockAnswerer)).Search(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Search query is required")
	})

	t.Run("Nil Results Marshal As Empty Array", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Search", mock.Anything, "nothing", 0).Return(nil, true, nil)
		answerer := new(MockAnswerer)
		answerer.On("Answer", mock.Anything, "nothing", []index.QueryResult{}).
			Return(retrieval.Answer{Text: "none", Sources: []index.QueryResult{}})

		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"nothing"}`))
		rec := httptest.NewRecorder()

		search.NewHandler(retriever, answerer).Search(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"results":[]`)
		assert.Contains(t, rec.Body.String(), `"fromFallback":true`)
	})

	t.Run("Store Failure", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Search", mock.Anything, "q", 0).Return(nil, false, errors.New("all tiers down"))

		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"q"}`))
		rec := httptest.NewRecorder()

		search.NewHandler(retriever, new(MockAnswerer)).Search(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_Stats(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Stats", mock.Anything).Return(index.Stats{
			TotalVectors:  12,
			Namespaces:    map[string]index.NamespaceStats{"default": {VectorCount: 12}},
			FallbackCount: 3,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		rec := httptest.NewRecorder()

		search.NewHandler(retriever, new(MockAnswerer)).Stats(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Success bool        `json:"success"`
			Stats   index.Stats `json:"stats"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 12, resp.Stats.TotalVectors)
		assert.Equal(t, 3, resp.Stats.FallbackCount)
	})

	t.Run("Failure", func(t *testing.T) {
		retriever := new(MockRetriever)
		retriever.On("Stats", mock.Anything).Return(index.Stats{}, errors.New("boom"))

		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		rec := httptest.NewRecorder()

		search.NewHandler(retriever, new(MockAnswerer)).Stats(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
