package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"tabrecall/backend/internal/index"
	"tabrecall/backend/internal/retrieval"
)

// Retriever is the slice of the retrieval service the handlers use.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]index.QueryResult, bool, error)
	Stats(ctx context.Context) (index.Stats, error)
}

// Answerer produces the grounded answer from ranked results.
type Answerer interface {
	Answer(ctx context.Context, query string, results []index.QueryResult) retrieval.Answer
}

type Handler struct {
	retriever Retriever
	answerer  Answerer
}

func NewHandler(retriever Retriever, answerer Answerer) *Handler {
	return &Handler{retriever: retriever, answerer: answerer}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		writeError(w, "Search query is required", http.StatusBadRequest)
		return
	}

	results, fromFallback, err := h.retriever.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "search failed", "error", err, "query", req.Query)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []index.QueryResult{}
	}

	answer := h.answerer.Answer(r.Context(), req.Query, results)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"results":      results,
		"ai_answer":    answer.Text,
		"source_tabs":  answer.Sources,
		"fromFallback": fromFallback,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.retriever.Stats(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get stats", "error", err)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
