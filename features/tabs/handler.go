package tabs

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	var tab TabData
	if err := json.NewDecoder(r.Body).Decode(&tab); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if tab.URL == "" || tab.Title == "" || (tab.Content.Text == "" && tab.Content.HTML == "") {
		writeError(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	result, err := h.service.IndexTab(r.Context(), tab)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to index tab", "error", err, "url", tab.URL)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !result.Success {
		// Rejected input (too short after cleaning), not a server failure.
		writeError(w, result.Message, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tabs []TabData `json:"tabs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Tabs) == 0 {
		writeError(w, "Tabs array is required", http.StatusBadRequest)
		return
	}

	results := h.service.SyncTabs(r.Context(), req.Tabs)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
	})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, "Tab ID is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.RemoveTab(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to remove tab", "error", err, "id", id)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
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
