package organize

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

type organizeRequest struct {
	Tabs []TabInfo `json:"tabs"`
}

func (h *Handler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req organizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Tabs) == 0 {
		writeError(w, "Tabs array is required", http.StatusBadRequest)
		return
	}

	categories := h.service.Categorize(r.Context(), req.Tabs)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "categories": categories})
}

func (h *Handler) Prioritize(w http.ResponseWriter, r *http.Request) {
	var req organizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Tabs) == 0 {
		writeError(w, "Tabs array is required", http.StatusBadRequest)
		return
	}

	priorities := h.service.Prioritize(r.Context(), req.Tabs)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "priorities": priorities})
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
