package notes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	tabID := r.PathValue("tabId")

	var note Note
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := h.service.Save(r.Context(), tabID, note)
	if err != nil {
		if errors.Is(err, ErrTabIDRequired) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "failed to save note", "error", err, "tab_id", tabID)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "note": saved})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tabID := r.PathValue("tabId")

	list, err := h.service.ListForTab(r.Context(), tabID)
	if err != nil {
		if errors.Is(err, ErrTabIDRequired) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "failed to list notes", "error", err, "tab_id", tabID)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []Note{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "notes": list})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tabID := r.PathValue("tabId")
	noteID := r.PathValue("noteId")

	found, err := h.service.Delete(r.Context(), tabID, noteID)
	if err != nil {
		if errors.Is(err, ErrTabIDRequired) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete note", "error", err, "tab_id", tabID)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": found, "id": noteID})
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
