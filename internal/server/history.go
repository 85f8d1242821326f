package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/advisor-api/internal/auth"
	"github.com/sells-group/advisor-api/internal/model"
	"github.com/sells-group/advisor-api/internal/store"
)

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	entries, err := s.store.ListHistory(r.Context(), userID)
	if err != nil {
		writeTranslated(w, err)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.ownedEntry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// chatUpdate is the PUT /api/history/{id}/chat body. The array replaces the
// stored thread wholesale; there is no merge.
type chatUpdate struct {
	ChatMessages []model.ChatMessage `json:"chatMessages"`
}

func (s *Server) handleReplaceChat(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.ownedEntry(w, r)
	if !ok {
		return
	}

	var update chatUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeMessage(w, http.StatusBadRequest, "Request body is not valid JSON.")
		return
	}
	if err := s.store.ReplaceChatMessages(r.Context(), entry.ID, update.ChatMessages); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "History entry not found.")
			return
		}
		writeTranslated(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.ownedEntry(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteHistory(r.Context(), entry.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "History entry not found.")
			return
		}
		writeTranslated(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDeleteAllHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	n, err := s.store.DeleteAllHistory(r.Context(), userID)
	if err != nil {
		writeTranslated(w, err)
		return
	}
	zap.L().Info("history cleared", zap.String("user_id", userID), zap.Int("deleted", n))
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// requireUser pulls the authenticated user id set by the auth middleware.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.store == nil {
		writeMessage(w, http.StatusServiceUnavailable, "History storage is not configured.")
		return "", false
	}
	userID, ok := auth.UserID(r.Context())
	if !ok || userID == "" {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

// ownedEntry loads the entry from the path id and enforces ownership:
// an entry belonging to someone else is 403, an absent id is 404.
func (s *Server) ownedEntry(w http.ResponseWriter, r *http.Request) (*model.HistoryEntry, bool) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return nil, false
	}
	id := chi.URLParam(r, "id")
	entry, err := s.store.GetHistory(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "History entry not found.")
		return nil, false
	}
	if err != nil {
		writeTranslated(w, err)
		return nil, false
	}
	if entry.UserID != userID {
		writeMessage(w, http.StatusForbidden, "You do not have access to this history entry.")
		return nil, false
	}
	return entry, true
}
