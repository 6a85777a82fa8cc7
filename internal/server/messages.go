package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lcastro/replydesk/internal/database"
)

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter := database.MessageFilter{
		Platform: r.URL.Query().Get("platform"),
		Channel:  r.URL.Query().Get("channel"),
		Status:   r.URL.Query().Get("status"),
	}

	messages, err := s.store.ListMessages(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleMessageItem routes /api/messages/{id}/status.
func (s *Server) handleMessageItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/messages/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "status" {
		s.writeError(w, http.StatusNotFound, "unknown path")
		return
	}

	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=unread responded snoozed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	if err := s.store.UpdateMessageStatus(r.Context(), uint(id), req.Status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	message, err := s.store.GetMessage(r.Context(), uint(id))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"message": message})
}
