package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lcastro/replydesk/internal/database"
)

// RuleRequest is the payload for creating an automation rule. Name, trigger,
// and response must be non-empty; trigger text is stored as-is, unparsed.
type RuleRequest struct {
	Name     string `json:"name"     validate:"required"`
	Platform string `json:"platform" validate:"omitempty,oneof=facebook instagram all"`
	Channel  string `json:"channel"  validate:"omitempty,oneof=comment message"`
	Trigger  string `json:"trigger"  validate:"required"`
	Response string `json:"response" validate:"required"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		rules, err := s.store.ListRules(ctx)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"rules": rules})

	case http.MethodPost:
		var req RuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := s.validate.Struct(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}

		rule := database.Rule{
			Name:     req.Name,
			Platform: req.Platform,
			Channel:  req.Channel,
			Trigger:  req.Trigger,
			Response: req.Response,
		}
		if err := s.store.CreateRule(ctx, &rule); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]any{"rule": rule})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRuleItem routes /api/rules/{id} (DELETE) and /api/rules/{id}/toggle (POST).
func (s *Server) handleRuleItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/rules/")
	parts := strings.Split(path, "/")

	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	ctx := r.Context()

	switch {
	case len(parts) == 2 && parts[1] == "toggle":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		rule, err := s.store.ToggleRule(ctx, uint(id))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				s.writeError(w, http.StatusNotFound, err.Error())
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"rule": rule})

	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.store.DeleteRule(ctx, uint(id)); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				s.writeError(w, http.StatusNotFound, err.Error())
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		s.writeError(w, http.StatusNotFound, "unknown path")
	}
}
