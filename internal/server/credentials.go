package server

import (
	"encoding/json"
	"net/http"

	"github.com/lcastro/replydesk/internal/database"
)

// handleCredentials reads or replaces the stored page/business identifiers
// and tokens. Values are stored and forwarded verbatim; no token format or
// expiry validation is performed.
func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		creds, err := s.store.GetCredentials(ctx)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"credentials": creds})

	case http.MethodPut:
		var creds database.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := s.store.SaveCredentials(ctx, &creds); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"credentials": creds})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
