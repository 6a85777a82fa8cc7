package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lcastro/replydesk/internal/database"
	"github.com/lcastro/replydesk/internal/graph"
)

// RespondRequest is the reply-dispatch contract. Four fields are required;
// everything else is optional. MessageID ties the dispatch to an inbox
// message so its triage status can be updated.
type RespondRequest struct {
	Platform                   string `json:"platform"                   validate:"required,oneof=facebook instagram"`
	TargetID                   string `json:"targetId"                   validate:"required"`
	Message                    string `json:"message"                    validate:"required"`
	Channel                    string `json:"channel"                    validate:"required,oneof=comment message"`
	DryRun                     bool   `json:"dryRun"`
	AccessToken                string `json:"accessToken"`
	InstagramBusinessAccountID string `json:"instagramBusinessAccountId"`
	ReplyToID                  string `json:"replyToId"`
	MessageID                  uint   `json:"messageId"`
}

// RespondResponse is the success envelope: the result is either a dry-run
// descriptor or the remote API's JSON body.
type RespondResponse struct {
	OK     bool `json:"ok"`
	Result any  `json:"result"`
}

// handleRespond validates the request, resolves token and business account
// fallbacks, performs (or simulates) exactly one Graph API call, and records
// the attempt in the activity log. Client-input failures are 400; everything
// that goes wrong after validation is a 500 with the error text verbatim.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.validate.Struct(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	// Token fallback chain: request token, then META_ACCESS_TOKEN. An empty
	// result downgrades the dispatch to a dry run inside the relay.
	token := req.AccessToken
	if token == "" {
		token = s.cfg.Meta.AccessToken
	}

	// The stored credentials supply the Instagram business account ID when
	// the request leaves it out.
	igBusinessID := req.InstagramBusinessAccountID
	if igBusinessID == "" && req.Platform == graph.PlatformInstagram {
		creds, err := s.store.GetCredentials(ctx)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		igBusinessID = creds.InstagramBusinessAccountID
	}

	result, err := s.dispatcher.Dispatch(ctx, graph.DispatchRequest{
		Platform:            req.Platform,
		TargetID:            req.TargetID,
		Message:             req.Message,
		Channel:             req.Channel,
		DryRun:              req.DryRun,
		AccessToken:         token,
		IGBusinessAccountID: igBusinessID,
		ReplyToID:           req.ReplyToID,
	})
	if err != nil {
		s.recordDispatch(r, &req, database.OutcomeError, err.Error(), nil)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	outcome := database.OutcomeSuccess
	summary := fmt.Sprintf("Replied to %s %s %s", req.Platform, req.Channel, req.TargetID)
	if result.DryRun {
		outcome = database.OutcomeDryRun
		summary = fmt.Sprintf("Dry run: %s %s reply to %s", req.Platform, req.Channel, req.TargetID)
	}
	s.recordDispatch(r, &req, outcome, summary, result.Data)

	s.writeJSON(w, http.StatusOK, RespondResponse{OK: true, Result: result.Data})
}

// recordDispatch appends an activity entry for the attempt and, for
// non-error outcomes tied to an inbox message, marks that message responded.
// Bookkeeping failures are logged but never fail the dispatch itself.
func (s *Server) recordDispatch(r *http.Request, req *RespondRequest, outcome, summary string, payload map[string]any) {
	ctx := r.Context()

	entry := database.ActivityEntry{
		Outcome: outcome,
		Summary: summary,
	}
	if req.MessageID != 0 {
		id := req.MessageID
		entry.MessageID = &id
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			rawStr := string(raw)
			entry.Payload = &rawStr
		}
	}

	if err := s.store.AppendActivity(ctx, &entry); err != nil {
		s.log.ErrorContext(ctx, "Failed to record activity entry", "outcome", outcome, "error", err)
	}

	if outcome != database.OutcomeError && req.MessageID != 0 {
		if err := s.store.UpdateMessageStatus(ctx, req.MessageID, database.MessageStatusResponded); err != nil {
			s.log.ErrorContext(ctx, "Failed to mark message responded", "message_id", req.MessageID, "error", err)
		}
	}
}
