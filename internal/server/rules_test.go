package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lcastro/replydesk/internal/database"
)

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestCreateRuleValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "missing name",
			body:      `{"trigger":"price","response":"Check our site!"}`,
			wantError: "name is required",
		},
		{
			name:      "missing trigger",
			body:      `{"name":"Pricing","response":"Check our site!"}`,
			wantError: "trigger is required",
		},
		{
			name:      "missing response",
			body:      `{"name":"Pricing","trigger":"price"}`,
			wantError: "response is required",
		},
		{
			name:      "invalid platform filter",
			body:      `{"name":"Pricing","trigger":"price","response":"x","platform":"tiktok"}`,
			wantError: "platform must be one of",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(newMockStore(), &mockDispatcher{})
			w := doRequest(t, srv, http.MethodPost, "/api/rules", tc.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d (%s)", w.Code, w.Body.String())
			}
			resp := decodeEnvelope(t, w)
			errMsg, _ := resp["error"].(string)
			if !strings.Contains(errMsg, tc.wantError) {
				t.Errorf("expected error containing %q, got %q", tc.wantError, errMsg)
			}
		})
	}
}

func TestRulesListNewestFirst(t *testing.T) {
	t.Parallel()

	srv := newTestServer(newMockStore(), &mockDispatcher{})

	for _, body := range []string{
		`{"name":"Shipping","trigger":"ship","response":"We ship worldwide."}`,
		`{"name":"Pricing","trigger":"price","response":"See our store."}`,
	} {
		w := doRequest(t, srv, http.MethodPost, "/api/rules", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d (%s)", w.Code, w.Body.String())
		}
	}

	w := doRequest(t, srv, http.MethodGet, "/api/rules", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Rules []database.Rule `json:"rules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if len(resp.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(resp.Rules))
	}
	if resp.Rules[0].Name != "Pricing" {
		t.Errorf("expected most recent rule first, got %q", resp.Rules[0].Name)
	}
	if resp.Rules[0].Status != database.RuleStatusActive {
		t.Errorf("expected new rule to start active, got %q", resp.Rules[0].Status)
	}
}

func TestToggleAndDeleteRule(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	srv := newTestServer(store, &mockDispatcher{})

	w := doRequest(t, srv, http.MethodPost, "/api/rules",
		`{"name":"Restock","trigger":"restock","response":"Back next week!"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	var created struct {
		Rule database.Rule `json:"rule"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if created.Rule.ID == 0 {
		t.Fatal("expected created rule to have an id")
	}

	w = doRequest(t, srv, http.MethodPost, "/api/rules/1/toggle", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 from toggle, got %d (%s)", w.Code, w.Body.String())
	}
	var toggled struct {
		Rule database.Rule `json:"rule"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &toggled); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if toggled.Rule.Status != database.RuleStatusPaused {
		t.Errorf("expected paused after toggle, got %q", toggled.Rule.Status)
	}

	w = doRequest(t, srv, http.MethodDelete, "/api/rules/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 from delete, got %d", w.Code)
	}

	w = doRequest(t, srv, http.MethodDelete, "/api/rules/1", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 deleting missing rule, got %d", w.Code)
	}
}

func TestMessageStatusUpdateValidation(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.messages = []database.Message{{ID: 1, Platform: database.PlatformFacebook, Channel: database.ChannelComment, Author: "Dan", Status: database.MessageStatusUnread}}

	srv := newTestServer(store, &mockDispatcher{})

	w := doRequest(t, srv, http.MethodPost, "/api/messages/1/status", `{"status":"archived"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid status, got %d", w.Code)
	}

	w = doRequest(t, srv, http.MethodPost, "/api/messages/1/status", `{"status":"snoozed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}
	if store.statusUpdates[1] != database.MessageStatusSnoozed {
		t.Errorf("expected snoozed, got %q", store.statusUpdates[1])
	}

	w = doRequest(t, srv, http.MethodPost, "/api/messages/99/status", `{"status":"snoozed"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for missing message, got %d", w.Code)
	}
}

func TestMessagesFilter(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.messages = []database.Message{
		{ID: 1, Platform: database.PlatformFacebook, Channel: database.ChannelComment, Status: database.MessageStatusUnread},
		{ID: 2, Platform: database.PlatformInstagram, Channel: database.ChannelMessage, Status: database.MessageStatusResponded},
	}

	srv := newTestServer(store, &mockDispatcher{})

	w := doRequest(t, srv, http.MethodGet, "/api/messages?platform=instagram", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Messages []database.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ID != 2 {
		t.Fatalf("expected only the instagram message, got %+v", resp.Messages)
	}
}
