package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lcastro/replydesk/internal/database"
	"github.com/lcastro/replydesk/internal/graph"
)

func postRespond(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/respond", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestRespondRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "missing platform",
			body:      `{"targetId":"123","message":"hi","channel":"comment"}`,
			wantError: "platform is required",
		},
		{
			name:      "missing targetId",
			body:      `{"platform":"facebook","message":"hi","channel":"comment"}`,
			wantError: "targetId is required",
		},
		{
			name:      "missing message",
			body:      `{"platform":"facebook","targetId":"123","channel":"comment"}`,
			wantError: "message is required",
		},
		{
			name:      "missing channel",
			body:      `{"platform":"facebook","targetId":"123","message":"hi"}`,
			wantError: "channel is required",
		},
		{
			name:      "invalid channel",
			body:      `{"platform":"facebook","targetId":"123","message":"hi","channel":"story"}`,
			wantError: "channel must be one of",
		},
		{
			name:      "invalid platform",
			body:      `{"platform":"tiktok","targetId":"123","message":"hi","channel":"comment"}`,
			wantError: "platform must be one of",
		},
		{
			name:      "malformed json",
			body:      `{"platform":`,
			wantError: "invalid request body",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(newMockStore(), &mockDispatcher{})
			w := postRespond(t, srv, tc.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d (%s)", w.Code, w.Body.String())
			}

			resp := decodeEnvelope(t, w)
			if resp["ok"] != false {
				t.Errorf("expected ok:false, got %v", resp["ok"])
			}
			errMsg, _ := resp["error"].(string)
			if !strings.Contains(errMsg, tc.wantError) {
				t.Errorf("expected error containing %q, got %q", tc.wantError, errMsg)
			}
		})
	}
}

func TestRespondDryRunEndToEnd(t *testing.T) {
	t.Parallel()

	// Real relay client against a counting backend proves the dry run never
	// leaves the process.
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.Meta.BaseURL = ts.URL
	cfg.Meta.AccessToken = "env-token"

	store := newMockStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(cfg, store, graph.NewClient(cfg.Meta, log), log)

	w := postRespond(t, srv, `{"platform":"facebook","targetId":"123","message":"hi","channel":"comment","dryRun":true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)
	if resp["ok"] != true {
		t.Fatalf("expected ok:true, got %v", resp["ok"])
	}
	result, _ := resp["result"].(map[string]any)
	if result["dryRun"] != true {
		t.Errorf("expected result.dryRun true, got %v", result["dryRun"])
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no outbound calls, got %d", got)
	}

	if len(store.activity) != 1 {
		t.Fatalf("expected one activity entry, got %d", len(store.activity))
	}
	if store.activity[0].Outcome != database.OutcomeDryRun {
		t.Errorf("expected dry_run outcome, got %s", store.activity[0].Outcome)
	}
}

func TestRespondDispatchErrorReturns500(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	srv := newTestServer(store, &mockDispatcher{err: &graph.APIError{StatusCode: 400, Message: "Invalid OAuth access token."}})

	w := postRespond(t, srv, `{"platform":"facebook","targetId":"123","message":"hi","channel":"comment","accessToken":"bad"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d (%s)", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)
	if resp["ok"] != false {
		t.Errorf("expected ok:false, got %v", resp["ok"])
	}
	errMsg, _ := resp["error"].(string)
	if !strings.Contains(errMsg, "Invalid OAuth access token.") {
		t.Errorf("expected remote message verbatim, got %q", errMsg)
	}

	if len(store.activity) != 1 || store.activity[0].Outcome != database.OutcomeError {
		t.Fatalf("expected one error activity entry, got %+v", store.activity)
	}
}

func TestRespondMarksInboxMessageResponded(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.messages = []database.Message{{
		ID:        7,
		Platform:  database.PlatformFacebook,
		Channel:   database.ChannelComment,
		Author:    "Maya",
		Status:    database.MessageStatusUnread,
		Timestamp: time.Now().UTC(),
	}}

	srv := newTestServer(store, &mockDispatcher{})

	w := postRespond(t, srv, `{"platform":"facebook","targetId":"123","message":"hi","channel":"comment","accessToken":"tok","messageId":7}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}
	if got := store.statusUpdates[7]; got != database.MessageStatusResponded {
		t.Errorf("expected message 7 marked responded, got %q", got)
	}
	if len(store.activity) != 1 || store.activity[0].MessageID == nil || *store.activity[0].MessageID != 7 {
		t.Fatalf("expected activity entry referencing message 7, got %+v", store.activity)
	}
}

func TestRespondFallsBackToStoredBusinessAccountID(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.credentials = database.Credentials{ID: 1, InstagramBusinessAccountID: "biz-99"}

	dispatcher := &mockDispatcher{}
	srv := newTestServer(store, dispatcher)

	w := postRespond(t, srv, `{"platform":"instagram","targetId":"u1","message":"hi","channel":"message","accessToken":"tok"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}
	if dispatcher.lastReq == nil || dispatcher.lastReq.IGBusinessAccountID != "biz-99" {
		t.Fatalf("expected stored business account id to be used, got %+v", dispatcher.lastReq)
	}
}

func TestRespondTokenFallbackFromConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Meta.AccessToken = "fallback-token"

	dispatcher := &mockDispatcher{}
	srv := newTestServer(newMockStore(), dispatcher)
	srv.cfg = cfg

	w := postRespond(t, srv, `{"platform":"facebook","targetId":"123","message":"hi","channel":"comment"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}
	if dispatcher.lastReq == nil || dispatcher.lastReq.AccessToken != "fallback-token" {
		t.Fatalf("expected config token fallback, got %+v", dispatcher.lastReq)
	}
}
