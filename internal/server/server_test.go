package server

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lcastro/replydesk/internal/config"
	"github.com/lcastro/replydesk/internal/database"
	"github.com/lcastro/replydesk/internal/graph"
)

// mockStore implements database.Store in memory for handler tests.
type mockStore struct {
	messages    []database.Message
	rules       []database.Rule
	activity    []database.ActivityEntry
	credentials database.Credentials

	statusUpdates map[uint]string
	nextID        uint
}

func newMockStore() *mockStore {
	return &mockStore{statusUpdates: map[uint]string{}, credentials: database.Credentials{ID: 1}}
}

func (m *mockStore) Ping(context.Context) error { return nil }

func (m *mockStore) ListMessages(_ context.Context, filter database.MessageFilter) ([]database.Message, error) {
	out := []database.Message{}
	for _, msg := range m.messages {
		if filter.Platform != "" && msg.Platform != filter.Platform {
			continue
		}
		if filter.Channel != "" && msg.Channel != filter.Channel {
			continue
		}
		if filter.Status != "" && msg.Status != filter.Status {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (m *mockStore) GetMessage(_ context.Context, id uint) (*database.Message, error) {
	for i := range m.messages {
		if m.messages[i].ID == id {
			return &m.messages[i], nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockStore) UpdateMessageStatus(_ context.Context, id uint, status string) error {
	m.statusUpdates[id] = status
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].Status = status
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *mockStore) CountMessages(context.Context) (int, error) { return len(m.messages), nil }

func (m *mockStore) InsertMessage(_ context.Context, msg *database.Message) error {
	m.nextID++
	msg.ID = m.nextID
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockStore) ListRules(context.Context) ([]database.Rule, error) {
	// Newest first, like the SQL implementation.
	out := make([]database.Rule, 0, len(m.rules))
	for i := len(m.rules) - 1; i >= 0; i-- {
		out = append(out, m.rules[i])
	}
	return out, nil
}

func (m *mockStore) CreateRule(_ context.Context, rule *database.Rule) error {
	m.nextID++
	rule.ID = m.nextID
	if rule.Status == "" {
		rule.Status = database.RuleStatusActive
	}
	if rule.Platform == "" {
		rule.Platform = "all"
	}
	if rule.Channel == "" {
		rule.Channel = database.ChannelComment
	}
	rule.CreatedAt = time.Now().UTC()
	rule.UpdatedAt = rule.CreatedAt
	m.rules = append(m.rules, *rule)
	return nil
}

func (m *mockStore) ToggleRule(_ context.Context, id uint) (*database.Rule, error) {
	for i := range m.rules {
		if m.rules[i].ID == id {
			if m.rules[i].Status == database.RuleStatusActive {
				m.rules[i].Status = database.RuleStatusPaused
			} else {
				m.rules[i].Status = database.RuleStatusActive
			}
			return &m.rules[i], nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockStore) DeleteRule(_ context.Context, id uint) error {
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *mockStore) AppendActivity(_ context.Context, entry *database.ActivityEntry) error {
	m.nextID++
	entry.ID = m.nextID
	m.activity = append(m.activity, *entry)
	return nil
}

func (m *mockStore) ListActivity(_ context.Context, limit int) ([]database.ActivityEntry, error) {
	out := make([]database.ActivityEntry, 0, len(m.activity))
	for i := len(m.activity) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.activity[i])
	}
	return out, nil
}

func (m *mockStore) GetCredentials(context.Context) (*database.Credentials, error) {
	creds := m.credentials
	return &creds, nil
}

func (m *mockStore) SaveCredentials(_ context.Context, creds *database.Credentials) error {
	m.credentials = *creds
	return nil
}

func (m *mockStore) RunMaintenance(context.Context) error { return nil }

// mockDispatcher implements graph.Dispatcher and captures the last request.
type mockDispatcher struct {
	lastReq *graph.DispatchRequest
	result  *graph.Result
	err     error
}

func (m *mockDispatcher) Dispatch(_ context.Context, req graph.DispatchRequest) (*graph.Result, error) {
	reqCopy := req
	m.lastReq = &reqCopy
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &graph.Result{Data: map[string]any{"id": "sent"}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:            ":0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: time.Second,
		},
		Meta: config.MetaConfig{
			BaseURL:        "https://graph.example.test",
			APIVersion:     "v19.0",
			RequestTimeout: 5 * time.Second,
		},
	}
}

func newTestServer(store database.Store, dispatcher graph.Dispatcher) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(testConfig(), store, dispatcher, log)
}
