package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// MessageFilter narrows ListMessages results. Empty fields match everything.
type MessageFilter struct {
	Platform string
	Channel  string
	Status   string
}

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// ListMessages retrieves inbox messages, newest first, optionally filtered.
	ListMessages(ctx context.Context, filter MessageFilter) ([]Message, error)

	// GetMessage retrieves a single message by ID. Returns ErrNotFound if absent.
	GetMessage(ctx context.Context, id uint) (*Message, error)

	// UpdateMessageStatus sets the triage status of one message.
	UpdateMessageStatus(ctx context.Context, id uint, status string) error

	// CountMessages returns the total number of inbox messages.
	CountMessages(ctx context.Context) (int, error)

	// InsertMessage inserts one inbox message (used by seeding).
	InsertMessage(ctx context.Context, message *Message) error

	// ListRules retrieves all automation rules, newest first.
	ListRules(ctx context.Context) ([]Rule, error)

	// CreateRule inserts a new automation rule and fills in its ID.
	CreateRule(ctx context.Context, rule *Rule) error

	// ToggleRule flips a rule between active and paused, returning the updated rule.
	ToggleRule(ctx context.Context, id uint) (*Rule, error)

	// DeleteRule removes a rule. Returns ErrNotFound if absent.
	DeleteRule(ctx context.Context, id uint) error

	// AppendActivity records one dispatch attempt.
	AppendActivity(ctx context.Context, entry *ActivityEntry) error

	// ListActivity retrieves dispatch records, newest first, up to limit.
	ListActivity(ctx context.Context, limit int) ([]ActivityEntry, error)

	// GetCredentials retrieves the stored credentials row. Returns an empty
	// record (not an error) when nothing has been saved yet.
	GetCredentials(ctx context.Context) (*Credentials, error)

	// SaveCredentials inserts or replaces the single credentials row.
	SaveCredentials(ctx context.Context, creds *Credentials) error

	// RunMaintenance performs database maintenance tasks like VACUUM.
	RunMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListMessages retrieves inbox messages, newest first, optionally filtered
// by platform, channel, and status.
func (s *sqlxStore) ListMessages(ctx context.Context, filter MessageFilter) ([]Message, error) {
	query := `
        SELECT id, created_at, updated_at, platform, channel, author, snippet, timestamp, status, intent
        FROM messages
        WHERE (? = '' OR platform = ?)
          AND (? = '' OR channel = ?)
          AND (? = '' OR status = ?)
        ORDER BY timestamp DESC;
    `

	messages := []Message{}
	err := s.db.SelectContext(ctx, &messages, query,
		filter.Platform, filter.Platform,
		filter.Channel, filter.Channel,
		filter.Status, filter.Status,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing messages", "filter", fmt.Sprintf("%+v", filter), "error", err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed messages", "count", len(messages))
	return messages, nil
}

// GetMessage retrieves a single message by ID.
func (s *sqlxStore) GetMessage(ctx context.Context, id uint) (*Message, error) {
	var message Message
	query := `
        SELECT id, created_at, updated_at, platform, channel, author, snippet, timestamp, status, intent
        FROM messages
        WHERE id = ?;
    `

	err := s.db.GetContext(ctx, &message, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting message", "message_id", id, "error", err)
		return nil, fmt.Errorf("failed to get message %d: %w", id, err)
	}

	return &message, nil
}

// UpdateMessageStatus sets the triage status of one message.
func (s *sqlxStore) UpdateMessageStatus(ctx context.Context, id uint, status string) error {
	query := `UPDATE messages SET status = ?, updated_at = ? WHERE id = ?;`

	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating message status", "message_id", id, "status", status, "error", err)
		return fmt.Errorf("failed to update status of message %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("message %d: %w", id, ErrNotFound)
	}

	s.logger.DebugContext(ctx, "Message status updated", "message_id", id, "status", status)
	return nil
}

// CountMessages returns the total number of inbox messages.
func (s *sqlxStore) CountMessages(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages;`); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// InsertMessage inserts one inbox message.
func (s *sqlxStore) InsertMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot insert nil message")
	}
	if message.Author == "" {
		return fmt.Errorf("message must have a non-empty author")
	}
	if message.Timestamp.IsZero() {
		return fmt.Errorf("message must have a non-zero timestamp")
	}

	now := time.Now().UTC()
	message.CreatedAt = now
	message.UpdatedAt = now
	if message.Status == "" {
		message.Status = MessageStatusUnread
	}

	query := `
        INSERT INTO messages (created_at, updated_at, platform, channel, author, snippet, timestamp, status, intent)
        VALUES (:created_at, :updated_at, :platform, :channel, :author, :snippet, :timestamp, :status, :intent);
    `

	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error inserting message", "author", message.Author, "error", err)
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // row IDs fit comfortably in uint
		message.ID = uint(id)
	}

	return nil
}

// ListRules retrieves all automation rules, newest first so that the most
// recently added rule leads the list.
func (s *sqlxStore) ListRules(ctx context.Context) ([]Rule, error) {
	rules := []Rule{}
	query := `
        SELECT id, created_at, updated_at, name, platform, channel, trigger_text, response_text, status
        FROM rules
        ORDER BY id DESC;
    `

	if err := s.db.SelectContext(ctx, &rules, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing rules", "error", err)
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return rules, nil
}

// CreateRule inserts a new automation rule and fills in its generated ID.
func (s *sqlxStore) CreateRule(ctx context.Context, rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("cannot create nil rule")
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if rule.Platform == "" {
		rule.Platform = "all"
	}
	if rule.Channel == "" {
		rule.Channel = ChannelComment
	}
	if rule.Status == "" {
		rule.Status = RuleStatusActive
	}

	query := `
        INSERT INTO rules (created_at, updated_at, name, platform, channel, trigger_text, response_text, status)
        VALUES (:created_at, :updated_at, :name, :platform, :channel, :trigger_text, :response_text, :status);
    `

	result, err := s.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating rule", "name", rule.Name, "error", err)
		return fmt.Errorf("failed to create rule %q: %w", rule.Name, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // row IDs fit comfortably in uint
		rule.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Rule created", "rule_id", rule.ID, "name", rule.Name)
	return nil
}

// ToggleRule flips a rule between active and paused inside a transaction and
// returns the updated rule.
func (s *sqlxStore) ToggleRule(ctx context.Context, id uint) (*Rule, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	var rule Rule
	query := `
        SELECT id, created_at, updated_at, name, platform, channel, trigger_text, response_text, status
        FROM rules
        WHERE id = ?;
    `
	err = tx.GetContext(ctx, &rule, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule %d: %w", id, err)
	}

	if rule.Status == RuleStatusActive {
		rule.Status = RuleStatusPaused
	} else {
		rule.Status = RuleStatusActive
	}
	rule.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `UPDATE rules SET status = ?, updated_at = ? WHERE id = ?;`,
		rule.Status, rule.UpdatedAt, rule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle rule %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Rule toggled", "rule_id", rule.ID, "status", rule.Status)
	return &rule, nil
}

// DeleteRule removes a rule by ID.
func (s *sqlxStore) DeleteRule(ctx context.Context, id uint) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?;`, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting rule", "rule_id", id, "error", err)
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}

	s.logger.DebugContext(ctx, "Rule deleted", "rule_id", id)
	return nil
}

// AppendActivity records one dispatch attempt.
func (s *sqlxStore) AppendActivity(ctx context.Context, entry *ActivityEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot append nil activity entry")
	}
	if entry.Summary == "" {
		return fmt.Errorf("activity entry must have a non-empty summary")
	}

	entry.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO activity (created_at, message_id, outcome, summary, payload)
        VALUES (:created_at, :message_id, :outcome, :summary, :payload);
    `

	result, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error appending activity entry", "outcome", entry.Outcome, "error", err)
		return fmt.Errorf("failed to append activity entry: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // row IDs fit comfortably in uint
		entry.ID = uint(id)
	}

	return nil
}

// ListActivity retrieves dispatch records, newest first.
func (s *sqlxStore) ListActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	} else if limit > 500 {
		limit = 500
	}

	entries := []ActivityEntry{}
	query := `
        SELECT id, created_at, message_id, outcome, summary, payload
        FROM activity
        ORDER BY id DESC
        LIMIT ?;
    `

	if err := s.db.SelectContext(ctx, &entries, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error listing activity", "error", err)
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	return entries, nil
}

// GetCredentials retrieves the stored credentials row, or an empty record
// when nothing has been saved yet.
func (s *sqlxStore) GetCredentials(ctx context.Context) (*Credentials, error) {
	var creds Credentials
	query := `
        SELECT id, updated_at, facebook_page_id, page_access_token, instagram_business_account_id
        FROM credentials
        WHERE id = 1;
    `

	err := s.db.GetContext(ctx, &creds, query)
	if errors.Is(err, sql.ErrNoRows) {
		return &Credentials{ID: 1}, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting credentials", "error", err)
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	return &creds, nil
}

// SaveCredentials inserts or replaces the single credentials row.
func (s *sqlxStore) SaveCredentials(ctx context.Context, creds *Credentials) error {
	if creds == nil {
		return fmt.Errorf("cannot save nil credentials")
	}

	creds.ID = 1
	creds.UpdatedAt = time.Now().UTC()

	query := `
        INSERT INTO credentials (id, updated_at, facebook_page_id, page_access_token, instagram_business_account_id)
        VALUES (:id, :updated_at, :facebook_page_id, :page_access_token, :instagram_business_account_id)
        ON CONFLICT (id) DO UPDATE SET
            updated_at = excluded.updated_at,
            facebook_page_id = excluded.facebook_page_id,
            page_access_token = excluded.page_access_token,
            instagram_business_account_id = excluded.instagram_business_account_id;
    `

	if _, err := s.db.NamedExecContext(ctx, query, creds); err != nil {
		s.logger.ErrorContext(ctx, "Error saving credentials", "error", err)
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	s.logger.DebugContext(ctx, "Credentials saved")
	return nil
}

// RunMaintenance executes VACUUM and ANALYZE on the SQLite database.
func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM, ANALYZE)...")

	// VACUUM must run outside a transaction in SQLite.
	if _, err := s.db.ExecContext(ctx, `VACUUM;`); err != nil {
		s.logger.ErrorContext(ctx, "VACUUM failed", "error", err)
		return fmt.Errorf("vacuum failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `ANALYZE;`); err != nil {
		s.logger.ErrorContext(ctx, "ANALYZE failed", "error", err)
		return fmt.Errorf("analyze failed: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully")
	return nil
}
