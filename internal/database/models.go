package database

import (
	"time"
)

// Message platform, channel, and status values. These mirror the CHECK
// constraints in the schema.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"

	ChannelComment = "comment"
	ChannelMessage = "message"

	MessageStatusUnread    = "unread"
	MessageStatusResponded = "responded"
	MessageStatusSnoozed   = "snoozed"

	RuleStatusActive = "active"
	RuleStatusPaused = "paused"

	OutcomeSuccess = "success"
	OutcomeDryRun  = "dry_run"
	OutcomeError   = "error"
)

// Message represents one inbound Facebook or Instagram comment or direct
// message shown in the triage inbox. Rows are seeded from sample data,
// mutated in place when a reply is dispatched, and never deleted.
type Message struct {
	ID        uint      `db:"id"         json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Platform  string    `db:"platform"  json:"platform"`
	Channel   string    `db:"channel"   json:"channel"`
	Author    string    `db:"author"    json:"author"`
	Snippet   string    `db:"snippet"   json:"snippet"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Status    string    `db:"status"    json:"status"`
	Intent    *string   `db:"intent"    json:"intent,omitempty"`
}

// Rule represents a stored automation rule: a trigger description and a
// canned response. Rules are data entry only; nothing in the system
// evaluates them against incoming messages.
type Rule struct {
	ID        uint      `db:"id"         json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Name     string `db:"name"          json:"name"`
	Platform string `db:"platform"      json:"platform"`
	Channel  string `db:"channel"       json:"channel"`
	Trigger  string `db:"trigger_text"  json:"trigger"`
	Response string `db:"response_text" json:"response"`
	Status   string `db:"status"        json:"status"`
}

// ActivityEntry records one dispatch attempt. Entries are append-only and
// listed newest first.
type ActivityEntry struct {
	ID        uint      `db:"id"         json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	MessageID *uint   `db:"message_id" json:"message_id,omitempty"`
	Outcome   string  `db:"outcome"    json:"outcome"`
	Summary   string  `db:"summary"    json:"summary"`
	Payload   *string `db:"payload"    json:"payload,omitempty"`
}

// Credentials holds the single stored set of page/business identifiers and
// tokens. Values are passed through to the Graph API verbatim; no format or
// expiry validation is performed.
type Credentials struct {
	ID        uint      `db:"id"         json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	FacebookPageID             string `db:"facebook_page_id"              json:"facebook_page_id"`
	PageAccessToken            string `db:"page_access_token"             json:"page_access_token"`
	InstagramBusinessAccountID string `db:"instagram_business_account_id" json:"instagram_business_account_id"`
}
