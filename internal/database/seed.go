package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

func strPtr(s string) *string { return &s }

// sampleMessages is the static inbox content loaded on first run. The
// dashboard starts with a realistic mix of platforms, channels, and intents.
var sampleMessages = []Message{
	{
		Platform:  PlatformFacebook,
		Channel:   ChannelComment,
		Author:    "Maya Torres",
		Snippet:   "Do you ship to Canada? I couldn't find shipping info anywhere on the page.",
		Timestamp: time.Date(2025, 6, 2, 14, 12, 0, 0, time.UTC),
		Status:    MessageStatusUnread,
		Intent:    strPtr("shipping"),
	},
	{
		Platform:  PlatformFacebook,
		Channel:   ChannelMessage,
		Author:    "Dan Okafor",
		Snippet:   "Hi! My order #4821 arrived with a cracked lid. Can I get a replacement?",
		Timestamp: time.Date(2025, 6, 2, 15, 40, 0, 0, time.UTC),
		Status:    MessageStatusUnread,
		Intent:    strPtr("support"),
	},
	{
		Platform:  PlatformInstagram,
		Channel:   ChannelComment,
		Author:    "plantmom_jess",
		Snippet:   "Obsessed with this colorway 😍 when is the restock?",
		Timestamp: time.Date(2025, 6, 3, 9, 5, 0, 0, time.UTC),
		Status:    MessageStatusUnread,
		Intent:    strPtr("restock"),
	},
	{
		Platform:  PlatformInstagram,
		Channel:   ChannelMessage,
		Author:    "kevin.liu.88",
		Snippet:   "Is the studio open for pickup orders this weekend?",
		Timestamp: time.Date(2025, 6, 3, 11, 30, 0, 0, time.UTC),
		Status:    MessageStatusSnoozed,
	},
	{
		Platform:  PlatformFacebook,
		Channel:   ChannelComment,
		Author:    "Rita Fernandes",
		Snippet:   "Ordered twice already, never disappointed. Keep it up!",
		Timestamp: time.Date(2025, 6, 1, 19, 22, 0, 0, time.UTC),
		Status:    MessageStatusResponded,
		Intent:    strPtr("praise"),
	},
	{
		Platform:  PlatformInstagram,
		Channel:   ChannelComment,
		Author:    "the_real_marco",
		Snippet:   "Price? And do you do custom engraving?",
		Timestamp: time.Date(2025, 6, 3, 16, 48, 0, 0, time.UTC),
		Status:    MessageStatusUnread,
		Intent:    strPtr("pricing"),
	},
}

// SeedSampleMessages loads the static sample inbox into an empty database.
// It is a no-op when messages already exist, so restarts never duplicate
// or reset triage state.
func SeedSampleMessages(ctx context.Context, store Store, logger *slog.Logger) error {
	count, err := store.CountMessages(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing messages: %w", err)
	}
	if count > 0 {
		logger.DebugContext(ctx, "Inbox already populated, skipping seed", "count", count)
		return nil
	}

	for i := range sampleMessages {
		msg := sampleMessages[i]
		if err := store.InsertMessage(ctx, &msg); err != nil {
			return fmt.Errorf("failed to seed sample message %d: %w", i, err)
		}
	}

	logger.InfoContext(ctx, "Seeded sample inbox messages", "count", len(sampleMessages))
	return nil
}
