// Package store persists full conversation transcripts keyed by session id.
package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/webfolio/chatd/internal/models"
)

// ErrNotFound is returned when no conversation exists for the requested id.
var ErrNotFound = errors.New("conversation not found")

// ConversationStore is the durable store of one record per conversation id,
// consumed by the API request handlers and the transcript scheduler. Saves
// overwrite the full message list (last writer wins, no merge); List, Stats
// and Cleanup degrade gracefully by skipping unreadable records instead of
// failing outright.
type ConversationStore interface {
	Save(ctx context.Context, id string, messages []models.Message) (models.Conversation, error)
	Get(ctx context.Context, id string) (models.Conversation, error)
	List(ctx context.Context) ([]models.ConversationSummary, error)
	Stats(ctx context.Context) (models.ConversationStats, error)
	Delete(ctx context.Context, id string) error
	Cleanup(ctx context.Context, maxAgeDays int) (int, error)
	MarkTranscriptSent(ctx context.Context, id string) error
}

var idSanitizer = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// sanitizeID strips everything outside alphanumerics and hyphen from a
// conversation id before it is mapped to a storage key, preventing path
// traversal or collision via crafted ids.
func sanitizeID(id string) string {
	return idSanitizer.ReplaceAllString(id, "")
}

// firstTimestamp returns the timestamp of the first message, or now when the
// list is empty or the timestamp is absent.
func firstTimestamp(messages []models.Message, now time.Time) time.Time {
	if len(messages) > 0 && !messages[0].Timestamp.IsZero() {
		return messages[0].Timestamp
	}
	return now
}

// lastTimestamp returns the timestamp of the last message, or now when the
// list is empty or the timestamp is absent.
func lastTimestamp(messages []models.Message, now time.Time) time.Time {
	if len(messages) > 0 && !messages[len(messages)-1].Timestamp.IsZero() {
		return messages[len(messages)-1].Timestamp
	}
	return now
}
