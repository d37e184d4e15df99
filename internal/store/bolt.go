package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/webfolio/chatd/internal/models"
	bolt "go.etcd.io/bbolt"
)

var conversationsBucket = []byte("conversations")

// BoltStore implements ConversationStore on a single BoltDB file, keyed by
// sanitized conversation id. It is the config-selectable alternative to the
// file-per-conversation backend for deployments that prefer one database
// file over a directory of JSON documents.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger

	now func() time.Time
}

// NewBoltStore opens (creating if necessary) the database at path and
// initializes the conversations bucket. The file is created with 0600
// permissions.
func NewBoltStore(path string, logger *slog.Logger) (BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltStore{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	})

	return BoltStore{
		db:     db,
		logger: logger.With(slog.String("module", "boltstore")),
		now:    time.Now,
	}, err
}

// Close releases the underlying database file.
func (b BoltStore) Close() error {
	return b.db.Close()
}

// Save writes the full message list for id, creating the record on first
// save. StartedAt and TranscriptSent carry over from an existing record.
func (b BoltStore) Save(_ context.Context, id string, messages []models.Message) (models.Conversation, error) {
	now := b.now()
	conv := models.Conversation{
		ID:            id,
		Messages:      messages,
		StartedAt:     firstTimestamp(messages, now),
		LastMessageAt: lastTimestamp(messages, now),
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(conversationsBucket)
		key := []byte(sanitizeID(id))

		if v := bkt.Get(key); v != nil {
			var existing models.Conversation
			if err := json.Unmarshal(v, &existing); err == nil {
				conv.StartedAt = existing.StartedAt
				conv.TranscriptSent = existing.TranscriptSent
			} else {
				b.logger.Warn("Overwriting unreadable conversation",
					slog.String("id", id),
					slog.String("err", err.Error()))
			}
		}

		v, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation: %w", err)
		}
		return bkt.Put(key, v)
	})
	if err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// Get reads the record for id, returning ErrNotFound when absent.
func (b BoltStore) Get(_ context.Context, id string) (models.Conversation, error) {
	var conv models.Conversation
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(conversationsBucket).Get([]byte(sanitizeID(id)))
		if v == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(v, &conv); err != nil {
			return fmt.Errorf("failed to unmarshal conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// List returns summaries for all records sorted newest-StartedAt-first,
// skipping records that fail to parse.
func (b BoltStore) List(_ context.Context) ([]models.ConversationSummary, error) {
	var summaries []models.ConversationSummary
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).ForEach(func(k, v []byte) error {
			var conv models.Conversation
			if err := json.Unmarshal(v, &conv); err != nil {
				b.logger.Warn("Skipping corrupt conversation",
					slog.String("key", string(k)),
					slog.String("err", err.Error()))
				return nil
			}
			summaries = append(summaries, conv.Summarize())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(summaries, func(a, c models.ConversationSummary) int {
		return c.StartedAt.Compare(a.StartedAt)
	})
	return summaries, nil
}

// Stats aggregates the listing into cross-conversation metrics.
func (b BoltStore) Stats(ctx context.Context) (models.ConversationStats, error) {
	summaries, err := b.List(ctx)
	if err != nil {
		return models.ConversationStats{}, err
	}
	return models.ComputeStats(summaries, b.now()), nil
}

// Delete removes the record for id, returning ErrNotFound when absent.
func (b BoltStore) Delete(_ context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(conversationsBucket)
		key := []byte(sanitizeID(id))
		if bkt.Get(key) == nil {
			return ErrNotFound
		}
		return bkt.Delete(key)
	})
}

// Cleanup deletes every record whose StartedAt is older than maxAgeDays and
// returns the number deleted. Individual failures do not abort the batch.
func (b BoltStore) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	summaries, err := b.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := b.now().AddDate(0, 0, -maxAgeDays)
	deleted := 0
	for _, summary := range summaries {
		if !summary.StartedAt.Before(cutoff) {
			continue
		}
		if err := b.Delete(ctx, summary.ID); err != nil {
			b.logger.Warn("Failed to delete old conversation",
				slog.String("id", summary.ID),
				slog.String("err", err.Error()))
			continue
		}
		deleted++
	}
	return deleted, nil
}

// MarkTranscriptSent flips the TranscriptSent flag on the record for id.
func (b BoltStore) MarkTranscriptSent(_ context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(conversationsBucket)
		key := []byte(sanitizeID(id))

		v := bkt.Get(key)
		if v == nil {
			return ErrNotFound
		}

		var conv models.Conversation
		if err := json.Unmarshal(v, &conv); err != nil {
			return fmt.Errorf("failed to unmarshal conversation: %w", err)
		}
		conv.TranscriptSent = true

		v, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation: %w", err)
		}
		return bkt.Put(key, v)
	})
}
