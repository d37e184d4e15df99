package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/webfolio/chatd/internal/models"
)

// FileStore implements ConversationStore with one JSON file per conversation,
// named by the sanitized id, under a single directory. It is a single-node
// store: concurrent saves to the same id are last-writer-wins.
type FileStore struct {
	dir    string
	logger *slog.Logger

	now func() time.Time
}

// NewFileStore creates a FileStore rooted at dir, creating the directory if
// it does not exist.
func NewFileStore(dir string, logger *slog.Logger) (FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return FileStore{}, fmt.Errorf("failed to create conversations dir: %w", err)
	}
	return FileStore{
		dir:    dir,
		logger: logger.With(slog.String("module", "filestore")),
		now:    time.Now,
	}, nil
}

func (s FileStore) filePath(id string) string {
	return filepath.Join(s.dir, sanitizeID(id)+".json")
}

// Save writes the full message list for id, creating the record on first
// save. StartedAt and TranscriptSent are carried over from an existing
// record; LastMessageAt is recomputed from the messages on every save.
func (s FileStore) Save(ctx context.Context, id string, messages []models.Message) (models.Conversation, error) {
	existing, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		// An unreadable record is overwritten rather than blocking the save.
		s.logger.Warn("Overwriting unreadable conversation",
			slog.String("id", id),
			slog.String("err", err.Error()))
		err = ErrNotFound
	}

	now := s.now()
	conv := models.Conversation{
		ID:            id,
		Messages:      messages,
		StartedAt:     firstTimestamp(messages, now),
		LastMessageAt: lastTimestamp(messages, now),
	}
	if err == nil {
		conv.StartedAt = existing.StartedAt
		conv.TranscriptSent = existing.TranscriptSent
	}

	if err := s.write(conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// Get reads the record for id, returning ErrNotFound when absent.
func (s FileStore) Get(_ context.Context, id string) (models.Conversation, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Conversation{}, ErrNotFound
		}
		return models.Conversation{}, fmt.Errorf("failed to read conversation: %w", err)
	}

	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return models.Conversation{}, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return conv, nil
}

// List returns summaries for all records sorted newest-StartedAt-first.
// Records that fail to parse are skipped rather than aborting the listing.
func (s FileStore) List(_ context.Context) ([]models.ConversationSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversations dir: %w", err)
	}

	var summaries []models.ConversationSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.Warn("Skipping unreadable conversation",
				slog.String("file", entry.Name()),
				slog.String("err", err.Error()))
			continue
		}

		var conv models.Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			s.logger.Warn("Skipping corrupt conversation",
				slog.String("file", entry.Name()),
				slog.String("err", err.Error()))
			continue
		}

		summaries = append(summaries, conv.Summarize())
	}

	slices.SortFunc(summaries, func(a, b models.ConversationSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return summaries, nil
}

// Stats aggregates the listing into cross-conversation metrics.
func (s FileStore) Stats(ctx context.Context) (models.ConversationStats, error) {
	summaries, err := s.List(ctx)
	if err != nil {
		return models.ConversationStats{}, err
	}
	return models.ComputeStats(summaries, s.now()), nil
}

// Delete removes the record for id, returning ErrNotFound when absent.
func (s FileStore) Delete(_ context.Context, id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// Cleanup deletes every record whose StartedAt is older than maxAgeDays and
// returns the number deleted. Individual failures do not abort the batch.
func (s FileStore) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	summaries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().AddDate(0, 0, -maxAgeDays)
	deleted := 0
	for _, summary := range summaries {
		if !summary.StartedAt.Before(cutoff) {
			continue
		}
		if err := s.Delete(ctx, summary.ID); err != nil {
			s.logger.Warn("Failed to delete old conversation",
				slog.String("id", summary.ID),
				slog.String("err", err.Error()))
			continue
		}
		deleted++
	}
	return deleted, nil
}

// MarkTranscriptSent flips the TranscriptSent flag on the record for id.
// The flag is never reset to false.
func (s FileStore) MarkTranscriptSent(ctx context.Context, id string) error {
	conv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	conv.TranscriptSent = true
	return s.write(conv)
}

func (s FileStore) write(conv models.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	// Write through a temp file and rename so a crash mid-write never leaves
	// a half-written record behind.
	path := s.filePath(conv.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	return nil
}
