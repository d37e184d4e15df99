package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func newTestBoltStore(t *testing.T) BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "conversations.db"), testLogger())
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func TestBoltStoreSaveAndGet(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := s.Save(ctx, "session-one", messagesAt(base, "hello", "hi there")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(ctx, "session-one")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "hi there" {
		t.Errorf("Get() messages = %+v", got.Messages)
	}
	if !got.StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, base)
	}
}

func TestBoltStoreSavePreservesStartedAtAndSentFlag(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := s.Save(ctx, "session-one", messagesAt(base, "hello")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.MarkTranscriptSent(ctx, "session-one"); err != nil {
		t.Fatalf("MarkTranscriptSent() error = %v", err)
	}

	saved, err := s.Save(ctx, "session-one", messagesAt(base.Add(time.Hour), "hello", "hi"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !saved.StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want original %v", saved.StartedAt, base)
	}
	if !saved.TranscriptSent {
		t.Error("TranscriptSent flag lost on re-save")
	}
}

func TestBoltStoreGetAndDeleteNotFound(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	if err := s.MarkTranscriptSent(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkTranscriptSent() error = %v, want ErrNotFound", err)
	}
}

func TestBoltStoreListSortedAndSkipsCorrupt(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := s.Save(ctx, "older", messagesAt(base, "first question")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := s.Save(ctx, "newer", messagesAt(base.Add(time.Hour), "second question")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Inject a record that does not parse.
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).Put([]byte("corrupt"), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("injecting corrupt record: %v", err)
	}

	summaries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("List() len = %d, want 2", len(summaries))
	}
	if summaries[0].ID != "newer" || summaries[1].ID != "older" {
		t.Errorf("List() order = %s, %s, want newest first", summaries[0].ID, summaries[1].ID)
	}
}

func TestBoltStoreCleanup(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 2, 15, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if _, err := s.Save(ctx, "ancient", messagesAt(now.AddDate(0, 0, -40), "old")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := s.Save(ctx, "recent", messagesAt(now.AddDate(0, 0, -2), "new")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	deleted, err := s.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Cleanup() = %d, want 1", deleted)
	}
	if _, err := s.Get(ctx, "ancient"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old record still present after cleanup: %v", err)
	}
}
