package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/webfolio/chatd/internal/models"
	"github.com/webfolio/chatd/internal/store"
)

type fakeStore struct {
	mu            sync.Mutex
	conversations map[string]models.Conversation
}

func newFakeStore(conversations ...models.Conversation) *fakeStore {
	s := &fakeStore{conversations: make(map[string]models.Conversation)}
	for _, conv := range conversations {
		s.conversations[conv.ID] = conv
	}
	return s
}

func (s *fakeStore) Save(_ context.Context, id string, messages []models.Message) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := models.Conversation{ID: id, Messages: messages}
	s.conversations[id] = conv
	return conv, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return models.Conversation{}, store.ErrNotFound
	}
	return conv, nil
}

func (s *fakeStore) List(_ context.Context) ([]models.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var summaries []models.ConversationSummary
	for _, conv := range s.conversations {
		summaries = append(summaries, conv.Summarize())
	}
	return summaries, nil
}

func (s *fakeStore) Stats(_ context.Context) (models.ConversationStats, error) {
	return models.ConversationStats{}, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

func (s *fakeStore) Cleanup(_ context.Context, _ int) (int, error) {
	return 0, nil
}

func (s *fakeStore) MarkTranscriptSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	conv.TranscriptSent = true
	s.conversations[id] = conv
	return nil
}

type fakeDispatcher struct {
	sent   []string
	result bool
}

func (d *fakeDispatcher) SendTranscript(conversation models.Conversation) bool {
	d.sent = append(d.sent, conversation.ID)
	return d.result
}

func TestScanDispatchesIdleConversations(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	userMsg := models.Message{Role: models.RoleUser, Content: "hi", Timestamp: now.Add(-time.Hour)}

	cs := newFakeStore(
		models.Conversation{
			ID:            "idle-unsent",
			Messages:      []models.Message{userMsg},
			StartedAt:     now.Add(-time.Hour),
			LastMessageAt: now.Add(-10 * time.Minute),
		},
		models.Conversation{
			ID:            "still-active",
			Messages:      []models.Message{userMsg},
			StartedAt:     now.Add(-time.Hour),
			LastMessageAt: now.Add(-time.Minute),
		},
		models.Conversation{
			ID:             "already-sent",
			Messages:       []models.Message{userMsg},
			StartedAt:      now.Add(-time.Hour),
			LastMessageAt:  now.Add(-10 * time.Minute),
			TranscriptSent: true,
		},
		models.Conversation{
			ID: "greeting-only",
			Messages: []models.Message{
				{Role: models.RoleAssistant, Content: "Welcome!", Timestamp: now.Add(-time.Hour)},
			},
			StartedAt:     now.Add(-time.Hour),
			LastMessageAt: now.Add(-10 * time.Minute),
		},
	)
	dispatcher := &fakeDispatcher{result: true}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := New(cs, dispatcher, 5*time.Minute, time.Minute, logger)
	w.now = func() time.Time { return now }

	if sent := w.Scan(context.Background()); sent != 1 {
		t.Fatalf("Scan() = %d, want 1", sent)
	}
	if len(dispatcher.sent) != 1 || dispatcher.sent[0] != "idle-unsent" {
		t.Errorf("dispatched = %v, want [idle-unsent]", dispatcher.sent)
	}

	conv, err := cs.Get(context.Background(), "idle-unsent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !conv.TranscriptSent {
		t.Error("dispatched conversation not marked sent")
	}

	// A second pass finds nothing left to do.
	if sent := w.Scan(context.Background()); sent != 0 {
		t.Errorf("second Scan() = %d, want 0", sent)
	}
}

func TestScanDoesNotMarkOnFailedDispatch(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cs := newFakeStore(models.Conversation{
		ID: "idle-unsent",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "hi", Timestamp: now.Add(-time.Hour)},
		},
		StartedAt:     now.Add(-time.Hour),
		LastMessageAt: now.Add(-10 * time.Minute),
	})
	dispatcher := &fakeDispatcher{result: false}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := New(cs, dispatcher, 5*time.Minute, time.Minute, logger)
	w.now = func() time.Time { return now }

	if sent := w.Scan(context.Background()); sent != 0 {
		t.Errorf("Scan() = %d, want 0", sent)
	}
	conv, _ := cs.Get(context.Background(), "idle-unsent")
	if conv.TranscriptSent {
		t.Error("conversation marked sent despite failed dispatch")
	}
}
