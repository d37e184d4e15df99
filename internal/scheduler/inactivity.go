// Package scheduler dispatches transcripts for conversations that have gone
// quiet. It is a collaborator external to the chat controller: the widget
// never triggers the send itself.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/webfolio/chatd/internal/models"
	"github.com/webfolio/chatd/internal/store"
)

// Dispatcher sends a conversation transcript, reporting true only on a
// successful send.
type Dispatcher interface {
	SendTranscript(conversation models.Conversation) bool
}

// Watcher periodically scans the conversation store and dispatches the
// transcript of every conversation that has been inactive for at least the
// configured window, contains at least one user message, and has not had its
// transcript sent yet. Records are marked sent only after a true dispatch
// result, so the flag is flipped exactly once.
type Watcher struct {
	store      store.ConversationStore
	dispatcher Dispatcher
	inactivity time.Duration
	interval   time.Duration
	logger     *slog.Logger

	now func() time.Time
}

// New creates a Watcher that scans every interval for conversations idle
// longer than inactivity.
func New(
	cs store.ConversationStore,
	dispatcher Dispatcher,
	inactivity, interval time.Duration,
	logger *slog.Logger,
) *Watcher {
	return &Watcher{
		store:      cs,
		dispatcher: dispatcher,
		inactivity: inactivity,
		interval:   interval,
		logger:     logger.With(slog.String("module", "scheduler")),
		now:        time.Now,
	}
}

// Run blocks, scanning on every tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan performs one pass over the store and returns the number of
// transcripts dispatched. Failures on individual conversations are logged
// and do not abort the pass.
func (w *Watcher) Scan(ctx context.Context) int {
	summaries, err := w.store.List(ctx)
	if err != nil {
		w.logger.Error("Failed to list conversations", slog.String("err", err.Error()))
		return 0
	}

	cutoff := w.now().Add(-w.inactivity)
	sent := 0
	for _, summary := range summaries {
		if summary.TranscriptSent || summary.LastMessageAt.After(cutoff) {
			continue
		}

		conversation, err := w.store.Get(ctx, summary.ID)
		if err != nil {
			w.logger.Warn("Failed to load conversation for transcript",
				slog.String("id", summary.ID),
				slog.String("err", err.Error()))
			continue
		}
		if _, ok := conversation.FirstUserMessage(); !ok {
			continue
		}

		if !w.dispatcher.SendTranscript(conversation) {
			continue
		}
		if err := w.store.MarkTranscriptSent(ctx, conversation.ID); err != nil {
			w.logger.Error("Failed to mark transcript sent",
				slog.String("id", conversation.ID),
				slog.String("err", err.Error()))
			continue
		}
		sent++
	}

	if sent > 0 {
		w.logger.Info("Dispatched transcripts", slog.Int("count", sent))
	}
	return sent
}
