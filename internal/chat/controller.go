// Package chat drives one streaming exchange at a time between the widget
// host and the backend chat endpoint, and owns the in-memory message list.
package chat

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webfolio/chatd/internal/models"
)

// Streamer produces the assistant token stream for one exchange. The
// returned iterator yields incremental text fragments and a terminal error,
// and must stop yielding once ctx is cancelled.
type Streamer interface {
	Stream(ctx context.Context, history []models.ChatMessage) iter.Seq2[string, error]
}

// State is the controller's position in one exchange.
type State int

// Controller states. Errored and cancelled exchanges both settle back on
// StateIdle; a surfaced error is observable through Err.
const (
	StateIdle State = iota
	StateSending
	StateStreaming
)

// Controller owns a single chat exchange at a time for one widget instance.
// Send appends the user message and an empty assistant placeholder, issues
// the request, and overwrites the placeholder's content with the accumulated
// stream as fragments arrive. A failed exchange rolls the placeholder back
// so no empty assistant bubble is left behind; cancellation is silent and is
// never reported as a failure.
type Controller struct {
	streamer Streamer
	store    *MessageStore
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	lastErr error
	cancel  context.CancelFunc
}

// NewController creates a controller around the given streamer and message
// store. The store is passed in rather than created here so the host can
// keep it alive across widget open/close cycles.
func NewController(streamer Streamer, store *MessageStore, logger *slog.Logger) *Controller {
	return &Controller{
		streamer: streamer,
		store:    store,
		logger:   logger.With(slog.String("module", "chat")),
	}
}

// Send runs one full exchange for the given input and blocks until it
// settles. The call is a no-op when the trimmed input is empty or when
// another exchange is already in flight; concurrent sends are rejected, not
// queued, so two streams can never interleave writes to one placeholder.
func (c *Controller) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	c.state = StateSending
	c.lastErr = nil
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	now := time.Now()
	userMsg := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: now,
	}
	placeholder := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		Timestamp: now,
	}
	c.store.Append(userMsg, placeholder)

	// The history is built from a snapshot taken after both appends, minus
	// the placeholder itself, so the backend never sees its own empty echo.
	history := historyExcluding(c.store.Snapshot(), placeholder.ID)

	var accumulated strings.Builder
	for fragment, err := range c.streamer.Stream(ctx, history) {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.settle(nil)
				return
			}
			c.logger.Error("Exchange failed", slog.String("err", err.Error()))
			c.store.Remove(placeholder.ID)
			c.settle(err)
			return
		}
		if ctx.Err() != nil {
			// Cancelled between fragment reads; the fragment already in
			// flight is discarded, not applied.
			c.settle(nil)
			return
		}
		c.setState(StateStreaming)
		accumulated.WriteString(fragment)
		c.store.SetContent(placeholder.ID, accumulated.String())
	}

	c.settle(nil)
}

// Retry re-sends the content of the most recent user message. It is only
// meaningful while an error is surfaced and is a no-op otherwise, or when no
// user message exists.
func (c *Controller) Retry(ctx context.Context) {
	c.mu.Lock()
	if c.lastErr == nil || c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	c.lastErr = nil
	c.mu.Unlock()

	last, ok := c.store.LastUserMessage()
	if !ok {
		return
	}
	c.Send(ctx, last.Content)
}

// Close aborts any in-flight exchange. It corresponds to the widget being
// unmounted mid-stream and surfaces no error.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Messages returns a snapshot of the current message list.
func (c *Controller) Messages() []models.Message {
	return c.store.Snapshot()
}

// State reports the controller's current exchange state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Streaming reports whether an exchange is currently in flight.
func (c *Controller) Streaming() bool {
	return c.State() != StateIdle
}

// Err returns the error surfaced by the last failed exchange, or nil. It is
// cleared by the next Send or Retry.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Controller) settle(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.lastErr = err
	c.cancel = nil
}

func historyExcluding(messages []models.Message, id string) []models.ChatMessage {
	history := make([]models.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.ID == id {
			continue
		}
		history = append(history, models.ChatMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return history
}
