package chat

import (
	"slices"
	"sync"

	"github.com/webfolio/chatd/internal/models"
)

// MessageStore holds the ordered message list for one widget instance. The
// widget host owns a single long-lived store, so the conversation survives
// the chat panel being closed and reopened within one page visit. All
// mutations are applied synchronously under a lock, so a snapshot taken
// after two appends always observes both.
type MessageStore struct {
	mu       sync.Mutex
	messages []models.Message
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Append adds messages at the end of the list in the order given.
func (s *MessageStore) Append(msgs ...models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// SetContent replaces the content of the message with the given id. This is
// a full replace, not an append: the caller hands over the complete text so
// far of the in-flight assistant message. Unknown ids are ignored.
func (s *MessageStore) SetContent(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Content = content
			return
		}
	}
}

// Remove deletes the message with the given id. It is used to roll back the
// assistant placeholder after a failed exchange.
func (s *MessageStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = slices.DeleteFunc(s.messages, func(m models.Message) bool {
		return m.ID == id
	})
}

// Snapshot returns a copy of the current message list in transcript order.
func (s *MessageStore) Snapshot() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// LastUserMessage returns the most recent user-role message, scanning from
// the end of the list, reporting false if none exists.
func (s *MessageStore) LastUserMessage() (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == models.RoleUser {
			return s.messages[i], true
		}
	}
	return models.Message{}, false
}

// Clear drops all messages.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
