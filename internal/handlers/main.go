// Package handlers exposes the HTTP API consumed by the portfolio frontend
// widget and the admin dashboard.
package handlers

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"

	"github.com/webfolio/chatd/internal/models"
	"github.com/webfolio/chatd/internal/store"
)

// LLM represents a large language model interface that provides chat
// functionality. It accepts a context and the conversation history, and
// returns an iterator that yields response text fragments and potential
// errors.
type LLM interface {
	Chat(ctx context.Context, messages []models.ChatMessage) iter.Seq2[string, error]
}

// Dispatcher sends a conversation transcript to the configured recipient,
// reporting true only on a successful send. See the mail package for the
// SMTP implementation.
type Dispatcher interface {
	SendTranscript(conversation models.Conversation) bool
}

const errLoggerKey = "err"

// Main wires the LLM provider, the conversation store and the transcript
// dispatcher into the HTTP surface.
type Main struct {
	llm        LLM
	store      store.ConversationStore
	dispatcher Dispatcher

	adminPassword     string
	cleanupMaxAgeDays int

	logger *slog.Logger
}

// NewMain creates a Main instance around the provided collaborators. Admin
// routes are guarded by adminPassword; an empty password rejects all admin
// requests. Listings trigger a lazy cleanup of conversations older than
// cleanupMaxAgeDays.
func NewMain(
	llm LLM,
	cs store.ConversationStore,
	dispatcher Dispatcher,
	adminPassword string,
	cleanupMaxAgeDays int,
	logger *slog.Logger,
) Main {
	return Main{
		llm:               llm,
		store:             cs,
		dispatcher:        dispatcher,
		adminPassword:     adminPassword,
		cleanupMaxAgeDays: cleanupMaxAgeDays,
		logger:            logger.With(slog.String("module", "handlers")),
	}
}

// Register attaches all API routes to mux.
func (m Main) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/chat", m.HandleChat)
	mux.HandleFunc("/api/conversations", m.HandleSaveConversation)
	mux.HandleFunc("/api/conversations/send-transcript", m.HandleSendTranscript)
	mux.HandleFunc("/api/admin/conversations", m.HandleAdminConversations)
	mux.HandleFunc("/api/admin/conversations/", m.HandleAdminConversation)
}

func (m Main) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (m Main) jsonOK(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		m.logger.Error("Failed to encode response", slog.String(errLoggerKey, err.Error()))
	}
}
