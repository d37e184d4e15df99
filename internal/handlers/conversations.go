package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/webfolio/chatd/internal/models"
	"github.com/webfolio/chatd/internal/store"
)

// Conversation ids are assigned client-side at session start; the format is
// validated here before anything touches storage.
var conversationIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{8,64}$`)

type saveConversationRequest struct {
	ConversationID string           `json:"conversationId"`
	Messages       []models.Message `json:"messages"`
}

// HandleSaveConversation persists the full transcript for a session id. The
// messages array overwrites any previously saved list for the same id; the
// record's StartedAt and TranscriptSent survive across saves.
func (m Main) HandleSaveConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req saveConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" || len(req.Messages) == 0 {
		m.jsonError(w, "conversationId and messages[] required", http.StatusBadRequest)
		return
	}
	if !conversationIDPattern.MatchString(req.ConversationID) {
		m.jsonError(w, "Invalid conversationId format", http.StatusBadRequest)
		return
	}

	conversation, err := m.store.Save(r.Context(), req.ConversationID, req.Messages)
	if err != nil {
		m.logger.Error("Failed to save conversation",
			slog.String("id", req.ConversationID),
			slog.String(errLoggerKey, err.Error()))
		m.jsonError(w, "Failed to save conversation", http.StatusInternalServerError)
		return
	}

	m.jsonOK(w, map[string]any{"success": true, "id": conversation.ID})
}

type sendTranscriptRequest struct {
	ConversationID string `json:"conversationId"`
}

// HandleSendTranscript dispatches the transcript email for a conversation
// and marks the record sent on success. Conversations whose transcript has
// already gone out, or which contain no user message, are skipped without
// error; an unconfigured mail transport yields emailSent=false, which is a
// normal outcome for the calling flow.
func (m Main) HandleSendTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" {
		m.jsonError(w, "conversationId required", http.StatusBadRequest)
		return
	}

	conversation, err := m.store.Get(r.Context(), req.ConversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.jsonError(w, "Conversation not found", http.StatusNotFound)
			return
		}
		m.logger.Error("Failed to load conversation",
			slog.String("id", req.ConversationID),
			slog.String(errLoggerKey, err.Error()))
		m.jsonError(w, "Failed to send transcript", http.StatusInternalServerError)
		return
	}

	if conversation.TranscriptSent {
		m.jsonOK(w, map[string]any{"success": true, "alreadySent": true})
		return
	}
	if _, ok := conversation.FirstUserMessage(); !ok {
		m.jsonOK(w, map[string]any{"success": true, "skipped": "no user messages"})
		return
	}

	sent := m.dispatcher.SendTranscript(conversation)
	if sent {
		if err := m.store.MarkTranscriptSent(r.Context(), conversation.ID); err != nil {
			m.logger.Error("Failed to mark transcript sent",
				slog.String("id", conversation.ID),
				slog.String(errLoggerKey, err.Error()))
		}
	}

	m.jsonOK(w, map[string]any{"success": true, "emailSent": sent})
}
