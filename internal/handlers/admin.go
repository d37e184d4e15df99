package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/webfolio/chatd/internal/models"
	"github.com/webfolio/chatd/internal/store"
)

// authorized checks the admin credential: either the admin_token cookie or
// an Authorization bearer token must match the configured password. With no
// password configured every admin request is rejected.
func (m Main) authorized(r *http.Request) bool {
	if m.adminPassword == "" {
		return false
	}

	if cookie, err := r.Cookie("admin_token"); err == nil && cookie.Value == m.adminPassword {
		return true
	}

	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == m.adminPassword
}

type cleanupRequest struct {
	Action     string `json:"action"`
	MaxAgeDays int    `json:"maxAgeDays"`
}

// HandleAdminConversations serves the admin listing. GET returns summaries
// (newest first) together with aggregate stats, and kicks off a lazy
// best-effort cleanup of old records in the background. POST with
// {"action": "cleanup"} runs an explicit cleanup.
func (m Main) HandleAdminConversations(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		m.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		summaries, err := m.store.List(r.Context())
		if err != nil {
			m.logger.Error("Failed to list conversations", slog.String(errLoggerKey, err.Error()))
			m.jsonError(w, "Failed to list conversations", http.StatusInternalServerError)
			return
		}
		if summaries == nil {
			summaries = []models.ConversationSummary{}
		}

		stats, err := m.store.Stats(r.Context())
		if err != nil {
			m.logger.Error("Failed to compute stats", slog.String(errLoggerKey, err.Error()))
			m.jsonError(w, "Failed to list conversations", http.StatusInternalServerError)
			return
		}

		go func() {
			if _, err := m.store.Cleanup(context.Background(), m.cleanupMaxAgeDays); err != nil {
				m.logger.Warn("Lazy cleanup failed", slog.String(errLoggerKey, err.Error()))
			}
		}()

		m.jsonOK(w, map[string]any{"conversations": summaries, "stats": stats})

	case http.MethodPost:
		var req cleanupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			m.jsonError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Action != "cleanup" {
			m.jsonError(w, "Unknown action", http.StatusBadRequest)
			return
		}

		maxAgeDays := req.MaxAgeDays
		if maxAgeDays <= 0 {
			maxAgeDays = m.cleanupMaxAgeDays
		}
		deleted, err := m.store.Cleanup(r.Context(), maxAgeDays)
		if err != nil {
			m.logger.Error("Cleanup failed", slog.String(errLoggerKey, err.Error()))
			m.jsonError(w, "Failed to cleanup", http.StatusInternalServerError)
			return
		}
		m.jsonOK(w, map[string]any{"success": true, "deleted": deleted})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleAdminConversation serves a single record: GET returns the full
// transcript, DELETE removes it.
func (m Main) HandleAdminConversation(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		m.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/admin/conversations/")
	if id == "" || strings.Contains(id, "/") {
		m.jsonError(w, "Conversation not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		conversation, err := m.store.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				m.jsonError(w, "Conversation not found", http.StatusNotFound)
				return
			}
			m.logger.Error("Failed to load conversation",
				slog.String("id", id),
				slog.String(errLoggerKey, err.Error()))
			m.jsonError(w, "Failed to load conversation", http.StatusInternalServerError)
			return
		}
		m.jsonOK(w, conversation)

	case http.MethodDelete:
		if err := m.store.Delete(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				m.jsonError(w, "Conversation not found", http.StatusNotFound)
				return
			}
			m.logger.Error("Failed to delete conversation",
				slog.String("id", id),
				slog.String(errLoggerKey, err.Error()))
			m.jsonError(w, "Failed to delete conversation", http.StatusInternalServerError)
			return
		}
		m.jsonOK(w, map[string]any{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
