package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/webfolio/chatd/internal/models"
)

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

// HandleChat serves the backend chat endpoint. It accepts a JSON body of
// {"messages": [{role, content}, ...]} and responds with a plain text stream
// of incremental assistant output, flushed fragment by fragment. A provider
// error before the first fragment is reported as a non-success status with a
// JSON error body; once streaming has begun, an error is appended to the
// stream as a trailing marker since the status line is already gone.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		m.jsonError(w, "messages array is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		m.logger.Error("Response writer does not support streaming")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	streaming := false
	for fragment, err := range m.llm.Chat(r.Context(), req.Messages) {
		if err != nil {
			m.logger.Error("Error from llm provider", slog.String(errLoggerKey, err.Error()))
			if !streaming {
				m.jsonError(w, "Upstream model error", http.StatusBadGateway)
				return
			}
			fmt.Fprintf(w, "\n[Error: %s]", err)
			flusher.Flush()
			return
		}
		if fragment == "" {
			continue
		}
		if !streaming {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			streaming = true
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			// Client went away; the provider iterator is stopped by the
			// request context.
			return
		}
		flusher.Flush()
	}
}
