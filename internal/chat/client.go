package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/webfolio/chatd/internal/models"
	"github.com/webfolio/chatd/internal/stream"
)

// Client streams assistant output from the backend chat endpoint. The
// endpoint accepts a JSON body of {"messages": [{role, content}, ...]} and
// responds with a plain text stream of incremental assistant output, or a
// non-success status carrying a JSON error body.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) Client {
	return Client{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

type chatErrorBody struct {
	Error string `json:"error"`
}

// Stream implements Streamer against the backend chat endpoint. A fresh
// exchange requires a fresh call; the underlying transport stream cannot be
// resumed mid-way. Cancellation through ctx ends the sequence silently.
func (c Client) Stream(ctx context.Context, history []models.ChatMessage) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		jsonBody, err := json.Marshal(chatRequest{Messages: history})
		if err != nil {
			yield("", fmt.Errorf("error marshaling request: %w", err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/chat", bytes.NewBuffer(jsonBody))
		if err != nil {
			yield("", fmt.Errorf("error creating request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			var errBody chatErrorBody
			if jsonErr := json.Unmarshal(body, &errBody); jsonErr == nil && errBody.Error != "" {
				yield("", fmt.Errorf("server error %d: %s", resp.StatusCode, errBody.Error))
				return
			}
			yield("", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
			return
		}

		for fragment, err := range stream.Chunks(resp.Body) {
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error reading response: %w", err))
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}
