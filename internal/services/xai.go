package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/webfolio/chatd/internal/models"
)

// XAI provides an implementation of the LLM interface backed by xAI's
// OpenAI-compatible chat completions API. It is the default provider; the
// portfolio assistant runs on the grok mini models.
type XAI struct {
	model        string
	systemPrompt string
	temperature  float32

	client *goopenai.Client

	logger *slog.Logger
}

const xaiBaseURL = "https://api.x.ai/v1"

// NewXAI creates an XAI instance with the specified API key, model name,
// system prompt and sampling temperature.
func NewXAI(apiKey, model, systemPrompt string, temperature float32, logger *slog.Logger) XAI {
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = xaiBaseURL

	return XAI{
		model:        model,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		client:       goopenai.NewClientWithConfig(cfg),
		logger:       logger.With(slog.String("module", "xai")),
	}
}

// Chat streams assistant output for the given message history. The system
// prompt is prepended server-side; the history carries user and assistant
// turns only. The returned iterator yields incremental text fragments and
// ends silently on context cancellation.
func (x XAI) Chat(ctx context.Context, messages []models.ChatMessage) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		msgs := make([]goopenai.ChatCompletionMessage, len(messages))
		for i, msg := range messages {
			msgs[i] = goopenai.ChatCompletionMessage{
				Role:    string(msg.Role),
				Content: msg.Content,
			}
		}
		msgs = slices.Insert(msgs, 0, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: x.systemPrompt,
		})

		req := goopenai.ChatCompletionRequest{
			Model:       x.model,
			Messages:    msgs,
			Stream:      true,
			Temperature: x.temperature,
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := x.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			yield("", fmt.Errorf("error sending request: %w", err))
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error receiving response: %w", err))
				return
			}

			if len(response.Choices) == 0 {
				continue
			}

			if delta := response.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
	}
}
