package models

import (
	"math"
	"time"
)

// NoPreview is the summary preview used when a conversation contains no
// user message.
const NoPreview = "(no messages)"

// Conversation is the persisted unit of the chat system: the full ordered
// transcript for one session id, together with its lifetime bounds and the
// transcript delivery flag. StartedAt is set once at first save and never
// changes; LastMessageAt is recomputed on every save. TranscriptSent starts
// false and is flipped to true exactly once, after a successful dispatch.
type Conversation struct {
	ID             string    `json:"id"`
	Messages       []Message `json:"messages"`
	StartedAt      time.Time `json:"startedAt"`
	LastMessageAt  time.Time `json:"lastMessageAt"`
	TranscriptSent bool      `json:"transcriptSent"`
}

// ConversationSummary is a derived, read-only view of a conversation used
// for admin listings.
type ConversationSummary struct {
	ID              string    `json:"id"`
	Preview         string    `json:"preview"`
	MessageCount    int       `json:"messageCount"`
	StartedAt       time.Time `json:"startedAt"`
	LastMessageAt   time.Time `json:"lastMessageAt"`
	DurationMinutes int       `json:"durationMinutes"`
	TranscriptSent  bool      `json:"transcriptSent"`
}

// ConversationStats aggregates cross-conversation metrics for the admin
// dashboard.
type ConversationStats struct {
	Total              int `json:"total"`
	Today              int `json:"today"`
	AvgMessages        int `json:"avgMessages"`
	AvgDurationMinutes int `json:"avgDurationMinutes"`
}

// FirstUserMessage returns the first user-role message of the conversation,
// reporting false if none exists.
func (c Conversation) FirstUserMessage() (Message, bool) {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return m, true
		}
	}
	return Message{}, false
}

// Summarize derives the listing view of a conversation. The preview is the
// first user message, DurationMinutes is the rounded span between StartedAt
// and LastMessageAt, floored at zero.
func (c Conversation) Summarize() ConversationSummary {
	preview := NoPreview
	if m, ok := c.FirstUserMessage(); ok {
		preview = m.Content
	}

	duration := int(math.Round(c.LastMessageAt.Sub(c.StartedAt).Minutes()))
	if duration < 0 {
		duration = 0
	}

	return ConversationSummary{
		ID:              c.ID,
		Preview:         preview,
		MessageCount:    len(c.Messages),
		StartedAt:       c.StartedAt,
		LastMessageAt:   c.LastMessageAt,
		DurationMinutes: duration,
		TranscriptSent:  c.TranscriptSent,
	}
}

// ComputeStats aggregates a set of summaries into dashboard metrics. Today
// counts conversations started on or after local midnight of now. Averages
// are rounded to the nearest integer. The empty set yields all zeroes.
func ComputeStats(summaries []ConversationSummary, now time.Time) ConversationStats {
	if len(summaries) == 0 {
		return ConversationStats{}
	}

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var today, totalMessages, totalDuration int
	for _, s := range summaries {
		if !s.StartedAt.Before(todayStart) {
			today++
		}
		totalMessages += s.MessageCount
		totalDuration += s.DurationMinutes
	}

	n := float64(len(summaries))
	return ConversationStats{
		Total:              len(summaries),
		Today:              today,
		AvgMessages:        int(math.Round(float64(totalMessages) / n)),
		AvgDurationMinutes: int(math.Round(float64(totalDuration) / n)),
	}
}
