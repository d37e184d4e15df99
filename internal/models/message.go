package models

import "time"

// Role represents the author of a chat message.
type Role string

const (
	// RoleUser marks a message typed by the site visitor.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the language model.
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a chat transcript. The ID is assigned by the
// session controller when the message is created and is unique within one
// session; it is not part of the persisted record. Content is mutable only
// for the single in-flight assistant message while it is being streamed.
type Message struct {
	ID        string    `json:"-"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessage is the wire form of a message as sent to the backend chat
// endpoint: role and content only.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
