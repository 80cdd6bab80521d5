// Package models defines the wire and domain types shared by the
// realtime client core: chat messages, presence entries, polls and
// broker frames.
package models

import "time"

// MessageType classifies the payload of a chat message.
type MessageType string

const (
	MessageText    MessageType = "text"
	MessageImage   MessageType = "image"
	MessageFile    MessageType = "file"
	MessagePoll    MessageType = "poll"
	MessagePrivate MessageType = "private"
)

// Reaction is one user's reaction to a message.
type Reaction struct {
	Kind   string `json:"kind"`
	UserID string `json:"user_id"`
}

// Message is the unified chat message format for group and private
// conversations. The identifier is unique within one conversation;
// the store relies on it for deduplication.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Type           MessageType `json:"type"`
	Content        string      `json:"content"`
	FileURL        string      `json:"file_url,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Reactions      []Reaction  `json:"reactions,omitempty"`
}

// HasReaction reports whether the message already carries the given
// reaction kind from the given user.
func (m *Message) HasReaction(kind, userID string) bool {
	for _, r := range m.Reactions {
		if r.Kind == kind && r.UserID == userID {
			return true
		}
	}
	return false
}

// ReactionEvent is the payload of a reaction frame: one reaction
// applied to an existing message.
type ReactionEvent struct {
	MessageID string   `json:"message_id"`
	Reaction  Reaction `json:"reaction"`
}
