package models

import "time"

// PresenceEntry is one user's live status within a scope (a room or
// the global roster). At most one entry exists per user per scope.
type PresenceEntry struct {
	UserID   string    `json:"user_id"`
	Online   bool      `json:"online"`
	Typing   bool      `json:"typing"`
	LastSeen time.Time `json:"last_seen"`
}

// PresenceSnapshot is a full-state presence event that replaces the
// entire tracked set for its scope.
type PresenceSnapshot struct {
	Scope   string          `json:"scope"`
	Entries []PresenceEntry `json:"entries"`
}

// PresenceDelta is an incremental presence event for a single user.
// Online=false removes the user from the scope.
type PresenceDelta struct {
	Scope  string `json:"scope"`
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
	Typing bool   `json:"typing"`
}

// TypingEvent is the outbound typing signal published for a room.
type TypingEvent struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Typing bool   `json:"typing"`
}
