package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// PresenceTracker maintains the live user roster for one scope (a
// room or the global roster). It reconciles full snapshots with
// incremental deltas; at most one entry exists per user.
type PresenceTracker struct {
	mu      sync.RWMutex
	entries map[string]models.PresenceEntry
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		entries: make(map[string]models.PresenceEntry),
	}
}

// ApplySnapshot replaces the entire tracked set with the snapshot.
func (t *PresenceTracker) ApplySnapshot(entries []models.PresenceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[string]models.PresenceEntry, len(entries))
	for _, e := range entries {
		if !e.Online {
			continue
		}
		t.entries[e.UserID] = e
	}
}

// ApplyDelta upserts or removes a single user. Online=false removes
// the entry entirely.
func (t *PresenceTracker) ApplyDelta(userID string, online, typing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !online {
		delete(t.entries, userID)
		return
	}
	t.entries[userID] = models.PresenceEntry{
		UserID:   userID,
		Online:   true,
		Typing:   typing,
		LastSeen: time.Now(),
	}
}

// OnlineUsers returns the online entries sorted by user identifier.
func (t *PresenceTracker) OnlineUsers() []models.PresenceEntry {
	t.mu.RLock()
	out := make([]models.PresenceEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out
}

// TypingUsers returns the identifiers of users currently typing,
// sorted.
func (t *PresenceTracker) TypingUsers() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Typing {
			out = append(out, e.UserID)
		}
	}
	t.mu.RUnlock()

	sort.Strings(out)
	return out
}

// IsOnline reports whether the user is present in the scope.
func (t *PresenceTracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[userID]
	return ok
}
