package realtime

import (
	"time"

	"github.com/xhist/travel-buddy-client-sub000/internal/debounce"
	"github.com/xhist/travel-buddy-client-sub000/internal/observability"
	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// TypingNotifier publishes the local user's typing state per room.
// Rapid SetTyping calls within the debounce window (default 300ms)
// coalesce into a single trailing-edge publish carrying the latest
// value, so keystrokes never flood the broker.
type TypingNotifier struct {
	conn     *ConnectionManager
	userID   string
	logger   *observability.Logger
	debounce *debounce.Trailing[bool]
}

// NewTypingNotifier creates a notifier for the local user. A
// non-positive window publishes immediately.
func NewTypingNotifier(conn *ConnectionManager, userID string, window time.Duration, logger *observability.Logger) *TypingNotifier {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	n := &TypingNotifier{
		conn:   conn,
		userID: userID,
		logger: logger,
	}
	n.debounce = debounce.NewTrailing(n.publish, debounce.WithWindow[bool](window))
	return n
}

// SetTyping records the latest typing state for a room. The publish
// happens after the debounce window elapses without another call.
func (n *TypingNotifier) SetTyping(roomID string, typing bool) {
	n.debounce.Set(roomID, typing)
}

// Stop discards pending publishes. Call on teardown.
func (n *TypingNotifier) Stop() {
	n.debounce.Stop()
}

// publish delivers the debounced typing state to the room's typing
// topic. Failures while disconnected are expected and only logged at
// debug level; typing state is ephemeral.
func (n *TypingNotifier) publish(roomID string, typing bool) {
	event := models.TypingEvent{RoomID: roomID, UserID: n.userID, Typing: typing}
	if err := n.conn.PublishTo(models.FrameTyping, RoomTypingTopic(roomID), event); err != nil {
		n.logger.Debug("typing publish skipped", "room_id", roomID, "error", err)
	}
}
