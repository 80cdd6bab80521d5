package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/xhist/travel-buddy-client-sub000/internal/observability"
	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// Handler receives every inbound frame for a subscribed topic.
type Handler func(frame *models.Frame)

// SubscriptionHandle identifies one live (topic, handler) binding.
type SubscriptionHandle struct {
	id    string
	topic string
}

// Topic returns the topic this handle is bound to.
func (h *SubscriptionHandle) Topic() string {
	return h.topic
}

// subscription is the registry's record of one binding.
type subscription struct {
	id      string
	topic   string
	handler Handler
	active  bool
}

// SubscriptionRegistry is the sole mutator of the topic subscription
// set. It guarantees at most one live subscription per topic, replays
// all live subscriptions after a reconnect, and routes inbound frames
// to their topic handler. UI code never talks to the transport's
// subscribe mechanics directly.
type SubscriptionRegistry struct {
	conn    *ConnectionManager
	logger  *observability.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	byTopic map[string]*subscription
	byID    map[string]*subscription
}

// RegistryOption configures a SubscriptionRegistry.
type RegistryOption func(*SubscriptionRegistry)

// WithRegistryLogger sets the logger.
func WithRegistryLogger(logger *observability.Logger) RegistryOption {
	return func(r *SubscriptionRegistry) {
		r.logger = logger
	}
}

// WithRegistryMetrics sets the metrics collector.
func WithRegistryMetrics(m *observability.Metrics) RegistryOption {
	return func(r *SubscriptionRegistry) {
		r.metrics = m
	}
}

// NewSubscriptionRegistry creates a registry bound to a connection.
// It installs itself as the connection's frame handler and replays
// subscriptions whenever the link comes back up.
func NewSubscriptionRegistry(conn *ConnectionManager, opts ...RegistryOption) *SubscriptionRegistry {
	r := &SubscriptionRegistry{
		conn:    conn,
		logger:  observability.NewLogger(observability.LogConfig{}),
		byTopic: make(map[string]*subscription),
		byID:    make(map[string]*subscription),
	}
	for _, opt := range opts {
		opt(r)
	}
	conn.OnFrame(r.dispatch)
	conn.OnStatusChange(func(status models.ConnectionStatus) {
		if status == models.StatusConnected {
			r.replay()
		}
	})
	return r
}

// Subscribe registers a handler for a topic. A second live
// subscription to the same topic is a programming error and fails
// with an ErrCodeDuplicateSubscription error.
func (r *SubscriptionRegistry) Subscribe(topic string, handler Handler) (*SubscriptionHandle, error) {
	r.mu.Lock()
	if _, exists := r.byTopic[topic]; exists {
		r.mu.Unlock()
		return nil, ErrDuplicateSubscription(topic)
	}
	sub := &subscription{
		id:      uuid.NewString(),
		topic:   topic,
		handler: handler,
		active:  true,
	}
	r.byTopic[topic] = sub
	r.byID[sub.id] = sub
	count := len(r.byTopic)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveSubscriptions.Set(float64(count))
	}

	// Best effort: if the link is down the replay on reconnect will
	// announce the subscription instead.
	if err := r.conn.PublishTo(models.FrameSubscribe, topic, nil); err != nil && !IsNotConnected(err) {
		r.logger.Warn("subscribe announce failed", "topic", topic, "error", err)
	}
	return &SubscriptionHandle{id: sub.id, topic: topic}, nil
}

// Unsubscribe removes a binding. It is idempotent: unsubscribing an
// already-removed handle is a no-op.
func (r *SubscriptionRegistry) Unsubscribe(handle *SubscriptionHandle) {
	if handle == nil {
		return
	}
	r.mu.Lock()
	sub, ok := r.byID[handle.id]
	if !ok {
		r.mu.Unlock()
		return
	}
	sub.active = false
	delete(r.byID, sub.id)
	delete(r.byTopic, sub.topic)
	count := len(r.byTopic)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveSubscriptions.Set(float64(count))
	}
	if err := r.conn.PublishTo(models.FrameUnsubscribe, sub.topic, nil); err != nil && !IsNotConnected(err) {
		r.logger.Warn("unsubscribe announce failed", "topic", sub.topic, "error", err)
	}
}

// JoinRoom publishes the join control frame asking the server to emit
// a current room snapshot. Call it only after the room's data topics
// are subscribed, otherwise the snapshot can be missed.
func (r *SubscriptionRegistry) JoinRoom(roomID string) error {
	return r.conn.PublishTo(models.FrameJoin, RoomJoinTopic(roomID), nil)
}

// LeaveRoom publishes the leave control frame for a room.
func (r *SubscriptionRegistry) LeaveRoom(roomID string) error {
	return r.conn.PublishTo(models.FrameLeave, RoomLeaveTopic(roomID), nil)
}

// Topics returns the currently subscribed topic names.
func (r *SubscriptionRegistry) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	topics := make([]string, 0, len(r.byTopic))
	for topic := range r.byTopic {
		topics = append(topics, topic)
	}
	return topics
}

// dispatch routes one inbound frame to its topic handler. Frames for
// topics without a live subscription are dropped; this covers the
// race window where frames were queued before an unsubscribe.
func (r *SubscriptionRegistry) dispatch(frame *models.Frame) {
	r.mu.Lock()
	sub, ok := r.byTopic[frame.Topic]
	active := ok && sub.active
	r.mu.Unlock()

	if !active {
		if r.metrics != nil {
			r.metrics.FramesDropped.WithLabelValues("no_subscriber").Inc()
		}
		r.logger.Debug("dropping frame without subscriber", "topic", frame.Topic, "type", string(frame.Type))
		return
	}
	sub.handler(frame)
}

// replay re-announces every live subscription after a reconnect so
// still-mounted scopes keep receiving frames. The registry owns this;
// consumers never resubscribe themselves.
func (r *SubscriptionRegistry) replay() {
	r.mu.Lock()
	topics := make([]string, 0, len(r.byTopic))
	for topic := range r.byTopic {
		topics = append(topics, topic)
	}
	r.mu.Unlock()

	for _, topic := range topics {
		if err := r.conn.PublishTo(models.FrameSubscribe, topic, nil); err != nil {
			r.logger.Warn("subscription replay failed", "topic", topic, "error", err)
		}
	}
	if len(topics) > 0 {
		r.logger.Info("replayed subscriptions after reconnect", "count", len(topics))
	}
}
