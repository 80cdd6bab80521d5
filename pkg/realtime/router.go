package realtime

import (
	"encoding/json"

	"github.com/xhist/travel-buddy-client-sub000/internal/observability"
	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// Router decodes inbound frames and applies them to one
// conversation's state containers. Decode failures return an
// ErrCodeMalformedFrame error; the caller drops the frame and the
// stream continues.
type Router struct {
	store    *MessageStore
	presence *PresenceTracker
	polls    *PollAggregator
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewRouter creates a router over the given state containers. Any of
// them may be nil when the conversation does not track that concern.
func NewRouter(store *MessageStore, presence *PresenceTracker, polls *PollAggregator, logger *observability.Logger, metrics *observability.Metrics) *Router {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Router{
		store:    store,
		presence: presence,
		polls:    polls,
		logger:   logger,
		metrics:  metrics,
	}
}

// Route applies one frame. Unknown frame types are ignored so newer
// servers can add event kinds without breaking older clients.
func (r *Router) Route(frame *models.Frame) error {
	switch frame.Type {
	case models.FrameMessage:
		return r.routeMessage(frame)
	case models.FrameReaction:
		return r.routeReaction(frame)
	case models.FramePollCreate:
		return r.routePollCreate(frame)
	case models.FramePollUpdate, models.FramePollFinalize:
		return r.routePollUpdate(frame)
	case models.FramePresenceSnapshot:
		return r.routePresenceSnapshot(frame)
	case models.FramePresenceDelta:
		return r.routePresenceDelta(frame)
	case models.FrameTyping:
		return r.routeTyping(frame)
	default:
		r.logger.Debug("ignoring frame of unknown type", "type", string(frame.Type), "topic", frame.Topic)
		return nil
	}
}

// Handler returns a subscription handler that routes frames and
// swallows malformed payloads after logging and counting them, per
// the drop-and-continue policy.
func (r *Router) Handler() Handler {
	return func(frame *models.Frame) {
		if err := r.Route(frame); err != nil {
			r.logger.Warn("dropping unroutable frame", "topic", frame.Topic, "type", string(frame.Type), "error", err)
			if r.metrics != nil {
				r.metrics.FramesDropped.WithLabelValues("malformed").Inc()
			}
		}
	}
}

func (r *Router) routeMessage(frame *models.Frame) error {
	if r.store == nil {
		return nil
	}
	var msg models.Message
	if err := json.Unmarshal(frame.Payload, &msg); err != nil {
		return ErrMalformedFrame(err)
	}
	if msg.ID == "" {
		return ErrMalformedFrame(nil).WithContext("reason", "message without identifier")
	}
	r.store.Prepend(msg)
	return nil
}

func (r *Router) routeReaction(frame *models.Frame) error {
	if r.store == nil {
		return nil
	}
	var event models.ReactionEvent
	if err := json.Unmarshal(frame.Payload, &event); err != nil {
		return ErrMalformedFrame(err)
	}
	// Reactions for unloaded messages are dropped silently; the
	// message may be further back than what this client has paged in.
	r.store.AddReaction(event.MessageID, event.Reaction)
	return nil
}

func (r *Router) routePollCreate(frame *models.Frame) error {
	if r.polls == nil {
		return nil
	}
	var poll models.Poll
	if err := json.Unmarshal(frame.Payload, &poll); err != nil {
		return ErrMalformedFrame(err)
	}
	r.polls.CreatePoll(poll)
	return nil
}

func (r *Router) routePollUpdate(frame *models.Frame) error {
	if r.polls == nil {
		return nil
	}
	var poll models.Poll
	if err := json.Unmarshal(frame.Payload, &poll); err != nil {
		return ErrMalformedFrame(err)
	}
	r.polls.Apply(poll)
	return nil
}

func (r *Router) routePresenceSnapshot(frame *models.Frame) error {
	if r.presence == nil {
		return nil
	}
	var snapshot models.PresenceSnapshot
	if err := json.Unmarshal(frame.Payload, &snapshot); err != nil {
		return ErrMalformedFrame(err)
	}
	r.presence.ApplySnapshot(snapshot.Entries)
	return nil
}

func (r *Router) routePresenceDelta(frame *models.Frame) error {
	if r.presence == nil {
		return nil
	}
	var delta models.PresenceDelta
	if err := json.Unmarshal(frame.Payload, &delta); err != nil {
		return ErrMalformedFrame(err)
	}
	r.presence.ApplyDelta(delta.UserID, delta.Online, delta.Typing)
	return nil
}

func (r *Router) routeTyping(frame *models.Frame) error {
	if r.presence == nil {
		return nil
	}
	var event models.TypingEvent
	if err := json.Unmarshal(frame.Payload, &event); err != nil {
		return ErrMalformedFrame(err)
	}
	// A typing event implies the user is online in this scope.
	r.presence.ApplyDelta(event.UserID, true, event.Typing)
	return nil
}
