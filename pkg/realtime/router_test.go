package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

func routerFixture() (*Router, *MessageStore, *PresenceTracker, *PollAggregator) {
	store := NewMessageStore()
	presence := NewPresenceTracker()
	polls := NewPollAggregator(nil)
	return NewRouter(store, presence, polls, nil, nil), store, presence, polls
}

func mustFrame(t *testing.T, ft models.FrameType, topic string, payload any) *models.Frame {
	t.Helper()
	frame, err := models.NewFrame(ft, topic, payload)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	return frame
}

func TestRouteMessageIntoStore(t *testing.T) {
	router, store, _, _ := routerFixture()

	msg := msgAt("m1", time.Now())
	if err := router.Route(mustFrame(t, models.FrameMessage, "room.r1.messages", msg)); err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("store Len = %d, want 1", store.Len())
	}
}

func TestRouteMalformedPayload(t *testing.T) {
	router, store, _, _ := routerFixture()

	frame := &models.Frame{
		Type:    models.FrameMessage,
		Topic:   "room.r1.messages",
		Payload: json.RawMessage(`{"id": 42}`),
	}
	if err := router.Route(frame); !IsMalformedFrame(err) {
		t.Fatalf("Route(bad payload) = %v, want MALFORMED_FRAME", err)
	}
	if store.Len() != 0 {
		t.Fatal("malformed frame mutated the store")
	}

	// The stream is unaffected; the next good frame routes normally.
	if err := router.Route(mustFrame(t, models.FrameMessage, "room.r1.messages", msgAt("m1", time.Now()))); err != nil {
		t.Fatalf("Route after malformed frame failed: %v", err)
	}
}

func TestRouteMessageWithoutIDIsMalformed(t *testing.T) {
	router, _, _, _ := routerFixture()

	frame := mustFrame(t, models.FrameMessage, "room.r1.messages", models.Message{Content: "no id"})
	if err := router.Route(frame); !IsMalformedFrame(err) {
		t.Fatalf("Route(message without id) = %v, want MALFORMED_FRAME", err)
	}
}

func TestRouteReaction(t *testing.T) {
	router, store, _, _ := routerFixture()
	store.Prepend(msgAt("m1", time.Now()))

	event := models.ReactionEvent{MessageID: "m1", Reaction: models.Reaction{Kind: "🎉", UserID: "bob"}}
	if err := router.Route(mustFrame(t, models.FrameReaction, "room.r1.messages", event)); err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	view := store.OrderedView()
	if !view[0].HasReaction("🎉", "bob") {
		t.Fatal("reaction was not applied")
	}

	// Reaction for an unloaded message is a silent drop.
	ghost := models.ReactionEvent{MessageID: "ghost", Reaction: models.Reaction{Kind: "🎉", UserID: "bob"}}
	if err := router.Route(mustFrame(t, models.FrameReaction, "room.r1.messages", ghost)); err != nil {
		t.Fatalf("Route(reaction for unloaded message) = %v, want nil", err)
	}
}

func TestRoutePresenceSnapshotAndDelta(t *testing.T) {
	router, _, presence, _ := routerFixture()

	snapshot := models.PresenceSnapshot{
		Scope:   "room.r1",
		Entries: []models.PresenceEntry{{UserID: "alice", Online: true}},
	}
	if err := router.Route(mustFrame(t, models.FramePresenceSnapshot, "room.r1.presence", snapshot)); err != nil {
		t.Fatalf("Route snapshot failed: %v", err)
	}
	if !presence.IsOnline("alice") {
		t.Fatal("snapshot was not applied")
	}

	delta := models.PresenceDelta{Scope: "room.r1", UserID: "alice", Online: false}
	if err := router.Route(mustFrame(t, models.FramePresenceDelta, "room.r1.presence", delta)); err != nil {
		t.Fatalf("Route delta failed: %v", err)
	}
	if presence.IsOnline("alice") {
		t.Fatal("offline delta was not applied")
	}
}

func TestRouteTypingImpliesOnline(t *testing.T) {
	router, _, presence, _ := routerFixture()

	event := models.TypingEvent{RoomID: "r1", UserID: "bob", Typing: true}
	if err := router.Route(mustFrame(t, models.FrameTyping, "room.r1.typing", event)); err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if typing := presence.TypingUsers(); len(typing) != 1 || typing[0] != "bob" {
		t.Fatalf("TypingUsers = %v, want [bob]", typing)
	}
	if !presence.IsOnline("bob") {
		t.Fatal("typing event did not mark the user online")
	}
}

func TestRoutePollLifecycle(t *testing.T) {
	router, _, _, polls := routerFixture()

	if err := router.Route(mustFrame(t, models.FramePollCreate, "room.r1.polls", dinnerPoll())); err != nil {
		t.Fatalf("Route create failed: %v", err)
	}

	updated := dinnerPoll()
	updated.Options[0].Voters = []string{"bob"}
	if err := router.Route(mustFrame(t, models.FramePollUpdate, "room.r1.polls", updated)); err != nil {
		t.Fatalf("Route update failed: %v", err)
	}

	finalized := updated
	finalized.Finalized = true
	if err := router.Route(mustFrame(t, models.FramePollFinalize, "room.r1.polls", finalized)); err != nil {
		t.Fatalf("Route finalize failed: %v", err)
	}

	poll, ok := polls.Get("p1")
	if !ok || !poll.Finalized || !poll.Options[0].HasVoter("bob") {
		t.Fatalf("poll state = %+v, %v", poll, ok)
	}
}

func TestRouteUnknownTypeIgnored(t *testing.T) {
	router, _, _, _ := routerFixture()
	frame := &models.Frame{Type: "hologram", Topic: "room.r1.messages"}
	if err := router.Route(frame); err != nil {
		t.Fatalf("Route(unknown type) = %v, want nil", err)
	}
}

func TestRouteNilContainersTolerated(t *testing.T) {
	router := NewRouter(nil, nil, nil, nil, nil)
	if err := router.Route(mustFrame(t, models.FrameMessage, "room.r1.messages", msgAt("m1", time.Now()))); err != nil {
		t.Fatalf("Route with nil store = %v, want nil", err)
	}
}
