package realtime

import (
	"sort"
	"strings"
)

// Topic name conventions shared with the Travel Buddy backend. Room
// data topics carry chat events; the join/leave destinations are
// control topics that request a server-side snapshot.
const (
	// TopicPresenceGlobal carries the global online-user roster.
	TopicPresenceGlobal = "presence.global"

	// TopicPresenceFetch is the control destination requesting a
	// fresh global presence snapshot.
	TopicPresenceFetch = "presence.getOnlineUsers"
)

// RoomMessagesTopic returns the chat message topic for a room.
func RoomMessagesTopic(roomID string) string {
	return "room." + roomID + ".messages"
}

// RoomPresenceTopic returns the presence topic for a room.
func RoomPresenceTopic(roomID string) string {
	return "room." + roomID + ".presence"
}

// RoomPollsTopic returns the poll event topic for a room.
func RoomPollsTopic(roomID string) string {
	return "room." + roomID + ".polls"
}

// RoomTypingTopic returns the typing indicator topic for a room.
func RoomTypingTopic(roomID string) string {
	return "room." + roomID + ".typing"
}

// RoomJoinTopic returns the control destination for joining a room.
func RoomJoinTopic(roomID string) string {
	return "room." + roomID + ".join"
}

// RoomLeaveTopic returns the control destination for leaving a room.
func RoomLeaveTopic(roomID string) string {
	return "room." + roomID + ".leave"
}

// PrivatePairID returns the canonical conversation identifier for a
// private chat between two users. The identifier is order-independent
// so both sides derive the same topic.
func PrivatePairID(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// PrivateTopic returns the message topic for a private conversation.
func PrivateTopic(pairID string) string {
	return "private." + pairID
}
