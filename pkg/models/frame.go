package models

import "encoding/json"

// FrameType identifies the kind of event carried by a broker frame.
type FrameType string

const (
	FrameMessage          FrameType = "message"
	FrameReaction         FrameType = "reaction"
	FramePollCreate       FrameType = "poll_create"
	FramePollUpdate       FrameType = "poll_update"
	FramePollVote         FrameType = "poll_vote"
	FramePollFinalize     FrameType = "poll_finalize"
	FramePresenceSnapshot FrameType = "presence_snapshot"
	FramePresenceDelta    FrameType = "presence_delta"
	FrameTyping           FrameType = "typing"
	FrameJoin             FrameType = "join"
	FrameLeave            FrameType = "leave"
	FrameConnect          FrameType = "connect"
	FrameConnected        FrameType = "connected"
	FrameSubscribe        FrameType = "subscribe"
	FrameUnsubscribe      FrameType = "unsubscribe"
)

// Frame is one message unit exchanged over the broker connection.
// Topic addresses the destination; Payload carries the event body and
// is decoded according to Type.
type Frame struct {
	Type    FrameType         `json:"type"`
	Topic   string            `json:"topic,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Payload json.RawMessage   `json:"payload,omitempty"`
	Seq     int64             `json:"seq,omitempty"`
}

// NewFrame builds a frame with a JSON-encoded payload. It returns an
// error if the payload cannot be marshaled.
func NewFrame(ft FrameType, topic string, payload any) (*Frame, error) {
	f := &Frame{Type: ft, Topic: topic}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		f.Payload = raw
	}
	return f, nil
}
