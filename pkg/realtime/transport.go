package realtime

import (
	"context"
	"net/http"

	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// Conn is one established transport connection to the broker.
// Implementations own heartbeats; a missed heartbeat surfaces as a
// read error, never as a separate signal.
type Conn interface {
	// ReadFrame blocks until a frame arrives. A frame that fails to
	// parse returns an error satisfying IsMalformedFrame; the
	// connection remains usable and the caller should read again.
	// Any other error means the transport is dead.
	ReadFrame() (*models.Frame, error)

	// WriteFrame sends one frame.
	WriteFrame(frame *models.Frame) error

	// Close tears the connection down.
	Close() error
}

// Transport dials broker endpoints. The production implementation is
// WebsocketTransport; tests substitute an in-memory fake.
type Transport interface {
	Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error)
}
