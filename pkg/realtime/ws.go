package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

const (
	defaultHandshakeTimeout  = 10 * time.Second
	defaultHeartbeatInterval = 4 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	wsMaxPayloadBytes        = 1 << 20
)

// WebsocketTransport dials the broker over websocket with JSON frames
// and protocol-level heartbeats (ping/pong).
type WebsocketTransport struct {
	// HandshakeTimeout bounds the websocket handshake. Default: 10s.
	HandshakeTimeout time.Duration

	// HeartbeatInterval is the outgoing ping interval; the read
	// deadline allows three missed heartbeats. Default: 4s.
	HeartbeatInterval time.Duration

	// WriteTimeout bounds a single frame write. Default: 10s.
	WriteTimeout time.Duration
}

// NewWebsocketTransport returns a transport with the given heartbeat
// interval and write timeout; zero values use defaults.
func NewWebsocketTransport(heartbeatInterval, writeTimeout time.Duration) *WebsocketTransport {
	return &WebsocketTransport{
		HeartbeatInterval: heartbeatInterval,
		WriteTimeout:      writeTimeout,
	}
}

// Dial establishes a websocket connection to endpoint. The header
// carries the Authorization bearer credential for the handshake.
func (t *WebsocketTransport) Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error) {
	handshake := t.HandshakeTimeout
	if handshake <= 0 {
		handshake = defaultHandshakeTimeout
	}
	heartbeat := t.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	writeTimeout := t.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshake,
		ReadBufferSize:   8192,
		WriteBufferSize:  8192,
	}
	ws, resp, err := dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	ws.SetReadLimit(wsMaxPayloadBytes)
	pongWait := 3 * heartbeat
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &wsConn{
		ws:           ws,
		writeTimeout: writeTimeout,
		pongWait:     pongWait,
		stopCh:       make(chan struct{}),
	}
	go c.pingLoop(heartbeat)
	return c, nil
}

// wsConn wraps a gorilla websocket connection. Writes are serialized
// because gorilla permits at most one concurrent writer.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	pongWait     time.Duration

	writeMu  sync.Mutex
	stopOnce sync.Once
	stopCh   chan struct{}
}

// pingLoop sends protocol pings at the heartbeat interval until the
// connection closes.
func (c *wsConn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// ReadFrame reads and decodes one frame. Malformed JSON is reported
// via an ErrCodeMalformedFrame error with the connection left intact.
func (c *wsConn) ReadFrame() (*models.Frame, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	frame := &models.Frame{}
	if err := json.Unmarshal(data, frame); err != nil {
		return nil, ErrMalformedFrame(err)
	}
	if frame.Type == "" {
		return nil, ErrMalformedFrame(nil).WithContext("reason", "missing frame type")
	}
	return frame, nil
}

// WriteFrame encodes and sends one frame.
func (c *wsConn) WriteFrame(frame *models.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close message and tears down the connection.
func (c *wsConn) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.writeMu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return c.ws.Close()
}
