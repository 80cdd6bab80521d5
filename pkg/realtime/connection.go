package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/xhist/travel-buddy-client-sub000/internal/auth"
	"github.com/xhist/travel-buddy-client-sub000/internal/backoff"
	"github.com/xhist/travel-buddy-client-sub000/internal/observability"
	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// StatusListener is notified on every connection status transition.
type StatusListener func(status models.ConnectionStatus)

// FrameHandler receives every inbound frame from the broker link.
type FrameHandler func(frame *models.Frame)

// ConnectionManager owns the single logical broker connection for an
// endpoint. All other components hold only its status signal and its
// publish capability; no component may dial the broker directly.
//
// Transport loss triggers automatic reconnection after a delay
// (default: fixed 5s, unbounded attempts). An explicit Disconnect
// stops the manager and no automatic reconnect follows it.
type ConnectionManager struct {
	endpoint  string
	cred      *auth.Credential
	transport Transport
	logger    *observability.Logger
	metrics   *observability.Metrics
	policy    backoff.Policy

	// maxAttempts caps consecutive failed reconnects. 0 means retry
	// forever, mirroring the product's current behavior.
	maxAttempts int

	mu        sync.Mutex
	status    models.ConnectionStatus
	conn      Conn
	listeners []StatusListener
	handler   FrameHandler
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// ConnectionOption configures a ConnectionManager.
type ConnectionOption func(*ConnectionManager)

// WithTransport substitutes the broker transport. Tests use this to
// inject an in-memory fake.
func WithTransport(t Transport) ConnectionOption {
	return func(c *ConnectionManager) {
		c.transport = t
	}
}

// WithConnectionLogger sets the logger.
func WithConnectionLogger(logger *observability.Logger) ConnectionOption {
	return func(c *ConnectionManager) {
		c.logger = logger
	}
}

// WithConnectionMetrics sets the metrics collector.
func WithConnectionMetrics(m *observability.Metrics) ConnectionOption {
	return func(c *ConnectionManager) {
		c.metrics = m
	}
}

// WithReconnectPolicy replaces the fixed 5s reconnect delay.
func WithReconnectPolicy(policy backoff.Policy) ConnectionOption {
	return func(c *ConnectionManager) {
		c.policy = policy
	}
}

// WithMaxReconnectAttempts caps consecutive reconnect attempts.
// Zero keeps the unbounded default.
func WithMaxReconnectAttempts(n int) ConnectionOption {
	return func(c *ConnectionManager) {
		c.maxAttempts = n
	}
}

// NewConnectionManager creates a manager for one broker endpoint. The
// credential is attached to the websocket handshake and to every
// published frame.
func NewConnectionManager(endpoint string, cred *auth.Credential, opts ...ConnectionOption) *ConnectionManager {
	c := &ConnectionManager{
		endpoint:  endpoint,
		cred:      cred,
		transport: NewWebsocketTransport(0, 0),
		logger:    observability.NewLogger(observability.LogConfig{}),
		policy:    backoff.FixedReconnectPolicy(),
		status:    models.StatusDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the broker endpoint this manager owns.
func (c *ConnectionManager) Endpoint() string {
	return c.endpoint
}

// Status returns the current connection status.
func (c *ConnectionManager) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// OnStatusChange registers a listener for status transitions.
// Listeners are invoked synchronously from the connection goroutine
// and must not block.
func (c *ConnectionManager) OnStatusChange(fn StatusListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// OnFrame sets the handler for inbound frames. Must be called before
// Connect; the SubscriptionRegistry is the expected owner.
func (c *ConnectionManager) OnFrame(handler FrameHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Connect begins the asynchronous handshake. It is idempotent: a
// second call while the manager is connecting or connected is a
// no-op. The returned error covers setup only; connection progress is
// observed through OnStatusChange.
func (c *ConnectionManager) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.run(runCtx, done)
	return nil
}

// run is the connection goroutine: dial, handshake, read until the
// link drops, then wait out the reconnect delay and repeat.
func (c *ConnectionManager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	attempt := 0
	for {
		if ctx.Err() != nil {
			c.setStatus(models.StatusDisconnected)
			return
		}
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.ReconnectAttempts.Inc()
			}
			if c.maxAttempts > 0 && attempt > c.maxAttempts {
				c.logger.Error("giving up on broker reconnect", "endpoint", c.endpoint, "attempts", attempt-1)
				c.setStatus(models.StatusDisconnected)
				return
			}
			delay := backoff.Compute(c.policy, attempt)
			c.logger.Info("reconnecting to broker", "attempt", attempt, "delay", delay.String())
			select {
			case <-ctx.Done():
				c.setStatus(models.StatusDisconnected)
				return
			case <-time.After(delay):
			}
		}

		c.setStatus(models.StatusConnecting)
		conn, err := c.transport.Dial(ctx, c.endpoint, c.authHeader())
		if err != nil {
			c.logger.Warn("broker dial failed", "endpoint", c.endpoint, "error", err)
			attempt++
			continue
		}
		if err := c.handshake(conn); err != nil {
			c.logger.Warn("broker handshake failed", "error", err)
			conn.Close()
			attempt++
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		attempt = 0
		c.setStatus(models.StatusConnected)

		err = c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()

		if ctx.Err() != nil {
			c.setStatus(models.StatusDisconnected)
			return
		}
		c.logger.Warn("broker link lost", "error", err)
		attempt = 1
	}
}

// handshake sends the connect frame carrying the credential.
func (c *ConnectionManager) handshake(conn Conn) error {
	frame := &models.Frame{Type: models.FrameConnect}
	c.attachAuth(frame)
	return conn.WriteFrame(frame)
}

// readLoop reads frames until the transport fails. Malformed frames
// are dropped and logged; one bad message never breaks the stream.
func (c *ConnectionManager) readLoop(conn Conn) error {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if IsMalformedFrame(err) {
				c.logger.Warn("dropping malformed frame", "error", err)
				if c.metrics != nil {
					c.metrics.FramesDropped.WithLabelValues("malformed").Inc()
				}
				continue
			}
			return err
		}
		if c.metrics != nil {
			c.metrics.FramesReceived.WithLabelValues(string(frame.Type)).Inc()
		}
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(frame)
		}
	}
}

// Publish sends a frame to the broker with the credential injected.
// It fails with an ErrCodeNotConnected error when the link is not
// connected; sends are never buffered while disconnected.
func (c *ConnectionManager) Publish(frame *models.Frame) error {
	c.mu.Lock()
	conn := c.conn
	status := c.status
	c.mu.Unlock()

	if status != models.StatusConnected || conn == nil {
		if c.metrics != nil {
			c.metrics.PublishCounter.WithLabelValues("not_connected").Inc()
		}
		return ErrNotConnected(c.endpoint)
	}

	c.attachAuth(frame)
	if err := conn.WriteFrame(frame); err != nil {
		if c.metrics != nil {
			c.metrics.PublishCounter.WithLabelValues("error").Inc()
		}
		return err
	}
	if c.metrics != nil {
		c.metrics.PublishCounter.WithLabelValues("ok").Inc()
	}
	return nil
}

// PublishTo builds a frame for the topic and publishes it.
func (c *ConnectionManager) PublishTo(ft models.FrameType, topic string, payload any) error {
	frame, err := models.NewFrame(ft, topic, payload)
	if err != nil {
		return err
	}
	return c.Publish(frame)
}

// Disconnect tears down the transport and stops reconnection. The
// status becomes disconnected; a later Connect starts fresh.
func (c *ConnectionManager) Disconnect() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	cancel()
	if conn != nil {
		conn.Close()
	}
	<-done
}

// authHeader builds the websocket handshake header.
func (c *ConnectionManager) authHeader() http.Header {
	header := http.Header{}
	if c.cred != nil {
		header.Set("Authorization", c.cred.AuthorizationHeader())
	}
	return header
}

// attachAuth injects the credential into a frame's headers.
func (c *ConnectionManager) attachAuth(frame *models.Frame) {
	if c.cred == nil {
		return
	}
	if frame.Headers == nil {
		frame.Headers = make(map[string]string, 1)
	}
	frame.Headers["authorization"] = c.cred.AuthorizationHeader()
}

// setStatus records a transition and notifies listeners.
func (c *ConnectionManager) setStatus(status models.ConnectionStatus) {
	c.mu.Lock()
	if c.status == status {
		c.mu.Unlock()
		return
	}
	c.status = status
	listeners := make([]StatusListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}
