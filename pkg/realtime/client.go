// Package realtime implements the Travel Buddy realtime client core:
// a single managed broker connection, topic subscription bookkeeping,
// and per-conversation chat, presence and poll state. The package
// renders nothing; UI layers consume the derived read views and issue
// action calls.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xhist/travel-buddy-client-sub000/internal/auth"
	"github.com/xhist/travel-buddy-client-sub000/internal/backoff"
	"github.com/xhist/travel-buddy-client-sub000/internal/config"
	"github.com/xhist/travel-buddy-client-sub000/internal/observability"
	"github.com/xhist/travel-buddy-client-sub000/pkg/history"
	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// UpdateFunc is invoked after inbound events change a conversation's
// state, so the UI can re-render. It runs on the connection goroutine
// and must not block.
type UpdateFunc func(conversationID string)

// ConversationKind distinguishes group rooms from private chats.
type ConversationKind string

const (
	ConversationRoom    ConversationKind = "room"
	ConversationPrivate ConversationKind = "private"
)

// Conversation bundles the state containers of one group room or
// private chat. Fields are safe for concurrent reads.
type Conversation struct {
	ID       string
	Kind     ConversationKind
	Store    *MessageStore
	Presence *PresenceTracker
	Polls    *PollAggregator

	pager   *history.Pager
	handles []*SubscriptionHandle
}

// Client is the facade tying the realtime core together: it owns the
// connection, the subscription registry, the typing notifier and all
// open conversations.
type Client struct {
	cfg      *config.Config
	userID   string
	conn     *ConnectionManager
	registry *SubscriptionRegistry
	typing   *TypingNotifier
	fetcher  *history.Fetcher
	logger   *observability.Logger
	metrics  *observability.Metrics
	onUpdate UpdateFunc

	// clientTransport, when set by an option, replaces the websocket
	// transport; tests inject an in-memory fake this way.
	clientTransport Transport

	mu             sync.Mutex
	conversations  map[string]*Conversation
	globalPresence *PresenceTracker
	globalHandle   *SubscriptionHandle
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client and its components.
func WithLogger(logger *observability.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithUpdateFunc registers the UI re-render hook.
func WithUpdateFunc(fn UpdateFunc) ClientOption {
	return func(c *Client) {
		c.onUpdate = fn
	}
}

// withClientTransport injects a fake transport; used by tests.
func withClientTransport(t Transport) ClientOption {
	return func(c *Client) {
		c.clientTransport = t
	}
}

// NewClient builds a client from configuration. The credential is
// threaded into the broker handshake and every REST call; nothing is
// read from ambient storage.
func NewClient(cfg *config.Config, cred *auth.Credential, userID string, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("realtime: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("realtime: user id is required")
	}

	c := &Client{
		cfg:            cfg,
		userID:         userID,
		logger:         observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format}),
		conversations:  make(map[string]*Conversation),
		globalPresence: NewPresenceTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}

	policy := backoff.Policy{
		InitialMs: float64(cfg.Broker.ReconnectDelayMs),
		MaxMs:     float64(cfg.Broker.ReconnectDelayMs),
		Factor:    1,
	}
	if cfg.Broker.ExponentialReconnect {
		policy = backoff.DefaultPolicy()
		policy.InitialMs = float64(cfg.Broker.ReconnectDelayMs)
	}

	connOpts := []ConnectionOption{
		WithConnectionLogger(c.logger),
		WithConnectionMetrics(c.metrics),
		WithReconnectPolicy(policy),
		WithMaxReconnectAttempts(cfg.Broker.MaxReconnectAttempts),
	}
	if c.clientTransport != nil {
		connOpts = append(connOpts, WithTransport(c.clientTransport))
	} else {
		connOpts = append(connOpts, WithTransport(NewWebsocketTransport(cfg.HeartbeatInterval(), time.Duration(cfg.Broker.WriteTimeoutMs)*time.Millisecond)))
	}
	c.conn = NewConnectionManager(cfg.Broker.Endpoint, cred, connOpts...)
	c.registry = NewSubscriptionRegistry(c.conn, WithRegistryLogger(c.logger), WithRegistryMetrics(c.metrics))
	c.typing = NewTypingNotifier(c.conn, userID, cfg.TypingDebounce(), c.logger)

	if cfg.History.BaseURL != "" {
		c.fetcher = history.NewFetcher(
			cfg.History.BaseURL,
			cred,
			history.WithPageSize(cfg.History.PageSize),
			history.WithRetries(cfg.History.FetchRetries),
			history.WithHTTPClientTimeout(cfg.FetchTimeout()),
			history.WithFetcherLogger(c.logger),
			history.WithFetcherMetrics(c.metrics),
		)
	}

	// After every (re)connect: refresh the global roster and re-join
	// open rooms so the server re-emits their snapshots.
	c.conn.OnStatusChange(func(status models.ConnectionStatus) {
		if status != models.StatusConnected {
			return
		}
		c.onConnected()
	})

	return c, nil
}

// Connect subscribes the global presence topic and starts the broker
// link. It returns once the connection attempt is underway; progress
// is observed via OnStatusChange.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.globalHandle == nil {
		router := NewRouter(nil, c.globalPresence, nil, c.logger, c.metrics)
		handle, err := c.registry.Subscribe(TopicPresenceGlobal, c.wrapHandler("", router))
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.globalHandle = handle
	}
	c.mu.Unlock()
	return c.conn.Connect(ctx)
}

// Close tears everything down: typing publishes are discarded and the
// broker link is disconnected without further reconnects.
func (c *Client) Close() {
	c.typing.Stop()
	c.conn.Disconnect()
}

// Status returns the broker connection status.
func (c *Client) Status() models.ConnectionStatus {
	return c.conn.Status()
}

// OnStatusChange registers a connection status listener.
func (c *Client) OnStatusChange(fn StatusListener) {
	c.conn.OnStatusChange(fn)
}

// GlobalPresence returns the global online-user roster.
func (c *Client) GlobalPresence() *PresenceTracker {
	return c.globalPresence
}

// JoinRoom opens a group conversation: it subscribes the room's data
// topics first and only then publishes the join control frame, so the
// server snapshot cannot race past an inactive subscription. Calling
// JoinRoom for an already open room returns the existing conversation.
func (c *Client) JoinRoom(roomID string) (*Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conv, ok := c.conversations[roomID]; ok && conv.Kind == ConversationRoom {
		return conv, nil
	}

	conv := &Conversation{
		ID:       roomID,
		Kind:     ConversationRoom,
		Store:    NewMessageStore(),
		Presence: NewPresenceTracker(),
		Polls:    NewPollAggregator(c.logger),
	}
	router := NewRouter(conv.Store, conv.Presence, conv.Polls, c.logger, c.metrics)
	handler := c.wrapHandler(roomID, router)

	topics := []string{
		RoomMessagesTopic(roomID),
		RoomPresenceTopic(roomID),
		RoomPollsTopic(roomID),
		RoomTypingTopic(roomID),
	}
	for _, topic := range topics {
		handle, err := c.registry.Subscribe(topic, handler)
		if err != nil {
			for _, h := range conv.handles {
				c.registry.Unsubscribe(h)
			}
			return nil, err
		}
		conv.handles = append(conv.handles, handle)
	}

	if c.fetcher != nil {
		conv.pager = history.NewPager(c.fetcher, roomID)
	}
	c.conversations[roomID] = conv

	// Join after subscribing. While disconnected this fails quietly;
	// the connected hook re-joins every open room.
	if err := c.registry.JoinRoom(roomID); err != nil && !IsNotConnected(err) {
		c.logger.Warn("room join publish failed", "room_id", roomID, "error", err)
	}
	return conv, nil
}

// LeaveRoom closes a group conversation and discards its state.
// Frames already queued for delivery may still arrive briefly; the
// registry drops them once the topics are unsubscribed.
func (c *Client) LeaveRoom(roomID string) {
	c.mu.Lock()
	conv, ok := c.conversations[roomID]
	if !ok || conv.Kind != ConversationRoom {
		c.mu.Unlock()
		return
	}
	delete(c.conversations, roomID)
	c.mu.Unlock()

	if err := c.registry.LeaveRoom(roomID); err != nil && !IsNotConnected(err) {
		c.logger.Warn("room leave publish failed", "room_id", roomID, "error", err)
	}
	for _, h := range conv.handles {
		c.registry.Unsubscribe(h)
	}
}

// OpenPrivate opens (or returns) the private conversation with peer.
// Both sides derive the same pair identifier regardless of order.
func (c *Client) OpenPrivate(peerID string) (*Conversation, error) {
	pairID := PrivatePairID(c.userID, peerID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if conv, ok := c.conversations[pairID]; ok && conv.Kind == ConversationPrivate {
		return conv, nil
	}

	conv := &Conversation{
		ID:    pairID,
		Kind:  ConversationPrivate,
		Store: NewMessageStore(),
	}
	router := NewRouter(conv.Store, nil, nil, c.logger, c.metrics)
	handle, err := c.registry.Subscribe(PrivateTopic(pairID), c.wrapHandler(pairID, router))
	if err != nil {
		return nil, err
	}
	conv.handles = []*SubscriptionHandle{handle}
	if c.fetcher != nil {
		conv.pager = history.NewPager(c.fetcher, pairID)
	}
	c.conversations[pairID] = conv
	return conv, nil
}

// ClosePrivate closes the private conversation with peer.
func (c *Client) ClosePrivate(peerID string) {
	pairID := PrivatePairID(c.userID, peerID)

	c.mu.Lock()
	conv, ok := c.conversations[pairID]
	if !ok || conv.Kind != ConversationPrivate {
		c.mu.Unlock()
		return
	}
	delete(c.conversations, pairID)
	c.mu.Unlock()

	for _, h := range conv.handles {
		c.registry.Unsubscribe(h)
	}
}

// Conversation returns an open conversation by identifier.
func (c *Client) Conversation(id string) (*Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.conversations[id]
	return conv, ok
}

// SendRoomMessage publishes a text message to a room and inserts it
// locally. The server echo on the message topic deduplicates against
// the local insert by identifier. Fails fast while disconnected.
func (c *Client) SendRoomMessage(roomID, content string) (models.Message, error) {
	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: roomID,
		SenderID:       c.userID,
		Type:           models.MessageText,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
	if err := c.conn.PublishTo(models.FrameMessage, RoomMessagesTopic(roomID), msg); err != nil {
		return models.Message{}, err
	}
	if conv, ok := c.Conversation(roomID); ok {
		conv.Store.Prepend(msg)
		c.notify(roomID)
	}
	return msg, nil
}

// SendPrivateMessage publishes a private message to a peer.
func (c *Client) SendPrivateMessage(peerID, content string) (models.Message, error) {
	pairID := PrivatePairID(c.userID, peerID)
	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: pairID,
		SenderID:       c.userID,
		Type:           models.MessagePrivate,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
	if err := c.conn.PublishTo(models.FrameMessage, PrivateTopic(pairID), msg); err != nil {
		return models.Message{}, err
	}
	if conv, ok := c.Conversation(pairID); ok {
		conv.Store.Prepend(msg)
		c.notify(pairID)
	}
	return msg, nil
}

// React publishes a reaction to a room message and merges it locally.
func (c *Client) React(roomID, messageID, kind string) error {
	event := models.ReactionEvent{
		MessageID: messageID,
		Reaction:  models.Reaction{Kind: kind, UserID: c.userID},
	}
	if err := c.conn.PublishTo(models.FrameReaction, RoomMessagesTopic(roomID), event); err != nil {
		return err
	}
	if conv, ok := c.Conversation(roomID); ok {
		conv.Store.AddReaction(messageID, event.Reaction)
		c.notify(roomID)
	}
	return nil
}

// CreatePoll publishes a new single-choice poll to a room.
func (c *Client) CreatePoll(roomID, question string, optionLabels []string) (models.Poll, error) {
	poll := models.Poll{
		ID:        uuid.NewString(),
		Question:  question,
		CreatorID: c.userID,
		Options:   make([]models.PollOption, len(optionLabels)),
	}
	for i, label := range optionLabels {
		poll.Options[i] = models.PollOption{ID: uuid.NewString(), Label: label}
	}
	if err := c.conn.PublishTo(models.FramePollCreate, RoomPollsTopic(roomID), poll); err != nil {
		return models.Poll{}, err
	}
	if conv, ok := c.Conversation(roomID); ok && conv.Polls != nil {
		conv.Polls.CreatePoll(poll)
		c.notify(roomID)
	}
	return poll, nil
}

// Vote casts the local user's vote. The client-side rules (single
// choice, finalized rejection) run first for responsiveness; on
// success the vote is published and the server's poll_update frame
// later reconciles authoritative state.
func (c *Client) Vote(roomID, pollID, optionID string) error {
	conv, ok := c.Conversation(roomID)
	if !ok || conv.Polls == nil {
		return NewError(ErrCodeNotFound, fmt.Sprintf("room %q is not open", roomID), nil)
	}
	if err := conv.Polls.Vote(pollID, optionID, c.userID); err != nil {
		return err
	}
	c.notify(roomID)
	event := models.VoteEvent{PollID: pollID, OptionID: optionID, UserID: c.userID}
	return c.conn.PublishTo(models.FramePollVote, RoomPollsTopic(roomID), event)
}

// EditPoll replaces the question and options of an open poll as the
// local user; votes survive for options whose identifiers are kept.
// The full edited poll is published so every client converges.
func (c *Client) EditPoll(roomID, pollID, question string, options []models.PollOption) error {
	conv, ok := c.Conversation(roomID)
	if !ok || conv.Polls == nil {
		return NewError(ErrCodeNotFound, fmt.Sprintf("room %q is not open", roomID), nil)
	}
	if err := conv.Polls.Edit(pollID, c.userID, question, options); err != nil {
		return err
	}
	c.notify(roomID)
	poll, _ := conv.Polls.Get(pollID)
	return c.conn.PublishTo(models.FramePollUpdate, RoomPollsTopic(roomID), poll)
}

// FinalizePoll finalizes a poll as the local user.
func (c *Client) FinalizePoll(roomID, pollID string) error {
	conv, ok := c.Conversation(roomID)
	if !ok || conv.Polls == nil {
		return NewError(ErrCodeNotFound, fmt.Sprintf("room %q is not open", roomID), nil)
	}
	if err := conv.Polls.Finalize(pollID, c.userID); err != nil {
		return err
	}
	c.notify(roomID)
	event := models.PollFinalizeEvent{PollID: pollID, ActorID: c.userID}
	return c.conn.PublishTo(models.FramePollFinalize, RoomPollsTopic(roomID), event)
}

// SetTyping records the local user's typing state for a room. The
// outbound publish is debounced.
func (c *Client) SetTyping(roomID string, typing bool) {
	c.typing.SetTyping(roomID, typing)
}

// LoadOlderMessages fetches the next older history page into the
// conversation's store and returns it (older-first). An empty result
// with nil error means the history is exhausted. Failures carry
// ErrCodePaginationFetch and are retryable.
func (c *Client) LoadOlderMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	conv, ok := c.Conversation(conversationID)
	if !ok {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("conversation %q is not open", conversationID), nil)
	}
	if conv.pager == nil {
		return nil, NewError(ErrCodeInternal, "history backend is not configured", nil)
	}

	page, err := conv.pager.NextPage(ctx)
	if err != nil {
		return nil, ErrPaginationFetch(err)
	}
	conv.Store.AppendPage(page)
	if len(page) > 0 {
		c.notify(conversationID)
	}
	return page, nil
}

// onConnected refreshes server-side state after a (re)connect.
func (c *Client) onConnected() {
	if err := c.conn.PublishTo(models.FrameSubscribe, TopicPresenceFetch, nil); err != nil {
		c.logger.Warn("presence fetch request failed", "error", err)
	}

	c.mu.Lock()
	roomIDs := make([]string, 0, len(c.conversations))
	for id, conv := range c.conversations {
		if conv.Kind == ConversationRoom {
			roomIDs = append(roomIDs, id)
		}
	}
	c.mu.Unlock()

	for _, roomID := range roomIDs {
		if err := c.registry.JoinRoom(roomID); err != nil {
			c.logger.Warn("room re-join failed after reconnect", "room_id", roomID, "error", err)
		}
	}
}

// wrapHandler routes frames for a conversation and fires the UI
// update hook afterwards.
func (c *Client) wrapHandler(conversationID string, router *Router) Handler {
	inner := router.Handler()
	return func(frame *models.Frame) {
		inner(frame)
		c.notify(conversationID)
	}
}

// notify fires the UI update hook if one is registered.
func (c *Client) notify(conversationID string) {
	if c.onUpdate != nil {
		c.onUpdate(conversationID)
	}
}
