package voicetranslate

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ============================================================================
// Configuration
// ============================================================================

// SessionState represents the realtime connection state.
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
	StateReconnecting SessionState = "reconnecting"
)

// Conn is the subset of the websocket connection the session drives.
// *websocket.Conn satisfies it.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// DialFunc opens the transport. Overridable for tests.
type DialFunc func(ctx context.Context, url string) (Conn, error)

func defaultDial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SessionConfig configures the realtime session.
type SessionConfig struct {
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int // 0 means the default; -1 means unlimited
	Dial                 DialFunc
}

func (c *SessionConfig) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = 1 * time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.Dial == nil {
		c.Dial = defaultDial
	}
}

// ============================================================================
// Reconnector
// ============================================================================

type reconnector struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	attempt     int
	connectedAt time.Time
}

func newReconnector(cfg *SessionConfig) *reconnector {
	return &reconnector{
		baseDelay:   cfg.ReconnectBaseDelay,
		maxDelay:    cfg.ReconnectMaxDelay,
		maxAttempts: cfg.MaxReconnectAttempts,
	}
}

func (r *reconnector) shouldReconnect() bool {
	return r.maxAttempts < 0 || r.attempt < r.maxAttempts
}

func (r *reconnector) markConnected() {
	r.connectedAt = time.Now()
}

func (r *reconnector) nextDelay() time.Duration {
	if !r.connectedAt.IsZero() && time.Since(r.connectedAt) > 60*time.Second {
		r.attempt = 0
	}
	jitter := time.Duration(rand.Float64() * float64(r.baseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(r.baseDelay)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(r.maxDelay),
	))
	r.attempt++
	return delay
}

// ============================================================================
// Session
// ============================================================================

// Session owns the single persistent realtime connection and the derived
// state it feeds. At most one transport handle exists at a time; Connect is
// idempotent and Disconnect suppresses any automatic reconnection.
//
// A Session is an explicitly owned resource: create it, Connect it with a
// context tied to the owning scope, and Disconnect it when that scope ends.
type Session struct {
	client *Client
	cfg    SessionConfig
	log    *zap.Logger

	dispatcher *dispatcher

	// Derived state stores maintained by built-in event handlers.
	Chats   *ChatStore
	Friends *FriendStore
	Calls   *CallStore

	mu             sync.Mutex
	state          SessionState
	conn           Conn
	runCtx         context.Context
	cancelRead     context.CancelFunc
	intentional    bool
	reconnectTimer *time.Timer
	recon          *reconnector

	onConnected    []func()
	onDisconnected []func(reason string)
	onReconnecting []func(attempt int, delay time.Duration)
}

// NewSession creates a realtime session backed by the given client's
// credentials and REST surface. cfg may be nil for defaults.
func NewSession(client *Client, cfg *SessionConfig) *Session {
	var c SessionConfig
	if cfg != nil {
		c = *cfg
	}
	c.defaults()

	s := &Session{
		client:     client,
		cfg:        c,
		log:        client.logger.Named("session"),
		dispatcher: newDispatcher(client.logger.Named("dispatch")),
		Chats:      NewChatStore(),
		Friends:    NewFriendStore(),
		Calls:      NewCallStore(),
		state:      StateDisconnected,
		recon:      newReconnector(&c),
	}
	s.dispatcher.builtin = s.applyEvent
	return s
}

// State returns the current connection state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect opens the persistent connection. It is idempotent: if a connection
// is already open or opening, the call is a no-op. Transport failures are not
// returned; they are absorbed into the reconnect cycle. The context bounds the
// whole session lifetime: once it is cancelled the session stops reconnecting.
func (s *Session) Connect(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return
	}
	if s.client.UserID() == "" {
		s.mu.Unlock()
		s.log.Warn("connect skipped: no user identity")
		return
	}
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.state = StateConnecting
	s.intentional = false
	s.runCtx = ctx
	s.mu.Unlock()

	go s.dial(ctx)
}

// Disconnect closes the connection intentionally. The pending reconnect timer
// is cancelled and the close never triggers reconnection. Idempotent.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.intentional = true
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.cancelRead != nil {
		s.cancelRead()
		s.cancelRead = nil
	}
	conn := s.conn
	s.conn = nil
	alreadyDown := s.state == StateDisconnected
	s.state = StateDisconnected
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	if !alreadyDown {
		s.emitDisconnected("client disconnect")
	}
}

// SetToken updates the access token and, when a credential arrives while no
// live connection exists, connects immediately instead of waiting for the next
// reconnect tick. An intentional Disconnect is never resurrected this way.
func (s *Session) SetToken(token string) {
	s.client.SetToken(token)

	s.mu.Lock()
	idle := s.state == StateDisconnected || s.state == StateReconnecting
	ctx := s.runCtx
	resume := idle && !s.intentional && ctx != nil && ctx.Err() == nil && token != ""
	s.mu.Unlock()

	if resume {
		s.Connect(ctx)
	}
}

// Sync seeds the chat and friend stores from the REST API. Typically called
// once after the first successful connect.
func (s *Session) Sync(ctx context.Context) error {
	chats, err := s.client.ListChats(ctx)
	if err != nil {
		return err
	}
	s.Chats.Seed(chats)

	friends, err := s.client.ListFriends(ctx)
	if err != nil {
		return err
	}
	s.Friends.Seed(friends)
	return nil
}

// ============================================================================
// Subscriptions
// ============================================================================

// On registers a handler for one event type and returns its unsubscribe
// function. Built-in state updates always run before registered handlers.
func (s *Session) On(eventType string, h EventHandler) func() {
	return s.dispatcher.on(eventType, h)
}

// OnAny registers a wildcard handler receiving every event with its envelope.
func (s *Session) OnAny(h EnvelopeHandler) func() {
	return s.dispatcher.onAny(h)
}

// OnNewMessage registers a typed handler for new_message events.
func (s *Session) OnNewMessage(h func(MessagePayload)) func() {
	return s.dispatcher.on(EventNewMessage, func(data json.RawMessage) {
		var p MessagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.log.Warn("malformed new_message payload", zap.Error(err))
			return
		}
		h(p)
	})
}

// OnPresenceChanged registers a typed handler for presence events.
func (s *Session) OnPresenceChanged(h func(PresencePayload)) func() {
	return s.dispatcher.on(EventPresence, func(data json.RawMessage) {
		var p PresencePayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.log.Warn("malformed presence payload", zap.Error(err))
			return
		}
		h(p)
	})
}

// OnTyping registers a typed handler for typing events.
func (s *Session) OnTyping(h func(TypingPayload)) func() {
	return s.dispatcher.on(EventTyping, func(data json.RawMessage) {
		var p TypingPayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.log.Warn("malformed typing payload", zap.Error(err))
			return
		}
		h(p)
	})
}

// OnIncomingCall registers a typed handler for incoming_call events.
func (s *Session) OnIncomingCall(h func(IncomingCallPayload)) func() {
	return s.dispatcher.on(EventIncomingCall, func(data json.RawMessage) {
		var p IncomingCallPayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.log.Warn("malformed incoming_call payload", zap.Error(err))
			return
		}
		h(p)
	})
}

// OnCallEnded registers a typed handler for call_ended events.
func (s *Session) OnCallEnded(h func(CallEndedPayload)) func() {
	return s.dispatcher.on(EventCallEnded, func(data json.RawMessage) {
		var p CallEndedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			s.log.Warn("malformed call_ended payload", zap.Error(err))
			return
		}
		h(p)
	})
}

// OnConnected registers a handler for the connected meta-event.
func (s *Session) OnConnected(h func()) {
	s.mu.Lock()
	s.onConnected = append(s.onConnected, h)
	s.mu.Unlock()
}

// OnDisconnected registers a handler for the disconnected meta-event. The UI
// can drive a degraded indicator from this; transport failures are never
// surfaced as hard errors.
func (s *Session) OnDisconnected(h func(reason string)) {
	s.mu.Lock()
	s.onDisconnected = append(s.onDisconnected, h)
	s.mu.Unlock()
}

// OnReconnecting registers a handler for the reconnecting meta-event.
func (s *Session) OnReconnecting(h func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	s.onReconnecting = append(s.onReconnecting, h)
	s.mu.Unlock()
}

// ============================================================================
// Connection lifecycle
// ============================================================================

func (s *Session) websocketURL() string {
	base := strings.Replace(s.client.baseURL, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	// Anonymous path when no token is available yet; the server degrades to
	// cookie auth or reduced trust rather than rejecting outright.
	if tok := s.client.Token(); tok != "" {
		return base + "/ws/chat?token=" + tok
	}
	return base + "/ws/chat"
}

func (s *Session) dial(ctx context.Context) {
	conn, err := s.cfg.Dial(ctx, s.websocketURL())
	if err != nil {
		s.log.Warn("websocket dial failed", zap.Error(err))
		s.handleDown(err.Error(), false)
		return
	}

	s.mu.Lock()
	if s.intentional || s.state != StateConnecting {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
		return
	}
	readCtx, cancel := context.WithCancel(ctx)
	s.conn = conn
	s.cancelRead = cancel
	s.state = StateConnected
	s.recon.markConnected()
	handlers := append([]func(){}, s.onConnected...)
	s.mu.Unlock()

	s.log.Info("connected")
	for _, h := range handlers {
		h()
	}

	go s.readLoop(readCtx, conn)
}

func (s *Session) readLoop(ctx context.Context, conn Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			s.handleDown(err.Error(), true)
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
			// Malformed frames are logged and dropped; they never affect
			// connection health.
			s.log.Warn("dropping malformed event frame", zap.Error(err))
			continue
		}
		s.dispatcher.dispatch(ev)
	}
}

// handleDown is the shared failure path for dial errors and transport closes.
// Unless the close was intentional or the session context has ended, it
// refreshes the credential and schedules exactly one reconnect attempt.
func (s *Session) handleDown(reason string, wasConnected bool) {
	s.mu.Lock()
	if s.intentional || s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	if s.cancelRead != nil {
		s.cancelRead()
		s.cancelRead = nil
	}
	s.conn = nil
	ctx := s.runCtx

	if ctx == nil || ctx.Err() != nil || !s.recon.shouldReconnect() {
		s.state = StateDisconnected
		s.mu.Unlock()
		s.log.Info("connection closed", zap.String("reason", reason))
		s.emitDisconnected(reason)
		return
	}

	s.state = StateReconnecting
	delay := s.recon.nextDelay()
	attempt := s.recon.attempt
	reconnecting := append([]func(int, time.Duration){}, s.onReconnecting...)
	s.mu.Unlock()

	s.log.Info("connection lost, reconnecting",
		zap.String("reason", reason),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay))
	if wasConnected {
		s.emitDisconnected(reason)
	}
	for _, h := range reconnecting {
		h(attempt, delay)
	}

	go func() {
		// Refresh settles (success or failure) before the backoff timer is
		// armed, so the next handshake uses the newest credential we can get.
		s.maybeRefreshToken(ctx)

		s.mu.Lock()
		if s.intentional || s.state != StateReconnecting {
			s.mu.Unlock()
			return
		}
		s.reconnectTimer = time.AfterFunc(delay, func() {
			s.mu.Lock()
			s.reconnectTimer = nil
			if s.state != StateReconnecting {
				s.mu.Unlock()
				return
			}
			s.state = StateDisconnected
			s.mu.Unlock()
			s.Connect(ctx)
		})
		s.mu.Unlock()
	}()
}

// maybeRefreshToken refreshes the access token before a reconnect attempt.
// A token that still parses as a JWT with comfortable remaining lifetime is
// kept as-is. Refresh failure is non-fatal: the server is the final authority
// on credential validity, so we reconnect with what we have.
func (s *Session) maybeRefreshToken(ctx context.Context) {
	if tok := s.client.Token(); tok != "" && tokenUsable(tok) {
		s.log.Debug("access token still fresh, skipping refresh")
		return
	}
	if _, err := s.client.RefreshToken(ctx); err != nil {
		s.log.Warn("token refresh failed, reconnecting with existing credentials",
			zap.Error(err))
	}
}

// tokenUsable reports whether tok is a JWT whose expiry is not imminent.
// Opaque or unparseable tokens report false so they are always refreshed.
func tokenUsable(tok string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) > 30*time.Second
}

func (s *Session) emitDisconnected(reason string) {
	s.mu.Lock()
	handlers := append([]func(string){}, s.onDisconnected...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(reason)
	}
}

// ============================================================================
// Built-in event handlers
// ============================================================================

// applyEvent mutates the derived state stores for recognized event types.
// It runs before any registered handler for the same event, so subscribers
// always observe post-update state. Malformed payloads are logged and the
// mutation skipped; the event is still offered to subscribers.
func (s *Session) applyEvent(ev Event) {
	switch ev.Type {
	case EventPresence:
		var p PresencePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.log.Warn("malformed presence payload", zap.Error(err))
			return
		}
		s.Friends.SetStatus(p.UserID, p.Status)

	case EventNewMessage:
		var p MessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.log.Warn("malformed new_message payload", zap.Error(err))
			return
		}
		s.Chats.ApplyMessage(p)

	case EventIncomingCall:
		var p IncomingCallPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.log.Warn("malformed incoming_call payload", zap.Error(err))
			return
		}
		s.Calls.SetIncoming(p)

	case EventCallEnded:
		var p CallEndedPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.log.Warn("malformed call_ended payload", zap.Error(err))
			return
		}
		s.Calls.EndCall(p.ChatID)

	case EventParticipantJoined, EventParticipantLeft:
		var p ParticipantPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.log.Warn("malformed participant payload", zap.Error(err))
			return
		}
		s.Calls.SetParticipantCount(p.ChatID, p.ParticipantCount)
	}
}
