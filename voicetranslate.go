// Package voicetranslate provides the Go client SDK for the VoiceTranslate
// chat and call platform.
//
// The package has two halves: a thin REST client for request/response
// operations (auth, chat and friend listings, call room tokens), and a
// realtime Session that keeps a single persistent connection to the server
// and maintains derived state for chat previews, friend presence, and call
// signaling.
//
// Example:
//
//	client := voicetranslate.NewClient("")
//	client.Login(ctx, "alice", "s3cret")
//
//	sess := voicetranslate.NewSession(client, nil)
//	sess.OnNewMessage(func(m voicetranslate.MessagePayload) { ... })
//	sess.Connect(ctx)
//	defer sess.Disconnect()
//
//	sess.OpenChat(chatID)
//	sess.SendMessage(chatID, "hello", nil)
package voicetranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.voicetranslate.app"
	DefaultTimeout = 30 * time.Second
)

// ============================================================================
// Client
// ============================================================================

// Client is the REST API client and the credential source for realtime
// sessions: it holds the user identity and the short-lived access token, and
// RefreshToken rotates the token using the refresh cookie set at login.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu     sync.RWMutex
	token  string
	userID string
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithLogger sets the structured logger used by the client and any sessions
// created from it. The default is a no-op logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = log }
}

// NewClient creates a VoiceTranslate client. token may be "" when the caller
// intends to Login or to run an anonymous session.
func NewClient(token string, opts ...ClientOption) *Client {
	// The cookie jar holds the refresh-token cookie the server sets at login;
	// RefreshToken does not work without it.
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the access token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current access token, or "".
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetIdentity sets the user id used as the connection identity.
func (c *Client) SetIdentity(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

// UserID returns the current user identity, or "".
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// ============================================================================
// Internal request helper
// ============================================================================

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, query map[string]string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Detail == "" {
			apiErr.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return nil, apiErr
	}
	return data, nil
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// ============================================================================
// Auth API
// ============================================================================

// Login authenticates with username and password. On success the access token
// and user identity are stored on the client and the refresh cookie lands in
// the HTTP client's jar.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	data, err := c.doRequest(ctx, "POST", "/api/auth/login",
		map[string]string{"username": username, "password": password}, nil)
	if err != nil {
		return nil, err
	}
	auth, err := decodeJSON[AuthResponse](data)
	if err != nil {
		return nil, err
	}
	c.adopt(auth)
	return auth, nil
}

// RefreshToken rotates the short-lived access token using the refresh cookie.
// The new token is written back into the client so the next realtime
// handshake uses it.
func (c *Client) RefreshToken(ctx context.Context) (*AuthResponse, error) {
	data, err := c.doRequest(ctx, "POST", "/api/auth/refresh", nil, nil)
	if err != nil {
		return nil, err
	}
	auth, err := decodeJSON[AuthResponse](data)
	if err != nil {
		return nil, err
	}
	c.adopt(auth)
	return auth, nil
}

func (c *Client) adopt(auth *AuthResponse) {
	c.mu.Lock()
	if auth.Token != "" {
		c.token = auth.Token
	}
	if auth.User != nil && auth.User.ID != "" {
		c.userID = auth.User.ID
	}
	c.mu.Unlock()
}

// Me fetches the authenticated user's profile and stores its id as the
// connection identity.
func (c *Client) Me(ctx context.Context) (*User, error) {
	data, err := c.doRequest(ctx, "GET", "/api/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}
	user, err := decodeJSON[User](data)
	if err != nil {
		return nil, err
	}
	if user.ID != "" {
		c.SetIdentity(user.ID)
	}
	return user, nil
}

// ============================================================================
// Chats API
// ============================================================================

// ListChats returns the user's conversations with last-message previews and
// server-computed unread counts.
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	data, err := c.doRequest(ctx, "GET", "/api/chats/", nil, nil)
	if err != nil {
		return nil, err
	}
	var chats []Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return chats, nil
}

// ChatMessages returns recent messages for a chat, newest last.
func (c *Client) ChatMessages(ctx context.Context, chatID string, limit int) ([]MessagePayload, error) {
	var query map[string]string
	if limit > 0 {
		query = map[string]string{"limit": fmt.Sprintf("%d", limit)}
	}
	data, err := c.doRequest(ctx, "GET", "/api/chats/"+chatID+"/messages", nil, query)
	if err != nil {
		return nil, err
	}
	var msgs []MessagePayload
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return msgs, nil
}

// MarkChatRead persists the read marker server-side. The realtime mark_read
// command covers the common case; this REST variant exists for flows that run
// without a live connection.
func (c *Client) MarkChatRead(ctx context.Context, chatID string) error {
	_, err := c.doRequest(ctx, "POST", "/api/chats/"+chatID+"/read", nil, nil)
	return err
}

// ============================================================================
// Friends API
// ============================================================================

// ListFriends returns the user's friends with their last broadcast status.
func (c *Client) ListFriends(ctx context.Context) ([]User, error) {
	data, err := c.doRequest(ctx, "GET", "/api/friends/", nil, nil)
	if err != nil {
		return nil, err
	}
	var friends []User
	if err := json.Unmarshal(data, &friends); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return friends, nil
}

// ============================================================================
// Calls API
// ============================================================================

// CreateRoom creates a media room and returns its join credential.
func (c *Client) CreateRoom(ctx context.Context) (*RoomToken, error) {
	data, err := c.doRequest(ctx, "POST", "/api/rooms/create", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[RoomToken](data)
}

// JoinCall mints a join credential for an existing call's room. The media
// connection itself is driven by the caller through the media SDK.
func (c *Client) JoinCall(ctx context.Context, roomName string) (*RoomToken, error) {
	data, err := c.doRequest(ctx, "POST", "/api/rooms/"+roomName+"/token", nil, nil)
	if err != nil {
		return nil, err
	}
	tok, err := decodeJSON[RoomToken](data)
	if err != nil {
		return nil, err
	}
	if tok.RoomName == "" {
		tok.RoomName = roomName
	}
	return tok, nil
}
