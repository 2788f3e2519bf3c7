package voicetranslate

import "sync"

// ============================================================================
// Chat Store
// ============================================================================

// ChatPreview is the locally maintained summary of one conversation.
type ChatPreview struct {
	ID          string
	ChatType    string
	Name        string
	AvatarURL   string
	LastMessage *MessagePayload
	UnreadCount int
	UpdatedAt   string
}

// ChatStore maintains chat previews and unread counters. It issues no network
// calls; the session's built-in new_message handler is the sole inbound writer
// and the UI clears counters when it opens a chat.
//
// The active-chat pointer is a last-known-value cell: built-in handlers read it
// at delivery time, never from a snapshot taken at subscription time.
type ChatStore struct {
	mu         sync.RWMutex
	previews   map[string]*ChatPreview
	activeChat string
}

// NewChatStore creates an empty chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{previews: make(map[string]*ChatPreview)}
}

// Seed replaces the preview set from a REST chat listing.
func (cs *ChatStore) Seed(chats []Chat) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.previews = make(map[string]*ChatPreview, len(chats))
	for _, c := range chats {
		cs.previews[c.ID] = &ChatPreview{
			ID:          c.ID,
			ChatType:    c.ChatType,
			Name:        c.Name,
			AvatarURL:   c.AvatarURL,
			LastMessage: c.LastMessage,
			UnreadCount: c.UnreadCount,
			UpdatedAt:   c.UpdatedAt,
		}
	}
}

// SetActiveChat records which chat the user is currently viewing; pass "" when
// no chat is open.
func (cs *ChatStore) SetActiveChat(chatID string) {
	cs.mu.Lock()
	cs.activeChat = chatID
	cs.mu.Unlock()
}

// ActiveChat returns the currently viewed chat id, or "".
func (cs *ChatStore) ActiveChat() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.activeChat
}

// ApplyMessage folds one inbound message into the preview state. The unread
// counter is incremented only when the message's chat is not the active chat;
// the active-chat check and the increment happen under one lock so the counter
// can never double-count against a moving pointer.
func (cs *ChatStore) ApplyMessage(msg MessagePayload) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	p, ok := cs.previews[msg.ChatID]
	if !ok {
		p = &ChatPreview{ID: msg.ChatID}
		cs.previews[msg.ChatID] = p
	}
	m := msg
	p.LastMessage = &m
	p.UpdatedAt = msg.CreatedAt
	if msg.ChatID != cs.activeChat {
		p.UnreadCount++
	}
}

// IncrementUnread bumps the unread counter for a chat unconditionally.
func (cs *ChatStore) IncrementUnread(chatID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	p, ok := cs.previews[chatID]
	if !ok {
		p = &ChatPreview{ID: chatID}
		cs.previews[chatID] = p
	}
	p.UnreadCount++
}

// ClearUnread zeroes the unread counter for a chat. Clearing an unknown chat
// is a no-op.
func (cs *ChatStore) ClearUnread(chatID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if p, ok := cs.previews[chatID]; ok {
		p.UnreadCount = 0
	}
}

// Unread returns the unread counter for a chat.
func (cs *ChatStore) Unread(chatID string) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if p, ok := cs.previews[chatID]; ok {
		return p.UnreadCount
	}
	return 0
}

// Preview returns a copy of one chat preview.
func (cs *ChatStore) Preview(chatID string) (ChatPreview, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if p, ok := cs.previews[chatID]; ok {
		return *p, true
	}
	return ChatPreview{}, false
}

// Previews returns a copy of all chat previews.
func (cs *ChatStore) Previews() []ChatPreview {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make([]ChatPreview, 0, len(cs.previews))
	for _, p := range cs.previews {
		out = append(out, *p)
	}
	return out
}

// ============================================================================
// Friend Store
// ============================================================================

// FriendStore tracks friend presence. Updates are last-write-wins: presence
// events carry no ordering token, so the state is best-effort eventually
// consistent.
type FriendStore struct {
	mu       sync.RWMutex
	statuses map[string]PresenceStatus
}

// NewFriendStore creates an empty friend store.
func NewFriendStore() *FriendStore {
	return &FriendStore{statuses: make(map[string]PresenceStatus)}
}

// Seed replaces the status map from a REST friend listing.
func (fs *FriendStore) Seed(friends []User) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.statuses = make(map[string]PresenceStatus, len(friends))
	for _, f := range friends {
		status := f.Status
		if status == "" {
			status = PresenceOffline
		}
		fs.statuses[f.ID] = status
	}
}

// SetStatus applies one presence update, overwriting any prior status.
func (fs *FriendStore) SetStatus(userID string, status PresenceStatus) {
	fs.mu.Lock()
	fs.statuses[userID] = status
	fs.mu.Unlock()
}

// Status returns the last known status for a user.
func (fs *FriendStore) Status(userID string) (PresenceStatus, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	s, ok := fs.statuses[userID]
	return s, ok
}

// Online returns the ids of all friends currently reported online.
func (fs *FriendStore) Online() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	var out []string
	for id, s := range fs.statuses {
		if s == PresenceOnline {
			out = append(out, id)
		}
	}
	return out
}

// ============================================================================
// Call Store
// ============================================================================

// ActiveCall is one live call as seen from this client.
type ActiveCall struct {
	CallID           string
	RoomName         string
	CallType         string
	InitiatedBy      string
	ParticipantCount int
}

// CallStore tracks the single pending incoming-call prompt and the live calls
// per chat. At most one prompt exists at a time; a newer incoming_call
// overwrites an unanswered one. Participant counts are only ever set from the
// server-reported value, never inferred locally.
type CallStore struct {
	mu       sync.RWMutex
	incoming *IncomingCallPayload
	active   map[string]*ActiveCall
}

// NewCallStore creates an empty call store.
func NewCallStore() *CallStore {
	return &CallStore{active: make(map[string]*ActiveCall)}
}

// SetIncoming records an incoming call: it becomes the pending prompt
// (overwriting any prior unanswered one) and seeds the active-call entry for
// its chat with the caller as the only participant.
func (cs *CallStore) SetIncoming(p IncomingCallPayload) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	prompt := p
	cs.incoming = &prompt
	cs.active[p.ChatID] = &ActiveCall{
		CallID:           p.CallID,
		RoomName:         p.RoomName,
		CallType:         p.CallType,
		InitiatedBy:      p.InitiatedBy,
		ParticipantCount: 1,
	}
}

// EndCall removes the live call for a chat and dismisses the prompt if it was
// for that chat. Ending a chat with no live call is a no-op.
func (cs *CallStore) EndCall(chatID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.active, chatID)
	if cs.incoming != nil && cs.incoming.ChatID == chatID {
		cs.incoming = nil
	}
}

// SetParticipantCount replaces the participant count for a chat's call with
// the server-reported value. A count event for an unknown chat implies a call
// this client has not otherwise heard about, so a minimal entry is created.
func (cs *CallStore) SetParticipantCount(chatID string, count int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.active[chatID]
	if !ok {
		c = &ActiveCall{}
		cs.active[chatID] = c
	}
	c.ParticipantCount = count
}

// ClearIncoming dismisses the pending prompt without touching the active-call
// registry; used when the user answers or declines.
func (cs *CallStore) ClearIncoming() {
	cs.mu.Lock()
	cs.incoming = nil
	cs.mu.Unlock()
}

// Incoming returns a copy of the pending prompt, or nil.
func (cs *CallStore) Incoming() *IncomingCallPayload {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.incoming == nil {
		return nil
	}
	p := *cs.incoming
	return &p
}

// Active returns the live call for a chat, if any.
func (cs *CallStore) Active(chatID string) (ActiveCall, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if c, ok := cs.active[chatID]; ok {
		return *c, true
	}
	return ActiveCall{}, false
}

// ActiveCalls returns a copy of the live-call registry keyed by chat id.
func (cs *CallStore) ActiveCalls() map[string]ActiveCall {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]ActiveCall, len(cs.active))
	for id, c := range cs.active {
		out[id] = *c
	}
	return out
}
