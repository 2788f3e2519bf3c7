package voicetranslate

import "encoding/json"

// ============================================================================
// Wire Envelopes
// ============================================================================

// Event is the wire format for all server-pushed real-time events.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Recognized event types. Any other type is delivered only to explicit
// subscribers; unrecognized types are not errors.
const (
	EventPresence          = "presence"
	EventNewMessage        = "new_message"
	EventTyping            = "typing"
	EventIncomingCall      = "incoming_call"
	EventCallEnded         = "call_ended"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventCallReaction      = "call_reaction"
	EventHandRaised        = "hand_raised"
	EventHandLowered       = "hand_lowered"
	EventInCallMessage     = "in_call_message"
	EventFriendRequest     = "friend_request"
)

// ============================================================================
// Event Payload Types
// ============================================================================

// PresencePayload is broadcast when a friend's status changes.
type PresencePayload struct {
	UserID string         `json:"user_id"`
	Status PresenceStatus `json:"status"`
}

// PresenceStatus is a coarse online/offline indicator.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceBusy    PresenceStatus = "busy"
	PresenceOffline PresenceStatus = "offline"
)

// MessagePayload is the data of a new_message event and the shape of
// messages returned by the REST history endpoints.
type MessagePayload struct {
	ID                string            `json:"id"`
	ChatID            string            `json:"chat_id"`
	SenderID          string            `json:"sender_id"`
	SenderName        string            `json:"sender_name,omitempty"`
	Content           string            `json:"content"`
	TranslatedContent string            `json:"translated_content,omitempty"`
	SourceLanguage    string            `json:"source_language,omitempty"`
	Translations      map[string]string `json:"translations,omitempty"`
	MessageType       string            `json:"message_type,omitempty"`
	ReplyToID         *string           `json:"reply_to_id,omitempty"`
	IsEdited          bool              `json:"is_edited,omitempty"`
	CreatedAt         string            `json:"created_at"`
}

// TypingPayload is broadcast while a chat member is typing.
type TypingPayload struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// IncomingCallPayload announces a call ringing for the receiving user.
type IncomingCallPayload struct {
	CallID        string `json:"call_id"`
	ChatID        string `json:"chat_id"`
	RoomName      string `json:"room_name"`
	CallType      string `json:"call_type"`
	InitiatedBy   string `json:"initiated_by"`
	InitiatorName string `json:"initiator_name"`
}

// CallEndedPayload marks the end of the call in a chat.
type CallEndedPayload struct {
	ChatID string `json:"chat_id"`
}

// ParticipantPayload carries the server-authoritative participant count
// for participant_joined / participant_left events.
type ParticipantPayload struct {
	ChatID           string `json:"chat_id"`
	ParticipantCount int    `json:"participant_count"`
}

// CallReactionPayload is an emoji reaction broadcast during a call.
type CallReactionPayload struct {
	CallID      string `json:"call_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Emoji       string `json:"emoji"`
}

// HandPayload is broadcast for hand_raised / hand_lowered events.
type HandPayload struct {
	CallID      string `json:"call_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// InCallMessagePayload is a chat line sent inside an active call.
type InCallMessagePayload struct {
	CallID      string `json:"call_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Content     string `json:"content"`
}

// FriendRequestPayload notifies the user of a new friend request.
type FriendRequestPayload struct {
	RequestID    string `json:"request_id"`
	FromUserID   string `json:"from_user_id"`
	FromUsername string `json:"from_username"`
}

// ============================================================================
// Outbound Commands
// ============================================================================

// Outbound command type tags.
const (
	cmdMessage     = "message"
	cmdJoinChat    = "join_chat"
	cmdLeaveChat   = "leave_chat"
	cmdTyping      = "typing"
	cmdMarkRead    = "mark_read"
	cmdCallDecline = "call_decline"
)

type messageCommand struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
	Content   string `json:"content"`
	ReplyToID string `json:"reply_to_id,omitempty"`
}

type chatCommand struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
}

type declineCommand struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	ChatID string `json:"chat_id"`
}

// ============================================================================
// REST API Types
// ============================================================================

// APIError represents an error response from the REST API.
type APIError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	return e.Detail
}

// User is the public profile shape returned by the friends and chats APIs.
type User struct {
	ID                string         `json:"id"`
	Username          string         `json:"username"`
	DisplayName       string         `json:"display_name"`
	AvatarURL         string         `json:"avatar_url,omitempty"`
	PreferredLanguage string         `json:"preferred_language,omitempty"`
	Status            PresenceStatus `json:"status,omitempty"`
}

// ChatMember is a chat membership entry with per-chat language and role.
type ChatMember struct {
	User
	Language string `json:"language,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Chat is a conversation preview as returned by the chat list endpoint.
type Chat struct {
	ID          string          `json:"id"`
	ChatType    string          `json:"chat_type"`
	Name        string          `json:"name"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
	MyLanguage  string          `json:"my_language,omitempty"`
	Members     []ChatMember    `json:"members,omitempty"`
	LastMessage *MessagePayload `json:"last_message,omitempty"`
	UnreadCount int             `json:"unread_count"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
}

// AuthResponse is returned by login and token refresh.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// RoomToken is a media-room join credential minted by the server.
type RoomToken struct {
	RoomName string `json:"room_name,omitempty"`
	URL      string `json:"url,omitempty"`
	Token    string `json:"token"`
}
