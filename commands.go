package voicetranslate

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ============================================================================
// Command Surface
// ============================================================================
//
// Outbound commands are fire-and-forget: nothing here awaits a server
// acknowledgment, and a command issued while the connection is not open is
// silently dropped (the UI is expected to disable affected controls). There
// is no offline queue. Acknowledgments, where the server produces them,
// arrive as ordinary inbound events correlated by chat or message id.

// MessageOptions carries the optional fields of SendMessage.
type MessageOptions struct {
	// ReplyToID references the message being replied to.
	ReplyToID string
}

// SendMessage sends a chat message. A client-generated message id is attached
// so the echoed new_message event can be correlated with this send.
func (s *Session) SendMessage(chatID, content string, opts *MessageOptions) {
	cmd := messageCommand{
		Type:      cmdMessage,
		MessageID: uuid.NewString(),
		ChatID:    chatID,
		Content:   content,
	}
	if opts != nil {
		cmd.ReplyToID = opts.ReplyToID
	}
	s.send(cmd.Type, cmd)
}

// JoinChat subscribes this connection to a chat room's broadcasts.
func (s *Session) JoinChat(chatID string) {
	s.send(cmdJoinChat, chatCommand{Type: cmdJoinChat, ChatID: chatID})
}

// LeaveChat unsubscribes this connection from a chat room's broadcasts.
func (s *Session) LeaveChat(chatID string) {
	s.send(cmdLeaveChat, chatCommand{Type: cmdLeaveChat, ChatID: chatID})
}

// Typing signals that the user is typing in a chat. Callers are responsible
// for throttling before invoking this.
func (s *Session) Typing(chatID string) {
	s.send(cmdTyping, chatCommand{Type: cmdTyping, ChatID: chatID})
}

// MarkRead tells the server the chat has been read up to now.
func (s *Session) MarkRead(chatID string) {
	s.send(cmdMarkRead, chatCommand{Type: cmdMarkRead, ChatID: chatID})
}

// DeclineCall rejects an incoming call and dismisses the local prompt if it
// matches.
func (s *Session) DeclineCall(callID, chatID string) {
	if in := s.Calls.Incoming(); in != nil && in.CallID == callID {
		s.Calls.ClearIncoming()
	}
	s.send(cmdCallDecline, declineCommand{Type: cmdCallDecline, CallID: callID, ChatID: chatID})
}

// OpenChat activates a chat for viewing: the active-chat pointer, the server
// room membership, and the unread counter move together so they cannot
// diverge. Messages for the active chat will no longer count as unread.
func (s *Session) OpenChat(chatID string) {
	s.Chats.SetActiveChat(chatID)
	s.JoinChat(chatID)
	s.Chats.ClearUnread(chatID)
	s.MarkRead(chatID)
}

// CloseChat deactivates a chat: leaves the server room and clears the
// active-chat pointer if it still points at this chat.
func (s *Session) CloseChat(chatID string) {
	s.LeaveChat(chatID)
	if s.Chats.ActiveChat() == chatID {
		s.Chats.SetActiveChat("")
	}
}

// send serializes one command onto the connection. Drops are contract
// no-ops, not errors; write failures surface through the read loop's
// close-and-reconnect cycle rather than here.
func (s *Session) send(cmdType string, v any) {
	s.mu.Lock()
	conn := s.conn
	connected := s.state == StateConnected
	ctx := s.runCtx
	s.mu.Unlock()

	if !connected || conn == nil {
		s.log.Debug("dropping command while disconnected", zap.String("command", cmdType))
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("marshal command", zap.String("command", cmdType), zap.Error(err))
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.log.Debug("command write failed", zap.String("command", cmdType), zap.Error(err))
	}
}
