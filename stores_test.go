package voicetranslate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id, chatID string) MessagePayload {
	return MessagePayload{
		ID:        id,
		ChatID:    chatID,
		SenderID:  "user-2",
		Content:   "hello",
		CreatedAt: "2026-08-29T10:00:00Z",
	}
}

func TestChatStoreUnreadSkippedForActiveChat(t *testing.T) {
	cs := NewChatStore()
	cs.SetActiveChat("chat-1")

	cs.ApplyMessage(msg("m1", "chat-1"))

	assert.Equal(t, 0, cs.Unread("chat-1"))
	p, ok := cs.Preview("chat-1")
	require.True(t, ok)
	require.NotNil(t, p.LastMessage)
	assert.Equal(t, "m1", p.LastMessage.ID)
}

func TestChatStoreUnreadIncrementedForInactiveChat(t *testing.T) {
	cs := NewChatStore()
	cs.SetActiveChat("chat-1")

	cs.ApplyMessage(msg("m1", "chat-2"))
	cs.ApplyMessage(msg("m2", "chat-2"))

	assert.Equal(t, 2, cs.Unread("chat-2"))
	assert.Equal(t, 0, cs.Unread("chat-1"))
}

func TestChatStoreClearUnreadLeavesOtherChatsAlone(t *testing.T) {
	cs := NewChatStore()
	cs.ApplyMessage(msg("m1", "chat-1"))
	cs.ApplyMessage(msg("m2", "chat-2"))

	cs.ClearUnread("chat-1")
	cs.ApplyMessage(msg("m3", "chat-2"))

	assert.Equal(t, 0, cs.Unread("chat-1"))
	assert.Equal(t, 2, cs.Unread("chat-2"))
}

func TestChatStoreClearUnknownChatIsNoop(t *testing.T) {
	cs := NewChatStore()
	cs.ClearUnread("nope")
	assert.Equal(t, 0, cs.Unread("nope"))
}

func TestChatStoreActiveChatSwitch(t *testing.T) {
	cs := NewChatStore()
	cs.SetActiveChat("chat-1")
	cs.SetActiveChat("chat-2")

	cs.ApplyMessage(msg("m1", "chat-1"))
	cs.ApplyMessage(msg("m2", "chat-2"))

	assert.Equal(t, 1, cs.Unread("chat-1"))
	assert.Equal(t, 0, cs.Unread("chat-2"))
	assert.Equal(t, "chat-2", cs.ActiveChat())
}

func TestChatStoreSeedFromListing(t *testing.T) {
	cs := NewChatStore()
	cs.Seed([]Chat{
		{ID: "chat-1", Name: "Alice", UnreadCount: 3},
		{ID: "chat-2", Name: "Team", ChatType: "group"},
	})

	assert.Equal(t, 3, cs.Unread("chat-1"))
	assert.Len(t, cs.Previews(), 2)

	// Re-seeding replaces, not merges.
	cs.Seed([]Chat{{ID: "chat-2", Name: "Team"}})
	assert.Len(t, cs.Previews(), 1)
	assert.Equal(t, 0, cs.Unread("chat-1"))
}

func TestFriendStoreLastWriteWins(t *testing.T) {
	fs := NewFriendStore()
	fs.SetStatus("u1", PresenceOnline)
	fs.SetStatus("u1", PresenceOffline)
	fs.SetStatus("u1", PresenceBusy)

	s, ok := fs.Status("u1")
	require.True(t, ok)
	assert.Equal(t, PresenceBusy, s)
}

func TestFriendStoreSeedDefaultsToOffline(t *testing.T) {
	fs := NewFriendStore()
	fs.Seed([]User{
		{ID: "u1", Status: PresenceOnline},
		{ID: "u2"},
	})

	s, _ := fs.Status("u2")
	assert.Equal(t, PresenceOffline, s)
	assert.Equal(t, []string{"u1"}, fs.Online())
}

func TestCallStoreIncomingSeedsActiveCall(t *testing.T) {
	cs := NewCallStore()
	cs.SetIncoming(IncomingCallPayload{
		CallID: "call-a", ChatID: "chat-1", RoomName: "room-a",
		CallType: "voice", InitiatedBy: "u2", InitiatorName: "Bob",
	})

	in := cs.Incoming()
	require.NotNil(t, in)
	assert.Equal(t, "call-a", in.CallID)

	active, ok := cs.Active("chat-1")
	require.True(t, ok)
	assert.Equal(t, 1, active.ParticipantCount)
	assert.Equal(t, "room-a", active.RoomName)
}

func TestCallStoreSecondIncomingOverwritesPrompt(t *testing.T) {
	cs := NewCallStore()
	cs.SetIncoming(IncomingCallPayload{CallID: "call-a", ChatID: "chat-1"})
	cs.SetIncoming(IncomingCallPayload{CallID: "call-b", ChatID: "chat-2"})

	in := cs.Incoming()
	require.NotNil(t, in)
	assert.Equal(t, "call-b", in.CallID)

	// Both calls stay live until each gets its own call_ended.
	_, okA := cs.Active("chat-1")
	_, okB := cs.Active("chat-2")
	assert.True(t, okA)
	assert.True(t, okB)

	cs.EndCall("chat-1")
	_, okA = cs.Active("chat-1")
	assert.False(t, okA)
	require.NotNil(t, cs.Incoming(), "prompt for call-b must survive call-a ending")

	cs.EndCall("chat-2")
	assert.Nil(t, cs.Incoming())
	assert.Empty(t, cs.ActiveCalls())
}

func TestCallStoreEndUnknownCallIsNoop(t *testing.T) {
	cs := NewCallStore()
	cs.EndCall("chat-x")
	assert.Empty(t, cs.ActiveCalls())
	assert.Nil(t, cs.Incoming())
}

func TestCallStoreParticipantCountIsAuthoritative(t *testing.T) {
	cs := NewCallStore()
	cs.SetIncoming(IncomingCallPayload{CallID: "call-a", ChatID: "chat-1"})

	cs.SetParticipantCount("chat-1", 3)
	active, _ := cs.Active("chat-1")
	assert.Equal(t, 3, active.ParticipantCount)

	// The server value replaces whatever we had, no local arithmetic.
	cs.SetParticipantCount("chat-1", 3)
	active, _ = cs.Active("chat-1")
	assert.Equal(t, 3, active.ParticipantCount)

	cs.SetParticipantCount("chat-1", 1)
	active, _ = cs.Active("chat-1")
	assert.Equal(t, 1, active.ParticipantCount)
}

func TestCallStoreParticipantCountForUnknownChatCreatesEntry(t *testing.T) {
	cs := NewCallStore()
	cs.SetParticipantCount("chat-9", 4)

	active, ok := cs.Active("chat-9")
	require.True(t, ok)
	assert.Equal(t, 4, active.ParticipantCount)
}

func TestCallStoreClearIncomingKeepsRegistry(t *testing.T) {
	cs := NewCallStore()
	cs.SetIncoming(IncomingCallPayload{CallID: "call-a", ChatID: "chat-1"})
	cs.ClearIncoming()

	assert.Nil(t, cs.Incoming())
	_, ok := cs.Active("chat-1")
	assert.True(t, ok)
}
