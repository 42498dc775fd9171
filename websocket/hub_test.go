package websocket

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smiletime/smiletime-api/presence"
)

type fakeConn struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection closed")
	}
	f.events = append(f.events, v.(Event))
	return nil
}

func (f *fakeConn) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeConn) eventNames() []string {
	var names []string
	for _, ev := range f.received() {
		names = append(names, ev.Event)
	}
	return names
}

func newTestClient(username string) (*Client, *fakeConn) {
	conn := &fakeConn{}
	return &Client{
		UserID:       uuid.New(),
		Username:     username,
		ConnectionID: uuid.NewString(),
		Conn:         conn,
	}, conn
}

func TestRegisterAnnouncesToOthersOnly(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	alice, aliceConn := newTestClient("alice")
	bob, bobConn := newTestClient("bob")

	h.Register(alice)
	h.Register(bob)

	// alice hears about bob, bob hears nothing about himself
	assert.Equal(t, []string{EventUserConnected}, aliceConn.eventNames())
	assert.Empty(t, bobConn.eventNames())

	connID, ok := h.Registry().LookupConnection(bob.UserID)
	require.True(t, ok)
	assert.Equal(t, bob.ConnectionID, connID)
}

func TestBroadcastReachesEveryoneIncludingSender(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	alice, aliceConn := newTestClient("alice")
	bob, bobConn := newTestClient("bob")
	h.Register(alice)
	h.Register(bob)

	h.Broadcast(map[string]string{"text": "hello"})

	aliceEvents := aliceConn.received()
	require.NotEmpty(t, aliceEvents)
	assert.Equal(t, EventReceiveMessage, aliceEvents[len(aliceEvents)-1].Event)

	bobEvents := bobConn.received()
	require.NotEmpty(t, bobEvents)
	assert.Equal(t, EventReceiveMessage, bobEvents[len(bobEvents)-1].Event)
}

func TestSendPrivateDeliversAndEchoes(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	alice, aliceConn := newTestClient("alice")
	bob, bobConn := newTestClient("bob")
	h.Register(alice)
	h.Register(bob)

	h.SendPrivate(alice, bob.UserID, map[string]string{"text": "hi"})

	bobEvents := bobConn.received()
	require.NotEmpty(t, bobEvents)
	last := bobEvents[len(bobEvents)-1]
	require.Equal(t, EventReceivePrivateMessage, last.Event)
	data := last.Data.(PrivateMessage)
	assert.Equal(t, alice.UserID.String(), data.SenderID)
	assert.Equal(t, "alice", data.SenderName)

	// sender gets an echo
	aliceEvents := aliceConn.received()
	require.NotEmpty(t, aliceEvents)
	assert.Equal(t, EventReceivePrivateMessage, aliceEvents[len(aliceEvents)-1].Event)
}

func TestSendPrivateToOfflineUserIsSilentlyDropped(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	alice, aliceConn := newTestClient("alice")
	h.Register(alice)

	h.SendPrivate(alice, uuid.New(), map[string]string{"text": "anyone there?"})

	// no echo, no error event, nothing
	assert.Empty(t, aliceConn.eventNames())
}

func TestSendPrivateAfterReconnectGoesToNewestConnection(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	alice, _ := newTestClient("alice")
	h.Register(alice)

	// bob logs in twice; the second connection wins
	bobID := uuid.New()
	first := &Client{UserID: bobID, Username: "bob", ConnectionID: uuid.NewString(), Conn: &fakeConn{}}
	secondConn := &fakeConn{}
	second := &Client{UserID: bobID, Username: "bob", ConnectionID: uuid.NewString(), Conn: secondConn}
	h.Register(first)
	h.Register(second)

	h.SendPrivate(alice, bobID, map[string]string{"text": "hi"})

	names := secondConn.eventNames()
	require.NotEmpty(t, names)
	assert.Equal(t, EventReceivePrivateMessage, names[len(names)-1])
}

func TestUnregisterStaleConnectionKeepsUserOnline(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	bobID := uuid.New()
	first := &Client{UserID: bobID, Username: "bob", ConnectionID: uuid.NewString(), Conn: &fakeConn{}}
	second := &Client{UserID: bobID, Username: "bob", ConnectionID: uuid.NewString(), Conn: &fakeConn{}}
	h.Register(first)
	h.Register(second)

	// the first device's channel closes after being superseded
	h.Unregister(first)

	connID, ok := h.Registry().LookupConnection(bobID)
	require.True(t, ok)
	assert.Equal(t, second.ConnectionID, connID)
}

func TestUnregisterAnnouncesDisconnect(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	alice, aliceConn := newTestClient("alice")
	bob, _ := newTestClient("bob")
	h.Register(alice)
	h.Register(bob)

	h.Unregister(bob)

	names := aliceConn.eventNames()
	require.NotEmpty(t, names)
	assert.Equal(t, EventUserDisconnected, names[len(names)-1])

	_, ok := h.Registry().LookupConnection(bob.UserID)
	assert.False(t, ok)
}

func TestNotifyTypingReachesAllConnections(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	alice, aliceConn := newTestClient("alice")
	bob, bobConn := newTestClient("bob")
	h.Register(alice)
	h.Register(bob)

	status := TypingStatus{
		SenderID:       alice.UserID.String(),
		ReceiverID:     bob.UserID.String(),
		IsTyping:       true,
		ConversationID: 7,
	}
	h.NotifyTyping(status)

	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		events := conn.received()
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		require.Equal(t, EventUserTypingStatus, last.Event)
		assert.Equal(t, status, last.Data.(TypingStatus))
	}
}

func TestSendOnlineUsersGoesToCallerOnly(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	alice, aliceConn := newTestClient("alice")
	bob, bobConn := newTestClient("bob")
	h.Register(alice)
	h.Register(bob)
	bobEventsBefore := len(bobConn.received())

	h.SendOnlineUsers(alice)

	events := aliceConn.received()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, EventOnlineUsers, last.Event)
	assert.Len(t, last.Data.([]presence.OnlineUser), 2)

	assert.Len(t, bobConn.received(), bobEventsBefore)
}

func TestDeadConnectionIsPrunedNotFatal(t *testing.T) {
	h := NewHub(presence.NewRegistry())

	alice, aliceConn := newTestClient("alice")
	bob, _ := newTestClient("bob")
	deadConn := &fakeConn{fail: true}
	dead := &Client{UserID: uuid.New(), Username: "carol", ConnectionID: uuid.NewString(), Conn: deadConn}

	h.Register(alice)
	h.Register(bob)
	h.Register(dead)

	// a failed push must not panic or affect live connections
	h.Broadcast(map[string]string{"text": "still here"})

	events := aliceConn.received()
	require.NotEmpty(t, events)
	assert.Equal(t, EventReceiveMessage, events[len(events)-1].Event)

	// the dead connection is gone; a second broadcast skips it
	h.Broadcast(map[string]string{"text": "again"})
	_, loaded := h.conns.Load(dead.ConnectionID)
	assert.False(t, loaded)
}
