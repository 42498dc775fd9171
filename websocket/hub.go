package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smiletime/smiletime-api/presence"
)

// Server-to-client event names.
const (
	EventUserConnected         = "UserConnected"
	EventUserDisconnected      = "UserDisconnected"
	EventReceiveMessage        = "ReceiveMessage"
	EventReceivePrivateMessage = "ReceivePrivateMessage"
	EventUserTypingStatus      = "UserTypingStatus"
	EventOnlineUsers           = "OnlineUsers"
)

// Pusher is the capability handle for pushing an event to one live
// connection. A push to a connection that has already closed returns an
// error; the hub logs it and prunes the connection instead of propagating.
type Pusher interface {
	WriteJSON(v interface{}) error
}

// Event is the server-to-client envelope.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client binds one live connection to one user identity. An unauthenticated
// connection has a Nil UserID and is never registered with the hub.
type Client struct {
	UserID       uuid.UUID
	Username     string
	ConnectionID string
	Conn         Pusher
}

// TypingStatus is relayed to every connection; receivers filter client-side.
type TypingStatus struct {
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id"`
	IsTyping       bool   `json:"is_typing"`
	ConversationID uint   `json:"conversation_id"`
}

// PrivateMessage is the payload pushed for a private message. Delivery here
// is realtime-only; durable persistence goes through the message store
// separately.
type PrivateMessage struct {
	SenderID   string      `json:"sender_id"`
	SenderName string      `json:"sender_name"`
	Message    interface{} `json:"message"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Hub fans events out to live connections. The presence registry is the
// shared source of truth for who is reachable; the hub's own map resolves a
// connection id to its push handle. Both are safe for concurrent use from
// many connection goroutines.
type Hub struct {
	registry *presence.Registry
	conns    sync.Map // connectionID string -> *Client
}

func NewHub(registry *presence.Registry) *Hub {
	return &Hub{registry: registry}
}

func (h *Hub) Registry() *presence.Registry {
	return h.registry
}

// Register adds the client's connection, records presence and announces
// UserConnected to everyone else. Last connect wins: a second connection for
// the same user takes over the user's reachability.
func (h *Hub) Register(client *Client) {
	h.conns.Store(client.ConnectionID, client)
	entry := h.registry.Connect(client.UserID, client.ConnectionID, client.Username)
	log.Printf("Client registered: %s (%s)", client.UserID, client.ConnectionID)

	h.broadcastExcept(client.ConnectionID, Event{
		Event: EventUserConnected,
		Data: presence.OnlineUser{
			UserID:   entry.UserID,
			Username: entry.Username,
			Online:   true,
		},
	})
}

// Unregister removes the connection and, if it was still the user's current
// one, marks the user offline and announces UserDisconnected. A stale
// connection (already superseded by a reconnect) only removes itself.
func (h *Hub) Unregister(client *Client) {
	h.conns.Delete(client.ConnectionID)

	connID, online := h.registry.LookupConnection(client.UserID)
	if !online || connID != client.ConnectionID {
		return
	}
	h.registry.Disconnect(client.UserID)
	log.Printf("Client unregistered: %s (%s)", client.UserID, client.ConnectionID)

	h.broadcastExcept(client.ConnectionID, Event{
		Event: EventUserDisconnected,
		Data:  map[string]interface{}{"user_id": client.UserID},
	})
}

// Broadcast relays the payload to every connection, including the sender.
func (h *Hub) Broadcast(payload interface{}) {
	h.broadcastExcept("", Event{Event: EventReceiveMessage, Data: payload})
}

// SendPrivate pushes the payload to the recipient's live connection and
// echoes it to the sender. An offline recipient drops the payload silently;
// that is not an error at the realtime layer.
func (h *Hub) SendPrivate(sender *Client, recipientID uuid.UUID, payload interface{}) {
	connID, online := h.registry.LookupConnection(recipientID)
	if !online {
		return
	}

	event := Event{
		Event: EventReceivePrivateMessage,
		Data: PrivateMessage{
			SenderID:   sender.UserID.String(),
			SenderName: sender.Username,
			Message:    payload,
			Timestamp:  time.Now(),
		},
	}
	h.push(connID, event)
	h.push(sender.ConnectionID, event)
}

// NotifyTyping broadcasts a typing indicator to every connection.
func (h *Hub) NotifyTyping(status TypingStatus) {
	h.broadcastExcept("", Event{Event: EventUserTypingStatus, Data: status})
}

// SendOnlineUsers pushes the current online snapshot to the caller only.
func (h *Hub) SendOnlineUsers(client *Client) {
	h.push(client.ConnectionID, Event{Event: EventOnlineUsers, Data: h.registry.ListOnline()})
}

// push delivers an event to one connection, best-effort. A dead connection
// is pruned; the failure never reaches the caller.
func (h *Hub) push(connectionID string, event Event) {
	v, ok := h.conns.Load(connectionID)
	if !ok {
		return
	}
	client := v.(*Client)
	if err := client.Conn.WriteJSON(event); err != nil {
		log.Printf("Error pushing %s to connection %s: %v", event.Event, connectionID, err)
		h.conns.Delete(connectionID)
	}
}

func (h *Hub) broadcastExcept(excludeConnectionID string, event Event) {
	h.conns.Range(func(k, _ any) bool {
		connectionID := k.(string)
		if connectionID != excludeConnectionID {
			h.push(connectionID, event)
		}
		return true
	})
}
