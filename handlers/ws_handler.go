package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	config "github.com/smiletime/smiletime-api/configs"
	"github.com/smiletime/smiletime-api/websocket"
)

// wsEnvelope is the client-to-server frame. Type selects the operation;
// the remaining fields are operation-specific.
type wsEnvelope struct {
	Type        string                  `json:"type"`
	Token       string                  `json:"token,omitempty"`
	RecipientID string                  `json:"recipient_id,omitempty"`
	Payload     json.RawMessage         `json:"payload,omitempty"`
	Typing      *websocket.TypingStatus `json:"typing,omitempty"`
}

// ServeWs runs one connection's session. The first frame is expected to be
// an auth frame carrying a JWT; a connection that never authenticates stays
// in a degraded unregistered state (no presence entry, no broadcasts about
// it) instead of being dropped.
func ServeWs(c *websocketcontrib.Conn) {
	client := &websocket.Client{ConnectionID: uuid.NewString(), Conn: c}
	registered := false

	defer func() {
		if registered {
			hub.Unregister(client)
		}
		c.Close()
	}()

	for {
		var env wsEnvelope
		if err := c.ReadJSON(&env); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure, websocketcontrib.CloseNormalClosure) {
				log.Printf("WebSocket closed for connection %s: %v", client.ConnectionID, err)
			} else {
				log.Printf("WebSocket read error for connection %s: %v", client.ConnectionID, err)
			}
			break
		}

		switch env.Type {
		case "auth":
			if registered {
				continue
			}
			claims, err := parseToken(env.Token)
			if err != nil {
				log.Printf("WebSocket auth failed for connection %s: %v", client.ConnectionID, err)
				continue
			}
			raw, _ := claims["user_id"].(string)
			userID, err := uuid.Parse(raw)
			if err != nil {
				log.Printf("WebSocket auth failed for connection %s: invalid user_id claim", client.ConnectionID)
				continue
			}
			client.UserID = userID
			client.Username, _ = claims["user_name"].(string)
			hub.Register(client)
			registered = true

		case "broadcast":
			hub.Broadcast(env.Payload)

		case "private_message":
			if !registered {
				continue
			}
			recipientID, err := uuid.Parse(env.RecipientID)
			if err != nil {
				log.Printf("Invalid recipient id from connection %s", client.ConnectionID)
				continue
			}
			hub.SendPrivate(client, recipientID, env.Payload)

		case "typing":
			if env.Typing == nil {
				continue
			}
			hub.NotifyTyping(*env.Typing)

		case "online_users":
			if registered {
				hub.SendOnlineUsers(client)
				continue
			}
			// unregistered connections can still ask; answer directly
			snapshot := websocket.Event{Event: websocket.EventOnlineUsers, Data: hub.Registry().ListOnline()}
			if err := c.WriteJSON(snapshot); err != nil {
				log.Printf("Error answering online_users on connection %s: %v", client.ConnectionID, err)
			}

		default:
			log.Printf("Unknown frame type %q from connection %s", env.Type, client.ConnectionID)
		}
	}
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
