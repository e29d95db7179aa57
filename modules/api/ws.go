package api

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/modules/broadcast"
)

// WSControl is the client-to-server control message and its acknowledgement.
// Board events flow the other way, shaped by the broadcast module.
type WSControl struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	IsTyping  bool   `json:"is_typing,omitempty"`
	Error     string `json:"error,omitempty"`
}

// typingStatus is relayed to everyone on the project channel when a client
// reports a typing change.
type typingStatus struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	IsTyping  bool   `json:"is_typing"`
}

// Control message types.
const (
	wsTypeConnected    = "connected"
	wsTypeJoinProject  = "join_project"
	wsTypeLeaveProject = "leave_project"
	wsTypeJoined       = "joined"
	wsTypeLeft         = "left"
	wsTypeTyping       = "user_typing"
	wsTypeTypingStatus = "user_typing_status"
	wsTypeError        = "error"
)

// handleWebSocket handles WebSocket connections at /ws. The session token
// arrives as a query parameter; an unauthenticated connection is closed
// immediately. Joining a project channel requires at least viewer role.
//
// Once the client is registered the hub may write broadcasts at any time, so
// every ack from here on goes through Client.Send rather than the raw
// connection.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	token := c.Query("token")
	userID, err := m.identity.Service().Resolve(context.Background(), token)
	if err != nil {
		_ = c.WriteJSON(WSControl{Type: wsTypeError, Error: "Invalid or expired session"})
		_ = c.Close()
		return
	}

	client := &broadcast.Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   c,
	}
	m.hub.Register(client)
	defer func() {
		m.hub.Unregister(client)
		log.Printf("[api] WebSocket client disconnected: %s (user %s)", client.ID, userID)
	}()

	log.Printf("[api] WebSocket client connected: %s (user %s)", client.ID, userID)

	if err := client.SendJSON(WSControl{Type: wsTypeConnected, UserID: userID}); err != nil {
		log.Printf("[api] Failed to send welcome: %v", err)
		return
	}

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Client %s closed connection", client.ID)
			} else {
				log.Printf("[api] Read error from %s: %v", client.ID, err)
			}
			break
		}

		var msg WSControl
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			m.sendWSError(client, "Invalid message format")
			continue
		}

		switch msg.Type {
		case wsTypeJoinProject:
			m.handleJoinProject(client, msg)
		case wsTypeLeaveProject:
			m.handleLeaveProject(client, msg)
		case wsTypeTyping:
			m.handleTyping(client, msg)
		default:
			m.sendWSError(client, "Unknown message type: "+msg.Type)
		}
	}
}

func (m *Module) handleJoinProject(client *broadcast.Client, msg WSControl) {
	if msg.ProjectID == "" {
		m.sendWSError(client, "Project ID is required")
		return
	}

	// Channel membership follows the same access policy as reads.
	_, err := m.project.Service().Access().Require(context.Background(), client.UserID, msg.ProjectID, board.RoleViewer)
	if err != nil {
		m.sendWSError(client, "Access denied for project "+msg.ProjectID)
		return
	}

	m.hub.Subscribe(client.ID, broadcast.ProjectChannel(msg.ProjectID))
	_ = client.SendJSON(WSControl{Type: wsTypeJoined, ProjectID: msg.ProjectID})
}

func (m *Module) handleLeaveProject(client *broadcast.Client, msg WSControl) {
	if msg.ProjectID == "" {
		m.sendWSError(client, "Project ID is required")
		return
	}

	m.hub.Unsubscribe(client.ID, broadcast.ProjectChannel(msg.ProjectID))
	_ = client.SendJSON(WSControl{Type: wsTypeLeft, ProjectID: msg.ProjectID})
}

// handleTyping relays a typing indicator to the project channel. The sender
// receives it too; clients filter their own user ID.
func (m *Module) handleTyping(client *broadcast.Client, msg WSControl) {
	if msg.ProjectID == "" {
		m.sendWSError(client, "Project ID is required")
		return
	}
	_, err := m.project.Service().Access().Require(context.Background(), client.UserID, msg.ProjectID, board.RoleViewer)
	if err != nil {
		m.sendWSError(client, "Access denied for project "+msg.ProjectID)
		return
	}

	m.hub.Publish(broadcast.ProjectChannel(msg.ProjectID), typingStatus{
		Type:      wsTypeTypingStatus,
		ProjectID: msg.ProjectID,
		UserID:    client.UserID,
		IsTyping:  msg.IsTyping,
	})
}

func (m *Module) sendWSError(client *broadcast.Client, message string) {
	_ = client.SendJSON(WSControl{Type: wsTypeError, Error: message})
}
