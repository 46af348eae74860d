package ws

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
)

// Client is one connected socket. Frames from the client are room control
// only; all data flows server → client as bus events.
type Client struct {
	UserID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
}

// frame is what clients send to join or leave a conversation room.
type frame struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil || f.ConversationID == "" {
			continue
		}
		switch f.Action {
		case "subscribe":
			if !c.hub.joinRoom(c, f.ConversationID) {
				return
			}
		case "unsubscribe":
			c.hub.leaveRoom(c, f.ConversationID)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
