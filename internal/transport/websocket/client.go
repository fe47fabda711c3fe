package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  logger.Logger
}

type ClientMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`

	// Visibility signaling: {"type":"visibility","class":"process","visible":true}
	Class   string `json:"class,omitempty"`
	Visible bool   `json:"visible,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, log logger.Logger) *Client {
	return &Client{
		ID:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
		log:  log,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	subscribed := make(map[string]bool)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug("ws: client disconnected", "id", c.ID, "error", err)
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.log.Error("ws: invalid json message", "id", c.ID, "error", err)
			continue
		}

		switch msg.Type {
		case "subscribe":
			if msg.Channel != "" && !subscribed[msg.Channel] {
				subscribed[msg.Channel] = true
				c.hub.subscribe <- &Subscription{client: c, channel: msg.Channel}
			}

		case "unsubscribe":
			if subscribed[msg.Channel] {
				delete(subscribed, msg.Channel)
				c.hub.unsubscribe <- &Subscription{client: c, channel: msg.Channel}
			}

		case "visibility":
			class := domain.MetricClass(msg.Class)
			if !class.Valid() {
				c.log.Warn("ws: visibility for unknown class", "id", c.ID, "class", msg.Class)
				continue
			}
			c.hub.visibility <- &visibilityChange{client: c, class: class, visible: msg.Visible}

		default:
			c.log.Warn("ws: unknown message type", "id", c.ID, "type", msg.Type)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(message); err != nil {
				w.Close()
				return
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
