package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voluntor/voluntor/internal/chat"
	"github.com/voluntor/voluntor/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one live connection: a websocket, the identity that opened
// it, and the buffered channel its write pump drains.
type Client struct {
	id       string
	identity models.Identity
	hub      *Hub
	gateway  *chat.Gateway
	conn     *websocket.Conn
	send     chan []byte
	logger   *zap.Logger
}

// inboundEvent is a client-to-server frame.
type inboundEvent struct {
	Type      string    `json:"type"` // "join" or "send"
	ChatID    int64     `json:"chat_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type rejectEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ServeWS upgrades the request and runs the connection's pumps until the
// peer goes away.
func ServeWS(hub *Hub, gateway *chat.Gateway, w http.ResponseWriter, r *http.Request, identity models.Identity) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:       uuid.NewString(),
		identity: identity,
		hub:      hub,
		gateway:  gateway,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
	client.logger = hub.logger.With(zap.String("conn", client.id), zap.String("user", identity.Email))

	if err := gateway.HandleConnect(client.id); err != nil {
		// Duplicate id means the generator misbehaved; fatal to this
		// connect attempt only.
		client.logger.Error("connect refused", zap.Error(err))
		conn.Close()
		return
	}
	hub.attach(client)

	go client.writePump()
	go client.readPump()
}

// readPump reads inbound events until the connection drops. It is the
// connection's single reader, which is what gives one connection's sends
// their ordering. Transport loss and clean closes both land in the same
// deferred teardown as an explicit disconnect.
func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c)
		c.gateway.HandleDisconnect(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read failed", zap.Error(err))
			}
			return
		}
		c.handleEvent(raw)
	}
}

func (c *Client) handleEvent(raw []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.reject("bad_event")
		return
	}

	switch ev.Type {
	case "join":
		if err := c.gateway.HandleJoin(c.id, ev.ChatID); err != nil {
			c.logger.Warn("join failed", zap.Int64("chat", ev.ChatID), zap.Error(err))
			c.reject(chat.ReasonCode(err))
		}
	case "send":
		msg := models.Message{
			ChatID:    ev.ChatID,
			Author:    c.identity.Email,
			Content:   ev.Content,
			CreatedAt: ev.CreatedAt,
		}
		if err := c.gateway.HandleSend(c.id, msg); err != nil {
			c.reject(chat.ReasonCode(err))
		}
	default:
		c.reject("unknown_event")
	}
}

// reject reports a per-event failure back to this connection only.
func (c *Client) reject(reason string) {
	payload, err := json.Marshal(rejectEvent{Type: "reject", Reason: reason})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
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
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
