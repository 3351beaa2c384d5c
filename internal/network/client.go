package network

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/MRamiBalles/Sugoroku/server/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client actions. Incoming messages look like
// {"type":"JOIN","player_id":"p1","name":"Alice","sprite":"runner.png"} or {"type":"ROLL"}.
const (
	ActionJoin = "JOIN"
	ActionRoll = "ROLL"
)

// Client is one WebSocket connection. A client becomes a player once it joins.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	limiter  rateWindow
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.opts.ClientSendBuffer),
		limiter: rateWindow{limit: hub.opts.MaxMessagesPerSecond},
	}
}

// Register adds the client to the hub. It reports false once the hub has stopped.
func (c *Client) Register() bool {
	select {
	case c.hub.register <- c:
		return true
	case <-c.hub.done:
		return false
	}
}

// ReadPump pumps messages from the websocket connection to the game.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.Get().RecordWSError()
				c.hub.logger.Warn("WebSocket read error: " + err.Error())
			}
			break
		}
		metrics.Get().RecordWSMessage(true)
		c.handleMessage(message, time.Now())
	}
}

func (c *Client) handleMessage(message []byte, now time.Time) {
	if !c.limiter.allow(now) {
		c.replyError("", "rate limit exceeded")
		return
	}
	if !gjson.ValidBytes(message) {
		c.replyError("", "malformed action")
		return
	}

	action := strings.ToUpper(gjson.GetBytes(message, "type").String())
	switch action {
	case ActionJoin:
		c.handleJoin(message)
	case ActionRoll:
		c.handleRoll(message)
	default:
		c.hub.logger.Warn("Unknown client action type: " + action)
		c.replyError(action, "unknown action")
	}
}

func (c *Client) handleJoin(message []byte) {
	fields := gjson.GetManyBytes(message, "player_id", "name", "sprite")
	id, name, sprite := fields[0].String(), fields[1].String(), fields[2].String()
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" {
		name = id
	}

	snap, err := c.hub.game.Join(id, name, sprite)
	if err != nil {
		c.replyError(ActionJoin, err.Error())
		return
	}
	c.playerID = id
	c.reply(KindJoined, snap)
}

func (c *Client) handleRoll(message []byte) {
	id := gjson.GetBytes(message, "player_id").String()
	if id == "" {
		id = c.playerID
	}
	if id == "" {
		c.replyError(ActionRoll, "join before rolling")
		return
	}

	result, err := c.hub.game.TakeTurn(id)
	if err != nil {
		c.replyError(ActionRoll, err.Error())
		return
	}
	c.reply(KindTurn, result)
}

func (c *Client) reply(kind string, data interface{}) {
	msg, err := envelope(kind, data)
	if err != nil {
		c.hub.logger.Errorf("Failed to serialize %s reply: %v", kind, err)
		return
	}
	c.hub.sendTo(c, msg)
}

func (c *Client) replyError(action, reason string) {
	c.reply(KindError, map[string]string{"action": action, "error": reason})
}

// WritePump pumps messages from the hub to the websocket connection.
// Messages queued together go out as one frame, one JSON document per line.
func (c *Client) WritePump() {
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
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				metrics.Get().RecordWSError()
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				metrics.Get().RecordWSError()
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

// rateWindow allows limit messages per one-second window.
type rateWindow struct {
	start time.Time
	count int
	limit int
}

func (r *rateWindow) allow(now time.Time) bool {
	if now.Sub(r.start) >= time.Second {
		r.start = now
		r.count = 0
	}
	r.count++
	return r.count <= r.limit
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Browser clients are served from other origins during development
	},
}

// ServeWs handles websocket requests from the peer.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if hub.ClientCount() >= hub.opts.MaxClients {
		http.Error(w, "board is full", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.Get().RecordWSError()
		hub.logger.Warn("Failed to upgrade websocket connection: " + err.Error())
		return
	}

	client := NewClient(hub, conn)
	if !client.Register() {
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
