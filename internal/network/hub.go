// Package network carries the board to its clients: a WebSocket hub that
// streams frames and events, and the REST API around it.
package network

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tidwall/sjson"

	"github.com/MRamiBalles/Sugoroku/server/internal/engine"
	"github.com/MRamiBalles/Sugoroku/server/internal/events"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/metrics"
)

// Message kinds sent to clients.
const (
	KindFrame  = "frame"
	KindEvent  = "event"
	KindJoined = "joined"
	KindTurn   = "turn"
	KindError  = "error"
)

// HubOptions sizes the hub's queues.
type HubOptions struct {
	BroadcastBuffer      int
	ClientSendBuffer     int
	MaxClients           int
	MaxMessagesPerSecond int
}

// DefaultHubOptions matches the default tuning preset.
func DefaultHubOptions() HubOptions {
	return HubOptions{BroadcastBuffer: 256, ClientSendBuffer: 64, MaxClients: 200, MaxMessagesPerSecond: 20}
}

type directMessage struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Every outgoing message is stamped with a "seq" in the order the hub sends it.
type Hub struct {
	game Game

	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	done       chan struct{}
	seq        int64
	opts       HubOptions
	logger     *logger.Logger
}

// NewHub initializes a new WebSocket Hub serving game.
func NewHub(game Game, opts HubOptions, log *logger.Logger) *Hub {
	def := DefaultHubOptions()
	if opts.BroadcastBuffer <= 0 {
		opts.BroadcastBuffer = def.BroadcastBuffer
	}
	if opts.ClientSendBuffer <= 0 {
		opts.ClientSendBuffer = def.ClientSendBuffer
	}
	if opts.MaxClients <= 0 {
		opts.MaxClients = def.MaxClients
	}
	if opts.MaxMessagesPerSecond <= 0 {
		opts.MaxMessagesPerSecond = def.MaxMessagesPerSecond
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		game:       game,
		broadcast:  make(chan []byte, opts.BroadcastBuffer),
		direct:     make(chan directMessage, opts.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		opts:       opts,
		logger:     log,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			message = h.stamp(message)
			for client := range h.clients {
				h.deliverLocked(client, message)
			}
			h.mu.Unlock()
		case dm := <-h.direct:
			h.mu.Lock()
			if h.clients[dm.client] {
				h.deliverLocked(dm.client, h.stamp(dm.message))
			}
			h.mu.Unlock()
		}
	}
}

// deliverLocked queues message for client. A client whose queue is full is
// too slow to keep up and gets disconnected.
func (h *Hub) deliverLocked(client *Client, message []byte) {
	select {
	case client.send <- message:
		metrics.Get().RecordWSMessage(false)
	default:
		metrics.Get().RecordWSDrop()
		h.logger.Warn("Dropping slow WebSocket client")
		h.removeLocked(client)
	}
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	metrics.Get().RecordWSConnection(-1)
	h.logger.Info("WebSocket client disconnected")
}

func (h *Hub) stamp(message []byte) []byte {
	h.seq++
	out, err := sjson.SetBytes(message, "seq", h.seq)
	if err != nil {
		h.logger.Errorf("Failed to stamp broadcast: %v", err)
		return message
	}
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Present broadcasts a frame. It implements engine.Presenter and never blocks
// the frame loop: when the broadcast queue is full the frame is skipped.
func (h *Hub) Present(f engine.Frame) {
	msg, err := envelope(KindFrame, f)
	if err != nil {
		h.logger.Errorf("Failed to serialize Frame for WebSocket broadcast: %v", err)
		return
	}
	h.enqueue(msg)
}

// BroadcastEvent takes a GameEvent, serializes it to JSON, and sends it to all connected clients.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	msg, err := envelope(KindEvent, event)
	if err != nil {
		h.logger.Errorf("Failed to serialize GameEvent for WebSocket broadcast: %v", err)
		return
	}
	h.enqueue(msg)
}

// Follow forwards every event appended to eventLog from now on.
func (h *Hub) Follow(eventLog *events.EventLog) {
	eventLog.Subscribe(h.BroadcastEvent)
}

func (h *Hub) enqueue(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		metrics.Get().RecordWSDrop()
	}
}

// sendTo queues msg for one client only.
func (h *Hub) sendTo(c *Client, msg []byte) {
	select {
	case h.direct <- directMessage{client: c, message: msg}:
	default:
		metrics.Get().RecordWSDrop()
	}
}

// envelope wraps data as {"kind": kind, "data": data}.
func envelope(kind string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	msg, err := sjson.SetBytes([]byte(`{}`), "kind", kind)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(msg, "data", raw)
}
