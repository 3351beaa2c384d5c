// Package events provides the append-only log of everything that happens on the board.
// Standings can be rebuilt from it and the history endpoint replays it.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypePlayerJoined EventType = "PLAYER_JOINED"
	EventTypeDiceRolled   EventType = "DICE_ROLLED"
	EventTypeTokenMoved   EventType = "TOKEN_MOVED"
	EventTypeLapCompleted EventType = "LAP_COMPLETED"
	EventTypePanelLanded  EventType = "PANEL_LANDED"
	EventTypeTurnAdvanced EventType = "TURN_ADVANCED"
	EventTypeGameRestored EventType = "GAME_RESTORED"
)

// ActorSystem is the actor recorded for events the board itself causes.
const ActorSystem = "SYSTEM_BOARD"

// PlayerJoinedPayload is attached to EventTypePlayerJoined.
type PlayerJoinedPayload struct {
	Name   string `json:"name"`
	Sprite string `json:"sprite"`
	Seat   int    `json:"seat"`
}

// DiceRolledPayload is attached to EventTypeDiceRolled.
type DiceRolledPayload struct {
	Value int `json:"value"`
}

// TokenMovedPayload is attached to EventTypeTokenMoved.
type TokenMovedPayload struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Steps int `json:"steps"`
	Laps  int `json:"laps"`
}

// LapCompletedPayload is attached to EventTypeLapCompleted.
type LapCompletedPayload struct {
	Laps int `json:"laps"`
}

// PanelLandedPayload is attached to EventTypePanelLanded.
type PanelLandedPayload struct {
	PanelIndex int    `json:"panel_index"`
	Label      string `json:"label"`
}

// TurnAdvancedPayload is attached to EventTypeTurnAdvanced.
type TurnAdvancedPayload struct {
	NextPlayerID string `json:"next_player_id"`
	Seat         int    `json:"seat"`
}

// SeatedPlayer is one entry of GameRestoredPayload.
type SeatedPlayer struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	Sprite     string `json:"sprite"`
	PanelIndex int    `json:"panel_index"`
	Laps       int    `json:"laps"`
}

// GameRestoredPayload is attached to EventTypeGameRestored.
type GameRestoredPayload struct {
	Players     []SeatedPlayer `json:"players"`
	Turn        int            `json:"turn"`
	CurrentSeat int            `json:"current_seat"`
}

// GameEvent represents an immutable record of an action in the game.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	Payload   interface{} `json:"payload"`
	Turn      int         `json:"turn"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events.
type EventLog struct {
	mu          sync.RWMutex
	events      []GameEvent
	persister   EventPersister
	onPersistFn func(error)
	subscribers []func(GameEvent)
}

// NewEventLog creates a new event log. persister may be nil.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
}

// OnPersistError registers a callback for failed writes to the persister.
func (el *EventLog) OnPersistError(fn func(error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.onPersistFn = fn
}

// Subscribe registers fn to receive every event appended from now on.
// fn runs synchronously inside Append and must not append itself.
func (el *EventLog) Subscribe(fn func(GameEvent)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.subscribers = append(el.subscribers, fn)
}

// Append adds a new event to the log, filling ID and Timestamp when empty.
// Events are immutable once appended.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	subscribers := el.subscribers
	persister := el.persister
	onErr := el.onPersistFn
	el.mu.Unlock()

	if persister != nil {
		if err := persister.Append(event); err != nil && onErr != nil {
			onErr(err)
		}
	}
	for _, fn := range subscribers {
		fn(event)
	}
	return event
}

// GetByActor returns all events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.ActorID == actorID })
}

// GetByType returns all events of one type.
func (el *EventLog) GetByType(eventType EventType) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.Type == eventType })
}

// GetByTurn returns all events recorded during one turn.
func (el *EventLog) GetByTurn(turn int) []GameEvent {
	return el.filter(func(e GameEvent) bool { return e.Turn == turn })
}

// Replay returns a copy of the full history of events.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]GameEvent, len(el.events))
	copy(out, el.events)
	return out
}

// Len returns the number of events in the log.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

func (el *EventLog) filter(keep func(GameEvent) bool) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
