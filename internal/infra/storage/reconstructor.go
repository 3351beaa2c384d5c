// Package storage - reconstructor.go
// Rebuilds token standings and turn progress from the event log.
// State = f(events): the tokens table is only a cache of this fold.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/MRamiBalles/Sugoroku/server/internal/events"
)

// Reconstructor rebuilds board state from the event log.
// This is used for:
// 1. Startup when the standings backup is missing or older than the log
// 2. The per-player recap of what happened since a given turn
// 3. Auditing and debugging
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RebuiltGame holds the reconstructed state for one game.
type RebuiltGame struct {
	Standings   []TokenStanding
	State       GameState
	Events      int
	LastEventAt time.Time
}

// CoveredBy reports whether a snapshot saved at savedAt already includes
// every folded event.
func (g *RebuiltGame) CoveredBy(savedAt time.Time) bool {
	return !g.LastEventAt.After(savedAt)
}

// RecapEvent is a simplified event for a player's recap.
type RecapEvent struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Turn      int    `json:"turn"`
	Summary   string `json:"summary"` // Human-readable description
}

// RebuildGame folds every event of gameID into standings and turn progress.
func (r *Reconstructor) RebuildGame(ctx context.Context, gameID string) (*RebuiltGame, error) {
	all, err := r.eventRepo.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game events: %w", err)
	}

	rebuilt := &RebuiltGame{State: GameState{GameID: gameID}, Events: len(all)}
	for _, e := range all {
		r.applyEvent(rebuilt, e)
		if e.Timestamp.After(rebuilt.LastEventAt) {
			rebuilt.LastEventAt = e.Timestamp
		}
	}
	for i := range rebuilt.Standings {
		rebuilt.Standings[i].GameID = gameID
	}
	return rebuilt, nil
}

// Recap lists what happened to playerID, and on the board as a whole, since turn sinceTurn.
func (r *Reconstructor) Recap(ctx context.Context, gameID, playerID string, sinceTurn int) ([]RecapEvent, error) {
	evs, err := r.eventRepo.GetSinceTurn(ctx, gameID, sinceTurn)
	if err != nil {
		return nil, err
	}

	recap := make([]RecapEvent, 0, len(evs))
	for _, e := range evs {
		if e.ActorID != playerID && e.ActorID != events.ActorSystem {
			continue
		}
		recap = append(recap, RecapEvent{
			Timestamp: e.Timestamp.Format("15:04:05"),
			EventType: e.EventType,
			Turn:      e.Turn,
			Summary:   r.summarizeEvent(e, playerID),
		})
	}
	return recap, nil
}

// applyEvent modifies the rebuilt game based on event type.
func (r *Reconstructor) applyEvent(g *RebuiltGame, e GameEvent) {
	switch events.EventType(e.EventType) {
	case events.EventTypeGameRestored:
		g.Standings = g.Standings[:0]
		if players, ok := e.Payload["players"].([]interface{}); ok {
			for seat, raw := range players {
				p, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				g.Standings = append(g.Standings, TokenStanding{
					PlayerID:   stringField(p, "player_id"),
					Name:       stringField(p, "name"),
					Sprite:     stringField(p, "sprite"),
					Seat:       seat,
					PanelIndex: intField(p, "panel_index"),
					Laps:       intField(p, "laps"),
				})
			}
		}
		g.State.Turn = intField(e.Payload, "turn")
		g.State.CurrentSeat = intField(e.Payload, "current_seat")

	case events.EventTypePlayerJoined:
		if find(g.Standings, e.ActorID) >= 0 {
			return
		}
		g.Standings = append(g.Standings, TokenStanding{
			PlayerID: e.ActorID,
			Name:     stringField(e.Payload, "name"),
			Sprite:   stringField(e.Payload, "sprite"),
			Seat:     len(g.Standings),
		})

	case events.EventTypeDiceRolled:
		g.State.Turn = e.Turn
		g.State.LastRoll = intField(e.Payload, "value")

	case events.EventTypeTokenMoved:
		if i := find(g.Standings, e.ActorID); i >= 0 {
			g.Standings[i].PanelIndex = intField(e.Payload, "to")
			g.Standings[i].Laps = intField(e.Payload, "laps")
		}

	case events.EventTypeTurnAdvanced:
		g.State.CurrentSeat = intField(e.Payload, "seat")
	}
}

// summarizeEvent creates a human-readable summary.
func (r *Reconstructor) summarizeEvent(e GameEvent, observerID string) string {
	who := "Another player"
	if e.ActorID == observerID {
		who = "You"
	}

	switch events.EventType(e.EventType) {
	case events.EventTypePlayerJoined:
		return fmt.Sprintf("%s joined the board.", who)
	case events.EventTypeDiceRolled:
		return fmt.Sprintf("%s rolled a %d.", who, intField(e.Payload, "value"))
	case events.EventTypeTokenMoved:
		return fmt.Sprintf("%s moved from panel %d to panel %d.", who, intField(e.Payload, "from"), intField(e.Payload, "to"))
	case events.EventTypeLapCompleted:
		return fmt.Sprintf("%s completed lap %d.", who, intField(e.Payload, "laps"))
	case events.EventTypePanelLanded:
		return fmt.Sprintf("%s landed on %s.", who, stringField(e.Payload, "label"))
	case events.EventTypeTurnAdvanced:
		if stringField(e.Payload, "next_player_id") == observerID {
			return "It is your turn."
		}
		return "The turn passed on."
	case events.EventTypeGameRestored:
		return "The board was restored after a restart."
	default:
		return "Something happened on the board."
	}
}

func find(standings []TokenStanding, playerID string) int {
	for i, s := range standings {
		if s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Payload numbers come back from JSON as float64.
func intField(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
