// Package storage provides the persistence layer for the board server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("storage: not found")

// GameEvent mirrors the domain event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	GameID    string                 `json:"game_id" db:"game_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	Turn      int                    `json:"turn" db:"turn"`
}

// EventRepository defines the interface for event persistence.
// The domain uses this interface; the implementation is in infra.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event GameEvent) error

	// GetByGameID retrieves all events for a specific game (for replay).
	GetByGameID(ctx context.Context, gameID string) ([]GameEvent, error)

	// GetSinceTurn retrieves every event from turn onwards.
	GetSinceTurn(ctx context.Context, gameID string, turn int) ([]GameEvent, error)
}

// TokenStanding is the persisted discrete state of one token.
type TokenStanding struct {
	PlayerID    string    `json:"player_id" db:"player_id"`
	GameID      string    `json:"game_id" db:"game_id"`
	Name        string    `json:"name" db:"name"`
	Sprite      string    `json:"sprite" db:"sprite"`
	Seat        int       `json:"seat" db:"seat"`
	PanelIndex  int       `json:"panel_index" db:"panel_index"`
	Laps        int       `json:"laps" db:"laps"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// StandingRepository defines the interface for token standing snapshots.
type StandingRepository interface {
	// ReplaceAll swaps a game's standings for the given set in one transaction.
	ReplaceAll(ctx context.Context, gameID string, standings []TokenStanding) error

	// GetByGameID retrieves all standings for a game in seat order.
	GetByGameID(ctx context.Context, gameID string) ([]TokenStanding, error)
}

// GameState is the persisted turn progress of a game.
type GameState struct {
	GameID      string    `json:"game_id" db:"game_id"`
	Turn        int       `json:"turn" db:"turn"`
	CurrentSeat int       `json:"current_seat" db:"current_seat"`
	LastRoll    int       `json:"last_roll" db:"last_roll"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// GameStateRepository stores one GameState per game.
type GameStateRepository interface {
	Save(ctx context.Context, state GameState) error

	// Load returns ErrNotFound for a game never saved.
	Load(ctx context.Context, gameID string) (*GameState, error)
}
