package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, game_id, timestamp, event_type, actor_id, payload, turn)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.GameID, event.Timestamp.UTC(), event.EventType, event.ActorID,
		string(payloadBytes), event.Turn,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const selectEvents = `SELECT id, game_id, timestamp, event_type, actor_id, payload, turn FROM events`

// Rows come back in insertion order; several events share a turn and often a timestamp.
func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payloadStr string
		err := rows.Scan(&e.ID, &e.GameID, &e.Timestamp, &e.EventType, &e.ActorID, &payloadStr, &e.Turn)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, fmt.Errorf("event %s payload: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByGameID(ctx context.Context, gameID string) ([]GameEvent, error) {
	query := selectEvents + ` WHERE game_id = ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, gameID)
}

func (r *SQLiteEventRepository) GetSinceTurn(ctx context.Context, gameID string, turn int) ([]GameEvent, error) {
	query := selectEvents + ` WHERE game_id = ? AND turn >= ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, gameID, turn)
}

// ---------------------------------------------------------
// SQLiteStandingRepository
// ---------------------------------------------------------

type SQLiteStandingRepository struct {
	db *sql.DB
}

func NewSQLiteStandingRepository(db *sql.DB) *SQLiteStandingRepository {
	return &SQLiteStandingRepository{db: db}
}

const upsertStanding = `
	INSERT INTO tokens (player_id, game_id, name, sprite, seat, panel_index, laps, last_updated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(game_id, player_id) DO UPDATE SET
		name=excluded.name,
		sprite=excluded.sprite,
		seat=excluded.seat,
		panel_index=excluded.panel_index,
		laps=excluded.laps,
		last_updated=excluded.last_updated
`

func (r *SQLiteStandingRepository) ReplaceAll(ctx context.Context, gameID string, standings []TokenStanding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin standings backup: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("failed to clear standings: %w", err)
	}
	for _, s := range standings {
		_, err := tx.ExecContext(ctx, upsertStanding,
			s.PlayerID, gameID, s.Name, s.Sprite, s.Seat, s.PanelIndex, s.Laps, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to write standing %s: %w", s.PlayerID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteStandingRepository) GetByGameID(ctx context.Context, gameID string) ([]TokenStanding, error) {
	query := `SELECT player_id, game_id, name, sprite, seat, panel_index, laps, last_updated FROM tokens WHERE game_id = ? ORDER BY seat ASC`
	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []TokenStanding
	for rows.Next() {
		var s TokenStanding
		var name, sprite sql.NullString
		if err := rows.Scan(&s.PlayerID, &s.GameID, &name, &sprite, &s.Seat, &s.PanelIndex, &s.Laps, &s.LastUpdated); err != nil {
			return nil, err
		}
		s.Name, s.Sprite = name.String, sprite.String
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

// ---------------------------------------------------------
// SQLiteGameStateRepository
// ---------------------------------------------------------

type SQLiteGameStateRepository struct {
	db *sql.DB
}

func NewSQLiteGameStateRepository(db *sql.DB) *SQLiteGameStateRepository {
	return &SQLiteGameStateRepository{db: db}
}

func (r *SQLiteGameStateRepository) Save(ctx context.Context, state GameState) error {
	query := `
		INSERT INTO game_state (game_id, turn, current_seat, last_roll, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			turn=excluded.turn,
			current_seat=excluded.current_seat,
			last_roll=excluded.last_roll,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		state.GameID, state.Turn, state.CurrentSeat, state.LastRoll, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save game state: %w", err)
	}
	return nil
}

func (r *SQLiteGameStateRepository) Load(ctx context.Context, gameID string) (*GameState, error) {
	query := `SELECT game_id, turn, current_seat, last_roll, last_updated FROM game_state WHERE game_id = ?`
	var s GameState
	err := r.db.QueryRowContext(ctx, query, gameID).Scan(&s.GameID, &s.Turn, &s.CurrentSeat, &s.LastRoll, &s.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
