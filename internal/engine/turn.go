package engine

import (
	"fmt"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/token"
)

// TurnManager owns the roster and whose turn it is.
// It does NOT move tokens; the Engine does that after a roll.
type TurnManager struct {
	players []*token.Token
	current int
	roller  Roller
}

// NewTurnManager creates an empty roster rolling with roller.
func NewTurnManager(roller Roller) *TurnManager {
	return &TurnManager{roller: roller}
}

// RollDice draws a die value. It does not change whose turn it is.
func (tm *TurnManager) RollDice() int {
	return tm.roller.Roll()
}

// AddPlayer appends t to the roster. The current turn is kept.
func (tm *TurnManager) AddPlayer(t *token.Token) error {
	if _, ok := tm.find(t.ID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePlayer, t.ID)
	}
	tm.players = append(tm.players, t)
	return nil
}

// CurrentPlayer returns the player whose turn it is.
func (tm *TurnManager) CurrentPlayer() (*token.Token, error) {
	if len(tm.players) == 0 {
		return nil, ErrEmptyRoster
	}
	return tm.players[tm.current], nil
}

// CurrentSeat returns the roster index of the current player.
func (tm *TurnManager) CurrentSeat() int {
	return tm.current
}

// SetCurrent makes seat the current turn. Used when resuming a saved session.
func (tm *TurnManager) SetCurrent(seat int) error {
	if seat < 0 || seat >= len(tm.players) {
		return fmt.Errorf("%w: seat %d not in [0,%d)", ErrIndexOutOfRange, seat, len(tm.players))
	}
	tm.current = seat
	return nil
}

// AdvanceTurn passes the turn to the next player, wrapping to the first.
func (tm *TurnManager) AdvanceTurn() (*token.Token, error) {
	if len(tm.players) == 0 {
		return nil, ErrEmptyRoster
	}
	tm.current = (tm.current + 1) % len(tm.players)
	return tm.players[tm.current], nil
}

// PlayerAt returns the player in seat i.
func (tm *TurnManager) PlayerAt(i int) (*token.Token, error) {
	if i < 0 || i >= len(tm.players) {
		return nil, fmt.Errorf("%w: seat %d not in [0,%d)", ErrIndexOutOfRange, i, len(tm.players))
	}
	return tm.players[i], nil
}

// Player looks a player up by ID.
func (tm *TurnManager) Player(id string) (*token.Token, bool) {
	i, ok := tm.find(id)
	if !ok {
		return nil, false
	}
	return tm.players[i], true
}

// Players returns the roster in seat order.
func (tm *TurnManager) Players() []*token.Token {
	out := make([]*token.Token, len(tm.players))
	copy(out, tm.players)
	return out
}

// Len returns the roster size.
func (tm *TurnManager) Len() int {
	return len(tm.players)
}

func (tm *TurnManager) find(id string) (int, bool) {
	for i, p := range tm.players {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}
