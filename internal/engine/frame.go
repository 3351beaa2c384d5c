package engine

import (
	"github.com/MRamiBalles/Sugoroku/server/internal/domain/sprite"
	"github.com/MRamiBalles/Sugoroku/server/internal/domain/token"
)

// TokenFrame is everything a renderer needs to draw one token.
type TokenFrame struct {
	token.Snapshot
	Sprite sprite.TileSnapshot `json:"tile"`
}

// Frame is the read-only result of one tick.
type Frame struct {
	Tick            int64        `json:"tick"`
	Turn            int          `json:"turn"`
	CurrentPlayerID string       `json:"current_player_id,omitempty"`
	LastRoll        int          `json:"last_roll,omitempty"`
	Tokens          []TokenFrame `json:"tokens"`
}

// Moving reports whether any token in the frame is still walking.
func (f Frame) Moving() bool {
	for _, t := range f.Tokens {
		if t.Moving {
			return true
		}
	}
	return false
}

func (e *Engine) frameLocked() Frame {
	players := e.turns.Players()
	f := Frame{
		Tick:     e.tickNumber,
		Turn:     e.turnNumber,
		LastRoll: e.lastRoll,
		Tokens:   make([]TokenFrame, len(players)),
	}
	if cur, err := e.turns.CurrentPlayer(); err == nil {
		f.CurrentPlayerID = cur.ID
	}
	for i, p := range players {
		f.Tokens[i] = TokenFrame{Snapshot: p.Snapshot(), Sprite: e.animators[p.ID].Snapshot()}
	}
	return f
}
