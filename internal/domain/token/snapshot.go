package token

import "github.com/MRamiBalles/Sugoroku/server/internal/domain/space"

// Snapshot is a read-only copy of a token for renderers and UI layers.
type Snapshot struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Sprite     string     `json:"sprite"`
	PanelIndex int        `json:"panel_index"`
	Laps       int        `json:"laps"`
	Position   space.Vec3 `json:"position"`
	Target     space.Vec3 `json:"target"`
	Facing     string     `json:"facing"`
	Rotation   float64    `json:"rotation"`
	Moving     bool       `json:"moving"`
}

// Snapshot copies the token's current state.
func (t *Token) Snapshot() Snapshot {
	return Snapshot{
		ID:         t.ID,
		Name:       t.Name,
		Sprite:     t.Sprite,
		PanelIndex: t.panelIndex,
		Laps:       t.laps,
		Position:   t.position,
		Target:     t.target,
		Facing:     t.facing.String(),
		Rotation:   t.facing.Rotation(),
		Moving:     t.moving,
	}
}
