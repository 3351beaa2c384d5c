// Package token defines a player's game piece: where it stands on the track
// and where it is drawn while walking there.
// This package is PURE and must NOT import any infrastructure packages.
package token

import (
	"math"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/space"
)

// Facing is the direction a token's sprite looks.
type Facing int

const (
	FacingRight Facing = iota // default forward orientation
	FacingLeft
	FacingUp
	FacingDown
)

func (f Facing) String() string {
	switch f {
	case FacingRight:
		return "right"
	case FacingLeft:
		return "left"
	case FacingUp:
		return "up"
	case FacingDown:
		return "down"
	default:
		return "unknown"
	}
}

// Rotation is the rotation about the vertical axis, in radians, that a
// renderer applies to the sprite plane.
func (f Facing) Rotation() float64 {
	switch f {
	case FacingLeft:
		return 0
	case FacingUp:
		return math.Pi / 2
	case FacingDown:
		return -math.Pi / 2
	default:
		return math.Pi
	}
}

// Cycle is the part of a track a token needs to count its steps and laps.
type Cycle interface {
	NextIndex(index int) int
}

// Token is one player's piece.
type Token struct {
	ID     string
	Name   string
	Sprite string

	panelIndex int
	laps       int

	position  space.Vec3
	target    space.Vec3
	waypoints []space.Vec3
	facing    Facing
	moving    bool
}

// New creates an idle token on panel 0 at the origin, facing right.
func New(id, name, sprite string) *Token {
	return &Token{
		ID:     id,
		Name:   name,
		Sprite: sprite,
		facing: FacingRight,
	}
}

// PanelIndex returns the panel the token stands on (or is walking to).
func (t *Token) PanelIndex() int { return t.panelIndex }

// Laps returns how many times the token has wrapped past the last panel.
func (t *Token) Laps() int { return t.laps }

// Position returns the current render position.
func (t *Token) Position() space.Vec3 { return t.position }

// Target returns the goal of the current move.
func (t *Token) Target() space.Vec3 { return t.target }

// Facing returns the direction the sprite looks.
func (t *Token) Facing() Facing { return t.facing }

// IsMoving reports whether the token is still walking toward its target.
func (t *Token) IsMoving() bool { return t.moving }

// Seat puts the token on a panel with a lap count, without moving it in render space.
// Used when restoring persisted standings.
func (t *Token) Seat(panelIndex, laps int) {
	if panelIndex < 0 {
		panelIndex = 0
	}
	if laps < 0 {
		laps = 0
	}
	t.panelIndex = panelIndex
	t.laps = laps
}

// Advance moves the token steps panels forward on track and returns the new
// panel index and how many laps were completed by the move. Every wrap from the
// last panel back to 0 counts as one lap.
func (t *Token) Advance(track Cycle, steps int) (to, lapsGained int) {
	for i := 0; i < steps; i++ {
		next := track.NextIndex(t.panelIndex)
		if next == 0 {
			lapsGained++
		}
		t.panelIndex = next
	}
	t.laps += lapsGained
	return t.panelIndex, lapsGained
}
