// Package panel defines the board cells and the cyclic track they form.
// This package is PURE and must NOT import any infrastructure packages.
package panel

import (
	"errors"
	"fmt"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/space"
)

var (
	// ErrInvalidConfiguration indicates a track that cannot be built.
	ErrInvalidConfiguration = errors.New("invalid track configuration")

	// ErrIndexOutOfRange indicates a panel lookup past the end of the track.
	ErrIndexOutOfRange = errors.New("panel index out of range")
)

// Landing describes a token settling on a panel.
type Landing struct {
	PanelIndex int
	Label      string
	TokenID    string
}

// Effect runs when a token settles on a panel.
type Effect func(Landing)

// Panel is one cell of the board.
type Panel struct {
	Index    int        `json:"index"`
	Label    string     `json:"label"`
	Position space.Vec3 `json:"position"`
	OnLand   Effect     `json:"-"`
}

// HasEffect reports whether landing on p does anything.
func (p Panel) HasEffect() bool {
	return p.OnLand != nil
}

// Track is the ordered, wrap-around sequence of panels.
// Panels are copied in and out, so a built track never changes.
type Track struct {
	panels []Panel
}

// NewTrack builds a track from panels in walking order.
// Each panel's Index is reassigned to its position in the slice.
func NewTrack(panels []Panel) (*Track, error) {
	if len(panels) == 0 {
		return nil, fmt.Errorf("%w: track needs at least one panel", ErrInvalidConfiguration)
	}

	owned := make([]Panel, len(panels))
	copy(owned, panels)
	for i := range owned {
		owned[i].Index = i
	}
	return &Track{panels: owned}, nil
}

// PanelCount returns the number of panels on the track.
func (t *Track) PanelCount() int {
	return len(t.panels)
}

// PanelAt returns the panel at index.
func (t *Track) PanelAt(index int) (Panel, error) {
	if index < 0 || index >= len(t.panels) {
		return Panel{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(t.panels))
	}
	return t.panels[index], nil
}

// Position returns the world position of the panel at index.
func (t *Track) Position(index int) (space.Vec3, error) {
	p, err := t.PanelAt(index)
	if err != nil {
		return space.Vec3{}, err
	}
	return p.Position, nil
}

// Panels returns a copy of every panel in walking order.
func (t *Track) Panels() []Panel {
	out := make([]Panel, len(t.panels))
	copy(out, t.panels)
	return out
}

// NextIndex returns the index one step forward, wrapping from the last panel to 0.
// Any input is first brought into range, so the function is total.
func (t *Track) NextIndex(index int) int {
	n := len(t.panels)
	return ((index+1)%n + n) % n
}

// Advance walks steps panels forward from from. It returns the destination
// and how many times the walk wrapped from the last panel back to 0.
func (t *Track) Advance(from, steps int) (to, wraps int) {
	to = t.normalize(from)
	for i := 0; i < steps; i++ {
		next := t.NextIndex(to)
		if next == 0 {
			wraps++
		}
		to = next
	}
	return to, wraps
}

// Path lists every panel index visited when walking steps panels from from,
// excluding the start and including the destination.
func (t *Track) Path(from, steps int) []int {
	if steps <= 0 {
		return nil
	}
	path := make([]int, 0, steps)
	at := t.normalize(from)
	for i := 0; i < steps; i++ {
		at = t.NextIndex(at)
		path = append(path, at)
	}
	return path
}

// TriggerLanding runs the landing effect of the panel at index, if it has one.
// Callers invoke it once, on the tick a token settles. Unknown indexes are ignored.
func (t *Track) TriggerLanding(index int, tokenID string) {
	if index < 0 || index >= len(t.panels) {
		return
	}
	p := t.panels[index]
	if p.OnLand == nil {
		return
	}
	p.OnLand(Landing{PanelIndex: p.Index, Label: p.Label, TokenID: tokenID})
}

func (t *Track) normalize(index int) int {
	n := len(t.panels)
	return (index%n + n) % n
}
