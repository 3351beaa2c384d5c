package panel

import (
	"fmt"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/space"
)

// LoopConfig describes a rectangular loop around the border of a Width x Depth grid.
type LoopConfig struct {
	Width    int    `json:"width"`     // cells along x
	Depth    int    `json:"depth"`     // cells along z
	CellSize int    `json:"cell_size"` // render units per cell
	Effect   Effect `json:"-"`         // landing effect given to every panel
}

// Validate reports why c cannot produce a closed loop, if it cannot.
func (c LoopConfig) Validate() error {
	if c.Width < 2 || c.Depth < 2 {
		return fmt.Errorf("%w: loop grid %dx%d, both sides need at least 2 cells",
			ErrInvalidConfiguration, c.Width, c.Depth)
	}
	if c.CellSize <= 0 {
		return fmt.Errorf("%w: cell size %d", ErrInvalidConfiguration, c.CellSize)
	}
	return nil
}

// LoopLength is the number of perimeter cells of a Width x Depth grid.
func LoopLength(width, depth int) int {
	return 2*width + 2*depth - 4
}

// BuildLoop lays one panel on each border cell. The walk starts at the origin,
// runs +x along the near edge, -z up the right edge, -x along the far edge and
// +z back down the left edge, so consecutive panels are always neighbours.
func BuildLoop(cfg LoopConfig) (*Track, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w, d, s := cfg.Width, cfg.Depth, cfg.CellSize
	cells := make([]space.Vec3, 0, LoopLength(w, d))

	for i := 0; i < w; i++ {
		cells = append(cells, space.Vec3{X: i * s})
	}
	for j := 1; j < d; j++ {
		cells = append(cells, space.Vec3{X: (w - 1) * s, Z: -j * s})
	}
	for k := 1; k < w; k++ {
		cells = append(cells, space.Vec3{X: (w - 1 - k) * s, Z: -(d - 1) * s})
	}
	for l := 1; l < d-1; l++ {
		cells = append(cells, space.Vec3{Z: -(d-1)*s + l*s})
	}

	panels := make([]Panel, len(cells))
	for i, pos := range cells {
		panels[i] = newPanel(i, pos, cfg.Effect)
	}
	return NewTrack(panels)
}

func newPanel(index int, pos space.Vec3, effect Effect) Panel {
	return Panel{
		Index:    index,
		Label:    fmt.Sprintf("panel_%d", index),
		Position: pos,
		OnLand:   effect,
	}
}
