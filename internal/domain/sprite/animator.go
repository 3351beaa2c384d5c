// Package sprite advances sprite-sheet tiles over elapsed time.
// This package is PURE and must NOT import any infrastructure packages.
package sprite

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfiguration indicates a sprite sheet that cannot be animated.
var ErrInvalidConfiguration = errors.New("invalid sprite sheet configuration")

// Sheet describes the tile layout of a sprite sheet and how long each tile shows.
type Sheet struct {
	TilesHorizontal int     `json:"tiles_horizontal"`
	TilesVertical   int     `json:"tiles_vertical"`
	TileCount       int     `json:"tile_count"`       // may be less than H*V when the last row has blanks
	FrameDuration   float64 `json:"frame_duration"`   // milliseconds per tile
	StartTile       int     `json:"start_tile"`
}

// DefaultSheet is the 10x1 runner sheet at 75ms per tile.
func DefaultSheet() Sheet {
	return Sheet{
		TilesHorizontal: 10,
		TilesVertical:   1,
		TileCount:       10,
		FrameDuration:   75,
	}
}

// Validate reports why s cannot be animated, if it cannot.
func (s Sheet) Validate() error {
	switch {
	case s.TilesHorizontal < 1 || s.TilesVertical < 1:
		return fmt.Errorf("%w: tile grid %dx%d", ErrInvalidConfiguration, s.TilesHorizontal, s.TilesVertical)
	case s.TileCount < 1:
		return fmt.Errorf("%w: tile count %d", ErrInvalidConfiguration, s.TileCount)
	case s.TileCount > s.TilesHorizontal*s.TilesVertical:
		return fmt.Errorf("%w: %d tiles do not fit a %dx%d grid",
			ErrInvalidConfiguration, s.TileCount, s.TilesHorizontal, s.TilesVertical)
	case math.IsNaN(s.FrameDuration) || math.IsInf(s.FrameDuration, 0) || s.FrameDuration <= 0:
		return fmt.Errorf("%w: frame duration %v", ErrInvalidConfiguration, s.FrameDuration)
	case s.StartTile < 0 || s.StartTile >= s.TileCount:
		return fmt.Errorf("%w: start tile %d", ErrInvalidConfiguration, s.StartTile)
	}
	return nil
}

// TileSnapshot is what a renderer needs to sample the sheet.
type TileSnapshot struct {
	Tile   int `json:"tile"`
	Column int `json:"column"`
	Row    int `json:"row"`
}

// Animator cycles through the tiles of one sheet.
type Animator struct {
	sheet   Sheet
	elapsed float64
	tile    int
}

// NewAnimator validates the sheet and returns an animator on its start tile.
func NewAnimator(sheet Sheet) (*Animator, error) {
	if err := sheet.Validate(); err != nil {
		return nil, err
	}
	return &Animator{sheet: sheet, tile: sheet.StartTile}, nil
}

// Update accumulates elapsedMs and advances one tile per full frame duration.
// A large delta after a stall advances several tiles in one call.
// Negative or NaN input counts as zero.
func (a *Animator) Update(elapsedMs float64) {
	if math.IsNaN(elapsedMs) || elapsedMs < 0 {
		elapsedMs = 0
	}
	if math.IsInf(elapsedMs, 1) {
		// Position inside the cycle is meaningless after an infinite stall.
		a.elapsed = 0
		return
	}

	a.elapsed += elapsedMs
	if a.elapsed < a.sheet.FrameDuration {
		return
	}

	frames := math.Floor(a.elapsed / a.sheet.FrameDuration)
	a.elapsed -= frames * a.sheet.FrameDuration
	if a.elapsed < 0 || a.elapsed >= a.sheet.FrameDuration {
		a.elapsed = 0
	}
	advance := int(math.Mod(frames, float64(a.sheet.TileCount)))
	a.tile = (a.tile + advance) % a.sheet.TileCount
}

// Tile returns the current tile index.
func (a *Animator) Tile() int { return a.tile }

// Column returns the sheet column of the current tile.
func (a *Animator) Column() int { return a.tile % a.sheet.TilesHorizontal }

// Row returns the sheet row of the current tile.
func (a *Animator) Row() int { return a.tile / a.sheet.TilesHorizontal }

// Elapsed returns the time accumulated toward the next tile, in milliseconds.
func (a *Animator) Elapsed() float64 { return a.elapsed }

// Sheet returns the sheet the animator was built with.
func (a *Animator) Sheet() Sheet { return a.sheet }

// Snapshot returns the current tile with its sheet coordinates.
func (a *Animator) Snapshot() TileSnapshot {
	return TileSnapshot{Tile: a.Tile(), Column: a.Column(), Row: a.Row()}
}
