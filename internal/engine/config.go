package engine

import (
	"fmt"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/panel"
	"github.com/MRamiBalles/Sugoroku/server/internal/domain/sprite"
)

// WalkMode selects how a token travels to the panel it rolled.
type WalkMode string

const (
	// WalkDirect heads straight for the landing panel, each axis independently.
	WalkDirect WalkMode = "direct"
	// WalkPath visits every panel in between, following the loop around corners.
	WalkPath WalkMode = "path"
)

// ParseWalkMode converts a configuration string into a WalkMode.
func ParseWalkMode(s string) (WalkMode, error) {
	switch WalkMode(s) {
	case WalkDirect, WalkPath:
		return WalkMode(s), nil
	}
	return "", fmt.Errorf("%w: walk mode %q", ErrInvalidConfiguration, s)
}

// Config holds everything needed to set up a board session.
type Config struct {
	Board      panel.LoopConfig
	Sheet      sprite.Sheet
	TokenLift  int // height of a token above its panel
	Walk       WalkMode
	MaxPlayers int
}

// DefaultConfig is a 4x4 loop with the runner sheet and four seats.
func DefaultConfig() Config {
	return Config{
		Board:      panel.LoopConfig{Width: 4, Depth: 4, CellSize: 10},
		Sheet:      sprite.DefaultSheet(),
		TokenLift:  8,
		Walk:       WalkDirect,
		MaxPlayers: 4,
	}
}

// Validate reports the first setting that cannot start a game.
func (c Config) Validate() error {
	if err := c.Board.Validate(); err != nil {
		return err
	}
	if err := c.Sheet.Validate(); err != nil {
		return err
	}
	if _, err := ParseWalkMode(string(c.Walk)); err != nil {
		return err
	}
	if c.MaxPlayers < 1 {
		return fmt.Errorf("%w: max players %d", ErrInvalidConfiguration, c.MaxPlayers)
	}
	return nil
}
