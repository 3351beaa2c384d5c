// Package config loads server settings from the environment.
//
// A .env file in the working directory is read first when it exists. Values
// already present in the process environment win over the file. Defaults only
// fill variables that are absent; a variable set to an invalid value is an error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/panel"
	"github.com/MRamiBalles/Sugoroku/server/internal/domain/sprite"
	"github.com/MRamiBalles/Sugoroku/server/internal/engine"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Addr   string `env:"SUGOROKU_ADDR" envDefault:":8080"`
	DBPath string `env:"SUGOROKU_DB_PATH" envDefault:"data/sugoroku.db"`
	GameID string `env:"SUGOROKU_GAME_ID" envDefault:"GAME_1"`

	BoardWidth int `env:"SUGOROKU_BOARD_WIDTH" envDefault:"4"`
	BoardDepth int `env:"SUGOROKU_BOARD_DEPTH" envDefault:"4"`
	CellSize   int `env:"SUGOROKU_CELL_SIZE" envDefault:"10"`

	SheetColumns    int     `env:"SUGOROKU_SHEET_COLUMNS" envDefault:"10"`
	SheetRows       int     `env:"SUGOROKU_SHEET_ROWS" envDefault:"1"`
	SheetTiles      int     `env:"SUGOROKU_SHEET_TILES" envDefault:"10"`
	FrameDurationMs float64 `env:"SUGOROKU_FRAME_DURATION_MS" envDefault:"75"`

	TokenLift  int    `env:"SUGOROKU_TOKEN_LIFT" envDefault:"8"`
	WalkMode   string `env:"SUGOROKU_WALK_MODE" envDefault:"direct"`
	MaxPlayers int    `env:"SUGOROKU_MAX_PLAYERS" envDefault:"4"`

	FrameInterval  time.Duration `env:"SUGOROKU_FRAME_INTERVAL" envDefault:"16ms"`
	BackupInterval time.Duration `env:"SUGOROKU_BACKUP_INTERVAL" envDefault:"5s"`

	// Seed fixes the dice sequence. Zero draws a fresh seed at startup.
	Seed int64 `env:"SUGOROKU_SEED" envDefault:"0"`

	Tuning string `env:"SUGOROKU_TUNING" envDefault:"default"`
}

// Load reads .env (if present) and the environment into a validated Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the server settings and the game settings they produce.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: empty listen address", engine.ErrInvalidConfiguration)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: empty database path", engine.ErrInvalidConfiguration)
	}
	if c.GameID == "" {
		return fmt.Errorf("%w: empty game id", engine.ErrInvalidConfiguration)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("%w: frame interval %s", engine.ErrInvalidConfiguration, c.FrameInterval)
	}
	if c.BackupInterval <= 0 {
		return fmt.Errorf("%w: backup interval %s", engine.ErrInvalidConfiguration, c.BackupInterval)
	}
	if _, err := TuningFor(c.Tuning); err != nil {
		return err
	}
	return c.Engine().Validate()
}

// Engine converts the flat settings into an engine configuration.
func (c Config) Engine() engine.Config {
	return engine.Config{
		Board: panel.LoopConfig{
			Width:    c.BoardWidth,
			Depth:    c.BoardDepth,
			CellSize: c.CellSize,
		},
		Sheet: sprite.Sheet{
			TilesHorizontal: c.SheetColumns,
			TilesVertical:   c.SheetRows,
			TileCount:       c.SheetTiles,
			FrameDuration:   c.FrameDurationMs,
		},
		TokenLift:  c.TokenLift,
		Walk:       engine.WalkMode(c.WalkMode),
		MaxPlayers: c.MaxPlayers,
	}
}

// TuningProfile returns the tuning preset named by the configuration.
func (c Config) TuningProfile() Tuning {
	t, _ := TuningFor(c.Tuning)
	return t
}
