package engine

import "errors"

var (
	// ErrInvalidConfiguration indicates engine settings that cannot start a game.
	ErrInvalidConfiguration = errors.New("invalid game configuration")

	// ErrEmptyRoster indicates a turn query with no players seated.
	ErrEmptyRoster = errors.New("no players in the game")

	// ErrIndexOutOfRange indicates a seat lookup past the end of the roster.
	ErrIndexOutOfRange = errors.New("seat index out of range")

	// ErrDuplicatePlayer indicates a join with an ID already seated.
	ErrDuplicatePlayer = errors.New("player already joined")

	// ErrRosterFull indicates a join past the configured player limit.
	ErrRosterFull = errors.New("game is full")

	// ErrInvalidPlayer indicates a join without an ID.
	ErrInvalidPlayer = errors.New("player id is required")

	// ErrNotYourTurn indicates a roll requested by someone other than the current player.
	ErrNotYourTurn = errors.New("not this player's turn")

	// ErrTokenMoving indicates a roll while a token is still walking.
	ErrTokenMoving = errors.New("a token is still moving")
)
