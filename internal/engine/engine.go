package engine

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/panel"
	"github.com/MRamiBalles/Sugoroku/server/internal/domain/space"
	"github.com/MRamiBalles/Sugoroku/server/internal/domain/sprite"
	"github.com/MRamiBalles/Sugoroku/server/internal/domain/token"
	"github.com/MRamiBalles/Sugoroku/server/internal/events"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/metrics"
)

// TurnResult describes one resolved roll.
type TurnResult struct {
	Turn         int    `json:"turn"`
	PlayerID     string `json:"player_id"`
	Dice         int    `json:"dice"`
	From         int    `json:"from"`
	To           int    `json:"to"`
	LapsGained   int    `json:"laps_gained"`
	Laps         int    `json:"laps"`
	NextPlayerID string `json:"next_player_id"`
}

// Standing is a player's discrete place on the board, as persisted between runs.
type Standing struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	Sprite     string `json:"sprite"`
	PanelIndex int    `json:"panel_index"`
	Laps       int    `json:"laps"`
}

// Engine is the central orchestrator of one board session.
type Engine struct {
	mu sync.Mutex

	cfg       Config
	track     *panel.Track
	turns     *TurnManager
	animators map[string]*sprite.Animator
	landing   map[string]bool // tokens walking toward a landing not yet triggered

	eventLog *events.EventLog
	logger   *logger.Logger

	tickNumber int64
	turnNumber int
	lastRoll   int
}

// NewEngine validates cfg, lays out the board and returns an engine with an empty roster.
func NewEngine(cfg Config, roller Roller, eventLog *events.EventLog, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if roller == nil {
		return nil, fmt.Errorf("%w: dice roller is required", ErrInvalidConfiguration)
	}
	if eventLog == nil {
		eventLog = events.NewEventLog(nil)
	}
	if log == nil {
		log = logger.Discard()
	}

	e := &Engine{
		cfg:       cfg,
		turns:     NewTurnManager(roller),
		animators: make(map[string]*sprite.Animator),
		landing:   make(map[string]bool),
		eventLog:  eventLog,
		logger:    log,
	}

	board := cfg.Board
	board.Effect = e.chainLanding(board.Effect)
	track, err := panel.BuildLoop(board)
	if err != nil {
		return nil, err
	}
	e.track = track

	log.Info(fmt.Sprintf("Board ready: %dx%d loop, %d panels, walk=%s",
		board.Width, board.Depth, track.PanelCount(), cfg.Walk))
	return e, nil
}

// Track returns the board. Tracks are immutable, so no lock is needed.
func (e *Engine) Track() *panel.Track {
	return e.track
}

// Config returns the settings the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// EventLog exposes the log so transports can replay history.
func (e *Engine) EventLog() *events.EventLog {
	return e.eventLog
}

// Join seats a new player on panel 0.
func (e *Engine) Join(id, name, spriteRef string) (token.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tok, err := e.seatLocked(id, name, spriteRef, 0, 0)
	if err != nil {
		return token.Snapshot{}, err
	}

	e.eventLog.Append(events.GameEvent{
		Type:    events.EventTypePlayerJoined,
		ActorID: id,
		Payload: events.PlayerJoinedPayload{Name: name, Sprite: spriteRef, Seat: e.turns.Len() - 1},
		Turn:    e.turnNumber,
	})
	e.logger.Event(string(events.EventTypePlayerJoined), id, "seat "+strconv.Itoa(e.turns.Len()-1))
	return tok.Snapshot(), nil
}

// Progress is where the session stands between turns.
type Progress struct {
	Turn        int `json:"turn"`
	CurrentSeat int `json:"current_seat"`
	LastRoll    int `json:"last_roll"`
}

// Restore seats players at persisted standings and resumes the turn order
// without recording joins. It only works on an empty roster.
func (e *Engine) Restore(standings []Standing, progress Progress) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.turns.Len() > 0 {
		return fmt.Errorf("%w: restore needs an empty roster", ErrInvalidConfiguration)
	}
	if err := e.checkRestore(standings, progress); err != nil {
		return err
	}
	seated := make([]events.SeatedPlayer, 0, len(standings))
	for _, s := range standings {
		if _, err := e.seatLocked(s.PlayerID, s.Name, s.Sprite, s.PanelIndex, s.Laps); err != nil {
			return err
		}
		seated = append(seated, events.SeatedPlayer{
			PlayerID:   s.PlayerID,
			Name:       s.Name,
			Sprite:     s.Sprite,
			PanelIndex: s.PanelIndex,
			Laps:       s.Laps,
		})
	}
	if len(standings) > 0 {
		if err := e.turns.SetCurrent(progress.CurrentSeat); err != nil {
			return err
		}
	}
	e.turnNumber = progress.Turn
	e.lastRoll = progress.LastRoll

	e.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeGameRestored,
		ActorID: events.ActorSystem,
		Payload: events.GameRestoredPayload{Players: seated, Turn: progress.Turn, CurrentSeat: progress.CurrentSeat},
		Turn:    e.turnNumber,
	})
	e.logger.Info(fmt.Sprintf("Restored %d players from storage at turn %d", len(standings), progress.Turn))
	return nil
}

// checkRestore rejects a roster that would fail to seat part way through,
// so a refused Restore leaves the board empty.
func (e *Engine) checkRestore(standings []Standing, progress Progress) error {
	if len(standings) > e.cfg.MaxPlayers {
		return fmt.Errorf("%w: %d seats", ErrRosterFull, e.cfg.MaxPlayers)
	}
	seen := make(map[string]bool, len(standings))
	for _, s := range standings {
		if s.PlayerID == "" {
			return ErrInvalidPlayer
		}
		if seen[s.PlayerID] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, s.PlayerID)
		}
		seen[s.PlayerID] = true
		if s.PanelIndex < 0 || s.PanelIndex >= e.track.PanelCount() {
			return fmt.Errorf("%w: panel %d for %s", panel.ErrIndexOutOfRange, s.PanelIndex, s.PlayerID)
		}
	}
	if len(standings) > 0 && (progress.CurrentSeat < 0 || progress.CurrentSeat >= len(standings)) {
		return fmt.Errorf("%w: seat %d of %d", ErrIndexOutOfRange, progress.CurrentSeat, len(standings))
	}
	return nil
}

// Progress returns the turn counter, current seat and last roll.
func (e *Engine) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Progress{Turn: e.turnNumber, CurrentSeat: e.turns.CurrentSeat(), LastRoll: e.lastRoll}
}

func (e *Engine) seatLocked(id, name, spriteRef string, panelIndex, laps int) (*token.Token, error) {
	if id == "" {
		return nil, ErrInvalidPlayer
	}
	if e.turns.Len() >= e.cfg.MaxPlayers {
		return nil, fmt.Errorf("%w: %d seats", ErrRosterFull, e.cfg.MaxPlayers)
	}
	if panelIndex < 0 || panelIndex >= e.track.PanelCount() {
		return nil, fmt.Errorf("%w: panel %d for %s", panel.ErrIndexOutOfRange, panelIndex, id)
	}

	anim, err := sprite.NewAnimator(e.cfg.Sheet)
	if err != nil {
		return nil, err
	}

	tok := token.New(id, name, spriteRef)
	if err := e.turns.AddPlayer(tok); err != nil {
		return nil, err
	}
	tok.Seat(panelIndex, laps)
	tok.Place(e.standPoint(panelIndex))
	e.animators[id] = anim
	return tok, nil
}

// TakeTurn rolls for the current player, moves their token and passes the turn.
// playerID may be empty to roll for whoever is current.
func (e *Engine) TakeTurn(playerID string) (TurnResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.turns.CurrentPlayer()
	if err != nil {
		return TurnResult{}, err
	}
	if playerID != "" && playerID != cur.ID {
		return TurnResult{}, fmt.Errorf("%w: %s rolled, %s is current", ErrNotYourTurn, playerID, cur.ID)
	}
	for _, p := range e.turns.Players() {
		if p.IsMoving() {
			return TurnResult{}, fmt.Errorf("%w: %s", ErrTokenMoving, p.ID)
		}
	}

	e.turnNumber++
	roll := e.turns.RollDice()
	e.lastRoll = roll
	from := cur.PanelIndex()
	path := e.track.Path(from, roll)
	to, lapsGained := cur.Advance(e.track, roll)

	e.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeDiceRolled,
		ActorID: cur.ID,
		Payload: events.DiceRolledPayload{Value: roll},
		Turn:    e.turnNumber,
	})
	e.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeTokenMoved,
		ActorID: cur.ID,
		Payload: events.TokenMovedPayload{From: from, To: to, Steps: roll, Laps: cur.Laps()},
		Turn:    e.turnNumber,
	})
	for i := lapsGained - 1; i >= 0; i-- {
		e.eventLog.Append(events.GameEvent{
			Type:    events.EventTypeLapCompleted,
			ActorID: cur.ID,
			Payload: events.LapCompletedPayload{Laps: cur.Laps() - i},
			Turn:    e.turnNumber,
		})
		metrics.Get().RecordLap()
	}
	e.logger.Event(string(events.EventTypeTokenMoved), cur.ID,
		fmt.Sprintf("rolled %d, panel %d -> %d, laps %d", roll, from, to, cur.Laps()))

	e.startWalkLocked(cur, path)

	next, _ := e.turns.AdvanceTurn()
	e.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeTurnAdvanced,
		ActorID: events.ActorSystem,
		Payload: events.TurnAdvancedPayload{NextPlayerID: next.ID, Seat: e.turns.CurrentSeat()},
		Turn:    e.turnNumber,
	})
	metrics.Get().RecordTurn(roll)

	return TurnResult{
		Turn:         e.turnNumber,
		PlayerID:     cur.ID,
		Dice:         roll,
		From:         from,
		To:           to,
		LapsGained:   lapsGained,
		Laps:         cur.Laps(),
		NextPlayerID: next.ID,
	}, nil
}

// startWalkLocked points tok at the panels in path. A walk that needs no
// movement lands at once.
func (e *Engine) startWalkLocked(tok *token.Token, path []int) {
	if len(path) == 0 {
		return
	}

	switch e.cfg.Walk {
	case WalkPath:
		points := make([]space.Vec3, len(path))
		for i, idx := range path {
			points[i] = e.standPoint(idx)
		}
		tok.MoveAlong(points)
	default:
		tok.SetTarget(e.standPoint(path[len(path)-1]))
	}

	if tok.IsMoving() {
		e.landing[tok.ID] = true
		return
	}
	e.track.TriggerLanding(tok.PanelIndex(), tok.ID)
}

// Tick advances every sprite and token by one frame and returns what to draw.
// It never fails: a negative or NaN delta is treated as zero.
func (e *Engine) Tick(deltaMs float64) Frame {
	if math.IsNaN(deltaMs) || deltaMs < 0 {
		deltaMs = 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.tickNumber++
	players := e.turns.Players()
	for _, p := range players {
		e.animators[p.ID].Update(deltaMs)
	}
	for _, p := range players {
		if p.Step() || !e.landing[p.ID] {
			continue
		}
		delete(e.landing, p.ID)
		e.track.TriggerLanding(p.PanelIndex(), p.ID)
	}
	return e.frameLocked()
}

// Frame returns the current state without advancing it.
func (e *Engine) Frame() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameLocked()
}

// CurrentPlayer returns a snapshot of whoever rolls next.
func (e *Engine) CurrentPlayer() (token.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur, err := e.turns.CurrentPlayer()
	if err != nil {
		return token.Snapshot{}, err
	}
	return cur.Snapshot(), nil
}

// Standings returns every player's panel and lap count in seat order.
func (e *Engine) Standings() []Standing {
	e.mu.Lock()
	defer e.mu.Unlock()

	players := e.turns.Players()
	out := make([]Standing, len(players))
	for i, p := range players {
		out[i] = Standing{
			PlayerID:   p.ID,
			Name:       p.Name,
			Sprite:     p.Sprite,
			PanelIndex: p.PanelIndex(),
			Laps:       p.Laps(),
		}
	}
	return out
}

// standPoint is where a token stands on the panel at index.
func (e *Engine) standPoint(index int) space.Vec3 {
	// Indexes always come from the track itself.
	pos, _ := e.track.Position(index)
	return pos.Add(space.Vec3{Y: e.cfg.TokenLift})
}

// chainLanding wraps a configured landing effect with the engine's own bookkeeping.
func (e *Engine) chainLanding(next panel.Effect) panel.Effect {
	return func(l panel.Landing) {
		e.eventLog.Append(events.GameEvent{
			Type:    events.EventTypePanelLanded,
			ActorID: l.TokenID,
			Payload: events.PanelLandedPayload{PanelIndex: l.PanelIndex, Label: l.Label},
			Turn:    e.turnNumber,
		})
		e.logger.Event(string(events.EventTypePanelLanded), l.TokenID, l.Label)
		metrics.Get().RecordLanding()
		if next != nil {
			next(l)
		}
	}
}
