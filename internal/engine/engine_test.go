package engine

import (
	"errors"
	"testing"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/panel"
	"github.com/MRamiBalles/Sugoroku/server/internal/domain/space"
	"github.com/MRamiBalles/Sugoroku/server/internal/events"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
)

func newTestEngine(t *testing.T, cfg Config, rolls ...int) (*Engine, *events.EventLog) {
	t.Helper()
	roller, err := NewScriptedRoller(rolls...)
	if err != nil {
		t.Fatalf("NewScriptedRoller returned error: %v", err)
	}
	el := events.NewEventLog(nil)
	e, err := NewEngine(cfg, roller, el, logger.Discard())
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	return e, el
}

func TestFourPlayerWrapScenario(t *testing.T) {
	e, el := newTestEngine(t, DefaultConfig(), 3)
	err := e.Restore([]Standing{
		{PlayerID: "p1", Name: "Alice", PanelIndex: 11},
		{PlayerID: "p2", Name: "Bob"},
		{PlayerID: "p3", Name: "Carol"},
		{PlayerID: "p4", Name: "Dave"},
	}, Progress{})
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if e.Track().PanelCount() != 12 {
		t.Fatalf("4x4 board has %d panels, want 12", e.Track().PanelCount())
	}

	res, err := e.TakeTurn("p1")
	if err != nil {
		t.Fatalf("TakeTurn returned error: %v", err)
	}
	if res.Dice != 3 || res.From != 11 || res.To != 2 {
		t.Fatalf("turn = %+v, want 11 + 3 -> 2", res)
	}
	if res.LapsGained != 1 || res.Laps != 1 {
		t.Fatalf("laps gained %d (total %d), want exactly 1", res.LapsGained, res.Laps)
	}
	if res.NextPlayerID != "p2" {
		t.Fatalf("next player = %s, want p2", res.NextPlayerID)
	}
	if laps := el.GetByType(events.EventTypeLapCompleted); len(laps) != 1 {
		t.Fatalf("recorded %d lap events, want 1", len(laps))
	}

	ticker := NewTicker(e, nil, 0, logger.Discard())
	frame, frames := ticker.RunUntilSettled(16, 1000)
	if frame.Moving() {
		t.Fatalf("token still moving after %d frames", frames)
	}

	// Direct walk from (0,8,-10) to (20,8,0): 20 unit steps plus the settling tick.
	if frames != 21 {
		t.Errorf("settled after %d frames, want 21", frames)
	}

	want, _ := e.Track().Position(2)
	want = want.Add(space.Vec3{Y: 8})
	got := frame.Tokens[0]
	if got.Position != want || got.PanelIndex != 2 || got.Laps != 1 {
		t.Fatalf("p1 frame = %+v, want at %+v on panel 2 with 1 lap", got.Snapshot, want)
	}

	landed := el.GetByType(events.EventTypePanelLanded)
	if len(landed) != 1 {
		t.Fatalf("recorded %d landings, want 1", len(landed))
	}
	if p := landed[0].Payload.(events.PanelLandedPayload); p.PanelIndex != 2 || landed[0].ActorID != "p1" {
		t.Fatalf("landing = %+v by %s", p, landed[0].ActorID)
	}

	// More idle frames must not land again.
	ticker.RunFixed([]float64{16, 16, 16})
	if n := len(el.GetByType(events.EventTypePanelLanded)); n != 1 {
		t.Fatalf("landing fired %d times", n)
	}
}

func TestTakeTurnRejectsWhileTokenMoves(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig(), 2)
	e.Join("p1", "Alice", "")
	e.Join("p2", "Bob", "")

	if _, err := e.TakeTurn("p1"); err != nil {
		t.Fatalf("first TakeTurn returned error: %v", err)
	}
	if _, err := e.TakeTurn("p2"); !errors.Is(err, ErrTokenMoving) {
		t.Fatalf("TakeTurn while walking error = %v, want %v", err, ErrTokenMoving)
	}

	NewTicker(e, nil, 0, nil).RunUntilSettled(16, 1000)
	if _, err := e.TakeTurn("p2"); err != nil {
		t.Fatalf("TakeTurn after settling returned error: %v", err)
	}
}

func TestTakeTurnChecksCurrentPlayer(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig(), 4)

	if _, err := e.TakeTurn(""); !errors.Is(err, ErrEmptyRoster) {
		t.Fatalf("TakeTurn on empty board error = %v, want %v", err, ErrEmptyRoster)
	}

	e.Join("p1", "Alice", "")
	e.Join("p2", "Bob", "")
	if _, err := e.TakeTurn("p2"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("TakeTurn out of turn error = %v, want %v", err, ErrNotYourTurn)
	}

	res, err := e.TakeTurn("")
	if err != nil {
		t.Fatalf("TakeTurn for current returned error: %v", err)
	}
	if res.PlayerID != "p1" {
		t.Fatalf("anonymous roll moved %s, want p1", res.PlayerID)
	}
}

func TestJoinLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPlayers = 2
	e, el := newTestEngine(t, cfg, 1)

	snap, err := e.Join("p1", "Alice", "img/run.png")
	if err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if snap.PanelIndex != 0 || snap.Position != (space.Vec3{Y: 8}) || snap.Moving {
		t.Fatalf("joined token = %+v, want idle on panel 0", snap)
	}

	if _, err := e.Join("p1", "Again", ""); !errors.Is(err, ErrDuplicatePlayer) {
		t.Errorf("duplicate Join error = %v, want %v", err, ErrDuplicatePlayer)
	}
	if _, err := e.Join("", "Nobody", ""); !errors.Is(err, ErrInvalidPlayer) {
		t.Errorf("Join without ID error = %v, want %v", err, ErrInvalidPlayer)
	}
	e.Join("p2", "Bob", "")
	if _, err := e.Join("p3", "Carol", ""); !errors.Is(err, ErrRosterFull) {
		t.Errorf("Join past limit error = %v, want %v", err, ErrRosterFull)
	}

	if n := len(el.GetByType(events.EventTypePlayerJoined)); n != 2 {
		t.Errorf("recorded %d joins, want 2", n)
	}
}

func TestWalkPathStaysOnTheLoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Walk = WalkPath
	e, _ := newTestEngine(t, cfg, 3)
	e.Restore([]Standing{{PlayerID: "p1", PanelIndex: 2}}, Progress{})

	if _, err := e.TakeTurn("p1"); err != nil {
		t.Fatalf("TakeTurn returned error: %v", err)
	}

	frames := 0
	for {
		f := e.Tick(16)
		pos := f.Tokens[0].Position
		if pos.X != 30 && pos.Z != 0 {
			t.Fatalf("frame %d: token at %+v left the board edge", frames, pos)
		}
		if !f.Moving() {
			break
		}
		frames++
		if frames > 100 {
			t.Fatalf("walk never settled")
		}
	}

	// Panel 2 -> 5 is 10 units along x then 20 along z.
	if frames != 30 {
		t.Errorf("walk took %d moving frames, want 30", frames)
	}
	f := e.Frame()
	if f.Tokens[0].Facing != "down" {
		t.Errorf("facing after walking -z = %s, want down", f.Tokens[0].Facing)
	}
}

func TestLandingEffectRunsAfterEngineBookkeeping(t *testing.T) {
	var landed []panel.Landing
	cfg := DefaultConfig()
	cfg.Board.Effect = func(l panel.Landing) { landed = append(landed, l) }
	e, _ := newTestEngine(t, cfg, 5)
	e.Join("p1", "Alice", "")

	e.TakeTurn("p1")
	for i := 0; i < 5; i++ {
		e.Tick(16)
	}
	if len(landed) != 0 {
		t.Fatalf("landing ran before the token settled")
	}

	NewTicker(e, nil, 0, nil).RunUntilSettled(16, 1000)
	if len(landed) != 1 || landed[0].PanelIndex != 5 || landed[0].TokenID != "p1" {
		t.Fatalf("landings = %+v, want one on panel 5 by p1", landed)
	}
}

func TestTickAnimatesSpritesAndIgnoresBadDeltas(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig(), 1)
	e.Join("p1", "Alice", "")

	f := e.Tick(80)
	if f.Tokens[0].Sprite.Tile != 1 {
		t.Fatalf("tile after 80ms = %d, want 1", f.Tokens[0].Sprite.Tile)
	}
	f = e.Tick(-500)
	if f.Tokens[0].Sprite.Tile != 1 {
		t.Fatalf("negative delta moved sprite to tile %d", f.Tokens[0].Sprite.Tile)
	}
	if f.Tick != 2 {
		t.Fatalf("tick counter = %d, want 2", f.Tick)
	}
}

func TestRestoreRequiresEmptyRoster(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig(), 1)
	e.Join("p1", "Alice", "")
	if err := e.Restore([]Standing{{PlayerID: "p2"}}, Progress{}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Restore on seated board error = %v, want %v", err, ErrInvalidConfiguration)
	}

	e2, _ := newTestEngine(t, DefaultConfig(), 1)
	if err := e2.Restore([]Standing{{PlayerID: "p1", PanelIndex: 40}}, Progress{}); !errors.Is(err, panel.ErrIndexOutOfRange) {
		t.Fatalf("Restore off the board error = %v, want %v", err, panel.ErrIndexOutOfRange)
	}
}

func TestFailedRestoreLeavesBoardEmpty(t *testing.T) {
	e, el := newTestEngine(t, DefaultConfig(), 1)

	tcs := map[string]struct {
		standings []Standing
		progress  Progress
		want      error
	}{
		"off the board": {[]Standing{{PlayerID: "p1", PanelIndex: 3}, {PlayerID: "p2", PanelIndex: 99}}, Progress{}, panel.ErrIndexOutOfRange},
		"duplicate":     {[]Standing{{PlayerID: "p1"}, {PlayerID: "p1", PanelIndex: 2}}, Progress{}, ErrDuplicatePlayer},
		"missing id":    {[]Standing{{PlayerID: "p1"}, {PanelIndex: 2}}, Progress{}, ErrInvalidPlayer},
		"too many":      {[]Standing{{PlayerID: "a"}, {PlayerID: "b"}, {PlayerID: "c"}, {PlayerID: "d"}, {PlayerID: "e"}}, Progress{}, ErrRosterFull},
		"bad seat":      {[]Standing{{PlayerID: "p1"}, {PlayerID: "p2"}}, Progress{CurrentSeat: 2}, ErrIndexOutOfRange},
	}
	for name, tc := range tcs {
		if err := e.Restore(tc.standings, tc.progress); !errors.Is(err, tc.want) {
			t.Errorf("%s: Restore error = %v, want %v", name, err, tc.want)
		}
		if n := e.turns.Len(); n != 0 {
			t.Fatalf("%s: failed Restore left %d players seated", name, n)
		}
	}
	if n := len(el.GetByType(events.EventTypeGameRestored)); n != 0 {
		t.Fatalf("failed restores recorded %d restore events", n)
	}

	if err := e.Restore([]Standing{{PlayerID: "p1", PanelIndex: 3}, {PlayerID: "p2", PanelIndex: 9}}, Progress{CurrentSeat: 1}); err != nil {
		t.Fatalf("Restore after failures returned error: %v", err)
	}
	if got := e.Standings(); len(got) != 2 || got[1].PanelIndex != 9 {
		t.Fatalf("standings after retry = %+v", got)
	}
}

func TestRestoreResumesTurnOrder(t *testing.T) {
	e, el := newTestEngine(t, DefaultConfig(), 2)
	err := e.Restore([]Standing{
		{PlayerID: "p1", PanelIndex: 4, Laps: 2},
		{PlayerID: "p2", PanelIndex: 7},
	}, Progress{Turn: 9, CurrentSeat: 1, LastRoll: 3})
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}

	if p := e.Progress(); p.Turn != 9 || p.CurrentSeat != 1 || p.LastRoll != 3 {
		t.Fatalf("progress = %+v", p)
	}
	res, err := e.TakeTurn("p2")
	if err != nil {
		t.Fatalf("TakeTurn for restored current returned error: %v", err)
	}
	if res.Turn != 10 || res.From != 7 || res.To != 9 || res.NextPlayerID != "p1" {
		t.Fatalf("turn after restore = %+v", res)
	}

	restored := el.GetByType(events.EventTypeGameRestored)
	if len(restored) != 1 {
		t.Fatalf("recorded %d restore events, want 1", len(restored))
	}
	payload := restored[0].Payload.(events.GameRestoredPayload)
	if len(payload.Players) != 2 || payload.Players[0].Laps != 2 || payload.CurrentSeat != 1 {
		t.Fatalf("restore payload = %+v", payload)
	}

	e2, _ := newTestEngine(t, DefaultConfig(), 1)
	err = e2.Restore([]Standing{{PlayerID: "p1"}}, Progress{CurrentSeat: 3})
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("Restore with bad seat error = %v, want %v", err, ErrIndexOutOfRange)
	}
}

func TestNewEngineValidatesConfig(t *testing.T) {
	roller := NewRandomRoller(1)
	tcs := map[string]func(*Config){
		"board":   func(c *Config) { c.Board.Width = 1 },
		"sheet":   func(c *Config) { c.Sheet.FrameDuration = 0 },
		"walk":    func(c *Config) { c.Walk = "teleport" },
		"players": func(c *Config) { c.MaxPlayers = 0 },
	}
	for name, mutate := range tcs {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			if _, err := NewEngine(cfg, roller, nil, nil); err == nil {
				t.Fatalf("NewEngine accepted invalid %s", name)
			}
		})
	}

	if _, err := NewEngine(DefaultConfig(), nil, nil, nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("NewEngine without roller error = %v", err)
	}
}
