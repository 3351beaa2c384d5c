package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MRamiBalles/Sugoroku/server/internal/engine"
	"github.com/MRamiBalles/Sugoroku/server/internal/events"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "nested", "board.db"))
	if err != nil {
		t.Fatalf("InitSQLite returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEventRepositoryQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))
	now := time.Now()

	seed := []GameEvent{
		{ID: "e1", GameID: "G", Timestamp: now, EventType: "PLAYER_JOINED", ActorID: "p1", Payload: map[string]interface{}{"name": "Alice"}},
		{ID: "e2", GameID: "G", Timestamp: now, EventType: "DICE_ROLLED", ActorID: "p1", Payload: map[string]interface{}{"value": 4.0}, Turn: 1},
		{ID: "e3", GameID: "G", Timestamp: now, EventType: "DICE_ROLLED", ActorID: "p2", Payload: map[string]interface{}{"value": 2.0}, Turn: 2},
		{ID: "x1", GameID: "OTHER", Timestamp: now, EventType: "DICE_ROLLED", ActorID: "p1", Payload: map[string]interface{}{}, Turn: 1},
	}
	for _, e := range seed {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s) returned error: %v", e.ID, err)
		}
	}

	all, err := repo.GetByGameID(ctx, "G")
	if err != nil {
		t.Fatalf("GetByGameID returned error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "e1" || all[2].ID != "e3" {
		t.Fatalf("GetByGameID = %+v, want e1..e3 in insertion order", all)
	}
	if v := all[1].Payload["value"]; v != 4.0 {
		t.Errorf("payload value = %v, want 4", v)
	}

	since, _ := repo.GetSinceTurn(ctx, "G", 2)
	if len(since) != 1 || since[0].ID != "e3" {
		t.Errorf("GetSinceTurn(2) = %+v, want e3", since)
	}

	if err := repo.Append(ctx, seed[0]); err == nil {
		t.Errorf("appending a duplicate event id succeeded")
	}
}

func TestStandingRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteStandingRepository(openTestDB(t))

	err := repo.ReplaceAll(ctx, "G", []TokenStanding{
		{PlayerID: "p2", Name: "Bob", Seat: 1, PanelIndex: 7},
		{PlayerID: "p1", Name: "Alice", Sprite: "run.png", Seat: 0, PanelIndex: 3, Laps: 2},
	})
	if err != nil {
		t.Fatalf("ReplaceAll returned error: %v", err)
	}

	got, err := repo.GetByGameID(ctx, "G")
	if err != nil {
		t.Fatalf("GetByGameID returned error: %v", err)
	}
	if len(got) != 2 || got[0].PlayerID != "p1" || got[0].Laps != 2 || got[0].Sprite != "run.png" || got[1].PanelIndex != 7 {
		t.Fatalf("standings = %+v", got)
	}
	if got[0].GameID != "G" || got[0].LastUpdated.IsZero() {
		t.Errorf("standing metadata = %+v", got[0])
	}

	// ON CONFLICT keeps one row per player within a backup.
	err = repo.ReplaceAll(ctx, "G", []TokenStanding{
		{PlayerID: "p2", Name: "Bob", Seat: 1, PanelIndex: 7},
		{PlayerID: "p2", Name: "Bob", Seat: 1, PanelIndex: 9, Laps: 1},
	})
	if err != nil {
		t.Fatalf("ReplaceAll with a repeated player returned error: %v", err)
	}
	got, _ = repo.GetByGameID(ctx, "G")
	if len(got) != 1 || got[0].PanelIndex != 9 || got[0].Laps != 1 {
		t.Fatalf("repeated standing = %+v", got)
	}

	if err := repo.ReplaceAll(ctx, "G", []TokenStanding{{PlayerID: "p1", Seat: 0}}); err != nil {
		t.Fatalf("second ReplaceAll returned error: %v", err)
	}
	if got, _ = repo.GetByGameID(ctx, "G"); len(got) != 1 {
		t.Fatalf("ReplaceAll kept %d standings, want 1", len(got))
	}
}

func TestGameStateRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteGameStateRepository(openTestDB(t))

	if _, err := repo.Load(ctx, "G"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load of unsaved game error = %v, want %v", err, ErrNotFound)
	}

	for _, turn := range []int{3, 4} {
		if err := repo.Save(ctx, GameState{GameID: "G", Turn: turn, CurrentSeat: 1, LastRoll: 6}); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}
	st, err := repo.Load(ctx, "G")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if st.Turn != 4 || st.CurrentSeat != 1 || st.LastRoll != 6 {
		t.Fatalf("loaded state = %+v", st)
	}
}

func toStandings(ts []TokenStanding) []engine.Standing {
	out := make([]engine.Standing, len(ts))
	for i, s := range ts {
		out[i] = engine.Standing{PlayerID: s.PlayerID, Name: s.Name, Sprite: s.Sprite, PanelIndex: s.PanelIndex, Laps: s.Laps}
	}
	return out
}

func playGame(t *testing.T, e *engine.Engine, turns int) {
	t.Helper()
	ticker := engine.NewTicker(e, nil, 0, nil)
	for i := 0; i < turns; i++ {
		if _, err := e.TakeTurn(""); err != nil {
			t.Fatalf("TakeTurn %d returned error: %v", i, err)
		}
		ticker.RunUntilSettled(16, 1000)
	}
}

func assertRebuilt(t *testing.T, rebuilt *RebuiltGame, e *engine.Engine) {
	t.Helper()
	want := e.Standings()
	got := toStandings(rebuilt.Standings)
	if len(got) != len(want) {
		t.Fatalf("rebuilt %d standings, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("seat %d rebuilt as %+v, want %+v", i, got[i], want[i])
		}
	}
	p := e.Progress()
	if rebuilt.State.Turn != p.Turn || rebuilt.State.CurrentSeat != p.CurrentSeat || rebuilt.State.LastRoll != p.LastRoll {
		t.Errorf("rebuilt state %+v, want %+v", rebuilt.State, p)
	}
}

func TestReconstructorRebuildsFromPersistedEvents(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))

	newEngine := func() *engine.Engine {
		roller, _ := engine.NewScriptedRoller(5, 3, 6, 2)
		el := events.NewEventLog(NewEventPersister(repo, "G"))
		el.OnPersistError(func(err error) { t.Errorf("persist failed: %v", err) })
		e, err := engine.NewEngine(engine.DefaultConfig(), roller, el, logger.Discard())
		if err != nil {
			t.Fatalf("NewEngine returned error: %v", err)
		}
		return e
	}

	first := newEngine()
	first.Join("p1", "Alice", "run.png")
	first.Join("p2", "Bob", "")
	first.Join("p3", "Carol", "")
	playGame(t, first, 7)

	rc := NewReconstructor(repo)
	rebuilt, err := rc.RebuildGame(ctx, "G")
	if err != nil {
		t.Fatalf("RebuildGame returned error: %v", err)
	}
	assertRebuilt(t, rebuilt, first)

	// A restart resumes from the rebuilt state and keeps logging to the same game.
	second := newEngine()
	p := engine.Progress{Turn: rebuilt.State.Turn, CurrentSeat: rebuilt.State.CurrentSeat, LastRoll: rebuilt.State.LastRoll}
	if err := second.Restore(toStandings(rebuilt.Standings), p); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	playGame(t, second, 4)

	rebuilt, err = rc.RebuildGame(ctx, "G")
	if err != nil {
		t.Fatalf("second RebuildGame returned error: %v", err)
	}
	assertRebuilt(t, rebuilt, second)
}

func TestSnapshotFreshness(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewSQLiteEventRepository(db)
	stateRepo := NewSQLiteGameStateRepository(db)
	rc := NewReconstructor(repo)

	empty, err := rc.RebuildGame(ctx, "G")
	if err != nil {
		t.Fatalf("RebuildGame returned error: %v", err)
	}
	if !empty.LastEventAt.IsZero() || !empty.CoveredBy(time.Time{}) {
		t.Fatalf("empty log LastEventAt = %v", empty.LastEventAt)
	}

	before := time.Now().Add(-time.Hour).Truncate(time.Second)
	repo.Append(ctx, GameEvent{ID: "e1", GameID: "G", Timestamp: before, EventType: "PLAYER_JOINED", ActorID: "p1", Payload: map[string]interface{}{}})
	if err := stateRepo.Save(ctx, GameState{GameID: "G", Turn: 1}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	state, err := stateRepo.Load(ctx, "G")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	rebuilt, _ := rc.RebuildGame(ctx, "G")
	if !rebuilt.LastEventAt.Equal(before) {
		t.Fatalf("LastEventAt = %v, want %v", rebuilt.LastEventAt, before)
	}
	if !rebuilt.CoveredBy(state.LastUpdated) {
		t.Fatalf("snapshot saved at %v should cover an event at %v", state.LastUpdated, before)
	}

	// An event logged after the backup makes the snapshot stale.
	repo.Append(ctx, GameEvent{ID: "e2", GameID: "G", Timestamp: time.Now().Add(time.Hour), EventType: "DICE_ROLLED", ActorID: "p1", Payload: map[string]interface{}{"value": 3.0}, Turn: 2})
	rebuilt, _ = rc.RebuildGame(ctx, "G")
	if rebuilt.CoveredBy(state.LastUpdated) {
		t.Fatalf("snapshot saved at %v covers an event at %v", state.LastUpdated, rebuilt.LastEventAt)
	}
}

func TestRecap(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))
	roller, _ := engine.NewScriptedRoller(4)
	el := events.NewEventLog(NewEventPersister(repo, "G"))
	e, _ := engine.NewEngine(engine.DefaultConfig(), roller, el, nil)
	e.Join("p1", "Alice", "")
	e.Join("p2", "Bob", "")
	playGame(t, e, 2)

	recap, err := NewReconstructor(repo).Recap(ctx, "G", "p2", 2)
	if err != nil {
		t.Fatalf("Recap returned error: %v", err)
	}

	// Turn 2 is p2's: roll, move, landing, then the system passing the turn back.
	var summaries []string
	for _, r := range recap {
		if r.Turn != 2 {
			t.Errorf("recap contains turn %d", r.Turn)
		}
		summaries = append(summaries, r.Summary)
	}
	want := []string{
		"You rolled a 4.",
		"You moved from panel 0 to panel 4.",
		"The turn passed on.",
		"You landed on panel_4.",
	}
	if len(summaries) != len(want) {
		t.Fatalf("recap = %q, want %q", summaries, want)
	}
	for i := range want {
		if summaries[i] != want[i] {
			t.Fatalf("recap = %q, want %q", summaries, want)
		}
	}
}

func TestPersisterRejectsNonObjectPayload(t *testing.T) {
	repo := NewSQLiteEventRepository(openTestDB(t))
	p := NewEventPersister(repo, "G")

	err := p.Append(events.GameEvent{ID: "bad", Type: events.EventTypeDiceRolled, Payload: []int{1, 2}})
	if err == nil {
		t.Fatal("expected error for array payload")
	}
	if err := p.Append(events.GameEvent{ID: "nil", Type: events.EventTypeTurnAdvanced, Timestamp: time.Now()}); err != nil {
		t.Fatalf("nil payload returned error: %v", err)
	}
}
