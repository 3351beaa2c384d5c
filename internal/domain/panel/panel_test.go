package panel

import (
	"errors"
	"testing"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/space"
)

func mustLoop(t *testing.T, cfg LoopConfig) *Track {
	t.Helper()
	track, err := BuildLoop(cfg)
	if err != nil {
		t.Fatalf("BuildLoop(%+v) returned error: %v", cfg, err)
	}
	return track
}

func TestBuildLoopFourByFour(t *testing.T) {
	track := mustLoop(t, LoopConfig{Width: 4, Depth: 4, CellSize: 10})

	if track.PanelCount() != 12 {
		t.Fatalf("PanelCount = %d, want 12", track.PanelCount())
	}

	want := []space.Vec3{
		{X: 0}, {X: 10}, {X: 20}, {X: 30},
		{X: 30, Z: -10}, {X: 30, Z: -20}, {X: 30, Z: -30},
		{X: 20, Z: -30}, {X: 10, Z: -30}, {X: 0, Z: -30},
		{Z: -20}, {Z: -10},
	}
	for i, pos := range want {
		p, err := track.PanelAt(i)
		if err != nil {
			t.Fatalf("PanelAt(%d) returned error: %v", i, err)
		}
		if p.Position != pos {
			t.Errorf("panel %d at %+v, want %+v", i, p.Position, pos)
		}
		if p.Index != i {
			t.Errorf("panel %d has Index %d", i, p.Index)
		}
	}
}

func TestBuildLoopKeepsNeighboursAdjacent(t *testing.T) {
	shapes := []LoopConfig{
		{Width: 2, Depth: 2, CellSize: 10},
		{Width: 4, Depth: 4, CellSize: 10},
		{Width: 7, Depth: 3, CellSize: 5},
		{Width: 2, Depth: 9, CellSize: 1},
	}
	for _, cfg := range shapes {
		track := mustLoop(t, cfg)
		if track.PanelCount() != LoopLength(cfg.Width, cfg.Depth) {
			t.Fatalf("%dx%d: PanelCount = %d, want %d", cfg.Width, cfg.Depth,
				track.PanelCount(), LoopLength(cfg.Width, cfg.Depth))
		}

		seen := make(map[space.Vec3]bool)
		for i := 0; i < track.PanelCount(); i++ {
			here, _ := track.Position(i)
			next, _ := track.Position(track.NextIndex(i))
			if seen[here] {
				t.Fatalf("%dx%d: position %+v used twice", cfg.Width, cfg.Depth, here)
			}
			seen[here] = true

			dx, dz := next.X-here.X, next.Z-here.Z
			if next.Y != here.Y || !(abs(dx) == cfg.CellSize && dz == 0 || dx == 0 && abs(dz) == cfg.CellSize) {
				t.Errorf("%dx%d: panel %d %+v and next %+v are not neighbours", cfg.Width, cfg.Depth, i, here, next)
			}
		}
	}
}

func TestBuildLoopRejectsDegenerateGrids(t *testing.T) {
	tcs := []LoopConfig{
		{Width: 1, Depth: 4, CellSize: 10},
		{Width: 4, Depth: 1, CellSize: 10},
		{Width: 0, Depth: 0, CellSize: 10},
		{Width: 4, Depth: 4, CellSize: 0},
		{Width: 4, Depth: 4, CellSize: -10},
	}
	for _, cfg := range tcs {
		if _, err := BuildLoop(cfg); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("BuildLoop(%+v) error = %v, want %v", cfg, err, ErrInvalidConfiguration)
		}
	}
}

func TestNewTrackRejectsEmpty(t *testing.T) {
	if _, err := NewTrack(nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("NewTrack(nil) error = %v, want %v", err, ErrInvalidConfiguration)
	}
}

func TestNewTrackCopiesInput(t *testing.T) {
	panels := []Panel{{Label: "start"}, {Label: "end"}}
	track, err := NewTrack(panels)
	if err != nil {
		t.Fatalf("NewTrack returned error: %v", err)
	}
	panels[0].Label = "mutated"

	p, _ := track.PanelAt(0)
	if p.Label != "start" {
		t.Fatalf("track panel changed with caller slice: %q", p.Label)
	}
}

func TestPanelAtOutOfRange(t *testing.T) {
	track := mustLoop(t, LoopConfig{Width: 3, Depth: 3, CellSize: 10})
	for _, idx := range []int{-1, track.PanelCount(), track.PanelCount() + 5} {
		if _, err := track.PanelAt(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("PanelAt(%d) error = %v, want %v", idx, err, ErrIndexOutOfRange)
		}
	}
}

func TestNextIndexFormsSingleCycle(t *testing.T) {
	track := mustLoop(t, LoopConfig{Width: 5, Depth: 3, CellSize: 10})
	n := track.PanelCount()

	for start := 0; start < n; start++ {
		visited := make(map[int]bool)
		at := start
		for i := 0; i < n; i++ {
			if visited[at] {
				t.Fatalf("start %d: index %d revisited before %d steps", start, at, n)
			}
			visited[at] = true
			at = track.NextIndex(at)
			if at < 0 || at >= n {
				t.Fatalf("NextIndex produced %d outside [0,%d)", at, n)
			}
		}
		if at != start {
			t.Fatalf("start %d: after %d steps at %d", start, n, at)
		}
	}

	if track.NextIndex(n-1) != 0 {
		t.Errorf("NextIndex(last) = %d, want 0", track.NextIndex(n-1))
	}
}

func TestAdvanceCountsWraps(t *testing.T) {
	track := mustLoop(t, LoopConfig{Width: 4, Depth: 4, CellSize: 10})

	to, wraps := track.Advance(11, 3)
	if to != 2 || wraps != 1 {
		t.Fatalf("Advance(11, 3) = (%d, %d), want (2, 1)", to, wraps)
	}

	to, wraps = track.Advance(0, 11)
	if to != 11 || wraps != 0 {
		t.Fatalf("Advance(0, 11) = (%d, %d), want (11, 0)", to, wraps)
	}

	to, wraps = track.Advance(5, 25)
	if to != 6 || wraps != 2 {
		t.Fatalf("Advance(5, 25) = (%d, %d), want (6, 2)", to, wraps)
	}
}

func TestPath(t *testing.T) {
	track := mustLoop(t, LoopConfig{Width: 4, Depth: 4, CellSize: 10})
	got := track.Path(10, 4)
	want := []int{11, 0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("Path(10, 4) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Path(10, 4) = %v, want %v", got, want)
		}
	}
	if track.Path(3, 0) != nil {
		t.Errorf("Path with zero steps should be nil")
	}
}

func TestTriggerLanding(t *testing.T) {
	var landings []Landing
	track := mustLoop(t, LoopConfig{
		Width: 3, Depth: 3, CellSize: 10,
		Effect: func(l Landing) { landings = append(landings, l) },
	})

	track.TriggerLanding(4, "p1")
	track.TriggerLanding(4, "p1")
	track.TriggerLanding(99, "p1")
	track.TriggerLanding(-1, "p1")

	if len(landings) != 2 {
		t.Fatalf("got %d landings, want 2", len(landings))
	}
	if landings[0] != (Landing{PanelIndex: 4, Label: "panel_4", TokenID: "p1"}) {
		t.Errorf("landing = %+v", landings[0])
	}
}

func TestTriggerLandingWithoutEffect(t *testing.T) {
	track, err := NewTrack([]Panel{{Label: "plain"}})
	if err != nil {
		t.Fatalf("NewTrack returned error: %v", err)
	}
	track.TriggerLanding(0, "p1")

	p, _ := track.PanelAt(0)
	if p.HasEffect() {
		t.Errorf("panel without OnLand reports an effect")
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
