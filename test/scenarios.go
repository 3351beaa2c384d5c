// Package test - scenarios.go
// Headless board scenarios: scripted dice, fixed frame deltas, no network.
// Each scenario drives a real engine and checks what a player would see.
package test

import (
	"fmt"
	"strings"

	"github.com/MRamiBalles/Sugoroku/server/internal/domain/space"
	"github.com/MRamiBalles/Sugoroku/server/internal/engine"
	"github.com/MRamiBalles/Sugoroku/server/internal/events"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
)

// frameMs is one 60Hz frame.
const frameMs = 16

// maxFrames bounds every walk; a settled board never needs this many.
const maxFrames = 1000

// TestResult captures the outcome of each scenario.
type TestResult struct {
	ScenarioName string
	Input        string
	Expected     string
	Actual       string
	Passed       bool
	Reason       string
}

// Scenario builds and checks one situation on the board.
type Scenario struct {
	Name  string
	Input string
	Run   func(log *logger.Logger) (expected, actual string, err error)
}

// Suite runs scenarios and keeps their results.
type Suite struct {
	logger  *logger.Logger
	results []TestResult
}

// NewSuite creates the harness. log may be nil.
func NewSuite(log *logger.Logger) *Suite {
	if log == nil {
		log = logger.Discard()
	}
	return &Suite{logger: log}
}

// Scenarios lists every built-in scenario in run order.
func Scenarios() []Scenario {
	return []Scenario{
		{"Wraparound", "p1 on panel 11 of a 4x4 loop rolls 3", wraparound},
		{"Landing waits for the walk", "one player rolls 5", landingAfterSettle},
		{"Seats take turns in order", "three players, six rolls", turnOrder},
		{"Path walk stays on the loop", "path walk from panel 2, roll 4", pathWalk},
		{"Seeded games replay", "two engines with seed 42, ten turns", seededReplay},
	}
}

// RunAll runs every built-in scenario.
func (s *Suite) RunAll() []TestResult {
	for _, sc := range Scenarios() {
		s.Run(sc)
	}
	return s.results
}

// Run executes one scenario and records its result.
func (s *Suite) Run(sc Scenario) TestResult {
	s.logger.Info("SCENARIO: " + sc.Name)
	expected, actual, err := sc.Run(s.logger)

	result := TestResult{
		ScenarioName: sc.Name,
		Input:        sc.Input,
		Expected:     expected,
		Actual:       actual,
	}
	switch {
	case err != nil:
		result.Reason = err.Error()
	case expected != actual:
		result.Reason = "board diverged from the expected outcome"
	default:
		result.Passed = true
	}
	s.results = append(s.results, result)
	return result
}

// GetResults returns all results so far.
func (s *Suite) GetResults() []TestResult {
	return s.results
}

func newEngine(cfg engine.Config, roller engine.Roller, log *logger.Logger) (*engine.Engine, *engine.Ticker, error) {
	e, err := engine.NewEngine(cfg, roller, events.NewEventLog(nil), log)
	if err != nil {
		return nil, nil, err
	}
	return e, engine.NewTicker(e, nil, 0, log), nil
}

func scripted(cfg engine.Config, log *logger.Logger, rolls ...int) (*engine.Engine, *engine.Ticker, error) {
	roller, err := engine.NewScriptedRoller(rolls...)
	if err != nil {
		return nil, nil, err
	}
	return newEngine(cfg, roller, log)
}

func wraparound(log *logger.Logger) (string, string, error) {
	e, ticker, err := scripted(engine.DefaultConfig(), log, 3)
	if err != nil {
		return "", "", err
	}
	err = e.Restore([]engine.Standing{
		{PlayerID: "p1", Name: "p1", PanelIndex: 11},
		{PlayerID: "p2", Name: "p2"},
		{PlayerID: "p3", Name: "p3"},
		{PlayerID: "p4", Name: "p4"},
	}, engine.Progress{})
	if err != nil {
		return "", "", err
	}

	res, err := e.TakeTurn("p1")
	if err != nil {
		return "", "", err
	}
	f, _ := ticker.RunUntilSettled(frameMs, maxFrames)

	want := space.Vec3{X: 20, Y: 8, Z: 0}
	expected := fmt.Sprintf("to=2 laps=1 next=p2 at %v", want)
	actual := fmt.Sprintf("to=%d laps=%d next=%s at %v", res.To, res.LapsGained, res.NextPlayerID, f.Tokens[0].Position)
	return expected, actual, nil
}

func landingAfterSettle(log *logger.Logger) (string, string, error) {
	e, ticker, err := scripted(engine.DefaultConfig(), log, 5)
	if err != nil {
		return "", "", err
	}
	if _, err := e.Join("p1", "Alice", ""); err != nil {
		return "", "", err
	}
	if _, err := e.TakeTurn("p1"); err != nil {
		return "", "", err
	}
	landed := func() int { return len(e.EventLog().GetByType(events.EventTypePanelLanded)) }

	before := landed()
	ticker.RunFixed([]float64{frameMs, frameMs})
	during := landed()
	ticker.RunUntilSettled(frameMs, maxFrames)
	after := landed()
	ticker.RunFixed([]float64{frameMs, frameMs})

	return "landings 0/0/1/1", fmt.Sprintf("landings %d/%d/%d/%d", before, during, after, landed()), nil
}

func turnOrder(log *logger.Logger) (string, string, error) {
	e, ticker, err := scripted(engine.DefaultConfig(), log, 1, 2, 3, 4, 5, 6)
	if err != nil {
		return "", "", err
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, err := e.Join(id, id, ""); err != nil {
			return "", "", err
		}
	}

	var played []string
	for i := 0; i < 6; i++ {
		cur, err := e.CurrentPlayer()
		if err != nil {
			return "", "", err
		}
		if _, err := e.TakeTurn(cur.ID); err != nil {
			return "", "", err
		}
		played = append(played, cur.ID)
		ticker.RunUntilSettled(frameMs, maxFrames)
	}
	return "p1 p2 p3 p1 p2 p3", strings.Join(played, " "), nil
}

func pathWalk(log *logger.Logger) (string, string, error) {
	cfg := engine.DefaultConfig()
	cfg.Walk = engine.WalkPath
	roller, err := engine.NewScriptedRoller(2, 4)
	if err != nil {
		return "", "", err
	}
	e, err := engine.NewEngine(cfg, roller, events.NewEventLog(nil), log)
	if err != nil {
		return "", "", err
	}

	offLoop := 0
	ticker := engine.NewTicker(e, engine.PresenterFunc(func(f engine.Frame) {
		for _, t := range f.Tokens {
			p := t.Position
			if p.X != 0 && p.X != 30 && p.Z != 0 && p.Z != -30 {
				offLoop++
			}
		}
	}), 0, log)

	if _, err := e.Join("p1", "Alice", ""); err != nil {
		return "", "", err
	}
	for i := 0; i < 2; i++ {
		if _, err := e.TakeTurn("p1"); err != nil {
			return "", "", err
		}
		ticker.RunUntilSettled(frameMs, maxFrames)
	}

	standings := e.Standings()
	return "panel 6, 0 frames off the loop", fmt.Sprintf("panel %d, %d frames off the loop", standings[0].PanelIndex, offLoop), nil
}

func seededReplay(log *logger.Logger) (string, string, error) {
	play := func() (string, error) {
		e, ticker, err := newEngine(engine.DefaultConfig(), engine.NewRandomRoller(42), log)
		if err != nil {
			return "", err
		}
		for _, id := range []string{"p1", "p2"} {
			if _, err := e.Join(id, id, ""); err != nil {
				return "", err
			}
		}
		for i := 0; i < 10; i++ {
			if _, err := e.TakeTurn(""); err != nil {
				return "", err
			}
			ticker.RunUntilSettled(frameMs, maxFrames)
		}
		return fmt.Sprintf("%+v", e.Standings()), nil
	}

	first, err := play()
	if err != nil {
		return "", "", err
	}
	second, err := play()
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}
