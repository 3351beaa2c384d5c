package engine

import (
	"context"
	"sync"
	"time"

	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/metrics"
)

// DefaultFrameInterval is roughly 60 frames per second.
const DefaultFrameInterval = time.Second / 60

// Presenter receives every frame once the simulation has produced it.
// This is where the host issues its draw call.
type Presenter interface {
	Present(Frame)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Frame)

// Present calls f.
func (f PresenterFunc) Present(frame Frame) { f(frame) }

// Ticker drives the engine once per display frame.
// It is the only place that reads the wall clock; the engine only sees deltas.
type Ticker struct {
	engine    *Engine
	presenter Presenter
	interval  time.Duration
	logger    *logger.Logger

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewTicker creates a frame loop. presenter may be nil.
func NewTicker(e *Engine, presenter Presenter, interval time.Duration, log *logger.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Ticker{
		engine:    e,
		presenter: presenter,
		interval:  interval,
		logger:    log,
		stopChan:  make(chan struct{}),
	}
}

// Start runs the frame loop until ctx is done or Stop is called. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Frame loop started at " + t.interval.String() + " per frame")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Frame loop stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Frame loop stopped manually.")
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			t.frame(float64(delta) / float64(time.Millisecond))
		}
	}
}

// Stop ends the frame loop. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// RunFixed runs one frame per delta, in order, without touching the clock.
// Used for replays and headless simulations.
func (t *Ticker) RunFixed(deltasMs []float64) Frame {
	var f Frame
	for _, d := range deltasMs {
		f = t.frame(d)
	}
	return f
}

// RunUntilSettled runs frames of deltaMs until no token is moving or maxFrames pass.
// It returns the last frame and how many frames ran.
func (t *Ticker) RunUntilSettled(deltaMs float64, maxFrames int) (Frame, int) {
	f := t.engine.Frame()
	n := 0
	for n < maxFrames {
		f = t.frame(deltaMs)
		n++
		if !f.Moving() {
			break
		}
	}
	return f, n
}

func (t *Ticker) frame(deltaMs float64) Frame {
	start := time.Now()
	f := t.engine.Tick(deltaMs)
	if t.presenter != nil {
		t.presenter.Present(f)
	}
	metrics.Get().RecordTick(time.Since(start))
	return f
}
