// Package metrics provides observability for the board server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Gameplay
	Turns     int64
	DiceTotal int64
	Laps      int64
	Landings  int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSMessagesDropped   int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a frame completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordTurn records a resolved roll.
func (c *Collector) RecordTurn(dice int) {
	atomic.AddInt64(&c.Turns, 1)
	atomic.AddInt64(&c.DiceTotal, int64(dice))
}

// RecordLap records a token passing the start panel.
func (c *Collector) RecordLap() {
	atomic.AddInt64(&c.Laps, 1)
}

// RecordLanding records a landing effect being triggered.
func (c *Collector) RecordLanding() {
	atomic.AddInt64(&c.Landings, 1)
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSDrop records a broadcast skipped because a queue was full.
func (c *Collector) RecordWSDrop() {
	atomic.AddInt64(&c.WSMessagesDropped, 1)
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// storeMax raises *addr to v if v is larger.
func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)
	turns := atomic.LoadInt64(&c.Turns)

	var tickAvg, eventAvg, diceAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}
	if turns > 0 {
		diceAvg = float64(atomic.LoadInt64(&c.DiceTotal)) / float64(turns)
	}

	lastTick := ""
	if !c.LastTickTime.IsZero() {
		lastTick = c.LastTickTime.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick,
		},

		"game": map[string]interface{}{
			"turns":    turns,
			"dice_avg": diceAvg,
			"laps":     atomic.LoadInt64(&c.Laps),
			"landings": atomic.LoadInt64(&c.Landings),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"messages_dropped":   atomic.LoadInt64(&c.WSMessagesDropped),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		// Tick metrics
		fmt.Fprintf(w, "# HELP sugoroku_tick_count Total frames simulated\n")
		fmt.Fprintf(w, "# TYPE sugoroku_tick_count counter\n")
		fmt.Fprintf(w, "sugoroku_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP sugoroku_tick_latency_max_ms Maximum frame latency\n")
		fmt.Fprintf(w, "# TYPE sugoroku_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "sugoroku_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Gameplay
		fmt.Fprintf(w, "# HELP sugoroku_turns_total Total resolved rolls\n")
		fmt.Fprintf(w, "# TYPE sugoroku_turns_total counter\n")
		fmt.Fprintf(w, "sugoroku_turns_total %d\n\n", atomic.LoadInt64(&c.Turns))

		fmt.Fprintf(w, "# HELP sugoroku_laps_total Total laps completed\n")
		fmt.Fprintf(w, "# TYPE sugoroku_laps_total counter\n")
		fmt.Fprintf(w, "sugoroku_laps_total %d\n\n", atomic.LoadInt64(&c.Laps))

		fmt.Fprintf(w, "# HELP sugoroku_landings_total Total landing effects triggered\n")
		fmt.Fprintf(w, "# TYPE sugoroku_landings_total counter\n")
		fmt.Fprintf(w, "sugoroku_landings_total %d\n\n", atomic.LoadInt64(&c.Landings))

		// Event metrics
		fmt.Fprintf(w, "# HELP sugoroku_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE sugoroku_events_written counter\n")
		fmt.Fprintf(w, "sugoroku_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP sugoroku_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE sugoroku_event_write_errors counter\n")
		fmt.Fprintf(w, "sugoroku_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP sugoroku_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE sugoroku_ws_connections gauge\n")
		fmt.Fprintf(w, "sugoroku_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP sugoroku_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE sugoroku_ws_messages_total counter\n")
		fmt.Fprintf(w, "sugoroku_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "sugoroku_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
		fmt.Fprintf(w, "sugoroku_ws_messages_total{direction=\"dropped\"} %d\n", atomic.LoadInt64(&c.WSMessagesDropped))
	}
}
