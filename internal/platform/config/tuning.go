package config

import (
	"fmt"
	"runtime"

	"github.com/MRamiBalles/Sugoroku/server/internal/engine"
)

// Tuning holds buffer and pool sizes for the server's moving parts.
type Tuning struct {
	// Channel buffer sizes
	BroadcastBuffer  int
	ClientSendBuffer int

	// SQLite connection pool
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Rate limiting
	MaxMessagesPerSecond int
	MaxClients           int
}

// DefaultTuning returns sensible defaults for production.
func DefaultTuning() Tuning {
	numCPU := runtime.NumCPU()

	return Tuning{
		BroadcastBuffer:  256,
		ClientSendBuffer: 64,

		DBMaxOpenConns: numCPU * 2,
		DBMaxIdleConns: numCPU,

		MaxMessagesPerSecond: 20,
		MaxClients:           200,
	}
}

// StressTuning returns aggressive settings for load tests with the agitator.
func StressTuning() Tuning {
	numCPU := runtime.NumCPU()

	return Tuning{
		BroadcastBuffer:  1024,
		ClientSendBuffer: 256,

		DBMaxOpenConns: numCPU * 4,
		DBMaxIdleConns: numCPU * 2,

		MaxMessagesPerSecond: 200,
		MaxClients:           1000,
	}
}

// LowResourceTuning returns minimal settings for development.
func LowResourceTuning() Tuning {
	return Tuning{
		BroadcastBuffer:  16,
		ClientSendBuffer: 8,

		DBMaxOpenConns: 2,
		DBMaxIdleConns: 1,

		MaxMessagesPerSecond: 5,
		MaxClients:           20,
	}
}

// TuningFor returns the preset called name: default, stress or low.
func TuningFor(name string) (Tuning, error) {
	switch name {
	case "", "default":
		return DefaultTuning(), nil
	case "stress":
		return StressTuning(), nil
	case "low":
		return LowResourceTuning(), nil
	}
	return Tuning{}, fmt.Errorf("%w: tuning profile %q", engine.ErrInvalidConfiguration, name)
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	Notes                   []string
}

// Analyze examines a metrics snapshot and returns tuning recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	// A frame that takes longer than its slot stalls every client.
	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 16 {
			rec.Notes = append(rec.Notes, fmt.Sprintf("Frame latency peaked at %.1fms - lower the board size or frame rate", maxLat))
		}
	}

	if events, ok := metrics["events"].(map[string]interface{}); ok {
		if maxLat, ok := events["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write latency exceeds 50ms - increase DB connections")
		}
		if errors, ok := events["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Event write errors detected - check DB connection pool")
		}
	}

	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if dropped, ok := ws["messages_dropped"].(int64); ok && dropped > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "Broadcasts dropped - increase broadcast and client send buffers")
		}
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// Apply returns t adjusted by rec.
func (t Tuning) Apply(rec *Recommendations) Tuning {
	if rec.IncreaseBroadcastBuffer {
		t.BroadcastBuffer *= 2
		t.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		t.DBMaxOpenConns = int(float64(t.DBMaxOpenConns) * 1.5)
		t.DBMaxIdleConns = int(float64(t.DBMaxIdleConns) * 1.5)
	}
	return t
}
