// Package network - history.go
// Replay of the in-memory event log: who rolled what, who landed where.
package network

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MRamiBalles/Sugoroku/server/internal/events"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/logger"
)

// HistoryHandler provides the history API.
type HistoryHandler struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(el *events.EventLog, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		eventLog: el,
		logger:   log,
	}
}

// ReplayEvent is an event formatted for public viewing.
type ReplayEvent struct {
	ID        string      `json:"id"`
	Timestamp string      `json:"timestamp"`
	Turn      int         `json:"turn"`
	Type      string      `json:"type"`
	Actor     string      `json:"actor"`
	Summary   string      `json:"summary"`
	Details   interface{} `json:"details,omitempty"`
}

// HistoryResponse is the API response for the history endpoint.
type HistoryResponse struct {
	TotalEvents int           `json:"total_events"`
	FilteredBy  string        `json:"filtered_by,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Events      []ReplayEvent `json:"events"`
}

// RegisterRoutes sets up the history routes on r.
func (hh *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/history", hh.HandleHistory)
	r.Get("/history/stats", hh.HandleStats)
	r.Get("/history/{id}", hh.HandleEventDetail)
}

// HandleHistory returns the event history.
// GET /api/history?actor=p1&type=DICE_ROLLED&turn=3
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	actor := q.Get("actor")
	eventType := q.Get("type")
	turn := -1
	if s := q.Get("turn"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "turn must be a number")
			return
		}
		turn = n
	}

	var source []events.GameEvent
	switch {
	case actor != "":
		source = hh.eventLog.GetByActor(actor)
	case eventType != "":
		source = hh.eventLog.GetByType(events.EventType(eventType))
	case turn >= 0:
		source = hh.eventLog.GetByTurn(turn)
	default:
		source = hh.eventLog.Replay()
	}

	replayEvents := make([]ReplayEvent, 0, len(source))
	for _, e := range source {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if turn >= 0 && e.Turn != turn {
			continue
		}
		replayEvents = append(replayEvents, hh.convertToReplayEvent(e))
	}

	filterDesc := ""
	if actor != "" {
		filterDesc += "actor=" + actor + " "
	}
	if eventType != "" {
		filterDesc += "type=" + eventType + " "
	}
	if turn >= 0 {
		filterDesc += "turn=" + strconv.Itoa(turn)
	}

	hh.logger.Event("HISTORY_REPLAY", r.RemoteAddr, "Events:"+strconv.Itoa(len(replayEvents)))

	respondJSON(w, http.StatusOK, HistoryResponse{
		TotalEvents: len(replayEvents),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      replayEvents,
	})
}

// HandleEventDetail returns one event with its payload.
// GET /api/history/{id}
func (hh *HistoryHandler) HandleEventDetail(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	for _, e := range hh.eventLog.Replay() {
		if e.ID == eventID {
			detail := hh.convertToReplayEvent(e)
			detail.Details = e.Payload
			respondJSON(w, http.StatusOK, detail)
			return
		}
	}

	respondError(w, http.StatusNotFound, "Event not found")
}

// HandleStats returns aggregate statistics over the whole log.
// GET /api/history/stats
func (hh *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	allEvents := hh.eventLog.Replay()

	byType := make(map[string]int)
	rolls, diceTotal := 0, 0
	for _, e := range allEvents {
		byType[string(e.Type)]++
		if p, ok := e.Payload.(events.DiceRolledPayload); ok {
			rolls++
			diceTotal += p.Value
		}
	}

	diceAvg := 0.0
	if rolls > 0 {
		diceAvg = float64(diceTotal) / float64(rolls)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"total_events": len(allEvents),
		"by_type":      byType,
		"dice_avg":     diceAvg,
	})
}

// convertToReplayEvent transforms an internal event to public format.
func (hh *HistoryHandler) convertToReplayEvent(e events.GameEvent) ReplayEvent {
	actor := e.ActorID
	if actor == events.ActorSystem {
		actor = "Board"
	}

	return ReplayEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format("15:04:05"),
		Turn:      e.Turn,
		Type:      string(e.Type),
		Actor:     actor,
		Summary:   hh.summarizeEvent(e),
	}
}

// summarizeEvent creates a human-readable summary.
func (hh *HistoryHandler) summarizeEvent(e events.GameEvent) string {
	switch p := e.Payload.(type) {
	case events.PlayerJoinedPayload:
		return fmt.Sprintf("%s joined in seat %d.", p.Name, p.Seat)
	case events.DiceRolledPayload:
		return fmt.Sprintf("%s rolled a %d.", e.ActorID, p.Value)
	case events.TokenMovedPayload:
		return fmt.Sprintf("%s moved from panel %d to panel %d.", e.ActorID, p.From, p.To)
	case events.LapCompletedPayload:
		return fmt.Sprintf("%s completed lap %d.", e.ActorID, p.Laps)
	case events.PanelLandedPayload:
		return fmt.Sprintf("%s landed on %s.", e.ActorID, p.Label)
	case events.TurnAdvancedPayload:
		return fmt.Sprintf("%s is up next.", p.NextPlayerID)
	case events.GameRestoredPayload:
		return fmt.Sprintf("Board restored with %d players.", len(p.Players))
	default:
		return "Something happened on the board."
	}
}
