package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/Sugoroku/server/internal/events"
	"github.com/MRamiBalles/Sugoroku/server/internal/platform/metrics"
)

// EventPersister translates domain events to storage events.
// It satisfies events.EventPersister.
type EventPersister struct {
	repo    EventRepository
	gameID  string
	timeout time.Duration
}

// NewEventPersister writes every event under gameID.
func NewEventPersister(repo EventRepository, gameID string) *EventPersister {
	return &EventPersister{repo: repo, gameID: gameID, timeout: 5 * time.Second}
}

// Append stores event and records the write latency.
func (p *EventPersister) Append(event events.GameEvent) error {
	payload, err := payloadMap(event.Payload)
	if err != nil {
		return fmt.Errorf("event %s: %w", event.ID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err = p.repo.Append(ctx, GameEvent{
		ID:        event.ID,
		GameID:    p.gameID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		Payload:   payload,
		Turn:      event.Turn,
	})
	metrics.Get().RecordEventWrite(time.Since(start), err)
	return err
}

// payloadMap flattens a typed payload into the generic map the events table stores.
func payloadMap(payload interface{}) (map[string]interface{}, error) {
	if payload == nil {
		return map[string]interface{}{}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return m, nil
}
