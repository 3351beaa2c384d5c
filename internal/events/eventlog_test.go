package events

import (
	"errors"
	"testing"
)

type recordingPersister struct {
	got []GameEvent
	err error
}

func (p *recordingPersister) Append(e GameEvent) error {
	p.got = append(p.got, e)
	return p.err
}

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	el := NewEventLog(nil)
	e := el.Append(GameEvent{Type: EventTypeDiceRolled, ActorID: "p1", Payload: DiceRolledPayload{Value: 4}})

	if e.ID == "" {
		t.Errorf("expected generated ID")
	}
	if e.Timestamp.IsZero() {
		t.Errorf("expected generated timestamp")
	}
	if el.Len() != 1 {
		t.Fatalf("Len = %d, want 1", el.Len())
	}
}

func TestAppendWritesThroughAndReportsErrors(t *testing.T) {
	p := &recordingPersister{err: errors.New("disk full")}
	el := NewEventLog(p)

	var reported error
	el.OnPersistError(func(err error) { reported = err })
	el.Append(GameEvent{Type: EventTypePlayerJoined, ActorID: "p1"})

	if len(p.got) != 1 {
		t.Fatalf("persister saw %d events, want 1", len(p.got))
	}
	if reported == nil {
		t.Fatalf("expected persist error to be reported")
	}
	if el.Len() != 1 {
		t.Fatalf("event should stay in memory even when persistence fails")
	}
}

func TestSubscribersSeeAppends(t *testing.T) {
	el := NewEventLog(nil)
	var seen []EventType
	el.Subscribe(func(e GameEvent) { seen = append(seen, e.Type) })

	el.Append(GameEvent{Type: EventTypeDiceRolled})
	el.Append(GameEvent{Type: EventTypeTokenMoved})

	if len(seen) != 2 || seen[0] != EventTypeDiceRolled || seen[1] != EventTypeTokenMoved {
		t.Fatalf("subscriber saw %v", seen)
	}
}

func TestFilters(t *testing.T) {
	el := NewEventLog(nil)
	el.Append(GameEvent{Type: EventTypeDiceRolled, ActorID: "p1", Turn: 1})
	el.Append(GameEvent{Type: EventTypeTokenMoved, ActorID: "p1", Turn: 1})
	el.Append(GameEvent{Type: EventTypeDiceRolled, ActorID: "p2", Turn: 2})

	if got := len(el.GetByActor("p1")); got != 2 {
		t.Errorf("GetByActor(p1) = %d events, want 2", got)
	}
	if got := len(el.GetByType(EventTypeDiceRolled)); got != 2 {
		t.Errorf("GetByType(DICE_ROLLED) = %d events, want 2", got)
	}
	if got := len(el.GetByTurn(2)); got != 1 {
		t.Errorf("GetByTurn(2) = %d events, want 1", got)
	}

	replay := el.Replay()
	replay[0].ActorID = "tampered"
	if el.Replay()[0].ActorID != "p1" {
		t.Errorf("Replay exposed internal storage")
	}
}
