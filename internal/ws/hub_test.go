package ws_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wikiroute/wikiroute/internal/models"
	"github.com/wikiroute/wikiroute/internal/ws"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func TestEventBuffer_Since(t *testing.T) {
	eb := ws.NewEventBuffer(3, time.Hour)

	for id := uint64(1); id <= 5; id++ {
		eb.Append(&ws.Event{Type: "x", ID: id, Time: time.Now()})
	}

	if got := eb.OldestID(); got != 3 {
		t.Errorf("OldestID = %d, want 3", got)
	}

	events := eb.Since(3)
	if len(events) != 2 || events[0].ID != 4 || events[1].ID != 5 {
		t.Errorf("Since(3) = %+v", events)
	}

	if eb.Since(5) != nil {
		t.Error("expected nothing after the newest event")
	}
}

func TestEventBuffer_EvictsExpired(t *testing.T) {
	eb := ws.NewEventBuffer(10, time.Minute)

	eb.Append(&ws.Event{ID: 1, Time: time.Now().Add(-2 * time.Minute)})
	eb.Append(&ws.Event{ID: 2, Time: time.Now()})

	if got := eb.OldestID(); got != 2 {
		t.Errorf("OldestID = %d, want 2", got)
	}
}

func TestHub_ObserveBuffersStageEvents(t *testing.T) {
	hub := ws.NewHub(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	hub.Observe(models.StageEvent{Type: models.EventStageStarted, RunID: "r1", Stage: "rank"})
	hub.Observe(models.StageEvent{
		Type:     models.EventStageCompleted,
		RunID:    "r1",
		Stage:    "rank",
		Counters: map[string]int64{"retained": 2},
	})

	events := hub.Recent(0)
	if len(events) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(events))
	}

	if events[0].ID >= events[1].ID {
		t.Errorf("event ids not increasing: %d, %d", events[0].ID, events[1].ID)
	}

	var ev models.StageEvent
	if err := json.Unmarshal(events[1].Data, &ev); err != nil {
		t.Fatal(err)
	}

	if events[1].Type != models.EventStageCompleted || ev.Counters["retained"] != 2 {
		t.Errorf("unexpected event: %s %+v", events[1].Type, ev)
	}

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d", hub.ClientCount())
	}

	hub.Shutdown()
}
