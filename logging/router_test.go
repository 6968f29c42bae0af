package logging_test

import (
	"context"
	"testing"
	"time"

	"github.com/JulianGro/athena-entity-server/logging"
	"github.com/JulianGro/athena-entity-server/logging/sinks"
)

func fixedClock(t time.Time) logging.Clock {
	return logging.ClockFunc(func() time.Time { return t })
}

func waitForEvents(t *testing.T, sink *sinks.MemorySink, want int) []logging.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events := sink.Events()
		if len(events) >= want {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, have %d", want, len(sink.Events()))
	return nil
}

func TestRouterForwardsToSinks(t *testing.T) {
	sink := sinks.NewMemorySink()
	now := time.Unix(1000, 0)
	router, err := logging.NewRouter(fixedClock(now), logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: sink}})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	defer router.Close(context.Background())

	router.Publish(context.Background(), logging.Event{
		Type:     "tick.contention",
		Tick:     12,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryPhysics,
	})

	events := waitForEvents(t, sink, 1)
	if events[0].Type != "tick.contention" || events[0].Tick != 12 {
		t.Errorf("forwarded event = %+v, want the published one", events[0])
	}
	if !events[0].Time.Equal(now) {
		t.Errorf("event time = %v, want stamped with the router clock", events[0].Time)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Errorf("stats = %+v, want 1 forwarded and 0 dropped", stats)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	sink := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: sink}})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: "quiet", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "loud", Severity: logging.SeverityError})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := sink.Events()
	if len(events) != 1 || events[0].Type != "loud" {
		t.Fatalf("events = %+v, want only the error", events)
	}
}

func TestRouterIgnoresUntypedEvents(t *testing.T) {
	sink := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: sink}})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if events := sink.Events(); len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
}

func TestRouterMergesConfiguredFields(t *testing.T) {
	sink := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"node": "test-1"}
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: sink}})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	router.Publish(context.Background(), logging.Event{
		Type:     "tagged",
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"node": "override", "tick_rate": 60},
	})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	// Event-level fields win over configured ones.
	if events[0].Extra["node"] != "override" {
		t.Errorf("node = %v, want the event's value", events[0].Extra["node"])
	}
	if events[0].Extra["tick_rate"] != 60 {
		t.Errorf("tick_rate = %v, want preserved", events[0].Extra["tick_rate"])
	}
}

func TestRouterDropsWhenFullAndCounts(t *testing.T) {
	blocker := make(chan struct{})
	slow := &blockingSink{release: blocker}
	cfg := logging.DefaultConfig()
	cfg.BufferSize = 1
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "slow", Sink: slow}})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	// The first event occupies the dispatcher, the second fills the queue,
	// everything after that is dropped.
	for i := 0; i < 10; i++ {
		router.Publish(context.Background(), logging.Event{Type: "burst", Severity: logging.SeverityInfo})
	}
	if stats := router.Stats(); stats.DroppedTotal == 0 {
		t.Error("expected drops with a full queue")
	}

	close(blocker)
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Write(logging.Event) error {
	<-s.release
	return nil
}

func (s *blockingSink) Close(context.Context) error { return nil }
