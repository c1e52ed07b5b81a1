package event

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/gantry/internal/logging"
)

func TestBus_PublishToSubscribers(t *testing.T) {
	bus := NewBus()

	var got []ResultDiscardedEvent
	bus.Subscribe(TypeResultDiscarded, func(e Event) {
		got = append(got, e.(ResultDiscardedEvent))
	})
	bus.Subscribe(TypeAnalysisCompleted, func(e Event) {
		t.Errorf("unexpected delivery of %s", e.EventType())
	})

	bus.Publish(NewResultDiscardedEvent(3, 5))

	if len(got) != 1 || got[0].Generation != 3 || got[0].Current != 5 {
		t.Errorf("received %+v", got)
	}
}

func TestBus_DeliveryOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all") })
	bus.Subscribe(TypeScheduleLoaded, func(e Event) { order = append(order, "first") })
	bus.Subscribe(TypeScheduleLoaded, func(e Event) { order = append(order, "second") })

	bus.Publish(NewScheduleLoadedEvent("site.yaml", "site", 12))

	if !slices.Equal(order, []string{"first", "second", "all"}) {
		t.Errorf("delivery order = %v", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	keep := bus.Subscribe(TypeScheduleChanged, func(e Event) { calls++ })
	drop := bus.Subscribe(TypeScheduleChanged, func(e Event) { calls += 100 })

	if !bus.Unsubscribe(drop) {
		t.Fatal("Unsubscribe should find the subscription")
	}
	if bus.Unsubscribe(drop) {
		t.Error("second Unsubscribe of the same id should report false")
	}
	if bus.Unsubscribe("sub-missing") {
		t.Error("unknown ids should report false")
	}

	bus.Publish(NewScheduleChangedEvent("site.yaml", "WRITE"))
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	bus.Unsubscribe(keep)
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d", bus.SubscriptionCount())
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(TypeAnalysisFailed, func(Event) {})
	bus.SubscribeAll(func(Event) {})

	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus()
	bus.SetLogger(logging.NewWithWriter(&buf, "debug"))

	calls := 0
	bus.Subscribe(TypeAnalysisFailed, func(Event) {
		calls++
		panic("boom")
	})
	bus.Subscribe(TypeAnalysisFailed, func(Event) { calls++ })

	bus.Publish(NewAnalysisFailedEvent(1, errors.New("cycle")))

	if calls != 2 {
		t.Errorf("calls = %d, want both handlers to run", calls)
	}
	if !strings.Contains(buf.String(), "event handler panicked") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	calls := 0
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Go(func() {
			bus.Publish(NewAnalysisCompletedEvent(uint64(i), 9, []string{"A"}, time.Millisecond))
		})
	}
	wg.Wait()

	if calls != 100 {
		t.Errorf("calls = %d, want 100", calls)
	}
}

func TestBus_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			id := bus.Subscribe(TypeRecoveryPlanned, func(Event) {})
			bus.Unsubscribe(id)
		})
	}
	wg.Wait()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after concurrent add/remove", bus.SubscriptionCount())
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus()

	ids := make(map[string]bool)
	for range 100 {
		id := bus.Subscribe(TypeSimulationFinished, func(Event) {})
		if ids[id] {
			t.Errorf("duplicate subscription id %s", id)
		}
		ids[id] = true
	}
}

func TestEvents_Types(t *testing.T) {
	now := time.Now()
	tests := []struct {
		e    Event
		want string
	}{
		{NewScheduleLoadedEvent("p", "n", 1), TypeScheduleLoaded},
		{NewScheduleChangedEvent("p", "WRITE"), TypeScheduleChanged},
		{NewAnalysisCompletedEvent(1, 2, nil, 0), TypeAnalysisCompleted},
		{NewAnalysisFailedEvent(1, nil), TypeAnalysisFailed},
		{NewResultDiscardedEvent(1, 2), TypeResultDiscarded},
		{NewRecoveryPlannedEvent(true, now, now, 3), TypeRecoveryPlanned},
		{NewSimulationFinishedEvent(4, 0), TypeSimulationFinished},
	}
	for _, tt := range tests {
		if tt.e.EventType() != tt.want {
			t.Errorf("EventType() = %q, want %q", tt.e.EventType(), tt.want)
		}
		if tt.e.Timestamp().Before(now) {
			t.Errorf("%s: timestamp precedes creation", tt.want)
		}
	}
}
