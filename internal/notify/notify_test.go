package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
	"github.com/example/taxi-dispatch/internal/storage"
)

type failPusher struct{ err error }

func (p *failPusher) Push(userID string, n models.Notification) error { return p.err }

func TestDebounceSuppressesWithinWindow(t *testing.T) {
	mem := storage.NewMemory()
	d := NewDebouncer(mem, 2*time.Minute)
	e := NewEmitter(mem, nil, d, nil)

	base := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }
	e.now = d.now

	ctx := context.Background()
	emitted, err := e.Emit(ctx, "p1", TypeDriverArrived, "ride1", "Arrived", "here", models.PriorityUrgent)
	if err != nil || !emitted {
		t.Fatalf("first emit: emitted=%v err=%v", emitted, err)
	}

	// 30 seconds later: still inside the window
	d.now = func() time.Time { return base.Add(30 * time.Second) }
	emitted, err = e.Emit(ctx, "p1", TypeDriverArrived, "ride1", "Arrived", "here", models.PriorityUrgent)
	if err != nil {
		t.Fatal(err)
	}
	if emitted {
		t.Fatal("duplicate within window must be suppressed")
	}

	// past the window: level-triggered re-emit
	d.now = func() time.Time { return base.Add(2*time.Minute + time.Second) }
	e.now = d.now
	emitted, err = e.Emit(ctx, "p1", TypeDriverArrived, "ride1", "Arrived", "here", models.PriorityUrgent)
	if err != nil || !emitted {
		t.Fatalf("emit after window: emitted=%v err=%v", emitted, err)
	}

	if got := len(mem.Notifications()); got != 2 {
		t.Fatalf("expected 2 stored notifications, got %d", got)
	}
}

func TestDebounceKeyedPerUserTypeRide(t *testing.T) {
	mem := storage.NewMemory()
	d := NewDebouncer(mem, 2*time.Minute)
	e := NewEmitter(mem, nil, d, nil)
	ctx := context.Background()

	if ok, _ := e.Emit(ctx, "p1", TypeDriverNearby, "ride1", "t", "m", models.PriorityHigh); !ok {
		t.Fatal("first emit suppressed")
	}
	// different ride: independent key
	if ok, _ := e.Emit(ctx, "p1", TypeDriverNearby, "ride2", "t", "m", models.PriorityHigh); !ok {
		t.Fatal("different ride must not be debounced")
	}
	// different type: independent key
	if ok, _ := e.Emit(ctx, "p1", TypeDriverArrived, "ride1", "t", "m", models.PriorityHigh); !ok {
		t.Fatal("different type must not be debounced")
	}
}

func TestPushFailureIsSwallowed(t *testing.T) {
	mem := storage.NewMemory()
	d := NewDebouncer(mem, time.Minute)
	e := NewEmitter(mem, &failPusher{err: errors.New("transport down")}, d, nil)

	emitted, err := e.Emit(context.Background(), "p1", TypeRideAccepted, "ride1", "t", "m", models.PriorityHigh)
	if err != nil {
		t.Fatalf("push failure must not surface: %v", err)
	}
	if !emitted {
		t.Fatal("notification should still be recorded")
	}
	if len(mem.Notifications()) != 1 {
		t.Fatal("stored record is the source of truth")
	}
}
