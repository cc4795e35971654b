package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/tabhouse/internal/tab/event"
)

func TestMemoryDeliversInRegistrationOrder(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	var order []string
	m.Subscribe(func(_ context.Context, _ event.Event) error {
		order = append(order, "first")
		return nil
	})
	m.Subscribe(func(_ context.Context, _ event.Event) error {
		order = append(order, "second")
		return nil
	})

	if err := m.Publish(context.Background(), event.Event{TabID: "t-1", Seq: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected delivery order %v", order)
	}
}

func TestMemoryStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	failure := errors.New("subscriber down")
	m.Subscribe(func(_ context.Context, _ event.Event) error { return failure })
	reached := false
	m.Subscribe(func(_ context.Context, _ event.Event) error {
		reached = true
		return nil
	})

	if err := m.Publish(context.Background(), event.Event{TabID: "t-1", Seq: 1}); !errors.Is(err, failure) {
		t.Fatalf("expected subscriber failure, got %v", err)
	}
	if reached {
		t.Fatal("expected delivery to stop at the failing subscriber")
	}
}
