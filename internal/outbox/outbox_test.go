package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/tabhouse/internal/tab/event"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type entryState struct {
	entry       Entry
	availableAt time.Time
	published   bool
	dead        bool
	deadReason  string
}

type fakeStore struct {
	entries []*entryState
}

func (s *fakeStore) add(id int64, tabID string, seq uint64) {
	s.entries = append(s.entries, &entryState{
		entry: Entry{ID: id, Event: event.Event{
			TabID: tabID, Seq: seq, Type: event.TypeItemsOrdered,
			Timestamp: testTime, PayloadJSON: []byte(`{"items":[]}`),
		}},
		availableAt: testTime,
	})
}

func (s *fakeStore) ListPending(_ context.Context, now time.Time, limit int) ([]Entry, error) {
	var out []Entry
	for i, st := range s.entries {
		if st.published || st.dead || st.availableAt.After(now) {
			continue
		}
		if s.earlierDeferred(i, now) {
			continue
		}
		out = append(out, st.entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// earlierDeferred reports whether an earlier unpublished entry of the same
// tab is deferred past now.
func (s *fakeStore) earlierDeferred(idx int, now time.Time) bool {
	tabID := s.entries[idx].entry.Event.TabID
	for _, st := range s.entries[:idx] {
		if st.entry.Event.TabID != tabID || st.published || st.dead {
			continue
		}
		if st.availableAt.After(now) {
			return true
		}
	}
	return false
}

func (s *fakeStore) MarkPublished(_ context.Context, id int64, _ time.Time) error {
	s.byID(id).published = true
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, availableAt time.Time) error {
	st := s.byID(id)
	st.entry.Attempts++
	st.availableAt = availableAt
	return nil
}

func (s *fakeStore) MarkDead(_ context.Context, id int64, reason string, _ time.Time) error {
	st := s.byID(id)
	st.entry.Attempts++
	st.dead = true
	st.deadReason = reason
	return nil
}

func (s *fakeStore) byID(id int64) *entryState {
	for _, st := range s.entries {
		if st.entry.ID == id {
			return st
		}
	}
	panic("unknown entry id")
}

func TestDrainOncePublishesInOrder(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	store.add(1, "t-1", 1)
	store.add(2, "t-1", 2)
	store.add(3, "t-2", 1)

	var delivered []string
	relay := NewRelay(store, []Handler{func(_ context.Context, evt event.Event) error {
		delivered = append(delivered, evt.TabID)
		return nil
	}}, WithClock(func() time.Time { return testTime }))

	n, err := relay.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 published, got %d", n)
	}
	if len(delivered) != 3 || delivered[0] != "t-1" || delivered[1] != "t-1" || delivered[2] != "t-2" {
		t.Fatalf("unexpected delivery order %v", delivered)
	}
	for _, st := range store.entries {
		if !st.published {
			t.Fatalf("entry %d not marked published", st.entry.ID)
		}
	}
}

func TestFailureBlocksLaterEventsOfSameTab(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	store.add(1, "t-1", 1)
	store.add(2, "t-1", 2)
	store.add(3, "t-2", 1)

	var delivered []int64
	relay := NewRelay(store, []Handler{func(_ context.Context, evt event.Event) error {
		if evt.TabID == "t-1" {
			return errors.New("consumer down")
		}
		delivered = append(delivered, int64(evt.Seq))
		return nil
	}}, WithClock(func() time.Time { return testTime }))

	n, err := relay.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected only t-2's event published, got %d", n)
	}
	if store.entries[0].entry.Attempts != 1 {
		t.Fatalf("expected one failed attempt, got %d", store.entries[0].entry.Attempts)
	}
	// The second t-1 entry is skipped without an attempt, keeping order.
	if store.entries[1].entry.Attempts != 0 {
		t.Fatalf("expected blocked entry untouched, got %d attempts", store.entries[1].entry.Attempts)
	}
	if !store.entries[2].published {
		t.Fatal("expected the other tab's entry published")
	}
}

func TestDeferredEntryBlocksSuccessorsAcrossPasses(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	store.add(1, "t-1", 1)
	store.add(2, "t-1", 2)

	clock := testTime
	failing := true
	var delivered []uint64
	relay := NewRelay(store, []Handler{func(_ context.Context, evt event.Event) error {
		if failing && evt.Seq == 1 {
			return errors.New("consumer down")
		}
		delivered = append(delivered, evt.Seq)
		return nil
	}},
		WithBackoff(time.Minute),
		WithClock(func() time.Time { return clock }),
	)

	if _, err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain 1: %v", err)
	}
	// While seq 1 waits out its backoff, seq 2 must not be attempted.
	if _, err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain 2: %v", err)
	}
	if store.entries[1].entry.Attempts != 0 {
		t.Fatalf("expected successor untouched, got %d attempts", store.entries[1].entry.Attempts)
	}
	if len(delivered) != 0 {
		t.Fatalf("expected nothing delivered, got %v", delivered)
	}

	failing = false
	clock = clock.Add(2 * time.Minute)
	if n, err := relay.DrainOnce(context.Background()); err != nil || n != 2 {
		t.Fatalf("expected both published after recovery, got n=%d err=%v", n, err)
	}
	if len(delivered) != 2 || delivered[0] != 1 || delivered[1] != 2 {
		t.Fatalf("expected in-order delivery, got %v", delivered)
	}
}

func TestRetryBacksOffThenDeadLetters(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	store.add(1, "t-1", 1)

	clock := testTime
	relay := NewRelay(store, []Handler{func(_ context.Context, _ event.Event) error {
		return errors.New("consumer down")
	}},
		WithMaxAttempts(3),
		WithBackoff(time.Second),
		WithClock(func() time.Time { return clock }),
	)

	if _, err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain 1: %v", err)
	}
	st := store.entries[0]
	if st.entry.Attempts != 1 || !st.availableAt.Equal(testTime.Add(time.Second)) {
		t.Fatalf("expected 1s backoff, got attempts=%d available=%v", st.entry.Attempts, st.availableAt)
	}

	// Before the backoff elapses the entry is not retried.
	if n, _ := relay.DrainOnce(context.Background()); n != 0 || st.entry.Attempts != 1 {
		t.Fatalf("expected entry deferred, got attempts=%d", st.entry.Attempts)
	}

	clock = clock.Add(2 * time.Second)
	if _, err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain 2: %v", err)
	}
	if st.entry.Attempts != 2 {
		t.Fatalf("expected second attempt, got %d", st.entry.Attempts)
	}

	clock = clock.Add(4 * time.Second)
	if _, err := relay.DrainOnce(context.Background()); err != nil {
		t.Fatalf("drain 3: %v", err)
	}
	if !st.dead || st.deadReason == "" {
		t.Fatalf("expected dead-lettered entry, got %+v", st)
	}

	// Dead entries never come back.
	clock = clock.Add(time.Hour)
	if n, _ := relay.DrainOnce(context.Background()); n != 0 {
		t.Fatalf("expected nothing pending, got %d", n)
	}
}
