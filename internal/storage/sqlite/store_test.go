package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/tabhouse/internal/menu"
	"github.com/louisbranch/tabhouse/internal/tab/event"
	"github.com/louisbranch/tabhouse/internal/tab/journal"
	"github.com/louisbranch/tabhouse/internal/tab/view"
	"github.com/louisbranch/tabhouse/internal/table"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tabhouse.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func mkEvent(t *testing.T, tabID string, typ event.Type, payload any) event.Event {
	t.Helper()
	raw, err := event.EncodePayload(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return event.Event{
		TabID:       tabID,
		Timestamp:   testTime,
		Type:        typ,
		ActorID:     "w-1",
		PayloadJSON: raw,
	}
}

func TestAppendAndListEvents(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	opened := mkEvent(t, "t-1", event.TypeTabOpened, event.TabOpenedPayload{TableNumber: 5, WaiterID: "w-1"})
	ordered := mkEvent(t, "t-1", event.TypeItemsOrdered, event.ItemsOrderedPayload{Items: []event.OrderedItem{
		{Number: 7, Description: "Coffee", PriceCents: 350},
	}})

	if err := store.AppendEvents(ctx, "t-1", 0, []event.Event{opened}); err != nil {
		t.Fatalf("append opened: %v", err)
	}
	if err := store.AppendEvents(ctx, "t-1", 1, []event.Event{ordered}); err != nil {
		t.Fatalf("append ordered: %v", err)
	}

	events, err := store.ListEvents(ctx, "t-1", 0, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Seq != 1 || events[0].Type != event.TypeTabOpened {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[1].Seq != 2 || events[1].Type != event.TypeItemsOrdered {
		t.Fatalf("unexpected second event %+v", events[1])
	}
	if !events[0].Timestamp.Equal(testTime) {
		t.Fatalf("expected timestamp preserved, got %v", events[0].Timestamp)
	}

	head, err := store.CurrentSeq(ctx, "t-1")
	if err != nil {
		t.Fatalf("current seq: %v", err)
	}
	if head != 2 {
		t.Fatalf("expected head 2, got %d", head)
	}

	after, err := store.ListEvents(ctx, "t-1", 1, 10)
	if err != nil {
		t.Fatalf("list after seq 1: %v", err)
	}
	if len(after) != 1 || after[0].Seq != 2 {
		t.Fatalf("expected only seq 2, got %+v", after)
	}
}

func TestAppendDetectsVersionConflict(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	opened := mkEvent(t, "t-1", event.TypeTabOpened, event.TabOpenedPayload{TableNumber: 5, WaiterID: "w-1"})
	if err := store.AppendEvents(ctx, "t-1", 0, []event.Event{opened}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A stale writer still expects an empty journal.
	err := store.AppendEvents(ctx, "t-1", 0, []event.Event{opened})
	if !errors.Is(err, journal.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	head, _ := store.CurrentSeq(ctx, "t-1")
	if head != 1 {
		t.Fatalf("expected journal untouched at head 1, got %d", head)
	}
}

func TestListEventsRejectsUnknownStoredType(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	// A row written by a newer schema version must not round-trip silently.
	if _, err := store.sqlDB.ExecContext(ctx,
		`INSERT INTO tab_events (tab_id, seq, timestamp, event_type, actor_id, payload_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"t-1", 1, toMillis(testTime), "tab.split", "w-1", []byte(`{}`),
	); err != nil {
		t.Fatalf("insert raw event: %v", err)
	}

	if _, err := store.ListEvents(ctx, "t-1", 0, 10); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestAppendEnqueuesOutbox(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	opened := mkEvent(t, "t-1", event.TypeTabOpened, event.TabOpenedPayload{TableNumber: 5, WaiterID: "w-1"})
	ordered := mkEvent(t, "t-1", event.TypeItemsOrdered, event.ItemsOrderedPayload{Items: []event.OrderedItem{
		{Number: 7, Description: "Coffee", PriceCents: 350},
	}})
	if err := store.AppendEvents(ctx, "t-1", 0, []event.Event{opened, ordered}); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := store.ListPending(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(entries))
	}
	if entries[0].Event.Seq != 1 || entries[1].Event.Seq != 2 {
		t.Fatalf("expected enqueue order, got %+v", entries)
	}

	if err := store.MarkPublished(ctx, entries[0].ID, time.Now()); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	remaining, err := store.ListPending(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("list pending after publish: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Event.Seq != 2 {
		t.Fatalf("expected only seq 2 pending, got %+v", remaining)
	}
}

func TestOutboxFailureAndDeadLetter(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	opened := mkEvent(t, "t-1", event.TypeTabOpened, event.TabOpenedPayload{TableNumber: 5, WaiterID: "w-1"})
	if err := store.AppendEvents(ctx, "t-1", 0, []event.Event{opened}); err != nil {
		t.Fatalf("append: %v", err)
	}
	entries, err := store.ListPending(ctx, time.Now(), 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("list pending: %v %+v", err, entries)
	}

	// Deferred entries stay hidden until their retry time.
	future := time.Now().Add(time.Minute)
	if err := store.MarkFailed(ctx, entries[0].ID, future); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	hidden, err := store.ListPending(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("list pending after failure: %v", err)
	}
	if len(hidden) != 0 {
		t.Fatalf("expected deferred entry hidden, got %+v", hidden)
	}
	visible, err := store.ListPending(ctx, future.Add(time.Second), 10)
	if err != nil {
		t.Fatalf("list pending at retry time: %v", err)
	}
	if len(visible) != 1 || visible[0].Attempts != 1 {
		t.Fatalf("expected one retryable entry with one attempt, got %+v", visible)
	}

	if err := store.MarkDead(ctx, entries[0].ID, "consumer down", time.Now()); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	gone, err := store.ListPending(ctx, future.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("list pending after dead-letter: %v", err)
	}
	if len(gone) != 0 {
		t.Fatalf("expected dead entry excluded, got %+v", gone)
	}
}

func TestDeferredOutboxEntryHidesLaterSameTabEntries(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	opened := mkEvent(t, "t-1", event.TypeTabOpened, event.TabOpenedPayload{TableNumber: 5, WaiterID: "w-1"})
	ordered := mkEvent(t, "t-1", event.TypeItemsOrdered, event.ItemsOrderedPayload{})
	if err := store.AppendEvents(ctx, "t-1", 0, []event.Event{opened, ordered}); err != nil {
		t.Fatalf("append t-1: %v", err)
	}
	other := mkEvent(t, "t-2", event.TypeTabOpened, event.TabOpenedPayload{TableNumber: 3, WaiterID: "w-2"})
	if err := store.AppendEvents(ctx, "t-2", 0, []event.Event{other}); err != nil {
		t.Fatalf("append t-2: %v", err)
	}

	entries, err := store.ListPending(ctx, time.Now(), 10)
	if err != nil || len(entries) != 3 {
		t.Fatalf("list pending: %v %+v", err, entries)
	}

	// Deferring t-1's first entry hides its successor, not the other tab.
	future := time.Now().Add(time.Minute)
	if err := store.MarkFailed(ctx, entries[0].ID, future); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	pending, err := store.ListPending(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("list pending after failure: %v", err)
	}
	if len(pending) != 1 || pending[0].Event.TabID != "t-2" {
		t.Fatalf("expected only t-2 pending, got %+v", pending)
	}

	retryable, err := store.ListPending(ctx, future.Add(time.Second), 10)
	if err != nil {
		t.Fatalf("list pending at retry time: %v", err)
	}
	if len(retryable) != 3 || retryable[0].Event.TabID != "t-1" || retryable[0].Event.Seq != 1 {
		t.Fatalf("expected full queue in order at retry time, got %+v", retryable)
	}
}

func TestTabViewRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	tab := view.Tab{
		TabID: "t-1", TableNumber: 5, WaiterID: "w-1", Status: "open",
		Outstanding: []view.Line{{Number: 7, Description: "Coffee", PriceCents: 350}},
		LastSeq:     2,
		OpenedAt:    testTime,
		UpdatedAt:   testTime,
	}
	if err := store.UpsertTab(ctx, tab); err != nil {
		t.Fatalf("upsert view: %v", err)
	}

	got, err := store.GetTab(ctx, "t-1")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if got == nil || got.TableNumber != 5 || len(got.Outstanding) != 1 || got.LastSeq != 2 {
		t.Fatalf("unexpected view %+v", got)
	}
	if !got.OpenedAt.Equal(testTime) {
		t.Fatalf("expected opened_at preserved, got %v", got.OpenedAt)
	}

	missing, err := store.GetTab(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing view: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown tab, got %+v", missing)
	}

	tab.Status = "closed"
	tab.Outstanding = nil
	tab.LastSeq = 3
	if err := store.UpsertTab(ctx, tab); err != nil {
		t.Fatalf("upsert closed view: %v", err)
	}
	got, _ = store.GetTab(ctx, "t-1")
	if got.Status != "closed" || len(got.Outstanding) != 0 || got.LastSeq != 3 {
		t.Fatalf("expected replaced view, got %+v", got)
	}
}

func TestOpenTabQueries(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	seed := []view.Tab{
		{TabID: "t-1", TableNumber: 5, WaiterID: "w-1", Status: "open", LastSeq: 1, OpenedAt: testTime, UpdatedAt: testTime},
		{TabID: "t-2", TableNumber: 3, WaiterID: "w-2", Status: "open", LastSeq: 1, OpenedAt: testTime, UpdatedAt: testTime},
		{TabID: "t-3", TableNumber: 8, WaiterID: "w-1", Status: "closed", LastSeq: 4, OpenedAt: testTime, UpdatedAt: testTime},
	}
	for _, tab := range seed {
		if err := store.UpsertTab(ctx, tab); err != nil {
			t.Fatalf("seed view %s: %v", tab.TabID, err)
		}
	}

	open, err := store.ListOpenTabs(ctx)
	if err != nil {
		t.Fatalf("list open tabs: %v", err)
	}
	if len(open) != 2 || open[0].TableNumber != 3 || open[1].TableNumber != 5 {
		t.Fatalf("expected open tabs ordered by table, got %+v", open)
	}

	byWaiter, err := store.ListOpenTabsByWaiter(ctx, "w-1")
	if err != nil {
		t.Fatalf("list by waiter: %v", err)
	}
	if len(byWaiter) != 1 || byWaiter[0].TabID != "t-1" {
		t.Fatalf("expected w-1's open tab, got %+v", byWaiter)
	}

	seated, err := store.GetOpenTabForTable(ctx, 3)
	if err != nil {
		t.Fatalf("get open tab for table: %v", err)
	}
	if seated == nil || seated.TabID != "t-2" {
		t.Fatalf("unexpected seated tab %+v", seated)
	}
	empty, err := store.GetOpenTabForTable(ctx, 8)
	if err != nil {
		t.Fatalf("get open tab for closed table: %v", err)
	}
	if empty != nil {
		t.Fatalf("expected no open tab at table 8, got %+v", empty)
	}
}

func TestMenuCatalog(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	items := []menu.Item{
		{Number: 7, Description: "Coffee", PriceCents: 350},
		{Number: 9, Description: "Croissant", PriceCents: 420},
	}
	if err := store.InsertItems(ctx, items); err != nil {
		t.Fatalf("insert items: %v", err)
	}

	if err := store.InsertItems(ctx, []menu.Item{{Number: 7, Description: "Espresso", PriceCents: 300}}); !errors.Is(err, menu.ErrItemNumberTaken) {
		t.Fatalf("expected item-number-taken, got %v", err)
	}

	got, err := store.GetItems(ctx, []int{9, 42})
	if err != nil {
		t.Fatalf("get items: %v", err)
	}
	if len(got) != 1 || got[0].Number != 9 {
		t.Fatalf("expected only known items, got %+v", got)
	}

	all, err := store.ListItems(ctx)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(all) != 2 || all[0].Number != 7 {
		t.Fatalf("expected catalog ordered by number, got %+v", all)
	}
}

func TestFloorPlan(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if err := store.InsertTable(ctx, table.Table{Number: 5}); err != nil {
		t.Fatalf("insert table: %v", err)
	}
	if err := store.InsertTable(ctx, table.Table{Number: 5}); !errors.Is(err, table.ErrTableNumberTaken) {
		t.Fatalf("expected table-number-taken, got %v", err)
	}

	if err := store.SetWaiter(ctx, 5, "w-1"); err != nil {
		t.Fatalf("set waiter: %v", err)
	}
	tbl, err := store.GetTable(ctx, 5)
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	if tbl == nil || tbl.WaiterID != "w-1" {
		t.Fatalf("unexpected table %+v", tbl)
	}

	missing, err := store.GetTable(ctx, 9)
	if err != nil {
		t.Fatalf("get missing table: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown table, got %+v", missing)
	}

	tables, err := store.ListTables(ctx)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(tables) != 1 || tables[0].Number != 5 {
		t.Fatalf("unexpected floor plan %+v", tables)
	}
}
