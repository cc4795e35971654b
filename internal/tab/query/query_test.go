package query

import (
	"context"
	"testing"

	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
	"github.com/louisbranch/tabhouse/internal/tab/view"
)

func seededStore(t *testing.T) *view.MemoryStore {
	t.Helper()
	store := view.NewMemoryStore()
	tabs := []view.Tab{
		{
			TabID: "t-1", TableNumber: 5, WaiterID: "w-1", Status: "open",
			Outstanding: []view.Line{{Number: 7, Description: "Coffee", PriceCents: 350}},
			LastSeq:     2,
		},
		{
			TabID: "t-2", TableNumber: 3, WaiterID: "w-2", Status: "open",
			Outstanding: []view.Line{{Number: 9, Description: "Croissant", PriceCents: 420}},
			LastSeq:     2,
		},
		{TabID: "t-3", TableNumber: 8, WaiterID: "w-1", Status: "closed", LastSeq: 4},
	}
	for _, tab := range tabs {
		if err := store.UpsertTab(context.Background(), tab); err != nil {
			t.Fatalf("seed view: %v", err)
		}
	}
	return store
}

func TestGetTab(t *testing.T) {
	t.Parallel()

	svc := NewService(seededStore(t))

	tab, err := svc.GetTab(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("get tab: %v", err)
	}
	if tab.TableNumber != 5 {
		t.Fatalf("unexpected tab %+v", tab)
	}

	if _, err := svc.GetTab(context.Background(), "nope"); err == nil || err.Kind() != apperrors.KindNotFound {
		t.Fatalf("expected not-found kind, got %v", err)
	}
	if _, err := svc.GetTab(context.Background(), ""); err == nil || err.Code != apperrors.CodeTabIDMissing {
		t.Fatalf("expected tab-id-missing, got %v", err)
	}
}

func TestGetTabForTable(t *testing.T) {
	t.Parallel()

	svc := NewService(seededStore(t))

	tab, err := svc.GetTabForTable(context.Background(), 3)
	if err != nil {
		t.Fatalf("get tab for table: %v", err)
	}
	if tab.TabID != "t-2" {
		t.Fatalf("unexpected tab %+v", tab)
	}

	// Closed tabs do not count as seated.
	if _, err := svc.GetTabForTable(context.Background(), 8); err == nil || err.Code != apperrors.CodeTabNotFound {
		t.Fatalf("expected tab-not-found for closed tab's table, got %v", err)
	}
	if _, err := svc.GetTabForTable(context.Background(), 0); err == nil || err.Code != apperrors.CodeTableNumberInvalid {
		t.Fatalf("expected table-number-invalid, got %v", err)
	}
}

func TestListOpenTabs(t *testing.T) {
	t.Parallel()

	svc := NewService(seededStore(t))

	tabs, err := svc.ListOpenTabs(context.Background())
	if err != nil {
		t.Fatalf("list open tabs: %v", err)
	}
	if len(tabs) != 2 || tabs[0].TableNumber != 3 || tabs[1].TableNumber != 5 {
		t.Fatalf("expected open tabs ordered by table, got %+v", tabs)
	}
}

func TestListOpenTabsByWaiter(t *testing.T) {
	t.Parallel()

	svc := NewService(seededStore(t))

	tabs, err := svc.ListOpenTabsByWaiter(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("list by waiter: %v", err)
	}
	if len(tabs) != 1 || tabs[0].TabID != "t-1" {
		t.Fatalf("expected only w-1's open tab, got %+v", tabs)
	}

	if _, err := svc.ListOpenTabsByWaiter(context.Background(), ""); err == nil || err.Code != apperrors.CodeWaiterIDMissing {
		t.Fatalf("expected waiter-id-missing, got %v", err)
	}
}

func TestTodoListForWaiter(t *testing.T) {
	t.Parallel()

	svc := NewService(seededStore(t))

	todo, err := svc.TodoListForWaiter(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("todo list: %v", err)
	}
	if len(todo) != 1 || todo[0].TableNumber != 5 || todo[0].Line.Number != 7 {
		t.Fatalf("unexpected todo list %+v", todo)
	}
}
