// Package query answers read-only questions from the tab view store.
//
// Queries never touch the journal. They read what the projector has
// materialized, so a freshly appended event is visible only once the
// projection has caught up.
package query

import (
	"context"
	"fmt"
	"strconv"

	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
	"github.com/louisbranch/tabhouse/internal/tab/view"
)

// Service serves tab read models.
type Service struct {
	views view.Store
}

// NewService returns a query service reading from views.
func NewService(views view.Store) *Service {
	return &Service{views: views}
}

// GetTab returns the view for tabID.
func (s *Service) GetTab(ctx context.Context, tabID string) (view.Tab, *apperrors.Error) {
	if tabID == "" {
		return view.Tab{}, apperrors.New(apperrors.CodeTabIDMissing, "tab id is required")
	}
	tab, err := s.views.GetTab(ctx, tabID)
	if err != nil {
		return view.Tab{}, apperrors.Unexpected("get tab view", err)
	}
	if tab == nil {
		return view.Tab{}, apperrors.WithMetadata(
			apperrors.CodeTabNotFound,
			fmt.Sprintf("tab %s was not found", tabID),
			map[string]string{"tab_id": tabID},
		)
	}
	return *tab, nil
}

// GetTabForTable returns the open tab seated at tableNumber.
func (s *Service) GetTabForTable(ctx context.Context, tableNumber int) (view.Tab, *apperrors.Error) {
	if tableNumber <= 0 {
		return view.Tab{}, apperrors.New(apperrors.CodeTableNumberInvalid, "table number must be positive")
	}
	tab, err := s.views.GetOpenTabForTable(ctx, tableNumber)
	if err != nil {
		return view.Tab{}, apperrors.Unexpected("get tab for table", err)
	}
	if tab == nil {
		return view.Tab{}, apperrors.WithMetadata(
			apperrors.CodeTabNotFound,
			fmt.Sprintf("table %d has no open tab", tableNumber),
			map[string]string{"table_number": strconv.Itoa(tableNumber)},
		)
	}
	return *tab, nil
}

// ListOpenTabs returns all open tabs ordered by table number.
func (s *Service) ListOpenTabs(ctx context.Context) ([]view.Tab, *apperrors.Error) {
	tabs, err := s.views.ListOpenTabs(ctx)
	if err != nil {
		return nil, apperrors.Unexpected("list open tabs", err)
	}
	return tabs, nil
}

// ListOpenTabsByWaiter returns a waiter's open tabs ordered by table number.
func (s *Service) ListOpenTabsByWaiter(ctx context.Context, waiterID string) ([]view.Tab, *apperrors.Error) {
	if waiterID == "" {
		return nil, apperrors.New(apperrors.CodeWaiterIDMissing, "waiter id is required")
	}
	tabs, err := s.views.ListOpenTabsByWaiter(ctx, waiterID)
	if err != nil {
		return nil, apperrors.Unexpected("list open tabs by waiter", err)
	}
	return tabs, nil
}

// TodoItem is one unserved line a waiter still owes a table.
type TodoItem struct {
	TableNumber int
	Line        view.Line
}

// TodoListForWaiter flattens a waiter's outstanding lines across their open
// tabs in table order.
func (s *Service) TodoListForWaiter(ctx context.Context, waiterID string) ([]TodoItem, *apperrors.Error) {
	tabs, err := s.ListOpenTabsByWaiter(ctx, waiterID)
	if err != nil {
		return nil, err
	}
	var todo []TodoItem
	for _, tab := range tabs {
		for _, line := range tab.Outstanding {
			todo = append(todo, TodoItem{TableNumber: tab.TableNumber, Line: line})
		}
	}
	return todo, nil
}
