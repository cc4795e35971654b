package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/tabhouse/internal/tab/view"
)

// Tab view methods

// UpsertTab writes a tab view, replacing any previous version.
func (s *Store) UpsertTab(ctx context.Context, tab view.Tab) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tab.TabID) == "" {
		return fmt.Errorf("tab id is required")
	}

	outstanding, err := marshalLines(tab.Outstanding)
	if err != nil {
		return fmt.Errorf("encode outstanding lines: %w", err)
	}
	served, err := marshalLines(tab.Served)
	if err != nil {
		return fmt.Errorf("encode served lines: %w", err)
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO tab_views (
		    tab_id, table_number, waiter_id, status,
		    outstanding_json, served_json,
		    served_value_cents, amount_paid_cents, tip_cents,
		    last_seq, opened_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET
		    table_number = excluded.table_number,
		    waiter_id = excluded.waiter_id,
		    status = excluded.status,
		    outstanding_json = excluded.outstanding_json,
		    served_json = excluded.served_json,
		    served_value_cents = excluded.served_value_cents,
		    amount_paid_cents = excluded.amount_paid_cents,
		    tip_cents = excluded.tip_cents,
		    last_seq = excluded.last_seq,
		    updated_at = excluded.updated_at`,
		tab.TabID, tab.TableNumber, tab.WaiterID, tab.Status,
		outstanding, served,
		tab.ServedValueCents, tab.AmountPaidCents, tab.TipCents,
		tab.LastSeq, toMillis(tab.OpenedAt), toMillis(tab.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert tab view: %w", err)
	}
	return nil
}

// GetTab returns the view for tabID, or nil when none exists.
func (s *Store) GetTab(ctx context.Context, tabID string) (*view.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tabID) == "" {
		return nil, fmt.Errorf("tab id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, selectTabView+" WHERE tab_id = ?", tabID)
	tab, err := scanTabView(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tab, nil
}

// GetOpenTabForTable returns the open tab seated at tableNumber, or nil.
func (s *Store) GetOpenTabForTable(ctx context.Context, tableNumber int) (*view.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		selectTabView+" WHERE status = 'open' AND table_number = ? LIMIT 1", tableNumber)
	tab, err := scanTabView(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tab, nil
}

// ListOpenTabs returns open tabs ordered by table number.
func (s *Store) ListOpenTabs(ctx context.Context) ([]view.Tab, error) {
	return s.listOpenTabs(ctx, selectTabView+" WHERE status = 'open' ORDER BY table_number ASC")
}

// ListOpenTabsByWaiter returns a waiter's open tabs ordered by table number.
func (s *Store) ListOpenTabsByWaiter(ctx context.Context, waiterID string) ([]view.Tab, error) {
	if strings.TrimSpace(waiterID) == "" {
		return nil, fmt.Errorf("waiter id is required")
	}
	return s.listOpenTabs(ctx,
		selectTabView+" WHERE status = 'open' AND waiter_id = ? ORDER BY table_number ASC", waiterID)
}

func (s *Store) listOpenTabs(ctx context.Context, query string, args ...any) ([]view.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tab views: %w", err)
	}
	defer rows.Close()

	var tabs []view.Tab
	for rows.Next() {
		tab, err := scanTabView(rows)
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, tab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tab views: %w", err)
	}
	return tabs, nil
}

const selectTabView = `SELECT tab_id, table_number, waiter_id, status,
    outstanding_json, served_json,
    served_value_cents, amount_paid_cents, tip_cents,
    last_seq, opened_at, updated_at
FROM tab_views`

func scanTabView(row rowScanner) (view.Tab, error) {
	var (
		tab         view.Tab
		outstanding []byte
		served      []byte
		openedAt    int64
		updatedAt   int64
	)
	if err := row.Scan(
		&tab.TabID, &tab.TableNumber, &tab.WaiterID, &tab.Status,
		&outstanding, &served,
		&tab.ServedValueCents, &tab.AmountPaidCents, &tab.TipCents,
		&tab.LastSeq, &openedAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return view.Tab{}, err
		}
		return view.Tab{}, fmt.Errorf("scan tab view: %w", err)
	}

	var err error
	if tab.Outstanding, err = unmarshalLines(outstanding); err != nil {
		return view.Tab{}, fmt.Errorf("decode outstanding lines: %w", err)
	}
	if tab.Served, err = unmarshalLines(served); err != nil {
		return view.Tab{}, fmt.Errorf("decode served lines: %w", err)
	}
	tab.OpenedAt = fromMillis(openedAt)
	tab.UpdatedAt = fromMillis(updatedAt)
	return tab, nil
}

func marshalLines(lines []view.Line) ([]byte, error) {
	if lines == nil {
		lines = []view.Line{}
	}
	return json.Marshal(lines)
}

func unmarshalLines(raw []byte) ([]view.Line, error) {
	var lines []view.Line
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return lines, nil
}
