package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/tabhouse/internal/menu"
	"github.com/louisbranch/tabhouse/internal/table"
)

// Menu catalog methods

// InsertItems adds menu items, failing the whole batch when any number is
// already taken.
func (s *Store) InsertItems(ctx context.Context, items []menu.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO menu_items (number, description, price_cents) VALUES (?, ?, ?)",
			item.Number, item.Description, item.PriceCents,
		); err != nil {
			if isConstraintError(err) {
				return menu.ErrItemNumberTaken
			}
			return fmt.Errorf("insert menu item %d: %w", item.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetItems returns the items matching numbers, omitting unknown ones.
func (s *Store) GetItems(ctx context.Context, numbers []int) ([]menu.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if len(numbers) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(numbers)), ",")
	args := make([]any, 0, len(numbers))
	for _, n := range numbers {
		args = append(args, n)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT number, description, price_cents FROM menu_items WHERE number IN ("+placeholders+") ORDER BY number ASC",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get menu items: %w", err)
	}
	defer rows.Close()

	return scanMenuItems(rows)
}

// ListItems returns the full catalog ordered by number.
func (s *Store) ListItems(ctx context.Context) ([]menu.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT number, description, price_cents FROM menu_items ORDER BY number ASC")
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	return scanMenuItems(rows)
}

func scanMenuItems(rows *sql.Rows) ([]menu.Item, error) {
	var items []menu.Item
	for rows.Next() {
		var item menu.Item
		if err := rows.Scan(&item.Number, &item.Description, &item.PriceCents); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}
	return items, nil
}

// Floor plan methods

// InsertTable adds a table, failing when the number is already taken.
func (s *Store) InsertTable(ctx context.Context, tbl table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO tables (number, waiter_id) VALUES (?, ?)",
		tbl.Number, tbl.WaiterID,
	); err != nil {
		if isConstraintError(err) {
			return table.ErrTableNumberTaken
		}
		return fmt.Errorf("insert table %d: %w", tbl.Number, err)
	}
	return nil
}

// GetTable returns the table for number, or nil when unknown.
func (s *Store) GetTable(ctx context.Context, number int) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var tbl table.Table
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT number, waiter_id FROM tables WHERE number = ?", number,
	).Scan(&tbl.Number, &tbl.WaiterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get table %d: %w", number, err)
	}
	return &tbl, nil
}

// SetWaiter records the waiter assigned to number.
func (s *Store) SetWaiter(ctx context.Context, number int, waiterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"UPDATE tables SET waiter_id = ? WHERE number = ?", waiterID, number,
	); err != nil {
		return fmt.Errorf("set waiter for table %d: %w", number, err)
	}
	return nil
}

// ListTables returns the floor plan ordered by number.
func (s *Store) ListTables(ctx context.Context) ([]table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT number, waiter_id FROM tables ORDER BY number ASC")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []table.Table
	for rows.Next() {
		var tbl table.Table
		if err := rows.Scan(&tbl.Number, &tbl.WaiterID); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, tbl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}
