// Package table manages the floor plan and waiter assignments.
package table

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
)

// Table is one physical table. WaiterID is empty until a waiter is assigned.
type Table struct {
	Number   int
	WaiterID string
}

// Store persists the floor plan.
type Store interface {
	// InsertTable adds a table, failing when the number is already taken.
	InsertTable(ctx context.Context, table Table) error
	// GetTable returns the table for number, or nil when unknown.
	GetTable(ctx context.Context, number int) (*Table, error)
	// SetWaiter records the waiter assigned to number.
	SetWaiter(ctx context.Context, number int, waiterID string) error
	// ListTables returns the floor plan ordered by number.
	ListTables(ctx context.Context) ([]Table, error)
}

// ErrTableNumberTaken indicates an insert collided with an existing number.
var ErrTableNumberTaken = apperrors.New(apperrors.CodeTableAlreadyExists, "table number already exists")

// Service answers floor plan lookups for the command pipeline and seeding.
type Service struct {
	store Store
}

// NewService returns a floor plan service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// AddTable registers a new table number.
func (s *Service) AddTable(ctx context.Context, number int) *apperrors.Error {
	if number <= 0 {
		return errTableNumberInvalid(number)
	}
	if err := s.store.InsertTable(ctx, Table{Number: number}); err != nil {
		if typed := apperrors.FromError(err); typed.Code == apperrors.CodeTableAlreadyExists {
			return typed
		}
		return apperrors.Unexpected("insert table", err)
	}
	return nil
}

// AssignWaiter records waiterID as responsible for the table.
func (s *Service) AssignWaiter(ctx context.Context, number int, waiterID string) *apperrors.Error {
	if strings.TrimSpace(waiterID) == "" {
		return apperrors.New(apperrors.CodeWaiterIDMissing, "waiter id is required")
	}
	if _, err := s.GetTable(ctx, number); err != nil {
		return err
	}
	if err := s.store.SetWaiter(ctx, number, waiterID); err != nil {
		return apperrors.Unexpected("assign waiter", err)
	}
	return nil
}

// GetTable returns the table for number.
func (s *Service) GetTable(ctx context.Context, number int) (Table, *apperrors.Error) {
	if number <= 0 {
		return Table{}, errTableNumberInvalid(number)
	}
	table, err := s.store.GetTable(ctx, number)
	if err != nil {
		return Table{}, apperrors.Unexpected("get table", err)
	}
	if table == nil {
		return Table{}, apperrors.WithMetadata(
			apperrors.CodeTableNotFound,
			fmt.Sprintf("table %d does not exist", number),
			map[string]string{"number": strconv.Itoa(number)},
		)
	}
	return *table, nil
}

// ListTables returns the floor plan ordered by number.
func (s *Service) ListTables(ctx context.Context) ([]Table, *apperrors.Error) {
	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return nil, apperrors.Unexpected("list tables", err)
	}
	return tables, nil
}

func errTableNumberInvalid(number int) *apperrors.Error {
	return apperrors.WithMetadata(
		apperrors.CodeTableNumberInvalid,
		fmt.Sprintf("table number %d must be positive", number),
		map[string]string{"number": strconv.Itoa(number)},
	)
}
