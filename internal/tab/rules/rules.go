// Package rules holds the business rule checks command handlers chain
// between structural validation and aggregate behavior.
//
// Rules are expressed as result combinators so a handler reads as one
// pipeline: load snapshot, filter through rules, decide, append.
package rules

import (
	"context"

	"github.com/louisbranch/tabhouse/internal/menu"
	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
	"github.com/louisbranch/tabhouse/internal/platform/result"
	"github.com/louisbranch/tabhouse/internal/tab/domain"
	"github.com/louisbranch/tabhouse/internal/table"
)

// Snapshot pairs a replayed tab with the journal head it was replayed to.
type Snapshot struct {
	Tab domain.Tab
	Seq uint64
}

// Catalog resolves menu item numbers into priced items.
type Catalog interface {
	Resolve(ctx context.Context, numbers []int) result.Result[[]menu.Item]
}

// FloorPlan looks up registered tables.
type FloorPlan interface {
	GetTable(ctx context.Context, number int) (table.Table, *apperrors.Error)
}

// TabMustNotExist rejects snapshots that already carry history.
func TabMustNotExist(s Snapshot) result.Result[Snapshot] {
	return result.Ok(s).Filter(func(s Snapshot) bool {
		return !s.Tab.Exists()
	}, domain.ErrTabAlreadyExists)
}

// TabMustExist rejects snapshots with no history.
func TabMustExist(s Snapshot) result.Result[Snapshot] {
	return result.Ok(s).Filter(func(s Snapshot) bool {
		return s.Tab.Exists()
	}, domain.ErrTabNotFound)
}

// TabMustBeOpen rejects non-existent and closed tabs, distinguishing the two.
func TabMustBeOpen(s Snapshot) result.Result[Snapshot] {
	return result.Bind(TabMustExist(s), func(s Snapshot) result.Result[Snapshot] {
		return result.Ok(s).Filter(func(s Snapshot) bool {
			return s.Tab.IsOpen()
		}, domain.ErrTabClosed)
	})
}

// MenuItemsMustExist resolves every requested number against the catalog,
// failing with the unknown numbers named.
func MenuItemsMustExist(ctx context.Context, catalog Catalog, numbers []int) result.Result[[]menu.Item] {
	return catalog.Resolve(ctx, numbers)
}

// TableMustExist checks the table is registered on the floor plan.
func TableMustExist(ctx context.Context, plan FloorPlan, number int) result.Result[table.Table] {
	tbl, err := plan.GetTable(ctx, number)
	if err != nil {
		return result.Err[table.Table](err)
	}
	return result.Ok(tbl)
}
