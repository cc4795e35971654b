// Package menu manages the item catalog commands reference by number.
package menu

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
	"github.com/louisbranch/tabhouse/internal/platform/result"
)

// Item is one purchasable catalog entry. Number is the stable identifier
// waiters key orders by; prices are integer cents.
type Item struct {
	Number      int
	Description string
	PriceCents  int64
}

// Store persists the catalog.
type Store interface {
	// InsertItems adds items, failing the whole batch when any number is
	// already taken.
	InsertItems(ctx context.Context, items []Item) error
	// GetItems returns the items matching numbers, omitting unknown ones.
	GetItems(ctx context.Context, numbers []int) ([]Item, error)
	// ListItems returns the full catalog ordered by number.
	ListItems(ctx context.Context) ([]Item, error)
}

// ErrItemNumberTaken indicates an insert collided with an existing number.
var ErrItemNumberTaken = apperrors.New(apperrors.CodeMenuItemAlreadyExists, "menu item number already exists")

// Service answers catalog lookups for the command pipeline and admin tooling.
type Service struct {
	store Store
}

// NewService returns a catalog service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// AddItems validates and inserts new catalog entries. Numbers must be
// positive and unique within the batch; descriptions must be non-empty and
// prices non-negative.
func (s *Service) AddItems(ctx context.Context, items []Item) *apperrors.Error {
	if len(items) == 0 {
		return apperrors.New(apperrors.CodeMenuItemInvalid, "no menu items provided")
	}
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return err
		}
		if _, dup := seen[item.Number]; dup {
			return apperrors.WithMetadata(
				apperrors.CodeMenuItemInvalid,
				fmt.Sprintf("menu item number %d appears more than once", item.Number),
				map[string]string{"number": strconv.Itoa(item.Number)},
			)
		}
		seen[item.Number] = struct{}{}
	}
	if err := s.store.InsertItems(ctx, items); err != nil {
		if typed := apperrors.FromError(err); typed.Code == apperrors.CodeMenuItemAlreadyExists {
			return typed
		}
		return apperrors.Unexpected("insert menu items", err)
	}
	return nil
}

// GetItem returns the catalog entry for number.
func (s *Service) GetItem(ctx context.Context, number int) (Item, *apperrors.Error) {
	items, err := s.store.GetItems(ctx, []int{number})
	if err != nil {
		return Item{}, apperrors.Unexpected("get menu item", err)
	}
	if len(items) == 0 {
		return Item{}, apperrors.WithMetadata(
			apperrors.CodeMenuItemsNotFound,
			fmt.Sprintf("menu item %d does not exist", number),
			map[string]string{"numbers": strconv.Itoa(number)},
		)
	}
	return items[0], nil
}

// ListItems returns the full catalog ordered by number.
func (s *Service) ListItems(ctx context.Context) ([]Item, *apperrors.Error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, apperrors.Unexpected("list menu items", err)
	}
	return items, nil
}

// Resolve looks up every requested number and fails naming the unknown ones.
// The returned items repeat and order exactly as requested, so an order for
// two coffees yields two priced lines.
func (s *Service) Resolve(ctx context.Context, numbers []int) result.Result[[]Item] {
	if len(numbers) == 0 {
		return result.Err[[]Item](apperrors.New(apperrors.CodeNoItemsRequested, "no menu item numbers requested"))
	}
	found, err := s.store.GetItems(ctx, dedupe(numbers))
	if err != nil {
		return result.Err[[]Item](apperrors.Unexpected("resolve menu items", err))
	}
	byNumber := make(map[int]Item, len(found))
	for _, item := range found {
		byNumber[item.Number] = item
	}

	resolved := make([]Item, 0, len(numbers))
	var missing []int
	missingSeen := make(map[int]struct{})
	for _, number := range numbers {
		item, ok := byNumber[number]
		if !ok {
			if _, dup := missingSeen[number]; !dup {
				missing = append(missing, number)
				missingSeen[number] = struct{}{}
			}
			continue
		}
		resolved = append(resolved, item)
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return result.Err[[]Item](apperrors.WithMetadata(
			apperrors.CodeMenuItemsNotFound,
			fmt.Sprintf("menu items %s do not exist", joinNumbers(missing)),
			map[string]string{"numbers": joinNumbers(missing)},
		))
	}
	return result.Ok(resolved)
}

func validateItem(item Item) *apperrors.Error {
	if item.Number <= 0 {
		return apperrors.WithMetadata(
			apperrors.CodeMenuItemInvalid,
			fmt.Sprintf("menu item number %d must be positive", item.Number),
			map[string]string{"number": strconv.Itoa(item.Number)},
		)
	}
	if strings.TrimSpace(item.Description) == "" {
		return apperrors.WithMetadata(
			apperrors.CodeMenuItemInvalid,
			fmt.Sprintf("menu item %d has an empty description", item.Number),
			map[string]string{"number": strconv.Itoa(item.Number)},
		)
	}
	if item.PriceCents < 0 {
		return apperrors.WithMetadata(
			apperrors.CodeMenuItemInvalid,
			fmt.Sprintf("menu item %d has a negative price", item.Number),
			map[string]string{"number": strconv.Itoa(item.Number)},
		)
	}
	return nil
}

func dedupe(numbers []int) []int {
	seen := make(map[int]struct{}, len(numbers))
	out := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func joinNumbers(numbers []int) string {
	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ", ")
}
