// Package domain holds the Tab aggregate.
//
// A Tab's state is derived solely from its ordered event history: Replay
// folds the journal into a snapshot, behavior methods validate invariants
// against that snapshot and emit new events. Nothing here performs I/O.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
	"github.com/louisbranch/tabhouse/internal/tab/event"
)

// Status describes the lifecycle of a tab.
type Status int

const (
	// StatusNonExistent indicates no event history exists for the id.
	StatusNonExistent Status = iota
	// StatusOpen indicates the tab accepts order/serve/cancel/close commands.
	StatusOpen
	// StatusClosed is terminal for write operations.
	StatusClosed
)

// String returns the status name used in views and logs.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "non_existent"
	}
}

var (
	// ErrTabAlreadyExists indicates an open command hit an existing history.
	ErrTabAlreadyExists = apperrors.New(apperrors.CodeTabAlreadyExists, "tab already exists")
	// ErrTabNotFound indicates a command referenced a tab with no history.
	ErrTabNotFound = apperrors.New(apperrors.CodeTabNotFound, "tab was not found")
	// ErrTabClosed indicates a mutation was attempted on a closed tab.
	ErrTabClosed = apperrors.New(apperrors.CodeTabClosed, "tab is closed")
)

// Line is one ordered menu item awaiting service. Insertion order is the
// serving order.
type Line struct {
	Number      int
	Description string
	PriceCents  int64
	PlacedAt    time.Time
}

// ServedLine is one item that has been handed to the table.
type ServedLine struct {
	Number      int
	Description string
	PriceCents  int64
	ServedAt    time.Time
}

// Tab is the aggregate snapshot replayed from the journal.
type Tab struct {
	ID          string
	Status      Status
	TableNumber int
	WaiterID    string
	// Outstanding holds ordered-but-unserved lines in placement order.
	Outstanding []Line
	// Served holds served lines in service order.
	Served []ServedLine
	// ServedValueCents is the running value of served lines.
	ServedValueCents int64
	AmountPaidCents  int64
	TipCents         int64
	OpenedAt         time.Time
	ClosedAt         time.Time
}

// Exists reports whether the tab has any history.
func (t Tab) Exists() bool {
	return t.Status != StatusNonExistent
}

// IsOpen reports whether the tab accepts mutations.
func (t Tab) IsOpen() bool {
	return t.Status == StatusOpen
}

// OutstandingValueCents sums the value of ordered-but-unserved lines.
func (t Tab) OutstandingValueCents() int64 {
	var total int64
	for _, line := range t.Outstanding {
		total += line.PriceCents
	}
	return total
}

// Open emits the tab.opened event for a tab with no prior history.
func (t Tab) Open(id string, tableNumber int, waiterID string, at time.Time) ([]event.Event, *apperrors.Error) {
	if t.Exists() {
		return nil, ErrTabAlreadyExists
	}
	payload := event.TabOpenedPayload{TableNumber: tableNumber, WaiterID: waiterID}
	evt, err := newEvent(id, event.TypeTabOpened, waiterID, at, payload)
	if err != nil {
		return nil, err
	}
	return []event.Event{evt}, nil
}

// Order emits a single tab.items_ordered event preserving request order.
func (t Tab) Order(items []event.OrderedItem, at time.Time) ([]event.Event, *apperrors.Error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	payload := event.ItemsOrderedPayload{Items: append([]event.OrderedItem(nil), items...)}
	evt, err := newEvent(t.ID, event.TypeItemsOrdered, t.WaiterID, at, payload)
	if err != nil {
		return nil, err
	}
	return []event.Event{evt}, nil
}

// Serve emits tab.items_served for outstanding lines matching the requested
// numbers. Lines are matched first-placed-first-served per number; every
// requested number must be outstanding or the whole command fails.
func (t Tab) Serve(numbers []int, at time.Time) ([]event.Event, *apperrors.Error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	lines, _, missing := t.takeOutstanding(numbers)
	if len(missing) > 0 {
		return nil, errItemsNotOutstanding(missing)
	}
	var value int64
	for _, line := range lines {
		value += line.PriceCents
	}
	payload := event.ItemsServedPayload{Numbers: append([]int(nil), numbers...), ValueCents: value}
	evt, err := newEvent(t.ID, event.TypeItemsServed, t.WaiterID, at, payload)
	if err != nil {
		return nil, err
	}
	return []event.Event{evt}, nil
}

// Cancel emits tab.items_cancelled for outstanding lines matching the
// requested numbers. Served lines cannot be cancelled.
func (t Tab) Cancel(numbers []int, at time.Time) ([]event.Event, *apperrors.Error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	_, _, missing := t.takeOutstanding(numbers)
	if len(missing) > 0 {
		return nil, errItemsNotOutstanding(missing)
	}
	payload := event.ItemsCancelledPayload{Numbers: append([]int(nil), numbers...)}
	evt, err := newEvent(t.ID, event.TypeItemsCancelled, t.WaiterID, at, payload)
	if err != nil {
		return nil, err
	}
	return []event.Event{evt}, nil
}

// Close settles the tab. Payment must cover the served value; outstanding
// lines are abandoned, the customer only pays for what was served.
func (t Tab) Close(amountPaidCents int64, at time.Time) ([]event.Event, *apperrors.Error) {
	if err := t.requireOpen(); err != nil {
		return nil, err
	}
	if amountPaidCents < t.ServedValueCents {
		return nil, apperrors.WithMetadata(
			apperrors.CodeInsufficientPayment,
			fmt.Sprintf("payment of %d does not cover the served value of %d", amountPaidCents, t.ServedValueCents),
			map[string]string{
				"amount_paid":  strconv.FormatInt(amountPaidCents, 10),
				"served_value": strconv.FormatInt(t.ServedValueCents, 10),
			},
		)
	}
	payload := event.TabClosedPayload{
		AmountPaidCents: amountPaidCents,
		OrderValueCents: t.ServedValueCents,
		TipCents:        amountPaidCents - t.ServedValueCents,
	}
	evt, err := newEvent(t.ID, event.TypeTabClosed, t.WaiterID, at, payload)
	if err != nil {
		return nil, err
	}
	return []event.Event{evt}, nil
}

func (t Tab) requireOpen() *apperrors.Error {
	switch t.Status {
	case StatusOpen:
		return nil
	case StatusClosed:
		return ErrTabClosed
	default:
		return ErrTabNotFound
	}
}

// takeOutstanding resolves requested numbers against outstanding lines,
// first-placed-first-taken per number. It returns the matched lines, the
// lines left outstanding, and the numbers that could not be matched.
func (t Tab) takeOutstanding(numbers []int) (taken []Line, remaining []Line, missing []int) {
	remaining = append([]Line(nil), t.Outstanding...)
	for _, number := range numbers {
		found := false
		for i, line := range remaining {
			if line.Number == number {
				taken = append(taken, line)
				remaining = append(remaining[:i], remaining[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, number)
		}
	}
	return taken, remaining, missing
}

func errItemsNotOutstanding(numbers []int) *apperrors.Error {
	return apperrors.WithMetadata(
		apperrors.CodeItemsNotOutstanding,
		fmt.Sprintf("items %s are not outstanding on the tab", joinNumbers(numbers)),
		map[string]string{"numbers": joinNumbers(numbers)},
	)
}

func joinNumbers(numbers []int) string {
	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ", ")
}

func newEvent(tabID string, typ event.Type, actorID string, at time.Time, payload any) (event.Event, *apperrors.Error) {
	raw, err := event.EncodePayload(payload)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeUnknown, "encode event payload", err)
	}
	return event.Event{
		TabID:       tabID,
		Timestamp:   event.NormalizeTimestamp(at),
		Type:        typ,
		ActorID:     actorID,
		PayloadJSON: raw,
	}, nil
}
