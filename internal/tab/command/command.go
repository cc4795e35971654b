// Package command executes tab write operations.
//
// Every command runs the same pipeline: structural validation, snapshot
// load, business rules, aggregate decision, journal append. The append
// carries the sequence the snapshot was replayed to, so two racing commands
// against the same tab cannot both win.
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/tabhouse/internal/menu"
	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
	"github.com/louisbranch/tabhouse/internal/platform/id"
	"github.com/louisbranch/tabhouse/internal/platform/result"
	"github.com/louisbranch/tabhouse/internal/tab/domain"
	"github.com/louisbranch/tabhouse/internal/tab/event"
	"github.com/louisbranch/tabhouse/internal/tab/journal"
	"github.com/louisbranch/tabhouse/internal/tab/rules"
	"github.com/louisbranch/tabhouse/internal/table"
)

// OpenTab starts a new tab for a table. TabID is assigned when empty.
type OpenTab struct {
	TabID       string
	TableNumber int
	WaiterID    string
}

// OrderItems places menu items on an open tab. Numbers may repeat; each
// occurrence becomes one priced line.
type OrderItems struct {
	TabID   string
	Numbers []int
}

// ServeItems marks outstanding lines as handed to the table.
type ServeItems struct {
	TabID   string
	Numbers []int
}

// CancelItems strikes outstanding lines off the tab.
type CancelItems struct {
	TabID   string
	Numbers []int
}

// CloseTab settles and closes the tab.
type CloseTab struct {
	TabID           string
	AmountPaidCents int64
}

// Service executes tab commands against the journal.
type Service struct {
	journal journal.Store
	catalog rules.Catalog
	plan    rules.FloorPlan
	now     func() time.Time
	newID   func() (string, error)
	tracer  trace.Tracer
}

// NewService wires a command service. now and newID default to the system
// clock and random ids when nil.
func NewService(store journal.Store, catalog rules.Catalog, plan rules.FloorPlan) *Service {
	return &Service{
		journal: store,
		catalog: catalog,
		plan:    plan,
		now:     time.Now,
		newID:   id.NewID,
		tracer:  otel.Tracer("tabhouse/command"),
	}
}

// WithClock overrides the command timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDSource overrides tab id assignment.
func (s *Service) WithIDSource(newID func() (string, error)) *Service {
	s.newID = newID
	return s
}

// Open opens a tab and returns its id.
func (s *Service) Open(ctx context.Context, cmd OpenTab) (string, *apperrors.Error) {
	ctx, span := s.startSpan(ctx, "OpenTab", cmd.TabID)
	defer span.End()

	if cmd.TableNumber <= 0 {
		return "", s.fail(span, apperrors.New(apperrors.CodeTableNumberInvalid, "table number must be positive"))
	}
	if strings.TrimSpace(cmd.WaiterID) == "" {
		return "", s.fail(span, apperrors.New(apperrors.CodeWaiterIDMissing, "waiter id is required"))
	}
	tabID := cmd.TabID
	if tabID == "" {
		generated, idErr := s.newID()
		if idErr != nil {
			return "", s.fail(span, apperrors.Unexpected("generate tab id", idErr))
		}
		tabID = generated
	}

	res := result.Bind(rules.TableMustExist(ctx, s.plan, cmd.TableNumber), func(_ table.Table) result.Result[rules.Snapshot] {
		return result.Bind(s.loadSnapshot(ctx, tabID), rules.TabMustNotExist)
	})
	events := result.Bind(res, func(snap rules.Snapshot) result.Result[decision] {
		evts, decideErr := snap.Tab.Open(tabID, cmd.TableNumber, cmd.WaiterID, s.now())
		return s.decide(snap, evts, decideErr)
	})
	if err := s.commit(ctx, events); err != nil {
		return "", s.fail(span, err)
	}
	span.SetAttributes(attribute.String("tab.id", tabID))
	return tabID, nil
}

// Order places priced lines for the requested menu numbers.
func (s *Service) Order(ctx context.Context, cmd OrderItems) *apperrors.Error {
	ctx, span := s.startSpan(ctx, "OrderItems", cmd.TabID)
	defer span.End()

	if err := requireTabID(cmd.TabID); err != nil {
		return s.fail(span, err)
	}
	if len(cmd.Numbers) == 0 {
		return s.fail(span, apperrors.New(apperrors.CodeNoItemsRequested, "no menu item numbers requested"))
	}

	snap := result.Bind(s.loadSnapshot(ctx, cmd.TabID), rules.TabMustBeOpen)
	events := result.Bind(snap, func(snap rules.Snapshot) result.Result[decision] {
		items := rules.MenuItemsMustExist(ctx, s.catalog, cmd.Numbers)
		return result.Bind(items, func(items []menu.Item) result.Result[decision] {
			evts, decideErr := snap.Tab.Order(orderedItems(items), s.now())
			return s.decide(snap, evts, decideErr)
		})
	})
	if err := s.commit(ctx, events); err != nil {
		return s.fail(span, err)
	}
	return nil
}

// Serve marks the requested outstanding lines as served.
func (s *Service) Serve(ctx context.Context, cmd ServeItems) *apperrors.Error {
	ctx, span := s.startSpan(ctx, "ServeItems", cmd.TabID)
	defer span.End()

	if err := requireTabID(cmd.TabID); err != nil {
		return s.fail(span, err)
	}
	if len(cmd.Numbers) == 0 {
		return s.fail(span, apperrors.New(apperrors.CodeNoItemsRequested, "no menu item numbers requested"))
	}

	snap := result.Bind(s.loadSnapshot(ctx, cmd.TabID), rules.TabMustBeOpen)
	events := result.Bind(snap, func(snap rules.Snapshot) result.Result[decision] {
		evts, decideErr := snap.Tab.Serve(cmd.Numbers, s.now())
		return s.decide(snap, evts, decideErr)
	})
	if err := s.commit(ctx, events); err != nil {
		return s.fail(span, err)
	}
	return nil
}

// Cancel strikes the requested outstanding lines off the tab.
func (s *Service) Cancel(ctx context.Context, cmd CancelItems) *apperrors.Error {
	ctx, span := s.startSpan(ctx, "CancelItems", cmd.TabID)
	defer span.End()

	if err := requireTabID(cmd.TabID); err != nil {
		return s.fail(span, err)
	}
	if len(cmd.Numbers) == 0 {
		return s.fail(span, apperrors.New(apperrors.CodeNoItemsRequested, "no menu item numbers requested"))
	}

	snap := result.Bind(s.loadSnapshot(ctx, cmd.TabID), rules.TabMustBeOpen)
	events := result.Bind(snap, func(snap rules.Snapshot) result.Result[decision] {
		evts, decideErr := snap.Tab.Cancel(cmd.Numbers, s.now())
		return s.decide(snap, evts, decideErr)
	})
	if err := s.commit(ctx, events); err != nil {
		return s.fail(span, err)
	}
	return nil
}

// Close settles the tab against its served value.
func (s *Service) Close(ctx context.Context, cmd CloseTab) *apperrors.Error {
	ctx, span := s.startSpan(ctx, "CloseTab", cmd.TabID)
	defer span.End()

	if err := requireTabID(cmd.TabID); err != nil {
		return s.fail(span, err)
	}
	if cmd.AmountPaidCents < 0 {
		return s.fail(span, apperrors.New(apperrors.CodePaymentNegative, "amount paid must not be negative"))
	}

	snap := result.Bind(s.loadSnapshot(ctx, cmd.TabID), rules.TabMustBeOpen)
	events := result.Bind(snap, func(snap rules.Snapshot) result.Result[decision] {
		evts, decideErr := snap.Tab.Close(cmd.AmountPaidCents, s.now())
		return s.decide(snap, evts, decideErr)
	})
	if err := s.commit(ctx, events); err != nil {
		return s.fail(span, err)
	}
	return nil
}

// decision is an accepted command: the events to append and the journal
// head the append must expect.
type decision struct {
	tabID       string
	expectedSeq uint64
	events      []event.Event
}

func (s *Service) decide(snap rules.Snapshot, events []event.Event, err *apperrors.Error) result.Result[decision] {
	if err != nil {
		return result.Err[decision](err)
	}
	if len(events) == 0 {
		return result.Err[decision](apperrors.New(apperrors.CodeUnknown, "command produced no events"))
	}
	return result.Ok(decision{tabID: events[0].TabID, expectedSeq: snap.Seq, events: events})
}

func (s *Service) loadSnapshot(ctx context.Context, tabID string) result.Result[rules.Snapshot] {
	history, head, err := journal.Load(ctx, s.journal, tabID)
	if err != nil {
		return result.Err[rules.Snapshot](apperrors.Unexpected("load tab journal", err))
	}
	tab, replayErr := domain.Replay(history)
	if replayErr != nil {
		return result.Err[rules.Snapshot](apperrors.Unexpected(fmt.Sprintf("replay tab %s", tabID), replayErr))
	}
	return result.Ok(rules.Snapshot{Tab: tab, Seq: head})
}

func (s *Service) commit(ctx context.Context, res result.Result[decision]) *apperrors.Error {
	d, err := res.Unpack()
	if err != nil {
		return err
	}
	if appendErr := s.journal.AppendEvents(ctx, d.tabID, d.expectedSeq, d.events); appendErr != nil {
		typed := apperrors.FromError(appendErr)
		if typed.Code == apperrors.CodeTabVersionConflict {
			return typed
		}
		return apperrors.Unexpected("append tab events", appendErr)
	}
	return nil
}

func (s *Service) startSpan(ctx context.Context, name, tabID string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "command."+name)
	if tabID != "" {
		span.SetAttributes(attribute.String("tab.id", tabID))
	}
	return ctx, span
}

func (s *Service) fail(span trace.Span, err *apperrors.Error) *apperrors.Error {
	span.SetStatus(codes.Error, err.Message)
	span.SetAttributes(attribute.String("error.code", string(err.Code)))
	return err
}

func requireTabID(tabID string) *apperrors.Error {
	if strings.TrimSpace(tabID) == "" {
		return apperrors.New(apperrors.CodeTabIDMissing, "tab id is required")
	}
	return nil
}

func orderedItems(items []menu.Item) []event.OrderedItem {
	out := make([]event.OrderedItem, 0, len(items))
	for _, item := range items {
		out = append(out, event.OrderedItem{
			Number:      item.Number,
			Description: item.Description,
			PriceCents:  item.PriceCents,
		})
	}
	return out
}
