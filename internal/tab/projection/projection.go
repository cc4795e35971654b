// Package projection folds journal events into the tab read model.
package projection

import (
	"context"
	"fmt"

	"github.com/louisbranch/tabhouse/internal/tab/event"
	"github.com/louisbranch/tabhouse/internal/tab/view"
)

// Projector applies journal events to the view store. Events may be
// delivered more than once; application is idempotent per (tab, seq).
type Projector struct {
	views view.Store
}

// NewProjector returns a projector writing to views.
func NewProjector(views view.Store) *Projector {
	return &Projector{views: views}
}

// ApplyEvent folds one event into the tab's view. Events at or below the
// view's LastSeq are skipped; events further ahead than the next expected
// sequence fail so the caller can re-deliver in order.
func (p *Projector) ApplyEvent(ctx context.Context, evt event.Event) error {
	current, err := p.views.GetTab(ctx, evt.TabID)
	if err != nil {
		return fmt.Errorf("load view for tab %s: %w", evt.TabID, err)
	}
	var v view.Tab
	if current != nil {
		v = *current
	}
	if evt.Seq <= v.LastSeq {
		return nil
	}
	if evt.Seq != v.LastSeq+1 {
		return fmt.Errorf("view for tab %s at seq %d cannot apply seq %d", evt.TabID, v.LastSeq, evt.Seq)
	}

	next, err := apply(v, evt)
	if err != nil {
		return err
	}
	next.LastSeq = evt.Seq
	next.UpdatedAt = evt.Timestamp
	if err := p.views.UpsertTab(ctx, next); err != nil {
		return fmt.Errorf("upsert view for tab %s: %w", evt.TabID, err)
	}
	return nil
}

func apply(v view.Tab, evt event.Event) (view.Tab, error) {
	switch evt.Type {
	case event.TypeTabOpened:
		var payload event.TabOpenedPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return view.Tab{}, err
		}
		v.TabID = evt.TabID
		v.Status = "open"
		v.TableNumber = payload.TableNumber
		v.WaiterID = payload.WaiterID
		v.OpenedAt = evt.Timestamp
		return v, nil

	case event.TypeItemsOrdered:
		var payload event.ItemsOrderedPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return view.Tab{}, err
		}
		for _, item := range payload.Items {
			v.Outstanding = append(v.Outstanding, view.Line{
				Number:      item.Number,
				Description: item.Description,
				PriceCents:  item.PriceCents,
			})
		}
		return v, nil

	case event.TypeItemsServed:
		var payload event.ItemsServedPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return view.Tab{}, err
		}
		for _, number := range payload.Numbers {
			line, ok := takeLine(&v.Outstanding, number)
			if !ok {
				return view.Tab{}, fmt.Errorf("serve projection: number %d not outstanding on tab %s", number, evt.TabID)
			}
			v.Served = append(v.Served, line)
			v.ServedValueCents += line.PriceCents
		}
		return v, nil

	case event.TypeItemsCancelled:
		var payload event.ItemsCancelledPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return view.Tab{}, err
		}
		for _, number := range payload.Numbers {
			if _, ok := takeLine(&v.Outstanding, number); !ok {
				return view.Tab{}, fmt.Errorf("cancel projection: number %d not outstanding on tab %s", number, evt.TabID)
			}
		}
		return v, nil

	case event.TypeTabClosed:
		var payload event.TabClosedPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return view.Tab{}, err
		}
		v.Status = "closed"
		v.AmountPaidCents = payload.AmountPaidCents
		v.TipCents = payload.TipCents
		v.Outstanding = nil
		return v, nil
	}
	return view.Tab{}, fmt.Errorf("projection: unhandled event type %q", evt.Type)
}

// takeLine removes and returns the first line matching number.
func takeLine(lines *[]view.Line, number int) (view.Line, bool) {
	for i, line := range *lines {
		if line.Number == number {
			*lines = append((*lines)[:i], (*lines)[i+1:]...)
			return line, true
		}
	}
	return view.Line{}, false
}
