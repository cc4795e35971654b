package domain

import (
	"fmt"

	"github.com/louisbranch/tabhouse/internal/tab/event"
)

// Fold applies a single journal event to a tab snapshot.
//
// Folds are the only place snapshot state changes, so replay during request
// execution and historical reconstruction behave identically.
func Fold(t Tab, evt event.Event) (Tab, error) {
	switch evt.Type {
	case event.TypeTabOpened:
		var payload event.TabOpenedPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return Tab{}, err
		}
		t.ID = evt.TabID
		t.Status = StatusOpen
		t.TableNumber = payload.TableNumber
		t.WaiterID = payload.WaiterID
		t.OpenedAt = evt.Timestamp
		return t, nil

	case event.TypeItemsOrdered:
		var payload event.ItemsOrderedPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return Tab{}, err
		}
		for _, item := range payload.Items {
			t.Outstanding = append(t.Outstanding, Line{
				Number:      item.Number,
				Description: item.Description,
				PriceCents:  item.PriceCents,
				PlacedAt:    evt.Timestamp,
			})
		}
		return t, nil

	case event.TypeItemsServed:
		var payload event.ItemsServedPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return Tab{}, err
		}
		lines, remaining, missing := t.takeOutstanding(payload.Numbers)
		if len(missing) > 0 {
			return Tab{}, fmt.Errorf("serve fold: numbers %v not outstanding on tab %s", missing, evt.TabID)
		}
		t.Outstanding = remaining
		for _, line := range lines {
			t.Served = append(t.Served, ServedLine{
				Number:      line.Number,
				Description: line.Description,
				PriceCents:  line.PriceCents,
				ServedAt:    evt.Timestamp,
			})
			t.ServedValueCents += line.PriceCents
		}
		return t, nil

	case event.TypeItemsCancelled:
		var payload event.ItemsCancelledPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return Tab{}, err
		}
		_, remaining, missing := t.takeOutstanding(payload.Numbers)
		if len(missing) > 0 {
			return Tab{}, fmt.Errorf("cancel fold: numbers %v not outstanding on tab %s", missing, evt.TabID)
		}
		t.Outstanding = remaining
		return t, nil

	case event.TypeTabClosed:
		var payload event.TabClosedPayload
		if err := event.DecodePayload(evt, &payload); err != nil {
			return Tab{}, err
		}
		t.Status = StatusClosed
		t.AmountPaidCents = payload.AmountPaidCents
		t.TipCents = payload.TipCents
		t.ClosedAt = evt.Timestamp
		return t, nil
	}
	return Tab{}, fmt.Errorf("fold: unhandled event type %q", evt.Type)
}

// Replay folds a tab's full history in append order into a snapshot.
// Replaying the same sequence always yields the same snapshot.
func Replay(events []event.Event) (Tab, error) {
	var t Tab
	for _, evt := range events {
		next, err := Fold(t, evt)
		if err != nil {
			return Tab{}, fmt.Errorf("replay tab %s seq %d: %w", evt.TabID, evt.Seq, err)
		}
		t = next
	}
	return t, nil
}
