package event

import (
	"encoding/json"
	"fmt"
)

// OrderedItem is one menu item line inside an items_ordered payload. Price is
// captured in cents at order time and never re-read from the catalog.
type OrderedItem struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
}

// TabOpenedPayload captures the payload for tab.opened events.
type TabOpenedPayload struct {
	TableNumber int    `json:"table_number"`
	WaiterID    string `json:"waiter_id"`
}

// ItemsOrderedPayload captures the payload for tab.items_ordered events.
// Items preserve request order.
type ItemsOrderedPayload struct {
	Items []OrderedItem `json:"items"`
}

// ItemsServedPayload captures the payload for tab.items_served events.
type ItemsServedPayload struct {
	Numbers    []int `json:"numbers"`
	ValueCents int64 `json:"value_cents"`
}

// ItemsCancelledPayload captures the payload for tab.items_cancelled events.
type ItemsCancelledPayload struct {
	Numbers []int `json:"numbers"`
}

// TabClosedPayload captures the payload for tab.closed events.
type TabClosedPayload struct {
	AmountPaidCents int64 `json:"amount_paid_cents"`
	OrderValueCents int64 `json:"order_value_cents"`
	TipCents        int64 `json:"tip_cents"`
}

// EncodePayload marshals a payload struct for the journal.
func EncodePayload(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode event payload: %w", err)
	}
	return raw, nil
}

// DecodePayload unmarshals an event's payload into target.
func DecodePayload(evt Event, target any) error {
	if len(evt.PayloadJSON) == 0 {
		return fmt.Errorf("event %s has no payload", evt.Type)
	}
	if err := json.Unmarshal(evt.PayloadJSON, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", evt.Type, err)
	}
	return nil
}
