// Package view holds the denormalized tab read model served to clients.
package view

import (
	"context"
	"time"
)

// Line is one item line on a tab view.
type Line struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
}

// Tab is the read model for a single tab. LastSeq records the journal
// position the view reflects, so re-applying an already seen event is a
// no-op.
type Tab struct {
	TabID            string    `json:"tab_id"`
	TableNumber      int       `json:"table_number"`
	WaiterID         string    `json:"waiter_id"`
	Status           string    `json:"status"`
	Outstanding      []Line    `json:"outstanding"`
	Served           []Line    `json:"served"`
	ServedValueCents int64     `json:"served_value_cents"`
	AmountPaidCents  int64     `json:"amount_paid_cents"`
	TipCents         int64     `json:"tip_cents"`
	LastSeq          uint64    `json:"last_seq"`
	OpenedAt         time.Time `json:"opened_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OutstandingValueCents sums the unserved lines.
func (t Tab) OutstandingValueCents() int64 {
	var total int64
	for _, line := range t.Outstanding {
		total += line.PriceCents
	}
	return total
}

// Store persists tab views.
type Store interface {
	// GetTab returns the view for tabID, or nil when none exists.
	GetTab(ctx context.Context, tabID string) (*Tab, error)
	// GetOpenTabForTable returns the open tab seated at tableNumber, or nil.
	GetOpenTabForTable(ctx context.Context, tableNumber int) (*Tab, error)
	// ListOpenTabs returns open tabs ordered by table number.
	ListOpenTabs(ctx context.Context) ([]Tab, error)
	// ListOpenTabsByWaiter returns a waiter's open tabs ordered by table
	// number.
	ListOpenTabsByWaiter(ctx context.Context, waiterID string) ([]Tab, error)
	// UpsertTab writes the view, replacing any previous version.
	UpsertTab(ctx context.Context, tab Tab) error
}
