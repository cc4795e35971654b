// Package outbox relays committed journal events to the bus.
//
// Events are enqueued in the same transaction that appends them, then
// drained here after commit. Delivery is at-least-once with per-tab
// ordering: a failing entry blocks later entries of the same tab until it
// succeeds or is dead-lettered.
package outbox

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/tabhouse/internal/tab/event"
)

// Entry is one pending publication.
type Entry struct {
	ID       int64
	Event    event.Event
	Attempts int
}

// Store persists outbox entries.
type Store interface {
	// ListPending returns unpublished, non-dead entries available at or
	// before now, ordered by enqueue order. Entries whose tab has an
	// earlier entry deferred into the future are excluded, keeping per-tab
	// order across drain passes.
	ListPending(ctx context.Context, now time.Time, limit int) ([]Entry, error)
	// MarkPublished records a successful delivery.
	MarkPublished(ctx context.Context, id int64, at time.Time) error
	// MarkFailed bumps the attempt counter and defers the entry until
	// availableAt.
	MarkFailed(ctx context.Context, id int64, availableAt time.Time) error
	// MarkDead removes the entry from delivery permanently.
	MarkDead(ctx context.Context, id int64, reason string, at time.Time) error
}

// Handler consumes one relayed event.
type Handler func(ctx context.Context, evt event.Event) error

// Relay drains the outbox into the registered handlers.
type Relay struct {
	store       Store
	handlers    []Handler
	interval    time.Duration
	batchSize   int
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) { r.interval = d }
}

// WithBatchSize caps how many entries one drain pass processes.
func WithBatchSize(n int) RelayOption {
	return func(r *Relay) { r.batchSize = n }
}

// WithMaxAttempts sets how many delivery failures dead-letter an entry.
func WithMaxAttempts(n int) RelayOption {
	return func(r *Relay) { r.maxAttempts = n }
}

// WithBackoff sets the base retry delay. The delay doubles per attempt.
func WithBackoff(d time.Duration) RelayOption {
	return func(r *Relay) { r.backoff = d }
}

// WithClock overrides the relay's time source.
func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) { r.now = now }
}

// NewRelay wires a relay draining store into handlers. Handlers run in
// order for each entry; all must succeed for the entry to be published.
func NewRelay(store Store, handlers []Handler, opts ...RelayOption) *Relay {
	r := &Relay{
		store:       store,
		handlers:    handlers,
		interval:    time.Second,
		batchSize:   100,
		maxAttempts: 10,
		backoff:     time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run polls the outbox until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.DrainOnce(ctx); err != nil {
			log.Printf("outbox drain: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DrainOnce processes one batch of pending entries and returns how many
// were published.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	now := r.now().UTC()
	entries, err := r.store.ListPending(ctx, now, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending entries: %w", err)
	}

	published := 0
	blocked := make(map[string]bool)
	for _, entry := range entries {
		tabID := entry.Event.TabID
		if blocked[tabID] {
			continue
		}

		if err := r.deliver(ctx, entry.Event); err != nil {
			blocked[tabID] = true
			if err := r.recordFailure(ctx, entry, err); err != nil {
				return published, err
			}
			continue
		}
		if err := r.store.MarkPublished(ctx, entry.ID, r.now().UTC()); err != nil {
			return published, fmt.Errorf("mark published entry %d: %w", entry.ID, err)
		}
		published++
	}
	return published, nil
}

func (r *Relay) deliver(ctx context.Context, evt event.Event) error {
	for _, handler := range r.handlers {
		if err := handler(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) recordFailure(ctx context.Context, entry Entry, cause error) error {
	attempts := entry.Attempts + 1
	if attempts >= r.maxAttempts {
		log.Printf("outbox entry %d dead after %d attempts: %v", entry.ID, attempts, cause)
		if err := r.store.MarkDead(ctx, entry.ID, cause.Error(), r.now().UTC()); err != nil {
			return fmt.Errorf("mark dead entry %d: %w", entry.ID, err)
		}
		return nil
	}

	delay := r.backoff << (attempts - 1)
	if err := r.store.MarkFailed(ctx, entry.ID, r.now().UTC().Add(delay)); err != nil {
		return fmt.Errorf("mark failed entry %d: %w", entry.ID, err)
	}
	return nil
}
