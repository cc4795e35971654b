// Package journal defines the append-only event store contract for tabs.
package journal

import (
	"context"

	apperrors "github.com/louisbranch/tabhouse/internal/platform/errors"
	"github.com/louisbranch/tabhouse/internal/tab/event"
)

// ErrVersionConflict indicates an append raced another writer: the journal
// advanced past the expected sequence between read and write.
var ErrVersionConflict = apperrors.New(apperrors.CodeTabVersionConflict, "tab journal advanced past the expected version")

// Store is the append-only journal for tab events.
//
// Sequences start at 1 per tab and have no gaps. AppendEvents assigns
// contiguous sequences starting at expectedSeq+1 and fails with
// ErrVersionConflict when the journal head is not at expectedSeq; either all
// events in the batch are appended or none are.
type Store interface {
	AppendEvents(ctx context.Context, tabID string, expectedSeq uint64, events []event.Event) error
	// ListEvents returns events with sequence greater than afterSeq in
	// ascending order, at most limit when limit is positive.
	ListEvents(ctx context.Context, tabID string, afterSeq uint64, limit int) ([]event.Event, error)
	// CurrentSeq returns the journal head, 0 for an unknown tab.
	CurrentSeq(ctx context.Context, tabID string) (uint64, error)
}

// Load replays a tab's full history into a snapshot alongside the journal
// head the next append must expect.
func Load(ctx context.Context, store Store, tabID string) ([]event.Event, uint64, error) {
	var (
		history []event.Event
		after   uint64
	)
	const page = 256
	for {
		events, err := store.ListEvents(ctx, tabID, after, page)
		if err != nil {
			return nil, 0, err
		}
		history = append(history, events...)
		if len(events) < page {
			break
		}
		after = events[len(events)-1].Seq
	}
	var head uint64
	if len(history) > 0 {
		head = history[len(history)-1].Seq
	}
	return history, head, nil
}
