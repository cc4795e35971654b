package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/tabhouse/internal/outbox"
	"github.com/louisbranch/tabhouse/internal/tab/event"
)

// Outbox methods

// ListPending returns unpublished, non-dead entries available at or before
// now, in enqueue order, joined with their journal events. Entries whose tab
// has an earlier entry deferred into the future are skipped, so a retry delay
// never lets a later event of the same tab jump the queue.
func (s *Store) ListPending(ctx context.Context, now time.Time, limit int) ([]outbox.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT o.id, o.attempts, e.tab_id, e.seq, e.timestamp, e.event_type, e.actor_id, e.payload_json
		 FROM tab_event_outbox o
		 JOIN tab_events e ON e.tab_id = o.tab_id AND e.seq = o.seq
		 WHERE o.published_at IS NULL AND o.dead_at IS NULL AND o.available_at <= ?
		   AND NOT EXISTS (
		     SELECT 1 FROM tab_event_outbox p
		     WHERE p.tab_id = o.tab_id AND p.id < o.id
		       AND p.published_at IS NULL AND p.dead_at IS NULL AND p.available_at > ?
		   )
		 ORDER BY o.id ASC LIMIT ?`,
		toMillis(now), toMillis(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []outbox.Entry
	for rows.Next() {
		var (
			entry     outbox.Entry
			timestamp int64
			eventType string
		)
		if err := rows.Scan(
			&entry.ID, &entry.Attempts,
			&entry.Event.TabID, &entry.Event.Seq, &timestamp, &eventType,
			&entry.Event.ActorID, &entry.Event.PayloadJSON,
		); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		typ, ok := event.ParseType(eventType)
		if !ok {
			return nil, fmt.Errorf("outbox entry %d has unknown event type %q", entry.ID, eventType)
		}
		entry.Event.Timestamp = fromMillis(timestamp)
		entry.Event.Type = typ
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished records a successful delivery.
func (s *Store) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"UPDATE tab_event_outbox SET published_at = ? WHERE id = ?",
		toMillis(at), id,
	); err != nil {
		return fmt.Errorf("mark outbox entry published: %w", err)
	}
	return nil
}

// MarkFailed bumps the attempt counter and defers the entry.
func (s *Store) MarkFailed(ctx context.Context, id int64, availableAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"UPDATE tab_event_outbox SET attempts = attempts + 1, available_at = ? WHERE id = ?",
		toMillis(availableAt), id,
	); err != nil {
		return fmt.Errorf("mark outbox entry failed: %w", err)
	}
	return nil
}

// MarkDead removes the entry from delivery permanently, keeping the row for
// inspection.
func (s *Store) MarkDead(ctx context.Context, id int64, reason string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx,
		"UPDATE tab_event_outbox SET attempts = attempts + 1, dead_at = ?, dead_reason = ? WHERE id = ?",
		toMillis(at), reason, id,
	); err != nil {
		return fmt.Errorf("mark outbox entry dead: %w", err)
	}
	return nil
}
