package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/tabhouse/internal/tab/event"
	"github.com/louisbranch/tabhouse/internal/tab/journal"
)

// Event journal methods

// AppendEvents atomically appends a batch of events for one tab.
//
// The journal head must be at expectedSeq or the whole batch fails with
// journal.ErrVersionConflict. Each appended event is also enqueued on the
// outbox inside the same transaction, so publication can never miss a
// committed event.
func (s *Store) AppendEvents(ctx context.Context, tabID string, expectedSeq uint64, events []event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tabID) == "" {
		return fmt.Errorf("tab id is required")
	}
	if len(events) == 0 {
		return nil
	}
	for i, evt := range events {
		if evt.TabID != tabID {
			return fmt.Errorf("event %d belongs to tab %q, not %q", i, evt.TabID, tabID)
		}
		if !evt.Type.IsValid() {
			return fmt.Errorf("event %d has unknown type %q", i, evt.Type)
		}
		if len(evt.PayloadJSON) == 0 {
			return fmt.Errorf("event %d has no payload", i)
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var head uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM tab_events WHERE tab_id = ?", tabID,
	).Scan(&head); err != nil {
		return fmt.Errorf("read journal head: %w", err)
	}
	if head != expectedSeq {
		return journal.ErrVersionConflict
	}

	now := time.Now().UTC()
	for i, evt := range events {
		seq := expectedSeq + uint64(i) + 1
		ts := event.NormalizeTimestamp(evt.Timestamp)

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tab_events (tab_id, seq, timestamp, event_type, actor_id, payload_json)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			tabID, seq, toMillis(ts), string(evt.Type), evt.ActorID, evt.PayloadJSON,
		); err != nil {
			// A racing writer can slip in between the head read and the
			// insert; the primary key turns that into a conflict.
			if isConstraintError(err) {
				return journal.ErrVersionConflict
			}
			return fmt.Errorf("append event seq %d: %w", seq, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tab_event_outbox (tab_id, seq, created_at, attempts, available_at)
			 VALUES (?, ?, ?, 0, ?)`,
			tabID, seq, toMillis(now), toMillis(now),
		); err != nil {
			return fmt.Errorf("enqueue outbox seq %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListEvents returns a tab's events ordered by sequence ascending.
func (s *Store) ListEvents(ctx context.Context, tabID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tabID) == "" {
		return nil, fmt.Errorf("tab id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT tab_id, seq, timestamp, event_type, actor_id, payload_json
		 FROM tab_events WHERE tab_id = ? AND seq > ?
		 ORDER BY seq ASC LIMIT ?`,
		tabID, afterSeq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CurrentSeq returns the journal head for a tab, 0 when the tab is unknown.
func (s *Store) CurrentSeq(ctx context.Context, tabID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(tabID) == "" {
		return 0, fmt.Errorf("tab id is required")
	}

	var head uint64
	if err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM tab_events WHERE tab_id = ?", tabID,
	).Scan(&head); err != nil {
		return 0, fmt.Errorf("read journal head: %w", err)
	}
	return head, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		evt       event.Event
		timestamp int64
		eventType string
	)
	if err := row.Scan(&evt.TabID, &evt.Seq, &timestamp, &eventType, &evt.ActorID, &evt.PayloadJSON); err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}
	typ, ok := event.ParseType(eventType)
	if !ok {
		return event.Event{}, fmt.Errorf("stored event has unknown type %q", eventType)
	}
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = typ
	return evt, nil
}
