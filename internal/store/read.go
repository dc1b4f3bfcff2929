package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chriszhao1988/iroha/internal/model"
)

// ReadBlocks returns every stored block ordered by height.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadBlocks(ctx context.Context) ([]model.BlockRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT height, hash, time, run_id, payload
		FROM blocks
		ORDER BY height ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	blocks := []model.BlockRecord{}
	for rows.Next() {
		var (
			rec    model.BlockRecord
			height int64
			at     string
		)
		if err := rows.Scan(&height, &rec.Hash, &at, &rec.RunID, &rec.Payload); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		rec.Height = uint64(height)
		if rec.Time, err = parseTime(at); err != nil {
			return nil, err
		}
		blocks = append(blocks, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// ReadTriggerEvents returns lifecycle events, optionally only those of
// triggerID. Ordered by seq ASC, id ASC COLLATE BINARY.
func (s *Store) ReadTriggerEvents(ctx context.Context, triggerID *model.TriggerID) ([]model.TriggerEventRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if triggerID != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, height, seq, kind, trigger_id
			FROM trigger_events
			WHERE trigger_id = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, string(*triggerID))
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, height, seq, kind, trigger_id
			FROM trigger_events
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("query trigger events: %w", err)
	}
	defer rows.Close()

	records := []model.TriggerEventRecord{}
	for rows.Next() {
		var (
			rec       model.TriggerEventRecord
			height    int64
			kind, tid string
		)
		if err := rows.Scan(&rec.ID, &height, &rec.Seq, &kind, &tid); err != nil {
			return nil, fmt.Errorf("scan trigger event: %w", err)
		}
		rec.Height = uint64(height)
		rec.Event = model.TriggerEvent{Kind: model.TriggerEventKind(kind), ID: model.TriggerID(tid)}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trigger events: %w", err)
	}
	return records, nil
}

// ReadNotifications returns the stored notifications that filter matches.
// A nil filter accepts everything. The SQL query is narrowed on the
// filter's trigger id; matching itself is always filter.Matches, so the
// result has no false positives or negatives.
func (s *Store) ReadNotifications(ctx context.Context, filter model.NotificationEventFilter) ([]model.NotificationRecord, error) {
	if filter == nil {
		filter = model.AcceptAllFilter{}
	}

	var (
		rows *sql.Rows
		err  error
	)
	if f, ok := filter.(model.TriggerCompletedEventFilter); ok && f.TriggerID != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, height, seq, event
			FROM notifications
			WHERE trigger_id = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, string(*f.TriggerID))
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, height, seq, event
			FROM notifications
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	records := []model.NotificationRecord{}
	for rows.Next() {
		var (
			rec       model.NotificationRecord
			height    int64
			eventJSON string
		)
		if err := rows.Scan(&rec.ID, &height, &rec.Seq, &eventJSON); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		rec.Height = uint64(height)
		if rec.Event, err = unmarshalNotification(eventJSON); err != nil {
			return nil, err
		}
		if filter.Matches(rec.Event) {
			records = append(records, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return records, nil
}
