package store

import (
	"context"
	"fmt"

	"github.com/chriszhao1988/iroha/internal/model"
)

// WriteBlock inserts an applied block.
// Uses ON CONFLICT(height) DO NOTHING for idempotency; a block at an
// existing height with a different hash is an error.
func (s *Store) WriteBlock(ctx context.Context, rec model.BlockRecord) error {
	payload := rec.Payload
	if payload == nil {
		payload = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocks
		(height, hash, time, run_id, payload, engine_version, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(height) DO NOTHING
	`,
		int64(rec.Height),
		rec.Hash,
		formatTime(rec.Time),
		rec.RunID,
		payload,
		model.EngineVersion,
		model.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("write block: %w", err)
	}

	var stored string
	if err := s.db.QueryRowContext(ctx, `SELECT hash FROM blocks WHERE height = ?`, int64(rec.Height)).Scan(&stored); err != nil {
		return fmt.Errorf("write block: verify: %w", err)
	}
	if stored != rec.Hash {
		return fmt.Errorf("write block: height %d already stored with hash %s", rec.Height, stored)
	}
	return nil
}

// WriteTriggerEvent inserts a lifecycle event record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
// The block at rec.Height must exist (foreign key constraint).
func (s *Store) WriteTriggerEvent(ctx context.Context, rec model.TriggerEventRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trigger_events
		(id, height, seq, kind, trigger_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		int64(rec.Height),
		rec.Seq,
		string(rec.Event.Kind),
		string(rec.Event.ID),
	)
	if err != nil {
		return fmt.Errorf("write trigger event: %w", err)
	}
	return nil
}

// WriteNotification inserts a notification record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
// The block at rec.Height must exist (foreign key constraint).
func (s *Store) WriteNotification(ctx context.Context, rec model.NotificationRecord) error {
	triggerID, outcome, reason, err := notificationColumns(rec.Event)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	eventJSON, err := marshalNotification(rec.Event)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications
		(id, height, seq, trigger_id, outcome, reason, event)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		int64(rec.Height),
		rec.Seq,
		triggerID,
		outcome,
		reason,
		eventJSON,
	)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}
