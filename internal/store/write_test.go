package store

import (
	"context"
	"testing"

	"github.com/chriszhao1988/iroha/internal/model"
)

func TestWriteBlock_Basic(t *testing.T) {
	s := setupTestStore(t)
	rec := writeTestBlock(t, s, 1)

	var (
		hash, at, runID, engine, schema string
	)
	err := s.db.QueryRow(`
		SELECT hash, time, run_id, engine_version, schema_version
		FROM blocks WHERE height = 1
	`).Scan(&hash, &at, &runID, &engine, &schema)
	if err != nil {
		t.Fatalf("query block: %v", err)
	}
	if hash != rec.Hash {
		t.Errorf("hash = %q, want %q", hash, rec.Hash)
	}
	if at != "2024-01-01T12:00:01.000000000Z" {
		t.Errorf("time = %q", at)
	}
	if runID != "run-test" {
		t.Errorf("run_id = %q", runID)
	}
	if engine != model.EngineVersion || schema != model.SchemaVersion {
		t.Errorf("versions = %q/%q", engine, schema)
	}
}

func TestWriteBlock_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	rec := writeTestBlock(t, s, 1)

	if err := s.WriteBlock(context.Background(), rec); err != nil {
		t.Fatalf("second WriteBlock() failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM blocks").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d blocks, want 1", count)
	}
}

func TestWriteBlock_ConflictingHash(t *testing.T) {
	s := setupTestStore(t)
	rec := writeTestBlock(t, s, 1)

	rec.Hash = model.BlockHash([]byte("other"))
	if err := s.WriteBlock(context.Background(), rec); err == nil {
		t.Error("WriteBlock() with a different hash at the same height should fail")
	}
}

func TestWriteTriggerEvent_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	writeTestBlock(t, s, 1)

	rec := triggerEventRecord(model.Created("mint_rose"), 1, 1)
	for i := 0; i < 2; i++ {
		if err := s.WriteTriggerEvent(ctx, rec); err != nil {
			t.Fatalf("WriteTriggerEvent() #%d failed: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM trigger_events").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d trigger events, want 1", count)
	}
}

func TestWriteTriggerEvent_ForeignKeyViolation(t *testing.T) {
	s := setupTestStore(t)

	rec := triggerEventRecord(model.Created("mint_rose"), 7, 1)
	if err := s.WriteTriggerEvent(context.Background(), rec); err == nil {
		t.Error("WriteTriggerEvent() without its block should fail")
	}
}

func TestWriteNotification_Columns(t *testing.T) {
	s := setupTestStore(t)
	writeTestBlock(t, s, 1)

	ev := model.TriggerCompletedEvent{TriggerID: "mint_rose", Outcome: model.OutcomeFailure("math error: underflow")}
	rec := notificationRecord(t, ev, 1, 3)
	if err := s.WriteNotification(context.Background(), rec); err != nil {
		t.Fatalf("WriteNotification() failed: %v", err)
	}

	var triggerID, outcome, reason, event string
	err := s.db.QueryRow(`
		SELECT trigger_id, outcome, reason, event FROM notifications WHERE id = ?
	`, rec.ID).Scan(&triggerID, &outcome, &reason, &event)
	if err != nil {
		t.Fatalf("query notification: %v", err)
	}
	if triggerID != "mint_rose" || outcome != "Failure" || reason != "math error: underflow" {
		t.Errorf("columns = %q %q %q", triggerID, outcome, reason)
	}
	want := `{"TriggerCompleted":{"trigger_id":"mint_rose","outcome":{"Failure":"math error: underflow"}}}`
	if event != want {
		t.Errorf("event = %s, want %s", event, want)
	}
}
