package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/chriszhao1988/iroha/internal/model"
)

var testTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// setupTestStore creates a fresh store in a temp directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// writeTestBlock stores a block at height with a hash derived from it.
func writeTestBlock(t *testing.T, s *Store, height uint64) model.BlockRecord {
	t.Helper()
	payload := []byte{byte(height)}
	rec := model.BlockRecord{
		Height:  height,
		Hash:    model.BlockHash(payload),
		Time:    testTime.Add(time.Duration(height) * time.Second),
		RunID:   "run-test",
		Payload: payload,
	}
	if err := s.WriteBlock(context.Background(), rec); err != nil {
		t.Fatalf("WriteBlock(%d) failed: %v", height, err)
	}
	return rec
}

func triggerEventRecord(ev model.TriggerEvent, height uint64, seq int64) model.TriggerEventRecord {
	return model.TriggerEventRecord{
		ID:     model.MustTriggerEventID(ev, height, seq),
		Height: height,
		Seq:    seq,
		Event:  ev,
	}
}

func notificationRecord(t *testing.T, ev model.NotificationEvent, height uint64, seq int64) model.NotificationRecord {
	t.Helper()
	id, err := model.NotificationID(ev, height, seq)
	if err != nil {
		t.Fatalf("NotificationID failed: %v", err)
	}
	return model.NotificationRecord{ID: id, Height: height, Seq: seq, Event: ev}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s) failed: %v", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("index query failed: %v", err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
