package store

import (
	"context"
	"fmt"
)

// TrailPosition is where a stored trail ends: the last block height and
// the last issued seq. A pipeline resuming the trail starts from here.
type TrailPosition struct {
	Height uint64
	Seq    int64
}

// Position returns the end of the stored trail. Both fields are zero for
// an empty store.
func (s *Store) Position(ctx context.Context) (TrailPosition, error) {
	var (
		height int64
		seq    int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT MAX(height) FROM blocks), 0),
			MAX(
				COALESCE((SELECT MAX(seq) FROM trigger_events), 0),
				COALESCE((SELECT MAX(seq) FROM notifications), 0)
			)
	`).Scan(&height, &seq)
	if err != nil {
		return TrailPosition{}, fmt.Errorf("read trail position: %w", err)
	}
	return TrailPosition{Height: uint64(height), Seq: seq}, nil
}
