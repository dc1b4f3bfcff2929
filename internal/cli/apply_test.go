package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriszhao1988/iroha/internal/pipeline"
	"github.com/chriszhao1988/iroha/internal/store"
)

func TestApply_JSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "iroha.db")
	cmd := newTestApplyCommand("json", pipeline.NewFixedGenerator("run-1", "run-2"))

	out, err := execute(t, cmd, "testdata/ledger.yaml", "--db", dbPath)
	require.NoError(t, err)

	var result ApplyResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, uint64(2), result.Height)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, result.Blocks, 2)

	b1 := result.Blocks[0]
	assert.Equal(t, uint64(1), b1.Height)
	assert.Equal(t, "run-1", b1.RunID)
	assert.NotEmpty(t, b1.Hash)
	require.Len(t, b1.Transactions, 3)
	for _, tx := range b1.Transactions {
		assert.Equal(t, "OK", tx.Code)
		assert.Equal(t, "alice@wonderland", tx.Authority)
	}
	assert.Equal(t, 2, b1.TriggerEvents)
	assert.Equal(t, 2, b1.Notifications)
	require.Len(t, b1.Runs, 2)
	assert.Equal(t, "worker", b1.Runs[0].TriggerID)
	assert.Contains(t, b1.Runs[0].Outcome, "boom")
	assert.Equal(t, "alarm", b1.Runs[1].TriggerID)
	assert.Equal(t, "Success", b1.Runs[1].Outcome)
	assert.Equal(t, []string{"alarm"}, b1.Pruned)
	assert.Empty(t, b1.Halted)

	b2 := result.Blocks[1]
	assert.Equal(t, "run-2", b2.RunID)
	assert.Equal(t, 0, b2.TriggerEvents)
	assert.Equal(t, 1, b2.Notifications)
	assert.Empty(t, b2.Pruned)
}

func TestApply_WritesTrail(t *testing.T) {
	dbPath := applyLedger(t, "ledger.yaml")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	blocks, err := st.ReadBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "run-1", blocks[0].RunID)
	assert.Equal(t, "run-2", blocks[1].RunID)

	pos, err := st.Position(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), pos.Height)
	assert.Equal(t, int64(5), pos.Seq)
}

func TestApply_Text(t *testing.T) {
	cmd := newTestApplyCommand("text", nil)

	out, err := execute(t, cmd, "testdata/ledger.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Block 1")
	assert.Contains(t, out, "✓ tx 0 (alice@wonderland)")
	assert.Contains(t, out, "→ alarm: Success")
	assert.Contains(t, out, "pruned: alarm")
	assert.Contains(t, out, "Height: 2")
}

func TestApply_Idempotent(t *testing.T) {
	dbPath := applyLedger(t, "ledger.yaml")

	cmd := newTestApplyCommand("json", nil)
	out, err := execute(t, cmd, "testdata/ledger.yaml", "--db", dbPath)
	require.NoError(t, err)

	var result ApplyResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, result.Blocks)
	assert.Equal(t, uint64(2), result.Height)
}

func TestApply_ContinuesFromTrail(t *testing.T) {
	dbPath := applyLedger(t, "ledger.yaml")

	cmd := newTestApplyCommand("json", pipeline.NewFixedGenerator("run-next"))
	out, err := execute(t, cmd, "testdata/ledger_next.yaml", "--db", dbPath)
	require.NoError(t, err)

	var result ApplyResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, uint64(3), result.Blocks[0].Height)
	assert.Equal(t, 1, result.Blocks[0].TriggerEvents, "worker deleted")
	assert.Equal(t, uint64(3), result.Height)
}

func TestApply_ConflictingBlock(t *testing.T) {
	dbPath := applyLedger(t, "ledger.yaml")

	cmd := newTestApplyCommand("json", nil)
	out, err := execute(t, cmd, "testdata/conflict.yaml", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeBlockOrder, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "conflicts with the stored block")
}

func TestApply_OutOfOrder(t *testing.T) {
	cmd := newTestApplyCommand("json", nil)
	out, err := execute(t, cmd, "testdata/out_of_order.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, ErrCodeBlockOrder, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "expected height 1, got 5")
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
	}{
		{
			name:     "missing script",
			args:     []string{"testdata/absent.yaml"},
			wantExit: ExitCommandError,
			wantCode: ErrCodeNotFound,
		},
		{
			name:     "schema violation",
			args:     []string{"testdata/invalid.yaml"},
			wantExit: ExitFailure,
			wantCode: ErrCodeSchema,
		},
		{
			name:     "bad log level",
			args:     []string{"testdata/ledger.yaml", "--log-level", "loud"},
			wantExit: ExitCommandError,
			wantCode: ErrCodeGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, newTestApplyCommand("json", nil), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestApply_MetricsFile(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "iroha.prom")

	_, err := execute(t, newTestApplyCommand("text", nil), "testdata/ledger.yaml", "--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "iroha_block_trigger_runs_count 2")
	assert.Contains(t, string(data), "iroha_isi_total")
}

func TestApply_ThroughRoot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "iroha.db")

	out, err := execute(t, NewRootCommand(), "apply", "testdata/ledger.yaml", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var result ApplyResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, result.Blocks, 2)
	assert.NotEmpty(t, result.Blocks[0].RunID)
}
