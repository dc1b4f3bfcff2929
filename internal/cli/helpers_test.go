package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/chriszhao1988/iroha/internal/pipeline"
)

// newTestApplyCommand builds an apply command with injectable run ids.
func newTestApplyCommand(format string, runIDs pipeline.RunIDGenerator) *cobra.Command {
	opts := &ApplyOptions{RootOptions: &RootOptions{Format: format}, RunIDs: runIDs}
	cmd := &cobra.Command{
		Use:           "apply <script>",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}
	addLedgerFlags(cmd)
	cmd.Flags().String("metrics-file", "", "")
	return cmd
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// applyLedger applies a testdata script to a fresh database and returns
// its path.
func applyLedger(t *testing.T, script string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "iroha.db")
	_, err := execute(t, newTestApplyCommand("text", pipeline.NewFixedGenerator("run-1", "run-2", "run-3")),
		filepath.Join("testdata", script), "--db", dbPath)
	require.NoError(t, err)
	return dbPath
}

// decodeResponse decodes a JSON envelope, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}
