package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/pipeline"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions

	// RunIDs allows overriding the run id generator (for testing).
	RunIDs pipeline.RunIDGenerator
}

// QueryOutput is the result of one script query. Exactly one of Value and
// Error is set.
type QueryOutput struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// QueryResult holds the query command output.
type QueryResult struct {
	Height  uint64        `json:"height"`
	Queries []QueryOutput `json:"queries"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <script>",
		Short: "Apply a script, then run its queries",
		Long: `Apply the blocks of a ledger script exactly as apply does, then run
the script's queries against the resulting world.

A query that fails to evaluate is reported with its error code
(EVALUATE, FIND or UNSUPPORTED); it does not fail the command.

Examples:
  irohacore query ./queries.yaml --db ./iroha.db
  irohacore query ./queries.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	addLedgerFlags(cmd)

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sess, sc, err := startSession(opts.RootOptions, path, opts.RunIDs, cmd)
	if err != nil {
		return reportError(formatter, err)
	}
	defer sess.Close()

	if _, err := applyScript(sess, sc, cmd); err != nil {
		return reportError(formatter, err)
	}
	outputs, err := sess.runQueries(sc)
	if err != nil {
		return reportError(formatter, err)
	}

	result := QueryResult{Height: sess.pipeline.Height(), Queries: outputs}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	writeQueryText(cmd.OutOrStdout(), result)
	return nil
}

func writeQueryText(w io.Writer, result QueryResult) {
	if len(result.Queries) == 0 {
		fmt.Fprintln(w, "No queries in script.")
		return
	}
	for _, q := range result.Queries {
		if q.Error != "" {
			fmt.Fprintf(w, "✗ %s [%s]: %s\n", q.Name, q.Code, q.Error)
			continue
		}
		data, err := model.MarshalCanonical(q.Value)
		if err != nil {
			fmt.Fprintf(w, "✓ %s = %v\n", q.Name, q.Value)
			continue
		}
		fmt.Fprintf(w, "✓ %s = %s\n", q.Name, data)
	}
}
