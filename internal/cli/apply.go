package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chriszhao1988/iroha/internal/config"
	"github.com/chriszhao1988/iroha/internal/isi"
	"github.com/chriszhao1988/iroha/internal/pipeline"
	"github.com/chriszhao1988/iroha/internal/script"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs pipeline.RunIDGenerator
}

// TxOutput is the outcome of one transaction.
type TxOutput struct {
	Index     int    `json:"index"`
	Authority string `json:"authority"`
	Code      string `json:"code"`
	Error     string `json:"error,omitempty"`
}

// RunOutput is one trigger run.
type RunOutput struct {
	TriggerID string `json:"trigger_id"`
	Cause     string `json:"cause"`
	Outcome   string `json:"outcome"`
}

// BlockOutput summarizes one applied block.
type BlockOutput struct {
	Height        uint64      `json:"height"`
	Hash          string      `json:"hash"`
	RunID         string      `json:"run_id"`
	Transactions  []TxOutput  `json:"transactions"`
	TriggerEvents int         `json:"trigger_events"`
	Notifications int         `json:"notifications"`
	Runs          []RunOutput `json:"runs"`
	Pruned        []string    `json:"pruned"`
	Halted        string      `json:"halted,omitempty"`
}

// ApplyResult holds the apply command output.
type ApplyResult struct {
	Blocks  []BlockOutput `json:"blocks"`
	Skipped int           `json:"skipped"`
	Height  uint64        `json:"height"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <script>",
		Short: "Apply a ledger script and record the event trail",
		Long: `Apply the blocks of a ledger script.

With --db the world is first restored from the stored trail, and blocks
the trail already holds are verified against their stored hash and
skipped, so applying the same script twice is a no-op. Without --db the
script runs against an in-memory trail.

Rejected transactions are reported per block; they do not fail the
command. Exit code 1 means a block was out of order or conflicted with
the trail.

Examples:
  irohacore apply ./genesis.yaml --db ./iroha.db
  irohacore apply ./blocks.yaml --db ./iroha.db --format json
  irohacore apply ./blocks.yaml --metrics-file ./iroha.prom`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	addLedgerFlags(cmd)
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile after applying")

	return cmd
}

// addLedgerFlags adds the flags shared by commands that run a pipeline.
func addLedgerFlags(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "path to SQLite database (default in-memory)")
	cmd.Flags().Int("max-trigger-depth", config.DefaultMaxTriggerDepth, "maximum trigger rounds per block")
	cmd.Flags().String("genesis-time", "", "start of the first block's time interval (RFC 3339)")
	cmd.Flags().String("log-level", "info", "log level (debug|info|warn|error)")
	cmd.Flags().String("log-format", "text", "log format (text|json)")
}

func runApply(opts *ApplyOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sess, sc, err := startSession(opts.RootOptions, path, opts.RunIDs, cmd)
	if err != nil {
		return reportError(formatter, err)
	}
	defer sess.Close()

	result, applyErr := applyScript(sess, sc, cmd)
	if applyErr == nil {
		applyErr = sess.writeMetrics()
	}
	if applyErr != nil {
		return reportError(formatter, applyErr)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	writeApplyText(cmd.OutOrStdout(), result)
	return nil
}

// startSession loads config and the script at path, then opens and
// restores a session. The script's genesis time applies unless one is
// configured.
func startSession(opts *RootOptions, path string, runIDs pipeline.RunIDGenerator, cmd *cobra.Command) (*session, *script.Script, error) {
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, nil, err
	}

	sc, err := loadScript(path)
	if err != nil {
		return nil, nil, err
	}
	if cfg.GenesisTime == "" {
		cfg.GenesisTime = sc.GenesisTime
	}

	logger := cfg.Logger(cmd.ErrOrStderr(), opts.Verbose)
	sess, err := openSession(cfg, logger, runIDs)
	if err != nil {
		return nil, nil, err
	}
	return sess, sc, nil
}

func loadScript(path string) (*script.Script, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("script not found: %s", path)).WithReason(ErrCodeNotFound)
	}
	sc, err := script.ParseFile(path)
	if err != nil {
		reason := ErrCodeConvert
		if script.IsSchemaError(err) {
			reason = ErrCodeSchema
		}
		return nil, WrapExitError(ExitFailure, "invalid script", err).WithReason(reason)
	}
	return sc, nil
}

func applyScript(sess *session, sc *script.Script, cmd *cobra.Command) (ApplyResult, error) {
	ctx := cmd.Context()

	stored, err := sess.restore(ctx)
	if err != nil {
		return ApplyResult{}, err
	}
	blocks, err := sc.ToBlocks()
	if err != nil {
		return ApplyResult{}, WrapExitError(ExitFailure, "invalid script", err).WithReason(ErrCodeConvert)
	}
	results, skipped, err := sess.apply(ctx, blocks, stored)
	if err != nil {
		return ApplyResult{}, err
	}

	out := ApplyResult{
		Blocks:  make([]BlockOutput, 0, len(results)),
		Skipped: skipped,
		Height:  sess.pipeline.Height(),
	}
	for _, res := range results {
		out.Blocks = append(out.Blocks, blockOutput(res))
	}
	return out, nil
}

func blockOutput(res *pipeline.BlockResult) BlockOutput {
	out := BlockOutput{
		Height:        res.Height,
		Hash:          res.Hash,
		RunID:         res.RunID,
		Transactions:  make([]TxOutput, 0, len(res.Transactions)),
		TriggerEvents: len(res.TriggerEvents),
		Notifications: len(res.Notifications),
		Runs:          make([]RunOutput, 0, len(res.Runs)),
		Pruned:        make([]string, 0, len(res.Pruned)),
	}
	for _, tx := range res.Transactions {
		txo := TxOutput{Index: tx.Index, Authority: tx.Authority.String(), Code: "OK"}
		if tx.Err != nil {
			txo.Code = string(isi.Code(tx.Err))
			txo.Error = tx.Err.Error()
		}
		out.Transactions = append(out.Transactions, txo)
	}
	for _, run := range res.Runs {
		out.Runs = append(out.Runs, RunOutput{
			TriggerID: string(run.TriggerID),
			Cause:     run.Cause,
			Outcome:   run.Outcome.String(),
		})
	}
	for _, id := range res.Pruned {
		out.Pruned = append(out.Pruned, string(id))
	}
	if res.Halted != nil {
		out.Halted = res.Halted.Error()
	}
	return out
}

func writeApplyText(w io.Writer, result ApplyResult) {
	if result.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d block(s) already in the trail\n", result.Skipped)
	}
	for _, b := range result.Blocks {
		fmt.Fprintf(w, "Block %d  %s\n", b.Height, b.Hash)
		for _, tx := range b.Transactions {
			if tx.Error != "" {
				fmt.Fprintf(w, "  ✗ tx %d (%s): %s\n", tx.Index, tx.Authority, tx.Error)
				continue
			}
			fmt.Fprintf(w, "  ✓ tx %d (%s)\n", tx.Index, tx.Authority)
		}
		for _, run := range b.Runs {
			fmt.Fprintf(w, "  → %s: %s\n", run.TriggerID, run.Outcome)
		}
		if len(b.Pruned) > 0 {
			fmt.Fprintf(w, "  pruned: %s\n", strings.Join(b.Pruned, ", "))
		}
		if b.Halted != "" {
			fmt.Fprintf(w, "  halted: %s\n", b.Halted)
		}
	}
	fmt.Fprintf(w, "Height: %d\n", result.Height)
}

// reportError prints err through the formatter and returns it, marked
// as printed, for the exit code.
func reportError(f *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Reason != "" {
			code = exitErr.Reason
		}
	} else {
		exitErr = &ExitError{Code: ExitFailure, Err: err}
	}
	if outErr := f.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	return exitErr.markPrinted()
}
