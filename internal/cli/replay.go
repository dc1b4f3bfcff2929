package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/chriszhao1988/iroha/internal/config"
	"github.com/chriszhao1988/iroha/internal/isi"
	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/pipeline"
	"github.com/chriszhao1988/iroha/internal/script"
	"github.com/chriszhao1988/iroha/internal/store"
	"github.com/chriszhao1988/iroha/internal/wsv"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// ReplayBlockResult holds the replay result for a single block.
type ReplayBlockResult struct {
	Height        uint64 `json:"height"`
	Hash          string `json:"hash"`
	TriggerEvents int    `json:"trigger_events"`
	Notifications int    `json:"notifications"`
	Deterministic bool   `json:"deterministic"`
	Mismatch      string `json:"mismatch,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Blocks           []ReplayBlockResult `json:"blocks"`
	TotalBlocks      int                 `json:"total_blocks"`
	AllDeterministic bool                `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the event trail and verify determinism",
		Long: `Re-apply every stored block to a fresh world and check that the
recomputed trail is the stored one: same block hash, and the same
trigger event and notification ids at every height.

The genesis time is not part of the trail. Pass the one the trail was
applied with (--genesis-time or genesis_time in the config file), or the
first block's time-triggered runs will differ.

Exit codes:
  0 - Every block replayed identically
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  irohacore replay --db ./iroha.db
  irohacore replay --db ./iroha.db --genesis-time 2024-01-01T00:00:00Z
  irohacore replay --db ./iroha.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	addLedgerFlags(cmd)
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return reportError(formatter, err)
	}
	if _, err := os.Stat(cfg.Database); os.IsNotExist(err) {
		return reportError(formatter, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", cfg.Database)).WithReason(ErrCodeNotFound))
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return reportError(formatter, WrapExitError(ExitCommandError, "failed to open database", err).WithReason(ErrCodeStore))
	}
	defer st.Close()

	logger := cfg.Logger(cmd.ErrOrStderr(), opts.Verbose)
	p, err := replayPipeline(cfg, logger)
	if err != nil {
		return reportError(formatter, err)
	}

	result, err := replayTrail(ctx, st, p)
	if err != nil {
		return reportError(formatter, err)
	}
	formatter.VerboseLog("Replayed %d block(s) from %s", result.TotalBlocks, cfg.Database)

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayPipeline builds a pipeline over a fresh world that persists
// nothing. Run ids are not part of the trail's hashes, so the default
// generator is kept.
func replayPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithExecutor(isi.NewExecutor(isi.WithLogger(logger))),
		pipeline.WithBlockEncoder(script.MarshalBlock),
		pipeline.WithMaxDepth(cfg.MaxTriggerDepth),
	}
	genesis, ok, err := cfg.Genesis()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if ok {
		opts = append(opts, pipeline.WithGenesisTime(genesis))
	}
	return pipeline.New(wsv.New(), opts...), nil
}

// replayTrail re-applies every stored block through p and compares the
// result with what the trail recorded at the same height.
func replayTrail(ctx context.Context, st *store.Store, p *pipeline.Pipeline) (ReplayResult, error) {
	records, err := st.ReadBlocks(ctx)
	if err != nil {
		return ReplayResult{}, WrapExitError(ExitCommandError, "failed to read stored blocks", err).WithReason(ErrCodeStore)
	}
	storedEvents, err := st.ReadTriggerEvents(ctx, nil)
	if err != nil {
		return ReplayResult{}, WrapExitError(ExitCommandError, "failed to read trigger events", err).WithReason(ErrCodeStore)
	}
	storedNotifications, err := st.ReadNotifications(ctx, nil)
	if err != nil {
		return ReplayResult{}, WrapExitError(ExitCommandError, "failed to read notifications", err).WithReason(ErrCodeStore)
	}

	eventIDs := make(map[uint64][]string)
	for _, rec := range storedEvents {
		eventIDs[rec.Height] = append(eventIDs[rec.Height], rec.ID)
	}
	notificationIDs := make(map[uint64][]string)
	for _, rec := range storedNotifications {
		notificationIDs[rec.Height] = append(notificationIDs[rec.Height], rec.ID)
	}

	result := ReplayResult{
		Blocks:           make([]ReplayBlockResult, 0, len(records)),
		TotalBlocks:      len(records),
		AllDeterministic: true,
	}
	for _, rec := range records {
		br := ReplayBlockResult{
			Height:        rec.Height,
			Hash:          rec.Hash,
			TriggerEvents: len(eventIDs[rec.Height]),
			Notifications: len(notificationIDs[rec.Height]),
			Deterministic: true,
		}

		b, err := script.UnmarshalBlock(rec.Payload)
		if err != nil {
			return ReplayResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("stored block %d is unreadable", rec.Height), err).WithReason(ErrCodeStore)
		}
		res, err := p.ApplyBlock(ctx, b)
		if err != nil {
			br.Deterministic = false
			br.Mismatch = err.Error()
			result.Blocks = append(result.Blocks, br)
			result.AllDeterministic = false
			// The world did not advance; later blocks cannot be compared.
			break
		}

		br.Mismatch = compareBlock(rec, res, eventIDs[rec.Height], notificationIDs[rec.Height])
		if br.Mismatch != "" {
			br.Deterministic = false
			result.AllDeterministic = false
		}
		result.Blocks = append(result.Blocks, br)
	}
	return result, nil
}

// compareBlock describes the first difference between a stored block and
// its replay, or returns "".
func compareBlock(rec model.BlockRecord, res *pipeline.BlockResult, events, notifications []string) string {
	if res.Hash != rec.Hash {
		return fmt.Sprintf("hash %s, stored %s", res.Hash, rec.Hash)
	}
	gotEvents := make([]string, 0, len(res.TriggerEvents))
	for _, ev := range res.TriggerEvents {
		gotEvents = append(gotEvents, ev.ID)
	}
	if !slices.Equal(gotEvents, events) {
		return fmt.Sprintf("%d trigger event(s), stored %d or with different ids", len(gotEvents), len(events))
	}
	gotNotifications := make([]string, 0, len(res.Notifications))
	for _, n := range res.Notifications {
		gotNotifications = append(gotNotifications, n.ID)
	}
	if !slices.Equal(gotNotifications, notifications) {
		return fmt.Sprintf("%d notification(s), stored %d or with different ids", len(gotNotifications), len(notifications))
	}
	return ""
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := f.JSON(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed").WithReason(ErrCodeDeterminism).markPrinted()
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalBlocks == 0 {
		fmt.Fprintln(w, "No blocks found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d block(s)\n", result.TotalBlocks)
	fmt.Fprintln(w)

	for _, b := range result.Blocks {
		status := "✓"
		if !b.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Block %d\n", status, b.Height)
		if verbose {
			fmt.Fprintf(w, "  Hash: %s\n", b.Hash)
		}
		fmt.Fprintf(w, "  Events: %d trigger events, %d notifications\n", b.TriggerEvents, b.Notifications)
		if !b.Deterministic {
			fmt.Fprintf(w, "  Warning: %s\n", b.Mismatch)
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All blocks verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed").WithReason(ErrCodeDeterminism).markPrinted()
}
