package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Trigger  string // optional - only events of this trigger
	Outcome  string // optional - only notifications with this outcome
	Height   uint64 // optional - only this block (0 = all)
}

// Trace entry types.
const (
	EntryTriggerEvent = "trigger_event"
	EntryNotification = "notification"
)

// TraceEntry is one event of the stored trail.
type TraceEntry struct {
	Seq       int64  `json:"seq"`
	Height    uint64 `json:"height"`
	Type      string `json:"type"`
	ID        string `json:"id"`
	TriggerID string `json:"trigger_id"`
	Detail    string `json:"detail"` // lifecycle kind or run outcome
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TriggerEvents int `json:"trigger_events"`
	Notifications int `json:"notifications"`
	Successes     int `json:"successes"`
	Failures      int `json:"failures"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Timeline []TraceEntry `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the stored event trail",
		Long: `Show the trigger lifecycle events and run notifications recorded in
the event trail, in logical clock order.

--outcome restricts the timeline to notifications of that outcome
(Success or Failure); lifecycle events are left out.

Examples:
  irohacore trace --db ./iroha.db
  irohacore trace --db ./iroha.db --trigger ticker
  irohacore trace --db ./iroha.db --outcome Failure --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Trigger, "trigger", "", "filter to one trigger id")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter notifications by outcome (Success|Failure)")
	cmd.Flags().Uint64Var(&opts.Height, "height", 0, "filter to one block height")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	filter := model.TriggerCompletedEventFilter{}
	var triggerID *model.TriggerID
	if opts.Trigger != "" {
		id, err := model.NewTriggerID(opts.Trigger)
		if err != nil {
			return reportError(formatter, WrapExitError(ExitCommandError, "invalid --trigger", err))
		}
		triggerID = &id
		filter = filter.ForTrigger(id)
	}
	if opts.Outcome != "" {
		t, err := model.ParseOutcomeType(opts.Outcome)
		if err != nil {
			return reportError(formatter, WrapExitError(ExitCommandError, "invalid --outcome", err))
		}
		filter = filter.ForOutcome(t)
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return reportError(formatter, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database)).WithReason(ErrCodeNotFound))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return reportError(formatter, WrapExitError(ExitCommandError, "failed to open database", err).WithReason(ErrCodeStore))
	}
	defer st.Close()

	result := TraceResult{Timeline: []TraceEntry{}}

	if opts.Outcome == "" {
		events, err := st.ReadTriggerEvents(ctx, triggerID)
		if err != nil {
			return reportError(formatter, WrapExitError(ExitCommandError, "failed to read trigger events", err).WithReason(ErrCodeStore))
		}
		for _, rec := range events {
			if opts.Height != 0 && rec.Height != opts.Height {
				continue
			}
			result.Timeline = append(result.Timeline, TraceEntry{
				Seq:       rec.Seq,
				Height:    rec.Height,
				Type:      EntryTriggerEvent,
				ID:        rec.ID,
				TriggerID: string(rec.Event.ID),
				Detail:    string(rec.Event.Kind),
			})
			result.Stats.TriggerEvents++
		}
	}

	notifications, err := st.ReadNotifications(ctx, filter)
	if err != nil {
		return reportError(formatter, WrapExitError(ExitCommandError, "failed to read notifications", err).WithReason(ErrCodeStore))
	}
	for _, rec := range notifications {
		if opts.Height != 0 && rec.Height != opts.Height {
			continue
		}
		tc, ok := rec.Event.(model.TriggerCompletedEvent)
		if !ok {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEntry{
			Seq:       rec.Seq,
			Height:    rec.Height,
			Type:      EntryNotification,
			ID:        rec.ID,
			TriggerID: string(tc.TriggerID),
			Detail:    tc.Outcome.String(),
		})
		result.Stats.Notifications++
		if tc.Outcome.Failed {
			result.Stats.Failures++
		} else {
			result.Stats.Successes++
		}
	}

	// Seq is unique across both tables; ID breaks ties.
	sort.SliceStable(result.Timeline, func(i, j int) bool {
		a, b := result.Timeline[i], result.Timeline[j]
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.ID < b.ID
	})

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(cmd, result)
}

// outputTraceText outputs the trace as human-readable text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	fmt.Fprintln(w, "Timeline:")
	var height uint64
	for _, e := range result.Timeline {
		if e.Height != height {
			height = e.Height
			fmt.Fprintf(w, "  Block %d\n", height)
		}
		marker := "●"
		if e.Type == EntryNotification {
			marker = "→"
		}
		fmt.Fprintf(w, "    [%d] %s %s: %s\n", e.Seq, marker, e.TriggerID, e.Detail)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Stats:")
	fmt.Fprintf(w, "  Trigger events: %d\n", result.Stats.TriggerEvents)
	fmt.Fprintf(w, "  Notifications:  %d (%d succeeded, %d failed)\n",
		result.Stats.Notifications, result.Stats.Successes, result.Stats.Failures)
	return nil
}
