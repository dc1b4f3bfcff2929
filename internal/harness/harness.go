package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chriszhao1988/iroha/internal/events"
	"github.com/chriszhao1988/iroha/internal/isi"
	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/pipeline"
	"github.com/chriszhao1988/iroha/internal/query"
	"github.com/chriszhao1988/iroha/internal/script"
	"github.com/chriszhao1988/iroha/internal/store"
	"github.com/chriszhao1988/iroha/internal/testutil"
	"github.com/chriszhao1988/iroha/internal/wsv"
)

// Harness is the scenario execution engine: one pipeline over a fresh
// world and an in-memory trail.
type Harness struct {
	store    *store.Store
	pipeline *pipeline.Pipeline
	queries  *query.Executor
	subs     map[string]*events.Subscription
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh world and in-memory trail
//  2. Attach the scenario's subscriptions
//  3. Apply every block through the pipeline
//  4. Cross-check the stored trail against the block results
//  5. Run the script's queries against the final state
//  6. Evaluate assertions
//
// The returned error is reserved for scenarios that cannot run at all,
// such as out-of-order blocks; assertion failures are in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	s := scenario.Parsed()
	if s == nil {
		return nil, fmt.Errorf("scenario %q has no parsed script", scenario.Name)
	}
	blocks, err := s.ToBlocks()
	if err != nil {
		return nil, fmt.Errorf("convert blocks: %w", err)
	}
	queries, err := s.ToQueries()
	if err != nil {
		return nil, fmt.Errorf("convert queries: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(st, scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for _, b := range blocks {
		res, err := h.pipeline.ApplyBlock(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("apply block %d: %w", b.Height, err)
		}
		result.Blocks = append(result.Blocks, res)
		result.Trace = append(result.Trace, blockTrace(res)...)
	}

	if err := h.checkTrail(ctx, result); err != nil {
		return nil, err
	}

	view := h.pipeline.View().Triggers()
	result.Triggers = view
	for i, q := range queries {
		label := s.Queries[i].Label(i)
		v, qerr := h.queries.Execute(q, view)
		result.Queries[label] = QueryResult{Value: v, Err: qerr}
		result.Trace = append(result.Trace, queryTrace(label, v, qerr))
	}

	for name, sub := range h.subs {
		evs := []model.NotificationEvent{}
		for _, d := range sub.Drain() {
			evs = append(evs, d.Event)
		}
		result.Notifications[name] = evs
		sub.Close()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(st *store.Store, scenario *Scenario) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	broker := events.NewBroker()
	subs := make(map[string]*events.Subscription, len(scenario.Subscriptions))
	for _, name := range scenario.SubscriptionNames() {
		filter, err := scenario.Subscriptions[name].ToNotificationFilter()
		if err != nil {
			return nil, fmt.Errorf("subscription %s: %w", name, err)
		}
		subs[name] = broker.Subscribe(filter)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithExecutor(isi.NewExecutor(isi.WithLogger(logger))),
		pipeline.WithSink(st),
		pipeline.WithBroker(broker),
		pipeline.WithBlockEncoder(script.MarshalBlock),
		pipeline.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
	}
	if scenario.MaxTriggerDepth > 0 {
		opts = append(opts, pipeline.WithMaxDepth(scenario.MaxTriggerDepth))
	}
	genesis, ok, err := scenario.Parsed().Genesis()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, pipeline.WithGenesisTime(genesis))
	}

	return &Harness{
		store:    st,
		pipeline: pipeline.New(wsv.New(), opts...),
		queries:  query.NewExecutor(query.WithLogger(logger)),
		subs:     subs,
	}, nil
}

// checkTrail verifies that the stored trail holds exactly the events the
// block results report, in the same order.
func (h *Harness) checkTrail(ctx context.Context, result *Result) error {
	stored, err := h.store.ReadTriggerEvents(ctx, nil)
	if err != nil {
		return fmt.Errorf("read trail: %w", err)
	}
	want := result.TriggerEvents()
	if len(stored) != len(want) {
		result.AddError(fmt.Sprintf("trail: stored %d trigger events, pipeline reported %d", len(stored), len(want)))
	} else {
		for i := range want {
			if stored[i].ID != want[i].ID {
				result.AddError(fmt.Sprintf("trail: trigger event %d is %s, pipeline reported %s", i, stored[i].ID, want[i].ID))
			}
		}
	}

	notifications, err := h.store.ReadNotifications(ctx, nil)
	if err != nil {
		return fmt.Errorf("read trail: %w", err)
	}
	reported := 0
	for _, b := range result.Blocks {
		reported += len(b.Notifications)
	}
	if len(notifications) != reported {
		result.AddError(fmt.Sprintf("trail: stored %d notifications, pipeline reported %d", len(notifications), reported))
	}
	return nil
}

// blockTrace renders one block result. Causes that are content ids are
// replaced by the seq of the event they name.
func blockTrace(res *pipeline.BlockResult) []TraceEvent {
	causes := make(map[string]string)
	trace := []TraceEvent{{Type: TraceBlock, Height: res.Height}}

	for _, tx := range res.Transactions {
		detail := CodeOK
		if tx.Err != nil {
			detail = string(isi.Code(tx.Err))
		}
		trace = append(trace, TraceEvent{
			Type:    TraceTx,
			Height:  res.Height,
			Subject: fmt.Sprintf("tx/%d", tx.Index),
			Detail:  detail,
		})
	}
	for _, rec := range res.TriggerEvents {
		causes[rec.ID] = fmt.Sprintf("seq/%d", rec.Seq)
		trace = append(trace, TraceEvent{
			Type:    TraceTriggerEvent,
			Height:  res.Height,
			Seq:     rec.Seq,
			Subject: string(rec.Event.ID),
			Detail:  string(rec.Event.Kind),
		})
	}
	for _, rec := range res.Notifications {
		causes[rec.ID] = fmt.Sprintf("seq/%d", rec.Seq)
	}
	for _, run := range res.Runs {
		cause := run.Cause
		if c, ok := causes[cause]; ok {
			cause = c
		}
		trace = append(trace, TraceEvent{
			Type:    TraceRun,
			Height:  res.Height,
			Subject: string(run.TriggerID),
			Detail:  run.Outcome.Type().String(),
			Cause:   cause,
		})
	}
	for _, rec := range res.Notifications {
		ev, ok := rec.Event.(model.TriggerCompletedEvent)
		if !ok {
			continue
		}
		trace = append(trace, TraceEvent{
			Type:    TraceNotification,
			Height:  res.Height,
			Seq:     rec.Seq,
			Subject: string(ev.TriggerID),
			Detail:  ev.Outcome.Type().String(),
		})
	}
	for _, id := range res.Pruned {
		trace = append(trace, TraceEvent{Type: TracePruned, Height: res.Height, Subject: string(id)})
	}
	if res.Halted != nil {
		detail := res.Halted.Error()
		var rt *pipeline.RuntimeError
		if errors.As(res.Halted, &rt) {
			detail = string(rt.Code)
		}
		trace = append(trace, TraceEvent{Type: TraceHalted, Height: res.Height, Detail: detail})
	}
	return trace
}

func queryTrace(label string, v model.Value, err error) TraceEvent {
	if err != nil {
		return TraceEvent{Type: TraceQuery, Subject: label, Detail: string(query.Code(err))}
	}
	return TraceEvent{Type: TraceQuery, Subject: label, Detail: CodeOK, Value: model.ValueToAny(v)}
}
