package pipeline

import (
	"context"
	"fmt"

	"github.com/chriszhao1988/iroha/internal/events"
	"github.com/chriszhao1988/iroha/internal/model"
)

// request is an execute request with a block-unique cause id.
type request struct {
	cause string
	req   model.ExecuteTriggerRequest
}

// roundInput is everything a trigger round can react to.
type roundInput struct {
	events        []model.TriggerEventRecord
	requests      []request
	notifications []model.NotificationRecord
	time          *model.TimeInterval
}

func (in *roundInput) empty() bool {
	return len(in.events) == 0 && len(in.requests) == 0 && len(in.notifications) == 0 && in.time == nil
}

// match is one pending trigger run.
type match struct {
	id    model.TriggerID
	cause string
}

// blockRun is the per-block state of trigger execution.
type blockRun struct {
	p        *Pipeline
	ctx      context.Context
	res      *BlockResult
	height   uint64
	detector *cycleDetector
	in       roundInput
	requests int
}

// collect drains the view's pending lifecycle events and execute requests
// into in, stamping and persisting each event.
func (r *blockRun) collect(in *roundInput) error {
	evs, reqs := r.p.view.DrainEvents()
	for _, ev := range evs {
		seq := r.p.clock.Next()
		id, err := model.TriggerEventID(ev, r.height, seq)
		if err != nil {
			return err
		}
		rec := model.TriggerEventRecord{ID: id, Height: r.height, Seq: seq, Event: ev}
		if r.p.sink != nil {
			if err := r.p.sink.WriteTriggerEvent(r.ctx, rec); err != nil {
				return &RuntimeError{Code: ErrCodeSink, Message: "write trigger event", Height: r.height, Err: err}
			}
		}
		r.res.TriggerEvents = append(r.res.TriggerEvents, rec)
		in.events = append(in.events, rec)
	}
	for _, req := range reqs {
		r.requests++
		in.requests = append(in.requests, request{cause: fmt.Sprintf("request/%d", r.requests), req: req})
	}
	return nil
}

// runTriggers executes rounds until nothing is pending or a limit is hit.
func (r *blockRun) runTriggers() error {
	runs := 0
	in := r.in
	for depth := 0; !in.empty(); depth++ {
		if depth >= r.p.maxDepth {
			r.halt(&RuntimeError{
				Code:    ErrCodeDepthExceeded,
				Message: fmt.Sprintf("trigger rounds exceeded max depth %d", r.p.maxDepth),
				Height:  r.height,
			})
			return nil
		}

		var next roundInput
		for _, m := range r.match(&in) {
			if r.detector.wouldCycle(m.id, m.cause) {
				r.p.logger.Warn("trigger cycle skipped", "height", r.height, "trigger_id", m.id, "cause", m.cause)
				continue
			}
			if runs >= r.p.maxRuns {
				r.halt(&RuntimeError{
					Code:    ErrCodeQuotaExceeded,
					Message: fmt.Sprintf("trigger runs exceeded limit %d", r.p.maxRuns),
					Height:  r.height,
				})
				return nil
			}
			r.detector.record(m.id, m.cause)

			ran, err := r.run(m, &next)
			if err != nil {
				return err
			}
			if ran {
				runs++
			}
		}
		in = next
	}
	return nil
}

func (r *blockRun) halt(err *RuntimeError) {
	r.res.Halted = err
	r.p.logger.Warn("trigger execution halted", "height", r.height, "error", err)
}

// match lists the runs caused by in, in sorted trigger id order and cause
// emission order within each trigger.
func (r *blockRun) match(in *roundInput) []match {
	view := r.p.view.Triggers()
	var out []match
	for _, id := range view.IDs() {
		var filter model.EventFilter
		if err := view.Inspect(id, func(a model.Action) { filter = a.Filter }); err != nil {
			continue
		}
		switch f := filter.(type) {
		case model.DataEventFilter:
			for _, ev := range in.events {
				if f.Matches(ev.Event) {
					out = append(out, match{id: id, cause: ev.ID})
				}
			}
		case model.ExecuteTriggerEventFilter:
			for _, req := range in.requests {
				if f.TriggerID == id && f.Matches(req.req) {
					out = append(out, match{id: id, cause: req.cause})
				}
			}
		case model.TimeEventFilter:
			if in.time == nil {
				continue
			}
			switch t := f.Time.(type) {
			case model.PreCommit:
				out = append(out, match{id: id, cause: "precommit"})
			case model.Schedule:
				n := t.CountMatches(*in.time)
				if limit := uint64(r.p.maxRuns); n > limit {
					n = limit
				}
				for k := uint64(0); k < n; k++ {
					out = append(out, match{id: id, cause: fmt.Sprintf("time/%d", k)})
				}
			}
		case model.NotificationTriggerFilter:
			if f.Filter == nil {
				continue
			}
			for _, n := range in.notifications {
				if f.Filter.Matches(n.Event) {
					out = append(out, match{id: id, cause: n.ID})
				}
			}
		}
	}
	return out
}

// run executes one matched trigger under its own authority. A failing
// action is rolled back; either way one repeat is spent and a
// TriggerCompleted notification is emitted. Returns false if the trigger
// was gone or exhausted and nothing ran.
func (r *blockRun) run(m match, next *roundInput) (bool, error) {
	p := r.p
	a, err := p.view.Triggers().Get(m.id)
	if err != nil {
		return false, nil
	}
	if a.Repeats.Exhausted() {
		if p.view.Prune(m.id) {
			r.res.Pruned = append(r.res.Pruned, m.id)
			p.logger.Info("exhausted trigger pruned", "height", r.height, "trigger_id", m.id)
		}
		return false, nil
	}

	cp := p.view.Checkpoint()
	var runErr error
	for i, instr := range a.Executable {
		if err := p.exec.Execute(instr, a.Authority, p.view); err != nil {
			runErr = fmt.Errorf("instruction %d: %w", i, err)
			break
		}
	}
	outcome := model.OutcomeSuccess()
	if runErr != nil {
		p.view.Rollback(cp)
		outcome = model.OutcomeFailure(runErr.Error())
		p.logger.Warn("trigger run failed",
			"height", r.height,
			"trigger_id", m.id,
			"cause", m.cause,
			"error", runErr,
		)
	} else {
		p.logger.Debug("trigger run succeeded", "height", r.height, "trigger_id", m.id, "cause", m.cause)
	}

	if _, removed := p.view.ConsumeRepeat(m.id); removed {
		r.res.Pruned = append(r.res.Pruned, m.id)
	}
	if err := r.collect(next); err != nil {
		return true, err
	}

	r.res.Runs = append(r.res.Runs, TriggerRun{TriggerID: m.id, Cause: m.cause, Outcome: outcome})
	p.metrics.ObserveTriggerRun(outcome.Type().String())
	return true, r.notify(model.TriggerCompletedEvent{TriggerID: m.id, Outcome: outcome}, next)
}

// notify stamps, persists and publishes a notification event, and feeds
// it to the next round.
func (r *blockRun) notify(ev model.TriggerCompletedEvent, next *roundInput) error {
	seq := r.p.clock.Next()
	id, err := model.NotificationID(ev, r.height, seq)
	if err != nil {
		return err
	}
	rec := model.NotificationRecord{ID: id, Height: r.height, Seq: seq, Event: ev}
	if r.p.sink != nil {
		if err := r.p.sink.WriteNotification(r.ctx, rec); err != nil {
			return &RuntimeError{Code: ErrCodeSink, Message: "write notification", Height: r.height, Err: err}
		}
	}
	r.res.Notifications = append(r.res.Notifications, rec)
	next.notifications = append(next.notifications, rec)

	if r.p.broker != nil {
		r.p.broker.Publish(events.Delivery{ID: id, Height: r.height, Seq: seq, Event: ev})
	}
	r.p.metrics.ObserveNotification()
	return nil
}
