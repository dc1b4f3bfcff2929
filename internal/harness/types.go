package harness

import (
	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/pipeline"
	"github.com/chriszhao1988/iroha/internal/wsv"
)

// Trace event types.
const (
	TraceBlock        = "block"
	TraceTx           = "tx"
	TraceTriggerEvent = "trigger_event"
	TraceRun          = "run"
	TraceNotification = "notification"
	TracePruned       = "pruned"
	TraceHalted       = "halted"
	TraceQuery        = "query"
)

// TraceEvent is one line of a scenario trace.
type TraceEvent struct {
	Type    string `json:"type"`
	Height  uint64 `json:"height,omitempty"`
	Seq     int64  `json:"seq,omitempty"`
	Subject string `json:"subject,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Cause   string `json:"cause,omitempty"`
	Value   any    `json:"value,omitempty"`
}

// QueryResult is the outcome of one script query.
type QueryResult struct {
	Value model.Value
	Err   error
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace lists what the scenario produced, block by block, then the
	// query results.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Blocks        []*pipeline.BlockResult              `json:"-"`
	Queries       map[string]QueryResult               `json:"-"`
	Notifications map[string][]model.NotificationEvent `json:"-"`
	Triggers      wsv.TriggerReader                    `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Trace:         []TraceEvent{},
		Errors:        []string{},
		Queries:       make(map[string]QueryResult),
		Notifications: make(map[string][]model.NotificationEvent),
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TriggerEvents returns every lifecycle event the scenario produced, in
// seq order.
func (r *Result) TriggerEvents() []model.TriggerEventRecord {
	out := []model.TriggerEventRecord{}
	for _, b := range r.Blocks {
		out = append(out, b.TriggerEvents...)
	}
	return out
}

// Pruned returns every trigger removed for exhausting its repeats.
func (r *Result) Pruned() []model.TriggerID {
	out := []model.TriggerID{}
	for _, b := range r.Blocks {
		out = append(out, b.Pruned...)
	}
	return out
}

// describeNotification renders ev as "<trigger id>: <outcome type>".
func describeNotification(ev model.NotificationEvent) string {
	switch e := ev.(type) {
	case model.TriggerCompletedEvent:
		return string(e.TriggerID) + ": " + e.Outcome.Type().String()
	}
	return "unknown notification"
}
