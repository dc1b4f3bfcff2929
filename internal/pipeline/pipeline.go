package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chriszhao1988/iroha/internal/events"
	"github.com/chriszhao1988/iroha/internal/isi"
	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/telemetry"
	"github.com/chriszhao1988/iroha/internal/wsv"
)

// DefaultMaxDepth is the default number of trigger rounds per block.
const DefaultMaxDepth = 64

// DefaultMaxRuns is the default number of trigger runs per block.
const DefaultMaxRuns = 1000

// Sink persists the event trail. Implemented by store.Store.
type Sink interface {
	WriteBlock(ctx context.Context, rec model.BlockRecord) error
	WriteTriggerEvent(ctx context.Context, rec model.TriggerEventRecord) error
	WriteNotification(ctx context.Context, rec model.NotificationRecord) error
}

// BlockEncoder renders a block as the payload stored with its record.
type BlockEncoder func(model.Block) ([]byte, error)

// Pipeline applies blocks to one world state view.
//
// ApplyBlock must not be called concurrently; queries may read
// View().Triggers() from any goroutine at any time.
type Pipeline struct {
	view    *wsv.WorldStateView
	exec    *isi.Executor
	broker  *events.Broker
	sink    Sink
	encode  BlockEncoder
	clock   *Clock
	runGen  RunIDGenerator
	logger  *slog.Logger
	metrics *telemetry.Metrics

	maxDepth int
	maxRuns  int

	height   uint64
	lastTime time.Time
	hasTime  bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExecutor sets the instruction executor. Default: an isi.Executor
// sharing the pipeline's logger and metrics.
func WithExecutor(e *isi.Executor) Option {
	return func(p *Pipeline) { p.exec = e }
}

// WithBroker publishes every notification to b.
func WithBroker(b *events.Broker) Option {
	return func(p *Pipeline) { p.broker = b }
}

// WithSink persists blocks and events to s.
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithBlockEncoder sets the payload encoder for block records.
func WithBlockEncoder(enc BlockEncoder) Option {
	return func(p *Pipeline) { p.encode = enc }
}

// WithClock sets the logical clock. Use NewClockAt to resume a trail.
func WithClock(c *Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithRunIDGenerator sets the run id generator. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(p *Pipeline) { p.runGen = g }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records trigger runs and notifications in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithMaxDepth sets the maximum number of trigger rounds per block.
//
// Default: 64 (DefaultMaxDepth)
func WithMaxDepth(n int) Option {
	return func(p *Pipeline) { p.maxDepth = n }
}

// WithMaxRuns sets the maximum number of trigger runs per block.
//
// Default: 1000 (DefaultMaxRuns)
func WithMaxRuns(n int) Option {
	return func(p *Pipeline) { p.maxRuns = n }
}

// WithGenesisTime sets the start of the first block's time interval.
// Without it the first block's interval is empty, so only PreCommit time
// triggers fire in it.
func WithGenesisTime(t time.Time) Option {
	return func(p *Pipeline) {
		p.lastTime = t
		p.hasTime = true
	}
}

// New returns a pipeline over view.
func New(view *wsv.WorldStateView, opts ...Option) *Pipeline {
	p := &Pipeline{
		view:     view,
		clock:    NewClock(),
		runGen:   UUIDv7Generator{},
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
		maxRuns:  DefaultMaxRuns,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.exec == nil {
		p.exec = isi.NewExecutor(isi.WithLogger(p.logger), isi.WithMetrics(p.metrics))
	}
	return p
}

// View returns the world state view the pipeline mutates.
func (p *Pipeline) View() *wsv.WorldStateView { return p.view }

// Height returns the height of the last applied block, 0 before any.
func (p *Pipeline) Height() uint64 { return p.height }

// Clock returns the pipeline's logical clock.
func (p *Pipeline) Clock() *Clock { return p.clock }

// TxResult is the outcome of one transaction.
type TxResult struct {
	Index     int
	Authority model.AccountID
	Err       error
}

// OK reports whether the transaction committed.
func (r TxResult) OK() bool { return r.Err == nil }

// TriggerRun records one execution of a trigger's action.
type TriggerRun struct {
	TriggerID model.TriggerID
	Cause     string
	Outcome   model.TriggerCompletedOutcome
}

// BlockResult is everything a block application produced.
type BlockResult struct {
	Height        uint64
	Hash          string
	RunID         string
	Transactions  []TxResult
	TriggerEvents []model.TriggerEventRecord
	Notifications []model.NotificationRecord
	Runs          []TriggerRun
	Pruned        []model.TriggerID

	// Halted is set when trigger rounds stopped early on the depth or run
	// limit. The block itself is still applied.
	Halted error
}

// ApplyBlock applies b: its transactions, then every trigger they cause.
//
// Heights must be consecutive starting at 1 and block times must not go
// backwards. Transaction and trigger failures are reported in the result;
// the returned error is reserved for ordering and persistence failures.
func (p *Pipeline) ApplyBlock(ctx context.Context, b model.Block) (*BlockResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.Height != p.height+1 {
		return nil, &RuntimeError{
			Code:    ErrCodeBlockOrder,
			Message: fmt.Sprintf("expected height %d, got %d", p.height+1, b.Height),
			Height:  b.Height,
		}
	}
	if p.hasTime && b.Time.Before(p.lastTime) {
		return nil, &RuntimeError{
			Code:    ErrCodeBlockOrder,
			Message: fmt.Sprintf("block time %s precedes %s", b.Time.Format(time.RFC3339Nano), p.lastTime.Format(time.RFC3339Nano)),
			Height:  b.Height,
		}
	}

	payload, err := p.encodeBlock(b)
	if err != nil {
		return nil, fmt.Errorf("encode block %d: %w", b.Height, err)
	}
	res := &BlockResult{
		Height:        b.Height,
		Hash:          model.BlockHash(payload),
		RunID:         p.runGen.Generate(),
		Transactions:  []TxResult{},
		TriggerEvents: []model.TriggerEventRecord{},
		Notifications: []model.NotificationRecord{},
		Runs:          []TriggerRun{},
		Pruned:        []model.TriggerID{},
	}
	if p.sink != nil {
		rec := model.BlockRecord{Height: b.Height, Hash: res.Hash, Time: b.Time, RunID: res.RunID, Payload: payload}
		if err := p.sink.WriteBlock(ctx, rec); err != nil {
			return nil, &RuntimeError{Code: ErrCodeSink, Message: "write block", Height: b.Height, Err: err}
		}
	}

	p.logger.Info("applying block",
		"height", b.Height,
		"run_id", res.RunID,
		"transactions", len(b.Transactions),
	)

	r := &blockRun{p: p, ctx: ctx, res: res, height: b.Height, detector: newCycleDetector()}

	for i, tx := range b.Transactions {
		txErr := p.applyTransaction(tx)
		res.Transactions = append(res.Transactions, TxResult{Index: i, Authority: tx.Authority, Err: txErr})
		if txErr != nil {
			p.logger.Warn("transaction rejected",
				"height", b.Height,
				"tx", i,
				"authority", tx.Authority.String(),
				"error", txErr,
			)
		}
		if err := r.collect(&r.in); err != nil {
			return res, err
		}
	}

	since := b.Time
	if p.hasTime {
		since = p.lastTime
	}
	r.in.time = &model.TimeInterval{Since: since, Length: b.Time.Sub(since)}

	if err := r.runTriggers(); err != nil {
		return res, err
	}

	p.height = b.Height
	p.lastTime = b.Time
	p.hasTime = true
	p.metrics.ObserveBlock(len(res.Runs))

	p.logger.Info("block applied",
		"height", b.Height,
		"run_id", res.RunID,
		"trigger_runs", len(res.Runs),
		"notifications", len(res.Notifications),
	)
	return res, nil
}

func (p *Pipeline) encodeBlock(b model.Block) ([]byte, error) {
	if p.encode != nil {
		return p.encode(b)
	}
	return model.MarshalCanonical(model.Map{
		"height":       model.Int(int64(b.Height)),
		"time":         model.String(b.Time.UTC().Format(time.RFC3339Nano)),
		"transactions": model.Int(int64(len(b.Transactions))),
	})
}

// applyTransaction runs tx's instructions in order. The first failure rolls
// back the whole transaction.
func (p *Pipeline) applyTransaction(tx model.Transaction) error {
	cp := p.view.Checkpoint()
	for i, instr := range tx.Instructions {
		if err := p.exec.Execute(instr, tx.Authority, p.view); err != nil {
			p.view.Rollback(cp)
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return nil
}
