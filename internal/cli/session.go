package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chriszhao1988/iroha/internal/config"
	"github.com/chriszhao1988/iroha/internal/isi"
	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/pipeline"
	"github.com/chriszhao1988/iroha/internal/query"
	"github.com/chriszhao1988/iroha/internal/script"
	"github.com/chriszhao1988/iroha/internal/store"
	"github.com/chriszhao1988/iroha/internal/telemetry"
	"github.com/chriszhao1988/iroha/internal/wsv"
)

// memoryDatabase is used when no database is configured.
const memoryDatabase = ":memory:"

// session is one ledger instance: a pipeline over a fresh world writing to
// an event trail, with its own metrics registry.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	pipeline *pipeline.Pipeline
	queries  *query.Executor
	registry *prometheus.Registry
}

// openSession opens the configured trail and builds a pipeline over it.
// A nil runIDs uses UUIDv7 run ids.
func openSession(cfg *config.Config, logger *slog.Logger, runIDs pipeline.RunIDGenerator) (*session, error) {
	path := cfg.Database
	if path == "" {
		path = memoryDatabase
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err).WithReason(ErrCodeStore)
	}

	registry := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(registry)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	if runIDs == nil {
		runIDs = pipeline.UUIDv7Generator{}
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithExecutor(isi.NewExecutor(isi.WithLogger(logger), isi.WithMetrics(metrics))),
		pipeline.WithSink(st),
		pipeline.WithBlockEncoder(script.MarshalBlock),
		pipeline.WithRunIDGenerator(runIDs),
		pipeline.WithMetrics(metrics),
		pipeline.WithMaxDepth(cfg.MaxTriggerDepth),
	}
	genesis, ok, err := cfg.Genesis()
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if ok {
		opts = append(opts, pipeline.WithGenesisTime(genesis))
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		pipeline: pipeline.New(wsv.New(), opts...),
		queries:  query.NewExecutor(query.WithLogger(logger), query.WithMetrics(metrics)),
		registry: registry,
	}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// restore re-applies every stored block so the world matches the trail.
// Returns the stored blocks by height.
func (s *session) restore(ctx context.Context) (map[uint64]model.BlockRecord, error) {
	records, err := s.store.ReadBlocks(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read stored blocks", err).WithReason(ErrCodeStore)
	}
	stored := make(map[uint64]model.BlockRecord, len(records))
	for _, rec := range records {
		b, err := script.UnmarshalBlock(rec.Payload)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("stored block %d is unreadable", rec.Height), err).WithReason(ErrCodeStore)
		}
		res, err := s.pipeline.ApplyBlock(ctx, b)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to restore block %d", rec.Height), err).WithReason(ErrCodeStore)
		}
		if res.Hash != rec.Hash {
			return nil, NewExitError(ExitFailure, fmt.Sprintf("stored block %d hash mismatch: stored %s, recomputed %s", rec.Height, rec.Hash, res.Hash)).WithReason(ErrCodeDeterminism)
		}
		stored[rec.Height] = rec
	}

	pos, err := s.store.Position(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read trail position", err).WithReason(ErrCodeStore)
	}
	if pos.Height != s.pipeline.Height() || pos.Seq != s.pipeline.Clock().Current() {
		return nil, NewExitError(ExitFailure, fmt.Sprintf(
			"trail ends at height %d seq %d but restore reached height %d seq %d",
			pos.Height, pos.Seq, s.pipeline.Height(), s.pipeline.Clock().Current())).WithReason(ErrCodeDeterminism)
	}
	if len(records) > 0 {
		s.logger.Info("world restored from trail", "height", pos.Height, "seq", pos.Seq)
	}
	return stored, nil
}

// apply applies blocks on top of the restored world. Blocks at heights
// the trail already holds must match the stored hash and are skipped.
func (s *session) apply(ctx context.Context, blocks []model.Block, stored map[uint64]model.BlockRecord) ([]*pipeline.BlockResult, int, error) {
	results := make([]*pipeline.BlockResult, 0, len(blocks))
	skipped := 0
	for _, b := range blocks {
		if rec, ok := stored[b.Height]; ok {
			payload, err := script.MarshalBlock(b)
			if err != nil {
				return results, skipped, WrapExitError(ExitFailure, fmt.Sprintf("failed to encode block %d", b.Height), err)
			}
			if hash := model.BlockHash(payload); hash != rec.Hash {
				return results, skipped, NewExitError(ExitFailure, fmt.Sprintf("block %d conflicts with the stored block", b.Height)).WithReason(ErrCodeBlockOrder)
			}
			skipped++
			continue
		}

		res, err := s.pipeline.ApplyBlock(ctx, b)
		if err != nil {
			if pipeline.IsBlockOrderError(err) {
				return results, skipped, WrapExitError(ExitFailure, "block rejected", err).WithReason(ErrCodeBlockOrder)
			}
			return results, skipped, WrapExitError(ExitCommandError, fmt.Sprintf("failed to apply block %d", b.Height), err).WithReason(ErrCodeStore)
		}
		results = append(results, res)
	}
	return results, skipped, nil
}

// writeMetrics writes the session's counters to the configured textfile.
func (s *session) writeMetrics() error {
	if s.cfg.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(s.cfg.MetricsFile, s.registry); err != nil {
		return WrapExitError(ExitCommandError, "failed to write metrics", err)
	}
	return nil
}

// runQueries runs a script's queries against the current world.
func (s *session) runQueries(sc *script.Script) ([]QueryOutput, error) {
	queries, err := sc.ToQueries()
	if err != nil {
		return nil, WrapExitError(ExitFailure, "invalid query", err).WithReason(ErrCodeConvert)
	}
	view := s.pipeline.View().Triggers()
	out := make([]QueryOutput, 0, len(queries))
	for i, q := range queries {
		qo := QueryOutput{Name: sc.Queries[i].Label(i)}
		v, err := s.queries.Execute(q, view)
		if err != nil {
			qo.Code = string(query.Code(err))
			qo.Error = err.Error()
		} else {
			qo.Value = model.ValueToAny(v)
		}
		out = append(out, qo)
	}
	return out, nil
}
