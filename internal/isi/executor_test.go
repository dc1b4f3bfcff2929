package isi

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriszhao1988/iroha/internal/model"
	"github.com/chriszhao1988/iroha/internal/telemetry"
	"github.com/chriszhao1988/iroha/internal/wsv"
)

var (
	alice = model.MustAccountID("alice@wonderland")
	noon  = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)

func newTestExecutor(opts ...Option) *Executor {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewExecutor(opts...)
}

func dataTrigger(id string, repeats model.Repeats) model.Trigger {
	return model.NewTrigger(model.TriggerID(id), model.Action{
		Executable: []model.Instruction{model.Fail{Message: "noop"}},
		Repeats:    repeats,
		Authority:  alice,
		Filter:     model.DataEventFilter{},
	})
}

func oneShotTrigger(id string, repeats model.Repeats) model.Trigger {
	return model.NewTrigger(model.TriggerID(id), model.Action{
		Repeats:   repeats,
		Authority: alice,
		Filter:    model.TimeEventFilter{Time: model.NewSchedule(noon)},
	})
}

func repeatsOf(t *testing.T, v *wsv.WorldStateView, id string) model.Repeats {
	t.Helper()
	a, err := v.Triggers().Get(model.TriggerID(id))
	require.NoError(t, err)
	return a.Repeats
}

func lastEvent(t *testing.T, v *wsv.WorldStateView) model.TriggerEvent {
	t.Helper()
	events, _ := v.DrainEvents()
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

func TestBurnMintScenario(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()

	require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: dataTrigger("T1", model.RepeatsExactly(3))}, alice, v))
	assert.Equal(t, model.Created("T1"), lastEvent(t, v))

	require.NoError(t, ex.Execute(model.BurnTrigger{ID: "T1", Repetitions: 1}, alice, v))
	assert.Equal(t, model.RepeatsExactly(2), repeatsOf(t, v, "T1"))
	assert.Equal(t, model.Shortened("T1"), lastEvent(t, v))

	require.NoError(t, ex.Execute(model.MintTrigger{ID: "T1", Repetitions: 5}, alice, v))
	assert.Equal(t, model.RepeatsExactly(7), repeatsOf(t, v, "T1"))
	assert.Equal(t, model.Extended("T1"), lastEvent(t, v))

	err := ex.Execute(model.BurnTrigger{ID: "T1", Repetitions: 10}, alice, v)
	require.Error(t, err)
	assert.True(t, IsMath(err))
	var me *model.MathError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, model.Underflow, me.Kind)
	assert.Equal(t, model.RepeatsExactly(7), repeatsOf(t, v, "T1"))

	events, _ := v.DrainEvents()
	assert.Empty(t, events, "failed instruction must not emit an event")
}

func TestBurnThenMintRestoresCount(t *testing.T) {
	for _, start := range []uint32{1, 5, 100} {
		for _, amount := range []uint32{0, 1, start} {
			ex := newTestExecutor()
			v := wsv.New()
			require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: dataTrigger("T", model.RepeatsExactly(start))}, alice, v))

			require.NoError(t, ex.Execute(model.BurnTrigger{ID: "T", Repetitions: amount}, alice, v))
			require.NoError(t, ex.Execute(model.MintTrigger{ID: "T", Repetitions: amount}, alice, v))
			assert.Equal(t, model.RepeatsExactly(start), repeatsOf(t, v, "T"))
		}
	}
}

func TestMintOverflow(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()
	require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: dataTrigger("T", model.RepeatsExactly(math.MaxUint32 - 1))}, alice, v))

	require.NoError(t, ex.Execute(model.MintTrigger{ID: "T", Repetitions: 1}, alice, v))
	err := ex.Execute(model.MintTrigger{ID: "T", Repetitions: 1}, alice, v)
	assert.True(t, IsMath(err))
	assert.Equal(t, model.RepeatsExactly(math.MaxUint32), repeatsOf(t, v, "T"))
}

func TestRegisterOneShotRequiresExactlyOne(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()

	require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: oneShotTrigger("T2", model.RepeatsExactly(1))}, alice, v))

	for _, repeats := range []model.Repeats{model.RepeatsExactly(2), model.RepeatsExactly(0), model.RepeatsIndefinitely()} {
		err := ex.Execute(model.RegisterTrigger{Trigger: oneShotTrigger("T3", repeats)}, alice, v)
		require.Error(t, err, repeats.String())
		assert.True(t, IsValidation(err))
		assert.True(t, model.IsSchedule(err))
	}
	assert.Equal(t, []model.TriggerID{"T2"}, v.Triggers().IDs())
}

func TestRegisterPeriodicScheduleAnyRepeats(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()
	tr := model.NewTrigger("tick", model.Action{
		Repeats:   model.RepeatsExactly(5),
		Authority: alice,
		Filter:    model.TimeEventFilter{Time: model.NewSchedule(noon).WithPeriod(time.Minute)},
	})
	assert.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: tr}, alice, v))
}

func TestMintOneShotAlwaysFails(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()
	require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: oneShotTrigger("T2", model.RepeatsExactly(1))}, alice, v))
	v.DrainEvents()

	for _, amount := range []uint32{0, 1, 10} {
		err := ex.Execute(model.MintTrigger{ID: "T2", Repetitions: amount}, alice, v)
		assert.True(t, IsValidation(err), "amount %d", amount)
	}
	assert.Equal(t, model.RepeatsExactly(1), repeatsOf(t, v, "T2"))
	events, _ := v.DrainEvents()
	assert.Empty(t, events)
}

// Burn has no one-shot restriction, unlike Mint.
func TestBurnOneShotIsAllowed(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()
	require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: oneShotTrigger("T2", model.RepeatsExactly(1))}, alice, v))

	require.NoError(t, ex.Execute(model.BurnTrigger{ID: "T2", Repetitions: 1}, alice, v))
	assert.Equal(t, model.RepeatsExactly(0), repeatsOf(t, v, "T2"))
}

func TestRegisterDuplicateKeepsFirst(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()
	require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: dataTrigger("T1", model.RepeatsExactly(3))}, alice, v))

	err := ex.Execute(model.RegisterTrigger{Trigger: dataTrigger("T1", model.RepeatsExactly(9))}, alice, v)
	assert.True(t, IsDuplicate(err))
	assert.Equal(t, model.RepeatsExactly(3), repeatsOf(t, v, "T1"))
}

func TestRegisterValidation(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()

	noFilter := dataTrigger("T1", model.RepeatsExactly(1))
	noFilter.Action.Filter = nil
	assert.True(t, IsValidation(ex.Execute(model.RegisterTrigger{Trigger: noFilter}, alice, v)))

	badMeta := dataTrigger("T1", model.RepeatsExactly(1))
	badMeta.Action.Metadata = model.Metadata{"bad key": model.Int(1)}
	assert.True(t, IsValidation(ex.Execute(model.RegisterTrigger{Trigger: badMeta}, alice, v)))

	assert.Equal(t, 0, v.Triggers().Len())
}

func TestUnregister(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()

	err := ex.Execute(model.UnregisterTrigger{ID: "ghost"}, alice, v)
	assert.True(t, IsNotFound(err))

	require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: dataTrigger("T1", model.RepeatsExactly(1))}, alice, v))
	require.NoError(t, ex.Execute(model.UnregisterTrigger{ID: "T1"}, alice, v))
	assert.Equal(t, model.Deleted("T1"), lastEvent(t, v))
	assert.Equal(t, 0, v.Triggers().Len())
}

func TestIndefinitelyMintBurnAreNoops(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()
	require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: dataTrigger("T1", model.RepeatsIndefinitely())}, alice, v))

	require.NoError(t, ex.Execute(model.MintTrigger{ID: "T1", Repetitions: 5}, alice, v))
	require.NoError(t, ex.Execute(model.BurnTrigger{ID: "T1", Repetitions: 500}, alice, v))
	assert.Equal(t, model.RepeatsIndefinitely(), repeatsOf(t, v, "T1"))
}

func TestExecuteTriggerAlwaysSucceeds(t *testing.T) {
	ex := newTestExecutor()
	v := wsv.New()

	require.NoError(t, ex.Execute(model.ExecuteTrigger{ID: "not-registered"}, alice, v))
	_, requests := v.DrainEvents()
	assert.Equal(t, []model.ExecuteTriggerRequest{{TriggerID: "not-registered", Authority: alice}}, requests)
}

func TestFailInstruction(t *testing.T) {
	ex := newTestExecutor()
	err := ex.Execute(model.Fail{Message: "nope"}, alice, wsv.New())
	assert.Equal(t, ErrCodeFail, Code(err))
	assert.Contains(t, err.Error(), "nope")
}

// Every instruction kind must be dispatched; none may fall through to
// UNSUPPORTED.
func TestExecuteDispatchIsExhaustive(t *testing.T) {
	samples := map[model.InstructionKind]model.Instruction{
		model.KindRegisterTrigger:   model.RegisterTrigger{Trigger: dataTrigger("T1", model.RepeatsExactly(1))},
		model.KindUnregisterTrigger: model.UnregisterTrigger{ID: "x"},
		model.KindMintTrigger:       model.MintTrigger{ID: "x"},
		model.KindBurnTrigger:       model.BurnTrigger{ID: "x"},
		model.KindExecuteTrigger:    model.ExecuteTrigger{ID: "x"},
		model.KindFail:              model.Fail{Message: "x"},
	}
	ex := newTestExecutor()
	for _, kind := range model.InstructionKinds() {
		instr, ok := samples[kind]
		require.True(t, ok, "missing sample for %s", kind)
		assert.Equal(t, kind, instr.Kind())

		err := ex.Execute(instr, alice, wsv.New())
		assert.NotEqual(t, ErrCodeUnsupported, Code(err), kind)
	}
}

func TestExecutorMetrics(t *testing.T) {
	m := telemetry.MustNewMetrics(prometheus.NewRegistry())
	ex := newTestExecutor(WithMetrics(m))
	v := wsv.New()

	require.NoError(t, ex.Execute(model.RegisterTrigger{Trigger: dataTrigger("T1", model.RepeatsExactly(1))}, alice, v))
	_ = ex.Execute(model.RegisterTrigger{Trigger: dataTrigger("T1", model.RepeatsExactly(1))}, alice, v)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ISI.WithLabelValues("register_trigger", telemetry.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ISI.WithLabelValues("register_trigger", telemetry.ResultError)))
}
