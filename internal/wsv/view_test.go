package wsv

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriszhao1988/iroha/internal/model"
)

var alice = model.MustAccountID("alice@wonderland")

func testTrigger(id string, repeats model.Repeats) model.Trigger {
	return model.NewTrigger(model.TriggerID(id), model.Action{
		Repeats:   repeats,
		Authority: alice,
		Filter:    model.DataEventFilter{},
		Metadata:  model.Metadata{"owner": model.String("alice")},
	})
}

func register(t *testing.T, v *WorldStateView, tr model.Trigger) {
	t.Helper()
	err := v.ModifyTriggers(func(s *TriggerSet) (model.TriggerEvent, error) {
		if err := s.Add(tr); err != nil {
			return model.TriggerEvent{}, err
		}
		return model.Created(tr.ID), nil
	})
	require.NoError(t, err)
}

func TestModifyTriggersCommitsOnSuccess(t *testing.T) {
	v := New()
	register(t, v, testTrigger("T1", model.RepeatsExactly(3)))

	a, err := v.Triggers().Get("T1")
	require.NoError(t, err)
	assert.Equal(t, model.RepeatsExactly(3), a.Repeats)

	events, requests := v.DrainEvents()
	assert.Equal(t, []model.TriggerEvent{model.Created("T1")}, events)
	assert.Empty(t, requests)
}

func TestModifyTriggersFailureLeavesNoTrace(t *testing.T) {
	v := New()
	register(t, v, testTrigger("T1", model.RepeatsExactly(3)))
	v.DrainEvents()

	boom := errors.New("boom")
	err := v.ModifyTriggers(func(s *TriggerSet) (model.TriggerEvent, error) {
		require.NoError(t, s.Remove("T1"))
		return model.TriggerEvent{}, boom
	})
	assert.Same(t, boom, err)

	_, err = v.Triggers().Get("T1")
	assert.NoError(t, err)
	events, _ := v.DrainEvents()
	assert.Empty(t, events)
}

func TestSnapshotIsStableAcrossWrites(t *testing.T) {
	v := New()
	register(t, v, testTrigger("T1", model.RepeatsExactly(3)))

	before := v.Triggers()
	err := v.ModifyTriggers(func(s *TriggerSet) (model.TriggerEvent, error) {
		return model.Shortened("T1"), s.ModRepeats("T1", func(n uint32) (uint32, error) { return n - 1, nil })
	})
	require.NoError(t, err)

	old, err := before.Get("T1")
	require.NoError(t, err)
	assert.Equal(t, model.RepeatsExactly(3), old.Repeats)

	cur, err := v.Triggers().Get("T1")
	require.NoError(t, err)
	assert.Equal(t, model.RepeatsExactly(2), cur.Repeats)
}

func TestTriggerSetErrors(t *testing.T) {
	s := NewTriggerSet()
	require.NoError(t, s.Add(testTrigger("T1", model.RepeatsIndefinitely())))

	err := s.Add(testTrigger("T1", model.RepeatsExactly(1)))
	assert.True(t, model.IsDuplicate(err))

	assert.True(t, model.IsNotFound(s.Remove("missing")))
	_, err = s.Get("missing")
	assert.True(t, model.IsNotFound(err))
	assert.True(t, model.IsNotFound(s.ModRepeats("missing", func(n uint32) (uint32, error) { return n, nil })))
}

func TestModRepeatsIndefinitelyIsNoop(t *testing.T) {
	s := NewTriggerSet()
	require.NoError(t, s.Add(testTrigger("T1", model.RepeatsIndefinitely())))

	called := false
	err := s.ModRepeats("T1", func(n uint32) (uint32, error) {
		called = true
		return n + 1, nil
	})
	require.NoError(t, err)
	assert.False(t, called)

	a, _ := s.Get("T1")
	assert.Equal(t, model.RepeatsIndefinitely(), a.Repeats)
}

func TestIDsSorted(t *testing.T) {
	s := NewTriggerSet()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Add(testTrigger(id, model.RepeatsExactly(1))))
	}
	assert.Equal(t, []model.TriggerID{"a", "b", "c"}, s.IDs())
	assert.Equal(t, 3, s.Len())
}

func TestCheckpointRollback(t *testing.T) {
	v := New()
	register(t, v, testTrigger("T1", model.RepeatsExactly(1)))
	v.DrainEvents()

	cp := v.Checkpoint()
	register(t, v, testTrigger("T2", model.RepeatsExactly(1)))
	v.ExecuteTrigger("T1", alice)

	v.Rollback(cp)
	assert.Equal(t, []model.TriggerID{"T1"}, v.Triggers().IDs())
	events, requests := v.DrainEvents()
	assert.Empty(t, events)
	assert.Empty(t, requests)
}

func TestGetReturnsACopy(t *testing.T) {
	v := New()
	tr := testTrigger("T1", model.RepeatsExactly(1))
	tr.Action.Metadata["tags"] = model.Vec{model.String("a")}
	register(t, v, tr)
	cp := v.Checkpoint()

	got, err := v.Triggers().Get("T1")
	require.NoError(t, err)
	got.Metadata["owner"] = model.String("mallory")
	got.Metadata["tags"].(model.Vec)[0] = model.String("b")

	check := func() {
		t.Helper()
		a, err := v.Triggers().Get("T1")
		require.NoError(t, err)
		assert.Equal(t, model.String("alice"), a.Metadata["owner"])
		assert.Equal(t, model.Vec{model.String("a")}, a.Metadata["tags"])
	}
	check()
	v.Rollback(cp)
	check()
}

func TestAddCopiesMetadata(t *testing.T) {
	v := New()
	tr := testTrigger("T1", model.RepeatsExactly(1))
	register(t, v, tr)

	tr.Action.Metadata["owner"] = model.String("mallory")

	a, err := v.Triggers().Get("T1")
	require.NoError(t, err)
	assert.Equal(t, model.String("alice"), a.Metadata["owner"])
}

func TestInspect(t *testing.T) {
	v := New()
	register(t, v, testTrigger("T1", model.RepeatsExactly(2)))

	var got model.Repeats
	require.NoError(t, v.Triggers().Inspect("T1", func(a model.Action) { got = a.Repeats }))
	assert.Equal(t, model.RepeatsExactly(2), got)

	err := v.Triggers().Inspect("nope", func(model.Action) { t.Fatal("called for a missing trigger") })
	var fe *model.FindError
	assert.ErrorAs(t, err, &fe)
}

func TestExecuteTriggerRecordsRequest(t *testing.T) {
	v := New()
	v.ExecuteTrigger("T1", alice)

	_, requests := v.DrainEvents()
	assert.Equal(t, []model.ExecuteTriggerRequest{{TriggerID: "T1", Authority: alice}}, requests)

	_, requests = v.DrainEvents()
	assert.Empty(t, requests)
}

func TestConcurrentWritersAreSerialized(t *testing.T) {
	v := New()
	register(t, v, testTrigger("T1", model.RepeatsExactly(0)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = v.ModifyTriggers(func(s *TriggerSet) (model.TriggerEvent, error) {
				return model.Extended("T1"), s.ModRepeats("T1", func(n uint32) (uint32, error) { return n + 1, nil })
			})
			_ = v.Triggers().Len()
		}()
	}
	wg.Wait()

	a, err := v.Triggers().Get("T1")
	require.NoError(t, err)
	assert.Equal(t, model.RepeatsExactly(50), a.Repeats)
}

func TestConsumeRepeat(t *testing.T) {
	v := New()
	register(t, v, testTrigger("T1", model.RepeatsExactly(2)))
	register(t, v, testTrigger("forever", model.RepeatsIndefinitely()))

	left, removed := v.ConsumeRepeat("T1")
	assert.Equal(t, model.RepeatsExactly(1), left)
	assert.False(t, removed)

	left, removed = v.ConsumeRepeat("T1")
	assert.Equal(t, model.RepeatsExactly(0), left)
	assert.True(t, removed)
	assert.Equal(t, []model.TriggerID{"forever"}, v.Triggers().IDs())

	left, removed = v.ConsumeRepeat("forever")
	assert.Equal(t, model.RepeatsIndefinitely(), left)
	assert.False(t, removed)

	_, removed = v.ConsumeRepeat("missing")
	assert.False(t, removed)
}

func TestPrune(t *testing.T) {
	v := New()
	register(t, v, testTrigger("zero", model.RepeatsExactly(0)))
	register(t, v, testTrigger("one", model.RepeatsExactly(1)))

	assert.True(t, v.Prune("zero"))
	assert.False(t, v.Prune("one"))
	assert.False(t, v.Prune("missing"))
	assert.Equal(t, []model.TriggerID{"one"}, v.Triggers().IDs())
}
