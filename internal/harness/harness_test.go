package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriszhao1988/iroha/internal/model"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "scenario name must match its file name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "notification_chain")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, second.Blocks, len(first.Blocks))
	for i := range first.Blocks {
		assert.Equal(t, first.Blocks[i].Hash, second.Blocks[i].Hash)
		assert.Equal(t, first.Blocks[i].TriggerEvents, second.Blocks[i].TriggerEvents)
		assert.Equal(t, first.Blocks[i].Notifications, second.Blocks[i].Notifications)
	}

	a, err := MarshalTrace(scenario, first)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_RunIDStampedOnBlocks(t *testing.T) {
	scenario := loadTestScenario(t, "burn_mint_round_trip")

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Blocks, 2)
	for _, b := range result.Blocks {
		assert.Equal(t, "run-burn-mint", b.RunID)
		assert.Len(t, b.Hash, 64)
	}
	assert.NotEqual(t, result.Blocks[0].Hash, result.Blocks[1].Hash)
}

func TestRun_DefaultRunID(t *testing.T) {
	scenario := loadTestScenario(t, "burn_mint_round_trip")
	scenario.RunID = ""

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "test-run-default", result.Blocks[0].RunID)
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	scenario := loadTestScenario(t, "burn_mint_round_trip")
	scenario.Assertions = []Assertion{
		{Type: AssertRepeats, Trigger: "T1", Repeats: "exactly(3)"},
		{Type: AssertTxResult, Height: 1, Index: 3, Code: CodeOK},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "exactly(7)")
	assert.Contains(t, result.Errors[1], "underflow")
}

func TestRun_FailureReasonInNotification(t *testing.T) {
	scenario := loadTestScenario(t, "notification_chain")

	result, err := Run(scenario)
	require.NoError(t, err)

	failures := result.Notifications["failures"]
	require.Len(t, failures, 1)
	ev, ok := failures[0].(model.TriggerCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, model.TriggerID("worker"), ev.TriggerID)
	assert.Equal(t, model.OutcomeTypeFailure, ev.Outcome.Type())
	assert.Contains(t, ev.Outcome.Reason, "boom")
}

func TestRun_HaltKeepsBlock(t *testing.T) {
	scenario := loadTestScenario(t, "depth_limit")

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Blocks, 2)
	assert.Error(t, result.Blocks[0].Halted)
	assert.NoError(t, result.Blocks[1].Halted)
	assert.Len(t, result.Blocks[0].Runs, 3)
}

func TestRun_OutOfOrderBlocks(t *testing.T) {
	data := []byte(`
name: out_of_order
description: Blocks must start at height 1
script:
  blocks:
    - height: 2
      time: 2024-01-01T00:00:10Z
assertions:
  - {type: active, triggers: []}
`)
	scenario, err := ParseScenario(data)
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLOCK_ORDER")
}

func TestRun_UnparsedScenario(t *testing.T) {
	_, err := Run(&Scenario{Name: "bare"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parsed script")
}
