package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestTestCommand_HarnessScenarios(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "json"})

	out, err := execute(t, cmd, harnessScenarios, "--golden-dir", "../harness/testdata/golden")
	require.NoError(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, result.Total, result.Passed)
	assert.GreaterOrEqual(t, result.Total, 6)
}

func TestTestCommand_Filter(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})

	out, err := execute(t, cmd, harnessScenarios, "--filter", "periodic_*", "--golden-dir", "../harness/testdata/golden")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ periodic_schedule")
	assert.NotContains(t, out, "burn_mint_round_trip")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, "one_shot_schedule.yaml", dir)

	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)

	goldenPath := filepath.Join(dir, "golden", "one_shot_schedule.golden")
	written, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	want, err := os.ReadFile("../harness/testdata/golden/one_shot_schedule.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	// The golden directory is not scanned for scenarios.
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, "one_shot_schedule.yaml", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "one_shot_schedule.golden"), []byte("{}"), 0644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, result.Scenarios, 1)
	assert.False(t, result.Scenarios[0].Pass)
	assert.Contains(t, result.Scenarios[0].Errors[0], "does not match golden file")
}

func TestTestCommand_FailingAssertion(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong_repeats
description: asserts a repeat count the script does not produce
script:
  blocks:
    - height: 1
      time: 2024-01-01T00:00:10Z
      transactions:
        - authority: alice@wonderland
          instructions:
            - register_trigger:
                id: T1
                authority: alice@wonderland
                repeats: 3
                filter:
                  execute_trigger: {trigger_id: T1, authority: alice@wonderland}
assertions:
  - {type: repeats, trigger: T1, repeats: exactly(4)}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_repeats.yaml"), []byte(scenario), 0644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_repeats")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFiles_InvalidFilter(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, "depth_limit.yaml", dir)

	_, err := findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func copyScenario(t *testing.T, name, dir string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(harnessScenarios, name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}
