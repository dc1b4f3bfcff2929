// Package harness runs conformance scenarios against the block pipeline.
//
// A scenario is a ledger script plus assertions about what applying it
// must produce. Every scenario runs through the real pipeline against a
// fresh world state, an in-memory SQLite trail, a fixed run id and the
// pipeline's logical clock, so the same scenario always yields the same
// trace.
//
// # Scenario Format
//
//	name: burn_mint_round_trip
//	description: "Burn then Mint restores the repeat count"
//	run_id: run-burn-mint
//	script:
//	  blocks:
//	    - height: 1
//	      time: 2024-01-01T00:00:10Z
//	      transactions:
//	        - authority: alice@wonderland
//	          instructions:
//	            - burn_trigger: {id: T1, repetitions: 1}
//	  queries:
//	    - name: t1
//	      find_trigger_by_id: {id: T1}
//	subscriptions:
//	  failures: {trigger_completed: {outcome: Failure}}
//	assertions:
//	  - type: tx_result
//	    height: 1
//	    index: 0
//	    code: OK
//	  - type: repeats
//	    trigger: T1
//	    repeats: exactly(2)
//
// # Assertion Types
//
//   - tx_result: a transaction committed (code OK) or failed with an instruction error code
//   - trigger_events: the exact sequence of lifecycle events, e.g. Created(T1)
//   - repeats: a trigger's final repeat policy
//   - active: the exact set of registered trigger ids at the end
//   - pruned: the triggers removed after exhausting their repeats
//   - notifications: what a named subscription received, e.g. "T1: Failure"
//   - query: a query's result value, or its failure code
//
// # Golden Traces
//
// RunWithGolden compares a scenario's trace against
// testdata/golden/{name}.golden. Content-addressed ids are left out of the
// trace; seq values and causes are kept.
package harness
