// Package script reads ledger scripts: blocks of transactions plus the
// queries to run afterwards.
//
// Scripts are YAML (JSON works too). A document is checked against the
// embedded CUE schema before it is decoded, so shape errors carry a
// path into the document instead of a Go type error.
//
//	genesis_time: 2024-01-01T00:00:00Z
//	blocks:
//	  - height: 1
//	    time: 2024-01-01T00:00:10Z
//	    transactions:
//	      - authority: alice@wonderland
//	        instructions:
//	          - mint_trigger: {id: mint_rose, repetitions: 5}
//	queries:
//	  - name: ids
//	    find_all_active_trigger_ids: {}
package script
