// Package harness replays browsing sessions against scene descriptions.
//
// A scenario builds a CUE scene description into a fresh engine, runs a
// list of user actions through Engine.Process, then checks the recorded
// synchronization trace and the final workspace.
//
// # Scenario Format
//
//	name: review_roundtrip
//	description: "Editing a proxy writes back into the selected item"
//	scene: ../scenes/review.cue
//	ids: [heart-seq, probe-seq]
//	steps:
//	  - action: select
//	    browser: review
//	    item: 2
//	  - action: modify
//	    browser: review
//	    sequence: probe
//	    content: { value: 15, unit: mm }
//	  - action: advance
//	    duration: 250ms
//	  - action: tick
//	assertions:
//	  - type: trace_count
//	    event: push
//	    count: 1
//	  - type: item
//	    sequence: probe
//	    at: "2"
//	    expect: { value: 15 }
//
// Step actions: select, select_next, advance, tick, modify, snapshot,
// record and playback. A step the engine rejects fails the scenario
// unless it sets expect_error.
//
// # Assertion Types
//
//   - trace_count: exactly N events of a type, optionally for one browser
//   - trace_order: event types appear in order
//   - selected: a browser's selected item number
//   - proxy: subset match on a proxy's content, and optionally its name
//   - item: subset match on the item at an index value, or its absence
//   - index_values: the exact index values of a sequence
//
// # Deterministic Testing
//
// The wall clock starts at testutil.Epoch and only moves on advance steps,
// playback ticks are explicit, and IDs come from testutil.FixedIDGenerator.
// Trace sequence numbers come from the engine's logical clock, so golden
// traces are byte-identical across runs.
package harness
