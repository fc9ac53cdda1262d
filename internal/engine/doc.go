// Package engine keeps browsers, their sequences and their proxy nodes in
// step.
//
// The engine owns a workspace: the main scene holding proxies, the
// registered sequences and the registered browsers. It listens to every
// browser and reacts to two notifications:
//
//   - master advanced: Pull copies the items at the master's current index
//     value into the proxies of every playback-enabled entry
//   - proxy content changed: Push writes the proxy back into its sequence,
//     or, while recording, captures a snapshot
//
// ARCHITECTURE:
//
// Synchronization Guard:
// Pull modifies proxies, which notifies push; Push modifies sequences,
// which notifies pull. A single engine-wide state machine (Idle, Pulling,
// Pushing) turns every re-entrant call into a no-op, so at most one pull or
// push runs at any moment and no change bounces back.
//
// Modify Brackets:
// A pull brackets every proxy it touches and closes the brackets only after
// all of them hold the new state, while the guard is still held. Observers
// see one notification per proxy per pull.
//
// Single-Writer Loop:
// Run processes commands from a FIFO queue and playback ticks on one
// goroutine. Enqueue is the only method safe to call from elsewhere; the
// CLI's file watcher uses it to reload scenes while playback runs. Tests
// and one-shot commands drive the engine directly instead.
//
// Clocks:
// Playback and recording measure wall time through WallClock, replaceable
// by a manual clock in tests. Trace events are stamped by the logical
// Clock so traces of the same scenario are identical across runs.
package engine
