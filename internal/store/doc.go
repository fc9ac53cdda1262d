// Package store provides SQLite-backed persistence for a workspace of
// sequences, browsers and scene nodes.
//
// The store is deliberately dumb: it keeps flat attribute lists and node
// content exactly as the core hands them over and never interprets them.
// A Snapshot is written and read as a whole.
//
// # Tables
//
//   - objects: one row per node, sequence, sequence item or browser, with
//     its class, name and canonical JSON content
//   - attributes: (object, name, value) rows, the attribute list of an object
//   - meta: free-form key/value pairs about the saved session
//
// Rows are returned in insertion order (ORDER BY ord), so a load rebuilds
// registries in the order they were saved. Attribute maps carry no order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: attributes are deleted with their object
package store
