// Package timeline implements the ordered index at the bottom of a sequence.
//
// A Timeline maps index values (always stored as strings) to items. Two index
// types are supported:
//
//   - Numeric: entries are kept sorted by the parsed numeric value and two
//     values are equal when they differ by no more than the tolerance.
//   - Text: entries keep insertion order and equality is exact string match.
//
// Lookups never fail loudly. A value that is not present yields position -1
// (or ok=false) and the caller decides the fallback.
//
// Numeric strings that do not parse are not rejected. They compare by raw
// string equality, order after every parsable value, and are appended on
// insert. This keeps data loaded from older files browsable.
package timeline
