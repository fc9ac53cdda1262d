// Package ir provides the intermediate representation shared by the scene
// description compiler, the persistence layer and node content encoding.
//
// This package contains type definitions and the canonical encoder only. All
// other internal packages may import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed set: String, Int, Bool, List, Object. There is no
//     float kind; numeric node content travels as decimal strings, the same
//     way index values do, so encoded content is byte-stable.
//   - Object keys are serialized in RFC 8785 order (UTF-16 code units).
//   - All JSON tags use snake_case.
package ir
