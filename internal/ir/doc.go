// Package ir holds the data model shared by every wikichain package.
//
// This package contains types and pure functions only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Permission is a sealed sum type, never a boolean
//   - Addresses come from canonical JSON and SHA-256 with domain separation
//   - All JSON tags use snake_case
//   - Validation rejections are Verdict values; only storage faults are errors
package ir
