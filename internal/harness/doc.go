// Package harness runs wiki conformance scenarios.
//
// A scenario is a YAML file of steps executed in order against a fresh store
// through the wiki append API:
//
//	name: author_only_other_agent
//	description: "An author-locked page rejects edits from other agents"
//	backend: sqlite            # sqlite (default), badger or memory
//	steps:
//	  - op: create
//	    as: alice
//	    page: { content: Beluga, permission: AuthorOnly }
//	    save: x
//	  - op: update
//	    as: bob
//	    target: x
//	    page: { content: Orca, permission: Others }
//	    expect: { outcome: reject, reason: "only the author can edit this record" }
//	assertions:
//	  - type: log_count
//	    count: 1
//
// Agents are named by alias; each alias maps to a deterministic id
// ("agent-0001", ...), so addresses and traces are identical across runs.
// A step's target is either a label saved by an earlier step or, if no such
// label exists, a literal address.
//
// # Operations
//
//   - create: append a page with no predecessor
//   - update: validate against target, append on accept
//   - validate: validate against target without appending
//
// # Assertion Types
//
//   - log_count: number of stored elements
//   - history: contents of the chain ending at head, newest first
//   - successors: number of stored elements superseding a label
//   - verdict_count: number of steps that produced the given outcome
//
// # Golden Traces
//
// RunWithGolden renders the trace as canonical JSON and compares it with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
