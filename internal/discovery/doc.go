// Package discovery turns scored pairs and rule matches into typed
// relationship edges.
//
// Three independent mechanisms feed one edge set: similarity edges from the
// scoring stage, pattern-rule matches over raw element text, and links
// between elements sharing an action-trigger verb. Trigger discovery
// receives the trigger map as an explicit argument computed earlier in the
// same build; it has no way to reach backward into the builder, which rules
// out the circular build dependency by construction.
//
// Every directed edge is emitted together with its inverse: symmetric kinds
// mirror with identical weight, asymmetric kinds use their declared
// reciprocal kind.
//
// Per-item failures (malformed records, a rule panicking on one pair) are
// recorded as warnings and skipped; they never abort discovery.
package discovery
