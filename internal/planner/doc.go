// Package planner bounds the pairwise comparison work of an index build.
//
// Comparing every element against every other is O(n²) and was the original
// scaling failure in this system's lineage. The planner keeps relationship
// discovery tractable: small collections get the full comparison matrix
// (capped), larger ones get a fixed sampling budget split between
// keyword-cluster pairs and cross-type pairs.
//
//	pl := planner.New(nil)
//	budget := pl.Plan(len(records))
//	pairs := pl.SelectPairs(records, budget, seed)
//
// The budget totals are the contract and are enforced exactly. The sampling
// heuristic inside those totals (bucket round-robin, rejection sampling) is
// deliberately non-normative and may change.
package planner
