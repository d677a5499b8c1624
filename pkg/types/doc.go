// Package types provides shared type definitions for the capindex MCP server.
//
// This package defines the domain types used across the index-building core:
// element records, semantic profiles, pairwise scores, typed relationship
// edges, and the persisted capability index itself.
//
// # Core Types
//
// ElementRecord is the read-only input produced by the content-storage layer:
//
//	record := types.ElementRecord{
//	    ID:          "skill_docker-debugging",
//	    ElementType: types.ElementSkill,
//	    Name:        "Docker Debugging",
//	    Keywords:    []string{"docker", "containers", "debugging"},
//	}
//
// CapabilityIndex is the persisted artifact mapping elements to their lexical
// profiles, verb triggers, and a bounded graph of typed relationships:
//
//	edges, err := index.GetRelationships("skill_docker-debugging")
//	ids := index.GetByActionTrigger("debug")
//
// # Relationship Kinds
//
// RelationKind is a closed enum with a total inverse mapping. Symmetric kinds
// (similar_to, complements, contradicts) invert to themselves; every
// asymmetric kind has a dedicated reciprocal (prerequisite_for/depends_on,
// used_by/uses, helps_debug/debugged_by, references/referenced_by,
// led_to/resulted_from). Whenever a forward edge exists in an index, its
// inverse edge exists too.
//
// # Evidence
//
// Evidence is a closed tagged variant rather than an open metadata bag: a
// pattern match, a shared trigger verb, a score breakdown, or an opaque
// string carried through schema upgrades.
package types
