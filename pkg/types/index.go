package types

import "time"

// BuildStrategy selects how pairwise comparisons are planned
type BuildStrategy string

const (
	StrategyFull    BuildStrategy = "full"
	StrategySampled BuildStrategy = "sampled"
)

// BuildBudget is the comparison plan derived from element count and config.
// It is recomputed per build and never persisted; only BuildStats records
// what actually happened.
type BuildBudget struct {
	Strategy             BuildStrategy
	MaxComparisons       int
	KeywordClusterBudget int // sampled strategy only
	CrossTypeBudget      int // sampled strategy only
}

// Completeness records whether a build ran its whole comparison plan
type Completeness string

const (
	CompletenessFull    Completeness = "full"
	CompletenessPartial Completeness = "partial" // deadline hit during scoring
)

// BuildStats summarizes one index build
type BuildStats struct {
	Strategy        BuildStrategy `yaml:"strategy"`
	ComparisonsMade int           `yaml:"comparisons_made"`
	ElementsIndexed int           `yaml:"elements_indexed"`
	ElementsSkipped int           `yaml:"elements_skipped"`
	EdgesCreated    int           `yaml:"edges_created"`
	CacheHits       int           `yaml:"cache_hits"`
	CacheMisses     int           `yaml:"cache_misses"`
	Completeness    Completeness  `yaml:"completeness"`
	DurationMs      int64         `yaml:"duration_ms"`
	Warnings        []string      `yaml:"warnings,omitempty"`
}

// TriggerMap maps an action-trigger verb to the sorted ids of the elements
// declaring it. The map is computed once per build, before relationship
// discovery starts, and passed forward by value.
type TriggerMap map[string][]string

// IndexedElement bundles everything the index persists for one element
type IndexedElement struct {
	Record        ElementRecord      `yaml:"record"`
	Profile       SemanticProfile    `yaml:"profile"`
	OutboundEdges []RelationshipEdge `yaml:"outbound_edges,omitempty"`
}

// CapabilityIndex is the persisted artifact. It is immutable once written and
// wholly replaced by the next successful build; there is no partial merge.
type CapabilityIndex struct {
	SchemaVersion    int                        `yaml:"schema_version"`
	GeneratedAt      time.Time                  `yaml:"generated_at"`
	Elements         map[string]*IndexedElement `yaml:"elements"`
	ActionTriggerMap TriggerMap                 `yaml:"action_trigger_map,omitempty"`
	BuildStats       BuildStats                 `yaml:"build_stats"`
}

// GetRelationships returns the outbound edges for an element, or ErrNotFound
func (idx *CapabilityIndex) GetRelationships(elementID string) ([]RelationshipEdge, error) {
	el, ok := idx.Elements[elementID]
	if !ok {
		return nil, ErrNotFound
	}
	edges := make([]RelationshipEdge, len(el.OutboundEdges))
	copy(edges, el.OutboundEdges)
	return edges, nil
}

// GetByActionTrigger returns the element ids registered for a trigger verb.
// An unknown verb yields an empty slice, not an error.
func (idx *CapabilityIndex) GetByActionTrigger(verb string) []string {
	ids := idx.ActionTriggerMap[verb]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// GetSemanticProfile returns the profile for an element, or ErrNotFound
func (idx *CapabilityIndex) GetSemanticProfile(elementID string) (*SemanticProfile, error) {
	el, ok := idx.Elements[elementID]
	if !ok {
		return nil, ErrNotFound
	}
	profile := el.Profile
	return &profile, nil
}
