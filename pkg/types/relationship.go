package types

// RelationKind is the closed set of typed relationships between elements.
// Every kind has exactly one inverse: symmetric kinds invert to themselves,
// asymmetric kinds invert to a dedicated reciprocal kind.
type RelationKind string

const (
	// Symmetric kinds
	RelationSimilarTo   RelationKind = "similar_to"
	RelationComplements RelationKind = "complements"
	RelationContradicts RelationKind = "contradicts"

	// Asymmetric kinds and their reciprocals
	RelationUsedBy          RelationKind = "used_by"
	RelationUses            RelationKind = "uses"
	RelationHelpsDebug      RelationKind = "helps_debug"
	RelationDebuggedBy      RelationKind = "debugged_by"
	RelationPrerequisiteFor RelationKind = "prerequisite_for"
	RelationDependsOn       RelationKind = "depends_on"
	RelationReferences      RelationKind = "references"
	RelationReferencedBy    RelationKind = "referenced_by"
	RelationLedTo           RelationKind = "led_to"
	RelationResultedFrom    RelationKind = "resulted_from"
)

// inverseKinds is the total inverse mapping. Updating the kind set requires
// updating this table; Inverse panics on unknown kinds so a missing entry
// fails loudly in tests rather than producing a one-way edge.
var inverseKinds = map[RelationKind]RelationKind{
	RelationSimilarTo:       RelationSimilarTo,
	RelationComplements:     RelationComplements,
	RelationContradicts:     RelationContradicts,
	RelationUsedBy:          RelationUses,
	RelationUses:            RelationUsedBy,
	RelationHelpsDebug:      RelationDebuggedBy,
	RelationDebuggedBy:      RelationHelpsDebug,
	RelationPrerequisiteFor: RelationDependsOn,
	RelationDependsOn:       RelationPrerequisiteFor,
	RelationReferences:      RelationReferencedBy,
	RelationReferencedBy:    RelationReferences,
	RelationLedTo:           RelationResultedFrom,
	RelationResultedFrom:    RelationLedTo,
}

// Inverse returns the reciprocal kind for k
func (k RelationKind) Inverse() RelationKind {
	inv, ok := inverseKinds[k]
	if !ok {
		panic("types: relation kind without inverse: " + string(k))
	}
	return inv
}

// Symmetric reports whether k is its own inverse
func (k RelationKind) Symmetric() bool {
	return k.Inverse() == k
}

// Known reports whether k is part of the closed kind set
func (k RelationKind) Known() bool {
	_, ok := inverseKinds[k]
	return ok
}

// EvidenceType discriminates the Evidence variant
type EvidenceType string

const (
	EvidencePattern EvidenceType = "pattern" // matched a pattern rule
	EvidenceTrigger EvidenceType = "trigger" // shared an action trigger verb
	EvidenceScore   EvidenceType = "score"   // pairwise score breakdown
	EvidenceOpaque  EvidenceType = "opaque"  // forward-compat fallback
)

// Evidence records why an edge exists. It is a closed tagged variant: exactly
// the fields for the given Type are populated, and decoders must not accept
// arbitrary nested metadata.
type Evidence struct {
	Type EvidenceType `yaml:"type"`

	// Type == EvidencePattern
	Pattern     string `yaml:"pattern,omitempty"`
	MatchedText string `yaml:"matched_text,omitempty"`

	// Type == EvidenceTrigger
	Trigger string `yaml:"trigger,omitempty"`

	// Type == EvidenceScore
	Score *PairScore `yaml:"score,omitempty"`

	// Type == EvidenceOpaque; raw text carried through upgrades
	Opaque string `yaml:"opaque,omitempty"`
}

// PatternEvidence builds pattern-rule evidence
func PatternEvidence(pattern, matched string) Evidence {
	return Evidence{Type: EvidencePattern, Pattern: pattern, MatchedText: matched}
}

// TriggerEvidence builds shared-trigger evidence
func TriggerEvidence(verb string) Evidence {
	return Evidence{Type: EvidenceTrigger, Trigger: verb}
}

// ScoreEvidence builds score-breakdown evidence
func ScoreEvidence(score PairScore) Evidence {
	return Evidence{Type: EvidenceScore, Score: &score}
}

// OpaqueEvidence wraps evidence decoded from an older schema
func OpaqueEvidence(raw string) Evidence {
	return Evidence{Type: EvidenceOpaque, Opaque: raw}
}

// RelationshipEdge is a directed, weighted, typed relationship between two
// elements. Edges are always created in pairs: the forward edge plus the
// inverse produced by Inverted.
type RelationshipEdge struct {
	SourceID string       `yaml:"source_id"`
	TargetID string       `yaml:"target_id"`
	Kind     RelationKind `yaml:"kind"`
	Weight   float64      `yaml:"weight"` // [0,1]
	Evidence Evidence     `yaml:"evidence"`
}

// Inverted returns the structurally required reciprocal edge. Symmetric kinds
// mirror with identical weight; asymmetric kinds swap to the inverse kind.
func (e RelationshipEdge) Inverted() RelationshipEdge {
	return RelationshipEdge{
		SourceID: e.TargetID,
		TargetID: e.SourceID,
		Kind:     e.Kind.Inverse(),
		Weight:   e.Weight,
		Evidence: e.Evidence,
	}
}

// Validate checks edge invariants
func (e *RelationshipEdge) Validate() error {
	if e.SourceID == "" || e.TargetID == "" {
		return ErrMissingElementID
	}
	if !e.Kind.Known() {
		return ErrUnknownRelationKind
	}
	if e.Weight < 0 || e.Weight > 1 {
		return ErrScoreOutOfRange
	}
	return nil
}
