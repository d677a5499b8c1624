package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationKind_InverseIsTotal(t *testing.T) {
	for kind := range inverseKinds {
		inv := kind.Inverse()
		assert.True(t, inv.Known(), "inverse of %s must be a known kind", kind)
		assert.Equal(t, kind, inv.Inverse(), "inverse must round-trip for %s", kind)
	}
}

func TestRelationKind_SymmetricKinds(t *testing.T) {
	symmetric := []RelationKind{RelationSimilarTo, RelationComplements, RelationContradicts}
	for _, kind := range symmetric {
		assert.True(t, kind.Symmetric(), "%s should be symmetric", kind)
	}

	asymmetric := map[RelationKind]RelationKind{
		RelationUsedBy:          RelationUses,
		RelationHelpsDebug:      RelationDebuggedBy,
		RelationPrerequisiteFor: RelationDependsOn,
		RelationReferences:      RelationReferencedBy,
		RelationLedTo:           RelationResultedFrom,
	}
	for kind, want := range asymmetric {
		assert.False(t, kind.Symmetric(), "%s should not be symmetric", kind)
		assert.Equal(t, want, kind.Inverse())
	}
}

func TestRelationKind_UnknownPanics(t *testing.T) {
	assert.Panics(t, func() {
		RelationKind("made_up").Inverse()
	})
}

func TestRelationshipEdge_Inverted(t *testing.T) {
	edge := RelationshipEdge{
		SourceID: "a",
		TargetID: "b",
		Kind:     RelationPrerequisiteFor,
		Weight:   0.8,
		Evidence: PatternEvidence("setup.*before", "setup before"),
	}

	inv := edge.Inverted()
	assert.Equal(t, "b", inv.SourceID)
	assert.Equal(t, "a", inv.TargetID)
	assert.Equal(t, RelationDependsOn, inv.Kind)
	assert.Equal(t, edge.Weight, inv.Weight)
	assert.Equal(t, edge.Evidence, inv.Evidence)

	// Symmetric kinds mirror with the same kind and weight
	sym := RelationshipEdge{SourceID: "a", TargetID: "b", Kind: RelationSimilarTo, Weight: 0.5}
	mirrored := sym.Inverted()
	assert.Equal(t, RelationSimilarTo, mirrored.Kind)
	assert.Equal(t, sym.Weight, mirrored.Weight)
}

func TestRelationshipEdge_Validate(t *testing.T) {
	tests := []struct {
		name    string
		edge    RelationshipEdge
		wantErr error
	}{
		{
			name: "valid",
			edge: RelationshipEdge{SourceID: "a", TargetID: "b", Kind: RelationSimilarTo, Weight: 0.5},
		},
		{
			name:    "missing source",
			edge:    RelationshipEdge{TargetID: "b", Kind: RelationSimilarTo},
			wantErr: ErrMissingElementID,
		},
		{
			name:    "unknown kind",
			edge:    RelationshipEdge{SourceID: "a", TargetID: "b", Kind: RelationKind("bogus")},
			wantErr: ErrUnknownRelationKind,
		},
		{
			name:    "weight out of range",
			edge:    RelationshipEdge{SourceID: "a", TargetID: "b", Kind: RelationSimilarTo, Weight: 1.5},
			wantErr: ErrScoreOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edge.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCapabilityIndex_Queries(t *testing.T) {
	idx := &CapabilityIndex{
		Elements: map[string]*IndexedElement{
			"a": {
				Record:  ElementRecord{ID: "a", ElementType: ElementSkill},
				Profile: SemanticProfile{ElementID: "a", Entropy: 2.0},
				OutboundEdges: []RelationshipEdge{
					{SourceID: "a", TargetID: "b", Kind: RelationSimilarTo, Weight: 0.9},
				},
			},
		},
		ActionTriggerMap: TriggerMap{"debug": {"a"}},
	}

	edges, err := idx.GetRelationships("a")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "b", edges[0].TargetID)

	_, err = idx.GetRelationships("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"a"}, idx.GetByActionTrigger("debug"))
	assert.Empty(t, idx.GetByActionTrigger("unknown-verb"))

	profile, err := idx.GetSemanticProfile("a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, profile.Entropy)

	_, err = idx.GetSemanticProfile("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
