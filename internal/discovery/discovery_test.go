package discovery

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

func TestFromScores_EmitsMirroredSimilarEdges(t *testing.T) {
	d := New(nil)

	res := d.FromScores([]ScoredPair{
		{
			SourceID: "a",
			TargetID: "b",
			Score:    types.PairScore{PairID: "a|b", CombinedScore: 0.95},
		},
		{
			SourceID: "c",
			TargetID: "d",
			Score:    types.PairScore{PairID: "c|d", CombinedScore: 0.3}, // below threshold
		},
	})

	require.Len(t, res.Edges, 2)
	forward, mirror := res.Edges[0], res.Edges[1]

	assert.Equal(t, types.RelationSimilarTo, forward.Kind)
	assert.Equal(t, "a", forward.SourceID)
	assert.Equal(t, "b", mirror.SourceID)
	assert.Equal(t, "a", mirror.TargetID)
	assert.Equal(t, forward.Weight, mirror.Weight)
	assert.Equal(t, types.EvidenceScore, forward.Evidence.Type)
	require.NotNil(t, forward.Evidence.Score)
	assert.Equal(t, "a|b", forward.Evidence.Score.PairID)
}

func TestFromScores_MissingIDWarnsAndContinues(t *testing.T) {
	d := New(nil)

	res := d.FromScores([]ScoredPair{
		{SourceID: "", TargetID: "b", Score: types.PairScore{PairID: "?|b", CombinedScore: 0.9}},
		{SourceID: "a", TargetID: "b", Score: types.PairScore{PairID: "a|b", CombinedScore: 0.9}},
	})

	assert.Len(t, res.Warnings, 1)
	assert.Len(t, res.Edges, 2)
}

func TestFromPatterns_DebugRuleWithInverse(t *testing.T) {
	d := New(nil)

	records := []types.ElementRecord{
		{
			ID:          "skill_docker-auth-fix",
			ElementType: types.ElementSkill,
			RawText:     "remediation for docker auth token expiry: rotate credentials and fix login",
		},
		{
			ID:          "memory_docker-auth-incident",
			ElementType: types.ElementMemory,
			RawText:     "docker auth failing in ci since tuesday",
		},
	}

	res := d.FromPatterns(records)

	require.NotEmpty(t, res.Edges)
	var forward, inverse *types.RelationshipEdge
	for i := range res.Edges {
		e := &res.Edges[i]
		if e.Kind == types.RelationHelpsDebug && e.SourceID == "skill_docker-auth-fix" {
			forward = e
		}
		if e.Kind == types.RelationDebuggedBy && e.SourceID == "memory_docker-auth-incident" {
			inverse = e
		}
	}

	require.NotNil(t, forward, "helps_debug edge expected")
	require.NotNil(t, inverse, "debugged_by inverse expected")
	assert.Equal(t, forward.Weight, inverse.Weight)
	assert.Equal(t, types.EvidencePattern, forward.Evidence.Type)
	assert.NotEmpty(t, forward.Evidence.MatchedText)
}

func TestFromPatterns_MalformedRecordSkippedWithWarning(t *testing.T) {
	d := New(nil)

	records := []types.ElementRecord{
		{ID: "", ElementType: types.ElementSkill, RawText: "troubleshoot everything"},
		{ID: "ok", ElementType: types.ElementSkill, RawText: "plain text"},
	}

	res := d.FromPatterns(records)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "skipped")
}

func TestFromPatterns_PanickingRuleSkipsPairOnly(t *testing.T) {
	// A rule with a nil target expression panics at evaluation time
	panicky := PatternRule{
		Name:   "explosive",
		Kind:   types.RelationReferences,
		Weight: 0.5,
		Source: regexp.MustCompile(`.`),
		Target: nil,
	}

	safe := PatternRule{
		Name:   "safe-reference",
		Kind:   types.RelationReferences,
		Weight: 0.5,
		Source: regexp.MustCompile(`see also`),
		Target: regexp.MustCompile(`background`),
	}

	d := New(&Config{Rules: []PatternRule{panicky, safe}})

	records := []types.ElementRecord{
		{ID: "a", ElementType: types.ElementSkill, RawText: "see also the primer"},
		{ID: "b", ElementType: types.ElementMemory, RawText: "background reading"},
	}

	res := d.FromPatterns(records)

	assert.NotEmpty(t, res.Warnings, "panicking rule must be reported")
	for _, w := range res.Warnings {
		assert.Contains(t, w, "explosive")
	}

	// The safe rule still ran
	var found bool
	for _, e := range res.Edges {
		if e.Evidence.Pattern == "safe-reference" {
			found = true
		}
	}
	assert.True(t, found, "remaining rules must keep running")
}

func TestFromPatterns_RespectsPerRuleCap(t *testing.T) {
	d := New(&Config{
		Rules: []PatternRule{{
			Name:   "match-all",
			Kind:   types.RelationReferences,
			Weight: 0.4,
			Source: regexp.MustCompile(`text`),
			Target: regexp.MustCompile(`text`),
		}},
		MaxPairsPerRule: 3,
	})

	records := make([]types.ElementRecord, 0, 10)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		records = append(records, types.ElementRecord{
			ID:          id,
			ElementType: types.ElementMemory,
			RawText:     "text",
		})
	}

	res := d.FromPatterns(records)

	// 3 forward edges plus 3 inverses
	assert.Len(t, res.Edges, 6)
}

func TestBuildTriggerMap(t *testing.T) {
	records := []types.ElementRecord{
		{ID: "b", ActionTriggers: []string{"debug", "deploy"}},
		{ID: "a", ActionTriggers: []string{"debug", "debug", ""}},
		{ID: "", ActionTriggers: []string{"debug"}},
		{ID: "c"},
	}

	triggers := BuildTriggerMap(records)

	assert.Equal(t, []string{"a", "b"}, triggers["debug"])
	assert.Equal(t, []string{"b"}, triggers["deploy"])
	assert.NotContains(t, triggers, "")
}

func TestFromTriggers_LinksSharedVerbs(t *testing.T) {
	d := New(nil)

	records := []types.ElementRecord{
		{ID: "a", ElementType: types.ElementSkill},
		{ID: "b", ElementType: types.ElementPersona},
		{ID: "c", ElementType: types.ElementMemory},
	}
	triggers := types.TriggerMap{
		"debug":  {"a", "b"},
		"deploy": {"c"}, // single element: no link
	}

	res := d.FromTriggers(records, triggers)

	require.Len(t, res.Edges, 2)
	forward, mirror := res.Edges[0], res.Edges[1]
	assert.Equal(t, types.RelationComplements, forward.Kind)
	assert.Equal(t, types.RelationComplements, mirror.Kind)
	assert.Equal(t, forward.Weight, mirror.Weight)
	assert.Equal(t, types.EvidenceTrigger, forward.Evidence.Type)
	assert.Equal(t, "debug", forward.Evidence.Trigger)
}

// FromTriggers must operate purely on the map it is handed. The trigger map
// type has no behavior and no way to reach the builder, so the compile-time
// signature already rules the callback out; this test pins the runtime
// behavior: discovery over a prebuilt map touches nothing else.
func TestFromTriggers_UsesOnlyThePrebuiltMap(t *testing.T) {
	d := New(nil)

	records := []types.ElementRecord{
		{ID: "a", ActionTriggers: []string{"stale-verb"}},
		{ID: "b", ActionTriggers: []string{"stale-verb"}},
	}

	// The map passed forward intentionally disagrees with the records'
	// current triggers; discovery must trust the map, not re-derive it.
	prebuilt := types.TriggerMap{"fresh-verb": {"a", "b"}}

	res := d.FromTriggers(records, prebuilt)

	require.Len(t, res.Edges, 2)
	assert.Equal(t, "fresh-verb", res.Edges[0].Evidence.Trigger)
}

func TestFromTriggers_UnknownElementWarns(t *testing.T) {
	d := New(nil)

	records := []types.ElementRecord{{ID: "a"}}
	triggers := types.TriggerMap{"debug": {"a", "ghost"}}

	res := d.FromTriggers(records, triggers)

	assert.Empty(t, res.Edges)
	assert.NotEmpty(t, res.Warnings)
}

func TestFromTriggers_RespectsPerVerbCap(t *testing.T) {
	d := New(&Config{MaxPairsPerTrigger: 2})

	records := []types.ElementRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	triggers := types.TriggerMap{"debug": {"a", "b", "c", "d"}}

	res := d.FromTriggers(records, triggers)

	assert.Len(t, res.Edges, 4) // 2 pairs, each with inverse
}

func TestMerge_DedupesAndKeepsHighestWeight(t *testing.T) {
	edges := []types.RelationshipEdge{
		{SourceID: "a", TargetID: "b", Kind: types.RelationSimilarTo, Weight: 0.5},
		{SourceID: "a", TargetID: "b", Kind: types.RelationSimilarTo, Weight: 0.9},
		{SourceID: "a", TargetID: "b", Kind: types.RelationComplements, Weight: 0.6},
	}

	merged := Merge(edges)

	require.Len(t, merged, 2)
	for _, e := range merged {
		if e.Kind == types.RelationSimilarTo {
			assert.Equal(t, 0.9, e.Weight)
		}
	}
}

func TestMerge_EveryEdgeRetainsInverse(t *testing.T) {
	d := New(nil)

	records := []types.ElementRecord{
		{ID: "setup", ElementType: types.ElementSkill, RawText: "getting started and setup guide"},
		{ID: "tuning", ElementType: types.ElementSkill, RawText: "advanced performance tuning deep dive"},
	}
	scoreRes := d.FromScores([]ScoredPair{{
		SourceID: "setup",
		TargetID: "tuning",
		Score:    types.PairScore{PairID: "setup|tuning", CombinedScore: 0.8},
	}})
	patternRes := d.FromPatterns(records)

	merged := Merge(append(scoreRes.Edges, patternRes.Edges...))

	index := make(map[string]types.RelationshipEdge)
	for _, e := range merged {
		index[e.SourceID+"|"+e.TargetID+"|"+string(e.Kind)] = e
	}
	for _, e := range merged {
		inv := e.Inverted()
		_, ok := index[inv.SourceID+"|"+inv.TargetID+"|"+string(inv.Kind)]
		assert.True(t, ok, "inverse missing for %s -%s-> %s", e.SourceID, e.Kind, e.TargetID)
	}
}
