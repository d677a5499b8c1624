package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// Default limits keeping pattern and trigger discovery bounded even on
// degenerate inputs (every element matching every rule).
const (
	DefaultSimilarityThreshold = 0.7
	DefaultTriggerLinkWeight   = 0.6
	DefaultMaxPairsPerRule     = 50
	DefaultMaxPairsPerTrigger  = 25
)

// Config contains configuration for the discoverer
type Config struct {
	// SimilarityThreshold is the minimum combined score that turns a
	// scored pair into a similar_to edge (default 0.7)
	SimilarityThreshold float64

	// Rules overrides the built-in pattern rule table
	Rules []PatternRule

	// MaxPairsPerRule caps edges emitted by one pattern rule (default 50)
	MaxPairsPerRule int

	// MaxPairsPerTrigger caps edges emitted for one trigger verb (default 25)
	MaxPairsPerTrigger int
}

// Discoverer turns scored pairs, pattern rules, and the per-build trigger
// map into typed relationship edges. Every directed edge it emits is
// accompanied by its structurally required inverse.
type Discoverer struct {
	similarityThreshold float64
	rules               []PatternRule
	maxPairsPerRule     int
	maxPairsPerTrigger  int
}

// Result carries discovered edges plus per-item warnings. Warnings never
// abort discovery; a record or pair that cannot be processed is skipped.
type Result struct {
	Edges    []types.RelationshipEdge
	Warnings []string
}

// ScoredPair is one compared pair with its score, as produced by the
// scoring stage.
type ScoredPair struct {
	SourceID string
	TargetID string
	Score    types.PairScore
}

// New creates a new Discoverer instance
func New(config *Config) *Discoverer {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}

	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultPatternRules()
	}
	if cfg.MaxPairsPerRule <= 0 {
		cfg.MaxPairsPerRule = DefaultMaxPairsPerRule
	}
	if cfg.MaxPairsPerTrigger <= 0 {
		cfg.MaxPairsPerTrigger = DefaultMaxPairsPerTrigger
	}

	return &Discoverer{
		similarityThreshold: cfg.SimilarityThreshold,
		rules:               cfg.Rules,
		maxPairsPerRule:     cfg.MaxPairsPerRule,
		maxPairsPerTrigger:  cfg.MaxPairsPerTrigger,
	}
}

// FromScores emits similar_to edges (with mirrors) for every scored pair at
// or above the similarity threshold.
func (d *Discoverer) FromScores(scored []ScoredPair) Result {
	var res Result
	for _, sp := range scored {
		if sp.SourceID == "" || sp.TargetID == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("scored pair %q skipped: missing element id", sp.Score.PairID))
			continue
		}
		if sp.Score.CombinedScore < d.similarityThreshold {
			continue
		}

		edge := types.RelationshipEdge{
			SourceID: sp.SourceID,
			TargetID: sp.TargetID,
			Kind:     types.RelationSimilarTo,
			Weight:   sp.Score.CombinedScore,
			Evidence: types.ScoreEvidence(sp.Score),
		}
		res.Edges = append(res.Edges, edge, edge.Inverted())
	}
	return res
}

// FromPatterns runs the rule table over the records. A rule misbehaving on
// one pair (including panicking) skips that pair with a warning and the rest
// of the plan continues.
func (d *Discoverer) FromPatterns(records []types.ElementRecord) Result {
	var res Result

	valid := make([]types.ElementRecord, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("element %q skipped by pattern discovery: %v", rec.ID, err))
			continue
		}
		valid = append(valid, rec)
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].ID < valid[j].ID })

	for _, rule := range d.rules {
		emitted := 0
		for _, src := range valid {
			if emitted >= d.maxPairsPerRule {
				break
			}
			for _, tgt := range valid {
				if emitted >= d.maxPairsPerRule {
					break
				}
				if src.ID == tgt.ID {
					continue
				}

				edge, matched, err := applyRule(rule, src, tgt)
				if err != nil {
					res.Warnings = append(res.Warnings, err.Error())
					continue
				}
				if !matched {
					continue
				}

				res.Edges = append(res.Edges, edge, edge.Inverted())
				emitted++
			}
		}
	}
	return res
}

// applyRule evaluates one rule against one directed pair, converting panics
// into errors so a single bad expression cannot abort the build.
func applyRule(rule PatternRule, src, tgt types.ElementRecord) (edge types.RelationshipEdge, matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = fmt.Errorf("rule %q panicked on pair (%s, %s): %v", rule.Name, src.ID, tgt.ID, r)
		}
	}()

	srcText := strings.ToLower(src.RawText)
	tgtText := strings.ToLower(tgt.RawText)

	srcMatch := rule.Source.FindString(srcText)
	if srcMatch == "" {
		return types.RelationshipEdge{}, false, nil
	}
	if !rule.Target.MatchString(tgtText) {
		return types.RelationshipEdge{}, false, nil
	}

	return types.RelationshipEdge{
		SourceID: src.ID,
		TargetID: tgt.ID,
		Kind:     rule.Kind,
		Weight:   rule.Weight,
		Evidence: types.PatternEvidence(rule.Name, srcMatch),
	}, true, nil
}

// FromTriggers links elements sharing an action-trigger verb. The trigger
// map is an explicit argument computed earlier in the same build: this stage
// must never reach back into the builder or request a fresh index.
func (d *Discoverer) FromTriggers(records []types.ElementRecord, triggers types.TriggerMap) Result {
	var res Result

	known := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			res.Warnings = append(res.Warnings, "element with empty id skipped by trigger discovery")
			continue
		}
		known[rec.ID] = struct{}{}
	}

	verbs := make([]string, 0, len(triggers))
	for verb := range triggers {
		verbs = append(verbs, verb)
	}
	sort.Strings(verbs)

	for _, verb := range verbs {
		ids := triggers[verb]
		if len(ids) < 2 {
			continue
		}

		emitted := 0
		for i := 0; i < len(ids) && emitted < d.maxPairsPerTrigger; i++ {
			for j := i + 1; j < len(ids) && emitted < d.maxPairsPerTrigger; j++ {
				if _, ok := known[ids[i]]; !ok {
					res.Warnings = append(res.Warnings, fmt.Sprintf("trigger %q references unknown element %q", verb, ids[i]))
					break
				}
				if _, ok := known[ids[j]]; !ok {
					res.Warnings = append(res.Warnings, fmt.Sprintf("trigger %q references unknown element %q", verb, ids[j]))
					continue
				}

				edge := types.RelationshipEdge{
					SourceID: ids[i],
					TargetID: ids[j],
					Kind:     types.RelationComplements,
					Weight:   DefaultTriggerLinkWeight,
					Evidence: types.TriggerEvidence(verb),
				}
				res.Edges = append(res.Edges, edge, edge.Inverted())
				emitted++
			}
		}
	}
	return res
}

// BuildTriggerMap collects action-trigger verbs from the records. Elements
// without triggers simply do not appear; an element with an empty id is
// skipped. The result is deterministic: ids under each verb are sorted.
func BuildTriggerMap(records []types.ElementRecord) types.TriggerMap {
	triggers := make(types.TriggerMap)
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		for _, verb := range rec.ActionTriggers {
			if verb == "" {
				continue
			}
			triggers[verb] = append(triggers[verb], rec.ID)
		}
	}

	for verb, ids := range triggers {
		sort.Strings(ids)
		triggers[verb] = dedupeSorted(ids)
	}
	return triggers
}

// Merge de-duplicates edges by (source, target, kind), keeping the highest
// weight, and returns them in deterministic order.
func Merge(edges []types.RelationshipEdge) []types.RelationshipEdge {
	type edgeKey struct {
		source string
		target string
		kind   types.RelationKind
	}

	best := make(map[edgeKey]types.RelationshipEdge, len(edges))
	for _, edge := range edges {
		key := edgeKey{source: edge.SourceID, target: edge.TargetID, kind: edge.Kind}
		if existing, ok := best[key]; !ok || edge.Weight > existing.Weight {
			best[key] = edge
		}
	}

	merged := make([]types.RelationshipEdge, 0, len(best))
	for _, edge := range best {
		merged = append(merged, edge)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].SourceID != merged[j].SourceID {
			return merged[i].SourceID < merged[j].SourceID
		}
		if merged[i].TargetID != merged[j].TargetID {
			return merged[i].TargetID < merged[j].TargetID
		}
		return merged[i].Kind < merged[j].Kind
	})
	return merged
}

func dedupeSorted(ids []string) []string {
	out := ids[:0]
	var prev string
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		out = append(out, id)
		prev = id
	}
	return out
}
