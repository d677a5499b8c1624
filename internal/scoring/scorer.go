package scoring

import (
	"math"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// Thresholds configures the banded score-combination policy. All bands are
// caller-tunable; zero values are replaced with the documented defaults.
type Thresholds struct {
	HighJaccard     float64 // above this, lexical overlap counts as high (default 0.6)
	LowJaccard      float64 // below this, overlap counts as negligible (default 0.1)
	EntropyBandLow  float64 // lower edge of the "substantive content" band (default 4.5)
	EntropyBandHigh float64 // upper edge of the "substantive content" band (default 6.0)
	EntropyLow      float64 // below this, content is stopword-dominated (default 3.0)
	EntropyGap      float64 // max |H_a - H_b| counted as similar magnitude (default 1.0)

	JaccardWeight float64 // blend weight w1 (default 0.7)
	EntropyWeight float64 // blend weight w2 (default 0.3)

	HighConfidenceScore   float64 // high jaccard inside the band (default 0.95)
	SuperficialMatchScore float64 // high jaccard, stopword-level entropy (default 0.2)
	DifferentDomainScore  float64 // similar entropy, no lexical overlap (default 0.1)
}

// DefaultThresholds returns the documented default policy
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighJaccard:           0.6,
		LowJaccard:            0.1,
		EntropyBandLow:        4.5,
		EntropyBandHigh:       6.0,
		EntropyLow:            3.0,
		EntropyGap:            1.0,
		JaccardWeight:         0.7,
		EntropyWeight:         0.3,
		HighConfidenceScore:   0.95,
		SuperficialMatchScore: 0.2,
		DifferentDomainScore:  0.1,
	}
}

func (t *Thresholds) applyDefaults() {
	def := DefaultThresholds()
	if t.HighJaccard == 0 {
		t.HighJaccard = def.HighJaccard
	}
	if t.LowJaccard == 0 {
		t.LowJaccard = def.LowJaccard
	}
	if t.EntropyBandLow == 0 {
		t.EntropyBandLow = def.EntropyBandLow
	}
	if t.EntropyBandHigh == 0 {
		t.EntropyBandHigh = def.EntropyBandHigh
	}
	if t.EntropyLow == 0 {
		t.EntropyLow = def.EntropyLow
	}
	if t.EntropyGap == 0 {
		t.EntropyGap = def.EntropyGap
	}
	if t.JaccardWeight == 0 {
		t.JaccardWeight = def.JaccardWeight
	}
	if t.EntropyWeight == 0 {
		t.EntropyWeight = def.EntropyWeight
	}
	if t.HighConfidenceScore == 0 {
		t.HighConfidenceScore = def.HighConfidenceScore
	}
	if t.SuperficialMatchScore == 0 {
		t.SuperficialMatchScore = def.SuperficialMatchScore
	}
	if t.DifferentDomainScore == 0 {
		t.DifferentDomainScore = def.DifferentDomainScore
	}
}

// Scorer computes pairwise relevance scores, consulting the cache before
// computing and writing through on miss. Scoring is symmetric by
// construction: score(A,B) == score(B,A) for every input.
type Scorer struct {
	thresholds Thresholds
	cache      *Cache // nil disables caching
	buildTick  uint64
}

// NewScorer creates a new Scorer. A nil thresholds pointer selects the
// defaults; a nil cache disables caching entirely, which must not change
// any computed score.
func NewScorer(thresholds *Thresholds, cache *Cache) *Scorer {
	t := Thresholds{}
	if thresholds != nil {
		t = *thresholds
	}
	t.applyDefaults()

	return &Scorer{
		thresholds: t,
		cache:      cache,
	}
}

// BeginBuild stamps subsequent scores with the build's logical tick
func (s *Scorer) BeginBuild(tick uint64) {
	s.buildTick = tick
}

// Score returns the pair score for two elements plus whether it came from
// the cache. The element order does not matter.
func (s *Scorer) Score(recA, recB types.ElementRecord, profA, profB types.SemanticProfile) (types.PairScore, bool) {
	pairID := PairID(recA.ID, recB.ID)

	if s.cache != nil {
		if cached, ok := s.cache.Get(pairID); ok {
			return cached, true
		}
	}

	score := s.compute(pairID, recA, recB, profA, profB)

	if s.cache != nil {
		s.cache.Put(score)
	}

	return score, false
}

func (s *Scorer) compute(pairID string, recA, recB types.ElementRecord, profA, profB types.SemanticProfile) types.PairScore {
	jaccard := pairJaccard(recA, recB, profA, profB)
	entropyMatch := entropyMatch(profA.Entropy, profB.Entropy)

	return types.PairScore{
		PairID:        pairID,
		Jaccard:       jaccard,
		EntropyMatch:  entropyMatch,
		CombinedScore: s.combine(jaccard, profA.Entropy, profB.Entropy, entropyMatch),
		ComputedAt:    s.buildTick,
	}
}

// combine applies the banded policy, falling back to a weighted blend when
// no band matches.
func (s *Scorer) combine(jaccard, entropyA, entropyB, entropyMatch float64) float64 {
	t := s.thresholds
	minH := math.Min(entropyA, entropyB)
	maxH := math.Max(entropyA, entropyB)

	switch {
	case jaccard > t.HighJaccard && minH >= t.EntropyBandLow && maxH <= t.EntropyBandHigh:
		// Strong overlap over substantive vocabulary
		return t.HighConfidenceScore

	case jaccard > t.HighJaccard && minH < t.EntropyLow:
		// Overlap exists but the shared vocabulary is stopword-level
		return t.SuperficialMatchScore

	case jaccard < t.LowJaccard && maxH > 0 && maxH-minH <= t.EntropyGap:
		// Comparable information density with no lexical overlap:
		// likely different domains
		return t.DifferentDomainScore

	default:
		return clamp01(t.JaccardWeight*jaccard + t.EntropyWeight*entropyMatch)
	}
}

// pairJaccard picks the comparison sets: curated keyword and trigger sets
// when both elements carry any, otherwise the full token sets from the
// profiles. Both choices are order-independent.
func pairJaccard(recA, recB types.ElementRecord, profA, profB types.SemanticProfile) float64 {
	setA := curatedSet(recA)
	setB := curatedSet(recB)
	if len(setA) > 0 && len(setB) > 0 {
		return Jaccard(setA, setB)
	}
	return Jaccard(profA.TokenSet, profB.TokenSet)
}

func curatedSet(rec types.ElementRecord) []string {
	out := make([]string, 0, len(rec.Keywords)+len(rec.ActionTriggers))
	out = append(out, rec.Keywords...)
	out = append(out, rec.ActionTriggers...)
	return out
}

// Jaccard computes |A ∩ B| / |A ∪ B| over two string sets. Duplicates in
// either input are ignored. Two empty sets yield 0, not NaN.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}

	intersection := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// entropyMatch measures how close two entropy values are on a [0,1] scale.
// Identical entropies score 1; degenerate (both-zero) input scores 0 so
// empty elements reduce confidence instead of inflating it.
func entropyMatch(a, b float64) float64 {
	maxH := math.Max(a, b)
	if maxH == 0 {
		return 0
	}
	return clamp01(1 - math.Abs(a-b)/maxH)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
