package planner

import (
	"math/rand"
	"sort"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// Pair identifies one planned comparison. A is always the lexically smaller
// id so a pair has exactly one representation.
type Pair struct {
	A string
	B string
}

func makePair(a, b string) Pair {
	if a <= b {
		return Pair{A: a, B: b}
	}
	return Pair{A: b, B: a}
}

// SelectPairs turns a budget into the concrete comparison plan. The full
// strategy enumerates every pair in id order up to the budget. The sampled
// strategy fills the keyword-cluster budget by round-robin over keyword
// buckets (largest bucket first) and the cross-type budget by seeded
// rejection sampling over pairs with differing element types. The selection
// order is a heuristic; only the budget totals are contractual. Given the
// same records and seed the plan is deterministic.
func (p *Planner) SelectPairs(records []types.ElementRecord, budget types.BuildBudget, seed int64) []Pair {
	if len(records) < 2 || budget.MaxComparisons == 0 {
		return nil
	}

	if budget.Strategy == types.StrategyFull {
		return fullMatrixPairs(records, budget.MaxComparisons)
	}

	seen := make(map[Pair]struct{})
	pairs := make([]Pair, 0, budget.MaxComparisons)

	pairs = appendClusterPairs(pairs, seen, records, budget.KeywordClusterBudget)
	pairs = appendCrossTypePairs(pairs, seen, records, budget.CrossTypeBudget, seed)

	if len(pairs) > budget.MaxComparisons {
		pairs = pairs[:budget.MaxComparisons]
	}
	return pairs
}

// fullMatrixPairs enumerates every pair of ids in sorted order
func fullMatrixPairs(records []types.ElementRecord, limit int) []Pair {
	ids := sortedIDs(records)

	pairs := make([]Pair, 0, limit)
	for i := 0; i < len(ids) && len(pairs) < limit; i++ {
		for j := i + 1; j < len(ids) && len(pairs) < limit; j++ {
			pairs = append(pairs, Pair{A: ids[i], B: ids[j]})
		}
	}
	return pairs
}

// keywordBucket groups the ids sharing one keyword
type keywordBucket struct {
	keyword string
	ids     []string
	next    int // cursor into the bucket's pair enumeration
}

// appendClusterPairs fills up to budget pairs from keyword buckets,
// round-robin so one giant bucket cannot starve the rest.
func appendClusterPairs(pairs []Pair, seen map[Pair]struct{}, records []types.ElementRecord, budget int) []Pair {
	if budget <= 0 {
		return pairs
	}

	byKeyword := make(map[string][]string)
	for _, rec := range records {
		for _, kw := range rec.Keywords {
			byKeyword[kw] = append(byKeyword[kw], rec.ID)
		}
	}

	buckets := make([]*keywordBucket, 0, len(byKeyword))
	for kw, ids := range byKeyword {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		buckets = append(buckets, &keywordBucket{keyword: kw, ids: ids})
	}

	// Largest buckets first; keyword name breaks ties so the order is stable
	sort.Slice(buckets, func(i, j int) bool {
		if len(buckets[i].ids) != len(buckets[j].ids) {
			return len(buckets[i].ids) > len(buckets[j].ids)
		}
		return buckets[i].keyword < buckets[j].keyword
	})

	used := 0
	for used < budget {
		progressed := false
		for _, bucket := range buckets {
			if used >= budget {
				break
			}
			pair, ok := bucket.nextPair()
			if !ok {
				continue
			}
			progressed = true
			if _, dup := seen[pair]; dup {
				continue
			}
			seen[pair] = struct{}{}
			pairs = append(pairs, pair)
			used++
		}
		if !progressed {
			break
		}
	}
	return pairs
}

// nextPair advances the bucket's cursor through its pair enumeration
func (b *keywordBucket) nextPair() (Pair, bool) {
	n := len(b.ids)
	total := n * (n - 1) / 2
	if b.next >= total {
		return Pair{}, false
	}

	// Map the linear cursor onto the (i,j) upper triangle
	idx := b.next
	b.next++
	for i := 0; i < n-1; i++ {
		rowLen := n - 1 - i
		if idx < rowLen {
			return makePair(b.ids[i], b.ids[i+1+idx]), true
		}
		idx -= rowLen
	}
	return Pair{}, false
}

// appendCrossTypePairs samples pairs across different element types.
// Rejection sampling keeps memory flat regardless of element count; the
// attempt cap bounds the loop when few cross-type pairs exist.
func appendCrossTypePairs(pairs []Pair, seen map[Pair]struct{}, records []types.ElementRecord, budget int, seed int64) []Pair {
	if budget <= 0 {
		return pairs
	}

	sorted := make([]types.ElementRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	rng := rand.New(rand.NewSource(seed))
	used := 0
	attempts := 0
	maxAttempts := budget * 50

	for used < budget && attempts < maxAttempts {
		attempts++
		i := rng.Intn(len(sorted))
		j := rng.Intn(len(sorted))
		if i == j || sorted[i].ElementType == sorted[j].ElementType {
			continue
		}

		pair := makePair(sorted[i].ID, sorted[j].ID)
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
		used++
	}
	return pairs
}

func sortedIDs(records []types.ElementRecord) []string {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	sort.Strings(ids)
	return ids
}
