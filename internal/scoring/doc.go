// Package scoring computes pairwise relevance scores between elements.
//
// The score of a pair combines Jaccard set similarity with the entropy
// profile of both elements. A banded policy handles the documented edge
// cases before falling back to a weighted blend:
//
//   - high jaccard over substantive vocabulary (entropy inside the
//     configured band) scores as high confidence (~0.95)
//   - high jaccard over stopword-level vocabulary (entropy below the low
//     threshold) scores as a superficial match (~0.2)
//   - comparable entropy with no lexical overlap scores as different
//     domains (~0.1)
//   - everything else blends w1*jaccard + w2*entropyMatch
//
// Scores are symmetric and cached under a canonical pair id:
//
//	cache, _ := scoring.NewCache(1000)
//	scorer := scoring.NewScorer(nil, cache)
//	score, cacheHit := scorer.Score(recA, recB, profA, profB)
//
// The cache is strictly LRU and invalidated wholesale at the start of a
// build whenever element content changed; it is never a correctness
// dependency.
package scoring
