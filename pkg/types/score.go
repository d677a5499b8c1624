package types

// PairScore is the scored comparison of two elements. The pair key is
// canonical (order-independent) so score(A,B) and score(B,A) share one entry.
type PairScore struct {
	PairID        string  `yaml:"pair_id"`
	Jaccard       float64 `yaml:"jaccard"`        // [0,1]
	EntropyMatch  float64 `yaml:"entropy_match"`  // [0,1]
	CombinedScore float64 `yaml:"combined_score"` // [0,1]

	// ComputedAt is the logical build tick the score was produced in,
	// used for cache bookkeeping across builds.
	ComputedAt uint64 `yaml:"computed_at"`
}

// Validate checks score invariants
func (s *PairScore) Validate() error {
	if s.PairID == "" {
		return ErrMissingPairID
	}
	if s.Jaccard < 0 || s.Jaccard > 1 {
		return ErrScoreOutOfRange
	}
	if s.CombinedScore < 0 || s.CombinedScore > 1 {
		return ErrScoreOutOfRange
	}
	return nil
}
