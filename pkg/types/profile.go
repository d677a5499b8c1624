package types

// SemanticProfile is the lexical fingerprint of one element, recomputed on
// every build. Entropy is Shannon entropy in bits over the element's
// term-frequency distribution; it is zero for empty text and bounded above
// by log2 of the unique term count.
type SemanticProfile struct {
	ElementID       string   `yaml:"element_id"`
	Entropy         float64  `yaml:"entropy"`
	TokenSet        []string `yaml:"token_set,omitempty"` // sorted, unique
	UniqueTermCount int      `yaml:"unique_term_count"`
	TotalTermCount  int      `yaml:"total_term_count"`
}

// Empty reports whether the profile was computed from degenerate input
func (p *SemanticProfile) Empty() bool {
	return p.TotalTermCount == 0
}

// Validate checks profile invariants
func (p *SemanticProfile) Validate() error {
	if p.ElementID == "" {
		return ErrMissingElementID
	}
	if p.Entropy < 0 {
		return ErrNegativeEntropy
	}
	if p.UniqueTermCount > p.TotalTermCount {
		return ErrTermCountMismatch
	}
	return nil
}
