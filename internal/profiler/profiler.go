package profiler

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/surgebase/porter2"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// tokenRegex is compiled once at package initialization for efficient tokenization
var tokenRegex = regexp.MustCompile(`[^a-z0-9_-]+`)

// Config contains configuration for the profiler
type Config struct {
	// StemTokens enables Porter2 stemming so word forms collapse into a
	// single term (debugging, debugged -> debug). Off by default because
	// stemming changes entropy values and downstream thresholds are tuned
	// for raw terms.
	StemTokens bool

	// MinTokenLength drops tokens shorter than this (default: 2)
	MinTokenLength int

	// StemMinLength skips stemming for tokens shorter than this (default: 4)
	StemMinLength int
}

// Profiler computes lexical profiles for element records. Profile is a pure
// function of its input: identical text always yields an identical profile,
// which keeps builds reproducible.
type Profiler struct {
	stemTokens     bool
	minTokenLength int
	stemMinLength  int
}

// New creates a new Profiler instance
func New(config *Config) *Profiler {
	if config == nil {
		config = &Config{}
	}

	minLen := config.MinTokenLength
	if minLen <= 0 {
		minLen = 2
	}

	stemMin := config.StemMinLength
	if stemMin <= 0 {
		stemMin = 4
	}

	return &Profiler{
		stemTokens:     config.StemTokens,
		minTokenLength: minLen,
		stemMinLength:  stemMin,
	}
}

// Profile tokenizes the record's raw text and computes its semantic profile.
// Degenerate input (empty or all-punctuation text) yields entropy 0 and an
// empty token set rather than an error; downstream scoring treats such
// profiles as low-signal, not invalid.
func (p *Profiler) Profile(record types.ElementRecord) types.SemanticProfile {
	tokens := p.Tokenize(record.RawText)

	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}

	tokenSet := make([]string, 0, len(freq))
	for tok := range freq {
		tokenSet = append(tokenSet, tok)
	}
	sort.Strings(tokenSet)

	return types.SemanticProfile{
		ElementID:       record.ID,
		Entropy:         entropy(tokenSet, freq, len(tokens)),
		TokenSet:        tokenSet,
		UniqueTermCount: len(freq),
		TotalTermCount:  len(tokens),
	}
}

// Tokenize splits text on word boundaries, case-folds, and drops tokens
// below the minimum length. Repeated terms are preserved so callers can
// build frequency tables.
func (p *Profiler) Tokenize(text string) []string {
	lowered := strings.ToLower(text)

	var tokens []string
	for _, tok := range tokenRegex.Split(lowered, -1) {
		if len(tok) < p.minTokenLength {
			continue
		}
		if p.stemTokens && len(tok) >= p.stemMinLength {
			tok = porter2.Stem(tok)
		}
		tokens = append(tokens, tok)
	}

	return tokens
}

// entropy computes Shannon entropy in bits over the term-frequency table.
// H = -sum(p_i * log2(p_i)); zero for empty input, bounded above by
// log2(unique terms). Terms are summed in sorted order: float addition is
// not associative, so ranging over the map directly would make the result
// vary at the ULP level between calls.
func entropy(tokenSet []string, freq map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}

	var h float64
	for _, tok := range tokenSet {
		p := float64(freq[tok]) / float64(total)
		h -= p * math.Log2(p)
	}

	// Guard against -0 from single-term input
	if h <= 0 {
		return 0
	}
	return h
}
