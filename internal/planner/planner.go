package planner

import (
	"math"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// Default limits. The hard cap equals the full matrix at the default
// threshold (50*49/2) so raising FullMatrixThreshold alone can never
// reintroduce unbounded comparison counts.
const (
	DefaultFullMatrixThreshold = 50
	DefaultHardCap             = 1225
	DefaultMaxComparisons      = 500
	DefaultKeywordClusterShare = 0.6
	DefaultCrossTypeShare      = 0.4
)

// Config contains configuration for the budget planner
type Config struct {
	FullMatrixThreshold int     // element count at or below which the full matrix is compared
	HardCap             int     // absolute ceiling for the full strategy
	MaxComparisons      int     // total ceiling for the sampled strategy
	KeywordClusterShare float64 // fraction of MaxComparisons for keyword-cluster pairs
	CrossTypeShare      float64 // fraction of MaxComparisons for cross-type pairs
}

func (c *Config) applyDefaults() {
	if c.FullMatrixThreshold <= 0 {
		c.FullMatrixThreshold = DefaultFullMatrixThreshold
	}
	if c.HardCap <= 0 {
		c.HardCap = DefaultHardCap
	}
	if c.MaxComparisons <= 0 {
		c.MaxComparisons = DefaultMaxComparisons
	}
	if c.KeywordClusterShare <= 0 {
		c.KeywordClusterShare = DefaultKeywordClusterShare
	}
	if c.CrossTypeShare <= 0 {
		c.CrossTypeShare = DefaultCrossTypeShare
	}
	// Shares may sum to less than 1 (leaving headroom unused) but never more
	if sum := c.KeywordClusterShare + c.CrossTypeShare; sum > 1 {
		c.KeywordClusterShare /= sum
		c.CrossTypeShare /= sum
	}
}

// Planner derives the comparison budget for a build from the element count.
// The budget totals are a hard contract; how pairs are chosen within them is
// a heuristic owned by the sampler.
type Planner struct {
	config Config
}

// New creates a new Planner instance
func New(config *Config) *Planner {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	cfg.applyDefaults()
	return &Planner{config: cfg}
}

// Plan decides the comparison strategy for n elements. At or below the
// full-matrix threshold every pair is compared, bounded by the hard cap.
// Above it, comparisons are sampled within a fixed ceiling, split between
// keyword-cluster pairs and cross-type pairs.
func (p *Planner) Plan(elementCount int) types.BuildBudget {
	if elementCount <= p.config.FullMatrixThreshold {
		full := elementCount * (elementCount - 1) / 2
		if full < 0 {
			full = 0
		}
		if full > p.config.HardCap {
			full = p.config.HardCap
		}
		return types.BuildBudget{
			Strategy:       types.StrategyFull,
			MaxComparisons: full,
		}
	}

	total := p.config.MaxComparisons
	cluster := int(math.Round(float64(total) * p.config.KeywordClusterShare))
	cross := int(math.Round(float64(total) * p.config.CrossTypeShare))
	if cluster+cross > total {
		cross = total - cluster
	}

	return types.BuildBudget{
		Strategy:             types.StrategySampled,
		MaxComparisons:       total,
		KeywordClusterBudget: cluster,
		CrossTypeBudget:      cross,
	}
}
