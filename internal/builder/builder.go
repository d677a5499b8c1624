package builder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jtallon/capindex-mcp/internal/codec"
	"github.com/jtallon/capindex-mcp/internal/discovery"
	"github.com/jtallon/capindex-mcp/internal/lease"
	"github.com/jtallon/capindex-mcp/internal/planner"
	"github.com/jtallon/capindex-mcp/internal/profiler"
	"github.com/jtallon/capindex-mcp/internal/scoring"
	"github.com/jtallon/capindex-mcp/pkg/types"
)

// State is the builder's lifecycle phase. Transitions run strictly forward
// through the build pipeline; any phase can fall into StateFailed, which
// always releases the index lease.
type State string

const (
	StateIdle           State = "idle"
	StateAcquiringLease State = "acquiring_lease"
	StateProfiling      State = "profiling"
	StatePlanning       State = "planning"
	StateScoring        State = "scoring"
	StateDiscovering    State = "discovering_relationships"
	StatePersisting     State = "persisting"
	StateFailed         State = "failed"
)

// DefaultWorkers is the profiling/scoring pool size
const DefaultWorkers = 4

// ElementLister enumerates the content elements the index is built from.
// The builder never mutates element content.
type ElementLister interface {
	ListElements(ctx context.Context) ([]types.ElementRecord, error)
}

// Config contains configuration for the Builder
type Config struct {
	// IndexPath is where the YAML index document lives
	IndexPath string

	// Workers sizes the profiling and scoring pools (default: 4)
	Workers int

	// WaitForLease blocks lease acquisition until the holder releases or
	// the lease manager's timeout elapses; false fails fast
	WaitForLease bool

	// CacheCapacity bounds the pair-score cache (default: 1000)
	CacheCapacity int

	// Planner, Thresholds and Discovery tune the corresponding stages;
	// nil selects each stage's defaults
	Planner    *planner.Config
	Thresholds *scoring.Thresholds
	Discovery  *discovery.Config

	// Leases overrides lease timing, mainly for tests
	Leases *lease.Config

	// Logger receives state transitions and per-item warnings
	// (default: slog.Default())
	Logger *slog.Logger
}

// Builder runs the whole index pipeline: enumerate elements, profile,
// plan comparisons, score, discover relationships, persist. One Builder
// runs one build at a time; cross-process exclusion is the lease's job.
type Builder struct {
	store      ElementLister
	profiler   *profiler.Profiler
	planner    *planner.Planner
	scorer     *scoring.Scorer
	cache      *scoring.Cache
	discoverer *discovery.Discoverer
	codec      *codec.Codec
	leases     *lease.Manager

	indexPath    string
	workers      int
	waitForLease bool
	log          *slog.Logger

	buildMu sync.Mutex // serializes Build within this process

	mu         sync.Mutex
	state      State
	failReason string
	buildTick  uint64
	lastStats  *types.BuildStats
}

// New creates a new Builder
func New(store ElementLister, config *Config) (*Builder, error) {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}

	if store == nil {
		return nil, fmt.Errorf("builder: nil element store")
	}
	if cfg.IndexPath == "" {
		return nil, fmt.Errorf("builder: index path is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = scoring.DefaultCacheCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cache, err := scoring.NewCache(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}

	return &Builder{
		store:        store,
		profiler:     profiler.New(nil),
		planner:      planner.New(cfg.Planner),
		scorer:       scoring.NewScorer(cfg.Thresholds, cache),
		cache:        cache,
		discoverer:   discovery.New(cfg.Discovery),
		codec:        codec.New(&codec.Config{Logger: cfg.Logger}),
		leases:       lease.NewManager(cfg.Leases),
		indexPath:    cfg.IndexPath,
		workers:      cfg.Workers,
		waitForLease: cfg.WaitForLease,
		log:          cfg.Logger,
		state:        StateIdle,
	}, nil
}

// State returns the builder's current lifecycle phase
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureReason returns the reason for the last failure, empty when the
// builder is not in StateFailed
func (b *Builder) FailureReason() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateFailed {
		return ""
	}
	return b.failReason
}

// LastStats returns the stats of the most recent successful build
func (b *Builder) LastStats() *types.BuildStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastStats == nil {
		return nil
	}
	stats := *b.lastStats
	return &stats
}

func (b *Builder) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.failReason = ""
	b.mu.Unlock()
	b.log.Debug("builder state", "state", string(s))
}

func (b *Builder) fail(reason string, err error) error {
	b.mu.Lock()
	b.state = StateFailed
	b.failReason = reason
	b.mu.Unlock()
	b.log.Error("build failed", "reason", reason, "error", err)
	return err
}

// BuildOptions tunes one build invocation
type BuildOptions struct {
	// WaitForLease blocks on a held lease instead of failing fast
	WaitForLease bool
}

// Build runs one full index build with the configured lease behavior
func (b *Builder) Build(ctx context.Context) (*types.CapabilityIndex, error) {
	return b.BuildWith(ctx, BuildOptions{WaitForLease: b.waitForLease})
}

// BuildWith runs one full index build and persists the result. A deadline
// or cancellation that lands during scoring does not fail the build: the
// comparison plan is cut short and the index is persisted with
// completeness=partial. Lease contention surfaces as lease.ErrLockTimeout
// and is retryable by the caller.
func (b *Builder) BuildWith(ctx context.Context, opts BuildOptions) (*types.CapabilityIndex, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	start := time.Now()

	b.setState(StateAcquiringLease)
	held, err := b.leases.Acquire(ctx, b.indexPath, lease.AcquireOptions{Wait: opts.WaitForLease})
	if err != nil {
		return nil, b.fail("lease acquisition", err)
	}
	// Released on every exit path, including panics in later stages
	defer func() { _ = held.Release() }()

	all, err := b.store.ListElements(ctx)
	if err != nil {
		return nil, b.fail("element enumeration", fmt.Errorf("cannot list elements: %w", err))
	}

	var warnings []string
	records := make([]types.ElementRecord, 0, len(all))
	for _, rec := range all {
		if err := rec.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped element %q: %v", rec.ID, err))
			b.log.Warn("skipping invalid element", "id", rec.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	skipped := len(all) - len(records)

	b.setState(StateProfiling)
	profiles := b.profileAll(records)

	b.setState(StatePlanning)
	budget := b.planner.Plan(len(records))
	contentHash := scoring.ContentHash(records)
	pairs := b.planner.SelectPairs(records, budget, int64(contentHash))

	b.setState(StateScoring)
	b.mu.Lock()
	b.buildTick++
	tick := b.buildTick
	b.mu.Unlock()
	b.scorer.BeginBuild(tick)
	if b.cache.BeginBuild(contentHash) {
		b.log.Info("element content changed, score cache invalidated")
	}

	scored, hits, misses, partial := b.scoreAll(ctx, records, profiles, pairs)

	b.setState(StateDiscovering)
	triggers := discovery.BuildTriggerMap(records)

	edges := make([]types.RelationshipEdge, 0)
	for _, result := range []discovery.Result{
		b.discoverer.FromScores(scored),
		b.discoverer.FromPatterns(records),
		b.discoverer.FromTriggers(records, triggers),
	} {
		edges = append(edges, result.Edges...)
		warnings = append(warnings, result.Warnings...)
	}
	merged := discovery.Merge(edges)

	completeness := types.CompletenessFull
	if partial {
		completeness = types.CompletenessPartial
		b.log.Warn("deadline reached during scoring, persisting partial index",
			"scored", len(scored), "planned", len(pairs))
	}

	index := b.assemble(records, profiles, merged, triggers)
	index.BuildStats = types.BuildStats{
		Strategy:        budget.Strategy,
		ComparisonsMade: len(scored),
		ElementsIndexed: len(records),
		ElementsSkipped: skipped,
		EdgesCreated:    len(merged),
		CacheHits:       hits,
		CacheMisses:     misses,
		Completeness:    completeness,
		DurationMs:      time.Since(start).Milliseconds(),
		Warnings:        warnings,
	}

	b.setState(StatePersisting)
	if err := b.codec.WriteFile(b.indexPath, index); err != nil {
		return nil, b.fail("persistence", err)
	}

	b.mu.Lock()
	stats := index.BuildStats
	b.lastStats = &stats
	b.mu.Unlock()

	b.setState(StateIdle)
	b.log.Info("index build complete",
		"elements", index.BuildStats.ElementsIndexed,
		"comparisons", index.BuildStats.ComparisonsMade,
		"edges", index.BuildStats.EdgesCreated,
		"completeness", string(index.BuildStats.Completeness),
		"duration_ms", index.BuildStats.DurationMs)
	return index, nil
}

// profileAll computes semantic profiles on a bounded worker pool. Profiling
// is pure CPU work and runs to completion; only the scoring stage honors
// the caller's deadline.
func (b *Builder) profileAll(records []types.ElementRecord) map[string]types.SemanticProfile {
	results := make([]types.SemanticProfile, len(records))

	var g errgroup.Group
	semaphore := make(chan struct{}, b.workers)
	for i := range records {
		g.Go(func() error {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i] = b.profiler.Profile(records[i])
			return nil
		})
	}
	_ = g.Wait()

	profiles := make(map[string]types.SemanticProfile, len(records))
	for i, rec := range records {
		profiles[rec.ID] = results[i]
	}
	return profiles
}

// scoreAll runs the comparison plan on a bounded worker pool. Hitting the
// caller's deadline stops scheduling new comparisons; already-running ones
// finish and their scores are kept.
func (b *Builder) scoreAll(ctx context.Context, records []types.ElementRecord, profiles map[string]types.SemanticProfile, pairs []planner.Pair) (scored []discovery.ScoredPair, hits, misses int, partial bool) {
	byID := make(map[string]types.ElementRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	results := make([]discovery.ScoredPair, len(pairs))
	done := make([]bool, len(pairs))
	var hitCount, missCount atomic.Int64
	var cut atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	semaphore := make(chan struct{}, b.workers)
	for i, pair := range pairs {
		if gctx.Err() != nil {
			cut.Store(true)
			break
		}
		g.Go(func() error {
			select {
			case semaphore <- struct{}{}:
			case <-gctx.Done():
				cut.Store(true)
				return nil
			}
			defer func() { <-semaphore }()

			recA, recB := byID[pair.A], byID[pair.B]
			score, hit := b.scorer.Score(recA, recB, profiles[pair.A], profiles[pair.B])
			if hit {
				hitCount.Add(1)
			} else {
				missCount.Add(1)
			}
			results[i] = discovery.ScoredPair{SourceID: pair.A, TargetID: pair.B, Score: score}
			done[i] = true
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; deadline handling is above

	scored = make([]discovery.ScoredPair, 0, len(pairs))
	for i := range results {
		if done[i] {
			scored = append(scored, results[i])
		}
	}
	return scored, int(hitCount.Load()), int(missCount.Load()), cut.Load()
}

// assemble groups merged edges under their source elements
func (b *Builder) assemble(records []types.ElementRecord, profiles map[string]types.SemanticProfile, edges []types.RelationshipEdge, triggers types.TriggerMap) *types.CapabilityIndex {
	elements := make(map[string]*types.IndexedElement, len(records))
	for _, rec := range records {
		elements[rec.ID] = &types.IndexedElement{
			Record:  rec,
			Profile: profiles[rec.ID],
		}
	}

	for _, edge := range edges {
		el, ok := elements[edge.SourceID]
		if !ok {
			continue
		}
		el.OutboundEdges = append(el.OutboundEdges, edge)
	}

	return &types.CapabilityIndex{
		SchemaVersion:    codec.CurrentSchemaVersion,
		GeneratedAt:      time.Now().UTC(),
		Elements:         elements,
		ActionTriggerMap: triggers,
	}
}
