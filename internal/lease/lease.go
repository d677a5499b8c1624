package lease

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrLockTimeout is returned when a lease could not be acquired within the
// configured window. It is caller-retryable; the manager never retries a
// whole acquisition on its own.
var ErrLockTimeout = errors.New("lease: acquisition timed out")

// Default timings. The heartbeat runs at a quarter of the staleness timeout
// so a healthy owner refreshes well before its lease can be reclaimed.
const (
	DefaultTimeout      = 60 * time.Second
	DefaultPollInterval = 100 * time.Millisecond

	lockSuffix  = ".lock"
	flockSuffix = ".flock"
)

// record is the sidecar lock document. Ownership is decided purely by token
// and heartbeat comparison: PID-based liveness checks are unreliable across
// containers and platforms and are deliberately absent.
type record struct {
	OwnerToken  string    `json:"owner_token"`
	AcquiredAt  time.Time `json:"acquired_at"`
	HeartbeatAt time.Time `json:"heartbeat_at"`
	TimeoutMs   int64     `json:"timeout_ms"`
}

func (r *record) stale(now time.Time, fallback time.Duration) bool {
	timeout := time.Duration(r.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = fallback
	}
	return now.Sub(r.HeartbeatAt) > timeout
}

// Config contains configuration for the lease manager
type Config struct {
	// Timeout bounds both how long Acquire waits for a busy lease and how
	// old a heartbeat may be before the lease counts as abandoned
	// (default: 60s)
	Timeout time.Duration

	// HeartbeatInterval is how often a held lease refreshes its heartbeat
	// (default: Timeout / 4)
	HeartbeatInterval time.Duration

	// PollInterval is how often a blocked Acquire re-checks the lock
	// (default: 100ms)
	PollInterval time.Duration

	// Logger receives informational events such as stale-lease reclaims
	// (default: slog.Default())
	Logger *slog.Logger
}

// AcquireOptions selects the blocking behavior of one Acquire call
type AcquireOptions struct {
	// Wait blocks until the lease frees up or the timeout elapses.
	// When false, a busy lease fails fast with ErrLockTimeout.
	Wait bool
}

// Manager hands out advisory file leases. A lease guards a resource path;
// at most one non-stale lease exists per path at any time. The short
// read-modify-write of the sidecar record is serialized through an OS file
// lock, so two processes deciding ownership at once cannot interleave.
type Manager struct {
	timeout           time.Duration
	heartbeatInterval time.Duration
	pollInterval      time.Duration
	log               *slog.Logger
}

// NewManager creates a new lease Manager
func NewManager(config *Config) *Manager {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = cfg.Timeout / 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Manager{
		timeout:           cfg.Timeout,
		heartbeatInterval: cfg.HeartbeatInterval,
		pollInterval:      cfg.PollInterval,
		log:               cfg.Logger,
	}
}

// Lease is a held advisory lease. Release is idempotent and must be called
// (typically via defer) on every code path once acquired.
type Lease struct {
	resourcePath string
	token        string
	acquiredAt   time.Time
	manager      *Manager

	releaseOnce sync.Once
	stop        chan struct{}
	done        chan struct{}
}

// Token returns the lease's owner token
func (l *Lease) Token() string { return l.token }

// ResourcePath returns the path the lease guards
func (l *Lease) ResourcePath() string { return l.resourcePath }

// Acquire obtains the lease for resourcePath. A stale lease (heartbeat older
// than its timeout) is forcibly reclaimed. A live lease held elsewhere makes
// Acquire poll until the manager timeout (opts.Wait) or fail fast.
// Cancelling ctx aborts the wait with the context's error.
func (m *Manager) Acquire(ctx context.Context, resourcePath string, opts AcquireOptions) (*Lease, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(m.timeout)

	for {
		claimed, err := m.tryClaim(resourcePath, token)
		if err != nil {
			return nil, err
		}
		if claimed {
			lease := &Lease{
				resourcePath: resourcePath,
				token:        token,
				acquiredAt:   time.Now(),
				manager:      m,
				stop:         make(chan struct{}),
				done:         make(chan struct{}),
			}
			go lease.heartbeatLoop()
			return lease, nil
		}

		if !opts.Wait {
			return nil, fmt.Errorf("lease for %s is held: %w", resourcePath, ErrLockTimeout)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lease for %s not released within %v: %w", resourcePath, m.timeout, ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

// tryClaim performs one ownership decision under the OS file lock
func (m *Manager) tryClaim(resourcePath, token string) (bool, error) {
	fl := flock.New(resourcePath + flockSuffix)
	if err := fl.Lock(); err != nil {
		return false, fmt.Errorf("cannot acquire lock guard for %s: %w", resourcePath, err)
	}
	defer func() { _ = fl.Unlock() }()

	now := time.Now()
	existing, err := readRecord(lockPath(resourcePath))
	if err != nil {
		return false, err
	}

	if existing != nil && !existing.stale(now, m.timeout) {
		return false, nil
	}

	if existing != nil {
		m.log.Info("stale lease reclaimed",
			"resource", resourcePath,
			"previous_owner", existing.OwnerToken,
			"heartbeat_age", now.Sub(existing.HeartbeatAt).String())
	}

	rec := record{
		OwnerToken:  token,
		AcquiredAt:  now,
		HeartbeatAt: now,
		TimeoutMs:   m.timeout.Milliseconds(),
	}
	if err := writeRecord(lockPath(resourcePath), rec); err != nil {
		return false, err
	}
	return true, nil
}

// heartbeatLoop refreshes the lease's heartbeat until released. If the
// record no longer carries our token (the lease was reclaimed after a long
// stall) the loop stops refreshing and logs the loss.
func (l *Lease) heartbeatLoop() {
	defer close(l.done)

	ticker := time.NewTicker(l.manager.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if !l.refreshHeartbeat() {
				return
			}
		}
	}
}

func (l *Lease) refreshHeartbeat() bool {
	fl := flock.New(l.resourcePath + flockSuffix)
	if err := fl.Lock(); err != nil {
		l.manager.log.Warn("heartbeat skipped: lock guard unavailable", "resource", l.resourcePath, "error", err)
		return true
	}
	defer func() { _ = fl.Unlock() }()

	existing, err := readRecord(lockPath(l.resourcePath))
	if err != nil || existing == nil || existing.OwnerToken != l.token {
		l.manager.log.Warn("lease ownership lost", "resource", l.resourcePath, "token", l.token)
		return false
	}

	existing.HeartbeatAt = time.Now()
	if err := writeRecord(lockPath(l.resourcePath), *existing); err != nil {
		l.manager.log.Warn("heartbeat write failed", "resource", l.resourcePath, "error", err)
	}
	return true
}

// Release gives the lease back. It is idempotent: double release is a
// no-op, and releasing a lease that was reclaimed while stale only removes
// the record if we still own it.
func (l *Lease) Release() error {
	var releaseErr error
	l.releaseOnce.Do(func() {
		close(l.stop)
		<-l.done

		fl := flock.New(l.resourcePath + flockSuffix)
		if err := fl.Lock(); err != nil {
			releaseErr = fmt.Errorf("cannot acquire lock guard for release: %w", err)
			return
		}
		defer func() { _ = fl.Unlock() }()

		existing, err := readRecord(lockPath(l.resourcePath))
		if err != nil {
			releaseErr = err
			return
		}
		if existing == nil || existing.OwnerToken != l.token {
			// Someone reclaimed the lease; their record is not ours to remove
			return
		}

		if err := os.Remove(lockPath(l.resourcePath)); err != nil && !os.IsNotExist(err) {
			releaseErr = fmt.Errorf("cannot remove lock record: %w", err)
		}
	})
	return releaseErr
}

func lockPath(resourcePath string) string {
	return resourcePath + lockSuffix
}

// readRecord loads the sidecar record, returning nil when absent or
// unreadable garbage (a torn record counts as reclaimable).
func readRecord(path string) (*record, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read lock record %s: %w", path, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

// writeRecord stores the record atomically so a concurrent reader never
// observes a torn document.
func writeRecord(path string, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".lease-*")
	if err != nil {
		return fmt.Errorf("cannot create temp lock record: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot write lock record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot publish lock record: %w", err)
	}
	return nil
}
