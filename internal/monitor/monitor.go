package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/david/bid-monitor/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrAllSourcesFailed is returned when no source could be scanned; the cache is left as it was.
	ErrAllSourcesFailed = errors.New("all sources failed")
	// ErrNoSources is returned when the registry has no active source.
	ErrNoSources = errors.New("no active sources")
)

// SourceResult is the outcome of scanning one source.
type SourceResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Found int    `json:"found"`
	Error string `json:"error,omitempty"`
}

// RunResult summarises one scan.
type RunResult struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Found      int            `json:"found"`
	Duplicates int            `json:"duplicates"`
	Sources    []SourceResult `json:"sources"`
}

// Failed counts the sources that could not be scanned.
func (r *RunResult) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Error != "" {
			n++
		}
	}
	return n
}

// Monitor scans the registry's sources and caches the bids of the last successful run.
type Monitor struct {
	registry    *Registry
	scraper     Scraper
	logger      *zap.Logger
	now         func() time.Time
	sourceDelay time.Duration

	runMu sync.Mutex

	mu         sync.RWMutex
	bids       []models.Bid
	lastUpdate *time.Time
	lastRun    *RunResult
	looping    bool
}

type Option func(*Monitor)

// WithClock overrides the time source used for posted dates and run timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithSourceDelay sets the pause between consecutive sources.
func WithSourceDelay(d time.Duration) Option {
	return func(m *Monitor) { m.sourceDelay = d }
}

func New(registry *Registry, scraper Scraper, logger *zap.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		registry:    registry,
		scraper:     scraper,
		logger:      logger,
		now:         time.Now,
		sourceDelay: 2 * time.Second,
		bids:        []models.Bid{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run scans every active source in order and replaces the cache with the de-duplicated result.
// Concurrent calls are serialised. A source that fails is logged and skipped.
func (m *Monitor) Run(ctx context.Context) (*RunResult, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	sources := m.registry.ActiveSources()
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	started := m.now()
	result := &RunResult{
		RunID:     uuid.New().String()[:8],
		StartedAt: started,
		Sources:   make([]SourceResult, 0, len(sources)),
	}
	log := m.logger.With(zap.String("run_id", result.RunID))
	log.Info("scan started", zap.Int("sources", len(sources)))

	var found []models.Bid
	for i, src := range sources {
		if i > 0 && m.sourceDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("scan %s: %w", result.RunID, ctx.Err())
			case <-time.After(m.sourceDelay):
			}
		}

		sr := SourceResult{ID: src.ID, Name: src.Name}
		doc, err := m.scraper.Scrape(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("scan %s: %w", result.RunID, ctx.Err())
			}
			log.Warn("source failed", zap.String("source", src.ID), zap.Error(err))
			sr.Error = err.Error()
			result.Sources = append(result.Sources, sr)
			continue
		}

		bids := ExtractBids(doc, src, m.registry.Keywords, started)
		sr.Found = len(bids)
		log.Info("source scanned", zap.String("source", src.ID), zap.Int("found", sr.Found))
		result.Sources = append(result.Sources, sr)
		found = append(found, bids...)
	}

	result.FinishedAt = m.now()
	if result.Failed() == len(sources) {
		log.Error("scan failed", zap.Error(ErrAllSourcesFailed))
		m.recordRun(result)
		return result, ErrAllSourcesFailed
	}

	unique := Deduplicate(found)
	result.Found = len(unique)
	result.Duplicates = len(found) - len(unique)

	m.mu.Lock()
	m.bids = unique
	finished := result.FinishedAt
	m.lastUpdate = &finished
	m.lastRun = result
	m.mu.Unlock()

	log.Info("scan complete",
		zap.Int("found", result.Found),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("failed_sources", result.Failed()))
	return result, nil
}

func (m *Monitor) recordRun(result *RunResult) {
	m.mu.Lock()
	m.lastRun = result
	m.mu.Unlock()
}

// Loop runs a scan immediately and then every interval until ctx is cancelled.
func (m *Monitor) Loop(ctx context.Context, interval time.Duration) {
	m.setLooping(true)
	defer m.setLooping(false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := m.Run(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("scheduled scan failed", zap.Error(err))
		}
		m.logger.Info("next scan scheduled", zap.Duration("in", interval))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) setLooping(v bool) {
	m.mu.Lock()
	m.looping = v
	m.mu.Unlock()
}

// Active reports whether the periodic loop is running.
func (m *Monitor) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.looping
}

// Snapshot returns a copy of the cached bids and the time of the last successful scan.
func (m *Monitor) Snapshot() ([]models.Bid, *time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bids := make([]models.Bid, len(m.bids))
	copy(bids, m.bids)
	if m.lastUpdate == nil {
		return bids, nil
	}
	ts := *m.lastUpdate
	return bids, &ts
}

// Stats counts the cached bids per type.
func (m *Monitor) Stats() models.Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.CountByType(m.bids)
}

// LastRun returns the most recent run, successful or not.
func (m *Monitor) LastRun() *RunResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRun
}

// Keywords exposes the registry's keyword list.
func (m *Monitor) Keywords() []string {
	return m.registry.Keywords
}

// ActiveSources exposes the sources that take part in scans.
func (m *Monitor) ActiveSources() []SourceConfig {
	return m.registry.ActiveSources()
}
