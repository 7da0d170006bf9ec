package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/david/bid-monitor/internal/models"
	"go.uber.org/zap"
)

// ErrRefreshInProgress is returned when a refresh is requested while another is in flight.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// DefaultResetDelay is how long the refresh trigger shows its outcome before it is ready again.
const DefaultResetDelay = 2 * time.Second

// Backend is the bid API the controller reads from.
type Backend interface {
	FetchBids(ctx context.Context) (*models.BidsResponse, error)
	Refresh(ctx context.Context) (*models.RefreshResponse, error)
}

// RefreshState is the state of the refresh trigger.
type RefreshState string

const (
	RefreshReady     RefreshState = "ready"
	RefreshRunning   RefreshState = "refreshing"
	RefreshSucceeded RefreshState = "refreshed"
	RefreshFailed    RefreshState = "failed"
)

// Label is the trigger text for the state.
func (s RefreshState) Label() string {
	switch s {
	case RefreshRunning:
		return "⏳ Refreshing..."
	case RefreshSucceeded:
		return "✅ Refreshed!"
	case RefreshFailed:
		return "❌ Error"
	default:
		return "🔄 Refresh"
	}
}

// Disabled reports whether the trigger accepts clicks.
func (s RefreshState) Disabled() bool {
	return s != RefreshReady
}

// Summary holds the counters shown above the results.
type Summary struct {
	Total      int
	Municipal  int
	County     int
	State      int
	LastUpdate string
}

// View is a consistent snapshot of the controller for rendering. Bids is the filtered subset
// for Search and Type; it is private to the caller.
type View struct {
	Bids       []models.Bid
	Search     string
	Type       string
	Summary    Summary
	LoadFailed bool
	Refresh    RefreshState
}

// Controller owns the full bid list and its counters and wires them to the backend. Filter
// state belongs to each View, so concurrent callers never see each other's search.
type Controller struct {
	backend    Backend
	logger     *zap.Logger
	now        func() time.Time
	resetDelay time.Duration

	mu         sync.Mutex
	allBids    []models.Bid
	summary    Summary
	loadFailed bool
	refresh    RefreshState
	refreshGen int
}

type Option func(*Controller)

// WithClock overrides the time source used for export file names.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithResetDelay overrides how long the refresh outcome stays visible.
func WithResetDelay(d time.Duration) Option {
	return func(c *Controller) { c.resetDelay = d }
}

func NewController(backend Backend, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		backend:    backend,
		logger:     logger,
		now:        time.Now,
		resetDelay: DefaultResetDelay,
		refresh:    RefreshReady,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the bid collection and replaces the full list. Views taken afterwards start
// from the new list. On failure the list is left as it was.
func (c *Controller) Load(ctx context.Context) error {
	resp, err := c.backend.FetchBids(ctx)
	if err != nil {
		c.logger.Error("error loading bids", zap.Error(err))
		c.mu.Lock()
		c.loadFailed = true
		c.mu.Unlock()
		return fmt.Errorf("load bids: %w", err)
	}

	bids := make([]models.Bid, len(resp.Bids))
	copy(bids, resp.Bids)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.allBids = bids
	c.loadFailed = false

	stats := models.CountByType(bids)
	total := resp.Count
	if total == 0 {
		total = len(bids)
	}
	c.summary.Total = total
	c.summary.Municipal = stats.Municipal
	c.summary.County = stats.County
	c.summary.State = stats.State
	if resp.LastUpdate != nil && !resp.LastUpdate.IsZero() {
		c.summary.LastUpdate = FormatTimestamp(resp.LastUpdate.Time)
	}

	c.logger.Info("bids loaded", zap.Int("count", len(bids)))
	return nil
}

// ApplyFilter returns a snapshot whose bids are the full list narrowed by search and type.
// An empty type filter means "all". It never refetches.
func (c *Controller) ApplyFilter(search, typeFilter string) View {
	if typeFilter == "" {
		typeFilter = TypeAll
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return View{
		Bids:       Filter(c.allBids, search, typeFilter),
		Search:     search,
		Type:       typeFilter,
		Summary:    c.summary,
		LoadFailed: c.loadFailed,
		Refresh:    c.refresh,
	}
}

// Refresh asks the backend to regenerate its data and reloads on success. Only one refresh
// runs at a time; the trigger shows the outcome for the reset delay before becoming ready.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.refresh == RefreshRunning {
		c.mu.Unlock()
		return ErrRefreshInProgress
	}
	c.refresh = RefreshRunning
	c.refreshGen++
	gen := c.refreshGen
	c.mu.Unlock()

	err := c.runRefresh(ctx)
	outcome := RefreshSucceeded
	if err != nil {
		c.logger.Error("error refreshing", zap.Error(err))
		outcome = RefreshFailed
	}

	c.mu.Lock()
	c.refresh = outcome
	c.mu.Unlock()
	time.AfterFunc(c.resetDelay, func() { c.resetRefresh(gen) })

	return err
}

func (c *Controller) runRefresh(ctx context.Context) error {
	if _, err := c.backend.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return c.Load(ctx)
}

// resetRefresh returns the trigger to ready unless a newer refresh has started since gen.
func (c *Controller) resetRefresh(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.refreshGen && c.refresh != RefreshRunning {
		c.refresh = RefreshReady
	}
}

// Export serializes the bids of a view, so the file matches what was rendered for it.
func (c *Controller) Export(view View) (*Export, error) {
	return ExportCSV(view.Bids, c.now())
}

// View returns an unfiltered snapshot.
func (c *Controller) View() View {
	return c.ApplyFilter("", TypeAll)
}
