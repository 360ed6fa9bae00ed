package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yegors/flightwatch/internal/avinor"
	"github.com/yegors/flightwatch/pkg/logger"
)

const (
	DefaultUpdateInterval = 3 * time.Minute
	DefaultHomeAirport    = "OSL"
	DefaultRequestTimeout = 20 * time.Second
)

// Config is the poller configuration, fixed for the lifetime of a Service
type Config struct {
	HomeAirport    string
	UpdateInterval time.Duration
	RequestTimeout time.Duration
	Location       *time.Location // time zone that defines "today"; nil means local
	ReportMissing  bool           // emit NotFound instead of omitting unmatched entries
	Flights        []WatchlistEntry
}

// FeedSource retrieves the flight feed for an airport
type FeedSource interface {
	FetchFlights(ctx context.Context, airport string) (*avinor.Feed, error)
}

// Publisher receives every snapshot the service produces
type Publisher interface {
	Publish(snapshot Snapshot) error
}

// Stats describes the poller state
type Stats struct {
	Airport        string     `json:"airport"`
	Running        bool       `json:"running"`
	Cycles         int64      `json:"cycles"`
	Failures       int64      `json:"failures"`
	SkippedTicks   int64      `json:"skipped_ticks"`
	TrackedFlights int        `json:"tracked_flights"`
	LastSuccess    *time.Time `json:"last_success,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastErrorAt    *time.Time `json:"last_error_at,omitempty"`
}

// Service polls the feed on a fixed interval and keeps the latest snapshot
type Service struct {
	config Config
	source FeedSource
	logger *logger.Logger
	now    func() time.Time

	pubMu      sync.RWMutex
	publishers []Publisher

	// Service lifecycle. wg only grows under mu while started is set.
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	mu      sync.Mutex

	// At most one cycle in flight
	busy atomic.Bool

	stateMu     sync.RWMutex
	snapshot    *Snapshot
	cycles      int64
	failures    int64
	skipped     int64
	lastSuccess time.Time
	lastErr     error
	lastErrAt   time.Time
}

// NewService creates a new poller. Zero config values fall back to defaults.
func NewService(cfg Config, source FeedSource, log *logger.Logger, publishers ...Publisher) *Service {
	if cfg.HomeAirport == "" {
		cfg.HomeAirport = DefaultHomeAirport
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Service{
		config:     cfg,
		source:     source,
		publishers: publishers,
		logger:     log.Named("tracker").With(logger.String("airport", cfg.HomeAirport)),
		now:        time.Now,
	}
}

// AddPublisher registers another snapshot consumer
func (s *Service) AddPublisher(p Publisher) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.publishers = append(s.publishers, p)
}

// Config returns the service configuration
func (s *Service) Config() Config {
	return s.config
}

// Start performs an immediate fetch cycle and then one every update interval
// until Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return nil // Already started
	}
	if s.source == nil {
		return fmt.Errorf("tracker: no feed source configured")
	}

	s.logger.Info("Starting flight tracker",
		logger.Int("watchlist_size", len(s.config.Flights)),
		logger.Duration("update_interval", s.config.UpdateInterval))

	if s.cancel != nil {
		// Previous loop ended with its parent context
		s.cancel()
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.runCtx = runCtx
	s.cancel = cancel

	s.started.Store(true)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Cleared before Done so a caller that sees started still holds a count
		defer s.started.Store(false)
		s.pollLoop(runCtx)
	}()

	return nil
}

// Stop cancels the timer and waits for an in-flight cycle to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.logger.Info("Stopping flight tracker")
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.runCtx = nil
	s.started.Store(false)
	s.logger.Info("Flight tracker stopped")
	return nil
}

// IsStarted returns whether the poll loop is running
func (s *Service) IsStarted() bool {
	return s.started.Load()
}

func (s *Service) pollLoop(ctx context.Context) {
	s.FetchCycle(ctx)

	ticker := time.NewTicker(s.config.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.FetchCycle(ctx)
		}
	}
}

// RefreshNow runs a cycle in the background unless one is already in flight.
// It returns false when the poller is not running.
func (s *Service) RefreshNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		s.logger.Debug("Manual refresh ignored, tracker not running")
		return false
	}

	s.logger.Info("Manual refresh triggered")
	runCtx := s.runCtx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.FetchCycle(runCtx)
	}()
	return true
}

// FetchCycle performs one fetch-match-emit pass. Failures are logged and leave
// the previous snapshot in place. A call made while another cycle is in flight
// is skipped.
func (s *Service) FetchCycle(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.stateMu.Lock()
		s.skipped++
		s.stateMu.Unlock()
		s.logger.Warn("Previous fetch cycle still running, skipping")
		return
	}
	defer s.busy.Store(false)

	start := time.Now()
	snapshot, err := s.runCycle(ctx)

	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		s.logger.Info("Fetch cycle cancelled")
		return
	}

	s.stateMu.Lock()
	s.cycles++
	if err != nil {
		s.failures++
		s.lastErr = err
		s.lastErrAt = s.now()
		s.stateMu.Unlock()
		s.logger.Error("Error fetching flight data", logger.Error(err))
		return
	}
	s.snapshot = &snapshot
	s.lastSuccess = snapshot.GeneratedAt
	s.stateMu.Unlock()

	s.logger.Info("Fetch cycle completed",
		logger.Int("tracked_flights", len(snapshot.Flights)),
		logger.Duration("duration", time.Since(start)))

	s.publish(snapshot)
}

func (s *Service) runCycle(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	feed, err := s.source.FetchFlights(ctx, s.config.HomeAirport)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch feed: %w", err)
	}
	if feed == nil {
		return Snapshot{}, fmt.Errorf("fetch feed: empty response")
	}

	if len(feed.Flights) == 0 {
		s.logger.Info("No flights found in feed response")
	}

	now := s.now()
	today := now.In(s.config.Location).Format(DateLayout)

	return Snapshot{
		Airport:     s.config.HomeAirport,
		Flights:     Match(s.config.Flights, feed.Flights, today, s.config.ReportMissing),
		FeedUpdated: feed.LastUpdate,
		GeneratedAt: now,
	}, nil
}

func (s *Service) publish(snapshot Snapshot) {
	s.pubMu.RLock()
	publishers := make([]Publisher, len(s.publishers))
	copy(publishers, s.publishers)
	s.pubMu.RUnlock()

	for _, p := range publishers {
		if err := p.Publish(snapshot.clone()); err != nil {
			s.logger.Warn("Failed to publish snapshot", logger.Error(err))
		}
	}
}

// Snapshot returns the last successful snapshot. The boolean is false until
// the first cycle has completed.
func (s *Service) Snapshot() (Snapshot, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return s.snapshot.clone(), true
}

// Stats returns a point-in-time view of the poller state
func (s *Service) Stats() Stats {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	stats := Stats{
		Airport:      s.config.HomeAirport,
		Running:      s.IsStarted(),
		Cycles:       s.cycles,
		Failures:     s.failures,
		SkippedTicks: s.skipped,
	}
	if !s.lastSuccess.IsZero() {
		lastSuccess := s.lastSuccess
		stats.LastSuccess = &lastSuccess
	}
	if !s.lastErrAt.IsZero() {
		lastErrAt := s.lastErrAt
		stats.LastErrorAt = &lastErrAt
	}
	if s.snapshot != nil {
		stats.TrackedFlights = len(s.snapshot.Flights)
	}
	if s.lastErr != nil {
		stats.LastError = s.lastErr.Error()
	}
	return stats
}
