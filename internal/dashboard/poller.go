package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/laptoptracker/laptop-tracker/internal/metrics"
	"github.com/laptoptracker/laptop-tracker/internal/model"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 5 * time.Minute

// Fetcher loads one feed.
type Fetcher interface {
	Fetch(ctx context.Context, feed Feed) ([]model.Device, error)
}

// State is the last outcome of a poll. Devices survive a failed poll and are
// rendered under the error until the next successful one.
type State struct {
	Devices   []model.Device
	Err       error
	UpdatedAt time.Time
	Loaded    bool
}

// Poller re-fetches a feed on a fixed interval and keeps the latest result.
type Poller struct {
	feed     Feed
	fetcher  Fetcher
	interval time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
	started  atomic.Bool

	mu    sync.RWMutex
	state State
}

// NewPoller creates a Poller for feed.
func NewPoller(feed Feed, fetcher Fetcher, interval time.Duration, recorder metrics.Recorder, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		feed:     feed,
		fetcher:  fetcher,
		interval: interval,
		metrics:  recorder,
		logger:   logger.With("component", "dashboard.poller", "feed", feed.Key),
		now:      time.Now,
	}
}

// Feed returns the polled feed.
func (p *Poller) Feed() Feed {
	return p.feed
}

// Run polls immediately and then on every tick. Blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New("poller already started")
	}

	p.logger.Info("poller started", "interval", p.interval)
	_ = p.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping")
			return ctx.Err()
		case <-ticker.C:
			_ = p.Refresh(ctx)
		}
	}
}

// Refresh fetches the feed once and stores the outcome. It may run
// concurrently with a tick; the later result wins.
func (p *Poller) Refresh(ctx context.Context) error {
	devices, err := p.fetcher.Fetch(ctx, p.feed)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		p.metrics.IncDashboardPoll(p.feed.Key, metrics.StatusError)
		p.logger.Warn("poll failed", "error", err)
		p.mu.Lock()
		p.state.Err = err
		p.state.Loaded = true
		p.mu.Unlock()
		return err
	}

	p.metrics.IncDashboardPoll(p.feed.Key, metrics.StatusSuccess)
	p.logger.Debug("poll complete", "devices", len(devices))

	p.mu.Lock()
	p.state = State{
		Devices:   devices,
		UpdatedAt: p.now(),
		Loaded:    true,
	}
	p.mu.Unlock()
	return nil
}

// State returns the latest poll outcome.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}
