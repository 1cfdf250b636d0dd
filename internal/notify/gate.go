// Package notify sends one replacement notification per aged device and
// remembers which serials were already announced.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/laptoptracker/laptop-tracker/internal/age"
	"github.com/laptoptracker/laptop-tracker/internal/metrics"
	"github.com/laptoptracker/laptop-tracker/internal/model"
)

// Result reports what one Check did.
type Result struct {
	Notified []string `json:"notified"`
	Failed   []string `json:"failed"`
	BadDate  []string `json:"bad_date"`
}

// Gate decides which devices get a notification. A serial moves one way from
// unnotified to notified and is never announced twice by the same process.
//
// The in-memory set is the source of truth between polls. It is unioned with
// the store on every Check and written back whenever it holds serials the
// store has not acknowledged, so a failed save is retried on the next poll.
// A poll whose load failed never saves: the store may hold serials this
// process has not seen, and a save would overwrite them.
type Gate struct {
	notifier Notifier
	store    Store
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	known   Set
	version uint64
	saved   uint64
}

// NewGate creates a Gate.
func NewGate(notifier Notifier, store Store, recorder metrics.Recorder, logger *slog.Logger) *Gate {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		notifier: notifier,
		store:    store,
		metrics:  recorder,
		logger:   logger.With("component", "notify"),
		now:      time.Now,
		known:    make(Set),
	}
}

// Check notifies every danger-category device whose serial has not been
// notified before, then persists the set if it grew.
func (g *Gate) Check(ctx context.Context, devices []model.Device) Result {
	loaded := g.load(ctx)

	var res Result
	now := g.now()
	attempted := make(Set)

	for _, d := range devices {
		if !d.HasKnownSerial() {
			continue
		}

		a, err := age.Assess(now, d.EnrollmentCandidates()...)
		if err != nil {
			g.logger.Warn("skipping device with unparseable enrollment date",
				"serial", d.SerialNumber,
				"error", err,
			)
			res.BadDate = append(res.BadDate, d.SerialNumber)
			g.metrics.IncNotification(metrics.NotificationBadDate)
			continue
		}
		if a.Category != age.Danger {
			continue
		}
		if !attempted.Add(d.SerialNumber) || g.isKnown(d.SerialNumber) {
			continue
		}

		if err := g.notifier.Notify(ctx, d); err != nil {
			g.logger.Error("failed to send replacement notification",
				"serial", d.SerialNumber,
				"error", err,
			)
			res.Failed = append(res.Failed, d.SerialNumber)
			g.metrics.IncNotification(metrics.NotificationFailed)
			continue
		}

		g.markKnown(d.SerialNumber)
		res.Notified = append(res.Notified, d.SerialNumber)
		g.metrics.IncNotification(metrics.NotificationSent)
	}

	g.persist(ctx, loaded)
	return res
}

// Known returns the current notified set in lexical order.
func (g *Gate) Known() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.known.Sorted()
}

func (g *Gate) load(ctx context.Context) bool {
	persisted, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Warn("failed to load notified set, using in-memory set", "error", err)
		g.metrics.IncStoreError(metrics.StoreLoad)
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, serial := range persisted {
		g.known.Add(serial)
	}
	return true
}

func (g *Gate) isKnown(serial string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.known.Has(serial)
}

func (g *Gate) markKnown(serial string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.known.Add(serial) {
		g.version++
	}
}

func (g *Gate) persist(ctx context.Context, loaded bool) {
	g.mu.Lock()
	if g.version == g.saved || !loaded {
		size, pending := len(g.known), g.version != g.saved
		g.mu.Unlock()
		g.metrics.SetNotifiedSerials(size)
		if pending {
			g.logger.Warn("notified set not loaded, deferring save to next poll", "serials", size)
		}
		return
	}
	version := g.version
	snapshot := g.known.Sorted()
	g.mu.Unlock()

	g.metrics.SetNotifiedSerials(len(snapshot))

	if err := g.store.Save(ctx, snapshot); err != nil {
		g.logger.Error("failed to persist notified set, will retry next poll",
			"error", err,
			"serials", len(snapshot),
		)
		g.metrics.IncStoreError(metrics.StoreSave)
		return
	}

	g.mu.Lock()
	if version > g.saved {
		g.saved = version
	}
	g.mu.Unlock()
}
