// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/laptoptracker/laptop-tracker/internal/age"
	"github.com/laptoptracker/laptop-tracker/internal/mdm"
	"github.com/laptoptracker/laptop-tracker/internal/metrics"
	"github.com/laptoptracker/laptop-tracker/internal/model"
	"github.com/laptoptracker/laptop-tracker/internal/normalize"
	"github.com/laptoptracker/laptop-tracker/internal/notify"
)

// ErrIntuneDisabled is returned by the Windows path when the integration
// flag is off.
var ErrIntuneDisabled = errors.New("intune integration not enabled")

// FetchError wraps a vendor client failure.
type FetchError struct {
	Vendor string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s devices: %v", e.Vendor, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options wires an InventoryService.
type Options struct {
	Kandji mdm.Source
	// Intune is nil when the integration is disabled.
	Intune   mdm.Source
	Mappings normalize.Mappings
	// Gate is nil when notifications are disabled.
	Gate    *notify.Gate
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// InventoryService fetches, normalizes and gates device lists.
type InventoryService struct {
	kandji   mdm.Source
	intune   mdm.Source
	mappings normalize.Mappings
	gate     *notify.Gate
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewInventoryService creates an InventoryService.
func NewInventoryService(opts Options) *InventoryService {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Mappings == nil {
		opts.Mappings = normalize.Default()
	}
	return &InventoryService{
		kandji:   opts.Kandji,
		intune:   opts.Intune,
		mappings: opts.Mappings,
		gate:     opts.Gate,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With("component", "inventory"),
		now:      time.Now,
	}
}

// IntuneEnabled reports whether the Windows path is active.
func (s *InventoryService) IntuneEnabled() bool {
	return s.intune != nil
}

// MacDevices returns normalized Kandji devices and runs the notification gate.
func (s *InventoryService) MacDevices(ctx context.Context) ([]model.Device, error) {
	devices, err := s.fetch(ctx, s.kandji)
	if err != nil {
		return nil, err
	}
	s.checkGate(ctx, s.kandji.Name(), devices)
	return devices, nil
}

// WindowsDevices returns normalized Intune devices and runs the notification
// gate. It makes no vendor call when the integration is disabled.
func (s *InventoryService) WindowsDevices(ctx context.Context) ([]model.Device, error) {
	if s.intune == nil {
		return nil, ErrIntuneDisabled
	}
	devices, err := s.fetch(ctx, s.intune)
	if err != nil {
		return nil, err
	}
	s.checkGate(ctx, s.intune.Name(), devices)
	return devices, nil
}

// AllDevices returns every vendor's devices without notifying. Windows
// devices are included only when Intune is enabled.
func (s *InventoryService) AllDevices(ctx context.Context) ([]model.Device, error) {
	devices, err := s.fetch(ctx, s.kandji)
	if err != nil {
		return nil, err
	}
	if s.intune != nil {
		windows, err := s.fetch(ctx, s.intune)
		if err != nil {
			return nil, err
		}
		devices = append(devices, windows...)
	}
	return devices, nil
}

func (s *InventoryService) fetch(ctx context.Context, src mdm.Source) ([]model.Device, error) {
	vendor := src.Name()
	mapping, err := s.mappings.For(vendor)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raws, err := src.FetchDevices(ctx)
	s.metrics.ObserveVendorFetchDuration(vendor, time.Since(start))
	if err != nil {
		s.metrics.IncVendorFetch(vendor, metrics.StatusError)
		s.logger.Error("vendor fetch failed", "vendor", vendor, "error", err)
		return nil, &FetchError{Vendor: vendor, Err: err}
	}
	s.metrics.IncVendorFetch(vendor, metrics.StatusSuccess)

	now := s.now()
	devices := mapping.Devices(raws, now)
	s.recordFleet(vendor, devices, now)

	s.logger.Debug("devices fetched", "vendor", vendor, "count", len(devices))
	return devices, nil
}

func (s *InventoryService) recordFleet(vendor string, devices []model.Device, now time.Time) {
	counts := map[age.Category]int{age.Good: 0, age.Warning: 0, age.Danger: 0}
	for _, d := range devices {
		if a, err := age.Assess(now, d.EnrollmentCandidates()...); err == nil {
			counts[a.Category]++
		}
	}
	for category, n := range counts {
		s.metrics.SetFleetSize(vendor, string(category), n)
	}
}

func (s *InventoryService) checkGate(ctx context.Context, vendor string, devices []model.Device) {
	if s.gate == nil {
		return
	}
	res := s.gate.Check(ctx, devices)
	if len(res.Notified) > 0 || len(res.Failed) > 0 || len(res.BadDate) > 0 {
		s.logger.Info("notification check complete",
			"vendor", vendor,
			"notified", len(res.Notified),
			"failed", len(res.Failed),
			"bad_date", len(res.BadDate),
		)
	}
}
