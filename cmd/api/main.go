// Package main is the entrypoint for the laptop-tracker aggregator.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"

	"github.com/laptoptracker/laptop-tracker/internal/config"
	"github.com/laptoptracker/laptop-tracker/internal/handler"
	"github.com/laptoptracker/laptop-tracker/internal/logging"
	"github.com/laptoptracker/laptop-tracker/internal/mdm"
	"github.com/laptoptracker/laptop-tracker/internal/mdm/intune"
	"github.com/laptoptracker/laptop-tracker/internal/mdm/kandji"
	"github.com/laptoptracker/laptop-tracker/internal/metrics"
	"github.com/laptoptracker/laptop-tracker/internal/middleware"
	"github.com/laptoptracker/laptop-tracker/internal/normalize"
	"github.com/laptoptracker/laptop-tracker/internal/notify"
	"github.com/laptoptracker/laptop-tracker/internal/server"
	"github.com/laptoptracker/laptop-tracker/internal/service"
	"github.com/laptoptracker/laptop-tracker/internal/store"
	"github.com/laptoptracker/laptop-tracker/internal/webhook"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	mappings, err := normalize.Load(cfg.FieldMappingPath)
	if err != nil {
		logger.Error("failed to load field mapping", "path", cfg.FieldMappingPath, "error", err)
		os.Exit(1)
	}

	// Metrics: Prometheus when enabled, otherwise in-memory counters.
	var (
		recorder    metrics.Recorder
		promMetrics *metrics.Prometheus
		memMetrics  *metrics.InMemoryRecorder
	)
	if cfg.MetricsEnabled {
		promMetrics = metrics.NewPrometheus()
		recorder = promMetrics
	} else {
		memMetrics = metrics.NewInMemory()
		recorder = memMetrics
	}

	// Vendor clients
	vendorHTTP := mdm.NewHTTPClient()
	kandjiClient := kandji.New(kandji.Config{
		DevicesURL: cfg.KandjiDevicesURL(),
		Token:      cfg.KandjiAPIToken,
		PageSize:   cfg.KandjiPageSize,
	}, vendorHTTP, logger)

	opts := service.Options{
		Kandji:   kandjiClient,
		Mappings: mappings,
		Metrics:  recorder,
		Logger:   logger,
	}

	if cfg.IntuneEnabled {
		tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, vendorHTTP)
		tokens := intune.NewTokenSource(tokenCtx, cfg.TenantID, cfg.ClientID, cfg.ClientSecret, cfg.IntuneTokenURL)
		opts.Intune = intune.New(cfg.IntuneGraphEndpoint, tokens, vendorHTTP, logger)
		logger.Info("intune integration enabled", "graph_endpoint", cfg.IntuneGraphEndpoint)
	}

	// Notification gate and its store
	var notifiedStore store.Store
	if cfg.NotificationsActive() {
		notifiedStore, err = store.Open(ctx, cfg.StoreOptions(), logger)
		if err != nil {
			logger.Error(
				"failed to open notified store",
				slog.String("backend", cfg.NotifiedStore),
				slog.String("error", logging.SanitizeError(err, cfg.RedisURL, cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("notified store ready", "backend", cfg.NotifiedStore)

		sender := webhook.NewSender(webhook.NewHTTPClient(), cfg.WebhookSigningSecret)
		teams := notify.NewTeamsNotifier(cfg.TeamsWebhookURL, sender, logger)
		opts.Gate = notify.NewGate(teams, notifiedStore, recorder, logger)
	} else {
		logger.Info("teams notifications disabled")
	}

	inventory := service.NewInventoryService(opts)

	// Handlers
	var storeChecker handler.HealthChecker
	if notifiedStore != nil {
		storeChecker = notifiedStore
	}
	healthHandler := handler.NewHealthHandler(storeChecker, cfg.NotifiedStore, cfg.KandjiDevicesURL())
	deviceHandler := handler.NewDeviceHandler(inventory, logger)
	reportHandler := handler.NewReportHandler(inventory, logger)

	var metricsHandler http.Handler
	if promMetrics != nil {
		metricsHandler = promMetrics.Handler()
	} else {
		metricsHandler = http.HandlerFunc(handler.NewMetricsHandler(memMetrics).Metrics)
	}

	r := setupRouter(cfg, healthHandler, deviceHandler, reportHandler, metricsHandler, promMetrics, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if notifiedStore != nil {
		srv.OnShutdown("notified store", func(context.Context) error {
			return notifiedStore.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"kandji_url", cfg.KandjiDevicesURL(),
		"intune_enabled", cfg.IntuneEnabled,
		"notifications", cfg.NotificationsActive(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	cfg *config.Config,
	healthHandler *handler.HealthHandler,
	deviceHandler *handler.DeviceHandler,
	reportHandler *handler.ReportHandler,
	metricsHandler http.Handler,
	promMetrics *metrics.Prometheus,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	if promMetrics != nil {
		r.Use(promMetrics.Middleware())
	}

	r.Get("/health", healthHandler.Health)
	r.Get("/readyz", healthHandler.Readyz)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/devices", deviceHandler.MacDevices)
		r.Get("/windows-devices", deviceHandler.WindowsDevices)
		r.Get("/report.xlsx", reportHandler.Download)
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
