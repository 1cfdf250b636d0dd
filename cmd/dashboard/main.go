// Package main is the entrypoint for the laptop-tracker dashboard.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/laptoptracker/laptop-tracker/internal/config"
	"github.com/laptoptracker/laptop-tracker/internal/dashboard"
	"github.com/laptoptracker/laptop-tracker/internal/handler"
	"github.com/laptoptracker/laptop-tracker/internal/logging"
	"github.com/laptoptracker/laptop-tracker/internal/metrics"
	"github.com/laptoptracker/laptop-tracker/internal/middleware"
	"github.com/laptoptracker/laptop-tracker/internal/server"
)

func main() {
	cfg, err := config.LoadDashboard()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	var (
		recorder    metrics.Recorder = metrics.NewNoop()
		promMetrics *metrics.Prometheus
	)
	if cfg.MetricsEnabled {
		promMetrics = metrics.NewPrometheus()
		recorder = promMetrics
	}

	client := dashboard.NewClient(cfg.AggregatorURL, nil)
	pollers := []*dashboard.Poller{
		dashboard.NewPoller(dashboard.FeedMac, client, cfg.PollInterval, recorder, logger),
	}
	if cfg.WindowsEnabled {
		pollers = append(pollers, dashboard.NewPoller(dashboard.FeedWindows, client, cfg.PollInterval, recorder, logger))
	}

	dash, err := dashboard.NewServer(pollers, cfg.PollInterval, logger)
	if err != nil {
		logger.Error("failed to build dashboard", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:         cfg.AppEnv == "development",
		ContentSecurityPolicy: middleware.PageContentSecurityPolicy,
	}))
	if promMetrics != nil {
		r.Use(promMetrics.Middleware())
		r.Method(http.MethodGet, "/metrics", promMetrics.Handler())
	}
	dash.Routes(r)
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	srv := server.New(r, server.Options{
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range pollers {
		p := p
		g.Go(func() error {
			if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stop()
		return srv.Run(ctx)
	})

	logger.Info("starting dashboard",
		"port", cfg.Port,
		"aggregator_url", cfg.AggregatorURL,
		"poll_interval", cfg.PollInterval,
		"windows", cfg.WindowsEnabled,
	)

	if err := g.Wait(); err != nil {
		logger.Error("dashboard error", "error", err)
		os.Exit(1)
	}
}
