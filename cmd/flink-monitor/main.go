// flink-monitor is an HTTP gateway and metrics exporter in front of one
// cluster's REST API.
package main

import (
	"context"
	"errors"
	"flinkrest/internal/api"
	"flinkrest/internal/config"
	"flinkrest/internal/discovery"
	"flinkrest/internal/health"
	"flinkrest/internal/observability"
	"flinkrest/pkg/flink"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	svcCfg := config.LoadServiceConfig()
	flinkCfg, err := config.LoadFlinkConfig()
	if err != nil {
		return err
	}

	// Resolve the job manager from a local container when asked to
	if flinkCfg.DockerContainer != "" {
		finder, err := discovery.NewFinder(slog.Default())
		if err != nil {
			return err
		}
		err = finder.Apply(ctx, flinkCfg)
		finder.Close()
		if err != nil {
			return err
		}
	}

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	// Create cluster client
	cluster, err := flink.New(flinkCfg.Target(),
		flink.WithTimeout(flinkCfg.Timeout),
		flink.WithLogger(slog.Default()),
		flink.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	slog.Info("Cluster client configured", "cluster", svcCfg.ClusterName, "url", cluster.APIURL())

	// Report cluster capacity on every scrape
	unobserve, err := metrics.ObserveCluster(svcCfg.ClusterName, cluster, slog.Default(), svcCfg.ScrapeBreaker)
	if err != nil {
		return err
	}
	defer unobserve()

	// Create health checker
	healthChecker := health.NewChecker(cluster, svcCfg.ProbeTimeout)

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Cluster:       cluster,
		Metrics:       metrics,
		HealthChecker: healthChecker,
		APIKey:        svcCfg.APIKey,
		Logger:        slog.Default(),
	})

	if svcCfg.APIKey != "" {
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled - no API_KEY_FILE configured")
	}

	// Create API server
	apiServer := &http.Server{
		Addr:         ":" + svcCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: flinkCfg.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: flinkCfg.Timeout + 10*time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 2)

	// Start API server
	go func() {
		slog.Info("Starting API server", "port", svcCfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start metrics server
	go func() {
		slog.Info("Starting metrics server", "port", svcCfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// shutdown closes both servers gracefully
	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: Mark service as unhealthy for load balancer draining
	healthChecker.SetShuttingDown()

	// Wait for load balancers to stop sending traffic
	if svcCfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", svcCfg.ShutdownDrainWait)
		time.Sleep(svcCfg.ShutdownDrainWait)
	}

	// Phase 2: Graceful shutdown - stop accepting new connections, finish in-flight requests
	slog.Info("Starting graceful shutdown")
	shutdown(25 * time.Second)

	// Operations already triggered on the cluster keep running there.
	slog.Info("Shutdown complete")
	return nil
}
