/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rental analytics server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (YAML file, defaults, environment)
  2. Initialize logging
  3. Initialize SQLite store
  4. Build analytics service, metrics and dashboard cache
  5. Optionally load a demo scenario
  6. Start the alert digest schedule
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (optional)

ENVIRONMENT:
  PORT       overrides server.port
  DB_PATH    overrides database.path (":memory:" for in-memory)
  LOG_LEVEL  overrides logging.level

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the digest schedule (waits for a running digest)
  2. Stop accepting new connections
  3. Wait for active requests to complete (server.shutdown_timeout)
  4. Close database connection

EXAMPLES:
  ./server -config=./config.yaml
  DB_PATH=":memory:" ./server

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - jobs/digest.go: Alert digest
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/warp/rental-analytics/analytics"
	"github.com/warp/rental-analytics/api"
	"github.com/warp/rental-analytics/config"
	"github.com/warp/rental-analytics/jobs"
	"github.com/warp/rental-analytics/ledger"
	"github.com/warp/rental-analytics/logging"
	"github.com/warp/rental-analytics/metrics"
	"github.com/warp/rental-analytics/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logging.Logger

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	svc := analytics.NewService(store)
	m := metrics.New(prometheus.DefaultRegisterer)
	svc.Observer = m

	handler := api.NewHandler(store, svc)
	var dashboards jobs.Dashboarder = svc
	if cfg.Cache.Size > 0 {
		cache, err := api.NewDashboardCache(svc, store, cfg.Cache.Size)
		if err != nil {
			log.WithError(err).Fatal("Failed to create dashboard cache")
		}
		cache.Observer = m
		handler.Cache = cache
		dashboards = cache
	}

	if cfg.ScenarioOnStart != "" {
		if err := loadScenarioIfEmpty(context.Background(), handler, store, cfg.ScenarioOnStart); err != nil {
			log.WithError(err).Warn("Failed to load startup scenario")
		}
	}

	// Alert digest
	digest := jobs.NewDigest(store, dashboards)
	digest.Units = store
	digest.TimeRange = ledger.TimeRange(cfg.Alerts.TimeRange)
	digest.Concurrency = cfg.Alerts.Concurrency
	digest.Observer = m
	if cfg.Alerts.DigestEnabled {
		if err := digest.Start(cfg.Alerts.DigestCron); err != nil {
			log.WithError(err).Fatal("Failed to start alert digest")
		}
	}

	opts := api.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}
	router := api.NewRouter(handler, opts)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	digest.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

// loadScenarioIfEmpty seeds a database that has never been written.
func loadScenarioIfEmpty(ctx context.Context, h *api.Handler, store *sqlite.Store, id string) error {
	version, err := store.Version(ctx)
	if err != nil {
		return err
	}
	if version > 0 {
		logging.Logger.WithField("version", version).Info("Database already written, skipping startup scenario")
		return nil
	}
	if err := h.LoadScenarioByID(ctx, id); err != nil {
		return err
	}
	logging.Logger.WithField("scenario", id).Info("Loaded startup scenario")
	return nil
}
