package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/MimoJanra/UptimeGuard/internal/api"
	"github.com/MimoJanra/UptimeGuard/internal/checker"
	"github.com/MimoJanra/UptimeGuard/internal/config"
	"github.com/MimoJanra/UptimeGuard/internal/monitor"
	"github.com/MimoJanra/UptimeGuard/internal/notifications"
	"github.com/MimoJanra/UptimeGuard/internal/storage"
)

// @title           UptimeGuard API
// @version         1.0
// @description     REST API for managing monitored sites and triggering uptime, TLS and domain check cycles.

// @host      localhost:8080
// @BasePath  /
// @schemes   http

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        x-api-key

// @securityDefinitions.apikey  CronSecret
// @in                          header
// @name                        x-cron-secret
func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(*configPath); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, watchConfig, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close store", "err", err)
		}
	}()

	prober := checker.NewProber(proberOptions(cfg.Probes))
	var notifier atomic.Pointer[notifications.Dispatcher]
	notifier.Store(notifications.FromConfig(cfg.Notifications))
	defer func() { notifier.Load().Close() }()
	slog.Info("notifications configured", "channels", notifier.Load().Channels())

	orch := monitor.NewOrchestrator(store, prober, notifier.Load(), monitorOptions(cfg.Monitor), nil)
	scheduler := monitor.NewScheduler(orch, cfg.Monitor.Interval)

	if watchConfig {
		go func() {
			err := config.Watch(ctx, configPath, func(next *config.Config) {
				orch.SetOptions(monitorOptions(next.Monitor))
				scheduler.SetInterval(next.Monitor.Interval)

				fresh := notifications.FromConfig(next.Notifications)
				released := orch.SetNotifier(fresh)
				prev := notifier.Swap(fresh)
				go func() {
					<-released
					prev.Close()
				}()
				slog.Info("notifications reconfigured", "channels", fresh.Channels())
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	server := &api.Server{
		Targets:    store,
		Cycles:     orch,
		Metrics:    orch.Metrics(),
		APIKey:     cfg.API.Key(),
		CronSecret: cfg.API.CronSecret(),
	}
	if server.CronSecret == "" {
		slog.Warn("cron secret not set, external cycle trigger disabled")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           api.SetupRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errCh:
		if err != nil {
			scheduler.Stop()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "err", err)
	}

	scheduler.Stop()
	slog.Info("server stopped")
	return nil
}

// loadConfig falls back to defaults when the file does not exist; the
// returned flag tells whether there is a file to watch.
func loadConfig(path string) (*config.Config, bool, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		return config.Default(), false, nil
	}
	return nil, false, err
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.TargetStore, error) {
	switch cfg.Driver {
	case "postgres":
		dsn := cfg.DSN()
		if dsn == "" {
			return nil, fmt.Errorf("storage: %s is empty", cfg.DSNEnv)
		}
		pg, err := storage.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		repo, err := storage.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

func proberOptions(p config.ProbesConfig) checker.Options {
	return checker.Options{
		LivenessTimeout: p.LivenessTimeout,
		TLSTimeout:      p.TLSTimeout,
		WhoisTimeout:    p.WhoisTimeout,
		DNSTimeout:      p.DNSTimeout,
		IPInfoURL:       p.IPInfoURL,
	}
}

func monitorOptions(m config.MonitorConfig) monitor.Options {
	return monitor.Options{
		MaxConcurrency:      m.MaxConcurrency,
		CycleTimeout:        m.CycleTimeout,
		TouchInterval:       m.TouchInterval,
		MaxTargetsPerMinute: m.MaxTargetsPerMinute,
	}
}
