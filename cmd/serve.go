package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ijug-ev/cindy/internal/api"
	"github.com/ijug-ev/cindy/internal/clock/system"
	"github.com/ijug-ev/cindy/internal/compose"
	"github.com/ijug-ev/cindy/internal/config"
	"github.com/ijug-ev/cindy/internal/fetch"
	"github.com/ijug-ev/cindy/internal/lastrun"
	"github.com/ijug-ev/cindy/internal/logging"
	"github.com/ijug-ev/cindy/internal/poll"
	"github.com/ijug-ev/cindy/internal/publisher/mastodon"
	"github.com/ijug-ev/cindy/internal/redirect"
)

const userAgent = "cindy/1.0 (+https://github.com/ijug-ev/cindy)"

// runServe builds all services and blocks until the process is signaled.
func runServe(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	sources, err := cfg.Sources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		logger.Warn("no calendar sources configured")
	}

	zone, err := cfg.Zone()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := redirect.NewCache()
	transport := redirect.NewTransport(nil, cache, logger.Named("redirect"))
	fetcher := fetch.New(transport, fetch.Config{
		RedirectLimit: cfg.Redirect.Limit,
		Timeout:       cfg.FetchTimeout(),
		UserAgent:     userAgent,
	}, logger.Named("fetch"))

	store := lastrun.New(cfg.LastRun.File, logger.Named("lastrun"))
	composer := compose.New(zone, compose.DefaultMaxLength, logger.Named("compose"))
	publisher := mastodon.New(cfg.Mastodon.Host, cfg.Mastodon.AccessToken, logger.Named("mastodon"))

	cycle := poll.NewCycle(
		sources,
		fetcher,
		store,
		composer,
		publisher,
		system.New(),
		zone,
		logger.Named("poll"),
	)
	scheduler := poll.NewScheduler(cfg.Interval(), cfg.StartupDelay(), logger.Named("scheduler"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	go func() {
		logger.Info("scheduler started",
			zap.Duration("interval", cfg.Interval()),
			zap.Duration("startup_delay", cfg.StartupDelay()),
		)
		scheduler.Run(ctx, cycle.Run)
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
