package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matrixise/sui-friday/internal/health"
	"github.com/matrixise/sui-friday/internal/leaderboard"
	"github.com/matrixise/sui-friday/internal/metrics"
	"github.com/matrixise/sui-friday/internal/mint"
	"github.com/matrixise/sui-friday/internal/notify"
	"github.com/matrixise/sui-friday/internal/scheduler"
	"github.com/matrixise/sui-friday/internal/storage"
	"github.com/matrixise/sui-friday/internal/web"
	"github.com/spf13/cobra"
)

var (
	interval string
	httpPort int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the leaderboard and mint web service",
	Long: `Poll the roster wallets and the mint tracker on a schedule and serve the
coin leaderboard, the NFT mint page and their JSON API.`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&interval, "interval", "", "poll interval - duration (5s, 1m) or cron (\"*/5 * * * *\"), overrides poll_interval")
	runCmd.Flags().IntVar(&httpPort, "port", 0, "HTTP port, overrides http_port")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pollInterval := cfg.PollInterval
	if interval != "" {
		if err := scheduler.ValidateScheduleInterval(interval); err != nil {
			return fmt.Errorf("invalid --interval: %w", err)
		}
		pollInterval = interval
	}
	port := cfg.HTTPPort
	if httpPort != 0 {
		port = httpPort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Signal received, graceful shutdown", "signal", sig)
		cancel()
	}()

	metrics.Init()

	entries := roster(cfg)
	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"network", cfg.Network,
		"wallets", len(entries),
		"poll_interval", pollInterval,
		"tracker", cfg.Mint.Tracker,
	)

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	var (
		store    *storage.Store
		aggOpts  []leaderboard.Option
		webOpts  []web.Option
		checkOps []health.Option
	)
	if cfg.DatabaseURL != "" {
		store, err = openHistory(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		recorder := storage.NewRecorder(store)
		if err := recorder.Prime(ctx); err != nil {
			slog.Warn("Failed to load latest stored balances, history may repeat", "error", err)
		}
		aggOpts = append(aggOpts, leaderboard.WithRecorder(recorder))
		webOpts = append(webOpts, web.WithHistory(store))
		checkOps = append(checkOps, health.WithDatabase(store))
	} else {
		slog.Info("DATABASE_URL not set, balance history disabled")
	}

	feed := notify.NewFeed(notify.DefaultCapacity)
	agg := leaderboard.NewAggregator(entries, aggOpts...)
	tracker := mint.NewTracker(client, cfg.Mint.Tracker, cfg.Mint.Limit)

	orchestrator, wallet, err := newOrchestrator(cfg, client, tracker, feed)
	if err != nil {
		slog.Error("Failed to set up the mint wallet", "error", err)
		return err
	}
	if wallet == nil {
		slog.Info("No signing key configured, mint runs read-only")
	}

	sched, err := scheduler.NewScheduler(ctx, scheduler.Config{
		Timezone:       cfg.GetTimezone(),
		RunImmediately: cfg.ShouldRunImmediately(),
		Logger:         slog.Default(),
	})
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		return fmt.Errorf("scheduler creation failed: %w", err)
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			slog.Error("Scheduler shutdown error", "error", err)
		}
	}()

	snapshots := make(chan leaderboard.Snapshot, len(entries))
	for _, entry := range entries {
		f := leaderboard.NewFetcher(entry, client, snapshots)
		if err := sched.AddJob(f.JobName(), pollInterval, f.Poll); err != nil {
			return err
		}
	}
	if err := sched.AddJob("tracker", pollInterval, tracker.Poll); err != nil {
		return err
	}

	webOpts = append(webOpts, web.WithNetwork(cfg.Network))
	if wallet != nil {
		account := mint.NewAccountWatcher(client, wallet.Address())
		if err := sched.AddJob("account", pollInterval, account.Poll); err != nil {
			return err
		}
		webOpts = append(webOpts, web.WithAccount(account))
	}

	go agg.Run(ctx, snapshots)
	go tracker.Run(ctx)

	checkOps = append(checkOps,
		health.WithLeaderboard(agg),
		health.WithTracker(tracker, scheduler.ExpectedInterval(pollInterval)),
	)
	checker := health.NewChecker(client, checkOps...)
	webOpts = append(webOpts, web.WithHealth(checker.Handler()), web.WithMetrics(metrics.Handler()))

	server, err := web.NewServer(agg, orchestrator, tracker, feed, webOpts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	slog.Info("Service started",
		"jobs", len(sched.Jobs()),
		"timezone", cfg.GetTimezone().String(),
		"run_immediately", cfg.ShouldRunImmediately(),
		"schedule", scheduler.DescribeSchedule(pollInterval, cfg.GetTimezone()))

	<-ctx.Done()
	slog.Info("Shutdown requested, stopping service")
	return nil
}

// openHistory connects to PostgreSQL and applies pending migrations
func openHistory(ctx context.Context, dsn string) (*storage.Store, error) {
	if err := storage.RunMigrations(ctx, dsn); err != nil {
		slog.Error("Failed to apply migrations", "error", err)
		return nil, err
	}

	store, err := storage.NewStore(ctx, dsn)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		return nil, err
	}
	slog.Info("PostgreSQL connection established")
	return store, nil
}
