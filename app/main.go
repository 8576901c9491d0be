package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/sinkhole-watch/app/api"
	"github.com/lysyi3m/sinkhole-watch/app/cfg"
	"github.com/lysyi3m/sinkhole-watch/app/database"
	"github.com/lysyi3m/sinkhole-watch/app/feed"
	"github.com/lysyi3m/sinkhole-watch/app/lock"
	"github.com/lysyi3m/sinkhole-watch/app/metrics"
	"github.com/lysyi3m/sinkhole-watch/app/notify"
	"github.com/lysyi3m/sinkhole-watch/app/tasks"
)

const lockTTL = 10 * time.Minute

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Sinkhole Watch", "version", appCfg.Version, "driver", appCfg.DBDriver, "table", appCfg.Table)

	db, err := database.NewConnection(appCfg.DBDriver, appCfg.DSN())
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db, appCfg.Table)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	reportRepo, err := database.NewReportRepository(db, appCfg.Table)
	if err != nil {
		slog.Error("Failed to initialize report repository", "error", err)
		os.Exit(1)
	}

	topic, err := feed.LoadTopic(appCfg.TopicFile)
	if err != nil {
		slog.Error("Failed to load topic", "error", err)
		os.Exit(1)
	}
	slog.Info("Topic loaded", "name", topic.Name, "keywords", len(topic.Keywords))

	m := metrics.New()

	httpClient := &http.Client{}
	notifier := notify.NewWebhookNotifier(httpClient, appCfg.WebhookURL, appCfg.UserAgent, appCfg.NotifyTimeout)
	notifier.OnFailure(m.NotificationFailed)

	locker, closeLocker := newLocker(appCfg)
	defer closeLocker()

	pipeline := &tasks.Pipeline{
		FeedURL:      appCfg.FeedURL,
		HTTPClient:   httpClient,
		UserAgent:    appCfg.UserAgent,
		FetchTimeout: appCfg.FetchTimeout,
		DedupByGUID:  appCfg.DedupByGUID,
		Parser:       feed.NewParser(),
		Matcher:      feed.NewMatcher(topic.Keywords),
		ReportRepo:   reportRepo,
		Notifier:     notifier,
		Locker:       locker,
		LockName:     appCfg.Table,
		Metrics:      m,
	}

	if appCfg.Once {
		code := runOnce(pipeline, appCfg.Reconcile)
		closeLocker()
		db.Close()
		os.Exit(code)
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(pipeline,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount, appCfg.Reconcile)
	scheduler.Start()
	defer scheduler.Stop()

	channel := feed.Channel{
		Title:       "Sinkhole Watch",
		Link:        appCfg.SelfURL(),
		Description: fmt.Sprintf("News reports matching topic %q", topic.Name),
		SelfLink:    appCfg.SelfURL() + "/sinkholes/rss",
		Language:    "ko",
	}

	apiHandler := api.NewHandler(reportRepo, channel, scheduler, m, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "base_url", appCfg.SelfURL())

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Sinkhole Watch shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// newLocker returns a Redis-backed lock when REDIS_ADDR is set so replicas
// share one run at a time, and an in-process lock otherwise.
func newLocker(appCfg *cfg.Cfg) (lock.Locker, func()) {
	if appCfg.RedisAddr == "" {
		return lock.NewLocalLocker(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	locker, err := lock.NewRedisLocker(ctx, appCfg.RedisAddr, appCfg.RedisPassword, lockTTL)
	if err != nil {
		slog.Warn("Redis unavailable, falling back to in-process lock", "addr", appCfg.RedisAddr, "error", err)
		return lock.NewLocalLocker(), func() {}
	}

	slog.Info("Using Redis run lock", "addr", appCfg.RedisAddr)
	return locker, func() {
		if err := locker.Close(); err != nil {
			slog.Warn("Failed to close Redis client", "error", err)
		}
	}
}

// runOnce performs a single pass and returns the process exit code.
func runOnce(pipeline *tasks.Pipeline, reconcile bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if reconcile {
		task := tasks.NewReconcileReportsTask(pipeline)
		task.Start()
		if err := task.Execute(ctx); err != nil {
			slog.Error("Reconciliation failed", "error", err)
			return 1
		}
	}

	task := tasks.NewIngestFeedTask(pipeline)
	task.Start()
	if err := task.Execute(ctx); err != nil {
		slog.Error("Run failed", "error", err)
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	fmt.Println(task.Result().Message())
	return 0
}
