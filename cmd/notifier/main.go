// Command notifier ingests the incident feed into the record store and emails
// (or otherwise delivers) one notification per area of interest.
//
// With SCHEDULE unset it runs once and exits non-zero on configuration or
// ingestion failure. With SCHEDULE set to a cron expression it runs on that
// schedule and serves /healthz, /readyz, /status and /metrics on HTTP_ADDR.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/incident-aoi-notifier/internal/adapter/aoi"
	httpadapter "github.com/couchcryptid/incident-aoi-notifier/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/incident-aoi-notifier/internal/adapter/kafka"
	"github.com/couchcryptid/incident-aoi-notifier/internal/adapter/mapbox"
	"github.com/couchcryptid/incident-aoi-notifier/internal/adapter/smtp"
	"github.com/couchcryptid/incident-aoi-notifier/internal/adapter/soda"
	"github.com/couchcryptid/incident-aoi-notifier/internal/adapter/store"
	"github.com/couchcryptid/incident-aoi-notifier/internal/adapter/webhook"
	"github.com/couchcryptid/incident-aoi-notifier/internal/config"
	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
	"github.com/couchcryptid/incident-aoi-notifier/internal/observability"
	"github.com/couchcryptid/incident-aoi-notifier/internal/pipeline"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit (implied when SCHEDULE is unset)")
	notifyOnly := flag.Bool("notify-only", false, "skip ingestion and notify about the latest stored batch")
	flag.Parse()

	os.Exit(run(*once, *notifyOnly))
}

func run(once, notifyOnly bool) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return 1
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		logger.Error("store unreachable", "error", err)
		return 1
	}
	if err := st.Migrate(ctx); err != nil {
		logger.Error("failed to migrate store", "error", err)
		return 1
	}

	rules, err := config.LoadStyleRules(cfg.StyleRulesFile)
	if err != nil {
		logger.Error("failed to load style rules", "error", err)
		return 1
	}

	// Map rendering is only needed once an AOI matches; without a token those AOIs fail.
	var (
		renderer domain.MapRenderer
		images   smtp.ImageFetcher
	)
	if cfg.MapboxToken != "" {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxStyle, cfg.MapboxWidth, cfg.MapboxHeight, cfg.MapboxTimeout, logger)
		renderer = client
		images = mapbox.NewCachedFetcher(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox rendering enabled", "style", cfg.MapboxStyle, "size", fmt.Sprintf("%dx%d", cfg.MapboxWidth, cfg.MapboxHeight))
	} else {
		logger.Warn("MAPBOX_TOKEN not set, AOIs with matches will fail")
	}

	senders, closers, err := buildSenders(cfg, images, logger)
	if err != nil {
		logger.Error("failed to create notification sinks", "error", err)
		return 1
	}
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("sink close error", "error", err)
			}
		}
	}()

	feed := soda.NewClient(cfg.SodaURL, cfg.SodaAppToken, cfg.FeedLimit, cfg.FeedTimeout, logger)
	ingester := pipeline.NewIngester(feed, st, logger, metrics)
	notifier := pipeline.NewNotifier(senders, renderer, rules, cfg.NotifyConcurrency, logger, metrics)
	p := pipeline.New(ingester, st, aoi.Dir(cfg.AOIDir), notifier, logger, metrics)

	job := p.Run
	if notifyOnly {
		job = p.RunNotifyOnly
	}

	if once || cfg.Schedule == "" {
		if _, err := job(ctx); err != nil {
			return 1
		}
		return 0
	}
	return serve(ctx, cfg, p, job, logger)
}

// buildSenders creates one sink per NOTIFY_SINKS entry, in that order.
func buildSenders(cfg *config.Config, images smtp.ImageFetcher, logger *slog.Logger) ([]pipeline.Sender, []func() error, error) {
	var (
		senders []pipeline.Sender
		closers []func() error
	)
	for _, name := range cfg.NotifySinks {
		switch name {
		case config.SinkSMTP:
			s, err := smtp.NewSender(cfg, images, logger)
			if err != nil {
				return nil, closers, err
			}
			senders = append(senders, s)
		case config.SinkWebhook:
			senders = append(senders, webhook.NewSender(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout, logger))
		case config.SinkKafka:
			w := kafkaadapter.NewWriter(cfg, logger)
			senders = append(senders, w)
			closers = append(closers, w.Close)
		case config.SinkLog:
			senders = append(senders, pipeline.NewLogSender(logger))
		}
	}
	return senders, closers, nil
}

func serve(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, job func(context.Context) (pipeline.Report, error), logger *slog.Logger) int {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if _, err := job(ctx); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid schedule", "schedule", cfg.Schedule, "error", err)
		return 1
	}
	c.Start()
	logger.Info("scheduler started", "schedule", cfg.Schedule)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Wait for an in-flight run to finish or the shutdown timeout, whichever is first.
	select {
	case <-c.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("in-flight run did not finish before shutdown timeout")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}
