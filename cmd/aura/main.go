package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aura-global/aura/internal/classifier"
	"github.com/aura-global/aura/internal/collector"
	"github.com/aura-global/aura/internal/config"
	"github.com/aura-global/aura/internal/logger"
	"github.com/aura-global/aura/internal/newsapi"
	"github.com/aura-global/aura/internal/rss"
	"github.com/aura-global/aura/internal/server"
	"github.com/aura-global/aura/internal/storage"
	"github.com/aura-global/aura/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	// Initialize storage
	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	// Initialize news API client
	newsClient := newsapi.NewClient(
		cfg.NewsAPI.APIBaseURL,
		cfg.NewsAPI.APIKey,
		cfg.NewsAPI.Timeout,
		newsapi.ClientConfig{
			Query:      cfg.NewsAPI.Query,
			Language:   cfg.NewsAPI.Language,
			PageSize:   cfg.NewsAPI.PageSize,
			MaxRetries: cfg.NewsAPI.MaxRetries,
		},
	)

	// Optional RSS feeds, merged with API results before classification
	var feeds collector.FeedSource
	if cfg.RSS.Enabled {
		feeds = rss.NewSource(cfg.RSS.Feeds)
		logger.Info("RSS source enabled with %d feeds", len(cfg.RSS.Feeds))
	}

	// Initialize classifier client
	cls := classifier.NewClient(cfg.Classifier.Endpoint, cfg.Classifier.Timeout, cfg.Classifier.Categories)

	// Initialize Telegram client
	var telegramClient *telegram.Client
	var alerter collector.Alerter
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		alerter = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	col := collector.New(newsClient, feeds, cls, store, alerter, collector.Config{
		Countries:         cfg.Scan.Countries,
		Workers:           cfg.Scan.Workers,
		CriticalThreshold: cfg.Analytics.CriticalThreshold,
		WarningThreshold:  cfg.Analytics.WarningThreshold,
		PositiveThreshold: cfg.Analytics.PositiveThreshold,
	})
	sched := collector.NewScheduler()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// Start dashboard API
	if cfg.Server.Enabled {
		srv := server.New(store, sched, server.Config{
			Countries:          cfg.Scan.Countries,
			CriticalKeywords:   cfg.Analytics.CriticalKeywords,
			FrequencyReference: cfg.Analytics.FrequencyReference,
			ZThreshold:         cfg.Analytics.ZThreshold,
			ShortWindow:        cfg.Analytics.ShortWindow,
			LongWindow:         cfg.Analytics.LongWindow,
			TrendTolerance:     cfg.Analytics.TrendTolerance,
			StaleAfter:         2 * cfg.Scan.Interval,
		})
		go func() {
			logger.Info("Dashboard API listening on %s", cfg.Server.ListenAddr)
			if err := srv.Run(ctx, cfg.Server.ListenAddr); err != nil {
				logger.Error("Dashboard API stopped: %v", err)
				cancel()
			}
		}()
	}

	// Start scan loop
	logger.Info("Starting scan service (interval: %v, workers: %d, countries: %d)",
		cfg.Scan.Interval, cfg.Scan.Workers, len(cfg.Scan.Countries))

	ticker := time.NewTicker(cfg.Scan.Interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(report collector.CycleReport, err error) {
		failed := report.Failed()
		if err != nil || len(failed) == len(cfg.Scan.Countries) {
			consecutiveFailures++
			if err == nil {
				err = errAllCountriesFailed(failed)
			}
			logger.Error("Scan cycle failed: %v", err)
			if consecutiveFailures == 1 && cfg.Telegram.Enabled && telegramClient != nil {
				if sendErr := telegramClient.SendCycleError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && cfg.Telegram.Enabled && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	// Run initial scan immediately
	logger.Debug("Running initial scan cycle")
	report, err := col.RunCycle(ctx, sched, time.Now().UTC())
	handleCycleResult(report, err)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case tickTime := <-ticker.C:
			logger.Debug("Starting scheduled scan cycle")
			report, err := col.RunCycle(ctx, sched, tickTime.UTC())
			handleCycleResult(report, err)
		}
	}
}

func errAllCountriesFailed(failed []string) error {
	return fmt.Errorf("all countries failed this cycle: %s", strings.Join(failed, ", "))
}
