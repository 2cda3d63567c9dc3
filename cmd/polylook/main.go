package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/barissdev/polylook/internal/alerts"
	"github.com/barissdev/polylook/internal/config"
	"github.com/barissdev/polylook/internal/feed"
	"github.com/barissdev/polylook/internal/fetch"
	"github.com/barissdev/polylook/internal/markets"
	"github.com/barissdev/polylook/internal/metrics"
	"github.com/barissdev/polylook/internal/polymarket/dataapi"
	"github.com/barissdev/polylook/internal/polymarket/gammaapi"
	"github.com/barissdev/polylook/internal/reconcile"
	"github.com/barissdev/polylook/internal/server"
	"github.com/barissdev/polylook/internal/watcher"
	"github.com/barissdev/polylook/internal/whales"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting polylook service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(logrus.Fields{
		"environment":         cfg.Environment,
		"data_api":            cfg.DataAPIBaseURL,
		"gamma_api":           cfg.GammaAPIBaseURL,
		"whale_threshold_usd": cfg.WhaleThresholdUSD,
		"whale_watch":         cfg.WhaleWatchEnabled,
		"api_port":            cfg.APIPort,
	}).Info("Configuration loaded")

	// Shared fetch client and API wrappers
	fetchClient := fetch.New(cfg, log)
	dataClient := dataapi.NewClient(cfg, fetchClient)
	gammaClient := gammaapi.NewClient(cfg, fetchClient)

	log.Info("API clients initialized")

	// Aggregation services
	reconciler := reconcile.New(dataClient, cfg, log)
	feedAgg := feed.New(dataClient, cfg, log)
	detector := whales.NewDetector(dataClient, cfg, log)
	marketsSvc := markets.NewService(gammaClient, log)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	// Metrics + health server
	go startMetricsServer(cfg.MetricsPort, log)

	// Optional background whale watcher
	if cfg.WhaleWatchEnabled {
		sender := createAlertSender(cfg, log)
		log.WithField("alert_mode", cfg.AlertMode).Info("Alert sender initialized")

		w := watcher.New(detector, sender, time.Duration(cfg.WhalePollIntervalSec)*time.Second, log)
		go w.Run(ctx)
	}

	// API server
	srv := server.New(cfg, log, dataClient, reconciler, feedAgg, detector, marketsSvc)
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Fatal("API server failed")
	}

	log.Info("Graceful shutdown complete")
}

func createAlertSender(cfg *config.Config, log *logrus.Logger) alerts.Sender {
	var senders []alerts.Sender

	for _, mode := range strings.Split(cfg.AlertMode, ",") {
		switch strings.TrimSpace(mode) {
		case "log":
			senders = append(senders, alerts.NewLogSender(log))
		case "discord":
			if cfg.DiscordWebhookURL == "" {
				log.Warn("Discord mode specified but DISCORD_WEBHOOK_URL not set")
				continue
			}
			senders = append(senders, alerts.NewDiscordSender(cfg.DiscordWebhookURL))
		default:
			log.WithField("mode", mode).Warn("Unknown alert mode, skipping")
		}
	}

	if len(senders) == 0 {
		log.Warn("No valid alert senders configured, using log")
		return alerts.NewLogSender(log)
	}
	if len(senders) == 1 {
		return senders[0]
	}
	return alerts.NewMultiSender(senders...)
}

func startMetricsServer(port int, log *logrus.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy"}`)
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ready"}`)
	})

	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.WithField("port", port).Info("Starting metrics server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("Metrics server failed")
	}
}
