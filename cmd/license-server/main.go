// The license server backing the Twitch Ad Crusher browser extension:
// mints license keys on completed Stripe checkouts and answers the
// extension's lookup and validation calls.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/api"
	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/config"
	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/licensing"
	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/metrics"
	"github.com/goldstargamingtv-droid/twitch-ad-crusher/pkg/server"
)

var (
	configPath    = flag.String("config", "", "Path to YAML config file (optional)")
	port          = flag.String("port", "", "HTTP server port (or set PORT)")
	databaseURL   = flag.String("database-url", "", "PostgreSQL connection string (or set DATABASE_URL)")
	webhookSecret = flag.String("webhook-secret", "", "Stripe webhook signing secret (or set STRIPE_WEBHOOK_SECRET)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Flags win over file and environment
	if *port != "" {
		cfg.Port = *port
	}
	if *databaseURL != "" {
		cfg.DatabaseURL = *databaseURL
	}
	if *webhookSecret != "" {
		cfg.StripeWebhookSecret = *webhookSecret
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.StripeWebhookSecret == "" {
		logger.Warn("no Stripe webhook secret configured - webhook events will be rejected")
	}

	svc := licensing.NewService(store, newMailer(cfg, logger), logger)
	reg := metrics.NewRegistry()

	apiServer := api.NewServer(svc, store, cfg.StripeWebhookSecret, cfg.AdminToken, logger, reg)

	logger.Info("license server starting",
		"port", cfg.Port,
		"database", cfg.DatabaseURL != "",
	)

	gs := server.NewGracefulServer(":"+cfg.Port, apiServer.Routes(), logger)
	if err := gs.Start(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}

// openStore prefers PostgreSQL and falls back to the JSON file store so the
// server still comes up without a database in local development.
func openStore(cfg *config.Config, logger *slog.Logger) (licensing.LicenseStore, error) {
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("initializing PostgreSQL store")
		store, err := licensing.NewPGStore(ctx, cfg.DatabaseURL)
		if err == nil {
			return store, nil
		}
		logger.Error("failed to initialize PostgreSQL store", "error", err)
		logger.Info("falling back to JSON file store")
	}

	logger.Info("initializing JSON file store", "data_dir", cfg.DataDir)
	return licensing.NewFileStore(cfg.DataDir)
}

func newMailer(cfg *config.Config, logger *slog.Logger) licensing.Mailer {
	emailCfg := &licensing.EmailConfig{
		SMTPHost:     cfg.SMTP.Host,
		SMTPPort:     cfg.SMTP.Port,
		SMTPUsername: cfg.SMTP.Username,
		SMTPPassword: cfg.SMTP.Password,
		FromEmail:    cfg.SMTP.From,
		FromName:     cfg.SMTP.FromName,
	}
	if emailCfg.IsConfigured() {
		logger.Info("SMTP mailer configured", "host", emailCfg.SMTPHost)
		return licensing.NewSMTPMailer(emailCfg)
	}

	logger.Warn("SMTP not configured - license keys will only be logged")
	return licensing.NewLogMailer(logger)
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
