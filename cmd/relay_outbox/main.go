package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/spanner"
	"github.com/joho/godotenv"

	"github.com/light-bringer/worktrack-service/internal/app/product/outbox"
	"github.com/light-bringer/worktrack-service/internal/app/product/repo"
	"github.com/light-bringer/worktrack-service/internal/config"
	"github.com/light-bringer/worktrack-service/internal/pkg/logging"
	"github.com/light-bringer/worktrack-service/internal/transport/kafka"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("invalid log level", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(level, cfg.LogFormat)
	slog.SetDefault(logger)

	batch := flag.Int("batch", 100, "Events fetched per poll")
	interval := flag.Duration("interval", outbox.DefaultInterval, "Poll interval")
	once := flag.Bool("once", false, "Relay one batch and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := spanner.NewClient(ctx, cfg.SpannerDatabase)
	if err != nil {
		logger.Error("failed to create spanner client", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Close()

	publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	relay := outbox.NewRelay(repo.NewOutboxRepo(client), publisher, *batch, logger)

	if *once {
		stats, err := relay.RunOnce(ctx)
		if err != nil {
			logger.Error("relay failed", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("relay finished", slog.Int("published", stats.Published), slog.Int("failed", stats.Failed))
		return
	}

	logger.Info("outbox relay started",
		slog.String("topic", cfg.KafkaTopic),
		slog.Duration("interval", *interval),
	)
	if err := relay.Run(ctx, *interval); err != nil && ctx.Err() == nil {
		logger.Error("relay stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("outbox relay stopped")
}
