package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/joho/godotenv"

	"github.com/light-bringer/worktrack-service/internal/app/product/repo"
	"github.com/light-bringer/worktrack-service/internal/config"
	"github.com/light-bringer/worktrack-service/internal/pkg/logging"
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

	database := flag.String("database", cfg.SpannerDatabase, "Spanner database (projects/P/instances/I/databases/D)")
	completedDays := flag.Int("completed-retention", 30, "Retention days for completed events")
	failedDays := flag.Int("failed-retention", 90, "Retention days for failed events")
	dryRun := flag.Bool("dry-run", false, "Report what would be deleted without deleting")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := spanner.NewClient(ctx, *database)
	if err != nil {
		logger.Error("failed to create spanner client", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Close()

	now := time.Now().UTC()
	completedCutoff := now.AddDate(0, 0, -*completedDays)
	failedCutoff := now.AddDate(0, 0, -*failedDays)

	logger.Info("starting outbox cleanup",
		slog.Time("completed_cutoff", completedCutoff),
		slog.Time("failed_cutoff", failedCutoff),
		slog.Bool("dry_run", *dryRun),
	)

	counts, err := repo.NewOutboxRepo(client).PurgeProcessed(ctx, completedCutoff, failedCutoff, *dryRun)
	if err != nil {
		logger.Error("outbox cleanup failed", slog.Any("error", err))
		os.Exit(1)
	}

	var total int64
	for status, n := range counts {
		total += n
		logger.Info("expired events", slog.String("status", status), slog.Int64("count", n))
	}
	if *dryRun {
		logger.Info("dry run finished, nothing deleted", slog.Int64("would_delete", total))
		return
	}
	logger.Info("outbox cleanup finished", slog.Int64("deleted", total))
}
