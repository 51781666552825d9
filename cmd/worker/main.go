package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/mortgage-service/internal/config"
	"github.com/spec-kit/mortgage-service/internal/observability"
	"github.com/spec-kit/mortgage-service/internal/persistence"
	"github.com/spec-kit/mortgage-service/internal/processor"
	"github.com/spec-kit/mortgage-service/internal/queue"
	"github.com/spec-kit/mortgage-service/internal/repository"
	"github.com/spec-kit/mortgage-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Events.QueueURL == "" {
		log.Fatal("EVENTS_QUEUE_URL is required")
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	sqsClient, err := queue.NewSQSClient(ctx, cfg.Events.AWSRegion)
	if err != nil {
		logger.Fatal("failed to init sqs client", zap.Error(err))
	}
	consumer := queue.NewConsumer(sqsClient, cfg.Events.QueueURL, cfg.Events.WaitTimeSeconds, cfg.Events.MaxMessages)

	applicationRepo := repository.NewApplicationRepository(pg.PoolHandle())
	dedupe := processor.NewRedisDeduper(redis.Client, time.Duration(cfg.Events.DedupeTTLMinutes)*time.Minute)
	proc := processor.New(applicationRepo, dedupe, logger)

	w := worker.NewProcessorWorker(consumer, proc, logger)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker exited")
}
