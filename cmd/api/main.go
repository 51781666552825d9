package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/mortgage-service/internal/api/http"
	"github.com/spec-kit/mortgage-service/internal/api/http/handlers"
	"github.com/spec-kit/mortgage-service/internal/auth"
	"github.com/spec-kit/mortgage-service/internal/config"
	"github.com/spec-kit/mortgage-service/internal/events"
	"github.com/spec-kit/mortgage-service/internal/observability"
	"github.com/spec-kit/mortgage-service/internal/persistence"
	"github.com/spec-kit/mortgage-service/internal/repository"
	"github.com/spec-kit/mortgage-service/internal/service"
	"github.com/spec-kit/mortgage-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	officerRepo := repository.NewOfficerRepository(pool)
	applicationRepo := repository.NewApplicationRepository(pool)
	historyRepo := repository.NewStatusHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	publisher := events.Publisher(dispatcher)
	if cfg.Events.TopicARN != "" {
		snsClient, err := events.NewSNSClient(ctx, cfg.Events.AWSRegion)
		if err != nil {
			logger.Fatal("failed to init sns client", zap.Error(err))
		}
		publisher = events.NewFanOut(dispatcher, events.NewSNSPublisher(snsClient, cfg.Events.TopicARN))
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:    userRepo,
		OfficerRepo: officerRepo,
	})
	applicationService := service.NewApplicationService(service.ApplicationDependencies{
		ApplicationRepo: applicationRepo,
		HistoryRepo:     historyRepo,
		Publisher:       publisher,
		Logger:          logger,
	})

	var emailSender service.EmailSender
	if cfg.Notification.EmailFrom != "" {
		sesClient, err := service.NewSESClient(ctx, cfg.Events.AWSRegion)
		if err != nil {
			logger.Warn("ses client unavailable, email notifications disabled", zap.Error(err))
		} else {
			emailSender = sesClient
		}
	}
	notificationService := service.NewNotificationService(dispatcher, emailSender, userRepo, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, officerRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	usersHandler := handlers.NewUsersHandler(authService)
	applicationsHandler := handlers.NewApplicationsHandler(applicationService)
	reviewHandler := handlers.NewReviewHandler(applicationService)

	idempotencyTTL := time.Duration(cfg.Events.IdempotencyTTLMins) * time.Minute
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Users:          usersHandler,
		Applications:   applicationsHandler,
		Review:         reviewHandler,
		AuthMiddleware: authMiddleware,
		Idempotency:    httptransport.IdempotencyMiddleware(redis.Client, idempotencyTTL, logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
