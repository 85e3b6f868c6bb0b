package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	// Application
	"github.com/dreschagin/qtrack/internal/application/port"
	"github.com/dreschagin/qtrack/internal/application/usecase"

	// Domain
	"github.com/dreschagin/qtrack/internal/domain/repository"
	"github.com/dreschagin/qtrack/internal/domain/service"

	// Infrastructure
	redisCache "github.com/dreschagin/qtrack/internal/infrastructure/cache/redis"
	"github.com/dreschagin/qtrack/internal/infrastructure/collector"
	natsInfra "github.com/dreschagin/qtrack/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/qtrack/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/qtrack/internal/infrastructure/observability/cloudwatch"
	metrics "github.com/dreschagin/qtrack/internal/infrastructure/observability/prometheus"
	dynamodbStore "github.com/dreschagin/qtrack/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/qtrack/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/qtrack/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/qtrack/internal/infrastructure/storage/s3"

	// Interfaces
	httpInterface "github.com/dreschagin/qtrack/internal/interfaces/http"
	"github.com/dreschagin/qtrack/internal/interfaces/http/handler"
	"github.com/dreschagin/qtrack/internal/interfaces/http/middleware"
	"github.com/dreschagin/qtrack/internal/qualityrunner"

	// Shared
	"github.com/dreschagin/qtrack/pkg/config"
	"github.com/dreschagin/qtrack/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, quality runner and WebSocket hub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()
	log.Info("Starting qtrack", "storage", cfg.Storage.Backend)

	readiness := make(map[string]httpInterface.ReadinessCheck)

	// 3. Хранилище сущностей
	store, err := openStore(ctx, cfg, readiness)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close store", err)
		}
	}()

	// 4. Observability: Prometheus и CloudWatch
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMetrics := metrics.New(registry)

	awsCfg := cloudwatch.AWSConfig{
		Region:          cfg.CloudWatch.Region,
		Endpoint:        cfg.CloudWatch.Endpoint,
		AccessKeyID:     cfg.CloudWatch.AccessKeyID,
		SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
	}

	var cloudwatchMetrics port.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		publisher, initErr := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			AWSConfig:         awsCfg,
			Namespace:         cfg.CloudWatch.MetricsNamespace,
			DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
			BufferSize:        cfg.CloudWatch.MetricsBufferSize,
			FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
			Logger:            log,
		})
		if initErr != nil {
			return fmt.Errorf("failed to initialize CloudWatch metrics publisher: %w", initErr)
		}
		cloudwatchMetrics = publisher
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publisher.Close(closeCtx); err != nil {
				log.Error("Failed to close CloudWatch metrics publisher", err)
			}
		}()
		log.Info("CloudWatch metrics publisher initialized", "namespace", cfg.CloudWatch.MetricsNamespace)
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	if cfg.CloudWatch.LogsEnabled {
		logsPublisher, initErr := cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			AWSConfig:     awsCfg,
			LogGroupName:  cfg.CloudWatch.LogGroupName,
			LogStreamName: cfg.CloudWatch.LogStreamName,
			BufferSize:    cfg.CloudWatch.LogsBufferSize,
			FlushInterval: cfg.CloudWatch.LogsFlushInterval,
			AutoCreate:    true,
		})
		if initErr != nil {
			return fmt.Errorf("failed to initialize CloudWatch logs publisher: %w", initErr)
		}
		log.SetLogPublisher(logsPublisher)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.SetLogPublisher(nil)
			if err := logsPublisher.Close(closeCtx); err != nil {
				log.Error("Failed to close CloudWatch logs publisher", err)
			}
		}()
		log.Info("CloudWatch logs publisher initialized", "group", cfg.CloudWatch.LogGroupName)
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// 5. NATS, Redis и S3 - все опциональны
	var eventPublisher port.EventPublisher
	if cfg.NATS.Enabled {
		publisher, initErr := natsInfra.NewEventPublisher(cfg.NATS.URL, cfg.NATS.Subject, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisher
			defer func() { _ = publisher.Close() }()
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	var cache port.Cache
	if cfg.Redis.Enabled {
		redisClient, initErr := redisCache.NewCache(ctx, redisCache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.AnalyticsTTL,
		})
		if initErr != nil {
			log.Warn("Failed to connect to Redis, analytics cache disabled", "error", initErr.Error())
		} else {
			cache = redisClient
			readiness["redis"] = redisClient.Ping
			defer func() { _ = redisClient.Close() }()
			log.Info("Redis analytics cache initialized", "addr", cfg.Redis.Addr)
		}
	}

	var attachmentStorage port.AttachmentStorage
	if cfg.S3.Enabled {
		storage, initErr := s3storage.NewAttachmentStorage(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if initErr != nil {
			return fmt.Errorf("failed to initialize attachment storage: %w", initErr)
		}
		attachmentStorage = storage
		log.Info("S3 attachment storage initialized", "bucket", cfg.S3.Bucket)
	} else {
		log.Warn("S3 storage is disabled, attachment uploads will return 503")
	}

	// 6. Domain Layer: gates, сборщик метрик
	gatesFile, err := collector.LoadGatesFile(cfg.Quality.GatesFile)
	if err != nil {
		return err
	}

	var probe port.HostProbe
	if cfg.Quality.HostProbeEnabled {
		probe = collector.NewHostProbe(0, "/")
	}

	metricsCollector := service.NewMetricsCollector(
		gatesFile.Baseline.SubCollectors(probe, log),
		service.WithRetention(cfg.Quality.Retention()),
		service.WithDefaultLimit(cfg.Quality.HistoryLimit),
	)
	gateManager := service.NewQualityGateManager(gatesFile.Gates)

	// 7. Application Layer (Use Cases)
	hub := wsInfra.NewHub(log)
	events := usecase.NewEventDispatcher(hub, eventPublisher, cfg.NATS.Subject, log)
	activity := usecase.NewActivityLogger(store, log)

	gates := usecase.NewQualityGatesUseCase(metricsCollector, gateManager, events, log)
	history := usecase.NewMetricsHistoryUseCase(metricsCollector, service.NewSnapshotValidator(), log)
	cycle := usecase.NewRunQualityCycleUseCase(gates, events, log, promMetrics, cloudwatchMetrics)
	runner := qualityrunner.NewRunner(cycle, log, cfg.Quality.CollectionInterval)
	readiness["quality_runner"] = func(context.Context) error { return runner.Ready() }

	testCases := usecase.NewTestCaseUseCase(store, activity, events, log)
	users := usecase.NewUserUseCase(store, activity, log)
	attachments := usecase.NewAttachmentUseCase(attachmentStorage, store, activity, usecase.AttachmentsConfig{
		KeyPrefix: cfg.S3.KeyPrefix,
		MaxBytes:  cfg.Attachment.MaxBytes,
	}, log)

	// 8. Interfaces Layer (HTTP)
	handlers := httpInterface.Handlers{
		Quality:     handler.NewQualityHandler(gates, history, runner, log),
		Tickets:     handler.NewTicketHandler(usecase.NewTicketUseCase(store, activity, events, log), log),
		Comments:    handler.NewCommentHandler(usecase.NewCommentUseCase(store, activity, events, log), log),
		Attachments: handler.NewAttachmentHandler(attachments, cfg.Attachment.MaxBytes, log),
		TestCases:   handler.NewTestCaseHandler(testCases, log),
		TestSuites:  handler.NewTestSuiteHandler(usecase.NewTestSuiteUseCase(store, testCases, activity, log), log),
		Users:       handler.NewUserHandler(users, log),
		Activity:    handler.NewActivityHandler(activity, log),
		Analytics:   handler.NewAnalyticsHandler(usecase.NewAnalyticsUseCase(store, activity, cache, log), log),
		WebSocket:   handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, log),
	}

	var rateLimiter *middleware.IPRateLimiter
	if cfg.Security.RateLimitPerMinute > 0 {
		rateLimiter = middleware.NewIPRateLimiter(cfg.Security.RateLimitPerMinute, 0)
	}
	router := httpInterface.NewRouter(handlers, httpInterface.Options{
		Security:    cfg.Security,
		Metrics:     promMetrics,
		Gatherer:    registry,
		Users:       users,
		RateLimiter: rateLimiter,
		Readiness:   readiness,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 9. Запускаем фоновые процессы и сервер
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return runner.Run(gctx) })
	if rateLimiter != nil {
		g.Go(func() error { return rateLimiter.Run(gctx) })
	}

	g.Go(func() error {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	// 10. Graceful shutdown по сигналу или ошибке любой задачи
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received, starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", err)
		}
		if err := cycle.Flush(shutdownCtx); err != nil {
			log.Error("Failed to flush metrics publishers", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("qtrack stopped with error", err)
		return err
	}

	log.Info("Server stopped gracefully")
	return nil
}

// openStore выбирает backend хранилища и регистрирует его проверку готовности
func openStore(ctx context.Context, cfg *config.Config, readiness map[string]httpInterface.ReadinessCheck) (repository.Store, error) {
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		store, err := postgres.Open(ctx, cfg.Database.DSN(), postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, err
		}
		readiness["postgres"] = store.Ping
		return store, nil

	case config.StorageDynamo:
		store, err := dynamodbStore.NewStore(ctx, dynamodbStore.Config{
			TableName:       cfg.Dynamo.TableName,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
			AutoCreate:      cfg.Dynamo.AutoCreate,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return memory.NewStore(), nil
	}
}
