package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ashmigelski/linkpulse/config"
	appmodel "github.com/ashmigelski/linkpulse/internal/app/model"
	apprepository "github.com/ashmigelski/linkpulse/internal/app/repository"
	appserver "github.com/ashmigelski/linkpulse/internal/app/server"
	appservice "github.com/ashmigelski/linkpulse/internal/app/service"
	"github.com/ashmigelski/linkpulse/internal/infra/logger"
	infraNATS "github.com/ashmigelski/linkpulse/internal/infra/nats"
	infraPostgres "github.com/ashmigelski/linkpulse/internal/infra/postgres"
	infraPrometheus "github.com/ashmigelski/linkpulse/internal/infra/prometheus"
	infraRedis "github.com/ashmigelski/linkpulse/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("base_url", cfg.App.BaseURL),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
		zap.Int("rate_limit_max", cfg.RateLimit.MaxRequests),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.Link{}, &appmodel.AnalyticsEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	eventRepo := apprepository.NewAnalyticsEventRepository(gormDB)

	publisher := appservice.NewClickPublisher(js)
	linkService := appservice.NewLinkService(linkRepo, publisher)
	analyticsService := appservice.NewAnalyticsService(linkRepo, eventRepo, redisClient, log)

	if err := linkService.WarmCodeFilter(ctx); err != nil {
		// Not fatal: the filter only skips probably-taken candidates.
		log.Warn("Failed to warm code prefilter", zap.Error(err))
	}

	consumer := appservice.NewClickConsumer(js, log, eventRepo)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start click consumer", zap.Error(err))
	}

	server := appserver.New(appserver.Dependencies{
		Logger:               log,
		Postgres:             pool,
		Redis:                redisClient,
		Links:                linkService,
		Analytics:            analyticsService,
		BaseURL:              cfg.App.BaseURL,
		RateLimitMaxRequests: cfg.RateLimit.MaxRequests,
		RateLimitWindow:      time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	})

	if err := server.Listen(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
