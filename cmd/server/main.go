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

	"github.com/RishiKendai/cheatcheck/internal/api"
	"github.com/RishiKendai/cheatcheck/internal/config"
	"github.com/RishiKendai/cheatcheck/internal/configs/env"
	"github.com/RishiKendai/cheatcheck/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/cheatcheck/internal/infra/redis"
	"github.com/RishiKendai/cheatcheck/internal/ingest"
	"github.com/RishiKendai/cheatcheck/internal/logger"
	"github.com/RishiKendai/cheatcheck/internal/metrics"
	"github.com/RishiKendai/cheatcheck/internal/repository"
	"github.com/RishiKendai/cheatcheck/internal/status"
	"github.com/RishiKendai/cheatcheck/internal/stream"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.ValidateEngine(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}
	if err := cfg.ValidateServer(); err != nil {
		panic(fmt.Sprintf("Invalid server configuration: %v", err))
	}

	logger.Init(cfg.LogLevel)
	log.Info().Msg("Starting cheatcheck server")

	metrics.InitPrometheus()
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.MetricsHandler())
	metricsServer := api.StartServer("metrics", metricsMux, cfg.MetricsPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect MongoDB
	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(context.Background())

	// Connect Redis
	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	mongoRepo := repository.NewMongoRepository(mongoClient)
	submissionsRepo := repository.NewSubmissionsRepository(mongoRepo)
	if err := submissionsRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure submission indexes")
	}

	ingestSvc := ingest.NewService(submissionsRepo, ingest.DefaultMaxSourceBytes)
	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(redisClient.Client, ingestSvc, retryHandler, stream.Options{
		StreamKey: cfg.RedisStreamKey,
		Group:     cfg.RedisConsumerGroup,
		Name:      consumerName,
		Retention: cfg.StreamRetentionDuration,
	})
	log.Info().Str("consumer_name", consumerName).Msg("Redis stream consumer initialized")

	statusTracker := status.NewTracker(redisClient.Client)
	router := api.SetupRoutes(cfg, submissionsRepo, statusTracker)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()
	log.Info().Msg("Redis consumer started")

	srv := api.StartServer("api", router, cfg.ServerPort)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down API server")
	}

	cancel()
	select {
	case <-consumerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Redis consumer did not stop in time")
	}

	if err := api.ShutdownServer(metricsServer, 5*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}
