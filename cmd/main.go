/**
 * @description
 * This is the main entry point for the collections service. It is responsible
 * for initializing all components of the service, including configuration,
 * database connection, the Billstack gateway client, the message broker, the
 * repository, the core application service, the cron scheduler and the HTTP
 * server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log/slog, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Loads the optional .env file.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/billstackclient: Client for the Billstack gateway API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Ibuchukwu/bine-web/internal/api"
	"github.com/Ibuchukwu/bine-web/internal/app"
	"github.com/Ibuchukwu/bine-web/internal/config"
	"github.com/Ibuchukwu/bine-web/internal/store"
	"github.com/Ibuchukwu/bine-web/pkg/billstackclient"
	"github.com/Ibuchukwu/bine-web/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load the optional .env file before the config reads the environment.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found; using environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting collections service", "port", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Initialize the RabbitMQ producer to publish payment lifecycle events.
	// This service only publishes; a fallback keeps payments flowing when
	// the broker is down.
	var events rabbitmq.Publisher
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		logger.Warn("rabbitmq producer unavailable; using fallback", "error", err)
		events = &rabbitmq.EventProducerFallback{}
	} else {
		defer producer.Close()
		events = producer
		logger.Info("rabbitmq producer connected")
	}

	// Initialize the Billstack gateway client.
	gateway := billstackclient.NewClient(cfg.BillstackAPIBaseURL, cfg.BillstackSecret)

	// Initialize the data access layer and the core application service.
	repository := store.NewPostgresRepository(dbpool)
	service := app.NewService(repository, gateway, events, logger, cfg.PoolLowWater, cfg.PoolBatchSize)

	// Start the timeout sweeper on its cron schedule.
	jobs := app.NewJobs(repository, events, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()
	logger.Info("timeout sweeper scheduled", "schedule", cfg.SweepSchedule)

	// Set up the HTTP router.
	handlers := api.NewHandlers(service, jobs, logger)
	webhook := api.NewWebhookHandler(service, cfg.BillstackIP1, cfg.BillstackIP2)
	router := api.Routes(handlers, webhook, cfg)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("shutdown complete")
}
