package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"homeservices/internal/app"
	"homeservices/internal/config"
	"homeservices/internal/handler"
	"homeservices/internal/logging"
	"homeservices/internal/notify"
	internalRedis "homeservices/internal/redis"
	"homeservices/internal/repository/postgres"
	"homeservices/internal/service"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic comes first so the database and Redis clients can be instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
			nrApp = nil
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL", "host", cfg.Database.Host, "migrated", cfg.Database.Migrate)

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis", "addr", cfg.Redis.Addr)

	dispatcher := newDispatcher(cfg, logger)
	server := wireServer(db, redisClient, dispatcher, nrApp, cfg, logger)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	// Handlers are done, drain pending notifications before the sink goes away.
	if err := dispatcher.Close(); err != nil {
		logger.Warn("failed to close notification sink", "error", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}

	logger.Info("server exited")
}

// newDispatcher publishes to Kafka when brokers are configured and to the log otherwise.
func newDispatcher(cfg *config.Config, logger *slog.Logger) *notify.Dispatcher {
	var sink notify.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		sink = notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic)
		logger.Info("notifications go to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.NotificationsTopic)
	} else {
		sink = notify.NewLogSink(logger)
	}
	return notify.NewDispatcher(sink, logger, notify.Options{
		BufferSize:      cfg.Notify.BufferSize,
		Workers:         cfg.Notify.Workers,
		DeliveryTimeout: cfg.Notify.DeliveryTimeout,
	})
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	notifier notify.Notifier,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *slog.Logger,
) *http.Server {
	locationStore := internalRedis.NewLocationStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	idempotencyStore := internalRedis.NewIdempotencyStore(redisClient)

	providerRepo := postgres.NewProviderRepository(db)
	clientRepo := postgres.NewClientRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	jobRepo := postgres.NewJobRepository(db)
	txRunner := postgres.NewTxRunner(db)

	notifications := service.NewNotificationService(notifier)
	matchingService := service.NewMatchingService(locationStore, cacheStore, providerRepo, service.MatchingOptions{
		DefaultRadiusMeters: cfg.Matching.DefaultRadiusMeters,
		MaxRadiusMeters:     cfg.Matching.MaxRadiusMeters,
		MaxResults:          cfg.Matching.MaxResults,
	}, logger)
	ratingService := service.NewRatingService(providerRepo, cacheStore, logger)
	jobService := service.NewJobService(txRunner, jobRepo, notifications, logger)
	bookingService := service.NewBookingService(
		txRunner, bookingRepo, clientRepo, matchingService, jobService, ratingService,
		locationStore, notifications, logger,
	)
	paymentService := service.NewPaymentService(bookingRepo, notifications, logger)
	providerService := service.NewProviderService(locationStore, cacheStore, providerRepo, logger)
	clientService := service.NewClientService(clientRepo)

	router := app.NewRouter(app.RouterDeps{
		ProviderHandler:  handler.NewProviderHandler(providerService, matchingService, clientService),
		ClientHandler:    handler.NewClientHandler(clientService),
		BookingHandler:   handler.NewBookingHandler(bookingService, paymentService, jobService),
		JobHandler:       handler.NewJobHandler(jobService),
		IdempotencyStore: idempotencyStore,
		LockStore:        lockStore,
		CORSOrigins:      cfg.Server.CORSOrigins,
		NewRelicApp:      nrApp,
		Logger:           logger,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
