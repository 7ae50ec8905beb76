package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sessionbook/internal/booking"
	"sessionbook/internal/calendarsync"
	"sessionbook/internal/config"
	"sessionbook/internal/credit"
	"sessionbook/internal/db"
	"sessionbook/internal/events"
	"sessionbook/internal/logger"
	"sessionbook/internal/payment"
	"sessionbook/internal/schedule"
	"sessionbook/internal/server"
	"sessionbook/internal/sessiontype"
	"sessionbook/internal/subscription"
	"sessionbook/internal/tracing"

	"github.com/redis/go-redis/v9"
)

// @title SessionBook API
// @version 1.0
// @description Scheduling and booking engine for coached training sessions.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting SessionBook")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, "sessionbook", cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		logger.Fatalf("Failed to initialise tracing: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}

	publisher, err := events.New(cfg.EventBus, cfg.AMQPURL, cfg.AMQPExchange, cfg.NATSURL)
	if err != nil {
		logger.Fatalf("Failed to connect event bus: %v", err)
	}
	defer publisher.Close()

	cipher, err := calendarsync.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		logger.Fatalf("Invalid TOKEN_ENCRYPTION_KEY: %v", err)
	}
	if cfg.StripeWebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET is empty, every webhook will be rejected")
	}

	sessionTypes := sessiontype.NewService(sessiontype.NewRepository(database))
	schedules := schedule.NewService(schedule.NewRepository(database))
	subscriptions := subscription.NewService(subscription.NewRepository(database))
	credits := credit.NewService(credit.NewRepository(database))

	syncQueue := calendarsync.NewQueue(rdb)
	calendarRepo := calendarsync.NewRepository(database)
	provider := calendarsync.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.CalendarTimeout)
	calendar := calendarsync.NewService(calendarRepo, provider, cipher, syncQueue, rdb)
	worker := calendarsync.NewWorker(syncQueue, calendarsync.NewReconciler(calendarRepo, provider, cipher), cfg.CalendarTimeout)

	bookings := booking.NewService(booking.NewStore(database), sessionTypes, schedules, syncQueue, publisher)

	checkout := payment.NewStripeCheckout(cfg.StripeSecretKey, cfg.StripeTimeout, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	reconciler := payment.NewReconciler(payment.NewStore(database), publisher)

	srv := server.New(cfg, server.Handlers{
		Bookings:      booking.NewHandler(bookings),
		SessionTypes:  sessiontype.NewHandler(sessionTypes),
		Schedule:      schedule.NewHandler(schedules),
		Subscriptions: subscription.NewHandler(subscriptions),
		Credits:       credit.NewHandler(credits),
		Payments:      payment.NewHandler(payment.NewVerifier(cfg.StripeWebhookSecret), reconciler, checkout),
		Calendar:      calendarsync.NewHandler(calendar),
	},
		server.HealthCheck{Name: "postgres", Check: database.PingContext},
		server.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		worker.Run(ctx, cfg.CalendarWorkers)
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Errorf("Server error: %v", err)
		}
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	// Workers finish their current task before returning.
	cancel()
	workers.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Errorf("Error flushing traces: %v", err)
	}

	logger.Info("Server stopped")
}
