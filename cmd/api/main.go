package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consultly/internal/api"
	"consultly/internal/booking"
	"consultly/internal/client"
	"consultly/internal/config"
	"consultly/internal/database"
	"consultly/internal/domain"
	"consultly/internal/events"
	"consultly/internal/export"
	"consultly/internal/logging"
	"consultly/internal/metrics"
	"consultly/internal/payment"
	"consultly/internal/repository"
	"consultly/internal/service"
	"consultly/internal/session"
	"consultly/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	sessionRepo := initSessionRepository(cfg, redisClient, logger)

	bookingAPI := client.NewBookingClient(cfg.BookingAPI.BaseURL, cfg.BookingAPI.Timeout)
	paymentAPI := client.NewPaymentClient(cfg.PaymentAPI.BaseURL, cfg.PaymentAPI.KeyID, cfg.PaymentAPI.Timeout)
	if redisClient != nil {
		bookingAPI.UseRedisCache(redisClient, cfg.Cache.BookingTTL)
		paymentAPI.UseRedisCache(redisClient, cfg.Cache.MethodsTTL)
	}

	eventBus := events.NewEventBus()
	subscribeEventLog(eventBus, logging.Component(logger, "events"))

	policy := booking.NewPolicy(loc, cfg.Policy.CancelWindow)
	bookingService := service.NewBookingService(
		bookingAPI, sessionRepo, eventBus, policy, cfg.Session.LockTTL, logging.Component(logger, "bookings"),
	)
	reconciler := payment.NewReconciler(
		bookingAPI, paymentAPI, db, sessionRepo, eventBus, cfg.Session.LockTTL, logging.Component(logger, "payments"),
	)
	sessions := session.NewManager(sessionRepo, cfg.Session.TTL, logging.Component(logger, "sessions"))

	scheduler, err := startJobs(cfg, loc, db, logging.Component(logger, "jobs"))
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, api.Deps{
		Sessions: sessions,
		Bookings: bookingService,
		Payments: reconciler,
		Exporter: export.NewExporter(loc),
		Checks:   healthChecks(db, redisClient),
		Location: loc,
	}, logging.Component(logger, "http"))

	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis address not set, sessions and locks stay in memory")
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		// the failover repository keeps probing, so the client is kept
		logger.Warn().Err(err).Msg("redis connection failed, starting on in-memory fallback")
		return redisClient
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSessionRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) *repository.FailoverSessionRepository {
	fallback := repository.NewMemorySessionRepository(cfg.Session.TTL)
	var primary domain.SessionRepository = fallback
	if redisClient != nil {
		primary = repository.NewRedisSessionRepository(redisClient, cfg.Session.TTL)
	}
	return repository.NewFailoverSessionRepository(primary, fallback, logging.Component(logger, "sessions-store"))
}

func subscribeEventLog(bus *events.EventBus, logger *zerolog.Logger) {
	bus.SubscribeAll(events.All, func(event *events.Event) error {
		metrics.IncEvent(event.Type)
		logger.Info().Str("event", event.Type).RawJSON("payload", event.Payload).Msg("event published")
		return nil
	})
}

func startJobs(cfg *config.Config, loc *time.Location, db *database.DB, logger *zerolog.Logger) (*worker.Scheduler, error) {
	scheduler := worker.NewScheduler(loc, logger)

	janitor := worker.NewAttemptJanitor(db, cfg.Jobs.AttemptTTL, logger)
	if err := scheduler.Add("attempt-janitor", cfg.Jobs.AttemptJanitorSchedule, worker.RetryPolicy{}, janitor.Run); err != nil {
		return nil, err
	}

	backup := database.NewBackupService(db, cfg.Backup, logger)
	if backup.Enabled() {
		policy := worker.RetryPolicy{MaxRetries: 3, InitialDelay: 30 * time.Second, MaxDelay: 5 * time.Minute, BackoffFactor: 2}
		if err := scheduler.Add("journal-backup", cfg.Backup.Schedule, policy, backup.Run); err != nil {
			return nil, err
		}
	}

	scheduler.Start()
	return scheduler, nil
}

func healthChecks(db *database.DB, redisClient *redis.Client) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"journal": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return repository.Ping(ctx, redisClient)
		}
	}
	return checks
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("version", cfg.App.Version).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
