package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Caolboy/LABERS-HOST/api"
	"github.com/Caolboy/LABERS-HOST/config"
	"github.com/Caolboy/LABERS-HOST/internal/bootstrap"
	"github.com/Caolboy/LABERS-HOST/internal/cache"
	"github.com/Caolboy/LABERS-HOST/internal/email"
	"github.com/Caolboy/LABERS-HOST/internal/kafka"
	"github.com/Caolboy/LABERS-HOST/internal/logger"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
	"github.com/Caolboy/LABERS-HOST/internal/service/auth"
	"github.com/Caolboy/LABERS-HOST/internal/service/booking"
	"github.com/Caolboy/LABERS-HOST/internal/service/catalog"
	"github.com/Caolboy/LABERS-HOST/internal/service/registration"
	"github.com/Caolboy/LABERS-HOST/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal(logger.New(logger.Config{}), "load config", "path", cfgPath, "error", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "labers-api"})
	if err := run(cfg, log); err != nil {
		logger.Fatal(log, "server error", "error", err)
	}
}

// run owns every connection it opens; they are closed before it returns.
func run(cfg *config.Config, log *slog.Logger) error {
	if logger.ParseLevel(cfg.Log.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	location, err := cfg.Booking.Location()
	if err != nil {
		return fmt.Errorf("load booking timezone: %w", err)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.CatalogCacheTTLSecs)*time.Second)
	defer redisCache.Close()
	otpStore := cache.NewOTPStore(redisCache.Client(), cfg.OTP.TTL(), cfg.OTP.Cooldown(), cfg.OTP.MaxAttempts)

	producer := kafka.NewProducer(
		cfg.Kafka.Brokers,
		kafka.WithRetries(cfg.Booking.NotificationRetries),
		kafka.WithProducerLogger(log),
	)
	defer producer.Close()

	mailer, err := email.New(cfg.Mail, log)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	validate := validator.New()
	userRepo := repository.NewUserRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	bookingStore := repository.NewBookingRepository(pool)

	authService := auth.NewAuthService(
		userRepo,
		validate,
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		cfg.Auth.TokenTTL(),
		auth.WithLogger(log),
	)
	registrationService := registration.NewRegistrationService(
		otpStore,
		userRepo,
		mailer,
		validate,
		registration.WithSubject(cfg.OTP.Subject),
		registration.WithTTL(cfg.OTP.TTL()),
		registration.WithLogger(log),
	)
	catalogService := catalog.NewCatalogService(catalogRepo, redisCache, catalog.WithLogger(log))
	bookingService := booking.NewBookingService(
		bookingStore,
		userRepo,
		producer,
		validate,
		cfg.Kafka.BookingTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithCatalogInvalidator(redisCache),
		booking.WithLocation(location),
		booking.WithLogger(log),
	)
	// Let in-flight event publishing finish before the producer closes.
	defer bookingService.Wait()

	router := api.NewRouter(log, api.Handlers{
		Auth:    api.NewAuthHandler(authService, registrationService),
		Catalog: api.NewCatalogHandler(catalogService),
		Booking: api.NewBookingHandler(bookingService),
		Tokens:  authService,
	})

	checks := []bootstrap.Check{
		{Name: "postgres", Ping: pool.Ping},
		{Name: "redis", Ping: redisCache.Ping},
		{Name: "kafka", Ping: producer.CheckConnection},
	}
	return bootstrap.Run(ctx, cfg, log, router, checks...)
}
