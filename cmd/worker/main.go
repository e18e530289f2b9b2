package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Caolboy/LABERS-HOST/config"
	"github.com/Caolboy/LABERS-HOST/internal/email"
	"github.com/Caolboy/LABERS-HOST/internal/kafka"
	"github.com/Caolboy/LABERS-HOST/internal/logger"
	"github.com/Caolboy/LABERS-HOST/internal/notify"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
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

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "labers-worker"})
	if err := run(cfg, log); err != nil {
		logger.Fatal(log, "worker error", "error", err)
	}
	log.Info("worker stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	mailer, err := email.New(cfg.Mail, log)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	notifier := notify.NewNotifier(
		repository.NewUserRepository(pool),
		mailer,
		cfg.Booking.BookingMadeSubject,
		notify.WithRetries(cfg.Booking.NotificationRetries, time.Second),
		notify.WithLogger(log),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	log.Info("worker started", "topic", cfg.Kafka.NotificationsTopic, "group", cfg.Kafka.GroupID)
	if err := consumer.Consume(ctx, notifier.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer stopped: %w", err)
	}
	return nil
}
