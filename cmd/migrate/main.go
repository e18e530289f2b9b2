package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/Caolboy/LABERS-HOST/config"
	"github.com/Caolboy/LABERS-HOST/internal/logger"
	"github.com/Caolboy/LABERS-HOST/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"
)

// Usage: migrate [up|down|version|force N]
func main() {
	_ = godotenv.Load()
	flag.Parse()

	log := logger.New(logger.Config{Format: "text", Service: "labers-migrate"})

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal(log, "load config", "path", cfgPath, "error", err)
	}

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}
	if err := run(cfg, log, command, flag.Arg(1)); err != nil {
		logger.Fatal(log, "migration failed", "command", command, "error", err)
	}
}

func run(cfg *config.Config, log *slog.Logger, command, arg string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.Database.MigrateURL())
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "force":
		var v int
		v, err = strconv.Atoi(arg)
		if err == nil {
			err = m.Force(v)
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read version: %w", err)
	}
	log.Info("migrations applied", "command", command, "version", version, "dirty", dirty)
	return nil
}
