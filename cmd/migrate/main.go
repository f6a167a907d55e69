package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/moodart/backend/internal/config"
	"github.com/zhouzirui/moodart/backend/internal/logging"
	"github.com/zhouzirui/moodart/backend/internal/repository/postgres"
)

func main() {
	command := flag.String("command", "up", "migration command: up, status or down")
	target := flag.Int64("target", 0, "version to roll back to (down only, 0 = latest only)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("failed to configure logging: %v", err)
	}

	if err := run(*command, *target, *timeout, cfg.Database, logger); err != nil {
		logger.WithError(err).Error("migration failed")
		os.Exit(1)
	}
}

func run(command string, target int64, timeout time.Duration, cfg config.DatabaseConfig, logger *logrus.Logger) error {
	if !cfg.Enabled() {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator, err := postgres.NewMigrator(db, logger)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		return migrator.Up(ctx)
	case "status":
		return migrator.Status(ctx)
	case "down":
		return migrator.Down(ctx, target)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
