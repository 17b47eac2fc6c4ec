// Package main applies the db/schema migrations to the market-data
// database configured in config.yaml.
//
// Usage: migrate [up|down]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/your-org/ppo-trade-agent/internal/config"
	"github.com/your-org/ppo-trade-agent/pkg/logger"
)

func main() {
	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}
	if direction != "up" && direction != "down" {
		fmt.Fprintln(os.Stderr, "Usage: migrate [up|down]")
		os.Exit(1)
	}

	configPath := os.Getenv("APP_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.SetGlobalLogLevel(cfg.LogLevel)

	sourceURL := os.Getenv("MIGRATIONS_PATH")
	if sourceURL == "" {
		sourceURL = "file://db/schema"
	}

	m, err := migrate.New(sourceURL, cfg.Database.DSN()+"?sslmode=disable")
	if err != nil {
		logger.Fatalf("Failed to initialize migrations: %v", err)
	}
	defer m.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("Schema already up to date")
		return
	}
	if err != nil {
		logger.Fatalf("Migration %s failed: %v", direction, err)
	}
	logger.Infof("Migration %s applied", direction)
}
