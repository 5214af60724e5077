// chardevd - bounded-buffer character device host
//
// This is the main entry point for the chardev host. It owns the lifecycle
// the core deliberately does not: it builds the device registry from
// configuration, records every operation to the audit trail, optionally
// exports throughput metrics, and tears the registry down exactly once on
// shutdown. Device access happens through an interactive console on stdin.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/chardev-core/migrations"

	"github.com/nerrad567/chardev-core/internal/audit"
	"github.com/nerrad567/chardev-core/internal/chardev"
	"github.com/nerrad567/chardev-core/internal/infrastructure/config"
	"github.com/nerrad567/chardev-core/internal/infrastructure/database"
	"github.com/nerrad567/chardev-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/chardev-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting chardevd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database for the operation audit trail
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}

	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Connect to InfluxDB (optional)
	var metrics *influxdb.Client
	if cfg.InfluxDB.Enabled {
		metrics, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := metrics.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		metrics.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Build the device registry
	registry, err := chardev.NewRegistry(chardev.Config{
		Count:      cfg.Devices.Count,
		Capacity:   cfg.Devices.Capacity,
		NamePrefix: cfg.Devices.NamePrefix,
	})
	if err != nil {
		return fmt.Errorf("building device registry: %w", err)
	}
	registry.SetLogger(log)
	defer func() {
		// Teardown runs exactly once, after the console has stopped. The
		// audit row is best effort: shutdown proceeds even if it fails.
		if auditErr := auditRepo.Create(context.Background(), &audit.Entry{
			Action: "teardown",
		}); auditErr != nil {
			log.Warn("recording teardown audit entry", "error", auditErr)
		}
		registry.Teardown()
	}()
	log.Info("device registry initialised",
		"devices", registry.Count(),
		"capacity", cfg.Devices.Capacity,
		"names", registry.Names(),
	)

	// Serve the interactive console until EOF, quit, or signal.
	con := newConsole(registry, auditRepo, metrics, log, os.Stdin, os.Stdout)
	return con.run(ctx)
}

// getConfigPath returns the config file path, preferring CHARDEV_CONFIG.
func getConfigPath() string {
	if path := os.Getenv("CHARDEV_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
