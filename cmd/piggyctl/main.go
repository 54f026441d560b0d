package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"piggybank/internal/config"
	"piggybank/internal/database"
	"piggybank/internal/events"
	"piggybank/internal/log"
	"piggybank/internal/security"
	"piggybank/internal/service"
)

func main() {
	// Define subcommands
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	statusCmd := flag.NewFlagSet("status", flag.ExitOnError)
	sweepCmd := flag.NewFlagSet("sweep", flag.ExitOnError)

	sweepTimeout := sweepCmd.Duration("timeout", time.Minute, "Abort the sweep after this long")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	var err error
	switch os.Args[1] {
	case "migrate":
		migrateCmd.Parse(os.Args[2:])
		err = withDB(cfg, handleMigrate(logger))

	case "status":
		statusCmd.Parse(os.Args[2:])
		err = withDB(cfg, handleStatus)

	case "sweep":
		sweepCmd.Parse(os.Args[2:])
		err = withDB(cfg, handleSweep(cfg, logger, *sweepTimeout))

	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", "command", os.Args[1], log.FieldError, err)
		os.Exit(1)
	}
}

func withDB(cfg *config.Config, fn func(db *database.DB) error) error {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func handleMigrate(logger *log.Logger) func(db *database.DB) error {
	return func(db *database.DB) error {
		if err := db.RunMigrations(); err != nil {
			return err
		}
		version, dirty, err := db.MigrationVersion()
		if err != nil {
			return err
		}
		logger.WithComponent(log.ComponentStorage).Info("migrations completed", "version", version, "dirty", dirty)
		return nil
	}
}

func handleStatus(db *database.DB) error {
	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return err
	}
	fmt.Printf("dialect:  %s\n", db.GetDialect().DriverName())
	fmt.Printf("version:  %d\n", version)
	fmt.Printf("dirty:    %t\n", dirty)
	return nil
}

func handleSweep(cfg *config.Config, logger *log.Logger, timeout time.Duration) func(db *database.DB) error {
	return func(db *database.DB) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.SessionDuration)
		hasher := security.NewBcryptHasher(cfg.PasswordHashCost)
		auth := service.NewAuthService(db, tokens, hasher, hasher, nil, logger)
		invitations := service.NewInvitationService(db, nil, events.Nop{}, cfg.InvitationTTL, logger)

		result, err := service.NewSweeper(auth, invitations, cfg.SweepInterval, logger).RunOnce(ctx)
		fmt.Printf("expired sessions removed:     %d\n", result.Sessions)
		fmt.Printf("expired invitations revoked:  %d\n", result.Invitations)
		return err
	}
}

func printUsage() {
	fmt.Println("Piggy Bank maintenance tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  piggyctl migrate              Apply pending schema migrations")
	fmt.Println("  piggyctl status               Show the schema version")
	fmt.Println("  piggyctl sweep [options]      Remove expired sessions and invitations once")
	fmt.Println()
	fmt.Println("Sweep Options:")
	fmt.Println("  -timeout <duration>    Abort after this long (default: 1m)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./piggybank.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
