package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"piggybank/internal/config"
	"piggybank/internal/database"
	"piggybank/internal/events"
	"piggybank/internal/handlers"
	"piggybank/internal/log"
	"piggybank/internal/security"
	"piggybank/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()

	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", log.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	storeLogger := logger.WithComponent(log.ComponentStorage)
	storeLogger.Info("database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(); err != nil {
		return err
	}
	if version, dirty, err := db.MigrationVersion(); err == nil {
		storeLogger.Info("migrations completed", "version", version, "dirty", dirty)
	}

	// Domain events go to RabbitMQ when configured
	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		publisher = amqpPublisher
		logger.WithComponent(log.ComponentAMQP).Info("publishing events", "exchange", cfg.AMQPExchange)
	}
	defer publisher.Close()

	emailService, err := service.NewEmailService(ctx, service.EmailConfig{
		Region:     cfg.SESRegion,
		FromEmail:  cfg.SESFromEmail,
		FromName:   cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
		Debug:      cfg.EmailDebug,
	}, logger)
	if err != nil {
		return err
	}

	// Initialize services
	passwords := security.NewBcryptHasher(cfg.PasswordHashCost)
	pins := security.NewBcryptHasher(cfg.PINHashCost)
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.SessionDuration)

	lockout := security.NewLoginLockout(cfg.LoginMaxFailures, cfg.LoginLockout)

	authService := service.NewAuthService(db, tokens, passwords, pins, lockout, logger)
	familyService := service.NewFamilyService(db, pins, logger)
	ledgerService := service.NewLedgerService(db, publisher, cfg.LedgerMaxRetries, logger)
	invitationService := service.NewInvitationService(db, emailService, publisher, cfg.InvitationTTL, logger)
	membershipService := service.NewMembershipService(db, authService, passwords, publisher, logger)
	sweeper := service.NewSweeper(authService, invitationService, cfg.SweepInterval, logger)

	// Initialize handlers
	limiter := security.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	clientIPs, err := security.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	middleware := handlers.NewMiddleware(authService, limiter, clientIPs, logger)
	router := handlers.NewRouter(middleware, handlers.Handlers{
		Health:       handlers.NewHealthHandler(db),
		Auth:         handlers.NewAuthHandler(authService, membershipService),
		Parent:       handlers.NewParentHandler(familyService),
		Transactions: handlers.NewTransactionHandler(ledgerService),
		Invitations:  handlers.NewInvitationHandler(invitationService),
	})

	server := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        withCORS(cfg, router),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})

	g.Go(func() error {
		lockout.Run(gctx)
		return nil
	})

	return g.Wait()
}

// withCORS allows the configured browser origins; with none configured,
// development accepts any origin and production none.
func withCORS(cfg *config.Config, next http.Handler) http.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 && !cfg.IsProduction() {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", handlers.RequestIDHeader},
		ExposedHeaders: []string{handlers.RequestIDHeader, "Retry-After"},
		MaxAge:         600,
	}).Handler(next)
}
