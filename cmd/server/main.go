package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmadqo/bengkel-pinjam/internal/config"
	"github.com/ahmadqo/bengkel-pinjam/internal/database"
	"github.com/ahmadqo/bengkel-pinjam/internal/handler"
	"github.com/ahmadqo/bengkel-pinjam/internal/realtime"
	"github.com/ahmadqo/bengkel-pinjam/internal/repository"
	"github.com/ahmadqo/bengkel-pinjam/internal/service"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

// @title           Bengkel Pinjam API
// @version         1.0
// @description     Backend peminjaman alat bengkel sekolah.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	logger := utils.NewLogger(&cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Database ─────────────────────────────────────
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations"
	}
	if _, err := database.RunMigrations(ctx, db, migrationsPath, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	seeder := database.NewSeeder(db, logger)
	if _, err := seeder.SeedAdmin(ctx, os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		logger.Warn("seed admin failed", "error", err)
	}

	// ── Object storage ───────────────────────────────
	storage, err := utils.NewObjectStore(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("connect object storage: %w", err)
	}
	logger.Info("object storage ready", "driver", cfg.Storage.Driver, "bucket", cfg.Storage.Bucket)

	// ── Realtime ─────────────────────────────────────
	hub := realtime.NewHub(logger.With("component", "realtime"))
	go hub.Run(ctx)

	// ── Repositories ─────────────────────────────────
	tx := repository.NewTransactor(db)
	profileRepo := repository.NewProfileRepository(db)
	itemRepo := repository.NewItemRepository(db)
	loanRepo := repository.NewLoanRepository(db)

	// ── Services ─────────────────────────────────────
	authService := service.NewAuthService(profileRepo, &cfg.JWT)
	verificationService := service.NewVerificationService(
		profileRepo, tx, profileRepo, hub, cfg.Verification.Roles, logger.With("component", "verification"),
	)
	itemService := service.NewItemService(itemRepo, loanRepo, tx, storage, hub, logger.With("component", "inventory"))
	loanService := service.NewLoanService(
		loanRepo, itemRepo, profileRepo, tx, hub,
		service.SlipConfig{PublicURL: cfg.App.PublicURL, SchoolName: cfg.App.SchoolName},
		logger.With("component", "lending"),
	)
	dashboardService := service.NewDashboardService(profileRepo, itemRepo, loanRepo)

	// ── Handlers ─────────────────────────────────────
	router := handler.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewItemHandler(itemService),
		handler.NewLoanHandler(loanService),
		handler.NewAccountHandler(verificationService),
		handler.NewDashboardHandler(dashboardService),
		handler.NewRealtimeHandler(hub),
		cfg.JWT.Secret,
		logger,
	)

	// ── HTTP Server ──────────────────────────────────
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.App.Port),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.App.Port, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
