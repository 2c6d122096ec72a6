package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashcards/internal/config"
	"flashcards/internal/handler"
	"flashcards/internal/reminder"
	"flashcards/internal/repository"
	"flashcards/internal/repository/file"
	"flashcards/internal/repository/postgres"
	"flashcards/internal/repository/sqlite"
	"flashcards/internal/service"
	"flashcards/internal/srs"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func main() {
	envFile := pflag.String("env-file", "", "path to an env file to load before reading the environment")
	migrationsDir := pflag.String("migrations", "migrations", "directory with PostgreSQL migrations")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	// Initialize logger
	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting flashcards bot")

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully",
		zap.String("storage", cfg.StorageDriver),
		zap.String("timezone", cfg.Timezone),
	)

	// Initialize repositories
	userRepo, cardRepo, closeStorage, err := openStorage(cfg, *migrationsDir, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer closeStorage()

	// Initialize services
	scheduler := srs.New(srs.DefaultConfig(), srs.SystemClock(cfg.Location()), rand.Shuffle)
	authService := service.NewAuthService(userRepo, cfg.BotPassword)
	cardService := service.NewCardService(cardRepo, scheduler, logger)
	reviewService := service.NewReviewService(cardRepo, scheduler, logger)
	statsService := service.NewStatsService(cardRepo, scheduler, logger)

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("Handler error", zap.Error(err))
		},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized")

	// Initialize handler
	h := handler.NewHandler(bot, authService, cardService, reviewService, statsService, cfg.SessionLimit, logger)
	h.RegisterHandlers()

	logger.Info("Handlers registered")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Daily reminders
	reminders := reminder.New(reminder.Config{
		Hour:         cfg.ReminderHour,
		Location:     cfg.Location(),
		SessionLimit: cfg.SessionLimit,
	}, authService, reviewService, h, logger)
	if err := reminders.Start(ctx); err != nil {
		logger.Fatal("Failed to start reminders", zap.Error(err))
	}

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown
	reminders.Stop()
	bot.Stop()
	cancel()

	logger.Info("Bot stopped gracefully")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStorage builds the repositories for the configured driver
func openStorage(cfg *config.Config, migrationsDir string, logger *zap.Logger) (
	repository.UserRepository, repository.CardRepository, func(), error,
) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("SQLite database opened", zap.String("path", cfg.SQLitePath))
		return sqlite.NewUserRepo(db), sqlite.NewCardRepo(db, cfg.Location()), func() { db.Close() }, nil

	case config.DriverFile:
		store, err := file.Open(cfg.CardsFile, cfg.Location())
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("Card file loaded", zap.String("path", cfg.CardsFile))
		return store, store, func() {}, nil

	default:
		// Connect to database with retries
		db, err := connectDatabase(cfg.DSN(), logger)
		if err != nil {
			return nil, nil, nil, err
		}

		logger.Info("Database connection established")

		if err := runMigrations(db, migrationsDir, logger); err != nil {
			db.Close()
			return nil, nil, nil, err
		}

		return postgres.NewUserRepo(db), postgres.NewCardRepo(db, cfg.Location()), func() { db.Close() }, nil
	}
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		// Test connection
		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB, dir string, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}

	return nil
}
