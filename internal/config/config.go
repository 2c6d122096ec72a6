package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverFile     = "file"
)

// Config holds all application configuration
type Config struct {
	BotToken    string `validate:"required"`
	BotPassword string `validate:"required"`

	StorageDriver string `validate:"oneof=postgres sqlite file"`
	Database      DatabaseConfig
	SQLitePath    string `validate:"required_if=StorageDriver sqlite"`
	CardsFile     string `validate:"required_if=StorageDriver file"`

	Timezone     string `validate:"required"`
	SessionLimit int    `validate:"min=1,max=500"`
	ReminderHour int    `validate:"min=0,max=23"`

	location *time.Location
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// Load reads configuration from environment variables.
// envFile is loaded first when given, otherwise .env in the working directory if present.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else {
		// Try to load .env file (ignore error if not exists)
		_ = godotenv.Load()
	}

	sessionLimit, err := getEnvInt("SESSION_LIMIT", 20)
	if err != nil {
		return nil, err
	}
	reminderHour, err := getEnvInt("REMINDER_HOUR", 9)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BotToken:      os.Getenv("BOT_TOKEN"),
		BotPassword:   os.Getenv("BOT_PASSWORD"),
		StorageDriver: getEnv("STORAGE_DRIVER", DriverPostgres),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "flashcards"),
			User:     getEnv("DB_USER", "flashcards"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		SQLitePath:   getEnv("SQLITE_PATH", "flashcards.db"),
		CardsFile:    getEnv("CARDS_FILE", "cards.json"),
		Timezone:     getEnv("TIMEZONE", "UTC"),
		SessionLimit: sessionLimit,
		ReminderHour: reminderHour,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s is invalid (%s)", envName(verrs[0].Field()), verrs[0].Tag())
		}
		return err
	}
	if c.StorageDriver == DriverPostgres && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}
	c.location = loc
	return nil
}

var envNames = map[string]string{
	"BotToken":      "BOT_TOKEN",
	"BotPassword":   "BOT_PASSWORD",
	"StorageDriver": "STORAGE_DRIVER",
	"SQLitePath":    "SQLITE_PATH",
	"CardsFile":     "CARDS_FILE",
	"Timezone":      "TIMEZONE",
	"SessionLimit":  "SESSION_LIMIT",
	"ReminderHour":  "REMINDER_HOUR",
}

func envName(field string) string {
	if name, ok := envNames[field]; ok {
		return name
	}
	return field
}

// Location returns the configured timezone
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return n, nil
}
