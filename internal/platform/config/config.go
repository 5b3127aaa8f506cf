package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rotisserie/eris"
)

// Config holds runtime configuration shared by the site server and the content admin.
type Config struct {
	DBPath            string
	Locales           []string
	ServerPort        int
	LogLevel          string
	SentryDSN         string
	Environment       string
	RecipesDir        string
	PagesDir          string
	ImportConcurrency int
	ShutdownGrace     time.Duration
}

const (
	defaultDBPath            = "./sqlite-data/database.db"
	defaultLocales           = "pl,uk,en"
	defaultServerPort        = 8080
	defaultLogLevel          = "info"
	defaultEnvironment       = "development"
	defaultRecipesDir        = "./content/recipes"
	defaultPagesDir          = "./content/pages"
	defaultImportConcurrency = 4
	defaultShutdownGrace     = 10 * time.Second
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:      getEnv("DB_PATH", defaultDBPath),
		Locales:     splitList(getEnv("LOCALES", defaultLocales)),
		LogLevel:    getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: getEnv("ENV", defaultEnvironment),
		RecipesDir:  getEnv("CONTENT_RECIPES_DIR", defaultRecipesDir),
		PagesDir:    getEnv("CONTENT_PAGES_DIR", defaultPagesDir),
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	concurrencyValue := getEnv("IMPORT_CONCURRENCY", strconv.Itoa(defaultImportConcurrency))
	concurrency, err := strconv.Atoi(concurrencyValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid IMPORT_CONCURRENCY value: %s", concurrencyValue)
	}
	cfg.ImportConcurrency = concurrency

	graceValue := getEnv("SHUTDOWN_GRACE", defaultShutdownGrace.String())
	grace, err := time.ParseDuration(graceValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SHUTDOWN_GRACE value: %s", graceValue)
	}
	cfg.ShutdownGrace = grace

	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "validating configuration")
	}

	return cfg, nil
}

// Validate checks the loaded values for consistency.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.Locales, validation.Required),
		validation.Field(&c.ServerPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ImportConcurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.ShutdownGrace, validation.Min(time.Duration(0))),
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
