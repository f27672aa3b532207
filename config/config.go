// Package config reads service settings from the environment, loading a
// .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"daily-reward-system/utils"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env  string
	Port string

	DBDriver    string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	ClaimWindow time.Duration

	AllowedOrigins     []string
	LoginRatePerMinute float64
	LoginBurst         int
	MetricsToken       string

	LogLevel string
	LogFile  string

	TiersSeedFile   string
	ExportInterval  time.Duration
	ExportSettleLag time.Duration
	R2              utils.R2Config
}

// LoadDotEnv loads the given files (".env" when none) into the process
// environment. A missing file is not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			log.Printf("⚠️  No %s file found, reading environment variables directly", f)
		}
	}
}

// Load builds a Config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getenv("APP_ENV", "development"),
		Port:     getenv("PORT", "5200"),
		DBDriver: strings.ToLower(getenv("DB_DRIVER", DriverPostgres)),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		MetricsToken: os.Getenv("METRICS_TOKEN"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFile:      os.Getenv("LOG_FILE"),

		TiersSeedFile: os.Getenv("TIERS_SEED_FILE"),
		R2: utils.R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	var errs []error
	var err error

	if cfg.JWTTTL, err = durationEnv("JWT_TTL", 7*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.ClaimWindow, err = durationEnv("CLAIM_WINDOW", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.ExportInterval, err = durationEnv("EXPORT_INTERVAL", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.ExportSettleLag, err = durationEnv("EXPORT_SETTLE_LAG", time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.LoginRatePerMinute, err = floatEnv("LOGIN_RATE_PER_MINUTE", 30); err != nil {
		errs = append(errs, err)
	}
	if cfg.LoginBurst, err = intEnv("LOGIN_BURST", 5); err != nil {
		errs = append(errs, err)
	}

	// Load allowed origins from a comma-separated list
	origins := getenv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable not set"))
	}
	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL environment variable not set"))
		}
	case DriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "daily_reward.db"
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver))
	}
	if cfg.ClaimWindow <= 0 {
		errs = append(errs, errors.New("CLAIM_WINDOW must be positive"))
	}
	if cfg.ExportInterval <= 0 {
		errs = append(errs, errors.New("EXPORT_INTERVAL must be positive"))
	}
	if cfg.ExportSettleLag < 0 {
		errs = append(errs, errors.New("EXPORT_SETTLE_LAG must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr is the listen address for fiber.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
