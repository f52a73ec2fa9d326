package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	StoreBackend string
	DatabaseURL  string

	ClerkSecretKey string

	FirebaseProjectID       string
	FirebaseCredentialsJSON string // base64 encoded service account
	FirebaseCredentialsFile string
	PushEnabled             bool

	MetricsUser string
	MetricsPass string
	PprofSecret string

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
}

// Load reads .env files (if any) and then the process environment.
func Load(files ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(files...)

	cfg := &Config{
		Env:                     getenv("APP_ENV", "production"),
		Port:                    getenv("PORT", "3333"),
		LogLevel:                getenv("LOG_LEVEL", "info"),
		StoreBackend:            strings.ToLower(getenv("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		ClerkSecretKey:          os.Getenv("CLERK_SECRET_KEY"),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		FirebaseCredentialsFile: getenv("FIREBASE_CREDENTIALS_FILE", "./serviceAccountKey.json"),
		MetricsUser:             os.Getenv("METRICS_USER"),
		MetricsPass:             os.Getenv("METRICS_PASS"),
		PprofSecret:             os.Getenv("PPROF_SECRET"),
		AllowedOrigins:          splitList(getenv("ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.PushEnabled, err = strconv.ParseBool(getenv("PUSH_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("invalid PUSH_ENABLED: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getenv("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getenv("RATE_LIMIT_BURST", "30")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ClerkSecretKey == "" {
		return errors.New("CLERK_SECRET_KEY environment variable is not set")
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is not set")
		}
	case BackendFirestore:
		if c.FirebaseCredentialsJSON == "" && c.FirebaseCredentialsFile == "" {
			return errors.New("FIREBASE_CREDENTIALS_JSON or FIREBASE_CREDENTIALS_FILE must be set for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func (c *Config) Development() bool {
	return c.Env == "development"
}

// NeedsFirebase reports whether a Firebase app has to be initialised.
func (c *Config) NeedsFirebase() bool {
	return c.StoreBackend == BackendFirestore || c.PushEnabled
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
