// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported local storage drivers.
const (
	StorageDriverFile     = "file"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Backend Configuration
	BackendAPIURL    string        `mapstructure:"BACKEND_API_URL"`
	BackendHealthURL string        `mapstructure:"BACKEND_HEALTH_URL"`
	BackendTimeout   time.Duration `mapstructure:"-"` // BACKEND_TIMEOUT_SECONDS

	// Local Storage Configuration
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	StoragePath   string `mapstructure:"STORAGE_PATH"`

	// Database Configuration (postgres storage driver only)
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES

	// Views
	HomeRoute             string        `mapstructure:"HOME_ROUTE"`
	LoginRoute            string        `mapstructure:"LOGIN_ROUTE"`
	RegisterRedirectDelay time.Duration `mapstructure:"-"` // REGISTER_REDIRECT_DELAY_SECONDS

	// Login/register throttling
	LoginRatePerMinute int `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	LoginRateBurst     int `mapstructure:"LOGIN_RATE_BURST"`

	// Cron Jobs
	BackendProbeSchedule string `mapstructure:"BACKEND_PROBE_SCHEDULE"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}
	return fromViper(viper.New())
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "127.0.0.1")
	v.SetDefault("SERVER_PORT", "4200")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("BACKEND_API_URL", "http://localhost:8080/api")
	v.SetDefault("BACKEND_HEALTH_URL", "http://localhost:8080/health")
	v.SetDefault("BACKEND_TIMEOUT_SECONDS", 15)

	v.SetDefault("STORAGE_DRIVER", StorageDriverFile)
	v.SetDefault("STORAGE_PATH", defaultStoragePath())

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "auth_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("HOME_ROUTE", "/home")
	v.SetDefault("LOGIN_ROUTE", "/login")
	v.SetDefault("REGISTER_REDIRECT_DELAY_SECONDS", 2)

	v.SetDefault("LOGIN_RATE_PER_MINUTE", 30)
	v.SetDefault("LOGIN_RATE_BURST", 10)

	v.SetDefault("BACKEND_PROBE_SCHEDULE", "@every 1m")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Duration keys are whole numbers of seconds or minutes, not Go duration
	// strings, so they are read here instead of through Unmarshal.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.BackendTimeout = time.Duration(v.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.RegisterRedirectDelay = time.Duration(v.GetInt("REGISTER_REDIRECT_DELAY_SECONDS")) * time.Second

	cfg.BackendAPIURL = strings.TrimRight(strings.TrimSpace(cfg.BackendAPIURL), "/")
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	if cfg.BackendAPIURL == "" {
		return nil, fmt.Errorf("BACKEND_API_URL is not set")
	}
	switch cfg.StorageDriver {
	case StorageDriverFile, StorageDriverSQLite, StorageDriverPostgres, StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q (want file, sqlite, postgres or memory)", cfg.StorageDriver)
	}
	if (cfg.StorageDriver == StorageDriverFile || cfg.StorageDriver == StorageDriverSQLite) && strings.TrimSpace(cfg.StoragePath) == "" {
		return nil, fmt.Errorf("STORAGE_PATH is required for the %s storage driver", cfg.StorageDriver)
	}

	return &cfg, nil
}

// DSN builds the postgres connection string from the DB_* settings.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBTimezone)
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".auth_portal_storage.json"
	}
	return dir + string(os.PathSeparator) + "auth_portal" + string(os.PathSeparator) + "local_storage.json"
}
