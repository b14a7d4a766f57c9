// Package config loads and validates application configuration from
// environment variables, with sane development defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minJWTLength = 32
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT"`
	Port           string      `mapstructure:"PORT"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS"`
	JwtSecretKey   string      `mapstructure:"JWT_SECRET_KEY"`
}

// LocalStoreConfig holds the embedded sqlite store configuration.
type LocalStoreConfig struct {
	// Path is the sqlite database file. ":memory:" is accepted for tests.
	Path string `mapstructure:"PATH"`
}

// RedisConfig holds Redis connection details for the sighting heatmap.
type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
	UseTLS   bool   `mapstructure:"USE_TLS"`
}

// ExternalServices holds URLs and keys for the cloud backend and REST APIs.
type ExternalServices struct {
	SupabaseURL        string `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey    string `mapstructure:"SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `mapstructure:"SUPABASE_SERVICE_KEY"`
	CatalogBaseURL     string `mapstructure:"CATALOG_BASE_URL"`
	CatalogAPIKey      string `mapstructure:"CATALOG_API_KEY"`
	WeatherBaseURL     string `mapstructure:"WEATHER_BASE_URL"`
}

// EmailConfig holds configuration for participant decision emails.
type EmailConfig struct {
	FromAddress  string `mapstructure:"FROM_ADDRESS"`
	FromName     string `mapstructure:"FROM_NAME"`
	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
}

// MediaConfig holds configuration for the S3-compatible media bucket.
type MediaConfig struct {
	AccountID       string `mapstructure:"ACCOUNT_ID"`
	Bucket          string `mapstructure:"BUCKET"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID"`
	SecretAccessKey string `mapstructure:"SECRET_ACCESS_KEY"`
}

// SyncConfig holds configuration for the outbound sync drain worker.
type SyncConfig struct {
	// PollIntervalSeconds controls how often the worker looks for due tasks.
	PollIntervalSeconds int `mapstructure:"POLL_INTERVAL_SECONDS"`
	// MaxAttempts bounds retries before a task becomes terminally failed.
	MaxAttempts int `mapstructure:"MAX_ATTEMPTS"`
	// ShutdownTimeoutSeconds is the max wait for in-flight tasks on stop.
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// Config is the root application configuration.
type Config struct {
	Server           ServerConfig     `mapstructure:"SERVER"`
	LocalStore       LocalStoreConfig `mapstructure:"LOCAL_STORE"`
	Redis            RedisConfig      `mapstructure:"REDIS"`
	ExternalServices ExternalServices `mapstructure:"EXTERNAL_SERVICES"`
	Email            EmailConfig      `mapstructure:"EMAIL"`
	Media            MediaConfig      `mapstructure:"MEDIA"`
	Sync             SyncConfig       `mapstructure:"SYNC"`
}

// LoadConfig reads configuration from the environment and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOCAL_STORE.PATH", "birdscout.db")
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("EXTERNAL_SERVICES.CATALOG_BASE_URL", "https://api.ebirdhub.dev/v2")
	v.SetDefault("EXTERNAL_SERVICES.WEATHER_BASE_URL", "https://api.open-meteo.com/v1")
	v.SetDefault("SYNC.POLL_INTERVAL_SECONDS", 15)
	v.SetDefault("SYNC.MAX_ATTEMPTS", 5)
	v.SetDefault("SYNC.SHUTDOWN_TIMEOUT_SECONDS", 30)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.JWT_SECRET_KEY", "JWT_SECRET_KEY"},
		{"LOCAL_STORE.PATH", "LOCAL_STORE_PATH"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"EXTERNAL_SERVICES.SUPABASE_URL", "SUPABASE_URL"},
		{"EXTERNAL_SERVICES.SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY"},
		{"EXTERNAL_SERVICES.SUPABASE_SERVICE_KEY", "SUPABASE_SERVICE_KEY"},
		{"EXTERNAL_SERVICES.CATALOG_BASE_URL", "CATALOG_BASE_URL"},
		{"EXTERNAL_SERVICES.CATALOG_API_KEY", "CATALOG_API_KEY"},
		{"EXTERNAL_SERVICES.WEATHER_BASE_URL", "WEATHER_BASE_URL"},
		{"EMAIL.FROM_ADDRESS", "EMAIL_FROM_ADDRESS"},
		{"EMAIL.FROM_NAME", "EMAIL_FROM_NAME"},
		{"EMAIL.RESEND_API_KEY", "RESEND_API_KEY"},
		{"MEDIA.ACCOUNT_ID", "MEDIA_ACCOUNT_ID"},
		{"MEDIA.BUCKET", "MEDIA_BUCKET"},
		{"MEDIA.ACCESS_KEY_ID", "MEDIA_ACCESS_KEY_ID"},
		{"MEDIA.SECRET_ACCESS_KEY", "MEDIA_SECRET_ACCESS_KEY"},
		{"SYNC.POLL_INTERVAL_SECONDS", "SYNC_POLL_INTERVAL_SECONDS"},
		{"SYNC.MAX_ATTEMPTS", "SYNC_MAX_ATTEMPTS"},
		{"SYNC.SHUTDOWN_TIMEOUT_SECONDS", "SYNC_SHUTDOWN_TIMEOUT_SECONDS"},
	}
	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"local_store_path", cfg.LocalStore.Path,
		"supabase_url", cfg.ExternalServices.SupabaseURL,
	)
	return &cfg, nil
}

func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind env var %s: %w", b[1], err)
		}
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if len(cfg.Server.JwtSecretKey) < minJWTLength {
		return fmt.Errorf("JWT secret key must be at least %d characters long", minJWTLength)
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}
	if cfg.LocalStore.Path == "" {
		return fmt.Errorf("local store path is required")
	}
	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}
	if cfg.ExternalServices.SupabaseURL == "" {
		return fmt.Errorf("supabase URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.ExternalServices.SupabaseURL); err != nil {
		return fmt.Errorf("invalid supabase URL: %w", err)
	}
	if cfg.ExternalServices.SupabaseAnonKey == "" {
		return fmt.Errorf("supabase anon key is required")
	}
	if cfg.Sync.PollIntervalSeconds <= 0 {
		return fmt.Errorf("sync poll interval must be positive")
	}
	if cfg.Sync.MaxAttempts <= 0 {
		return fmt.Errorf("sync max attempts must be positive")
	}
	if cfg.Sync.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("sync shutdown timeout must be positive")
	}
	return nil
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
