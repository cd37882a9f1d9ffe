package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Generation GenerationConfig `mapstructure:"generation"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
// An empty address disables the processed-event log.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds bearer-token validation settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// QuotaConfig holds free-trial settings.
type QuotaConfig struct {
	MaxFreeCount int           `mapstructure:"max_free_count"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`
}

// GenerationConfig holds generation provider settings.
type GenerationConfig struct {
	Timeout   time.Duration   `mapstructure:"timeout"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Replicate ReplicateConfig `mapstructure:"replicate"`
	EdenAI    EdenAIConfig    `mapstructure:"edenai"`
}

// BreakerConfig holds circuit breaker settings shared by all providers.
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// ReplicateConfig holds music generation settings.
type ReplicateConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIToken     string        `mapstructure:"api_token"`
	Version      string        `mapstructure:"version"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// EdenAIConfig holds video generation settings.
type EdenAIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Provider   string `mapstructure:"provider"`
	Resolution string `mapstructure:"resolution"`
	FPS        int    `mapstructure:"fps"`
	Duration   int    `mapstructure:"duration"`
}

// StripeConfig holds billing provider settings.
type StripeConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	PriceID       string        `mapstructure:"price_id"`
	AppURL        string        `mapstructure:"app_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	EventTTL      time.Duration `mapstructure:"event_ttl"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/genius")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("GENIUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applySecrets(&cfg)

	return &cfg, nil
}

// applySecrets overrides sensitive values from well-known environment variables.
func applySecrets(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"GENIUS_DB_PASSWORD", &cfg.Database.Password},
		{"GENIUS_REDIS_PASSWORD", &cfg.Redis.Password},
		{"GENIUS_JWT_SECRET", &cfg.Auth.JWTSecret},
		{"REPLICATE_API_TOKEN", &cfg.Generation.Replicate.APIToken},
		{"EDEN_AI_API_KEY", &cfg.Generation.EdenAI.APIKey},
		{"STRIPE_API_KEY", &cfg.Stripe.APIKey},
		{"STRIPE_WEBHOOK_SECRET", &cfg.Stripe.WebhookSecret},
	}
	for _, o := range overrides {
		if val := os.Getenv(o.env); val != "" {
			*o.target = val
		}
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "auth.jwt_secret")
	}
	if c.Stripe.WebhookSecret == "" {
		missing = append(missing, "stripe.webhook_secret")
	}
	if c.Stripe.APIKey == "" {
		missing = append(missing, "stripe.api_key")
	}
	if c.Quota.MaxFreeCount < 0 {
		return fmt.Errorf("quota.max_free_count must not be negative, got %d", c.Quota.MaxFreeCount)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 150*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "genius")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.issuer", "")

	// Quota defaults
	v.SetDefault("quota.max_free_count", 5)
	v.SetDefault("quota.grace_period", 24*time.Hour)

	// Generation defaults
	v.SetDefault("generation.timeout", 120*time.Second)
	v.SetDefault("generation.breaker.failure_threshold", 5)
	v.SetDefault("generation.breaker.open_timeout", 60*time.Second)
	v.SetDefault("generation.replicate.base_url", "https://api.replicate.com/v1")
	v.SetDefault("generation.replicate.version", "8cf61ea6c56afd61d8f5b9ffd14d7c216c0a93844ce2d82ac1c9ecc9c7f24e05")
	v.SetDefault("generation.replicate.poll_interval", time.Second)
	v.SetDefault("generation.edenai.base_url", "https://api.edenai.run")
	v.SetDefault("generation.edenai.provider", "runway")
	v.SetDefault("generation.edenai.resolution", "1024x576")
	v.SetDefault("generation.edenai.fps", 24)
	v.SetDefault("generation.edenai.duration", 3)

	// Stripe defaults
	v.SetDefault("stripe.app_url", "http://localhost:3000")
	v.SetDefault("stripe.timeout", 30*time.Second)
	v.SetDefault("stripe.event_ttl", 72*time.Hour)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
