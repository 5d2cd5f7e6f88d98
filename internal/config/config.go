package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SES      SESConfig      `yaml:"ses"`
	Mailer   MailerConfig   `yaml:"mailer"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Workers  WorkersConfig  `yaml:"workers"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis connection settings for the task queue and
// distributed locks. Leave Addr empty to run without Redis; the task queue
// then falls back to in-process execution.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MailerConfig holds the outbound sender identity.
type MailerConfig struct {
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// ScoringConfig holds lead scoring weights and decay parameters. Zero values
// fall through to the scoring package defaults.
type ScoringConfig struct {
	DeliveredWeight        float64 `yaml:"delivered_weight"`
	OpenedWeight           float64 `yaml:"opened_weight"`
	ClickedWeight          float64 `yaml:"clicked_weight"`
	HotThreshold           float64 `yaml:"hot_threshold"`
	WarmThreshold          float64 `yaml:"warm_threshold"`
	DailyDecayRate         float64 `yaml:"daily_decay_rate"`
	MaxDaysWithoutActivity int     `yaml:"max_days_without_activity"`
}

// WorkersConfig holds background worker tuning.
type WorkersConfig struct {
	DispatcherPollSeconds int    `yaml:"dispatcher_poll_seconds"`
	DispatcherBatchSize   int    `yaml:"dispatcher_batch_size"`
	TaskPoolSize          int    `yaml:"task_pool_size"`
	ScoreBatchSize        int    `yaml:"score_batch_size"`
	ScoreCron             string `yaml:"score_cron"`
	DecayCron             string `yaml:"decay_cron"`
}

// APIKey maps one bearer key to the owner it acts as.
type APIKey struct {
	Key     string `yaml:"key"`
	OwnerID string `yaml:"owner_id"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	Keys []APIKey `yaml:"keys"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Mailer.FromName == "" {
		cfg.Mailer.FromName = "ColdReach"
	}
	if cfg.Workers.DispatcherPollSeconds == 0 {
		cfg.Workers.DispatcherPollSeconds = 5
	}
	if cfg.Workers.DispatcherBatchSize == 0 {
		cfg.Workers.DispatcherBatchSize = 100
	}
	if cfg.Workers.TaskPoolSize == 0 {
		cfg.Workers.TaskPoolSize = 4
	}
	if cfg.Workers.ScoreBatchSize == 0 {
		cfg.Workers.ScoreBatchSize = 50
	}
	if cfg.Workers.ScoreCron == "" {
		cfg.Workers.ScoreCron = "0 2 * * *" // daily 02:00
	}
	if cfg.Workers.DecayCron == "" {
		cfg.Workers.DecayCron = "0 * * * *" // hourly
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if from := os.Getenv("MAILER_FROM_EMAIL"); from != "" {
		cfg.Mailer.FromEmail = from
	}
	if key := os.Getenv("API_KEY"); key != "" {
		owner := os.Getenv("API_KEY_OWNER")
		if owner == "" {
			owner = "default"
		}
		cfg.Auth.Keys = append(cfg.Auth.Keys, APIKey{Key: key, OwnerID: owner})
	}

	return cfg, nil
}
