package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the clicker battle server
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	Port        int    `mapstructure:"PORT"`

	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL"`
	AllowedOrigins string        `mapstructure:"ALLOWED_ORIGINS"`
	MetricsToken   string        `mapstructure:"METRICS_TOKEN"`

	Matchmaking MatchmakingConfig `mapstructure:",squash"`

	WatchMax time.Duration `mapstructure:"WATCH_MAX"`

	RedisURL string `mapstructure:"REDIS_URL"`

	KafkaBrokers      []string `mapstructure:"KAFKA_BROKERS"`
	KafkaResultsTopic string   `mapstructure:"KAFKA_RESULTS_TOPIC"`

	R2 R2Config `mapstructure:",squash"`

	ArchiveInterval time.Duration `mapstructure:"ARCHIVE_INTERVAL"`
}

// MatchmakingConfig tunes pairing and cleanup of the waiting pool.
type MatchmakingConfig struct {
	EloRange      int           `mapstructure:"MATCHMAKING_ELO_RANGE"`
	Candidates    int           `mapstructure:"MATCHMAKING_CANDIDATES"`
	WaitingTTL    time.Duration `mapstructure:"WAITING_TTL"`
	SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`
}

// R2Config is the Cloudflare R2 bucket used for archiving completed matches.
type R2Config struct {
	AccountID       string `mapstructure:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `mapstructure:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `mapstructure:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `mapstructure:"R2_BUCKET_NAME"`
	CDNBaseURL      string `mapstructure:"CDN_BASE_URL"`
}

// Enabled reports whether enough R2 settings are present to archive results.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

var keys = []string{
	"ENVIRONMENT", "LOG_LEVEL", "PORT",
	"DATABASE_URL", "JWT_SECRET", "TOKEN_TTL", "ALLOWED_ORIGINS", "METRICS_TOKEN",
	"MATCHMAKING_ELO_RANGE", "MATCHMAKING_CANDIDATES", "WAITING_TTL", "SWEEP_INTERVAL",
	"WATCH_MAX", "REDIS_URL", "KAFKA_BROKERS", "KAFKA_RESULTS_TOPIC",
	"CLOUDFLARE_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_ACCESS_KEY_SECRET", "R2_BUCKET_NAME", "CDN_BASE_URL",
	"ARCHIVE_INTERVAL",
}

// Load reads configuration from a .env file (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 5200)
	v.SetDefault("DATABASE_URL", "sqlite:clicker.db")
	v.SetDefault("TOKEN_TTL", 24*time.Hour)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("MATCHMAKING_ELO_RANGE", 200)
	v.SetDefault("MATCHMAKING_CANDIDATES", 5)
	v.SetDefault("WAITING_TTL", 2*time.Minute)
	v.SetDefault("SWEEP_INTERVAL", 30*time.Second)
	v.SetDefault("WATCH_MAX", 25*time.Second)
	v.SetDefault("KAFKA_RESULTS_TOPIC", "match-results")
	v.SetDefault("ARCHIVE_INTERVAL", time.Minute)
}

// Validate checks the configuration for required fields
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.Matchmaking.EloRange < 0 {
		return fmt.Errorf("MATCHMAKING_ELO_RANGE must not be negative")
	}
	if c.Matchmaking.Candidates <= 0 {
		return fmt.Errorf("MATCHMAKING_CANDIDATES must be positive")
	}
	if c.WatchMax <= 0 {
		return fmt.Errorf("WATCH_MAX must be positive")
	}
	if c.Matchmaking.WaitingTTL <= 0 {
		return fmt.Errorf("WAITING_TTL must be positive")
	}
	if c.Matchmaking.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.ArchiveInterval <= 0 {
		return fmt.Errorf("ARCHIVE_INTERVAL must be positive")
	}
	return nil
}

// Origins returns ALLOWED_ORIGINS trimmed and re-joined for fiber's CORS config.
func (c *Config) Origins() string {
	return strings.Join(splitList(c.AllowedOrigins), ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
