package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5200, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 200, cfg.Matchmaking.EloRange)
	assert.Equal(t, 5, cfg.Matchmaking.Candidates)
	assert.Equal(t, 2*time.Minute, cfg.Matchmaking.WaitingTTL)
	assert.Equal(t, 30*time.Second, cfg.Matchmaking.SweepInterval)
	assert.Equal(t, 25*time.Second, cfg.WatchMax)
	assert.Equal(t, "match-results", cfg.KafkaResultsTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.R2.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8080")
	t.Setenv("MATCHMAKING_ELO_RANGE", "150")
	t.Setenv("WAITING_TTL", "90s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test , http://b.test")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acct")
	t.Setenv("R2_ACCESS_KEY_ID", "id")
	t.Setenv("R2_ACCESS_KEY_SECRET", "secret")
	t.Setenv("R2_BUCKET_NAME", "results")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 150, cfg.Matchmaking.EloRange)
	assert.Equal(t, 90*time.Second, cfg.Matchmaking.WaitingTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "http://a.test,http://b.test", cfg.Origins())
	assert.True(t, cfg.R2.Enabled())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	base := Config{
		JWTSecret:       "x",
		DatabaseURL:     "sqlite:test.db",
		Port:            5200,
		TokenTTL:        time.Hour,
		WatchMax:        time.Second,
		ArchiveInterval: time.Minute,
		Matchmaking: MatchmakingConfig{
			EloRange:      200,
			Candidates:    5,
			WaitingTTL:    2 * time.Minute,
			SweepInterval: 30 * time.Second,
		},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"no database", func(c *Config) { c.DatabaseURL = "" }},
		{"negative range", func(c *Config) { c.Matchmaking.EloRange = -1 }},
		{"no candidates", func(c *Config) { c.Matchmaking.Candidates = 0 }},
		{"zero watch", func(c *Config) { c.WatchMax = 0 }},
		{"zero waiting ttl", func(c *Config) { c.Matchmaking.WaitingTTL = 0 }},
		{"negative sweep interval", func(c *Config) { c.Matchmaking.SweepInterval = -time.Second }},
		{"zero archive interval", func(c *Config) { c.ArchiveInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadRejectsZeroArchiveInterval(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ARCHIVE_INTERVAL", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARCHIVE_INTERVAL")
}
