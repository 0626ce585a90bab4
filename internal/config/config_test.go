package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://onboarding:pw@localhost:5432/onboarding")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, int64(5<<20), cfg.Photo.MaxSizeBytes)
	assert.Equal(t, []string{".png", ".jpg", ".jpeg"}, cfg.Photo.AllowedExtensions)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "onboarding-events", cfg.Kafka.Topic)
	assert.Equal(t, FanoutStaffOnly, cfg.Policy.FanoutScope)
	assert.Equal(t, ResubmissionReject, cfg.Policy.Resubmission)
	assert.Equal(t, float64(50), cfg.Policy.PassingScore)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("ASSIGNMENT_FANOUT_SCOPE", "non_admin")
	t.Setenv("QUIZ_RESUBMISSION_POLICY", "overwrite")
	t.Setenv("PASSING_SCORE", "80")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.JWT.TTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, FanoutNonAdmin, cfg.Policy.FanoutScope)
	assert.Equal(t, ResubmissionOverwrite, cfg.Policy.Resubmission)
	assert.Equal(t, float64(80), cfg.Policy.PassingScore)
}

func TestLoadConfig_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadConfig_RequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://onboarding:pw@localhost:5432/onboarding")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfig_RejectsUnknownPolicyValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ASSIGNMENT_FANOUT_SCOPE", "everyone")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASSIGNMENT_FANOUT_SCOPE")

	t.Setenv("ASSIGNMENT_FANOUT_SCOPE", "staff")
	t.Setenv("QUIZ_RESUBMISSION_POLICY", "retry")

	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUIZ_RESUBMISSION_POLICY")
}

func TestLoadConfig_BadDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_TTL", "not-a-duration")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TTL)
}
