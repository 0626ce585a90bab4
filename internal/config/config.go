package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FanoutScope selects which roles receive an assignment when a module is
// published. The source behaviour was ambiguous, so it is an explicit knob.
type FanoutScope string

const (
	FanoutStaffOnly FanoutScope = "staff"
	FanoutNonAdmin  FanoutScope = "non_admin"
)

// ResubmissionPolicy controls what happens when a user submits answers for
// an assignment that is already completed.
type ResubmissionPolicy string

const (
	ResubmissionReject    ResubmissionPolicy = "reject"
	ResubmissionOverwrite ResubmissionPolicy = "overwrite"
)

type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	JWT    JWTConfig
	Photo  PhotoConfig
	Kafka  KafkaConfig
	Policy PolicyConfig
	Seed   SeedConfig

	DocumentDir string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type PhotoConfig struct {
	Dir               string
	MaxSizeBytes      int64
	AllowedExtensions []string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type PolicyConfig struct {
	FanoutScope  FanoutScope
	Resubmission ResubmissionPolicy
	// PassingScore is the minimum percentage for a completed assignment to
	// count as passed on dashboards.
	PassingScore float64
}

// SeedConfig describes the default admin account created on first migration.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getDuration("JWT_TTL", 12*time.Hour),
		},
		Photo: PhotoConfig{
			Dir:               getEnv("PROFILE_PHOTO_DIR", "var/photos"),
			MaxSizeBytes:      getInt64("PROFILE_PHOTO_MAX_BYTES", 5<<20),
			AllowedExtensions: splitList(getEnv("PROFILE_PHOTO_EXTENSIONS", ".png,.jpg,.jpeg")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "onboarding-events"),
		},
		Policy: PolicyConfig{
			FanoutScope:  FanoutScope(getEnv("ASSIGNMENT_FANOUT_SCOPE", string(FanoutStaffOnly))),
			Resubmission: ResubmissionPolicy(getEnv("QUIZ_RESUBMISSION_POLICY", string(ResubmissionReject))),
			PassingScore: getFloat("PASSING_SCORE", 50),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@visionhub.local"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
		DocumentDir: getEnv("DOCUMENT_DIR", "var/documents"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.Policy.FanoutScope {
	case FanoutStaffOnly, FanoutNonAdmin:
	default:
		return nil, fmt.Errorf("invalid ASSIGNMENT_FANOUT_SCOPE %q", cfg.Policy.FanoutScope)
	}
	switch cfg.Policy.Resubmission {
	case ResubmissionReject, ResubmissionOverwrite:
	default:
		return nil, fmt.Errorf("invalid QUIZ_RESUBMISSION_POLICY %q", cfg.Policy.Resubmission)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
