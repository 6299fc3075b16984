package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"peerprep/interview/internal/models"
)

const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Port     string
	Provider string

	InterviewAPIURL     string
	InterviewAPITimeout time.Duration

	GeminiAPIKey      string
	LiveURL           string
	LiveModel         string
	LiveVoice         string
	LiveSetupTimeout  time.Duration
	SilenceFallback   time.Duration
	EvaluationModel   string
	EvaluationTimeout time.Duration

	StoreBackend string
	StoreDir     string
	RedisAddr    string
	RedisDB      int
	SessionTTL   time.Duration

	// Postgres, used for the transcript archive and the postgres session backend
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string

	SessionIdleTTL time.Duration

	ExportEnabled   bool
	ExportSchedule  string
	ExportDir       string
	ExportBatchSize int

	JWTSecret      string
	AllowedOrigins []string
}

// loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		Provider:        getEnvOrDefault("AI_PROVIDER", "gemini"),
		InterviewAPIURL: getEnvOrDefault("INTERVIEW_API_URL", "http://localhost:8000"),

		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		LiveURL:         os.Getenv("GEMINI_LIVE_URL"),
		LiveModel:       getEnvOrDefault("LIVE_MODEL", models.DefaultLiveModel),
		LiveVoice:       getEnvOrDefault("LIVE_VOICE", models.DefaultLiveVoice),
		EvaluationModel: getEnvOrDefault("EVALUATION_MODEL", models.DefaultEvaluationModel),

		StoreBackend: strings.ToLower(getEnvOrDefault("STORE_BACKEND", StoreFile)),
		StoreDir:     getEnvOrDefault("STORE_DIR", "./data/sessions"),
		RedisAddr:    getEnvOrDefault("REDIS_ADDR", "localhost:6379"),

		PostgresHost:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnvOrDefault("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getEnvOrDefault("POSTGRES_DB", "interview"),
		PostgresSSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnvOrDefault("SQLITE_PATH", "./data/interview.db"),

		ExportSchedule: getEnvOrDefault("TRANSCRIPT_EXPORT_SCHEDULE", "0 2 * * *"),
		ExportDir:      getEnvOrDefault("TRANSCRIPT_EXPORT_DIR", "./exports"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"INTERVIEW_API_TIMEOUT", 30 * time.Second, &config.InterviewAPITimeout},
		{"LIVE_SETUP_TIMEOUT", models.DefaultSetupTimeout, &config.LiveSetupTimeout},
		{"SILENCE_FALLBACK", models.DefaultSilenceFallback, &config.SilenceFallback},
		{"EVALUATION_TIMEOUT", 60 * time.Second, &config.EvaluationTimeout},
		{"SESSION_TTL", 24 * time.Hour, &config.SessionTTL},
		{"SESSION_IDLE_TTL", 30 * time.Minute, &config.SessionIdleTTL},
	}
	for _, d := range durations {
		if *d.dst, err = getDurationOrDefault(d.key, d.def); err != nil {
			return nil, err
		}
	}
	if config.RedisDB, err = getIntOrDefault("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if config.ExportBatchSize, err = getIntOrDefault("TRANSCRIPT_EXPORT_BATCH_SIZE", 0); err != nil {
		return nil, err
	}
	if config.ExportEnabled, err = getBoolOrDefault("TRANSCRIPT_EXPORT_ENABLED", false); err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// PostgresDSN builds the connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode)
}

// UsesSQL reports whether a gorm database must be opened for sessions.
func (c *Config) UsesSQL() bool {
	return c.StoreBackend == StorePostgres || c.StoreBackend == StoreSQLite
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	switch config.StoreBackend {
	case StoreFile, StoreRedis, StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q: expected file, redis, postgres or sqlite", config.StoreBackend)
	}
	if _, err := strconv.Atoi(config.Port); err != nil {
		return fmt.Errorf("invalid PORT %q", config.Port)
	}
	if config.LiveSetupTimeout <= 0 || config.SilenceFallback <= 0 || config.SessionIdleTTL <= 0 {
		return errors.New("timeouts must be positive")
	}
	if config.ExportBatchSize < 0 {
		return errors.New("TRANSCRIPT_EXPORT_BATCH_SIZE must not be negative")
	}
	// the Gemini key is checked by gemini.NewConfig; without it live interviews are unavailable
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
