package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	FrontendURL    string
	LogLevel       string

	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int

	RedisURL      string
	RedisPassword string
	SnapshotTTL   time.Duration

	JWTSecret      string
	PlayerTokenTTL time.Duration

	AIThinkEasy   time.Duration
	AIThinkMedium time.Duration
	AIThinkHard   time.Duration
	DropDelay     time.Duration
	RoundDelay    time.Duration
}

// LoadDotEnv reads .env from the working directory or its parent. Missing
// files are fine; the environment may already be set.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Debug().Msg("no .env file found, using environment")
		}
	}
}

func LoadConfig() *Config {
	frontendURL := GetEnv("FRONTEND_URL", "http://localhost:8081")

	// Frontend URL + local dev + CSV values
	allowedOrigins := []string{frontendURL, "http://localhost:19006"}
	for _, origin := range strings.Split(GetEnv("ALLOWED_ORIGINS", ""), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowedOrigins = append(allowedOrigins, trimmed)
		}
	}

	return &Config{
		Port:           GetEnv("PORT", "8080"),
		AllowedOrigins: allowedOrigins,
		FrontendURL:    frontendURL,
		LogLevel:       GetEnv("LOG_LEVEL", "info"),

		DatabaseURL:          GetEnv("DATABASE_URL", ""),
		DBMaxOpenConns:       GetEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       GetEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetimeMin: GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5),

		RedisURL:      GetEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		SnapshotTTL:   GetEnvAsDuration("SNAPSHOT_TTL_MINUTES", 120, time.Minute),

		JWTSecret:      GetEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
		PlayerTokenTTL: GetEnvAsDuration("PLAYER_TOKEN_TTL_HOURS", 24*30, time.Hour),

		AIThinkEasy:   GetEnvAsDuration("AI_THINK_EASY_MS", 500, time.Millisecond),
		AIThinkMedium: GetEnvAsDuration("AI_THINK_MEDIUM_MS", 1000, time.Millisecond),
		AIThinkHard:   GetEnvAsDuration("AI_THINK_HARD_MS", 1500, time.Millisecond),
		DropDelay:     GetEnvAsDuration("DROP_DELAY_MS", 300, time.Millisecond),
		RoundDelay:    GetEnvAsDuration("ROUND_DELAY_MS", 600, time.Millisecond),
	}
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Int("default", defaultValue).Msg("invalid integer value, using default")
		return defaultValue
	}
	return value
}

// GetEnvAsDuration reads an integer count of unit
func GetEnvAsDuration(key string, defaultValue int, unit time.Duration) time.Duration {
	value := GetEnvAsInt(key, defaultValue)
	if value < 0 {
		log.Warn().Str("key", key).Int("value", value).Msg("negative duration, using default")
		value = defaultValue
	}
	return time.Duration(value) * unit
}
