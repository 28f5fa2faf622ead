package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabaseURL    string
	DatabasePath   string
	MigrationsPath string
	UploadMaxSize  int64

	// Classroom behaviour
	ClassroomTTL       time.Duration
	RemoveVoteQuota    int
	CodeAttempts       int
	SweepInterval      time.Duration
	RateLimitPerMinute int

	// Identity
	JWTIssuer            string
	JWTSigningKey        string
	TokenDuration        time.Duration
	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	// Email notifications
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:    getEnv("DB_URL", ""),
		DatabasePath:   getEnv("DB_PATH", "./vocaroom.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		UploadMaxSize:  5 * 1024 * 1024, // 5MB

		ClassroomTTL:       durationEnv("CLASSROOM_TTL", 24*time.Hour),
		RemoveVoteQuota:    intEnv("REMOVE_VOTE_THRESHOLD", 3),
		CodeAttempts:       intEnv("CODE_ATTEMPTS", 10),
		SweepInterval:      durationEnv("SWEEP_INTERVAL", 1*time.Hour),
		RateLimitPerMinute: intEnv("RATE_LIMIT_PER_MIN", 30),

		JWTIssuer:            getEnv("JWT_ISSUER", "vocaroom"),
		JWTSigningKey:        getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		TokenDuration:        durationEnv("TOKEN_TTL", 168*time.Hour),
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", ""),

		AWSRegion:    getEnv("AWS_REGION", "eu-west-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Vocaroom"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Printf("invalid int for %s, using fallback %d", key, fallback)
			return fallback
		}
		return parsed
	}
	return fallback
}
