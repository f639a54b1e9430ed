package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	CORSAllowedOrigins []string

	// External identity provider (JWT validation + profile API)
	IdentityIssuerURL    string
	IdentityAudience     string
	IdentityAPIBaseURL   string
	IdentityAPIKey       string
	ProfileRetryAttempts int
	ProfileRetryDelay    time.Duration

	AdminJWTSecret string

	// Bookable time labels offered per dentist per day.
	SlotMenu []string

	// Voice consultation
	VoiceAssistantID        string
	VoiceSessionTTL         time.Duration
	TranscriptArchiveBucket string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Booking confirmation notifications
	UseMemoryQueue bool
	NotifyQueueURL string
	WorkerCount    int
	EmailProvider  string
	FromEmail      string
	FromName       string
	SendGridAPIKey string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// defaultSlotMenu is the static menu of offerable appointment times.
var defaultSlotMenu = []string{
	"09:00", "10:00", "11:00", "12:00",
	"14:00", "15:00", "16:00", "17:00",
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		IdentityIssuerURL:    getEnv("IDENTITY_ISSUER_URL", ""),
		IdentityAudience:     getEnv("IDENTITY_AUDIENCE", ""),
		IdentityAPIBaseURL:   getEnv("IDENTITY_API_BASE_URL", "https://api.clerk.com"),
		IdentityAPIKey:       getEnv("IDENTITY_API_KEY", ""),
		ProfileRetryAttempts: getEnvAsInt("PROFILE_RETRY_ATTEMPTS", 3),
		ProfileRetryDelay:    getEnvAsDuration("PROFILE_RETRY_DELAY", 500*time.Millisecond),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		SlotMenu: getEnvAsList("SLOT_MENU", defaultSlotMenu),

		VoiceAssistantID:        getEnv("VOICE_ASSISTANT_ID", ""),
		VoiceSessionTTL:         getEnvAsDuration("VOICE_SESSION_TTL", 24*time.Hour),
		TranscriptArchiveBucket: getEnv("TRANSCRIPT_ARCHIVE_BUCKET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		NotifyQueueURL: getEnv("NOTIFY_QUEUE_URL", ""),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 1),
		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		FromEmail:      getEnv("FROM_EMAIL", ""),
		FromName:       getEnv("FROM_NAME", "BrightSmile Dental"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, trimming blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
