package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Number normalization
	DefaultRegion       string
	NormalizationPolicy string

	// Twilio provider credentials and sender identity
	TwilioAccountSID          string
	TwilioAuthToken           string
	TwilioWhatsAppFrom        string
	TwilioMessagingServiceSID string
	TwilioValidateSignature   bool
	TwilioBaseURL             string
	TwilioTimeout             time.Duration
	TwilioMaxRetries          int
	TwilioRetryBaseDelay      time.Duration

	AdminJWTSecret     string
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DefaultRegion:       strings.ToUpper(strings.TrimSpace(getEnv("DEFAULT_REGION", "MX"))),
		NormalizationPolicy: strings.ToLower(strings.TrimSpace(getEnv("NORMALIZATION_POLICY", "strict"))),

		TwilioAccountSID:          getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:           getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppFrom:        getEnv("TWILIO_WHATSAPP_FROM", ""),
		TwilioMessagingServiceSID: getEnv("TWILIO_MESSAGING_SERVICE_SID", ""),
		TwilioValidateSignature:   getEnvAsBool("TWILIO_VALIDATE_SIGNATURE", false),
		TwilioBaseURL:             getEnv("TWILIO_BASE_URL", ""),
		TwilioTimeout:             getEnvAsDuration("TWILIO_TIMEOUT", 10*time.Second),
		TwilioMaxRetries:          getEnvAsInt("TWILIO_MAX_RETRIES", 2),
		TwilioRetryBaseDelay:      getEnvAsDuration("TWILIO_RETRY_BASE_DELAY", 250*time.Millisecond),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
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

// getEnvAsSlice splits a comma-separated environment variable, dropping blanks.
func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
