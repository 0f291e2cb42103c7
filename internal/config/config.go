package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Google Calendar access
	GoogleCredentialsJSON    string
	GoogleCredentialsJSONB64 string
	GoogleCredentialsFile    string
	InternalCalendarDomain   string
	ImpersonationSubject     string

	// Availability engine tuning
	HomeTimezone        string
	WorkStart           string
	WorkEnd             string
	CacheEnabled        bool
	CacheTTL            time.Duration
	FreeBusyMaxRetries  int
	FreeBusyBackoffBase time.Duration
	FreeBusyMinInterval time.Duration
	FreeBusyTimeout     time.Duration
	EventWriteTimeout   time.Duration
	BatchMaxCalendars   int

	CORSAllowedOrigins string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		GoogleCredentialsJSON:    getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleCredentialsJSONB64: getEnv("GOOGLE_CREDENTIALS_JSON_B64", ""),
		GoogleCredentialsFile:    getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		InternalCalendarDomain:   getEnv("INTERNAL_CALENDAR_DOMAIN", "solhealth.co"),
		ImpersonationSubject:     getEnv("CALENDAR_IMPERSONATION_SUBJECT", ""),

		HomeTimezone:        getEnv("HOME_TIMEZONE", "America/New_York"),
		WorkStart:           getEnv("WORK_START", "07:00"),
		WorkEnd:             getEnv("WORK_END", "22:00"),
		CacheEnabled:        getEnvAsBool("FREEBUSY_CACHE_ENABLED", false),
		CacheTTL:            getEnvAsDuration("FREEBUSY_CACHE_TTL", 5*time.Minute),
		FreeBusyMaxRetries:  getEnvAsInt("FREEBUSY_MAX_RETRIES", 3),
		FreeBusyBackoffBase: getEnvAsDuration("FREEBUSY_BACKOFF_BASE", 2*time.Second),
		FreeBusyMinInterval: getEnvAsDuration("FREEBUSY_MIN_INTERVAL", 100*time.Millisecond),
		FreeBusyTimeout:     getEnvAsDuration("FREEBUSY_TIMEOUT", 30*time.Second),
		EventWriteTimeout:   getEnvAsDuration("EVENT_WRITE_TIMEOUT", 10*time.Second),
		BatchMaxCalendars:   getEnvAsInt("BATCH_MAX_CALENDARS", 10),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 0),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 0),
	}
}

// CalendarCredentials resolves the service account JSON from the inline,
// base64, or file-based variable, in that order.
func (c *Config) CalendarCredentials() ([]byte, error) {
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	if c.GoogleCredentialsJSONB64 != "" {
		data, err := base64.StdEncoding.DecodeString(c.GoogleCredentialsJSONB64)
		if err != nil {
			return nil, fmt.Errorf("config: decoding GOOGLE_CREDENTIALS_JSON_B64: %w", err)
		}
		return data, nil
	}
	if c.GoogleCredentialsFile != "" {
		data, err := os.ReadFile(c.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("config: reading credentials file: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("config: no Google Calendar credentials configured")
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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
