package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppEnv   string
	LogLevel string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	HTTPUserAgent  string
	HTTPCookie     string
	RequestDelayMs int
	MaxRetries     int
	MaxConcurrency int
	UseBrowser     bool
	ChromeBin      string

	CSVOutputPath      string
	SuburbsPath        string
	SuburbProfilesPath string

	APIPort int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool

	NotifySchedule string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		AppEnv:   getEnv("APP_ENV", "local"),
		LogLevel: getEnv("LOG_LEVEL", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "hunter"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "hunter"),
		PostgresDB:       getEnv("POSTGRES_DB", "propertyhunter"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		HTTPUserAgent:  getEnv("HTTP_USER_AGENT", "PropertyHunterBot/0.1 (+contact@example.com)"),
		HTTPCookie:     getEnv("HTTP_COOKIE", ""),
		RequestDelayMs: getEnvInt("REQUEST_DELAY_MS", 1500),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		UseBrowser:     getEnvBool("USE_BROWSER", false),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		CSVOutputPath:      getEnv("CSV_OUTPUT_PATH", ""),
		SuburbsPath:        getEnv("SUBURBS_PATH", ""),
		SuburbProfilesPath: getEnv("SUBURB_PROFILES_PATH", ""),

		APIPort: getEnvInt("API_PORT", 8080),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPUseTLS:   getEnvBool("SMTP_USE_TLS", true),

		NotifySchedule: getEnv("NOTIFY_SCHEDULE", "@every 24h"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}
