package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr      string
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	SQLitePath    string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	GinMode       string
	LogLevel      string
	OpenAIAPIKey  string

	// Telegram
	BotToken       string
	BotAPIKey      string
	TelegramAPIURL string
	WebAppURL      string
	InitDataMaxAge time.Duration

	// Bearer credentials
	JWTSecret string
	JWTTTL    time.Duration

	// Notifications
	NotifyQueue     string
	NotifyQueueSize int
	NotifyTimeout   time.Duration
}

func Load() *Config {
	return &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "collab"),
		DBPassword:    getEnv("DB_PASSWORD", "collabpassword"),
		DBName:        getEnv("DB_NAME", "collab"),
		SQLitePath:    getEnv("SQLITE_PATH", "instance/app.db"),
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),

		BotToken:       getEnv("BOT_TOKEN", ""),
		BotAPIKey:      getEnv("BOT_API_KEY", ""),
		TelegramAPIURL: getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		WebAppURL:      getEnv("WEBAPP_URL", ""),
		InitDataMaxAge: time.Duration(getEnvInt("INIT_DATA_MAX_AGE_SECONDS", 86400)) * time.Second,

		JWTSecret: getEnv("JWT_SECRET", "super-secret-jwt-key-change-me"),
		JWTTTL:    time.Duration(getEnvInt("JWT_TTL_SECONDS", 3600)) * time.Second,

		NotifyQueue:     strings.ToLower(getEnv("NOTIFY_QUEUE", "memory")),
		NotifyQueueSize: getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyTimeout:   time.Duration(getEnvInt("NOTIFY_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

// RedisAddr returns host:port, or an empty string when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}
