package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	GinMode   string
	LogFormat string

	DBHost                 string
	DBPort                 string
	DBUser                 string
	DBPassword             string
	DBName                 string
	DBMaxOpenConns         int
	DBMaxIdleConns         int
	DBConnMaxLifetime      time.Duration
	DBConnectAttempts      int
	DBConnectRetryInterval time.Duration

	RedisHost     string
	RedisPort     string
	RedisPassword string

	CacheEnabled   bool
	LookupCacheTTL time.Duration

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int

	StorageRoot string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	RabbitMQURL   string
	NotifyTimeout time.Duration

	AuthRateLimit int
}

// Load читает .env (если есть) и переменные окружения
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		GinMode:   getEnv("GIN_MODE", "debug"),
		LogFormat: os.Getenv("LOG_FORMAT"),

		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 getEnv("DB_PORT", "5432"),
		DBUser:                 getEnv("DB_USER", "postgres"),
		DBPassword:             os.Getenv("DB_PASSWORD"),
		DBName:                 getEnv("DB_NAME", "gatepass"),
		DBMaxOpenConns:         getInt("DB_MAX_OPEN_CONNS", 100),
		DBMaxIdleConns:         getInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime:      time.Duration(getInt("DB_CONN_MAX_LIFETIME_MINUTES", 60)) * time.Minute,
		DBConnectAttempts:      getInt("DB_CONNECT_ATTEMPTS", 5),
		DBConnectRetryInterval: 5 * time.Second,

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		CacheEnabled:   os.Getenv("CACHE_ENABLED") == "true",
		LookupCacheTTL: time.Duration(getInt("LOOKUP_CACHE_TTL_SECONDS", 300)) * time.Second,

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  time.Duration(getInt("ACCESS_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		RefreshTokenTTL: time.Duration(getInt("REFRESH_TOKEN_TTL_HOURS", 24*7)) * time.Hour,
		BcryptCost:      getInt("BCRYPT_COST", 12),

		StorageRoot: getEnv("STORAGE_ROOT", "./uploads"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@gatepass.local"),

		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		NotifyTimeout: time.Duration(getInt("NOTIFY_TIMEOUT_SECONDS", 10)) * time.Second,

		// Запросов в минуту с одного IP к /auth/login и /auth/register
		AuthRateLimit: getInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
	}
}

// PostgresDSN собирает строку подключения к PostgreSQL
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Некорректное значение %s=%q, используем %d", key, v, fallback)
		return fallback
	}
	return n
}
