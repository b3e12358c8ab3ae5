package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Cart     CartConfig
	Payment  PaymentConfig
	Shipping ShippingConfig
	AMQP     AMQPConfig
	S3       S3Config
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// CartConfig controls where cart documents live and how long idle carts survive.
type CartConfig struct {
	Backend       string // "database" or "redis"
	CookieName    string
	CookieSecure  bool
	Retention     time.Duration
	PurgeSchedule string        // cron spec
	IdleTimeout   time.Duration // in-memory carts unused this long are evicted
}

type PaymentConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

type ShippingConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type S3Config struct {
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	BaseURL          string // CloudFront or S3 direct URL
	PlaceholderImage string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "udonggeum_storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "10")),
			MaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "100")),
			ConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0")),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m")),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Cart: CartConfig{
			Backend:       getEnv("CART_BACKEND", "database"),
			CookieName:    getEnv("CART_COOKIE_NAME", "cart_session"),
			CookieSecure:  getEnv("CART_COOKIE_SECURE", "false") == "true",
			Retention:     parseDuration(getEnv("CART_RETENTION", "720h")),
			PurgeSchedule: getEnv("CART_PURGE_SCHEDULE", "0 4 * * *"),
			IdleTimeout:   parseDuration(getEnv("CART_IDLE_TIMEOUT", "30m")),
		},
		Payment: PaymentConfig{
			SecretKey: getEnv("PAYMENT_SECRET_KEY", ""),
			BaseURL:   getEnv("PAYMENT_BASE_URL", "https://api.payments.example.com/v1"),
			Timeout:   parseDuration(getEnv("PAYMENT_TIMEOUT", "10s")),
		},
		Shipping: ShippingConfig{
			APIKey:  getEnv("SHIPPING_API_KEY", ""),
			BaseURL: getEnv("SHIPPING_BASE_URL", "https://api.shipping.example.com/v1"),
			Timeout: parseDuration(getEnv("SHIPPING_TIMEOUT", "5s")),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "storefront.events"),
		},
		S3: S3Config{
			Region:           getEnv("AWS_REGION", "ap-northeast-2"),
			Bucket:           getEnv("AWS_S3_BUCKET", "udonggeum-uploads"),
			AccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:          getEnv("AWS_S3_BASE_URL", ""),
			PlaceholderImage: getEnv("PLACEHOLDER_IMAGE_URL", "/static/placeholder.png"),
		},
	}

	if config.Cart.Backend != "database" && config.Cart.Backend != "redis" {
		return nil, fmt.Errorf("unsupported CART_BACKEND %q", config.Cart.Backend)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default 15m", s)
		return 15 * time.Minute
	}
	return duration
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using 0", s)
		return 0
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
