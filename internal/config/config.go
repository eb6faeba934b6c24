package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr string
	Env      string

	DB      DatabaseConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Booking BookingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// BookingConfig is the externally supplied policy surface: credit costs,
// default cancellation fee and currency scale are never hard-coded.
type BookingConfig struct {
	CreditCost             int    // credits held for a plain booking
	SurchargeCreditCost    int    // credits held when the tier gate signals surcharge
	DefaultCancellationFee int64  // minor currency units
	Currency               string // ISO code
	CurrencyScale          int    // minor units per major unit, e.g. 100
}

func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8094"),
		Env:      getEnv("APP_ENV", "development"),
		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "meetings"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Booking: BookingConfig{
			CreditCost:             getEnvInt("BOOKING_CREDIT_COST", 1),
			SurchargeCreditCost:    getEnvInt("BOOKING_SURCHARGE_CREDIT_COST", 2),
			DefaultCancellationFee: getEnvInt64("DEFAULT_CANCELLATION_FEE", 0),
			Currency:               getEnv("WALLET_CURRENCY", "USD"),
			CurrencyScale:          getEnvInt("CURRENCY_SCALE", 100),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
