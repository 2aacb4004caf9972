package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var ErrMissingDBHost = errors.New("DB_HOST is not set")

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	AppEnv     string

	AMQPURL         string
	KitchenExchange string

	// Defaults used when the settings table has no value.
	VATRate              decimal.Decimal // percentage, e.g. 20
	ServiceChargePercent decimal.Decimal
	KitchenScreen        bool
	DivisionHint         bool
}

// LoadConfig loads configuration and exits when the database is not configured.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal("Environment variables not loaded properly: ", err)
	}
	return cfg
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:          os.Getenv("DB_HOST"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBSSLMode:       getEnv("DB_SSLMODE", "disable"),
		AppEnv:          os.Getenv("APP_ENV"),
		AMQPURL:         os.Getenv("AMQP_URL"),
		KitchenExchange: getEnv("KITCHEN_EXCHANGE", "kitchen_tickets"),
	}

	if cfg.DBHost == "" {
		return nil, ErrMissingDBHost
	}

	var err error
	if cfg.VATRate, err = getDecimal("VAT_RATE", "0"); err != nil {
		return nil, err
	}
	if cfg.ServiceChargePercent, err = getDecimal("SERVICE_CHARGE", "0"); err != nil {
		return nil, err
	}
	if cfg.KitchenScreen, err = getBool("KITCHEN_SCREEN", false); err != nil {
		return nil, err
	}
	if cfg.DivisionHint, err = getBool("DIVISION_HINT", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
