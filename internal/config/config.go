package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port     string `validate:"required,numeric"`
	GinMode  string `validate:"oneof=debug release test"`
	LogLevel string `validate:"oneof=trace debug info warn error"`
	LogJSON  bool

	DBDriver   string `validate:"oneof=sqlite postgres"`
	DBPath     string `validate:"required_if=DBDriver sqlite"`
	DBHost     string `validate:"required_if=DBDriver postgres"`
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string `validate:"required_if=DBDriver postgres"`
	DBSSLMode  string

	// Drop folders
	DropRoot      string        `validate:"required"`
	SentDir       string        `validate:"required,excludesall=/"`
	ScanInterval  time.Duration `validate:"min=100ms"`
	WatchFSEvents bool

	// Dispatch pacing
	BatchSize  int           `validate:"min=1"`
	BatchDelay time.Duration `validate:"min=0"`

	// SMS broker
	BrokerURL       string        `validate:"required,url"`
	BrokerToken     string        `validate:"required"`
	Originator      string        `validate:"required"`
	GatewayTimeout  time.Duration `validate:"min=1s"`
	PricePerMessage int           `validate:"min=0"`
	DefaultSenderID uint          `validate:"min=1"`

	ShutdownTimeout time.Duration
}

// LoadConfig reads the environment (and an optional .env file) and validates the result.
func LoadConfig() (*Config, error) {
	cfg := Read()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds a Config from the environment without validating it. Tools that
// only need part of the settings use it directly.
func Read() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file loaded, using process environment")
	}

	return &Config{
		Port:     getEnv("PORT", "4040"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", false),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "./sms.db"),
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", ""),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		DropRoot:      getEnv("DROP_ROOT", "./public"),
		SentDir:       getEnv("SENT_DIR", "sent"),
		ScanInterval:  getEnvDuration("SCAN_INTERVAL", 10*time.Second),
		WatchFSEvents: getEnvBool("WATCH_FS_EVENTS", false),

		BatchSize:  getEnvInt("BATCH_SIZE", 100),
		BatchDelay: getEnvDuration("BATCH_DELAY", 300*time.Millisecond),

		BrokerURL:       getEnv("SMS_BROKER_API", ""),
		BrokerToken:     getEnv("SMS_BROKER_TOKEN", ""),
		Originator:      getEnv("SMS_ORIGINATOR", "3700"),
		GatewayTimeout:  getEnvDuration("SMS_GATEWAY_TIMEOUT", 15*time.Second),
		PricePerMessage: getEnvInt("SMS_PRICE", 100),
		DefaultSenderID: getEnvUint("DEFAULT_SENDER_ID", 1),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("not an integer, using default")
		return fallback
	}
	return n
}

func getEnvUint(key string, fallback uint) uint {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("not a non-negative integer, using default")
		return fallback
	}
	return uint(n)
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("not a boolean, using default")
		return fallback
	}
	return b
}

// getEnvDuration accepts Go durations ("300ms", "10s") or a bare number of milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Warn().Str("key", key).Str("value", value).Msg("not a duration, using default")
	return fallback
}
