package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	SheetTransportGoogle = "google"
	SheetTransportXLSX   = "xlsx"
)

type RabbitMQConfig struct {
	Enabled bool
	URL     string
}

type RESTConfig struct {
	Port           string
	AllowedOrigins []string
}

type StorageConfig struct {
	Driver      string
	DatabaseURL string
	MaxConns    int
}

type SheetConfig struct {
	Transport       string
	CredentialsFile string // service account для Google Sheets
	XLSXDir         string
}

type SyncConfig struct {
	Workers    int
	RowTimeout time.Duration
	RunTimeout time.Duration
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	Rest         RESTConfig
	Storage      StorageConfig
	Sheet        SheetConfig
	Sync         SyncConfig
	RabbitMQ     RabbitMQConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig читает .env (если он есть) и переменные окружения
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: Could not load .env file (path: %v): %v. Using process environment.\n", envPath, err)
	}

	cfg := &AppConfig{}
	cfg.AppName = getEnvAsString("APP_NAME", "interior-sync-service")

	cfg.Rest.Port = getEnvAsString("PORT", "8090")
	cfg.Rest.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS")

	cfg.Storage.Driver = strings.ToLower(getEnvAsString("STORAGE_DRIVER", StorageDriverPostgres))
	cfg.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.Storage.MaxConns = getEnvAsInt("DATABASE_MAX_CONNS", 10)

	cfg.Sheet.Transport = strings.ToLower(getEnvAsString("SHEET_TRANSPORT", SheetTransportGoogle))
	cfg.Sheet.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	cfg.Sheet.XLSXDir = getEnvAsString("XLSX_DIR", "./sheets")

	cfg.Sync.Workers = getEnvAsInt("SYNC_WORKERS", 8)
	cfg.Sync.RowTimeout = getEnvAsDuration("SYNC_ROW_TIMEOUT", 15*time.Second)
	cfg.Sync.RunTimeout = getEnvAsDuration("SYNC_RUN_TIMEOUT", 5*time.Minute)

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет сочетания настроек, без которых сервис не поднять
func (c *AppConfig) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for STORAGE_DRIVER=postgres")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Sheet.Transport {
	case SheetTransportGoogle:
		if c.Sheet.CredentialsFile == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS_FILE environment variable is required for SHEET_TRANSPORT=google")
		}
	case SheetTransportXLSX:
		if c.Sheet.XLSXDir == "" {
			return fmt.Errorf("XLSX_DIR environment variable is required for SHEET_TRANSPORT=xlsx")
		}
	default:
		return fmt.Errorf("unknown SHEET_TRANSPORT %q", c.Sheet.Transport)
	}

	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("RABBITMQ_URL environment variable is required when RABBITMQ_ENABLED is true")
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("SYNC_WORKERS must be positive, got %d", c.Sync.Workers)
	}
	return nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt: нечисловое значение логируется и заменяется значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists || valStr == "" {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsDuration понимает "15s", "5m" и т.п.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists || valStr == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(valStr)
	if err != nil || d <= 0 {
		log.Printf("Warning: Environment variable %s (value: %s) is not a positive duration. Using default value: %s\n", key, valStr, defaultValue)
		return defaultValue
	}
	return d
}

// getEnvAsList - список через запятую, пустые элементы отбрасываются
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
