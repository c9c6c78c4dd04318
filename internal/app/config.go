package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/messaging/kafka"
)

// StorageDriver - бэкенд хранения журнала заказов.
type StorageDriver string

const (
	StorageDriverFile     StorageDriver = "file"
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverSQLite   StorageDriver = "sqlite"
	StorageDriverS3       StorageDriver = "s3"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string `validate:"required"`
	MetricsAddr string `validate:"required"`

	StorageDriver       StorageDriver `validate:"oneof=file memory postgres sqlite s3"`
	OrdersFile          string
	PostgresDSN         string
	PostgresAutoMigrate bool
	SQLitePath          string

	S3Bucket          string
	S3Key             string
	S3Region          string
	S3Endpoint        string `validate:"omitempty,url"`
	S3AccessKeyID     string
	S3SecretAccessKey string

	KafkaBrokers []string
	KafkaTopic   string

	CORSOrigins []string
	LogLevel    string `validate:"oneof=trace debug info warn warning error fatal panic"`
}

// DefaultConfig возвращает настройки для локального запуска: JSON-файл рядом с бинарником.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8000",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverFile,
		OrdersFile:          "orders.json",
		PostgresAutoMigrate: true,
		SQLitePath:          "unithrift.db",
		S3Key:               "orders.json",
		S3Region:            "us-east-1",
		KafkaTopic:          kafka.TopicOrderEvents,
		CORSOrigins:         []string{"*"},
		LogLevel:            "info",
	}
}

// LoadConfig читает .env (если есть) и переменные окружения поверх DefaultConfig.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env file")
	}
	return configFromEnv(os.LookupEnv)
}

func configFromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PORT"); ok {
		cfg.HTTPAddr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := get("UNITHRIFT_HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := get("UNITHRIFT_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := get("UNITHRIFT_STORAGE_DRIVER"); ok {
		cfg.StorageDriver = StorageDriver(strings.ToLower(v))
	}
	if v, ok := get("UNITHRIFT_ORDERS_FILE"); ok {
		cfg.OrdersFile = v
	}
	if v, ok := get("UNITHRIFT_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := get("UNITHRIFT_POSTGRES_AUTO_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("UNITHRIFT_POSTGRES_AUTO_MIGRATE: %w", err)
		}
		cfg.PostgresAutoMigrate = b
	}
	if v, ok := get("UNITHRIFT_SQLITE_PATH"); ok {
		cfg.SQLitePath = v
	}
	if v, ok := get("UNITHRIFT_S3_BUCKET"); ok {
		cfg.S3Bucket = v
	}
	if v, ok := get("UNITHRIFT_S3_KEY"); ok {
		cfg.S3Key = v
	}
	if v, ok := get("AWS_REGION"); ok {
		cfg.S3Region = v
	}
	if v, ok := get("UNITHRIFT_S3_ENDPOINT"); ok {
		cfg.S3Endpoint = v
	}
	if v, ok := get("AWS_ACCESS_KEY_ID"); ok {
		cfg.S3AccessKeyID = v
	}
	if v, ok := get("AWS_SECRET_ACCESS_KEY"); ok {
		cfg.S3SecretAccessKey = v
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		cfg.KafkaBrokers = splitList(v)
	}
	if v, ok := get("UNITHRIFT_KAFKA_TOPIC"); ok {
		cfg.KafkaTopic = v
	}
	if v, ok := get("UNITHRIFT_CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}
	if v, ok := get("UNITHRIFT_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate проверяет теги и требования выбранного драйвера хранения.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.StorageDriver {
	case StorageDriverFile:
		if c.OrdersFile == "" {
			return errors.New("invalid config: orders file is required for file storage")
		}
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("invalid config: UNITHRIFT_POSTGRES_DSN is required for postgres storage")
		}
	case StorageDriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("invalid config: UNITHRIFT_SQLITE_PATH is required for sqlite storage")
		}
	case StorageDriverS3:
		if c.S3Bucket == "" || c.S3Key == "" {
			return errors.New("invalid config: UNITHRIFT_S3_BUCKET and UNITHRIFT_S3_KEY are required for s3 storage")
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
