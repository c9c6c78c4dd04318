package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/health"
	"github.com/psalsa30/unithrift/internal/resilience"
	"github.com/psalsa30/unithrift/internal/storage/file"
	"github.com/psalsa30/unithrift/internal/storage/memory"
	"github.com/psalsa30/unithrift/internal/storage/postgres"
	s3store "github.com/psalsa30/unithrift/internal/storage/s3"
	"github.com/psalsa30/unithrift/internal/storage/sqlite"
)

// runtimeDependencies - выбранное хранилище, его проверка готовности и освобождение ресурсов.
type runtimeDependencies struct {
	store domain.OrderStore
	check health.CheckFunc
	close func() error
}

// startupRetry - ожидание базы, которая поднимается вместе с сервисом.
var startupRetry = resilience.RetryConfig{
	MaxAttempts:   5,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      5 * time.Second,
	BackoffFactor: 2,
}

func noopClose() error { return nil }

func noopCheck(context.Context) error { return nil }

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	logger = logger.WithField("driver", cfg.StorageDriver)

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Warn("orders are kept in memory and will be lost on restart")
		return &runtimeDependencies{store: memory.NewOrderStore(), check: noopCheck, close: noopClose}, nil

	case StorageDriverFile, "":
		store := file.NewOrderStore(cfg.OrdersFile, logger.WithField("component", "file-store"))
		logger.WithField("path", store.Path()).Info("using file storage")
		return &runtimeDependencies{store: store, check: store.Check, close: noopClose}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires UNITHRIFT_POSTGRES_DSN")
		}
		var pg *postgres.Store
		err := resilience.Retry(ctx, startupRetry, logger, "open_postgres", func(ctx context.Context) error {
			var openErr error
			pg, openErr = postgres.Open(ctx, cfg.PostgresDSN)
			return openErr
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		logger.Info("using postgres storage")
		return &runtimeDependencies{
			store: postgres.NewOrderStore(pg, logger.WithField("component", "postgres-store")),
			check: pg.Check,
			close: pg.Close,
		}, nil

	case StorageDriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger.WithField("component", "sqlite-store"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.WithField("path", cfg.SQLitePath).Info("using sqlite storage")
		return &runtimeDependencies{store: store, check: store.Ping, close: store.Close}, nil

	case StorageDriverS3:
		client, err := s3store.NewClient(ctx, s3store.ClientConfig{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		store := s3store.NewOrderStore(client, cfg.S3Bucket, cfg.S3Key, logger.WithField("component", "s3-store"))
		logger.WithFields(log.Fields{"bucket": cfg.S3Bucket, "key": cfg.S3Key}).Info("using s3 storage")
		return &runtimeDependencies{store: store, check: store.Check, close: noopClose}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
