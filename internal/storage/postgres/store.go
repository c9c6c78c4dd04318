// Package postgres хранит журнал заказов в PostgreSQL через database/sql и pgx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const probeTimeout = 5 * time.Second

var (
	errNotInitialized = errors.New("postgres ledger is not initialized")
	// ErrLedgerTableMissing - база доступна, но таблица orders ещё не создана миграциями.
	ErrLedgerTableMissing = errors.New("orders table is missing, run migrations")
)

// PoolSettings - параметры пула для журнала заказов.
// Engine сериализует запись, поэтому пулу хватает нескольких соединений.
type PoolSettings struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolSettings возвращает параметры пула по умолчанию.
func DefaultPoolSettings() PoolSettings {
	return PoolSettings{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

func (p PoolSettings) validate() error {
	if p.MaxOpenConns <= 0 {
		return fmt.Errorf("max open conns must be positive, got %d", p.MaxOpenConns)
	}
	if p.MaxIdleConns < 0 || p.MaxIdleConns > p.MaxOpenConns {
		return fmt.Errorf("max idle conns must be in [0, %d], got %d", p.MaxOpenConns, p.MaxIdleConns)
	}
	return nil
}

// Store - подключение к базе журнала: пул, миграции и проверки готовности.
type Store struct {
	db *sql.DB
}

// Open подключается к журналу с DefaultPoolSettings.
func Open(ctx context.Context, dsn string) (*Store, error) {
	return OpenWithPool(ctx, dsn, DefaultPoolSettings())
}

// OpenWithPool подключается к журналу и не возвращает Store, пока база не ответила на ping.
func OpenWithPool(ctx context.Context, dsn string, pool PoolSettings) (*Store, error) {
	if err := pool.validate(); err != nil {
		return nil, fmt.Errorf("postgres pool settings: %w", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres ledger: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres ledger: %w", err)
	}
	return store, nil
}

// DB отдаёт пул миграциям, OrderStore и тестам.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return s.db.PingContext(probeCtx)
}

// Check - проверка готовности для /readyz: база отвечает и таблица orders существует.
func (s *Store) Check(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var table sql.NullString
	if err := s.db.QueryRowContext(probeCtx, `SELECT to_regclass('orders')::text`).Scan(&table); err != nil {
		return fmt.Errorf("look up orders table: %w", err)
	}
	if !table.Valid {
		return ErrLedgerTableMissing
	}
	return nil
}

// EnsureSchema доводит схему журнала до последней миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
