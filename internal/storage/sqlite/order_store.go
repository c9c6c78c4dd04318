// Package sqlite хранит журнал заказов во встраиваемой базе SQLite через GORM.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/psalsa30/unithrift/internal/domain"
)

const insertBatchSize = 100

// orderRecord - строка таблицы orders; payload содержит заказ целиком, position начинается с 1.
type orderRecord struct {
	Position int64  `gorm:"primaryKey;autoIncrement:false"`
	OrderID  string `gorm:"index;not null"`
	Payload  string `gorm:"type:text;not null"`
	SavedAt  time.Time
}

func (orderRecord) TableName() string {
	return "orders"
}

// OrderStore - реализация domain.OrderStore поверх GORM.
type OrderStore struct {
	db     *gorm.DB
	logger *log.Entry
}

// Open открывает базу по пути (":memory:" для тестов) и создаёт таблицу.
func Open(path string, entry *log.Entry) (*OrderStore, error) {
	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite сериализует запись; одно соединение также сохраняет базу ":memory:" между запросами.
	sqlDB.SetMaxOpenConns(1)

	return NewOrderStore(db, entry)
}

// NewOrderStore оборачивает готовое подключение GORM и выполняет AutoMigrate.
func NewOrderStore(db *gorm.DB, entry *log.Entry) (*OrderStore, error) {
	if entry == nil {
		entry = log.New().WithField("component", "sqlite-store")
	}
	if err := db.AutoMigrate(&orderRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &OrderStore{db: db, logger: entry}, nil
}

// LoadAll читает заказы в порядке position.
func (s *OrderStore) LoadAll(ctx context.Context) ([]domain.Order, error) {
	var records []orderRecord
	if err := s.db.WithContext(ctx).Order("position asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: query orders: %v", domain.ErrPersistence, err)
	}

	orders := make([]domain.Order, 0, len(records))
	for _, rec := range records {
		var order domain.Order
		if err := json.Unmarshal([]byte(rec.Payload), &order); err != nil {
			s.logger.WithError(err).WithField("order_id", rec.OrderID).Warn("stored order is not readable, treating collection as empty")
			return []domain.Order{}, nil
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// SaveAll заменяет коллекцию внутри одной транзакции.
func (s *OrderStore) SaveAll(ctx context.Context, orders []domain.Order) error {
	now := time.Now().UTC()
	records := make([]orderRecord, 0, len(orders))
	for i, order := range orders {
		payload, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("%w: encode order %s: %v", domain.ErrPersistence, order.OrderID, err)
		}
		records = append(records, orderRecord{
			Position: int64(i + 1),
			OrderID:  order.OrderID,
			Payload:  string(payload),
			SavedAt:  now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&orderRecord{}).Error; err != nil {
			return fmt.Errorf("clear orders: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Ping проверяет подключение к базе.
func (s *OrderStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close закрывает подключение.
func (s *OrderStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ domain.OrderStore = (*OrderStore)(nil)
