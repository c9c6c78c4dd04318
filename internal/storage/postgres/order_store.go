package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/domain"
)

const opTimeout = 5 * time.Second

// OrderStore хранит каждый заказ отдельной строкой с JSONB-документом; порядок задаёт position.
// orderId не уникален на уровне схемы: журнал допускает коллизии идентификаторов.
type OrderStore struct {
	db     *sql.DB
	logger *log.Entry
}

// NewOrderStore создаёт PostgreSQL-реализацию domain.OrderStore.
func NewOrderStore(store *Store, logger *log.Entry) *OrderStore {
	if logger == nil {
		logger = log.New().WithField("component", "postgres-store")
	}
	return &OrderStore{db: store.DB(), logger: logger}
}

// LoadAll читает коллекцию в порядке вставки.
func (s *OrderStore) LoadAll(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT order_id, payload FROM orders ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query orders: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			orderID string
			payload []byte
		)
		if err := rows.Scan(&orderID, &payload); err != nil {
			return nil, fmt.Errorf("%w: scan order: %v", domain.ErrPersistence, err)
		}

		var order domain.Order
		if err := json.Unmarshal(payload, &order); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("stored order is not readable, treating collection as empty")
			return []domain.Order{}, nil
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate orders: %v", domain.ErrPersistence, err)
	}

	return orders, nil
}

// SaveAll заменяет коллекцию в одной транзакции: читатели видят либо старую, либо новую версию.
func (s *OrderStore) SaveAll(ctx context.Context, orders []domain.Order) (err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("%w: clear orders: %v", domain.ErrPersistence, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO orders (order_id, position, payload, saved_at) VALUES ($1, $2, $3, NOW())`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", domain.ErrPersistence, err)
	}
	defer stmt.Close()

	for i, order := range orders {
		payload, marshalErr := json.Marshal(order)
		if marshalErr != nil {
			err = fmt.Errorf("%w: encode order %s: %v", domain.ErrPersistence, order.OrderID, marshalErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, order.OrderID, i, payload); err != nil {
			return fmt.Errorf("%w: insert order %s: %v", domain.ErrPersistence, order.OrderID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	return nil
}

var _ domain.OrderStore = (*OrderStore)(nil)
