package domain

import (
	"context"
	"time"
)

// OrderStore - долговременное хранилище всей коллекции заказов.
type OrderStore interface {
	// LoadAll читает коллекцию целиком. Отсутствующий, пустой или нечитаемый документ даёт пустую коллекцию;
	// ошибка возвращается только при сбое доступа к хранилищу и оборачивает ErrPersistence.
	LoadAll(ctx context.Context) ([]Order, error)
	// SaveAll атомарно заменяет коллекцию. Читатель никогда не видит частично записанные данные.
	SaveAll(ctx context.Context, orders []Order) error
}

// OrderEventType - тип события жизненного цикла заказа.
type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventDeleted       OrderEventType = "order.deleted"
)

// OrderEvent фиксирует успешно сохранённую мутацию журнала.
type OrderEvent struct {
	Type           OrderEventType
	Order          Order
	PreviousStatus OrderStatus
	OccurredAt     time.Time
}

// EventPublisher передаёт события заказов наружу (Kafka и т.п.).
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}
