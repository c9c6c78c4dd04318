package kafka

import (
	"time"

	"github.com/google/uuid"

	"github.com/psalsa30/unithrift/internal/domain"
)

// TopicOrderEvents - топик по умолчанию для событий журнала заказов.
const TopicOrderEvents = "unithrift.order.events"

// Заголовки сообщения.
const (
	HeaderEventType = "x-event-type"
	HeaderEventID   = "x-event-id"
)

// OrderEventMessage - тело сообщения в Kafka.
type OrderEventMessage struct {
	EventID        string                `json:"event_id"`
	EventType      domain.OrderEventType `json:"event_type"`
	OrderID        string                `json:"order_id"`
	Status         domain.OrderStatus    `json:"status"`
	PreviousStatus domain.OrderStatus    `json:"previous_status,omitempty"`
	Customer       string                `json:"customer"`
	Campus         string                `json:"campus"`
	Category       string                `json:"category"`
	Total          float64               `json:"total"`
	Timestamp      time.Time             `json:"timestamp"`
}

// NewOrderEventMessage собирает сообщение из доменного события.
func NewOrderEventMessage(event domain.OrderEvent) *OrderEventMessage {
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &OrderEventMessage{
		EventID:        uuid.NewString(),
		EventType:      event.Type,
		OrderID:        event.Order.OrderID,
		Status:         event.Order.Status,
		PreviousStatus: event.PreviousStatus,
		Customer:       event.Order.Customer,
		Campus:         event.Order.CampusOrDefault(),
		Category:       event.Order.CategoryOrDefault(),
		Total:          event.Order.Total,
		Timestamp:      ts,
	}
}
