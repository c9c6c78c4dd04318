// Package kafka публикует события журнала заказов в Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/resilience"
)

// Producer - синхронный Kafka producer.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer подключается к брокерам.
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducerWithClient(producer), nil
}

// NewProducerWithClient оборачивает готовый SyncProducer.
func NewProducerWithClient(producer sarama.SyncProducer) *Producer {
	return &Producer{
		producer: producer,
		logger:   log.WithField("component", "kafka-producer"),
	}
}

// PublishEvent сериализует event в JSON и отправляет с ключом key.
func (p *Producer) PublishEvent(topic, key string, event any, headers ...sarama.RecordHeader) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(eventData),
		Headers:   headers,
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")
	return nil
}

// Close закрывает producer.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

// OrderEventPublisher реализует domain.EventPublisher поверх Producer.
type OrderEventPublisher struct {
	producer *Producer
	topic    string
	breaker  *resilience.CircuitBreaker
}

var _ domain.EventPublisher = (*OrderEventPublisher)(nil)

// NewOrderEventPublisher создаёт publisher; пустой topic заменяется на TopicOrderEvents.
func NewOrderEventPublisher(producer *Producer, topic string) *OrderEventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OrderEventPublisher{producer: producer, topic: topic}
}

// WithBreaker пропускает публикации через breaker: при недоступной Kafka запросы не ждут ретраев sarama.
func (p *OrderEventPublisher) WithBreaker(breaker *resilience.CircuitBreaker) *OrderEventPublisher {
	p.breaker = breaker
	return p
}

// PublishOrderEvent отправляет событие с ключом orderId, чтобы события одного заказа шли в одну партицию.
func (p *OrderEventPublisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := NewOrderEventMessage(event)
	send := func() error {
		return p.producer.PublishEvent(p.topic, msg.OrderID, msg,
			sarama.RecordHeader{Key: []byte(HeaderEventType), Value: []byte(msg.EventType)},
			sarama.RecordHeader{Key: []byte(HeaderEventID), Value: []byte(msg.EventID)},
		)
	}
	if p.breaker == nil {
		return send()
	}
	return p.breaker.Execute("publish_order_event", send)
}
