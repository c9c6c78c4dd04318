package app

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/messaging/kafka"
	"github.com/psalsa30/unithrift/internal/resilience"
)

const (
	publishMaxFailures  = 3
	publishResetTimeout = 30 * time.Second
)

// initEventPublisher подключает Kafka, если заданы брокеры.
// Недоступная Kafka не мешает запуску: сервис работает без публикации событий.
func initEventPublisher(brokers []string, topic string, logger *log.Entry) (domain.EventPublisher, *kafka.Producer) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, nil
	}

	logger.WithFields(log.Fields{"brokers": brokers, "topic": topic}).Info("kafka producer initialized")
	breaker := resilience.NewCircuitBreaker(publishMaxFailures, publishResetTimeout, logger.WithField("component", "kafka-breaker"))
	return kafka.NewOrderEventPublisher(producer, topic).WithBreaker(breaker), producer
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
