package engine

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/domain"
)

// Recorder принимает операционные метрики журнала.
type Recorder interface {
	// ObserveStore фиксирует длительность и результат обращения к хранилищу (op = load|save).
	ObserveStore(op string, duration time.Duration, err error)
	// OrderCheckedOut вызывается после сохранения нового заказа.
	OrderCheckedOut(order domain.Order)
	// OrderStatusChanged вызывается после сохранения смены статуса.
	OrderStatusChanged(from, to domain.OrderStatus)
	// OrderDeleted вызывается после сохранения удаления.
	OrderDeleted()
}

// Options задаёт зависимости Engine.
type Options struct {
	Logger    *log.Entry
	Clock     func() time.Time
	Publisher domain.EventPublisher
	Recorder  Recorder
}

// Option настраивает Engine.
type Option func(*Options)

// WithLogger задаёт logger движка.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithPublisher включает публикацию событий после успешных мутаций.
func WithPublisher(publisher domain.EventPublisher) Option {
	return func(opts *Options) {
		opts.Publisher = publisher
	}
}

// WithRecorder подключает метрики.
func WithRecorder(recorder Recorder) Option {
	return func(opts *Options) {
		opts.Recorder = recorder
	}
}

type noopRecorder struct{}

func (noopRecorder) ObserveStore(string, time.Duration, error) {}

func (noopRecorder) OrderCheckedOut(domain.Order) {}

func (noopRecorder) OrderStatusChanged(domain.OrderStatus, domain.OrderStatus) {}

func (noopRecorder) OrderDeleted() {}
