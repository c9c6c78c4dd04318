// Package metrics содержит Prometheus-метрики журнала заказов и HTTP API.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psalsa30/unithrift/internal/domain"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// OrderMetrics собирает метрики журнала заказов.
type OrderMetrics struct {
	// Бизнес-счётчики
	checkouts     prometheus.Counter
	revenueBooked prometheus.Counter
	transitions   *prometheus.CounterVec
	deletions     prometheus.Counter

	// Хранилище
	storeDuration *prometheus.HistogramVec
	storeFailures *prometheus.CounterVec

	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewOrderMetrics регистрирует метрики в глобальном реестре.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном реестре; повторная регистрация переиспользует коллекторы.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		checkouts: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unithrift_checkouts_total",
			Help: "Total number of orders placed through checkout",
		})),
		revenueBooked: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unithrift_revenue_booked_total",
			Help: "Sum of order totals accepted at checkout",
		})),
		transitions: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unithrift_order_status_transitions_total",
			Help: "Order status changes grouped by source and target status",
		}, []string{"from", "to"})),
		deletions: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unithrift_orders_deleted_total",
			Help: "Total number of deleted orders",
		})),
		storeDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unithrift_store_operation_duration_seconds",
			Help:    "Duration of order store load/save operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op", "result"})),
		storeFailures: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unithrift_store_failures_total",
			Help: "Order store operations that returned an error",
		}, []string{"op"})),
		httpRequests: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unithrift_http_requests_total",
			Help: "HTTP requests grouped by method, route and status code",
		}, []string{"method", "route", "code"})),
		httpDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unithrift_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})),
	}
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			panic(fmt.Sprintf("collector already registered with unexpected type %T", already.ExistingCollector))
		}
		return existing
	}
	panic(fmt.Sprintf("register collector: %v", err))
}

// ObserveStore записывает длительность обращения к хранилищу.
func (m *OrderMetrics) ObserveStore(op string, duration time.Duration, err error) {
	result := resultOK
	if err != nil {
		result = resultError
		m.storeFailures.WithLabelValues(op).Inc()
	}
	m.storeDuration.WithLabelValues(op, result).Observe(duration.Seconds())
}

// OrderCheckedOut учитывает новый заказ и его сумму.
func (m *OrderMetrics) OrderCheckedOut(order domain.Order) {
	m.checkouts.Inc()
	if order.Total > 0 {
		m.revenueBooked.Add(order.Total)
	}
}

// OrderStatusChanged учитывает смену статуса.
func (m *OrderMetrics) OrderStatusChanged(from, to domain.OrderStatus) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// OrderDeleted учитывает удаление заказа.
func (m *OrderMetrics) OrderDeleted() {
	m.deletions.Inc()
}

// ObserveHTTPRequest записывает обработанный HTTP-запрос. route - шаблон маршрута, а не сырой путь.
func (m *OrderMetrics) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
