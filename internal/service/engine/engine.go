// Package engine - журнал заказов: checkout, смена статуса, удаление, выборки и аналитика поверх OrderStore.
package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/service/analytics"
)

const (
	opLoad = "load"
	opSave = "save"
)

// Engine каждый раз перечитывает коллекцию целиком, мутации записывают её обратно.
// Мутации сериализованы write-блокировкой на всё время load→mutate→save,
// чтения берут read-блокировку и не видят наполовину применённых изменений.
type Engine struct {
	mu        sync.RWMutex
	store     domain.OrderStore
	now       func() time.Time
	logger    *log.Entry
	publisher domain.EventPublisher
	recorder  Recorder

	// lastIDMillis - последнее выданное значение для монотонных orderId.
	lastIDMillis int64
}

// New создаёт движок поверх хранилища.
func New(store domain.OrderStore, opts ...Option) *Engine {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = log.New().WithField("component", "engine")
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.Recorder == nil {
		options.Recorder = noopRecorder{}
	}

	return &Engine{
		store:     store,
		now:       options.Clock,
		logger:    options.Logger,
		publisher: options.Publisher,
		recorder:  options.Recorder,
	}
}

// Checkout строит заказ из корзины, дописывает его в журнал и сохраняет.
func (e *Engine) Checkout(ctx context.Context, in domain.CheckoutInput) (domain.Order, error) {
	order, err := e.checkout(ctx, in)
	if err != nil {
		return domain.Order{}, err
	}

	e.recorder.OrderCheckedOut(order)
	e.publish(ctx, domain.OrderEvent{Type: domain.OrderEventCreated, Order: order, OccurredAt: order.CreatedAt})
	e.logger.WithFields(log.Fields{
		"order_id": order.OrderID,
		"total":    order.Total,
		"campus":   order.Campus,
	}).Info("order checked out")
	return order, nil
}

func (e *Engine) checkout(ctx context.Context, in domain.CheckoutInput) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	orders, err := e.loadForUpdate(ctx, "checkout")
	if err != nil {
		return domain.Order{}, err
	}

	now := e.now()
	order := domain.NewOrderFromCheckout(e.nextOrderID(now, orders), in, now)
	orders = append(orders, order)

	if err := e.save(ctx, orders, "checkout", order.OrderID); err != nil {
		return domain.Order{}, err
	}
	return order.Clone(), nil
}

// SetStatus переводит заказ в любой допустимый статус и ставит updatedAt.
// Статус проверяется до обращения к хранилищу.
func (e *Engine) SetStatus(ctx context.Context, orderID, status string) (domain.Order, error) {
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return domain.Order{}, err
	}

	updated, previous, err := e.setStatus(ctx, orderID, next)
	if err != nil {
		return domain.Order{}, err
	}

	e.recorder.OrderStatusChanged(previous, next)
	e.publish(ctx, domain.OrderEvent{
		Type:           domain.OrderEventStatusChanged,
		Order:          updated,
		PreviousStatus: previous,
		OccurredAt:     *updated.UpdatedAt,
	})
	e.logger.WithFields(log.Fields{
		"order_id": orderID,
		"from":     previous,
		"to":       next,
	}).Info("order status updated")
	return updated, nil
}

func (e *Engine) setStatus(ctx context.Context, orderID string, next domain.OrderStatus) (domain.Order, domain.OrderStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	orders, err := e.loadForUpdate(ctx, "set_status")
	if err != nil {
		return domain.Order{}, "", err
	}

	idx := indexOf(orders, orderID)
	if idx < 0 {
		return domain.Order{}, "", domain.ErrOrderNotFound
	}

	previous := orders[idx].Status
	updatedAt := e.now().UTC().Truncate(time.Millisecond)
	orders[idx].Status = next
	orders[idx].UpdatedAt = &updatedAt

	if err := e.save(ctx, orders, "set_status", orderID); err != nil {
		return domain.Order{}, "", err
	}
	return orders[idx].Clone(), previous, nil
}

// Delete удаляет первый заказ с указанным orderId. Если заказа нет, журнал не перезаписывается.
func (e *Engine) Delete(ctx context.Context, orderID string) error {
	removed, err := e.delete(ctx, orderID)
	if err != nil {
		return err
	}

	e.recorder.OrderDeleted()
	e.publish(ctx, domain.OrderEvent{Type: domain.OrderEventDeleted, Order: removed, OccurredAt: e.now().UTC()})
	e.logger.WithField("order_id", orderID).Info("order deleted")
	return nil
}

func (e *Engine) delete(ctx context.Context, orderID string) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	orders, err := e.loadForUpdate(ctx, "delete")
	if err != nil {
		return domain.Order{}, err
	}

	idx := indexOf(orders, orderID)
	if idx < 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	removed := orders[idx]
	orders = slices.Delete(orders, idx, idx+1)

	if err := e.save(ctx, orders, "delete", orderID); err != nil {
		return domain.Order{}, err
	}
	return removed, nil
}

// List возвращает все заказы в порядке хранения.
func (e *Engine) List(ctx context.Context) []domain.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.loadForRead(ctx, "list")
}

// Get ищет заказ по orderId.
func (e *Engine) Get(ctx context.Context, orderID string) (domain.Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	orders := e.loadForRead(ctx, "get")
	if idx := indexOf(orders, orderID); idx >= 0 {
		return orders[idx], nil
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

// Filter возвращает заказы, удовлетворяющие всем условиям.
func (e *Engine) Filter(ctx context.Context, c Criteria) []domain.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return FilterOrders(e.loadForRead(ctx, "filter"), c)
}

// Stats - сводка дашборда за последние 30 дней.
func (e *Engine) Stats(ctx context.Context) analytics.DashboardStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return analytics.Summarize(e.loadForRead(ctx, "stats"), e.now())
}

// RevenueByDate - выручка по дням за последние days дней.
func (e *Engine) RevenueByDate(ctx context.Context, days int) analytics.RevenueSeries {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return analytics.RevenueByDate(e.loadForRead(ctx, "revenue_by_date"), e.now(), days)
}

// OrdersByCategory - количество заказов по категориям.
func (e *Engine) OrdersByCategory(ctx context.Context) map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return analytics.OrdersByCategory(e.loadForRead(ctx, "orders_by_category"))
}

// RevenueByCampus - выручка по кампусам.
func (e *Engine) RevenueByCampus(ctx context.Context) map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return analytics.RevenueByCampus(e.loadForRead(ctx, "revenue_by_campus"))
}

// PaymentMethods - количество заказов по способам оплаты.
func (e *Engine) PaymentMethods(ctx context.Context) map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return analytics.PaymentMethods(e.loadForRead(ctx, "payment_methods"))
}

// loadForRead деградирует до пустой коллекции: чтения никогда не отдают ошибку хранилища.
func (e *Engine) loadForRead(ctx context.Context, operation string) []domain.Order {
	orders, err := e.load(ctx)
	if err != nil {
		e.logger.WithError(err).WithField("operation", operation).Warn("failed to load orders, serving empty collection")
		return []domain.Order{}
	}
	return orders
}

// loadForUpdate не подменяет сбой чтения пустой коллекцией, иначе последующая запись затёрла бы журнал.
func (e *Engine) loadForUpdate(ctx context.Context, operation string) ([]domain.Order, error) {
	orders, err := e.load(ctx)
	if err != nil {
		e.logger.WithError(err).WithField("operation", operation).Error("failed to load orders")
		return nil, fmt.Errorf("%s: %w", operation, wrapPersistence(err))
	}
	return orders, nil
}

func (e *Engine) load(ctx context.Context) ([]domain.Order, error) {
	start := time.Now()
	orders, err := e.store.LoadAll(ctx)
	e.recorder.ObserveStore(opLoad, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (e *Engine) save(ctx context.Context, orders []domain.Order, operation, orderID string) error {
	start := time.Now()
	err := e.store.SaveAll(ctx, orders)
	e.recorder.ObserveStore(opSave, time.Since(start), err)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"order_id":  orderID,
		}).Error("failed to save orders")
		return fmt.Errorf("%s: %w", operation, wrapPersistence(err))
	}
	return nil
}

// nextOrderID выдаёт ORD-<unix ms>; при совпадении с уже выданным или сохранённым значением сдвигается на 1 мс.
func (e *Engine) nextOrderID(now time.Time, existing []domain.Order) string {
	taken := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		taken[o.OrderID] = struct{}{}
	}

	millis := max(now.UnixMilli(), e.lastIDMillis+1)
	for {
		id := domain.FormatOrderID(millis)
		if _, ok := taken[id]; !ok {
			e.lastIDMillis = millis
			return id
		}
		millis++
	}
}

func (e *Engine) publish(ctx context.Context, event domain.OrderEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishOrderEvent(ctx, event); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.Order.OrderID,
			"event":    event.Type,
		}).Warn("failed to publish order event")
	}
}

func indexOf(orders []domain.Order, orderID string) int {
	return slices.IndexFunc(orders, func(o domain.Order) bool { return o.OrderID == orderID })
}

func wrapPersistence(err error) error {
	if domain.KindOf(err) == domain.KindPersistence {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}
