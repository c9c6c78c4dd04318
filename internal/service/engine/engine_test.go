package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/service/engine"
	"github.com/psalsa30/unithrift/internal/storage/file"
	"github.com/psalsa30/unithrift/internal/storage/memory"
)

var fixedNow = time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// flakyStore - хранилище с управляемыми ошибками.
type flakyStore struct {
	mu      sync.Mutex
	inner   domain.OrderStore
	loadErr error
	saveErr error
	saves   int
}

func (s *flakyStore) LoadAll(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	err := s.loadErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.inner.LoadAll(ctx)
}

func (s *flakyStore) SaveAll(ctx context.Context, orders []domain.Order) error {
	s.mu.Lock()
	s.saves++
	err := s.saveErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.SaveAll(ctx, orders)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *capturePublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type countingRecorder struct {
	mu          sync.Mutex
	checkouts   int
	transitions []string
	deletes     int
	storeErrs   int
}

func (r *countingRecorder) ObserveStore(_ string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.storeErrs++
	}
}

func (r *countingRecorder) OrderCheckedOut(domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkouts++
}

func (r *countingRecorder) OrderStatusChanged(from, to domain.OrderStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, fmt.Sprintf("%s->%s", from, to))
}

func (r *countingRecorder) OrderDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
}

func checkoutInput(items string) domain.CheckoutInput {
	return domain.CheckoutInput{Items: json.RawMessage(items), Phone: "09171112222", Campus: "UST", PaymentMethod: "gcash"}
}

func TestEngine_CheckoutPersistsAndReturnsOrder(t *testing.T) {
	store := memory.NewOrderStore()
	publisher := &capturePublisher{}
	recorder := &countingRecorder{}
	e := engine.New(store, engine.WithClock(fixedClock), engine.WithPublisher(publisher), engine.WithRecorder(recorder))
	ctx := context.Background()

	order, err := e.Checkout(ctx, checkoutInput(`[{"id":"s-204","price":120,"qty":2,"category":"School Supplies"}]`))
	require.NoError(t, err)

	assert.Equal(t, domain.FormatOrderID(fixedNow.UnixMilli()), order.OrderID)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, 240.0, order.Total)
	assert.Equal(t, "School Supplies", order.Category)

	stored, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, order.OrderID, stored[0].OrderID)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, domain.OrderEventCreated, publisher.events[0].Type)
	assert.Equal(t, 1, recorder.checkouts)
}

func TestEngine_CheckoutIDsAreUniqueForSameMillisecond(t *testing.T) {
	e := engine.New(memory.NewOrderStore(), engine.WithClock(fixedClock))
	ctx := context.Background()

	first, err := e.Checkout(ctx, domain.CheckoutInput{})
	require.NoError(t, err)
	second, err := e.Checkout(ctx, domain.CheckoutInput{})
	require.NoError(t, err)

	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Equal(t, domain.FormatOrderID(fixedNow.UnixMilli()+1), second.OrderID)
}

func TestEngine_CheckoutSkipsIDsAlreadyStored(t *testing.T) {
	existing := domain.Order{OrderID: domain.FormatOrderID(fixedNow.UnixMilli()), Status: domain.OrderStatusConfirmed}
	e := engine.New(memory.NewOrderStore(existing), engine.WithClock(fixedClock))

	order, err := e.Checkout(context.Background(), domain.CheckoutInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatOrderID(fixedNow.UnixMilli()+1), order.OrderID)
}

func TestEngine_ConcurrentCheckoutsAreAllPersisted(t *testing.T) {
	store := memory.NewOrderStore()
	e := engine.New(store)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Checkout(ctx, checkoutInput(`[{"price":1,"qty":1}]`))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	orders := e.List(ctx)
	require.Len(t, orders, n)
	seen := map[string]bool{}
	for _, o := range orders {
		assert.False(t, seen[o.OrderID], "duplicate id %s", o.OrderID)
		seen[o.OrderID] = true
	}
}

func TestEngine_CheckoutWithOverflowingLineIsPersisted(t *testing.T) {
	store := file.NewOrderStore(filepath.Join(t.TempDir(), "orders.json"), nil)
	e := engine.New(store, engine.WithClock(fixedClock))
	ctx := context.Background()

	order, err := e.Checkout(ctx, checkoutInput(`[{"price":1e308,"qty":10}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, order.Items)
	assert.Equal(t, 0.0, order.Subtotal)
	assert.Equal(t, 0.0, order.Total)

	stored := e.List(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, order.OrderID, stored[0].OrderID)
}

func TestEngine_CheckoutKeepsLegacyOrdersInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	legacy := `[
  {"orderId":"ORD-1","status":"confirmed","phone":"0917","total":10,"createdAt":"2025-07-01T08:00:00.000Z","date":"2025-07-01T08:00:00.000Z"},
  {"orderId":"ORD-2","status":"ready","phone":9171234567,"total":"20","createdAt":"2025-07-02T08:00:00.000Z","date":"2025-07-02T08:00:00.000Z"}
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))
	e := engine.New(file.NewOrderStore(path, nil), engine.WithClock(fixedClock))
	ctx := context.Background()

	require.Len(t, e.List(ctx), 2)

	_, err := e.Checkout(ctx, domain.CheckoutInput{Phone: "0918"})
	require.NoError(t, err)

	orders := e.List(ctx)
	require.Len(t, orders, 3)
	assert.Equal(t, "9171234567", orders[1].Phone)
	assert.Equal(t, 20.0, orders[1].Total)
}

func TestEngine_CheckoutSaveFailure(t *testing.T) {
	store := &flakyStore{inner: memory.NewOrderStore(), saveErr: fmt.Errorf("%w: disk full", domain.ErrPersistence)}
	publisher := &capturePublisher{}
	e := engine.New(store, engine.WithPublisher(publisher))

	_, err := e.Checkout(context.Background(), domain.CheckoutInput{})
	require.Error(t, err)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))
	assert.Empty(t, publisher.events)

	store.saveErr = nil
	assert.Empty(t, e.List(context.Background()))
}

func TestEngine_MutationDoesNotOverwriteWhenLoadFails(t *testing.T) {
	store := &flakyStore{inner: memory.NewOrderStore(domain.Order{OrderID: "ORD-1", Status: domain.OrderStatusConfirmed}), loadErr: errors.New("connection refused")}
	e := engine.New(store)
	ctx := context.Background()

	_, err := e.Checkout(ctx, domain.CheckoutInput{})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	_, err = e.SetStatus(ctx, "ORD-1", "ready")
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, e.Delete(ctx, "ORD-1"), domain.ErrPersistence)
	assert.Equal(t, 0, store.saves)
}

func TestEngine_ReadsDegradeToEmpty(t *testing.T) {
	store := &flakyStore{inner: memory.NewOrderStore(domain.Order{OrderID: "ORD-1"}), loadErr: errors.New("timeout")}
	recorder := &countingRecorder{}
	e := engine.New(store, engine.WithRecorder(recorder))
	ctx := context.Background()

	assert.Empty(t, e.List(ctx))
	assert.Empty(t, e.Filter(ctx, engine.Criteria{}))
	assert.Equal(t, 0, e.Stats(ctx).TotalOrders)
	assert.Empty(t, e.OrdersByCategory(ctx))
	_, err := e.Get(ctx, "ORD-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Equal(t, 5, recorder.storeErrs)
}

func TestEngine_SetStatus(t *testing.T) {
	store := memory.NewOrderStore()
	publisher := &capturePublisher{}
	recorder := &countingRecorder{}
	e := engine.New(store, engine.WithClock(fixedClock), engine.WithPublisher(publisher), engine.WithRecorder(recorder))
	ctx := context.Background()

	created, err := e.Checkout(ctx, domain.CheckoutInput{})
	require.NoError(t, err)

	for _, status := range []string{"cancelled", "confirmed", "completed", "preparing"} {
		updated, err := e.SetStatus(ctx, created.OrderID, status)
		require.NoError(t, err, status)
		assert.Equal(t, domain.OrderStatus(status), updated.Status)
		require.NotNil(t, updated.UpdatedAt)
		assert.True(t, updated.UpdatedAt.Equal(fixedNow))
	}

	stored, err := e.Get(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPreparing, stored.Status)
	assert.True(t, stored.CreatedAt.Equal(created.CreatedAt))
	assert.Equal(t, created.OrderID, stored.OrderID)

	assert.Equal(t, []string{"confirmed->cancelled", "cancelled->confirmed", "confirmed->completed", "completed->preparing"}, recorder.transitions)
	require.Len(t, publisher.events, 5)
	assert.Equal(t, domain.OrderEventStatusChanged, publisher.events[4].Type)
	assert.Equal(t, domain.OrderStatusCompleted, publisher.events[4].PreviousStatus)
}

func TestEngine_SetStatusInvalidChecksBeforeStore(t *testing.T) {
	store := &flakyStore{inner: memory.NewOrderStore(), loadErr: errors.New("must not be called")}
	e := engine.New(store)

	_, err := e.SetStatus(context.Background(), "ORD-404", "shipped")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestEngine_SetStatusNotFound(t *testing.T) {
	store := &flakyStore{inner: memory.NewOrderStore()}
	e := engine.New(store)

	_, err := e.SetStatus(context.Background(), "ORD-404", "ready")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Equal(t, 0, store.saves)
}

func TestEngine_SetStatusSaveFailureKeepsStoredState(t *testing.T) {
	store := &flakyStore{inner: memory.NewOrderStore(domain.Order{OrderID: "ORD-1", Status: domain.OrderStatusConfirmed})}
	e := engine.New(store)
	ctx := context.Background()

	store.saveErr = errors.New("read-only file system")
	_, err := e.SetStatus(ctx, "ORD-1", "ready")
	assert.ErrorIs(t, err, domain.ErrPersistence)

	store.saveErr = nil
	order, err := e.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Nil(t, order.UpdatedAt)
}

func TestEngine_Delete(t *testing.T) {
	seed := []domain.Order{{OrderID: "ORD-1"}, {OrderID: "ORD-2"}, {OrderID: "ORD-3"}}
	store := &flakyStore{inner: memory.NewOrderStore(seed...)}
	recorder := &countingRecorder{}
	e := engine.New(store, engine.WithRecorder(recorder))
	ctx := context.Background()

	require.NoError(t, e.Delete(ctx, "ORD-2"))
	orders := e.List(ctx)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-1", orders[0].OrderID)
	assert.Equal(t, "ORD-3", orders[1].OrderID)
	assert.Equal(t, 1, recorder.deletes)

	saves := store.saves
	assert.ErrorIs(t, e.Delete(ctx, "ORD-2"), domain.ErrOrderNotFound)
	assert.Equal(t, saves, store.saves, "missing order must not rewrite the store")
	assert.Len(t, e.List(ctx), 2)
}

func TestEngine_PublishFailureDoesNotFailMutation(t *testing.T) {
	publisher := &capturePublisher{err: errors.New("kafka down")}
	e := engine.New(memory.NewOrderStore(), engine.WithPublisher(publisher))

	_, err := e.Checkout(context.Background(), domain.CheckoutInput{})
	assert.NoError(t, err)
	assert.Len(t, publisher.events, 1)
}

func TestEngine_Analytics(t *testing.T) {
	seed := []domain.Order{
		{OrderID: "ORD-1", Date: fixedNow.Add(-24 * time.Hour), Total: 100, Customer: "a", Category: "Books", Campus: "UPD", PaymentMethod: "gcash"},
		{OrderID: "ORD-2", Date: fixedNow.Add(-40 * 24 * time.Hour), Total: 50, Customer: "b"},
	}
	e := engine.New(memory.NewOrderStore(seed...), engine.WithClock(fixedClock))
	ctx := context.Background()

	stats := e.Stats(ctx)
	assert.Equal(t, 100.0, stats.TotalRevenue)
	assert.Equal(t, 100.0, stats.RevenueChange)

	series := e.RevenueByDate(ctx, 7)
	assert.Equal(t, []string{"2025-07-31"}, series.Dates)

	assert.Equal(t, map[string]int{"Books": 1, "Other": 1}, e.OrdersByCategory(ctx))
	assert.Equal(t, map[string]float64{"UPD": 100, "ADMU": 50}, e.RevenueByCampus(ctx))
	assert.Equal(t, map[string]int{"gcash": 1, "cash": 1}, e.PaymentMethods(ctx))
}
