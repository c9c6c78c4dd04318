package memory

import (
	"context"
	"sync"

	"github.com/psalsa30/unithrift/internal/domain"
)

// orderStoreInMemory - in-memory реализация OrderStore.
type orderStoreInMemory struct {
	mu     sync.RWMutex
	orders []domain.Order
}

// NewOrderStore возвращает in-memory хранилище для локальной разработки и тестов.
// seed копируется, дальнейшие изменения исходного среза на хранилище не влияют.
func NewOrderStore(seed ...domain.Order) domain.OrderStore {
	return &orderStoreInMemory{
		orders: domain.CloneOrders(seed),
	}
}

// LoadAll возвращает копию коллекции.
func (s *orderStoreInMemory) LoadAll(_ context.Context) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.CloneOrders(s.orders), nil
}

// SaveAll заменяет коллекцию копией переданной.
func (s *orderStoreInMemory) SaveAll(_ context.Context, orders []domain.Order) error {
	// Копируем вне блокировки, чтобы не держать читателей.
	snapshot := domain.CloneOrders(orders)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = snapshot
	return nil
}

var _ domain.OrderStore = (*orderStoreInMemory)(nil)
