package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psalsa30/unithrift/internal/domain"
	"github.com/psalsa30/unithrift/internal/storage/sqlite"
)

func setupStore(t *testing.T) *sqlite.OrderStore {
	t.Helper()

	store, err := sqlite.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func orderAt(id string, total float64) domain.Order {
	ts := time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)
	return domain.Order{OrderID: id, Date: ts, CreatedAt: ts, Status: domain.OrderStatusConfirmed, Total: total, Subtotal: total}
}

func TestOrderStore_EmptyDatabase(t *testing.T) {
	store := setupStore(t)

	orders, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOrderStore_SaveAllReplacesInOrder(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAll(ctx, []domain.Order{orderAt("ORD-3", 30), orderAt("ORD-1", 10), orderAt("ORD-2", 20)}))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, []string{"ORD-3", "ORD-1", "ORD-2"}, []string{loaded[0].OrderID, loaded[1].OrderID, loaded[2].OrderID})

	require.NoError(t, store.SaveAll(ctx, loaded[1:2]))
	loaded, err = store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "ORD-1", loaded[0].OrderID)

	require.NoError(t, store.SaveAll(ctx, nil))
	loaded, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestOrderStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unithrift.db")
	ctx := context.Background()

	store, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	updated := time.Date(2025, 5, 6, 8, 0, 0, 0, time.UTC)
	order := orderAt("ORD-9", 99)
	order.UpdatedAt = &updated
	require.NoError(t, store.SaveAll(ctx, []domain.Order{order}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.NotNil(t, loaded[0].UpdatedAt)
	assert.True(t, loaded[0].UpdatedAt.Equal(updated))
}
