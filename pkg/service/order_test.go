package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
)

// fakeOrderStore mirrors the reservation semantics of the MySQL repository
// with an in-memory catalog guarded by a mutex.
type fakeOrderStore struct {
	mu       sync.Mutex
	products map[uint]*models.Product
	orders   map[uint]*models.Order
	nextID   uint
	calls    int
}

func newFakeOrderStore(products ...models.Product) *fakeOrderStore {
	s := &fakeOrderStore{
		products: make(map[uint]*models.Product),
		orders:   make(map[uint]*models.Order),
	}
	for i := range products {
		p := products[i]
		s.products[p.ID] = &p
	}
	return s
}

func (s *fakeOrderStore) CreateWithReservation(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	var issues []apperr.StockIssue
	items := make([]models.OrderItem, 0, len(lines))
	var total float64

	for _, line := range lines {
		product, ok := s.products[line.ProductID]
		if !ok {
			return fmt.Errorf("product %d: %w", line.ProductID, apperr.ErrProductNotFound)
		}
		if product.StockQuantity < line.Quantity {
			issues = append(issues, apperr.StockIssue{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.StockQuantity,
			})
			continue
		}
		subtotal := product.Price * float64(line.Quantity)
		total += subtotal
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			Subtotal:  subtotal,
		})
	}

	if len(issues) > 0 {
		return &apperr.InsufficientStockError{Issues: issues}
	}

	for _, item := range items {
		s.products[item.ProductID].StockQuantity -= item.Quantity
	}

	s.nextID++
	order.ID = s.nextID
	order.TotalAmount = total
	order.Items = items
	stored := *order
	s.orders[order.ID] = &stored
	return nil
}

func (s *fakeOrderStore) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, apperr.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *fakeOrderStore) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) List(ctx context.Context, f models.OrderFilter, offset, limit int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.UserID != 0 && o.UserID != f.UserID {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (s *fakeOrderStore) UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, apperr.ErrOrderNotFound
	}
	order.Status = status
	copied := *order
	return &copied, nil
}

func (s *fakeOrderStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return apperr.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *fakeOrderStore) CountByUser(ctx context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *fakeOrderStore) TotalSalesByUser(ctx context.Context, userID uint) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, o := range s.orders {
		if o.UserID == userID {
			total += o.TotalAmount
		}
	}
	return total, nil
}

func (s *fakeOrderStore) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.PlatformStats{OrdersByStatus: make(map[string]int64)}
	for _, o := range s.orders {
		stats.TotalOrders++
		stats.TotalSales += o.TotalAmount
		stats.OrdersByStatus[o.Status]++
	}
	return stats, nil
}

func (s *fakeOrderStore) ListAll(ctx context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeOrderStore) stock(id uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].StockQuantity
}

func validAddress() ShippingAddress {
	return ShippingAddress{
		Line1:      "1 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "USA",
	}
}

func newOrderService(store *fakeOrderStore) *OrderService {
	return NewOrderService(store, store, nil, nil, zap.NewNop())
}

func TestPlaceOrderSuccess(t *testing.T) {
	store := newFakeOrderStore(
		models.Product{ID: 1, Name: "Widget", Price: 10.50, StockQuantity: 8},
		models.Product{ID: 2, Name: "Gadget", Price: 3.25, StockQuantity: 4},
	)
	svc := newOrderService(store)

	order, err := svc.PlaceOrder(context.Background(), 7, validAddress(), []models.OrderLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, uint(7), order.UserID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 21.0, order.Items[0].Subtotal)
	assert.Equal(t, 9.75, order.Items[1].Subtotal)
	assert.Equal(t, 30.75, order.TotalAmount)

	assert.Equal(t, 6, store.stock(1))
	assert.Equal(t, 1, store.stock(2))
}

func TestPlaceOrderValidationSkipsStorage(t *testing.T) {
	store := newFakeOrderStore(models.Product{ID: 1, Name: "Widget", Price: 1, StockQuantity: 5})
	svc := newOrderService(store)

	cases := []struct {
		name  string
		addr  ShippingAddress
		lines []models.OrderLine
	}{
		{name: "empty cart", addr: validAddress(), lines: nil},
		{name: "zero quantity", addr: validAddress(), lines: []models.OrderLine{{ProductID: 1, Quantity: 0}}},
		{name: "negative quantity", addr: validAddress(), lines: []models.OrderLine{{ProductID: 1, Quantity: -2}}},
		{name: "missing product id", addr: validAddress(), lines: []models.OrderLine{{Quantity: 1}}},
		{name: "incomplete address", addr: ShippingAddress{Line1: "1 Main St"}, lines: []models.OrderLine{{ProductID: 1, Quantity: 1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), 7, tc.addr, tc.lines)
			var ve *apperr.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
	assert.Equal(t, 0, store.calls, "validation failures must not reach storage")
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	store := newFakeOrderStore(models.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 2})
	svc := newOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), 7, validAddress(), []models.OrderLine{
		{ProductID: 1, Quantity: 5},
	})

	var stockErr *apperr.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Issues, 1)
	assert.Equal(t, apperr.StockIssue{
		ProductID:   1,
		ProductName: "Widget",
		Requested:   5,
		Available:   2,
	}, stockErr.Issues[0])

	assert.Equal(t, 2, store.stock(1), "rejected order must not consume stock")
}

func TestPlaceOrderCollectsAllShortages(t *testing.T) {
	store := newFakeOrderStore(
		models.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 1},
		models.Product{ID: 2, Name: "Gadget", Price: 20, StockQuantity: 100},
		models.Product{ID: 3, Name: "Gizmo", Price: 30, StockQuantity: 0},
	)
	svc := newOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), 7, validAddress(), []models.OrderLine{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 5},
		{ProductID: 3, Quantity: 1},
	})

	var stockErr *apperr.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Issues, 2)
	assert.Equal(t, uint(1), stockErr.Issues[0].ProductID)
	assert.Equal(t, uint(3), stockErr.Issues[1].ProductID)

	// nothing moved, including the line that had enough stock
	assert.Equal(t, 1, store.stock(1))
	assert.Equal(t, 100, store.stock(2))
	assert.Equal(t, 0, store.stock(3))
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	store := newFakeOrderStore(models.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 5})
	svc := newOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), 7, validAddress(), []models.OrderLine{
		{ProductID: 99, Quantity: 1},
	})
	assert.ErrorIs(t, err, apperr.ErrProductNotFound)
}

func TestPlaceOrderConcurrentNoOversell(t *testing.T) {
	store := newFakeOrderStore(models.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 10})
	svc := newOrderService(store)

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), 7, validAddress(), []models.OrderLine{
				{ProductID: 1, Quantity: 3},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		var stockErr *apperr.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		rejected++
	}

	assert.Equal(t, 3, ok, "10 units at 3 per order fits exactly 3 orders")
	assert.Equal(t, workers-3, rejected)
	assert.Equal(t, 1, store.stock(1))
}

func TestGetOrderOwnership(t *testing.T) {
	store := newFakeOrderStore(models.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 5})
	svc := newOrderService(store)

	placed, err := svc.PlaceOrder(context.Background(), 7, validAddress(), []models.OrderLine{{ProductID: 1, Quantity: 1}})
	require.NoError(t, err)

	_, err = svc.GetOrder(context.Background(), placed.ID, 8, false)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	got, err := svc.GetOrder(context.Background(), placed.ID, 7, false)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)

	got, err = svc.GetOrder(context.Background(), placed.ID, 8, true)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)

	_, err = svc.GetOrder(context.Background(), 999, 7, true)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
}

func TestUpdateOrderStatusLifecycle(t *testing.T) {
	store := newFakeOrderStore(models.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 50})
	svc := newOrderService(store)

	placed, err := svc.PlaceOrder(context.Background(), 7, validAddress(), []models.OrderLine{{ProductID: 1, Quantity: 1}})
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(context.Background(), placed.ID, models.StatusConfirmed, false)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	_, err = svc.UpdateOrderStatus(context.Background(), placed.ID, "unknown", true)
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)

	updated, err := svc.UpdateOrderStatus(context.Background(), placed.ID, models.StatusConfirmed, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)

	// no going backwards
	_, err = svc.UpdateOrderStatus(context.Background(), placed.ID, models.StatusPending, true)
	assert.ErrorAs(t, err, &ve)

	updated, err = svc.UpdateOrderStatus(context.Background(), placed.ID, models.StatusShipped, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)

	// cancellation window closed once shipped
	_, err = svc.UpdateOrderStatus(context.Background(), placed.ID, models.StatusCancelled, true)
	assert.ErrorAs(t, err, &ve)

	updated, err = svc.UpdateOrderStatus(context.Background(), placed.ID, models.StatusDelivered, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, updated.Status)

	// delivered is terminal
	_, err = svc.UpdateOrderStatus(context.Background(), placed.ID, models.StatusShipped, true)
	assert.ErrorAs(t, err, &ve)
}

func TestDeleteOrderRules(t *testing.T) {
	store := newFakeOrderStore(models.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 50})
	svc := newOrderService(store)

	placed, err := svc.PlaceOrder(context.Background(), 7, validAddress(), []models.OrderLine{{ProductID: 1, Quantity: 1}})
	require.NoError(t, err)

	err = svc.DeleteOrder(context.Background(), placed.ID, 8, false)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	_, err = svc.UpdateOrderStatus(context.Background(), placed.ID, models.StatusConfirmed, true)
	require.NoError(t, err)

	// owner may only delete while pending
	err = svc.DeleteOrder(context.Background(), placed.ID, 7, false)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	// admins may always delete
	err = svc.DeleteOrder(context.Background(), placed.ID, 99, true)
	require.NoError(t, err)

	err = svc.DeleteOrder(context.Background(), placed.ID, 99, true)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
}

func TestUserStats(t *testing.T) {
	store := newFakeOrderStore(models.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 50})
	svc := newOrderService(store)

	stats, err := svc.UserStats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.OrderCount)
	assert.Equal(t, 0.0, stats.AverageOrderValue)

	for _, qty := range []int{1, 3} {
		_, err := svc.PlaceOrder(context.Background(), 7, validAddress(), []models.OrderLine{{ProductID: 1, Quantity: qty}})
		require.NoError(t, err)
	}

	stats, err = svc.UserStats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.OrderCount)
	assert.Equal(t, 40.0, stats.TotalSales)
	assert.Equal(t, 20.0, stats.AverageOrderValue)
}

func TestStockHealthRejectsBadFilter(t *testing.T) {
	store := newFakeOrderStore()
	svc := newOrderService(store)

	_, err := svc.StockHealth(context.Background(), StockFilter{Category: "bogus"})
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)

	neg := -1
	_, err = svc.StockHealth(context.Background(), StockFilter{MinStock: &neg})
	assert.ErrorAs(t, err, &ve)

	_, err = svc.StockHealth(context.Background(), StockFilter{MaxStock: &neg})
	assert.ErrorAs(t, err, &ve)
}

func TestStockHealthUsesCacheSnapshot(t *testing.T) {
	store := newFakeOrderStore(
		models.Product{ID: 1, Name: "Widget", Price: 10, StockQuantity: 4},
	)
	cache := &fakeCache{data: make(map[string][]byte)}
	svc := NewOrderService(store, store, cache, nil, zap.NewNop())

	report, err := svc.StockHealth(context.Background(), StockFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TotalProducts)
	assert.Contains(t, cache.data, "stock:snapshot")

	// second call is served from the snapshot, not the store
	store.mu.Lock()
	store.products[1].StockQuantity = 0
	store.mu.Unlock()

	report, err = svc.StockHealth(context.Background(), StockFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.ProductsWithStock)
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}
