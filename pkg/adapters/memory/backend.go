package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aretw0/roomservice/pkg/domain"
)

// Backend is an in-process stand-in for the catalog, guest and order
// services. It counts calls so tests can assert on remote traffic.
type Backend struct {
	mu         sync.RWMutex
	categories []domain.Category
	items      []domain.MenuItem
	guests     map[string]domain.Guest
	orders     map[string]domain.OrderRequest
	keys       map[string]domain.PlacedOrder
	seq        int

	failCatalog error
	failOrders  error

	CatalogCalls atomic.Int32
	GuestCalls   atomic.Int32
	OrderCalls   atomic.Int32
}

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{
		guests: make(map[string]domain.Guest),
		orders: make(map[string]domain.OrderRequest),
		keys:   make(map[string]domain.PlacedOrder),
	}
}

// NewDemoBackend returns a backend seeded with a small hotel menu.
func NewDemoBackend() *Backend {
	b := NewBackend()
	b.AddCategory(domain.Category{ID: "cat-breakfast", Name: "Breakfast", Active: true})
	b.AddCategory(domain.Category{ID: "cat-mains", Name: "Main Courses", Active: true})
	b.AddCategory(domain.Category{ID: "cat-desserts", Name: "Desserts", Active: true})
	b.AddCategory(domain.Category{ID: "cat-drinks", Name: "Beverages", Active: true})

	b.AddItem(domain.MenuItem{ID: "item-pancakes", Name: "Pancakes", Description: "Buttermilk stack with maple syrup", Price: 1299, CategoryID: "cat-breakfast", Available: true})
	b.AddItem(domain.MenuItem{ID: "item-benedict", Name: "Eggs Benedict", Description: "Poached eggs, ham, hollandaise", Price: 1650, CategoryID: "cat-breakfast", Available: true})
	b.AddItem(domain.MenuItem{ID: "item-parfait", Name: "Yogurt Parfait", Description: "Greek yogurt, granola, berries", Price: 850, CategoryID: "cat-breakfast", Available: true})
	b.AddItem(domain.MenuItem{ID: "item-caesar", Name: "Caesar Salad", Description: "Romaine, parmesan, croutons", Price: 1400, CategoryID: "cat-mains", Available: true})
	b.AddItem(domain.MenuItem{ID: "item-chicken-caesar", Name: "Grilled Caesar Chicken Salad", Description: "Caesar salad with grilled chicken", Price: 1895, CategoryID: "cat-mains", Available: true})
	b.AddItem(domain.MenuItem{ID: "item-burger", Name: "Classic Beef Burger", Description: "Cheddar, pickles, fries", Price: 2100, CategoryID: "cat-mains", Available: true})
	b.AddItem(domain.MenuItem{ID: "item-lobster", Name: "Lobster Thermidor", Price: 5400, CategoryID: "cat-mains", Available: false})
	b.AddItem(domain.MenuItem{ID: "item-cheesecake", Name: "New York Cheesecake", Price: 950, CategoryID: "cat-desserts", Available: true})
	b.AddItem(domain.MenuItem{ID: "item-coffee", Name: "Coffee", Description: "Fresh brewed", Price: 450, CategoryID: "cat-drinks", Available: true})
	b.AddItem(domain.MenuItem{ID: "item-juice", Name: "Orange Juice", Description: "Freshly squeezed", Price: 600, CategoryID: "cat-drinks", Available: true})

	b.AddGuest(domain.Guest{ID: "guest-jane", Name: "Jane", RoomNumber: "101"})
	b.AddGuest(domain.Guest{ID: "guest-john", Name: "John", RoomNumber: "102"})
	return b
}

func (b *Backend) AddCategory(c domain.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = append(b.categories, c)
}

func (b *Backend) AddItem(it domain.MenuItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, it)
}

func (b *Backend) AddGuest(g domain.Guest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.guests[g.RoomNumber] = g
}

// FailCatalog makes catalog calls return err until called with nil.
func (b *Backend) FailCatalog(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCatalog = err
}

// FailOrders makes order calls return err until called with nil.
func (b *Backend) FailOrders(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOrders = err
}

// ActiveCategories implements ports.CatalogService.
func (b *Backend) ActiveCategories(ctx context.Context) ([]domain.Category, error) {
	b.CatalogCalls.Add(1)
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.failCatalog != nil {
		return nil, b.failCatalog
	}
	var out []domain.Category
	for _, c := range b.categories {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

// AvailableItems implements ports.CatalogService.
func (b *Backend) AvailableItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error) {
	b.CatalogCalls.Add(1)
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.failCatalog != nil {
		return nil, b.failCatalog
	}
	var out []domain.MenuItem
	for _, it := range b.items {
		if it.Available && (categoryID == "" || it.CategoryID == categoryID) {
			out = append(out, it)
		}
	}
	return out, nil
}

// GuestByRoom implements ports.GuestService.
func (b *Backend) GuestByRoom(ctx context.Context, roomNumber string) (domain.Guest, error) {
	b.GuestCalls.Add(1)
	b.mu.RLock()
	defer b.mu.RUnlock()
	g, ok := b.guests[strings.TrimSpace(roomNumber)]
	if !ok {
		return domain.Guest{}, domain.ErrGuestNotFound
	}
	return g, nil
}

// PlaceOrder implements ports.OrderService. A repeated idempotency key
// returns the order created by the first call.
func (b *Backend) PlaceOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.PlacedOrder, error) {
	b.OrderCalls.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failOrders != nil {
		return domain.PlacedOrder{}, b.failOrders
	}
	if placed, ok := b.keys[idempotencyKey]; ok && idempotencyKey != "" {
		return placed, nil
	}

	prices := make(map[string]domain.Money, len(b.items))
	for _, it := range b.items {
		prices[it.ID] = it.Price
	}
	var total domain.Money
	for _, li := range req.LineItems {
		price, ok := prices[li.MenuItemID]
		if !ok {
			return domain.PlacedOrder{}, &domain.RemoteServiceError{Service: "order", StatusCode: 400}
		}
		total += price.Times(li.Quantity)
	}

	b.seq++
	placed := domain.PlacedOrder{
		ID:          fmt.Sprintf("ord%05d-%s", b.seq, req.GuestID),
		TotalAmount: total,
		Status:      "pending",
	}
	b.orders[placed.ID] = req
	if idempotencyKey != "" {
		b.keys[idempotencyKey] = placed
	}
	return placed, nil
}

// Orders returns the accepted orders by ID.
func (b *Backend) Orders() map[string]domain.OrderRequest {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]domain.OrderRequest, len(b.orders))
	for k, v := range b.orders {
		out[k] = v
	}
	return out
}
