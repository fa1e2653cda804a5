package ports

import (
	"context"

	"github.com/aretw0/roomservice/pkg/domain"
)

// CatalogService is the read-only source of categories and menu items.
type CatalogService interface {
	// ActiveCategories returns the categories currently offered.
	ActiveCategories(ctx context.Context) ([]domain.Category, error)
	// AvailableItems returns orderable items. An empty categoryID means all categories.
	AvailableItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error)
}

// GuestService looks up the registered guest of a room.
type GuestService interface {
	// GuestByRoom returns domain.ErrGuestNotFound when the room has no guest.
	GuestByRoom(ctx context.Context, roomNumber string) (domain.Guest, error)
}

// OrderService accepts finalized orders.
type OrderService interface {
	// PlaceOrder submits the order. The idempotency key identifies one
	// confirmation so the service can drop duplicates.
	PlaceOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.PlacedOrder, error)
}

// EventPublisher fans out order events to other systems (kitchen displays, billing).
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *domain.OrderEvent) error
}
