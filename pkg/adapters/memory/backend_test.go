package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/roomservice/pkg/adapters/memory"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoBackend_Catalog(t *testing.T) {
	b := memory.NewDemoBackend()
	ctx := context.Background()

	cats, err := b.ActiveCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 4)

	breakfast, err := b.AvailableItems(ctx, "cat-breakfast")
	require.NoError(t, err)
	assert.Len(t, breakfast, 3)

	all, err := b.AvailableItems(ctx, "")
	require.NoError(t, err)
	for _, it := range all {
		assert.NotEqual(t, "Lobster Thermidor", it.Name, "unavailable items are hidden")
	}
	assert.EqualValues(t, 3, b.CatalogCalls.Load())
}

func TestDemoBackend_Guests(t *testing.T) {
	b := memory.NewDemoBackend()

	g, err := b.GuestByRoom(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, "Jane", g.Name)

	_, err = b.GuestByRoom(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)
}

func TestDemoBackend_PlaceOrderIdempotent(t *testing.T) {
	b := memory.NewDemoBackend()
	ctx := context.Background()
	req := domain.OrderRequest{
		GuestID:   "guest-jane",
		LineItems: []domain.OrderLineItem{{MenuItemID: "item-pancakes", Quantity: 2}},
	}

	first, err := b.PlaceOrder(ctx, req, "k1")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(2598), first.TotalAmount)

	again, err := b.PlaceOrder(ctx, req, "k1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, b.Orders(), 1)

	b.FailOrders(errors.New("kitchen closed"))
	_, err = b.PlaceOrder(ctx, req, "k2")
	assert.Error(t, err)
	assert.EqualValues(t, 3, b.OrderCalls.Load())
}
