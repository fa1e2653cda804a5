package roomservice_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/pkg/adapters/memory"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/session"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.OrderEvent
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, evt *domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

type step struct {
	action string
	params map[string]any
	node   string
}

// coffeeOrder orders two coffees for room 101 and confirms.
var coffeeOrder = []step{
	{domain.ActionRequestRoomNumber, nil, domain.NodeRequestRoom},
	{domain.ActionValidateRoom, map[string]any{"room_number": "101"}, domain.NodeWelcomeGuest},
	{domain.ActionSelectCategory, map[string]any{"category": "beverages"}, domain.NodeShowItems},
	{domain.ActionAddToOrder, map[string]any{"item_name": "coffee", "quantity": "two"}, domain.NodeItemAdded},
	{domain.ActionContinueOrdering, map[string]any{"response": "no thanks"}, domain.NodeRequestSpecial},
	{domain.ActionSetSpecialRequests, map[string]any{}, domain.NodeConfirmOrder},
	{domain.ActionPlaceOrder, map[string]any{"confirmation": "yes please"}, domain.NodeOrderComplete},
}

func play(t *testing.T, svc *roomservice.Service, id string, steps []step) domain.Result {
	t.Helper()
	var last domain.Result
	for _, s := range steps {
		out, err := svc.Act(context.Background(), id, s.action, s.params)
		require.NoError(t, err, s.action)
		require.Equal(t, s.node, out.Node, s.action)
		last = out.Result
	}
	return last
}

func TestService_PlacesOrder(t *testing.T) {
	pub := &recordingPublisher{}
	var hooked []string
	svc, backend, err := roomservice.NewDemo(
		roomservice.WithPublisher(pub),
		roomservice.WithLifecycleHooks(domain.LifecycleHooks{
			OnOrderPlaced: func(ctx context.Context, e *domain.OrderEvent) { hooked = append(hooked, "first:"+e.OrderID) },
		}),
		roomservice.WithLifecycleHooks(domain.LifecycleHooks{
			OnOrderPlaced: func(ctx context.Context, e *domain.OrderEvent) { hooked = append(hooked, "second:"+e.OrderID) },
		}),
	)
	require.NoError(t, err)
	ctx := context.Background()

	id, out, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeGreeting, out.Node)
	assert.NotEmpty(t, out.Prompt)
	assert.Equal(t, 1, svc.LiveSessions())

	placed, ok := play(t, svc, id, coffeeOrder).(domain.PlaceOrderResult)
	require.True(t, ok)
	assert.Equal(t, domain.StatusOK, placed.Status)
	assert.EqualValues(t, 900, placed.Total)
	assert.EqualValues(t, 1, backend.OrderCalls.Load())

	require.Len(t, pub.events, 1)
	assert.Equal(t, placed.OrderID, pub.events[0].OrderID)
	assert.Equal(t, "101", pub.events[0].RoomNumber)
	assert.Equal(t, []string{"first:" + placed.OrderID, "second:" + placed.OrderID}, hooked)

	assert.Equal(t, 1, svc.LiveSessions())
	out, err = svc.Act(ctx, id, domain.ActionEndCall, nil)
	require.NoError(t, err)
	assert.True(t, out.Terminal)
	assert.Equal(t, domain.NodeGoodbye, out.Node)

	// The session ends on the terminal node.
	assert.Zero(t, svc.LiveSessions())
	_, err = svc.Session(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestService_RejectsActionsNotOffered(t *testing.T) {
	svc, backend, err := roomservice.NewDemo()
	require.NoError(t, err)
	ctx := context.Background()
	id, _, err := svc.Start(ctx)
	require.NoError(t, err)

	_, err = svc.Act(ctx, id, domain.ActionPlaceOrder, map[string]any{"confirmation": "yes"})
	var stateErr *domain.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, domain.NodeGreeting, stateErr.NodeID)
	assert.Zero(t, backend.OrderCalls.Load())

	view, err := svc.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeGreeting, view.State.NodeID)
	require.Len(t, view.Actions, 1)
	assert.Equal(t, domain.ActionRequestRoomNumber, view.Actions[0].Name)

	_, err = svc.Act(ctx, "nope", domain.ActionRequestRoomNumber, nil)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestService_SessionView(t *testing.T) {
	svc, _, err := roomservice.NewDemo()
	require.NoError(t, err)
	ctx := context.Background()
	id, _, err := svc.Start(ctx)
	require.NoError(t, err)
	play(t, svc, id, coffeeOrder[:4])

	view, err := svc.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeItemAdded, view.State.NodeID)
	assert.Equal(t, "Jane", view.State.Values["guest_name"])
	require.Len(t, view.State.Order.Lines, 1)
	assert.Equal(t, 2, view.State.Order.Lines[0].Quantity)
	assert.Contains(t, view.Prompt, "Coffee")
}

func TestService_End(t *testing.T) {
	svc, _, err := roomservice.NewDemo()
	require.NoError(t, err)
	ctx := context.Background()
	id, _, err := svc.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.End(ctx, id))
	assert.ErrorIs(t, svc.End(ctx, id), domain.ErrSessionNotFound)
	assert.ErrorIs(t, svc.End(ctx, "nope"), domain.ErrSessionNotFound)
}

func TestService_ReapIdleAndShutdown(t *testing.T) {
	svc, _, err := roomservice.NewDemo()
	require.NoError(t, err)
	ctx := context.Background()

	idle, _, err := svc.Start(ctx)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, _, err = svc.Start(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{idle}, svc.ReapIdle(ctx, 10*time.Millisecond))
	assert.Equal(t, 1, svc.LiveSessions())

	_, _, err = svc.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Shutdown(ctx))
	assert.Zero(t, svc.LiveSessions())
}

func TestService_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, _, err := roomservice.NewDemo(roomservice.WithMetrics(reg))
	require.NoError(t, err)
	ctx := context.Background()

	id, _, err := svc.Start(ctx)
	require.NoError(t, err)
	play(t, svc, id, coffeeOrder)
	require.NoError(t, svc.End(ctx, id))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"roomservice_turns_total",
		"roomservice_orders_placed_total",
		"roomservice_sessions_ended_total",
		"roomservice_active_sessions",
	} {
		assert.True(t, names[want], want)
	}

	_, _, err = roomservice.NewDemo(roomservice.WithMetrics(reg))
	assert.Error(t, err, "collectors cannot be registered twice")
}

func TestService_MaxOrderItems(t *testing.T) {
	svc, _, err := roomservice.NewDemo(roomservice.WithMaxOrderItems(1))
	require.NoError(t, err)
	ctx := context.Background()
	id, _, err := svc.Start(ctx)
	require.NoError(t, err)
	play(t, svc, id, coffeeOrder[:4])

	play(t, svc, id, []step{
		{domain.ActionContinueOrdering, map[string]any{"response": "yes"}, domain.NodeCategorySelection},
		{domain.ActionSelectCategory, map[string]any{"category": "beverages"}, domain.NodeShowItems},
	})
	out, err := svc.Act(ctx, id, domain.ActionAddToOrder, map[string]any{"item_name": "orange juice"})
	require.NoError(t, err)
	added, ok := out.Result.(domain.AddToOrderResult)
	require.True(t, ok)
	assert.Equal(t, domain.StatusInvalid, added.Status)
	assert.Equal(t, domain.NodeItemNotFound, out.Node)
}

func TestNew_CustomBackend(t *testing.T) {
	b := memory.NewBackend()
	b.AddCategory(domain.Category{ID: "c1", Name: "Snacks", Active: true})
	b.AddItem(domain.MenuItem{ID: "i1", Name: "Nachos", Price: 700, CategoryID: "c1", Available: true})
	b.AddGuest(domain.Guest{ID: "g1", Name: "Ada", RoomNumber: "7"})

	svc, err := roomservice.New(b, b, b, roomservice.WithCatalogMaxAge(time.Minute))
	require.NoError(t, err)
	ctx := context.Background()
	id, _, err := svc.Start(ctx)
	require.NoError(t, err)

	_, err = svc.Act(ctx, id, domain.ActionRequestRoomNumber, nil)
	require.NoError(t, err)
	out, err := svc.Act(ctx, id, domain.ActionValidateRoom, map[string]any{"room_number": "7"})
	require.NoError(t, err)
	assert.Contains(t, out.Prompt, "Ada")
	assert.Len(t, svc.Catalog().Categories(ctx, false), 1)
}

// blockingOrders holds PlaceOrder until the caller's context ends.
type blockingOrders struct {
	*memory.Backend
	started  chan struct{}
	canceled atomic.Bool
}

func (o *blockingOrders) PlaceOrder(ctx context.Context, req domain.OrderRequest, key string) (domain.PlacedOrder, error) {
	close(o.started)
	select {
	case <-ctx.Done():
		o.canceled.Store(true)
		return domain.PlacedOrder{}, ctx.Err()
	case <-time.After(5 * time.Second):
		return o.Backend.PlaceOrder(ctx, req, key)
	}
}

func TestService_TerminationAbandonsSubmission(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		stop   func(ctx context.Context, svc *roomservice.Service, id string) error
	}{
		{"hang up", session.ReasonHangUp, func(ctx context.Context, svc *roomservice.Service, id string) error {
			return svc.End(ctx, id)
		}},
		{"shutdown", session.ReasonShutdown, func(ctx context.Context, svc *roomservice.Service, id string) error {
			svc.Shutdown(ctx)
			return nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := memory.NewDemoBackend()
			orders := &blockingOrders{Backend: b, started: make(chan struct{})}
			svc, err := roomservice.New(b, b, orders)
			require.NoError(t, err)
			ctx := context.Background()
			id, _, err := svc.Start(ctx)
			require.NoError(t, err)
			play(t, svc, id, coffeeOrder[:len(coffeeOrder)-1])

			type result struct {
				node string
				err  error
			}
			done := make(chan result, 1)
			go func() {
				out, err := svc.Act(ctx, id, domain.ActionPlaceOrder, map[string]any{"confirmation": "yes"})
				done <- result{out.Node, err}
			}()
			<-orders.started

			began := time.Now()
			require.NoError(t, tt.stop(ctx, svc, id))
			assert.Less(t, time.Since(began), 2*time.Second)

			res := <-done
			var terminated *session.TerminatedError
			require.ErrorAs(t, res.err, &terminated)
			assert.Equal(t, tt.reason, terminated.Reason)
			assert.Empty(t, res.node)
			assert.True(t, orders.canceled.Load())
			assert.Empty(t, b.Orders())

			assert.Zero(t, svc.LiveSessions())
			_, err = svc.Session(ctx, id)
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		})
	}
}

func TestService_SessionDuringTurns(t *testing.T) {
	svc, _, err := roomservice.NewDemo()
	require.NoError(t, err)
	ctx := context.Background()
	id, _, err := svc.Start(ctx)
	require.NoError(t, err)
	play(t, svc, id, coffeeOrder[:3])

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, err := svc.Act(ctx, id, domain.ActionSelectCategory, map[string]any{"category": "beverages"})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			view, err := svc.Session(ctx, id)
			if assert.NoError(t, err) {
				assert.Equal(t, "Jane", view.State.Values["guest_name"])
			}
		}
	}()
	wg.Wait()
}
