package domain_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roomservice/pkg/domain"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   domain.Money
		want string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{1250, "$12.50"},
		{domain.Money(1299).Times(2), "$25.98"},
		{-450, "-$4.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.String())
	}

	assert.Equal(t, domain.Money(1895), domain.FromFloat(18.95))
	assert.Equal(t, domain.Money(30), domain.FromFloat(0.1+0.2))
}

func TestMoney_JSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		Total domain.Money `json:"total"`
	}{1250})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":12.50}`, string(raw))

	for in, want := range map[string]domain.Money{`12.5`: 1250, `"4.50"`: 450, `7`: 700} {
		var m domain.Money
		require.NoError(t, json.Unmarshal([]byte(in), &m), in)
		assert.Equal(t, want, m, in)
	}

	var m domain.Money
	assert.Error(t, json.Unmarshal([]byte(`"twelve"`), &m))
	assert.Error(t, json.Unmarshal([]byte(`true`), &m))
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	first := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) { calls = append(calls, "first") },
	}
	second := domain.LifecycleHooks{
		OnNodeEnter:   func(ctx context.Context, e *domain.NodeEvent) { calls = append(calls, "second") },
		OnOrderPlaced: func(ctx context.Context, e *domain.OrderEvent) { calls = append(calls, "order") },
	}

	merged := first.Merge(second)
	merged.OnNodeEnter(context.Background(), &domain.NodeEvent{})
	merged.OnOrderPlaced(context.Background(), &domain.OrderEvent{})
	assert.Equal(t, []string{"first", "second", "order"}, calls)

	assert.Nil(t, merged.OnActionCall)
	assert.Nil(t, domain.LifecycleHooks{}.Merge(domain.LifecycleHooks{}).OnNodeLeave)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, domain.StatusNotFound, domain.Outcome(domain.ValidateRoomResult{Status: domain.StatusNotFound}))
	assert.Equal(t, domain.StatusOK, domain.Outcome(domain.PlaceOrderResult{Status: domain.StatusOK}))
	assert.Equal(t, "error", domain.Outcome(domain.ErrorResult{Action: domain.ActionPlaceOrder}))
	assert.Equal(t, domain.StatusOK, domain.Outcome(domain.PromptResult{}))
}

func TestNode_Allows(t *testing.T) {
	n := domain.Node{ID: domain.NodeItemAdded, Actions: []string{domain.ActionContinueOrdering, domain.ActionRemoveFromOrder}}
	assert.True(t, n.Allows(domain.ActionRemoveFromOrder))
	assert.False(t, n.Allows(domain.ActionPlaceOrder))

	a := domain.ActionSpec{Name: domain.ActionValidateRoom, Next: []string{domain.NodeWelcomeGuest, domain.NodeInvalidRoom}}
	assert.True(t, a.Leads(domain.NodeInvalidRoom))
	assert.False(t, a.Leads(domain.NodeGoodbye))
}
