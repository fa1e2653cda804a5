package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roomservice/pkg/catalog"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	m, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: domain.NodeShowItems})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: domain.NodeShowItems})
	hooks.OnActionReturn(ctx, &domain.ActionEvent{NodeID: domain.NodeConfirmOrder, Action: domain.ActionPlaceOrder, Outcome: domain.StatusFailed, Duration: 20 * time.Millisecond})
	hooks.OnOrderPlaced(ctx, &domain.OrderEvent{Total: 2598})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodeVisits.WithLabelValues(domain.NodeShowItems)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues(domain.NodeConfirmOrder, domain.ActionPlaceOrder, domain.StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersPlaced))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TurnDuration))
}

func TestMetrics_Sessions(t *testing.T) {
	m, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded("hang_up")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsEnded.WithLabelValues("hang_up")))
}

func TestMetrics_CatalogObserver(t *testing.T) {
	m, err := observability.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	src := &failingCatalog{}
	cache := catalog.New(src, catalog.WithObserver(m.ObserveCatalogRefresh))
	cache.Items(context.Background(), false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogRefreshes.WithLabelValues(catalog.OutcomeError)))
}

func TestNewMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := observability.InitTracer(context.Background(), observability.TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Exporter(t *testing.T) {
	shutdown, err := observability.InitTracer(context.Background(), observability.TracingConfig{
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
		SampleRatio: 0.5,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, shutdown(ctx))
}

type failingCatalog struct{}

func (failingCatalog) ActiveCategories(ctx context.Context) ([]domain.Category, error) {
	return nil, context.DeadlineExceeded
}

func (failingCatalog) AvailableItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error) {
	return nil, context.DeadlineExceeded
}
