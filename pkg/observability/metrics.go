package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/roomservice/pkg/domain"
)

const namespace = "roomservice"

// Metrics holds the Prometheus collectors of the engine.
type Metrics struct {
	NodeVisits       *prometheus.CounterVec
	Turns            *prometheus.CounterVec
	TurnDuration     *prometheus.HistogramVec
	OrdersPlaced     prometheus.Counter
	OrderTotal       prometheus.Histogram
	CatalogRefreshes *prometheus.CounterVec
	CatalogLatency   prometheus.Histogram
	ActiveSessions   prometheus.Gauge
	SessionsEnded    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of node visits.",
		}, []string{"node_id"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Actions executed, by node, action and outcome.",
		}, []string{"node_id", "action", "outcome"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Duration of action handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders accepted by the order service.",
		}),
		OrderTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_dollars",
			Help:      "Total amount of placed orders.",
			Buckets:   []float64{10, 25, 50, 75, 100, 150, 250},
		}),
		CatalogRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refreshes_total",
			Help:      "Catalog snapshot rebuilds, by result.",
		}, []string{"result"}),
		CatalogLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_refresh_duration_seconds",
			Help:      "Duration of catalog snapshot rebuilds.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Conversations currently in progress.",
		}),
		SessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Finished conversations, by reason.",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{
		m.NodeVisits, m.Turns, m.TurnDuration, m.OrdersPlaced, m.OrderTotal,
		m.CatalogRefreshes, m.CatalogLatency, m.ActiveSessions, m.SessionsEnded,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record node visits, turns and placed orders.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			m.Turns.WithLabelValues(e.NodeID, e.Action, e.Outcome).Inc()
			m.TurnDuration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
		},
		OnOrderPlaced: func(ctx context.Context, e *domain.OrderEvent) {
			m.OrdersPlaced.Inc()
			m.OrderTotal.Observe(e.Total.Float())
		},
	}
}

// ObserveCatalogRefresh matches the catalog cache observer signature.
func (m *Metrics) ObserveCatalogRefresh(outcome string, took time.Duration) {
	m.CatalogRefreshes.WithLabelValues(outcome).Inc()
	m.CatalogLatency.Observe(took.Seconds())
}

// SessionStarted increments the active sessions gauge.
func (m *Metrics) SessionStarted() { m.ActiveSessions.Inc() }

// SessionEnded decrements the active sessions gauge and counts the reason.
func (m *Metrics) SessionEnded(reason string) {
	m.ActiveSessions.Dec()
	m.SessionsEnded.WithLabelValues(reason).Inc()
}
