// Package gateway submits finished orders to the order service.
//
// Submit checks its preconditions locally and calls the service at most once.
// It never retries: a failed submission must be confirmed again by the guest,
// and every confirmation carries its own idempotency key.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EstimatedDelivery is quoted to the guest after a successful order.
const EstimatedDelivery = "20-30 minutes"

// Gateway is safe for concurrent use.
type Gateway struct {
	orders ports.OrderService
	logger *slog.Logger
	tracer trace.Tracer
	newKey func() string
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithLogger configures a logger for the Gateway.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithKeyGenerator overrides how idempotency keys are generated.
func WithKeyGenerator(fn func() string) Option {
	return func(g *Gateway) {
		g.newKey = fn
	}
}

// New creates a Gateway that submits to orders.
func New(orders ports.OrderService, opts ...Option) *Gateway {
	g := &Gateway{
		orders: orders,
		logger: logging.NewNop(),
		tracer: otel.Tracer("github.com/aretw0/roomservice/pkg/gateway"),
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit places the order. All failures are *domain.SubmissionError.
// If ctx is canceled while the call is in flight the result is discarded and
// the error kind is SubmissionAbandoned.
func (g *Gateway) Submit(ctx context.Context, o domain.OrderSnapshot) (domain.PlacedOrder, error) {
	if o.GuestID == "" {
		return domain.PlacedOrder{}, &domain.SubmissionError{Kind: domain.SubmissionMissingGuest, Message: "no guest is bound to this order"}
	}
	if len(o.Lines) == 0 {
		return domain.PlacedOrder{}, &domain.SubmissionError{Kind: domain.SubmissionEmptyOrder, Message: "the order has no items"}
	}

	key := g.newKey()
	ctx, span := g.tracer.Start(ctx, "gateway.Submit", trace.WithAttributes(
		attribute.String("order.idempotency_key", key),
		attribute.String("order.room", o.RoomNumber),
		attribute.Int("order.lines", len(o.Lines)),
	))
	defer span.End()

	placed, err := g.orders.PlaceOrder(ctx, ToRequest(o), key)
	if ctxErr := ctx.Err(); ctxErr != nil {
		span.SetStatus(codes.Error, "abandoned")
		g.logger.Warn("Order submission abandoned", "room", o.RoomNumber, "idempotency_key", key, "err", ctxErr)
		return domain.PlacedOrder{}, &domain.SubmissionError{Kind: domain.SubmissionAbandoned, Message: "session ended before the order was confirmed", Err: ctxErr}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("Order submission failed", "room", o.RoomNumber, "idempotency_key", key, "err", err)
		return domain.PlacedOrder{}, &domain.SubmissionError{Kind: domain.SubmissionRemote, Message: remoteMessage(err), Err: err}
	}

	if placed.TotalAmount == 0 {
		placed.TotalAmount = o.RunningTotal
	}
	span.SetAttributes(attribute.String("order.id", placed.ID))
	g.logger.Info("Order placed", "room", o.RoomNumber, "order_id", placed.ID, "total", placed.TotalAmount.String())
	return placed, nil
}

// ToRequest maps an order to the order service schema.
func ToRequest(o domain.OrderSnapshot) domain.OrderRequest {
	req := domain.OrderRequest{
		GuestID:         o.GuestID,
		LineItems:       make([]domain.OrderLineItem, 0, len(o.Lines)),
		SpecialRequests: o.SpecialRequests,
		DeliveryNotes:   o.DeliveryNotes,
	}
	for _, l := range o.Lines {
		req.LineItems = append(req.LineItems, domain.OrderLineItem{
			MenuItemID: l.MenuItemID,
			Quantity:   l.Quantity,
			Notes:      l.Notes,
		})
	}
	return req
}

// Reference is the short order number read back to the guest.
func Reference(orderID string) string {
	ref := orderID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return strings.ToUpper(ref)
}

func remoteMessage(err error) string {
	var rse *domain.RemoteServiceError
	if errors.As(err, &rse) {
		return rse.Error()
	}
	return "order service unavailable"
}
