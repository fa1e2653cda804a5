// Package nats publishes order events on a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/pkg/domain"
)

// DefaultSubject receives an event for every placed order.
const DefaultSubject = "roomservice.orders.placed"

// Config holds NATS connection configuration.
type Config struct {
	URL     string
	Token   string
	Subject string
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	Close()
}

// Publisher implements ports.EventPublisher.
type Publisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger
}

// Connect establishes a connection to the NATS server and returns a publisher.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts := []nats.Option{
		nats.Name("roomservice"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", "err", err)
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewPublisher(nc, cfg.Subject, logger), nil
}

// NewPublisher wraps an existing connection. An empty subject means DefaultSubject.
func NewPublisher(conn Conn, subject string, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

// PublishOrderPlaced sends the event as JSON. The order ID is used as the
// message ID so a JetStream stream on the subject drops duplicates.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, event *domain.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.OrderID)
	msg.Header.Set("Session-Id", event.SessionID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	p.logger.Debug("Order event published", "subject", p.subject, "order_id", event.OrderID)
	return nil
}

// Subject returns the subject events are published on.
func (p *Publisher) Subject() string { return p.subject }

// Close closes the underlying connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
