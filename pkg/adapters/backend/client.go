// Package backend is the HTTP client for the hotel's catalog, guest and order
// services.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/pkg/domain"
)

// DefaultTimeout bounds a single request to the backend.
const DefaultTimeout = 10 * time.Second

// IdempotencyHeader carries the confirmation key on order submissions.
const IdempotencyHeader = "Idempotency-Key"

// Client implements ports.CatalogService, ports.GuestService and
// ports.OrderService over the hotel REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the API rooted at baseURL (e.g. http://localhost:8000).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "backend.client")
	return c, nil
}

// ActiveCategories implements ports.CatalogService.
func (c *Client) ActiveCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.get(ctx, "catalog", "/api/v1/categories/", url.Values{"is_active": {"true"}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AvailableItems implements ports.CatalogService.
func (c *Client) AvailableItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error) {
	q := url.Values{"is_available": {"true"}}
	if categoryID != "" {
		q.Set("category_id", categoryID)
	}
	var out []domain.MenuItem
	if err := c.get(ctx, "catalog", "/api/v1/menu-items/", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GuestByRoom implements ports.GuestService.
func (c *Client) GuestByRoom(ctx context.Context, roomNumber string) (domain.Guest, error) {
	var g domain.Guest
	err := c.get(ctx, "guest", "/api/v1/guests/room/"+url.PathEscape(roomNumber), nil, &g)
	var rse *domain.RemoteServiceError
	if errors.As(err, &rse) && rse.StatusCode == http.StatusNotFound {
		return domain.Guest{}, domain.ErrGuestNotFound
	}
	if err != nil {
		return domain.Guest{}, err
	}
	if g.RoomNumber == "" {
		g.RoomNumber = roomNumber
	}
	return g, nil
}

// PlaceOrder implements ports.OrderService.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (domain.PlacedOrder, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("encode order: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/orders/", bytes.NewReader(body))
	if err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if idempotencyKey != "" {
		httpReq.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	var placed domain.PlacedOrder
	if err := c.do(httpReq, "order", &placed); err != nil {
		return domain.PlacedOrder{}, err
	}
	return placed, nil
}

func (c *Client) get(ctx context.Context, service, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, service, out)
}

// do sends the request and decodes a 2xx JSON body into out. Every other
// outcome is a *domain.RemoteServiceError.
func (c *Client) do(req *http.Request, service string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed", "service", service, "method", req.Method, "path", req.URL.Path, "err", err)
		return &domain.RemoteServiceError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("Backend request", "service", service, "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &domain.RemoteServiceError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(detail))),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.RemoteServiceError{Service: service, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
