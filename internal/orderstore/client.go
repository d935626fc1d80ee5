// Package orderstore talks to the remote order-store service that owns
// order persistence.
package orderstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mostrador/mostrador/internal/purchasing"
)

// Client implements purchasing.StorePort over the order-store REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client with the transport's default timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RejectionError carries the store's own refusal message, surfaced verbatim.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("orderstore: store rejected request: %s", e.Message)
	}
	return fmt.Sprintf("orderstore: store rejected request with status %d", e.StatusCode)
}

// Unwrap makes the error match purchasing.ErrRemoteRejected.
func (e *RejectionError) Unwrap() error {
	return purchasing.ErrRemoteRejected
}

// TransportError indicates the store could not be reached or answered with
// a server failure.
type TransportError struct {
	Cause string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("orderstore: %s", e.Cause)
}

// Unwrap makes the error match purchasing.ErrTransport.
func (e *TransportError) Unwrap() error {
	return purchasing.ErrTransport
}

type statusRequest struct {
	Status      purchasing.Status `json:"status"`
	Description string            `json:"description,omitempty"`
}

type receiveRequest struct {
	Description string                   `json:"description,omitempty"`
	Lines       []purchasing.ReceiveLine `json:"lines"`
}

type orderRequest struct {
	SupplierID  int64                  `json:"supplier_id"`
	OrderedAt   time.Time              `json:"ordered_at"`
	Description string                 `json:"description"`
	Status      purchasing.Status      `json:"status"`
	Lines       []purchasing.OrderLine `json:"lines"`
}

// ListOrders fetches all orders.
func (c *Client) ListOrders(ctx context.Context) ([]purchasing.Order, error) {
	var orders []purchasing.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder fetches one order with full line detail.
func (c *Client) GetOrder(ctx context.Context, id int64) (purchasing.Order, error) {
	var order purchasing.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &order); err != nil {
		return purchasing.Order{}, err
	}
	return order, nil
}

// CreateOrder persists a new order.
func (c *Client) CreateOrder(ctx context.Context, input purchasing.OrderInput) (purchasing.Order, error) {
	var order purchasing.Order
	if err := c.do(ctx, http.MethodPost, "/orders", orderRequest(input), &order); err != nil {
		return purchasing.Order{}, err
	}
	return order, nil
}

// UpdateOrder replaces an existing order's header and lines.
func (c *Client) UpdateOrder(ctx context.Context, id int64, input purchasing.OrderInput) (purchasing.Order, error) {
	var order purchasing.Order
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), orderRequest(input), &order); err != nil {
		return purchasing.Order{}, err
	}
	return order, nil
}

// SetOrderStatus requests a bare status change.
func (c *Client) SetOrderStatus(ctx context.Context, id int64, status purchasing.Status, description string) (purchasing.Order, error) {
	var order purchasing.Order
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/status", id), statusRequest{Status: status, Description: description}, &order); err != nil {
		return purchasing.Order{}, err
	}
	return order, nil
}

// ReceiveOrder commits the final receipt of a confirmed order.
func (c *Client) ReceiveOrder(ctx context.Context, id int64, lines []purchasing.ReceiveLine, description string) (purchasing.Order, error) {
	var order purchasing.Order
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/receive", id), receiveRequest{Description: description, Lines: lines}, &order); err != nil {
		return purchasing.Order{}, err
	}
	return order, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, target any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Cause: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Cause: err.Error()}
	}
	switch {
	case resp.StatusCode >= 500:
		return &TransportError{Cause: fmt.Sprintf("store answered status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return purchasing.ErrNotFound
	case resp.StatusCode >= 400:
		return &RejectionError{StatusCode: resp.StatusCode, Message: rejectionMessage(raw)}
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &TransportError{Cause: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// rejectionMessage extracts the store's own message from a problem or error
// body, falling back to the raw text.
func rejectionMessage(raw []byte) string {
	var problem struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &problem); err == nil {
		for _, msg := range []string{problem.Detail, problem.Message, problem.Error} {
			if msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
