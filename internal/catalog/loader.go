package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable indicates the reference-data service could not be reached
// and no cached copy exists.
var ErrUnavailable = errors.New("catalog: reference data unavailable")

const (
	cacheKeySuppliers = "catalog:suppliers"
	cacheKeyProducts  = "catalog:products"
)

// Client fetches supplier and product lists from the reference-data service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a reference-data client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListSuppliers fetches all suppliers.
func (c *Client) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	if err := c.getJSON(ctx, "/suppliers", &suppliers); err != nil {
		return nil, err
	}
	return suppliers, nil
}

// ListProducts fetches all products.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return json.Unmarshal(body, target)
}

// Loader serves reference data through a Redis cache. Concurrent refreshes
// of the same key are collapsed into a single upstream request.
type Loader struct {
	client *Client
	redis  *redis.Client
	logger *slog.Logger
	ttl    time.Duration
	group  singleflight.Group
}

// NewLoader constructs a Loader. The Redis client may be nil, in which case
// every load goes to the reference-data service.
func NewLoader(client *Client, redisClient *redis.Client, logger *slog.Logger, ttl time.Duration) *Loader {
	return &Loader{client: client, redis: redisClient, logger: logger, ttl: ttl}
}

// LoadIndex returns a fresh Index over the current reference data.
func (l *Loader) LoadIndex(ctx context.Context) (*Index, error) {
	suppliers, err := l.Suppliers(ctx)
	if err != nil {
		return nil, err
	}
	products, err := l.Products(ctx)
	if err != nil {
		return nil, err
	}
	return BuildIndex(suppliers, products), nil
}

// Suppliers returns the supplier list, from cache when possible.
func (l *Loader) Suppliers(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	if err := l.load(ctx, cacheKeySuppliers, &suppliers, func(ctx context.Context) (any, error) {
		return l.client.ListSuppliers(ctx)
	}); err != nil {
		return nil, err
	}
	return suppliers, nil
}

// Products returns the product list, from cache when possible.
func (l *Loader) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := l.load(ctx, cacheKeyProducts, &products, func(ctx context.Context) (any, error) {
		return l.client.ListProducts(ctx)
	}); err != nil {
		return nil, err
	}
	return products, nil
}

// Refresh fetches both lists from upstream and rewrites the cache. Used by
// the scheduled warm-up task.
func (l *Loader) Refresh(ctx context.Context) error {
	suppliers, err := l.client.ListSuppliers(ctx)
	if err != nil {
		return err
	}
	products, err := l.client.ListProducts(ctx)
	if err != nil {
		return err
	}
	l.store(ctx, cacheKeySuppliers, suppliers)
	l.store(ctx, cacheKeyProducts, products)
	return nil
}

func (l *Loader) load(ctx context.Context, key string, target any, fetch func(context.Context) (any, error)) error {
	if l.redis != nil {
		raw, err := l.redis.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(raw, target)
		}
		if !errors.Is(err, redis.Nil) && l.logger != nil {
			l.logger.Warn("catalog cache read", slog.Any("error", err))
		}
	}
	value, err, _ := l.group.Do(key, func() (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if l.redis != nil {
		if err := l.redis.Set(ctx, key, raw, l.ttl).Err(); err != nil && l.logger != nil {
			l.logger.Warn("catalog cache write", slog.Any("error", err))
		}
	}
	return json.Unmarshal(raw, target)
}

func (l *Loader) store(ctx context.Context, key string, value any) {
	if l.redis == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := l.redis.Set(ctx, key, raw, l.ttl).Err(); err != nil && l.logger != nil {
		l.logger.Warn("catalog cache write", slog.Any("error", err))
	}
}
