// Package commerce wraps the Magento and CDP APIs used to answer product,
// order, customer and category questions. Lookups are cached per tool.
package commerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/huythanhnguyen/ai-agent/config"
	"github.com/huythanhnguyen/ai-agent/internal/cache"
	"github.com/huythanhnguyen/ai-agent/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const maxParallelSearches = 4

type Config struct {
	SearchURL   string
	OrderURL    string
	CustomerURL string
	CategoryURL string
	CDPURL      string

	Token     string
	StoreCode string
	CDPAPIKey string
	Timeout   time.Duration

	ProductTTL  time.Duration
	OrderTTL    time.Duration
	CustomerTTL time.Duration
	CDPTTL      time.Duration
	CategoryTTL time.Duration
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SearchURL:   cfg.SearchAPIURL,
		OrderURL:    cfg.OrderAPIURL,
		CustomerURL: cfg.CustomerAPIURL,
		CategoryURL: cfg.CategoryAPIURL,
		CDPURL:      cfg.CDPAPIURL,
		Token:       cfg.MagentoToken,
		StoreCode:   cfg.StoreCode,
		CDPAPIKey:   cfg.CDPAPIKey,
		Timeout:     cfg.ToolTimeout,
		ProductTTL:  cfg.ProductCacheTTL,
		OrderTTL:    cfg.OrderCacheTTL,
		CustomerTTL: cfg.CustomerCacheTTL,
		CDPTTL:      cfg.CDPCacheTTL,
		CategoryTTL: cfg.CategoryCacheTTL,
	}
}

type Client struct {
	cfg     Config
	magento *apiClient
	cdp     *apiClient
	store   cache.Store
	logger  zerolog.Logger
}

// NewClient returns a client caching lookups in store. A nil store disables
// caching.
func NewClient(cfg Config, store cache.Store, logger zerolog.Logger) *Client {
	magentoHeaders := http.Header{}
	magentoHeaders.Set("Store", cfg.StoreCode)
	if cfg.Token != "" {
		magentoHeaders.Set("Authorization", "Bearer "+cfg.Token)
	}

	cdpHeaders := http.Header{}
	if cfg.CDPAPIKey != "" {
		cdpHeaders.Set("x-api-key", cfg.CDPAPIKey)
	}

	return &Client{
		cfg:     cfg,
		magento: newAPIClient(magentoHeaders, cfg.Timeout),
		cdp:     newAPIClient(cdpHeaders, cfg.Timeout),
		store:   store,
		logger:  logger.With().Str("component", "commerce").Logger(),
	}
}

// SearchProducts looks up every keyword concurrently. A failed keyword is
// reported in its own result; the map always has one entry per keyword.
func (c *Client) SearchProducts(ctx context.Context, keywords []string) map[string]ProductResult {
	results := make(map[string]ProductResult, len(keywords))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSearches)

	for _, keyword := range keywords {
		g.Go(func() error {
			res := c.searchKeyword(gctx, keyword)
			mu.Lock()
			results[keyword] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Client) searchKeyword(ctx context.Context, keyword string) ProductResult {
	key := "product:" + keyword

	var cached ProductResult
	if c.cacheGet(ctx, "product", key, &cached) {
		return cached
	}

	req := graphQLRequest{
		Query:     productSearchQuery,
		Variables: map[string]any{"search": keyword},
	}

	var resp productSearchResponse
	err := c.magento.DoJSON(ctx, http.MethodPost, c.cfg.SearchURL, req, nil, &resp)
	if err == nil && len(resp.Errors) > 0 {
		err = fmt.Errorf("graphql: %s", resp.Errors[0].Message)
	}
	metrics.ToolCalls.WithLabelValues("search_products", metrics.Outcome(err)).Inc()
	if err != nil {
		c.logger.Error().Err(err).Str("keyword", keyword).Msg("product search failed")
		return ProductResult{Products: []Product{}, Error: ErrorText(err)}
	}

	res := ProductResult{
		TotalCount: resp.Data.Products.TotalCount,
		Products:   make([]Product, 0, len(resp.Data.Products.Items)),
	}
	for _, item := range resp.Data.Products.Items {
		res.Products = append(res.Products, convertProduct(item))
	}

	c.logger.Debug().Str("keyword", keyword).Int("total", res.TotalCount).Msg("product search completed")
	c.cacheSet(ctx, key, res, c.cfg.ProductTTL)
	return res
}

// GetOrder fetches an order. userID, when set, is sent as Customer-ID so the
// backend can check ownership, and is part of the cache key so a cached order
// is only served back to the customer it was fetched for.
func (c *Client) GetOrder(ctx context.Context, orderID, userID string) (*Order, error) {
	key := OrderCacheKey(orderID, userID)

	var order Order
	if c.cacheGet(ctx, "order", key, &order) {
		return &order, nil
	}

	var extra http.Header
	if userID != "" {
		extra = http.Header{"Customer-Id": []string{userID}}
	}

	err := c.magento.GetJSON(ctx, joinURL(c.cfg.OrderURL, orderID), extra, &order)
	metrics.ToolCalls.WithLabelValues("get_order", metrics.Outcome(err)).Inc()
	if err != nil {
		c.logger.Error().Err(err).Str("order_id", orderID).Msg("order lookup failed")
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	if order.OrderID == "" {
		order.OrderID = orderID
	}

	c.cacheSet(ctx, key, order, c.cfg.OrderTTL)
	return &order, nil
}

// OrderCacheKey is order:<userID>:<orderID>, or order:<orderID> for an
// anonymous lookup.
func OrderCacheKey(orderID, userID string) string {
	if userID == "" {
		return "order:" + orderID
	}
	return "order:" + userID + ":" + orderID
}

func (c *Client) GetCustomer(ctx context.Context, userID string) (*Customer, error) {
	key := "customer:" + userID

	var customer Customer
	if c.cacheGet(ctx, "customer", key, &customer) {
		return &customer, nil
	}

	err := c.magento.GetJSON(ctx, joinURL(c.cfg.CustomerURL, userID), nil, &customer)
	metrics.ToolCalls.WithLabelValues("get_customer", metrics.Outcome(err)).Inc()
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", userID).Msg("customer lookup failed")
		return nil, fmt.Errorf("failed to get customer %s: %w", userID, err)
	}

	c.cacheSet(ctx, key, customer, c.cfg.CustomerTTL)
	return &customer, nil
}

// GetCDPProfile fetches loyalty, purchase history and recommendations from
// the customer data platform.
func (c *Client) GetCDPProfile(ctx context.Context, userID string) (*CDPProfile, error) {
	key := "cdp:" + userID

	var profile CDPProfile
	if c.cacheGet(ctx, "cdp", key, &profile) {
		return &profile, nil
	}

	endpoint := joinURL(c.cfg.CDPURL, "customers", userID, "profile")
	err := c.cdp.GetJSON(ctx, endpoint, nil, &profile)
	metrics.ToolCalls.WithLabelValues("get_cdp_profile", metrics.Outcome(err)).Inc()
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", userID).Msg("CDP lookup failed")
		return nil, fmt.Errorf("failed to get CDP profile %s: %w", userID, err)
	}

	c.cacheSet(ctx, key, profile, c.cfg.CDPTTL)
	return &profile, nil
}

func (c *Client) GetCategory(ctx context.Context, categoryID string) (*Category, error) {
	key := "category:" + categoryID

	var category Category
	if c.cacheGet(ctx, "category", key, &category) {
		return &category, nil
	}

	err := c.magento.GetJSON(ctx, joinURL(c.cfg.CategoryURL, categoryID), nil, &category)
	metrics.ToolCalls.WithLabelValues("get_category", metrics.Outcome(err)).Inc()
	if err != nil {
		c.logger.Error().Err(err).Str("category_id", categoryID).Msg("category lookup failed")
		return nil, fmt.Errorf("failed to get category %s: %w", categoryID, err)
	}
	if category.ID == "" {
		category.ID = categoryID
	}

	c.cacheSet(ctx, key, category, c.cfg.CategoryTTL)
	return &category, nil
}

// CreateOrder places an order for userID. It is never cached.
func (c *Client) CreateOrder(ctx context.Context, userID string, order OrderRequest) (*Order, error) {
	var extra http.Header
	if userID != "" {
		extra = http.Header{"Customer-Id": []string{userID}}
	}

	var created Order
	err := c.magento.DoJSON(ctx, http.MethodPost, c.cfg.OrderURL, order, extra, &created)
	metrics.ToolCalls.WithLabelValues("create_order", metrics.Outcome(err)).Inc()
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", userID).Msg("order creation failed")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	c.logger.Info().Str("user_id", userID).Str("order_id", created.OrderID).Msg("order created")
	return &created, nil
}

func (c *Client) cacheGet(ctx context.Context, namespace, key string, v any) bool {
	if c.store == nil {
		return false
	}
	found, err := cache.GetJSON(ctx, c.store, key, v)
	switch {
	case err != nil:
		c.logger.Warn().Err(err).Str("key", key).Msg("tool cache read failed")
		metrics.CacheLookups.WithLabelValues(namespace, "error").Inc()
		return false
	case !found:
		metrics.CacheLookups.WithLabelValues(namespace, "miss").Inc()
		return false
	default:
		metrics.CacheLookups.WithLabelValues(namespace, "hit").Inc()
		c.logger.Debug().Str("key", key).Msg("tool cache hit")
		return true
	}
}

func (c *Client) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.store == nil {
		return
	}
	if err := cache.SetJSON(ctx, c.store, key, v, ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("tool cache write failed")
	}
}

func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		out += "/" + url.PathEscape(p)
	}
	return out
}

// ErrorText is the short, user-safe description of a failed lookup.
func ErrorText(err error) string {
	var apiErr *APIError
	var timeout interface{ Timeout() bool }
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &timeout) && timeout.Timeout():
		return "Request timeout"
	default:
		return err.Error()
	}
}
