// Package catalog searches the retailer catalog and keeps a persistent
// cache of which product each search term resolved to.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/model"
	"github.com/Veraticus/grocer/internal/service"
)

const (
	searchPath = "/api/v2/grocerystore/search"

	// DefaultRows is how many results a live search asks for.
	DefaultRows = 10
	// DefaultMaxAge is how long an unpinned mapping stays fresh.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// ErrEmptyTerm is returned when a search is attempted without a term.
var ErrEmptyTerm = errors.New("search term is empty")

// API is the slice of the retailer client the cache needs.
type API interface {
	Get(ctx context.Context, path string, params url.Values, out any) error
	StoreID() string
}

// SearchError wraps a failed live search.
type SearchError struct {
	Err  error
	Term string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("product search failed for %q: %v", e.Term, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Config tunes the cache.
type Config struct {
	Logger *slog.Logger
	Now    func() time.Time
	Rows   int
	MaxAge time.Duration
}

// Cache resolves search terms to catalog products.
type Cache struct {
	api    API
	store  service.MappingStore
	logger *slog.Logger
	now    func() time.Time
	rows   int
	maxAge time.Duration
}

// New creates a cache backed by api and store.
func New(api API, store service.MappingStore, cfg Config) *Cache {
	if cfg.Rows <= 0 {
		cfg.Rows = DefaultRows
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		api:    api,
		store:  store,
		logger: common.ComponentLogger(cfg.Logger, "catalog"),
		now:    cfg.Now,
		rows:   cfg.Rows,
		maxAge: cfg.MaxAge,
	}
}

// Search always queries the live catalog and never touches the cache.
func (c *Cache) Search(ctx context.Context, term string) ([]model.CatalogProduct, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, &SearchError{Term: term, Err: ErrEmptyTerm}
	}

	params := url.Values{
		"q":       {term},
		"storeId": {c.api.StoreID()},
		"rows":    {strconv.Itoa(c.rows)},
	}

	var resp searchResponse
	if err := c.api.Get(ctx, searchPath, params, &resp); err != nil {
		return nil, &SearchError{Term: term, Err: err}
	}

	products := parseSearchResults(resp)
	c.logger.Debug("Catalog search", "term", term, "results", len(products), "raw", len(resp.ProductsInfo))
	return products, nil
}

// SearchOrCached returns the pinned or fresh cached product for term as a
// single candidate. Otherwise it runs a live search, caches the top
// result and returns every candidate. Cache failures are logged and do
// not fail the lookup.
func (c *Cache) SearchOrCached(ctx context.Context, term string) ([]model.CatalogProduct, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, &SearchError{Term: term, Err: ErrEmptyTerm}
	}

	cached, err := c.store.GetMapping(ctx, term)
	if err != nil {
		c.logger.Warn("Mapping lookup failed, searching live", "term", term, "error", err)
		cached = nil
	}

	if cached != nil && !cached.IsStale(c.now(), c.maxAge) {
		if err := c.store.TouchMapping(ctx, cached.ID, c.now()); err != nil {
			c.logger.Warn("Failed to record mapping use", "term", term, "error", err)
		}
		c.logger.Debug("Mapping cache hit", "term", term, "product", cached.Product.ID, "pinned", cached.IsPinned)
		return []model.CatalogProduct{cached.Product}, nil
	}

	products, err := c.Search(ctx, term)
	if err != nil {
		return nil, err
	}

	if len(products) > 0 {
		if err := c.store.SaveMapping(ctx, term, products[0], c.now()); err != nil {
			c.logger.Warn("Failed to cache mapping", "term", term, "error", err)
		}
	}
	return products, nil
}

// Pin makes product the permanent answer for term.
func (c *Cache) Pin(ctx context.Context, term string, product model.CatalogProduct) error {
	if err := c.store.PinMapping(ctx, strings.TrimSpace(term), product, c.now()); err != nil {
		return fmt.Errorf("pin %q: %w", term, err)
	}
	c.logger.Info("Pinned mapping", "term", term, "product", product.ID)
	return nil
}

// Unpin removes the pin for term and reports whether one existed.
func (c *Cache) Unpin(ctx context.Context, term string) (bool, error) {
	unpinned, err := c.store.UnpinMapping(ctx, strings.TrimSpace(term))
	if err != nil {
		return false, fmt.Errorf("unpin %q: %w", term, err)
	}
	return unpinned, nil
}

// Forget deletes every cached mapping for term.
func (c *Cache) Forget(ctx context.Context, term string) (int64, error) {
	deleted, err := c.store.DeleteMappings(ctx, strings.TrimSpace(term))
	if err != nil {
		return 0, fmt.Errorf("delete mappings for %q: %w", term, err)
	}
	return deleted, nil
}

// Mappings lists every cached mapping.
func (c *Cache) Mappings(ctx context.Context) ([]model.CachedMapping, error) {
	return c.store.ListMappings(ctx)
}
