// Package cart turns requested items into a priced cart. Each item is
// searched, a product is selected, out-of-stock picks are routed to
// substitution, and the store's fulfillment options are compared.
//
// Items are processed one at a time; the retailer session behind the
// assembler is single-writer.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Veraticus/grocer/internal/catalog"
	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/model"
	"github.com/Veraticus/grocer/internal/retailer"
	"github.com/Veraticus/grocer/internal/selection"
)

// Products resolves a search term to candidates.
type Products interface {
	SearchOrCached(ctx context.Context, term string) ([]model.CatalogProduct, error)
}

// Selector picks one candidate.
type Selector interface {
	Select(ctx context.Context, item model.RequestedItem, candidates []model.CatalogProduct) selection.Selection
}

// Substituter ranks alternatives for an out-of-stock product.
type Substituter interface {
	Find(ctx context.Context, item model.RequestedItem, original model.CatalogProduct) (model.SubstitutionResult, error)
}

// ProgressFunc is called after each item is processed.
type ProgressFunc func(done, total int, item model.RequestedItem)

// Option configures an Assembler.
type Option func(*Assembler)

// WithProgress reports per-item progress.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Assembler) {
		a.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = common.ComponentLogger(logger, "cart")
	}
}

// Assembler builds carts.
type Assembler struct {
	api      catalog.API
	products Products
	selector Selector
	subs     Substituter
	progress ProgressFunc
	logger   *slog.Logger
}

// New creates an assembler. api is used for the fulfillment lookup.
func New(api catalog.API, products Products, selector Selector, subs Substituter, opts ...Option) *Assembler {
	a := &Assembler{
		api:      api,
		products: products,
		selector: selector,
		subs:     subs,
		logger:   common.ComponentLogger(nil, "cart"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type bucket int

const (
	bucketRegular bucket = iota
	bucketRestock
)

type pending struct {
	item   model.RequestedItem
	bucket bucket
}

// Build assembles a cart from items and restock. Per-item problems are
// reported in the summary; only an authentication failure aborts.
func (a *Assembler) Build(ctx context.Context, items, restock []model.RequestedItem) (*model.CartSummary, error) {
	summary := &model.CartSummary{
		RunID:            uuid.NewString(),
		Items:            []model.CartLineItem{},
		RestockItems:     []model.CartLineItem{},
		FailedItems:      []model.FailedItem{},
		SubstitutedItems: []model.SubstitutionResult{},
	}
	logger := a.logger.With("run_id", summary.RunID)

	queue := make([]pending, 0, len(items)+len(restock))
	for _, it := range items {
		queue = append(queue, pending{item: it, bucket: bucketRegular})
	}
	for _, it := range restock {
		queue = append(queue, pending{item: it, bucket: bucketRestock})
	}

	logger.Info("Building cart", "items", len(items), "restock", len(restock))

	for i, p := range queue {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, err := a.processItem(ctx, p.item)
		if err != nil {
			return nil, fmt.Errorf("cart build aborted at %q: %w", p.item.Ingredient, err)
		}

		switch {
		case outcome.line != nil && p.bucket == bucketRestock:
			summary.RestockItems = append(summary.RestockItems, *outcome.line)
		case outcome.line != nil:
			summary.Items = append(summary.Items, *outcome.line)
		case outcome.substitution != nil:
			summary.SubstitutedItems = append(summary.SubstitutedItems, *outcome.substitution)
		default:
			logger.Warn("Item not added to cart", "ingredient", p.item.Ingredient, "reason", outcome.failure)
			summary.FailedItems = append(summary.FailedItems, model.FailedItem{Item: p.item, Reason: outcome.failure})
		}

		if a.progress != nil {
			a.progress(i+1, len(queue), p.item)
		}
	}

	summary.FulfillmentOptions = a.fulfillmentOptions(ctx)
	summary.RecommendedOption = Recommend(summary.FulfillmentOptions)

	costs := make([]float64, 0, summary.LineCount())
	for _, l := range summary.Items {
		costs = append(costs, l.EstimatedCost)
	}
	for _, l := range summary.RestockItems {
		costs = append(costs, l.EstimatedCost)
	}
	summary.Subtotal = model.SumCents(costs...)
	summary.EstimatedTotal = model.SumCents(summary.Subtotal, summary.RecommendedOption.Fee)

	logger.Info("Cart built",
		"lines", summary.LineCount(),
		"failed", len(summary.FailedItems),
		"substituted", len(summary.SubstitutedItems),
		"subtotal", summary.Subtotal,
		"total", summary.EstimatedTotal,
		"fulfillment", summary.RecommendedOption.Type)
	return summary, nil
}

type itemOutcome struct {
	line         *model.CartLineItem
	substitution *model.SubstitutionResult
	failure      string
}

// processItem returns an error only for failures that doom the whole run.
func (a *Assembler) processItem(ctx context.Context, item model.RequestedItem) (itemOutcome, error) {
	candidates, err := a.products.SearchOrCached(ctx, item.Term())
	if err != nil {
		if isFatal(err) {
			return itemOutcome{}, err
		}
		return itemOutcome{failure: fmt.Sprintf("Search failed: %v", err)}, nil
	}

	sel := a.selector.Select(ctx, item, candidates)
	if !sel.OK() {
		return itemOutcome{failure: sel.Reason()}, nil
	}
	product := *sel.Product

	if !product.InStock {
		result, err := a.subs.Find(ctx, item, product)
		if err != nil {
			if isFatal(err) {
				return itemOutcome{}, err
			}
			return itemOutcome{failure: fmt.Sprintf("%s is out of stock and the substitute search failed: %v", product.Name, err)}, nil
		}
		if len(result.Alternatives) > 0 {
			best := result.Alternatives[0]
			result.Selected = &best
		}
		return itemOutcome{substitution: &result}, nil
	}

	qty := QuantityToOrder(item.Quantity, product.Size)
	return itemOutcome{line: &model.CartLineItem{
		Item:            item,
		Product:         product,
		QuantityToOrder: qty,
		EstimatedCost:   model.LineCost(product.Price, qty),
	}}, nil
}

func isFatal(err error) bool {
	var authErr *retailer.AuthError
	return errors.As(err, &authErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
