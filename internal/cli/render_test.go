package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/grocer/internal/model"
)

func TestRenderCart(t *testing.T) {
	pickup := model.FulfillmentOption{Type: model.FulfillmentPickup, Available: true, NextWindow: "Today 5pm"}
	summary := &model.CartSummary{
		RunID: "abc",
		Items: []model.CartLineItem{{
			Item:            model.RequestedItem{Ingredient: "milk"},
			Product:         model.CatalogProduct{Name: "Lucerne Milk", Size: "1 gal", Price: 4.99},
			QuantityToOrder: 1,
			EstimatedCost:   4.99,
		}},
		RestockItems: []model.CartLineItem{{
			Item:            model.RequestedItem{Ingredient: "flour"},
			Product:         model.CatalogProduct{Name: "Gold Medal Flour", Size: "5 lb", Price: 4},
			QuantityToOrder: 1,
			EstimatedCost:   4,
		}},
		SubstitutedItems: []model.SubstitutionResult{{
			OriginalItem:    model.RequestedItem{Ingredient: "butter"},
			OriginalProduct: model.CatalogProduct{Name: "Kerrygold"},
			Message:         "Found 1 alternative(s)",
			Selected: &model.SubstitutionOption{
				Product:     model.CatalogProduct{Name: "Tillamook", Price: 5.29},
				Suitability: model.SuitabilityGood,
				FormWarning: "salted",
			},
		}},
		FailedItems:       []model.FailedItem{{Item: model.RequestedItem{Ingredient: "saffron"}, Reason: "No products available"}},
		RecommendedOption: pickup,
		Subtotal:          8.99,
		EstimatedTotal:    8.99,
	}

	var buf bytes.Buffer
	require.NoError(t, RenderCart(&buf, summary))
	out := buf.String()

	for _, want := range []string{
		"Cart abc", "Shopping list", "Lucerne Milk", "Restock", "Gold Medal Flour",
		"Kerrygold is out of stock", "Suggested: Tillamook ($5.29, good)", "salted",
		"saffron: No products available", "$8.99", "Pickup fee", "Next window: Today 5pm",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderCart_EmptyRecommendation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCart(&buf, &model.CartSummary{}))
	assert.Contains(t, buf.String(), "Total")
}

func TestRenderMappings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMappings(&buf, nil))
	assert.Contains(t, buf.String(), "No cached mappings")

	buf.Reset()
	require.NoError(t, RenderMappings(&buf, []model.CachedMapping{{
		SearchTerm:    "milk",
		Product:       model.CatalogProduct{ID: "42", Name: "Lucerne Milk", Price: 3.49},
		IsPinned:      true,
		TimesSelected: 4,
		LastUsed:      time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}}))
	out := buf.String()
	assert.Contains(t, out, "milk "+PinIcon)
	assert.Contains(t, out, "Lucerne Milk (42)")
	assert.Contains(t, out, "2025-05-01")
}

func TestRenderBrands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderBrands(&buf, []model.BrandPreference{{
		ID: 3, Brand: "Horizon", PreferenceType: model.PreferencePreferred, MatchType: model.MatchCategory, MatchTarget: "dairy",
	}}))
	assert.Contains(t, buf.String(), "preferred")
	assert.Contains(t, buf.String(), "category: dairy")
}

func TestCartProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewCartProgress(&buf)
	p.Update(1, 2, model.RequestedItem{Ingredient: "milk"})
	p.Update(2, 2, model.RequestedItem{Ingredient: "a very long ingredient name indeed"})
	assert.NotEmpty(t, buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "milk", truncate("milk", 20))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
}
