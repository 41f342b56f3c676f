package catalog

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Veraticus/grocer/internal/model"
)

// searchResponse is the catalog search payload. Entries are decoded loosely
// because the API mixes numbers and numeric strings.
type searchResponse struct {
	ProductsInfo []map[string]any `json:"productsInfo"`
}

// priceKeys lists the price fields in order of preference.
var priceKeys = []string{"salePrice", "price", "basePrice"}

func parseSearchResults(resp searchResponse) []model.CatalogProduct {
	products := make([]model.CatalogProduct, 0, len(resp.ProductsInfo))
	for _, entry := range resp.ProductsInfo {
		if product, ok := parseProduct(entry); ok {
			products = append(products, product)
		}
	}
	return products
}

// parseProduct converts one catalog entry. Entries without an identifier
// or a name are unusable and skipped.
func parseProduct(entry map[string]any) (model.CatalogProduct, bool) {
	id := asString(entry["upc"])
	if id == "" {
		id = asString(entry["pid"])
	}
	name := asString(entry["name"])
	if id == "" || name == "" {
		return model.CatalogProduct{}, false
	}

	inStock := true
	if v, ok := entry["inStock"].(bool); ok && !v {
		inStock = false
	}

	return model.CatalogProduct{
		ID:        id,
		Name:      name,
		Price:     parsePrice(entry),
		UnitPrice: asFloat(entry["unitPrice"]),
		Size:      asString(entry["size"]),
		InStock:   inStock,
	}, true
}

func parsePrice(entry map[string]any) float64 {
	for _, key := range priceKeys {
		if v := asFloat(entry[key]); v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func asFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}
