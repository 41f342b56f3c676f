package model

import "time"

// CatalogProduct is a product as returned by the retailer's catalog search.
type CatalogProduct struct {
	UnitPrice *float64 `json:"unit_price,omitempty"`
	ID        string   `json:"product_id"`
	Name      string   `json:"name"`
	Size      string   `json:"size"`
	Price     float64  `json:"price"`
	InStock   bool     `json:"in_stock"`
}

// CachedMapping remembers which product a search term resolved to.
type CachedMapping struct {
	LastUsed      time.Time      `json:"last_used"`
	CreatedAt     time.Time      `json:"created_at"`
	SearchTerm    string         `json:"search_term"`
	Product       CatalogProduct `json:"product"`
	ID            int64          `json:"id"`
	TimesSelected int            `json:"times_selected"`
	IsPinned      bool           `json:"is_pinned"`
}

// IsStale reports whether an unpinned mapping has gone unused for longer
// than maxAge.
func (m CachedMapping) IsStale(now time.Time, maxAge time.Duration) bool {
	if m.IsPinned {
		return false
	}
	return now.Sub(m.LastUsed) > maxAge
}
