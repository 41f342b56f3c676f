package selection

import (
	"strings"

	"github.com/Veraticus/grocer/internal/model"
)

// FilterAvoided drops every product whose name contains an avoided brand,
// compared case-insensitively. Applying it twice gives the same result as
// applying it once.
func FilterAvoided(products []model.CatalogProduct, avoided []string) []model.CatalogProduct {
	if len(avoided) == 0 {
		return products
	}
	kept := make([]model.CatalogProduct, 0, len(products))
	for _, p := range products {
		if !nameHasBrand(p.Name, avoided) {
			kept = append(kept, p)
		}
	}
	return kept
}

func nameHasBrand(name string, brands []string) bool {
	lower := strings.ToLower(name)
	for _, b := range brands {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" && strings.Contains(lower, b) {
			return true
		}
	}
	return false
}

// Heuristic picks a product without the assistant. In-stock products win
// over out-of-stock ones, then preferred brands, then the lowest price.
// The first product wins a tie. It returns -1 for an empty list.
func Heuristic(products []model.CatalogProduct, preferred []string) int {
	pool := make([]int, 0, len(products))
	for i, p := range products {
		if p.InStock {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		for i := range products {
			pool = append(pool, i)
		}
	}

	var branded []int
	for _, i := range pool {
		if nameHasBrand(products[i].Name, preferred) {
			branded = append(branded, i)
		}
	}
	if len(branded) > 0 {
		pool = branded
	}

	best := -1
	for _, i := range pool {
		if best < 0 || products[i].Price < products[best].Price {
			best = i
		}
	}
	return best
}
