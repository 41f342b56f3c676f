// Package model defines the core data types shared by the ordering pipeline.
package model

// IngredientCategory groups ingredients the way the store aisles do.
type IngredientCategory string

const (
	// CategoryProduce covers fruit and vegetables.
	CategoryProduce IngredientCategory = "produce"
	// CategoryMeat covers meat and seafood.
	CategoryMeat IngredientCategory = "meat"
	// CategoryDairy covers milk, cheese, eggs and the like.
	CategoryDairy IngredientCategory = "dairy"
	// CategoryBakery covers bread and baked goods.
	CategoryBakery IngredientCategory = "bakery"
	// CategoryPantryDry covers shelf-stable dry goods.
	CategoryPantryDry IngredientCategory = "pantry_dry"
	// CategoryFrozen covers frozen goods.
	CategoryFrozen IngredientCategory = "frozen"
	// CategoryBeverages covers drinks.
	CategoryBeverages IngredientCategory = "beverages"
	// CategoryDeli covers deli counter items.
	CategoryDeli IngredientCategory = "deli"
	// CategoryOther is the catch-all.
	CategoryOther IngredientCategory = "other"
)

// AllCategories returns every known ingredient category in display order.
func AllCategories() []IngredientCategory {
	return []IngredientCategory{
		CategoryProduce, CategoryMeat, CategoryDairy, CategoryBakery,
		CategoryPantryDry, CategoryFrozen, CategoryBeverages, CategoryDeli,
		CategoryOther,
	}
}

// IsValid reports whether c is a known category.
func (c IngredientCategory) IsValid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// RequestedItem is one consolidated shopping-list line handed to the
// ordering pipeline.
type RequestedItem struct {
	EstimatedPrice *float64           `json:"estimated_price,omitempty"`
	Ingredient     string             `json:"ingredient"`
	Unit           string             `json:"unit"`
	Category       IngredientCategory `json:"category"`
	SearchTerm     string             `json:"search_term"`
	FromMeals      []string           `json:"from_meals,omitempty"`
	Quantity       float64            `json:"quantity"`
}

// Term returns the catalog search term, falling back to the ingredient name.
func (r RequestedItem) Term() string {
	if r.SearchTerm != "" {
		return r.SearchTerm
	}
	return r.Ingredient
}
