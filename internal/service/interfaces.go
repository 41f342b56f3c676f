// Package service defines the interfaces shared between the ordering
// components and their collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/grocer/internal/model"
)

// PreferenceStore is the read side of household preferences consulted
// during selection and substitution.
type PreferenceStore interface {
	// GetBrandsForIngredient returns the brand rules for an ingredient.
	// Ingredient-level rules shadow category-level ones entirely.
	GetBrandsForIngredient(ctx context.Context, ingredient string, category model.IngredientCategory) (model.BrandSet, error)
	// GetPreference returns a stored preference value and whether it exists.
	GetPreference(ctx context.Context, key string) (string, bool, error)
}

// MappingStore persists search-term to product mappings.
type MappingStore interface {
	// GetMapping returns the pinned or most recently used mapping for a
	// term, or nil when none exists.
	GetMapping(ctx context.Context, searchTerm string) (*model.CachedMapping, error)
	// SaveMapping upserts an unpinned mapping for the term and product.
	SaveMapping(ctx context.Context, searchTerm string, product model.CatalogProduct, at time.Time) error
	// TouchMapping increments the selection count and refreshes last use.
	TouchMapping(ctx context.Context, id int64, at time.Time) error
	// PinMapping makes product the single pinned mapping for the term.
	PinMapping(ctx context.Context, searchTerm string, product model.CatalogProduct, at time.Time) error
	// UnpinMapping clears pins for the term and reports whether any existed.
	UnpinMapping(ctx context.Context, searchTerm string) (bool, error)
	// DeleteMappings removes every mapping for the term.
	DeleteMappings(ctx context.Context, searchTerm string) (int64, error)
	// ListMappings returns all mappings ordered by search term.
	ListMappings(ctx context.Context) ([]model.CachedMapping, error)
}

// RetryOptions configures retry behavior for external service calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
