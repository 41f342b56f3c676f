// Package testutil provides shared test fixtures for the grocer packages.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/grocer/internal/model"
	"github.com/Veraticus/grocer/internal/storage"
)

// SetupTestDB creates a migrated in-memory database that is closed when
// the test finishes.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// SeedBrands adds brand preferences to store or fails the test.
func SeedBrands(t *testing.T, store *storage.SQLiteStorage, prefs ...model.BrandPreference) {
	t.Helper()
	for _, p := range prefs {
		if _, err := store.AddBrandPreference(context.Background(), p); err != nil {
			t.Fatalf("failed to seed brand preference %q: %v", p.Brand, err)
		}
	}
}

// Avoid builds an ingredient-level avoid rule.
func Avoid(ingredient, brand string) model.BrandPreference {
	return model.BrandPreference{
		MatchTarget:    ingredient,
		MatchType:      model.MatchIngredient,
		Brand:          brand,
		PreferenceType: model.PreferenceAvoid,
	}
}

// Prefer builds an ingredient-level preferred rule.
func Prefer(ingredient, brand string) model.BrandPreference {
	return model.BrandPreference{
		MatchTarget:    ingredient,
		MatchType:      model.MatchIngredient,
		Brand:          brand,
		PreferenceType: model.PreferencePreferred,
	}
}

// Product builds an in-stock catalog product.
func Product(id, name string, price float64, size string) model.CatalogProduct {
	return model.CatalogProduct{ID: id, Name: name, Price: price, Size: size, InStock: true}
}
