package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/grocer/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidBrand   = errors.New("invalid brand preference")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateProduct(p model.CatalogProduct) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: missing product ID", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProduct)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: negative price", ErrInvalidProduct)
	}
	return nil
}

func validateBrandPreference(pref model.BrandPreference) error {
	if err := pref.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBrand, err)
	}
	return nil
}

// normalizeTarget is the canonical form match targets are stored and
// looked up in.
func normalizeTarget(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
