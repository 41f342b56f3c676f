package model

import (
	"fmt"
	"strings"
	"time"
)

// MatchType says what a brand preference is keyed on.
type MatchType string

const (
	// MatchCategory keys a preference on an ingredient category.
	MatchCategory MatchType = "category"
	// MatchIngredient keys a preference on a specific ingredient.
	MatchIngredient MatchType = "ingredient"
)

// PreferenceType says whether a brand is wanted or unwanted.
type PreferenceType string

const (
	// PreferencePreferred marks a brand to favour.
	PreferencePreferred PreferenceType = "preferred"
	// PreferenceAvoid marks a brand to exclude.
	PreferenceAvoid PreferenceType = "avoid"
)

// BrandPreference is a household rule about a brand.
type BrandPreference struct {
	CreatedAt      time.Time      `json:"created_at"`
	MatchTarget    string         `json:"match_target"`
	MatchType      MatchType      `json:"match_type"`
	Brand          string         `json:"brand"`
	PreferenceType PreferenceType `json:"preference_type"`
	Notes          string         `json:"notes,omitempty"`
	ID             int64          `json:"id"`
}

// Validate checks the enum fields and required strings.
func (b BrandPreference) Validate() error {
	if strings.TrimSpace(b.MatchTarget) == "" {
		return fmt.Errorf("brand preference: match target is required")
	}
	if strings.TrimSpace(b.Brand) == "" {
		return fmt.Errorf("brand preference: brand is required")
	}
	switch b.MatchType {
	case MatchCategory, MatchIngredient:
	default:
		return fmt.Errorf("brand preference: invalid match type %q", b.MatchType)
	}
	switch b.PreferenceType {
	case PreferencePreferred, PreferenceAvoid:
	default:
		return fmt.Errorf("brand preference: invalid preference type %q", b.PreferenceType)
	}
	return nil
}

// BrandSet is the preferred and avoided brands that apply to one lookup.
type BrandSet struct {
	Preferred []BrandPreference
	Avoid     []BrandPreference
}

// PreferredBrands returns the preferred brand names.
func (s BrandSet) PreferredBrands() []string {
	return brandNames(s.Preferred)
}

// AvoidedBrands returns the avoided brand names.
func (s BrandSet) AvoidedBrands() []string {
	return brandNames(s.Avoid)
}

// IsEmpty reports whether no preferences apply.
func (s BrandSet) IsEmpty() bool {
	return len(s.Preferred) == 0 && len(s.Avoid) == 0
}

func brandNames(prefs []BrandPreference) []string {
	names := make([]string, 0, len(prefs))
	for _, p := range prefs {
		names = append(names, p.Brand)
	}
	return names
}

// PriceSensitivity is the household's budget stance.
type PriceSensitivity string

const (
	// PriceBudget favours the cheapest acceptable option.
	PriceBudget PriceSensitivity = "budget"
	// PriceModerate balances price and quality.
	PriceModerate PriceSensitivity = "moderate"
	// PricePremium favours quality over price.
	PricePremium PriceSensitivity = "premium"
)

// PriceSensitivityKey is the preferences key holding the price sensitivity.
const PriceSensitivityKey = "price_sensitivity"

// ParsePriceSensitivity maps a stored value to a PriceSensitivity,
// defaulting to moderate for anything unrecognized.
func ParsePriceSensitivity(s string) PriceSensitivity {
	switch PriceSensitivity(strings.ToLower(strings.TrimSpace(s))) {
	case PriceBudget:
		return PriceBudget
	case PricePremium:
		return PricePremium
	default:
		return PriceModerate
	}
}

// Description returns the prompt-facing guidance for the sensitivity.
func (p PriceSensitivity) Description() string {
	switch p {
	case PriceBudget:
		return "budget (prefer the cheapest acceptable option)"
	case PricePremium:
		return "premium (prefer quality, price matters less)"
	default:
		return "moderate (balance price and quality)"
	}
}
