package model

// SubstitutionStatus is the overall outcome of a substitution search.
type SubstitutionStatus string

const (
	// SubstitutionFound means at least one alternative survived filtering.
	SubstitutionFound SubstitutionStatus = "alternatives_found"
	// SubstitutionNone means the re-search returned nothing usable.
	SubstitutionNone SubstitutionStatus = "no_alternatives"
	// SubstitutionAllAvoided means every alternative was an avoided brand.
	SubstitutionAllAvoided SubstitutionStatus = "all_avoided"
)

// Suitability grades how well an alternative replaces the original.
type Suitability string

const (
	// SuitabilityExcellent is a near drop-in replacement.
	SuitabilityExcellent Suitability = "excellent"
	// SuitabilityGood works for the recipe with minor differences.
	SuitabilityGood Suitability = "good"
	// SuitabilityAcceptable works but changes the result noticeably.
	SuitabilityAcceptable Suitability = "acceptable"
	// SuitabilityPoor is a last resort.
	SuitabilityPoor Suitability = "poor"
)

// ParseSuitability maps free text to a Suitability, defaulting to acceptable.
func ParseSuitability(s string) Suitability {
	switch Suitability(s) {
	case SuitabilityExcellent, SuitabilityGood, SuitabilityAcceptable, SuitabilityPoor:
		return Suitability(s)
	default:
		return SuitabilityAcceptable
	}
}

// SubstitutionOption is one ranked alternative product.
type SubstitutionOption struct {
	Product     CatalogProduct `json:"product"`
	Suitability Suitability    `json:"suitability"`
	FormWarning string         `json:"form_warning,omitempty"`
	Reasoning   string         `json:"reasoning"`
}

// SubstitutionResult describes the alternatives found for an out-of-stock
// selection. Selected is a suggestion only and is never applied silently.
type SubstitutionResult struct {
	Selected        *SubstitutionOption  `json:"selected,omitempty"`
	Status          SubstitutionStatus   `json:"status"`
	Message         string               `json:"message"`
	OriginalItem    RequestedItem        `json:"original_item"`
	OriginalProduct CatalogProduct       `json:"original_product"`
	Alternatives    []SubstitutionOption `json:"alternatives"`
}
