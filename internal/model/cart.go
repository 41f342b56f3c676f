package model

// CartLineItem is one product line in the assembled cart.
type CartLineItem struct {
	Product         CatalogProduct `json:"product"`
	Item            RequestedItem  `json:"item"`
	EstimatedCost   float64        `json:"estimated_cost"`
	QuantityToOrder int            `json:"quantity_to_order"`
}

// FailedItem records a requested item that could not be placed in the cart.
type FailedItem struct {
	Reason string        `json:"reason"`
	Item   RequestedItem `json:"item"`
}

// FulfillmentType is how an order reaches the household.
type FulfillmentType string

const (
	// FulfillmentPickup is in-store or curbside pickup.
	FulfillmentPickup FulfillmentType = "pickup"
	// FulfillmentDelivery is home delivery.
	FulfillmentDelivery FulfillmentType = "delivery"
)

// IsValid reports whether t is a supported fulfillment type.
func (t FulfillmentType) IsValid() bool {
	return t == FulfillmentPickup || t == FulfillmentDelivery
}

// FulfillmentWindow is one bookable time slot.
type FulfillmentWindow struct {
	Display string `json:"display"`
}

// FulfillmentOption is a way the order can be fulfilled, with its cost.
type FulfillmentOption struct {
	Type       FulfillmentType     `json:"type"`
	NextWindow string              `json:"next_window,omitempty"`
	Windows    []FulfillmentWindow `json:"windows,omitempty"`
	Fee        float64             `json:"fee"`
	Available  bool                `json:"available"`
}

// CartSummary is the result of one cart build.
type CartSummary struct {
	RunID              string               `json:"run_id"`
	RecommendedOption  FulfillmentOption    `json:"recommended_option"`
	Items              []CartLineItem       `json:"items"`
	RestockItems       []CartLineItem       `json:"restock_items"`
	FailedItems        []FailedItem         `json:"failed_items"`
	SubstitutedItems   []SubstitutionResult `json:"substituted_items"`
	FulfillmentOptions []FulfillmentOption  `json:"fulfillment_options"`
	Subtotal           float64              `json:"subtotal"`
	EstimatedTotal     float64              `json:"estimated_total"`
}

// LineCount returns the number of product lines across both buckets.
func (s *CartSummary) LineCount() int {
	return len(s.Items) + len(s.RestockItems)
}
