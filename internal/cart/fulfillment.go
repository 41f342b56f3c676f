package cart

import (
	"context"
	"fmt"

	"github.com/Veraticus/grocer/internal/model"
)

const defaultDeliveryFee = 9.95

type fulfillmentResponse struct {
	FulfillmentOptions []fulfillmentEntry `json:"fulfillmentOptions"`
}

type fulfillmentEntry struct {
	Type      string                    `json:"type"`
	Windows   []model.FulfillmentWindow `json:"windows"`
	Fee       float64                   `json:"fee"`
	Available bool                      `json:"available"`
}

// DefaultFulfillmentOptions is used whenever the store cannot be asked.
func DefaultFulfillmentOptions() []model.FulfillmentOption {
	return []model.FulfillmentOption{
		{Type: model.FulfillmentPickup, Available: true},
		{Type: model.FulfillmentDelivery, Available: true, Fee: defaultDeliveryFee},
	}
}

func fulfillmentPath(storeID string) string {
	return fmt.Sprintf("/abs/pub/web/stores/%s/fulfillment", storeID)
}

// fulfillmentOptions asks the store for its options and falls back to the
// defaults on any failure.
func (a *Assembler) fulfillmentOptions(ctx context.Context) []model.FulfillmentOption {
	var resp fulfillmentResponse
	if err := a.api.Get(ctx, fulfillmentPath(a.api.StoreID()), nil, &resp); err != nil {
		a.logger.Warn("Fulfillment lookup failed, using defaults", "error", err)
		return DefaultFulfillmentOptions()
	}

	options, err := parseFulfillment(resp)
	if err != nil {
		a.logger.Warn("Unusable fulfillment response, using defaults", "error", err)
		return DefaultFulfillmentOptions()
	}
	return options
}

func parseFulfillment(resp fulfillmentResponse) ([]model.FulfillmentOption, error) {
	if len(resp.FulfillmentOptions) == 0 {
		return nil, fmt.Errorf("no fulfillment options")
	}
	options := make([]model.FulfillmentOption, 0, len(resp.FulfillmentOptions))
	for _, e := range resp.FulfillmentOptions {
		t := model.FulfillmentType(e.Type)
		if e.Type == "" {
			t = model.FulfillmentPickup
		}
		if !t.IsValid() {
			return nil, fmt.Errorf("unsupported fulfillment type %q", e.Type)
		}
		opt := model.FulfillmentOption{
			Type:      t,
			Available: e.Available,
			Fee:       max(e.Fee, 0),
			Windows:   e.Windows,
		}
		if len(e.Windows) > 0 {
			opt.NextWindow = e.Windows[0].Display
		}
		options = append(options, opt)
	}
	return options, nil
}

// Recommend prefers an available pickup, then the first available option,
// then pickup.
func Recommend(options []model.FulfillmentOption) model.FulfillmentOption {
	var firstAvailable *model.FulfillmentOption
	for i := range options {
		if !options[i].Available {
			continue
		}
		if options[i].Type == model.FulfillmentPickup {
			return options[i]
		}
		if firstAvailable == nil {
			firstAvailable = &options[i]
		}
	}
	if firstAvailable != nil {
		return *firstAvailable
	}
	for _, o := range options {
		if o.Type == model.FulfillmentPickup {
			return o
		}
	}
	return model.FulfillmentOption{Type: model.FulfillmentPickup}
}
