// Package selection chooses which catalog product to buy for a requested
// item. The assistant is asked first; a deterministic heuristic answers
// whenever the assistant is missing, fails, or replies with something
// unusable.
package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/llm"
	"github.com/Veraticus/grocer/internal/model"
	"github.com/Veraticus/grocer/internal/service"
)

// Source says which path produced a selection.
type Source string

const (
	// SourceAssistant means the language model chose the product.
	SourceAssistant Source = "assistant"
	// SourceHeuristic means brand rules and price chose the product.
	SourceHeuristic Source = "heuristic"
)

// Failure explains why no product was selected.
type Failure string

const (
	// FailureNone means a product was selected.
	FailureNone Failure = ""
	// FailureNoCandidates means the search returned nothing.
	FailureNoCandidates Failure = "no_candidates"
	// FailureAllAvoided means every candidate was an avoided brand.
	FailureAllAvoided Failure = "all_avoided"
	// FailureDeclined means the assistant found no suitable candidate.
	FailureDeclined Failure = "declined"
)

const heuristicReasoning = "Selected by stock, brand preference and price (assistant unavailable)"

// Selection is the outcome for one requested item. Product is nil when
// Failure is set.
type Selection struct {
	Product   *model.CatalogProduct
	Item      model.RequestedItem
	Reasoning string
	Source    Source
	Failure   Failure
}

// OK reports whether a product was chosen.
func (s Selection) OK() bool {
	return s.Product != nil
}

// Reason describes a failed selection for humans.
func (s Selection) Reason() string {
	switch s.Failure {
	case FailureNoCandidates:
		return "No products available"
	case FailureAllAvoided:
		return "All available products are from avoided brands"
	case FailureDeclined:
		if s.Reasoning != "" {
			return "No suitable product: " + s.Reasoning
		}
		return "No suitable product"
	default:
		return ""
	}
}

// Request pairs an item with its candidates for SelectAll.
type Request struct {
	Item       model.RequestedItem
	Candidates []model.CatalogProduct
}

// Selector picks products. A nil assistant always uses the heuristic.
type Selector struct {
	prefs     service.PreferenceStore
	assistant llm.Assistant
	prompts   *llm.PromptBuilder
	logger    *slog.Logger
}

// New creates a selector.
func New(prefs service.PreferenceStore, assistant llm.Assistant, logger *slog.Logger) (*Selector, error) {
	prompts, err := llm.NewPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return &Selector{
		prefs:     prefs,
		assistant: assistant,
		prompts:   prompts,
		logger:    common.ComponentLogger(logger, "selection"),
	}, nil
}

// Brands returns the brand rules for item, or an empty set when the
// store is unavailable.
func (s *Selector) Brands(ctx context.Context, item model.RequestedItem) model.BrandSet {
	if s.prefs == nil {
		return model.BrandSet{}
	}
	brands, err := s.prefs.GetBrandsForIngredient(ctx, item.Ingredient, item.Category)
	if err != nil {
		s.logger.Warn("Brand preference lookup failed", "ingredient", item.Ingredient, "error", err)
		return model.BrandSet{}
	}
	return brands
}

func (s *Selector) priceSensitivity(ctx context.Context) model.PriceSensitivity {
	if s.prefs == nil {
		return model.PriceModerate
	}
	value, ok, err := s.prefs.GetPreference(ctx, model.PriceSensitivityKey)
	if err != nil {
		s.logger.Warn("Price sensitivity lookup failed", "error", err)
		return model.PriceModerate
	}
	if !ok {
		return model.PriceModerate
	}
	return model.ParsePriceSensitivity(value)
}

// Select chooses a product for item from candidates.
func (s *Selector) Select(ctx context.Context, item model.RequestedItem, candidates []model.CatalogProduct) Selection {
	result := Selection{Item: item}
	if len(candidates) == 0 {
		result.Failure = FailureNoCandidates
		return result
	}

	brands := s.Brands(ctx, item)
	filtered := FilterAvoided(candidates, brands.AvoidedBrands())
	if len(filtered) == 0 {
		result.Failure = FailureAllAvoided
		return result
	}

	if s.assistant != nil {
		index, reasoning, err := s.ask(ctx, item, filtered, brands)
		if err == nil {
			result.Source = SourceAssistant
			result.Reasoning = reasoning
			if index < 0 {
				result.Failure = FailureDeclined
				s.logger.Info("Assistant declined every candidate", "ingredient", item.Ingredient, "reasoning", reasoning)
				return result
			}
			chosen := filtered[index]
			result.Product = &chosen
			return result
		}
		s.logger.Warn("Assistant selection failed, using heuristic", "ingredient", item.Ingredient, "error", err)
	}

	chosen := filtered[Heuristic(filtered, brands.PreferredBrands())]
	result.Product = &chosen
	result.Source = SourceHeuristic
	result.Reasoning = heuristicReasoning
	return result
}

// SelectAll runs Select for each request in order.
func (s *Selector) SelectAll(ctx context.Context, requests []Request) []Selection {
	out := make([]Selection, 0, len(requests))
	for _, r := range requests {
		out = append(out, s.Select(ctx, r.Item, r.Candidates))
	}
	return out
}

type selectionReply struct {
	SelectedIndex json.RawMessage `json:"selected_index"`
	Reasoning     string          `json:"reasoning"`
}

// ask returns the chosen index, or -1 when the assistant declined.
func (s *Selector) ask(ctx context.Context, item model.RequestedItem, candidates []model.CatalogProduct, brands model.BrandSet) (int, string, error) {
	prompt, err := s.prompts.BuildSelection(llm.SelectionData{
		Item:             item,
		Candidates:       candidates,
		Brands:           brands,
		PriceSensitivity: s.priceSensitivity(ctx),
	})
	if err != nil {
		return 0, "", err
	}

	raw, err := s.assistant.Call(ctx, prompt)
	if err != nil {
		return 0, "", err
	}

	var reply selectionReply
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		return 0, "", err
	}

	index, err := parseIndex(reply.SelectedIndex, len(candidates))
	if err != nil {
		return 0, "", err
	}
	return index, reply.Reasoning, nil
}

func parseIndex(raw json.RawMessage, n int) (int, error) {
	index, ok := llm.Integer(raw)
	if !ok {
		return 0, fmt.Errorf("selected_index %s is not an integer", raw)
	}
	if index == -1 {
		return -1, nil
	}
	if index < 0 || index >= n {
		return 0, fmt.Errorf("selected_index %d out of range [0,%d)", index, n)
	}
	return index, nil
}
