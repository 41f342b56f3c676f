// Package substitution finds and ranks replacements for a selected
// product that turned out to be out of stock.
package substitution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/llm"
	"github.com/Veraticus/grocer/internal/model"
	"github.com/Veraticus/grocer/internal/selection"
)

// Searcher runs a live catalog search.
type Searcher interface {
	Search(ctx context.Context, term string) ([]model.CatalogProduct, error)
}

// BrandSource supplies the brand rules for an item.
type BrandSource interface {
	Brands(ctx context.Context, item model.RequestedItem) model.BrandSet
}

const (
	msgNoAlternatives = "No alternative products found"
	msgAllAvoided     = "All alternatives are from avoided brands"
	fallbackReasoning = "Ranked by price"
)

// Ranker produces substitution outcomes. A nil assistant ranks by price.
type Ranker struct {
	search    Searcher
	brands    BrandSource
	assistant llm.Assistant
	prompts   *llm.PromptBuilder
	logger    *slog.Logger
}

// New creates a ranker.
func New(search Searcher, brands BrandSource, assistant llm.Assistant, logger *slog.Logger) (*Ranker, error) {
	prompts, err := llm.NewPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return &Ranker{
		search:    search,
		brands:    brands,
		assistant: assistant,
		prompts:   prompts,
		logger:    common.ComponentLogger(logger, "substitution"),
	}, nil
}

// Find re-searches for item and ranks in-stock alternatives to original.
// Only a failed search is returned as an error.
func (r *Ranker) Find(ctx context.Context, item model.RequestedItem, original model.CatalogProduct) (model.SubstitutionResult, error) {
	result := model.SubstitutionResult{
		OriginalItem:    item,
		OriginalProduct: original,
	}

	products, err := r.search.Search(ctx, item.Term())
	if err != nil {
		return result, err
	}

	var alternatives []model.CatalogProduct
	for _, p := range products {
		if p.ID != original.ID && p.InStock {
			alternatives = append(alternatives, p)
		}
	}
	if len(alternatives) == 0 {
		result.Status = model.SubstitutionNone
		result.Message = msgNoAlternatives
		return result, nil
	}

	var brands model.BrandSet
	if r.brands != nil {
		brands = r.brands.Brands(ctx, item)
	}
	alternatives = selection.FilterAvoided(alternatives, brands.AvoidedBrands())
	if len(alternatives) == 0 {
		result.Status = model.SubstitutionAllAvoided
		result.Message = msgAllAvoided
		return result, nil
	}

	var ranked []model.SubstitutionOption
	if r.assistant != nil {
		ranked, err = r.rank(ctx, item, original, alternatives, brands)
		if err != nil {
			r.logger.Warn("Assistant ranking failed, ranking by price", "ingredient", item.Ingredient, "error", err)
			ranked = nil
		}
	}
	if ranked == nil {
		ranked = rankByPrice(alternatives)
	}

	result.Status = model.SubstitutionFound
	result.Alternatives = ranked
	result.Message = fmt.Sprintf("Found %d alternative(s)", len(ranked))
	r.logger.Info("Substitutes found", "ingredient", item.Ingredient, "original", original.ID, "count", len(ranked))
	return result, nil
}

type rankingEntry struct {
	Index       json.RawMessage `json:"index"`
	Suitability string          `json:"suitability"`
	FormWarning *string         `json:"form_warning"`
	Reasoning   string          `json:"reasoning"`
}

func (r *Ranker) rank(ctx context.Context, item model.RequestedItem, original model.CatalogProduct, alternatives []model.CatalogProduct, brands model.BrandSet) ([]model.SubstitutionOption, error) {
	prompt, err := r.prompts.BuildSubstitution(llm.SubstitutionData{
		Item:         item,
		Original:     original,
		Alternatives: alternatives,
		Brands:       brands,
	})
	if err != nil {
		return nil, err
	}

	raw, err := r.assistant.Call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var entries []rankingEntry
	if err := llm.DecodeJSON(raw, &entries); err != nil {
		return nil, err
	}

	ranked := make([]model.SubstitutionOption, 0, len(entries))
	for _, e := range entries {
		index, ok := llm.Integer(e.Index)
		if !ok || index < 0 || index >= len(alternatives) {
			continue
		}
		opt := model.SubstitutionOption{
			Product:     alternatives[index],
			Suitability: model.ParseSuitability(e.Suitability),
			Reasoning:   e.Reasoning,
		}
		if e.FormWarning != nil {
			opt.FormWarning = *e.FormWarning
		}
		ranked = append(ranked, opt)
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("no valid entries in ranking of %d", len(entries))
	}
	return ranked, nil
}

func rankByPrice(alternatives []model.CatalogProduct) []model.SubstitutionOption {
	sorted := make([]model.CatalogProduct, len(alternatives))
	copy(sorted, alternatives)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price < sorted[j].Price
	})

	ranked := make([]model.SubstitutionOption, len(sorted))
	for i, p := range sorted {
		ranked[i] = model.SubstitutionOption{
			Product:     p,
			Suitability: model.SuitabilityAcceptable,
			Reasoning:   fallbackReasoning,
		}
	}
	return ranked
}
