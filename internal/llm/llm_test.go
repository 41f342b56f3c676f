package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/model"
)

func TestNewAssistant(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "default provider", cfg: Config{APIKey: "k"}},
		{name: "anthropic", cfg: Config{Provider: "Anthropic", APIKey: "k"}},
		{name: "openai", cfg: Config{Provider: "openai", APIKey: "k"}},
		{name: "missing key", cfg: Config{Provider: "openai"}, wantErr: common.ErrMissingConfig},
		{name: "unknown provider", cfg: Config{Provider: "parrot", APIKey: "k"}, wantErr: common.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAssistant(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &rateLimited{}, a)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"whitespace", "\n  {\"a\":1}  \n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.raw))
		})
	}
}

func TestInteger(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"2", 2, true},
		{"-1", -1, true},
		{" 0 ", 0, true},
		{"1.0", 0, false},
		{"1.5", 0, false},
		{"1e0", 0, false},
		{`"1"`, 0, false},
		{"null", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Integer(json.RawMessage(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Index int `json:"selected_index"`
	}
	require.NoError(t, DecodeJSON("```json\n{\"selected_index\": 2}\n```", &out))
	assert.Equal(t, 2, out.Index)

	assert.Error(t, DecodeJSON("   ", &out))
	assert.Error(t, DecodeJSON("I think the second one", &out))
}

func TestPromptBuilder_Selection(t *testing.T) {
	pb, err := NewPromptBuilder()
	require.NoError(t, err)

	prompt, err := pb.BuildSelection(SelectionData{
		Item: model.RequestedItem{
			Ingredient: "milk",
			SearchTerm: "whole milk",
			Quantity:   1.5,
			Unit:       "gallon",
			Category:   model.CategoryDairy,
		},
		Candidates: []model.CatalogProduct{
			{ID: "1", Name: "Horizon Whole Milk", Price: 6.49, Size: "1 gal", InStock: true},
		},
		Brands: model.BrandSet{Preferred: []model.BrandPreference{
			{Brand: "Horizon", MatchType: model.MatchCategory, MatchTarget: "dairy"},
		}},
		PriceSensitivity: model.PriceBudget,
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Item: milk")
	assert.Contains(t, prompt, "1.5 gallon")
	assert.Contains(t, prompt, "Searched for: whole milk")
	assert.Contains(t, prompt, `"name": "Horizon Whole Milk"`)
	assert.Contains(t, prompt, "- PREFER: Horizon (for category: dairy)")
	assert.Contains(t, prompt, model.PriceBudget.Description())
	assert.Contains(t, prompt, "selected_index")
}

func TestPromptBuilder_Substitution(t *testing.T) {
	pb, err := NewPromptBuilder()
	require.NoError(t, err)

	prompt, err := pb.BuildSubstitution(SubstitutionData{
		Item:     model.RequestedItem{Ingredient: "butter", Quantity: 1, Unit: "lb"},
		Original: model.CatalogProduct{ID: "9", Name: "Kerrygold Butter", Price: 5, Size: "8 oz"},
		Alternatives: []model.CatalogProduct{
			{ID: "10", Name: "Land O Lakes Butter", Price: 4.29},
			{ID: "11", Name: "Store Butter", Price: 3.5},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Out of stock: Kerrygold Butter (8 oz) at $5.00")
	assert.Contains(t, prompt, "No brand preferences set.")
	assert.Contains(t, prompt, `"index": 1`)
	assert.Equal(t, 1, strings.Count(prompt, "Land O Lakes Butter"))
}
