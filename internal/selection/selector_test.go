package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/grocer/internal/llm"
	"github.com/Veraticus/grocer/internal/model"
	"github.com/Veraticus/grocer/internal/testutil"
)

var milk = model.RequestedItem{
	Ingredient: "milk",
	Quantity:   1,
	Unit:       "gal",
	Category:   model.CategoryDairy,
}

func candidates() []model.CatalogProduct {
	return []model.CatalogProduct{
		{ID: "1", Name: "Horizon Whole Milk", Price: 6.49, Size: "1 gal", InStock: true},
		{ID: "2", Name: "Lucerne Whole Milk", Price: 3.99, Size: "1 gal", InStock: true},
		{ID: "3", Name: "BadBrand Milk", Price: 1.99, Size: "1 gal", InStock: true},
	}
}

func newTestSelector(t *testing.T, assistant llm.Assistant) *Selector {
	t.Helper()
	store := testutil.SetupTestDB(t)
	testutil.SeedBrands(t, store, testutil.Avoid("milk", "badbrand"))

	s, err := New(store, assistant, nil)
	require.NoError(t, err)
	return s
}

func TestSelect_AssistantChoice(t *testing.T) {
	mock := &llm.MockAssistant{CallFn: llm.Reply("```json\n{\"selected_index\": 0, \"reasoning\": \"organic\"}\n```")}
	s := newTestSelector(t, mock)

	sel := s.Select(context.Background(), milk, candidates())

	require.True(t, sel.OK())
	assert.Equal(t, "1", sel.Product.ID)
	assert.Equal(t, SourceAssistant, sel.Source)
	assert.Equal(t, "organic", sel.Reasoning)
	require.Equal(t, 1, mock.CallCount())
	assert.NotContains(t, mock.Prompts[0], "BadBrand Milk", "avoided products are never offered")
	assert.Contains(t, mock.Prompts[0], "- AVOID: badbrand (for ingredient: milk)")
}

func TestSelect_Declined(t *testing.T) {
	mock := &llm.MockAssistant{CallFn: llm.Reply(`{"selected_index": -1, "reasoning": "all are flavoured"}`)}
	s := newTestSelector(t, mock)

	sel := s.Select(context.Background(), milk, candidates())

	assert.False(t, sel.OK())
	assert.Equal(t, FailureDeclined, sel.Failure)
	assert.Equal(t, SourceAssistant, sel.Source)
	assert.Contains(t, sel.Reason(), "all are flavoured")
}

func TestSelect_FallsBackToHeuristic(t *testing.T) {
	tests := []struct {
		name   string
		callFn func(context.Context, string) (string, error)
	}{
		{"call error", func(context.Context, string) (string, error) { return "", errors.New("timeout") }},
		{"not json", llm.Reply("I'd go with the Lucerne")},
		{"out of range", llm.Reply(`{"selected_index": 7, "reasoning": "x"}`)},
		{"negative", llm.Reply(`{"selected_index": -2, "reasoning": "x"}`)},
		{"fractional", llm.Reply(`{"selected_index": 0.5, "reasoning": "x"}`)},
		{"integral float", llm.Reply(`{"selected_index": 1.0, "reasoning": "x"}`)},
		{"null index", llm.Reply(`{"selected_index": null, "reasoning": "x"}`)},
		{"string index", llm.Reply(`{"selected_index": "1", "reasoning": "x"}`)},
		{"missing index", llm.Reply(`{"reasoning": "x"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &llm.MockAssistant{CallFn: tt.callFn}
			s := newTestSelector(t, mock)

			sel := s.Select(context.Background(), milk, candidates())

			require.True(t, sel.OK())
			assert.Equal(t, SourceHeuristic, sel.Source)
			assert.Equal(t, "2", sel.Product.ID, "cheapest non-avoided product")
			assert.Equal(t, 1, mock.CallCount())
		})
	}
}

func TestSelect_NilAssistant(t *testing.T) {
	s := newTestSelector(t, nil)

	products := []model.CatalogProduct{
		{ID: "a", Name: "Milk A", Price: 5.99, InStock: false},
		{ID: "b", Name: "Milk B", Price: 3.49, InStock: true},
	}
	for i := 0; i < 3; i++ {
		sel := s.Select(context.Background(), milk, products)
		require.True(t, sel.OK())
		assert.Equal(t, "b", sel.Product.ID)
		assert.Equal(t, SourceHeuristic, sel.Source)
	}
}

func TestSelect_PreferredBrandFromCategory(t *testing.T) {
	store := testutil.SetupTestDB(t)
	testutil.SeedBrands(t, store, model.BrandPreference{
		MatchTarget:    "dairy",
		MatchType:      model.MatchCategory,
		Brand:          "Horizon",
		PreferenceType: model.PreferencePreferred,
	})
	s, err := New(store, nil, nil)
	require.NoError(t, err)

	sel := s.Select(context.Background(), milk, candidates())
	require.True(t, sel.OK())
	assert.Equal(t, "1", sel.Product.ID)
}

func TestSelect_Failures(t *testing.T) {
	mock := &llm.MockAssistant{CallFn: llm.Reply(`{"selected_index": 0}`)}
	s := newTestSelector(t, mock)

	sel := s.Select(context.Background(), milk, nil)
	assert.Equal(t, FailureNoCandidates, sel.Failure)
	assert.Equal(t, "No products available", sel.Reason())

	sel = s.Select(context.Background(), milk, candidates()[2:])
	assert.Equal(t, FailureAllAvoided, sel.Failure)
	assert.Equal(t, "All available products are from avoided brands", sel.Reason())

	assert.Zero(t, mock.CallCount(), "no assistant call without candidates")
}

func TestSelect_PriceSensitivityInPrompt(t *testing.T) {
	store := testutil.SetupTestDB(t)
	require.NoError(t, store.SetPreference(context.Background(), model.PriceSensitivityKey, "budget"))

	mock := &llm.MockAssistant{CallFn: llm.Reply(`{"selected_index": 1, "reasoning": "cheap"}`)}
	s, err := New(store, mock, nil)
	require.NoError(t, err)

	sel := s.Select(context.Background(), milk, candidates())
	require.True(t, sel.OK())
	assert.Contains(t, mock.Prompts[0], model.PriceBudget.Description())
}

func TestSelectAll(t *testing.T) {
	s := newTestSelector(t, nil)

	results := s.SelectAll(context.Background(), []Request{
		{Item: milk, Candidates: candidates()},
		{Item: model.RequestedItem{Ingredient: "eggs"}},
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.Equal(t, "eggs", results[1].Item.Ingredient)
	assert.Equal(t, FailureNoCandidates, results[1].Failure)
}
