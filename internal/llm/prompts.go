package llm

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Veraticus/grocer/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Prompt template names.
const (
	ProductSelectionPrompt = "product_selection"
	SubstitutionPrompt     = "substitution_ranking"
)

// PromptBuilder renders the embedded prompt templates.
type PromptBuilder struct {
	templates map[string]*template.Template
}

// NewPromptBuilder parses every embedded template.
func NewPromptBuilder() (*PromptBuilder, error) {
	pb := &PromptBuilder{templates: make(map[string]*template.Template)}

	funcMap := template.FuncMap{
		"formatQuantity": formatQuantity,
		"formatPrice":    func(p float64) string { return fmt.Sprintf("$%.2f", p) },
		"brandLines":     brandLines,
		"toJSON":         toJSON,
	}

	for _, name := range []string{ProductSelectionPrompt, SubstitutionPrompt} {
		filename := fmt.Sprintf("templates/%s.tmpl", name)
		tmpl, err := template.New(name + ".tmpl").Funcs(funcMap).ParseFS(templateFS, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pb.templates[name] = tmpl
	}

	return pb, nil
}

// SelectionData feeds the product selection template.
type SelectionData struct {
	Brands           model.BrandSet
	PriceSensitivity model.PriceSensitivity
	Item             model.RequestedItem
	Candidates       []model.CatalogProduct
}

// SubstitutionData feeds the substitution ranking template.
type SubstitutionData struct {
	Brands       model.BrandSet
	Item         model.RequestedItem
	Original     model.CatalogProduct
	Alternatives []model.CatalogProduct
}

// BuildSelection renders the product selection prompt.
func (pb *PromptBuilder) BuildSelection(data SelectionData) (string, error) {
	return pb.render(ProductSelectionPrompt, data)
}

// BuildSubstitution renders the substitution ranking prompt.
func (pb *PromptBuilder) BuildSubstitution(data SubstitutionData) (string, error) {
	return pb.render(SubstitutionPrompt, data)
}

func (pb *PromptBuilder) render(name string, data any) (string, error) {
	tmpl, ok := pb.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not loaded", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// brandLines lists preferences one per line, or a placeholder when none apply.
func brandLines(set model.BrandSet) string {
	if set.IsEmpty() {
		return "No brand preferences set."
	}
	var lines []string
	for _, p := range set.Preferred {
		lines = append(lines, fmt.Sprintf("- PREFER: %s (for %s: %s)", p.Brand, p.MatchType, p.MatchTarget))
	}
	for _, p := range set.Avoid {
		lines = append(lines, fmt.Sprintf("- AVOID: %s (for %s: %s)", p.Brand, p.MatchType, p.MatchTarget))
	}
	return strings.Join(lines, "\n")
}

// promptProduct is the shape products take inside prompts.
type promptProduct struct {
	UnitPrice *float64 `json:"unit_price"`
	Index     int      `json:"index"`
	Name      string   `json:"name"`
	Size      string   `json:"size"`
	Price     float64  `json:"price"`
	InStock   bool     `json:"in_stock"`
}

func toJSON(products []model.CatalogProduct) (string, error) {
	out := make([]promptProduct, len(products))
	for i, p := range products {
		out[i] = promptProduct{
			Index:     i,
			Name:      p.Name,
			Price:     p.Price,
			UnitPrice: p.UnitPrice,
			Size:      p.Size,
			InStock:   p.InStock,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
