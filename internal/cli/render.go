package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/grocer/internal/model"
)

// RenderCart writes a human-readable cart summary.
func RenderCart(w io.Writer, summary *model.CartSummary) error {
	var b strings.Builder

	b.WriteString(FormatTitle("Cart " + summary.RunID))
	b.WriteString("\n")

	if len(summary.Items) > 0 {
		writeLines(&b, "Shopping list", summary.Items)
	}
	if len(summary.RestockItems) > 0 {
		writeLines(&b, "Restock", summary.RestockItems)
	}

	for _, sub := range summary.SubstitutedItems {
		line := fmt.Sprintf("%s %s: %s is out of stock. %s", SwapIcon, sub.OriginalItem.Ingredient, sub.OriginalProduct.Name, sub.Message)
		if sub.Selected != nil {
			line += fmt.Sprintf(". Suggested: %s ($%.2f, %s)", sub.Selected.Product.Name, sub.Selected.Product.Price, sub.Selected.Suitability)
			if sub.Selected.FormWarning != "" {
				line += " " + WarningIcon + " " + sub.Selected.FormWarning
			}
		}
		b.WriteString(WarningStyle.Render(line))
		b.WriteString("\n")
	}

	for _, f := range summary.FailedItems {
		b.WriteString(FormatError(fmt.Sprintf("%s: %s", f.Item.Ingredient, f.Reason)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	totals := fmt.Sprintf("Subtotal:  $%.2f\n%s fee: $%.2f\nTotal:     $%.2f",
		summary.Subtotal,
		titleCase(string(summary.RecommendedOption.Type)),
		summary.RecommendedOption.Fee,
		summary.EstimatedTotal)
	if summary.RecommendedOption.NextWindow != "" {
		totals += "\nNext window: " + summary.RecommendedOption.NextWindow
	}
	b.WriteString(RenderBox("Totals", totals))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeLines(b *strings.Builder, title string, lines []model.CartLineItem) {
	b.WriteString(BoldStyle.Render(title))
	b.WriteString("\n")
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	for _, l := range lines {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\tx%d\t$%.2f\n", l.Item.Ingredient, l.Product.Name, l.Product.Size, l.QuantityToOrder, l.EstimatedCost)
	}
	_ = tw.Flush()
	b.WriteString("\n")
}

// RenderMappings writes cached mappings as a table.
func RenderMappings(w io.Writer, mappings []model.CachedMapping) error {
	if len(mappings) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No cached mappings"))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TERM\tPRODUCT\tPRICE\tUSED\tLAST USED\t")
	for _, m := range mappings {
		pin := ""
		if m.IsPinned {
			pin = " " + PinIcon
		}
		_, _ = fmt.Fprintf(tw, "%s%s\t%s (%s)\t$%.2f\t%d\t%s\t\n",
			m.SearchTerm, pin, m.Product.Name, m.Product.ID, m.Product.Price, m.TimesSelected, m.LastUsed.Format("2006-01-02"))
	}
	return tw.Flush()
}

// RenderBrands writes brand preferences as a table.
func RenderBrands(w io.Writer, prefs []model.BrandPreference) error {
	if len(prefs) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No brand preferences"))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tRULE\tBRAND\tTARGET\tNOTES\t")
	for _, p := range prefs {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s: %s\t%s\t\n", p.ID, p.PreferenceType, p.Brand, p.MatchType, p.MatchTarget, p.Notes)
	}
	return tw.Flush()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
