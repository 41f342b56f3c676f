package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/grocer/internal/model"
)

// CartProgress draws a progress bar while a cart is assembled.
type CartProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewCartProgress creates a progress display writing to w.
func NewCartProgress(w io.Writer) *CartProgress {
	return &CartProgress{writer: w}
}

// Update advances the bar. Its signature matches cart.ProgressFunc.
func (p *CartProgress) Update(done, total int, item model.RequestedItem) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(p.writer)
			}),
		)
	}

	p.bar.Describe(fmt.Sprintf("[cyan]%-20s[reset]", truncate(item.Ingredient, 20)))
	if err := p.bar.Set(done); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
