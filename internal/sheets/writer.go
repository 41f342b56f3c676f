package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/grocer/internal/common"
	"github.com/Veraticus/grocer/internal/model"
	"github.com/Veraticus/grocer/internal/service"
)

const (
	cartSheetTitle = "Cart"
	lineColumns    = 7
)

// Writer exports cart summaries to a spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a writer authenticated from config.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return newWriterWithService(srv, config, logger), nil
}

func newWriterWithService(srv *sheets.Service, config Config, logger *slog.Logger) *Writer {
	return &Writer{
		service: srv,
		config:  config,
		logger:  common.ComponentLogger(logger, "sheets"),
	}
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := OAuth2Config{ClientID: config.ClientID, ClientSecret: config.ClientSecret}.oauthConfig("")
		tokenSource = oauthConfig.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// Export writes summary to the configured spreadsheet, creating it when no
// ID is configured, and returns the spreadsheet ID.
func (w *Writer) Export(ctx context.Context, summary *model.CartSummary) (string, error) {
	w.logger.Info("Exporting cart", "run_id", summary.RunID, "lines", summary.LineCount())

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var spreadsheetID string
	err := common.WithRetry(ctx, func() error {
		id, getErr := w.getOrCreateSpreadsheet(ctx)
		spreadsheetID = id
		return classify(getErr)
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	values := CartRows(summary)
	err = common.WithRetry(ctx, func() error {
		if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
			return classify(clearErr)
		}
		return classify(w.writeData(ctx, spreadsheetID, values))
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to write cart: %w", err)
	}

	if w.config.EnableFormatting {
		if err := w.applyFormatting(ctx, spreadsheetID, len(values)); err != nil {
			w.logger.Warn("Failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("Cart exported", "spreadsheet_id", spreadsheetID, "rows", len(values))
	return spreadsheetID, nil
}

// classify marks client errors other than throttling as permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return common.Permanent(err)
		}
	}
	return err
}

func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		if _, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: cartSheetTitle}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("Created spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
	w.config.SpreadsheetID = created.SpreadsheetId
	return created.SpreadsheetId, nil
}

func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, "A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

// CartRows lays out a summary as sheet rows: a header block, the regular
// and restock lines, substitutions, failures and fulfillment options.
func CartRows(summary *model.CartSummary) [][]any {
	values := make([][]any, 0, 16+summary.LineCount()+len(summary.SubstitutedItems)+len(summary.FailedItems))

	values = append(values,
		[]any{"Grocery Cart", summary.RunID},
		[]any{},
		[]any{"Subtotal", summary.Subtotal},
		[]any{"Fulfillment", string(summary.RecommendedOption.Type), summary.RecommendedOption.Fee},
		[]any{"Estimated Total", summary.EstimatedTotal},
		[]any{},
		[]any{"Bucket", "Ingredient", "Product", "Size", "Quantity", "Unit Price", "Cost"},
	)
	values = appendLines(values, "list", summary.Items)
	values = appendLines(values, "restock", summary.RestockItems)

	if len(summary.SubstitutedItems) > 0 {
		values = append(values, []any{}, []any{"Substitutions"}, []any{"Ingredient", "Out of Stock", "Suggested", "Suitability", "Warning", "Status"})
		for _, sub := range summary.SubstitutedItems {
			row := []any{sub.OriginalItem.Ingredient, sub.OriginalProduct.Name, "", "", "", sub.Message}
			if sub.Selected != nil {
				row[2] = sub.Selected.Product.Name
				row[3] = string(sub.Selected.Suitability)
				row[4] = sub.Selected.FormWarning
			}
			values = append(values, row)
		}
	}

	if len(summary.FailedItems) > 0 {
		values = append(values, []any{}, []any{"Not Added"}, []any{"Ingredient", "Reason"})
		for _, f := range summary.FailedItems {
			values = append(values, []any{f.Item.Ingredient, f.Reason})
		}
	}

	values = append(values, []any{}, []any{"Fulfillment Options"}, []any{"Type", "Available", "Fee", "Next Window"})
	for _, o := range summary.FulfillmentOptions {
		values = append(values, []any{string(o.Type), o.Available, o.Fee, o.NextWindow})
	}

	return values
}

func appendLines(values [][]any, bucket string, lines []model.CartLineItem) [][]any {
	for _, l := range lines {
		values = append(values, []any{
			bucket,
			l.Item.Ingredient,
			l.Product.Name,
			l.Product.Size,
			l.QuantityToOrder,
			l.Product.Price,
			l.EstimatedCost,
		})
	}
	return values
}

func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, totalRows int) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: 0, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: 2},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true, FontSize: 16}},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: 0, StartRowIndex: 2, EndRowIndex: int64(totalRows), StartColumnIndex: 5, EndColumnIndex: lineColumns},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: "$#,##0.00"}},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{SheetId: 0, Dimension: "COLUMNS", StartIndex: 0, EndIndex: lineColumns},
			},
		},
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return err
}
