package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/grocer/internal/model"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid oauth config",
			config: Config{ClientID: "c", ClientSecret: "s", RefreshToken: "r", SpreadsheetName: "Cart"},
		},
		{
			name:   "valid service account config",
			config: Config{ServiceAccountPath: "/path/to/key.json", SpreadsheetID: "abc"},
		},
		{
			name:    "missing auth",
			config:  Config{SpreadsheetName: "Cart"},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name:    "partial oauth",
			config:  Config{ClientID: "c", ClientSecret: "s", SpreadsheetName: "Cart"},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name:    "multiple auth methods",
			config:  Config{ClientID: "c", ClientSecret: "s", RefreshToken: "r", ServiceAccountPath: "/k.json", SpreadsheetName: "Cart"},
			wantErr: true,
			errMsg:  "multiple authentication methods configured",
		},
		{
			name:    "no target spreadsheet",
			config:  Config{ServiceAccountPath: "/k.json"},
			wantErr: true,
			errMsg:  "spreadsheet",
		},
		{
			name:    "negative retries",
			config:  Config{ServiceAccountPath: "/k.json", SpreadsheetID: "abc", RetryAttempts: -1},
			wantErr: true,
			errMsg:  "retry attempts cannot be negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func sampleSummary() *model.CartSummary {
	delivery := model.FulfillmentOption{Type: model.FulfillmentDelivery, Available: true, Fee: 9.95, NextWindow: "Tomorrow 9-11am"}
	return &model.CartSummary{
		RunID: "run-1",
		Items: []model.CartLineItem{{
			Item:            model.RequestedItem{Ingredient: "milk"},
			Product:         model.CatalogProduct{Name: "Lucerne Milk", Size: "1 gal", Price: 4.99},
			QuantityToOrder: 1,
			EstimatedCost:   4.99,
		}},
		RestockItems: []model.CartLineItem{{
			Item:            model.RequestedItem{Ingredient: "flour"},
			Product:         model.CatalogProduct{Name: "Gold Medal", Size: "5 lb", Price: 4},
			QuantityToOrder: 2,
			EstimatedCost:   8,
		}},
		SubstitutedItems: []model.SubstitutionResult{{
			OriginalItem:    model.RequestedItem{Ingredient: "butter"},
			OriginalProduct: model.CatalogProduct{Name: "Kerrygold"},
			Message:         "Found 1 alternative(s)",
			Selected: &model.SubstitutionOption{
				Product:     model.CatalogProduct{Name: "Tillamook"},
				Suitability: model.SuitabilityGood,
			},
		}},
		FailedItems:        []model.FailedItem{{Item: model.RequestedItem{Ingredient: "saffron"}, Reason: "No products available"}},
		FulfillmentOptions: []model.FulfillmentOption{delivery},
		RecommendedOption:  delivery,
		Subtotal:           12.99,
		EstimatedTotal:     22.94,
	}
}

func TestCartRows(t *testing.T) {
	rows := CartRows(sampleSummary())

	find := func(first string) []any {
		for _, r := range rows {
			if len(r) > 0 && r[0] == first {
				return r
			}
		}
		return nil
	}

	assert.Equal(t, []any{"Grocery Cart", "run-1"}, rows[0])
	assert.Equal(t, []any{"Estimated Total", 22.94}, find("Estimated Total"))
	assert.Equal(t, []any{"list", "milk", "Lucerne Milk", "1 gal", 1, 4.99, 4.99}, find("list"))
	assert.Equal(t, []any{"restock", "flour", "Gold Medal", "5 lb", 2, 4.0, 8.0}, find("restock"))
	assert.Equal(t, []any{"butter", "Kerrygold", "Tillamook", "good", "", "Found 1 alternative(s)"}, find("butter"))
	assert.Equal(t, []any{"saffron", "No products available"}, find("saffron"))
	assert.Equal(t, []any{"delivery", true, 9.95, "Tomorrow 9-11am"}, find("delivery"))
}

func TestCartRows_OmitsEmptySections(t *testing.T) {
	rows := CartRows(&model.CartSummary{RunID: "r"})
	for _, r := range rows {
		if len(r) > 0 {
			assert.NotEqual(t, "Substitutions", r[0])
			assert.NotEqual(t, "Not Added", r[0])
		}
	}
}

// fakeSheetsAPI records the calls the writer makes.
type fakeSheetsAPI struct {
	mu       sync.Mutex
	calls    []string
	updates  []sheets.ValueRange
	failGets int
	status   int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v4/spreadsheets":
		_, _ = w.Write([]byte(`{"spreadsheetId":"new-sheet","spreadsheetUrl":"https://example.com/new-sheet"}`))
	case r.Method == http.MethodGet && f.failGets > 0:
		f.failGets--
		w.WriteHeader(f.status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s"}}`, f.status, http.StatusText(f.status))
	case r.Method == http.MethodPut:
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.updates = append(f.updates, vr)
		_, _ = w.Write([]byte(`{}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, cfg Config) *Writer {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)
	return newWriterWithService(srv, cfg, nil)
}

func TestWriter_ExportCreatesSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{}
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	w := newTestWriter(t, api, cfg)

	id, err := w.Export(context.Background(), sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, "new-sheet", id)

	require.Len(t, api.updates, 1)
	assert.Equal(t, "Grocery Cart", api.updates[0].Values[0][0])

	joined := strings.Join(api.calls, "\n")
	assert.Contains(t, joined, "POST /v4/spreadsheets\n")
	assert.Contains(t, joined, "/v4/spreadsheets/new-sheet/values/A:Z:clear")
	assert.Contains(t, joined, "POST /v4/spreadsheets/new-sheet:batchUpdate")
}

func TestWriter_ExportRetriesServerErrors(t *testing.T) {
	api := &fakeSheetsAPI{failGets: 1, status: http.StatusServiceUnavailable}
	w := newTestWriter(t, api, Config{SpreadsheetID: "existing", RetryAttempts: 3, RetryDelay: time.Millisecond})

	id, err := w.Export(context.Background(), sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, "existing", id)
	assert.Len(t, api.updates, 1)
}

func TestWriter_ExportDoesNotRetryClientErrors(t *testing.T) {
	api := &fakeSheetsAPI{failGets: 5, status: http.StatusForbidden}
	w := newTestWriter(t, api, Config{SpreadsheetID: "locked", RetryAttempts: 3, RetryDelay: time.Millisecond})

	_, err := w.Export(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Equal(t, 4, api.failGets, "only one attempt for a 403")
	assert.Empty(t, api.updates)
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, token))
	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "r", loaded.RefreshToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
