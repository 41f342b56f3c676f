package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// testEnv is an isolated config file and database for one test.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	dir := t.TempDir()
	cfg := fmt.Sprintf("database:\n  path: %s\nlogging:\n  level: error\n%s",
		filepath.Join(dir, "grocer.db"), extraConfig)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0600))

	return &testEnv{dir: dir, config: path}
}

// run executes the CLI and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile = ""

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// fakeRetailer serves the login flow, catalog search and fulfillment.
func fakeRetailer(t *testing.T, products map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/authn", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"sessionToken":"sess-1","status":"SUCCESS"}`))
	})
	mux.HandleFunc("GET /oauth2/{clientID}/v1/authorize", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "https://www.example.com/#access_token=tok&expires_in=3600&token_type=Bearer")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("GET /api/v2/grocerystore/search", func(w http.ResponseWriter, r *http.Request) {
		body, ok := products[r.URL.Query().Get("q")]
		if !ok {
			body = "[]"
		}
		_, _ = fmt.Fprintf(w, `{"productsInfo":%s}`, body)
	})
	mux.HandleFunc("GET /abs/pub/web/stores/{store}/fulfillment", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"fulfillmentOptions":[{"type":"pickup","available":true,"fee":0,"windows":[{"display":"Tomorrow 9-10am"}]}]}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func retailerConfig(serverURL string) string {
	return fmt.Sprintf(`retailer:
  username: shopper@example.com
  password: hunter2
  store_id: "1234"
  identity_base_url: %s
  catalog_base_url: %s
  min_interval: -1ns
`, serverURL, serverURL)
}
