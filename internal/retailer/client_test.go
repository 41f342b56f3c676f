package retailer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/grocer/internal/common"
)

// fakeRetailer serves both the identity and catalog endpoints.
type fakeRetailer struct {
	catalog      http.HandlerFunc
	redirect     string
	authnStatus  int
	authnBody    string
	authnCalls   atomic.Int32
	authzCalls   atomic.Int32
	catalogCalls atomic.Int32
}

func (f *fakeRetailer) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/authn", func(w http.ResponseWriter, r *http.Request) {
		f.authnCalls.Add(1)
		var body authnRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("authn body: %v", err)
		}
		if f.authnStatus != 0 {
			w.WriteHeader(f.authnStatus)
			return
		}
		if f.authnBody != "" {
			_, _ = w.Write([]byte(f.authnBody))
			return
		}
		_, _ = w.Write([]byte(`{"sessionToken":"sess-123","status":"SUCCESS"}`))
	})
	mux.HandleFunc("GET /oauth2/{clientID}/v1/authorize", func(w http.ResponseWriter, r *http.Request) {
		f.authzCalls.Add(1)
		q := r.URL.Query()
		if q.Get("sessionToken") != "sess-123" || q.Get("response_type") != "token" {
			t.Errorf("unexpected authorize query: %s", r.URL.RawQuery)
		}
		location := f.redirect
		if location == "" {
			location = fmt.Sprintf("https://www.example.com/#access_token=tok-%d&expires_in=3600&token_type=Bearer", f.authzCalls.Load())
		}
		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.catalogCalls.Add(1)
		if f.catalog != nil {
			f.catalog(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeRetailer) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Username:        "shopper@example.com",
		Password:        "hunter2",
		StoreID:         "1234",
		IdentityBaseURL: server.URL,
		CatalogBaseURL:  server.URL,
		HTTPClient:      server.Client(),
		MinInterval:     -1,
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing username", Config{Password: "p", StoreID: "1"}},
		{"missing password", Config{Username: "u", StoreID: "1"}},
		{"missing store", Config{Username: "u", Password: "p"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			assert.ErrorIs(t, err, common.ErrMissingConfig)
		})
	}
}

func TestClient_Authenticate(t *testing.T) {
	f := &fakeRetailer{}
	client, _ := newTestClient(t, f)

	assert.False(t, client.IsAuthenticated())
	require.NoError(t, client.Authenticate(context.Background()))
	assert.True(t, client.IsAuthenticated())
	assert.Equal(t, "tok-1", client.token.AccessToken)
	assert.Equal(t, "1234", client.StoreID())
	assert.Equal(t, int32(1), f.authnCalls.Load())
	assert.Equal(t, int32(1), f.authzCalls.Load())
}

func TestClient_AuthenticateFailures(t *testing.T) {
	tests := []struct {
		name       string
		fake       *fakeRetailer
		wantReason string
	}{
		{
			name:       "credentials rejected",
			fake:       &fakeRetailer{authnStatus: http.StatusUnauthorized},
			wantReason: "credentials rejected",
		},
		{
			name:       "no session token",
			fake:       &fakeRetailer{authnBody: `{"status":"LOCKED_OUT"}`},
			wantReason: "status=LOCKED_OUT",
		},
		{
			name:       "redirect without fragment",
			fake:       &fakeRetailer{redirect: "https://www.example.com/?error=denied"},
			wantReason: "no fragment",
		},
		{
			name:       "fragment without token",
			fake:       &fakeRetailer{redirect: "https://www.example.com/#expires_in=3600"},
			wantReason: "no access_token",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.fake)
			err := client.Authenticate(context.Background())
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Contains(t, authErr.Error(), tt.wantReason)
			assert.False(t, client.IsAuthenticated())
		})
	}
}

func TestClient_GetAuthenticatesLazily(t *testing.T) {
	f := &fakeRetailer{
		catalog: func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.Equal(t, "milk", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"value":42}`))
		},
	}
	client, _ := newTestClient(t, f)

	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, client.Get(context.Background(), "/search", url.Values{"q": {"milk"}}, &out))
	assert.Equal(t, 42, out.Value)

	require.NoError(t, client.Get(context.Background(), "/search", url.Values{"q": {"milk"}}, &out))
	assert.Equal(t, int32(1), f.authnCalls.Load(), "token should be reused")
}

func TestClient_RetriesOnceAfter401(t *testing.T) {
	f := &fakeRetailer{}
	f.catalog = func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
	client, _ := newTestClient(t, f)

	require.NoError(t, client.Get(context.Background(), "/thing", nil, nil))
	assert.Equal(t, int32(2), f.authnCalls.Load())
	assert.Equal(t, int32(2), f.catalogCalls.Load())
}

func TestClient_SecondUnauthorizedIsAPIError(t *testing.T) {
	f := &fakeRetailer{catalog: func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}}
	client, _ := newTestClient(t, f)

	err := client.Get(context.Background(), "/thing", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(2), f.catalogCalls.Load(), "exactly one retry")
	assert.Equal(t, int32(2), f.authnCalls.Load())
}

func TestClient_HTTPErrors(t *testing.T) {
	f := &fakeRetailer{catalog: func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}}
	client, _ := newTestClient(t, f)

	err := client.Post(context.Background(), "/cart", map[string]string{"a": "b"}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, http.MethodPost, apiErr.Method)
	assert.Contains(t, apiErr.Body, "boom")
	assert.Equal(t, int32(1), f.catalogCalls.Load(), "no retry for non-401 errors")
}

func TestClient_InvalidJSON(t *testing.T) {
	f := &fakeRetailer{catalog: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}}
	client, _ := newTestClient(t, f)

	var out map[string]any
	err := client.Get(context.Background(), "/thing", nil, &out)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)
}

func TestClient_TransportError(t *testing.T) {
	f := &fakeRetailer{}
	client, server := newTestClient(t, f)
	require.NoError(t, client.Authenticate(context.Background()))
	server.Close()

	err := client.Get(context.Background(), "/thing", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)
}

func TestClient_ReauthenticatesNearExpiry(t *testing.T) {
	f := &fakeRetailer{}
	client, _ := newTestClient(t, f)

	now := time.Now()
	client.cfg.Now = func() time.Time { return now }
	require.NoError(t, client.Authenticate(context.Background()))

	// 56 minutes later the hour-long token is inside the refresh buffer.
	now = now.Add(56 * time.Minute)
	assert.False(t, client.IsAuthenticated())

	require.NoError(t, client.Get(context.Background(), "/thing", nil, nil))
	assert.Equal(t, int32(2), f.authnCalls.Load())
}

func TestClient_CancelledContext(t *testing.T) {
	f := &fakeRetailer{}
	server := httptest.NewServer(f.handler(t))
	defer server.Close()

	client, err := NewClient(Config{
		Username: "u", Password: "p", StoreID: "1",
		IdentityBaseURL: server.URL, CatalogBaseURL: server.URL,
		HTTPClient: server.Client(), MinInterval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The first call passes the gate; the second would wait an hour.
	err = client.Authenticate(ctx)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "authorize", authErr.Step)
	assert.Equal(t, int32(1), f.authnCalls.Load())
	assert.Zero(t, f.authzCalls.Load())
}
