package catalog

import (
	"context"
	"net/url"
	"sync"
)

// MockAPI is a scriptable API for tests in this and dependent packages.
type MockAPI struct {
	GetFn   func(ctx context.Context, path string, params url.Values, out any) error
	Store   string
	Calls   []url.Values
	callsMu sync.Mutex
}

var _ API = (*MockAPI)(nil)

// Get records the call and delegates to GetFn.
func (m *MockAPI) Get(ctx context.Context, path string, params url.Values, out any) error {
	m.callsMu.Lock()
	m.Calls = append(m.Calls, params)
	m.callsMu.Unlock()
	if m.GetFn != nil {
		return m.GetFn(ctx, path, params, out)
	}
	return nil
}

// StoreID returns the configured store.
func (m *MockAPI) StoreID() string {
	if m.Store == "" {
		return "0001"
	}
	return m.Store
}

// CallCount returns how many calls were made.
func (m *MockAPI) CallCount() int {
	m.callsMu.Lock()
	defer m.callsMu.Unlock()
	return len(m.Calls)
}

// SearchResults returns a GetFn that answers every search with entries.
func SearchResults(entries ...map[string]any) func(context.Context, string, url.Values, any) error {
	return func(_ context.Context, _ string, _ url.Values, out any) error {
		resp, ok := out.(*searchResponse)
		if !ok {
			return nil
		}
		resp.ProductsInfo = entries
		return nil
	}
}
