package testutil

import (
	"context"
	"sync"

	"quotesheet/internal/provider"
)

// MockClient is a function-field implementation of provider.Client for tests.
type MockClient struct {
	FetchModulesFunc func(ctx context.Context, symbols []string, modules []string) (map[string]provider.ModuleResponse, error)

	mu    sync.Mutex
	calls int
}

// FetchModules implements the provider.Client interface.
func (m *MockClient) FetchModules(ctx context.Context, symbols []string, modules []string) (map[string]provider.ModuleResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.FetchModulesFunc != nil {
		return m.FetchModulesFunc(ctx, symbols, modules)
	}
	return map[string]provider.ModuleResponse{}, nil
}

// Calls reports how many times FetchModules ran, for retry assertions.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockScraper is a function-field implementation of the enrich Scraper.
type MockScraper struct {
	FetchSingleFunc func(ctx context.Context, symbol string) (map[string]string, error)

	mu    sync.Mutex
	calls int
}

// FetchSingle implements the enrich.Scraper interface.
func (m *MockScraper) FetchSingle(ctx context.Context, symbol string) (map[string]string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.FetchSingleFunc != nil {
		return m.FetchSingleFunc(ctx, symbol)
	}
	return map[string]string{}, nil
}

// Calls reports how many times FetchSingle ran.
func (m *MockScraper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Modules returns a success ModuleResponse mapping each symbol to its fields.
func Modules(symbols map[string]provider.FieldMap) provider.ModuleResponse {
	return provider.ModuleResponse{Symbols: symbols}
}

// Failure returns a failure ModuleResponse with the given cause.
func Failure(cause string) provider.ModuleResponse {
	return provider.ModuleResponse{Err: cause}
}
