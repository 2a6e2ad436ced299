package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"
)

// QuoteClient talks to the quote provider's batch endpoint. The endpoint
// returns one JSON object keyed by module name; each module value is either
// an object keyed by symbol or an error payload (string, null, or an object
// with an "error" member). Classification into ModuleResponse happens here so
// everything past this boundary works with trusted types.
type QuoteClient struct {
	client *resty.Client
}

// NewQuoteClient creates a client for the given base URL.
func NewQuoteClient(baseURL string) *QuoteClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "quotesheet/1.0")

	return &QuoteClient{client: client}
}

// SetTimeout bounds each provider round trip.
func (c *QuoteClient) SetTimeout(d time.Duration) *QuoteClient {
	c.client.SetTimeout(d)
	return c
}

// FetchModules requests the named modules for one batch of symbols.
func (c *QuoteClient) FetchModules(ctx context.Context, symbols []string, modules []string) (map[string]ModuleResponse, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbols": strings.Join(symbols, ","),
			"modules": strings.Join(modules, ","),
		}).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("quote provider returned status %d", resp.StatusCode())
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(resp.Bytes(), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	out := make(map[string]ModuleResponse, len(modules))
	for _, module := range modules {
		raw, ok := payload[module]
		if !ok {
			out[module] = ModuleResponse{Err: fmt.Sprintf("module %q absent from response", module)}
			continue
		}
		out[module] = classify(raw)
	}
	return out, nil
}

// classify turns one module's raw payload into a success mapping or a failure
// marker. Providers are known to substitute an error string (or null) for the
// per-symbol object when a module is briefly unavailable.
func classify(raw json.RawMessage) ModuleResponse {
	var symbols map[string]FieldMap
	if err := json.Unmarshal(raw, &symbols); err == nil && symbols != nil {
		if cause, ok := errorPayload(symbols); ok {
			return ModuleResponse{Err: truncate(cause, 120)}
		}
		return ModuleResponse{Symbols: symbols}
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil && msg != "" {
		return ModuleResponse{Err: truncate(msg, 120)}
	}
	return ModuleResponse{Err: truncate(string(raw), 120)}
}

// errorPayload detects the object-shaped error marker: a mapping whose only
// key is "error". It decodes as a symbol mapping, so it must be caught before
// the mapping is accepted; a real symbol happening to sit next to other
// symbols is never mistaken for it.
func errorPayload(symbols map[string]FieldMap) (string, bool) {
	if len(symbols) != 1 {
		return "", false
	}
	fields, ok := symbols["error"]
	if !ok {
		return "", false
	}
	for _, key := range []string{"description", "message", "code"} {
		if s, ok := fields[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "provider error", true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
