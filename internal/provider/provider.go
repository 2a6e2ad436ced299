package provider

import "context"

// FieldMap is the raw field-name -> value mapping the provider returns for
// one symbol within one module. Values are whatever the JSON decoder
// produced: float64, string, bool, or a nested map such as {"raw": ..., "fmt": ...}.
// A FieldMap is never mutated after it leaves the client.
type FieldMap map[string]any

// ModuleResponse is the result of querying one named module for one batch of
// symbols. It is wholly a success mapping or wholly a failure: a symbol
// missing from a successful mapping is a partial miss resolved at merge time,
// not a failure here.
type ModuleResponse struct {
	// Symbols maps symbol -> FieldMap on success. Nil on failure.
	Symbols map[string]FieldMap

	// Err carries the human-readable cause when the module call failed
	// (non-mapping payload, transport error, provider error string).
	Err string
}

// Failed reports whether the response is a failure marker.
func (r ModuleResponse) Failed() bool {
	return r.Symbols == nil
}

// ModuleResult is one module's responses merged across all batches of a run.
// Failure stays scoped to the batch it happened in: symbols from batches that
// succeeded keep their field maps, symbols from batches that failed are
// recorded in Failed with the last-seen cause.
type ModuleResult struct {
	Symbols map[string]FieldMap
	Failed  map[string]string
}

// FailureFor returns the failure cause recorded for a symbol's batch, if any.
func (m ModuleResult) FailureFor(symbol string) (string, bool) {
	cause, ok := m.Failed[symbol]
	return cause, ok
}

// Client is the quote provider contract the batch fetcher depends on. One
// call covers one batch of symbols and any number of named modules; each
// module comes back independently as a mapping or a failure marker. The
// returned error indicates the whole call failed (transport, bad status) and
// stands in for a failure of every requested module.
type Client interface {
	FetchModules(ctx context.Context, symbols []string, modules []string) (map[string]ModuleResponse, error)
}
