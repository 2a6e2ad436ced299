package tabular

import "fmt"

// ConfigurationError means a required input table or column is absent. It is
// fatal: the run aborts before any fetch happens.
type ConfigurationError struct {
	Table  string
	Column string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("table %q has no column %q", e.Table, e.Column)
	}
	if e.Cause != nil {
		return fmt.Sprintf("table %q not available: %v", e.Table, e.Cause)
	}
	return fmt.Sprintf("table %q not available", e.Table)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// WriteError means persisting the output table failed. It is fatal and
// surfaced with full context: a silently lost run defeats the purpose.
type WriteError struct {
	Table string
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write table %q to %s: %v", e.Table, e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
