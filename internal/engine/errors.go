package engine

import "fmt"

// ConfigError reports a malformed scenario or policy. It is detected before
// any simulation runs and names the offending field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NumericError reports a NaN or infinite value produced mid-simulation.
// It aborts the whole run: a non-finite value means the configuration or
// the engine is defective, never a valid random outcome.
type NumericError struct {
	Path   int
	Year   int
	Metric string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("non-finite value for %s in path %d, year %d", e.Metric, e.Path, e.Year)
}
