package config

import "fmt"

// ConfigurationError reports missing or invalid configuration: an absent
// auth token, an empty category list, a non-positive ceiling.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for building a ConfigurationError.
func Invalid(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
