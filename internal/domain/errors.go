package domain

import "fmt"

// ConfigurationError indicates a structural problem with the run setup:
// an unknown tax regime, a malformed historical series, an unsupported
// market model selector, or a tax pack missing a required lookup key.
// It is fatal for the run and names the offending field.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Msg)
}

// NewConfigurationError creates a ConfigurationError for the given field.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// InvalidParameterError indicates an out-of-domain numeric input such as a
// non-positive withdrawal rate or a zero horizon. The caller can recover by
// supplying corrected input; values are never silently clamped.
type InvalidParameterError struct {
	Param string
	Msg   string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Msg)
}

// NewInvalidParameterError creates an InvalidParameterError for the given parameter.
func NewInvalidParameterError(param, format string, args ...any) *InvalidParameterError {
	return &InvalidParameterError{Param: param, Msg: fmt.Sprintf(format, args...)}
}

// InsufficientDataError indicates that the requested backtest horizon is
// longer than the available historical span.
type InsufficientDataError struct {
	NeededPeriods    int
	AvailablePeriods int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient historical data: horizon needs %d periods but only %d are available; reduce the horizon or switch market model",
		e.NeededPeriods, e.AvailablePeriods)
}
