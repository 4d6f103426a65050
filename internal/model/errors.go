package model

import "fmt"

// TransportFailure is returned when the fetch capability could not obtain a payload.
// StatusCode is zero for network level failures.
type TransportFailure struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportFailure) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s: transport failure: status %d, body: %s", e.Provider, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: transport failure: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: transport failure: %v", e.Provider, e.Err)
}

func (e *TransportFailure) Unwrap() error { return e.Err }

// Retryable reports whether the request may succeed when repeated.
func (e *TransportFailure) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// UpstreamSchemaError signals a payload whose shape does not match the provider contract.
type UpstreamSchemaError struct {
	Provider string
	Key      string
	Detail   string
}

func (e *UpstreamSchemaError) Error() string {
	msg := fmt.Sprintf("%s: upstream schema error: missing %q", e.Provider, e.Key)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// UpstreamFieldError reports a single field that could not be parsed as a number.
type UpstreamFieldError struct {
	Field string
	Date  string
	Value string
}

func (e *UpstreamFieldError) Error() string {
	return fmt.Sprintf("field %q on %s: not numeric: %q", e.Field, e.Date, e.Value)
}

// DateParseError reports a record whose date could not be read as a calendar date.
type DateParseError struct {
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("parse date %q: %v", e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Key, e.Reason)
}
