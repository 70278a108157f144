package source

import (
	"context"
	"errors"
	"fmt"
)

// TransportError reports a failed request to a backend: the connection
// failed or the backend answered with a non-success status. The page cache is
// left untouched and the next poll tick retries.
type TransportError struct {
	Op     string
	URL    string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError reports a backend response that failed validation. The whole
// page is rejected.
type SchemaError struct {
	Field string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid response: %v", e.Err)
	}
	return fmt.Sprintf("invalid response: %s: %v", e.Field, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsCancellation reports whether err came from a cancelled fetch.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsSchema reports whether err is a SchemaError.
func IsSchema(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
