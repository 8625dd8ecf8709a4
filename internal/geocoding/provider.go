package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Result is a successful forward or reverse resolution. Raw carries the
// untouched provider payload for traceability.
type Result struct {
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	FormattedAddress string          `json:"formatted_address"`
	Provider         string          `json:"provider"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// Provider is one external geocoding backend. Providers are interchangeable
// and individually unreliable; the orchestrator rotates across them.
//
// A (nil, nil) return means the provider answered but had no match for the
// input; the orchestrator moves on to the next provider.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string, timeout time.Duration) (*Result, error)
	Reverse(ctx context.Context, lat, lng float64, timeout time.Duration) (*Result, error)
}

// TransientError marks a failure worth retrying on another provider or
// attempt: timeouts, rate limiting, 5xx, connection errors. It is consumed
// inside the orchestrator and never surfaces to callers.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("provider %s transient failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ErrUnresolved is the expected negative outcome when every provider across
// every attempt failed or had no match. Callers treat it as a normal result,
// not a crash.
var ErrUnresolved = errors.New("geocoding unresolved: all providers exhausted")

func transient(provider string, err error) *TransientError {
	return &TransientError{Provider: provider, Err: err}
}

// retriableStatus reports whether an HTTP status from a provider should be
// treated as transient.
func retriableStatus(code int) bool {
	return code == 429 || code >= 500
}
