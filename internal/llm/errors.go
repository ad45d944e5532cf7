package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is a configuration error: every send fails until a
	// key is configured.
	ErrMissingAPIKey = errors.New("API key is not set: configure llm.api_key or OPENAI_API_KEY")

	// ErrTimeout is returned when the model call exceeds its deadline.
	ErrTimeout = errors.New("request timed out")
)

// NetworkError wraps a transport failure (DNS, connection refused, reset).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProviderError is a failure reported by the provider, or a response whose
// shape could not be understood.
type ProviderError struct {
	StatusCode int // 0 when the failure did not come with an HTTP status
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error (%d): %s", e.StatusCode, e.Message)
	}
	return "provider error: " + e.Message
}

func malformed(format string, args ...any) *ProviderError {
	return &ProviderError{Message: "malformed response: " + fmt.Sprintf(format, args...)}
}
