package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps network-level failures talking to a provider.
	ErrTransport = errors.New("transport failure")
	// ErrMalformed is returned when a payload cannot be decoded or lacks expected fields.
	ErrMalformed = errors.New("malformed payload")
	// ErrInvalidInput is returned for unusable queries such as empty search text.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a geocoding lookup yields no results.
	ErrNotFound = errors.New("no results")
	// ErrForecastUnsupported is returned when the configured provider has no forecast endpoint.
	ErrForecastUnsupported = errors.New("forecast not supported by provider")
)

// ProviderError is a non-success response reported by a remote provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Describe turns an error into the short text shown to users.
func Describe(err error) string {
	var perr *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &perr):
		if perr.Message != "" {
			return perr.Message
		}
		return fmt.Sprintf("provider returned status %d", perr.StatusCode)
	case errors.Is(err, ErrNotFound):
		return "city not found, try another name"
	case errors.Is(err, ErrMalformed):
		return "provider sent an incomplete response"
	case errors.Is(err, ErrTransport):
		return "remote service unreachable"
	default:
		return err.Error()
	}
}
