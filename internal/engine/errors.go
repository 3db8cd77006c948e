package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL marks input that is not a supported video URL.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrInvalidInput marks a request that fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotConfigured marks a provider whose credentials are missing.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrNoTranscript marks a stage that returned nothing usable.
	ErrNoTranscript = errors.New("no transcript")
)

// UpstreamError is a non-2xx answer from a third-party provider.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Body)
}
