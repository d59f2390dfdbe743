package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when request parameters are invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCodeNotFound is returned when a tariff code does not exist in the HTS schedule
	ErrCodeNotFound = errors.New("tariff code not found in HTS schedule")

	// ErrUpstreamUnreachable is returned on timeouts and connection errors
	ErrUpstreamUnreachable = errors.New("HTS API unreachable")

	// ErrUpstreamBlocked is returned when the HTS API answers 403
	ErrUpstreamBlocked = errors.New("HTS API blocked the request (403)")

	// ErrUpstreamStatus is returned for any other non-2xx status from the HTS API
	ErrUpstreamStatus = errors.New("HTS API returned an error status")

	// ErrUpstreamMalformed is returned when the HTS API body is not usable JSON
	ErrUpstreamMalformed = errors.New("HTS API returned a malformed response")

	// ErrCacheMiss is returned when a rate is absent from the cache or stale
	ErrCacheMiss = errors.New("cache miss")
)

// UpstreamStatusError carries the status code of a failed HTS API call.
type UpstreamStatusError struct {
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("HTS API status %d", e.StatusCode)
}

func (e *UpstreamStatusError) Unwrap() error {
	return ErrUpstreamStatus
}

// IsUpstreamFailure reports whether err belongs to the upstream (502) class.
func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrUpstreamUnreachable) ||
		errors.Is(err, ErrUpstreamBlocked) ||
		errors.Is(err, ErrUpstreamStatus) ||
		errors.Is(err, ErrUpstreamMalformed)
}
