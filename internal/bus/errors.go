// MoviePulse - Title Trend Scoring Pipeline
// Copyright 2026 MoviePulse contributors
// SPDX-License-Identifier: Apache-2.0

package bus

import "errors"

// The router routes handler failures by their class: permanent failures
// (malformed payloads, invariant violations) go straight to the poison
// topic without burning the retry budget; retryable failures (store, bus
// or network hiccups) are requeued with backoff and dead-lettered only
// after the budget is spent.

// PermanentError marks a message failure that retrying cannot fix.
type PermanentError struct {
	Message string
	Cause   error
}

// NewPermanentError creates a permanent message failure.
func NewPermanentError(message string, cause error) *PermanentError {
	return &PermanentError{Message: message, Cause: cause}
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *PermanentError) Unwrap() error {
	return e.Cause
}

// RetryableError marks a transient message failure worth requeueing.
type RetryableError struct {
	Message string
	Cause   error
}

// NewRetryableError creates a transient message failure.
func NewRetryableError(message string, cause error) *RetryableError {
	return &RetryableError{Message: message, Cause: cause}
}

func (e *RetryableError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *RetryableError) Unwrap() error {
	return e.Cause
}

// IsPermanent reports whether the error chain contains a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
