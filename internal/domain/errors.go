package domain

import "errors"

var (
	// ErrValidation marks a rejected input; handlers map it to 400.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing record; handlers map it to 404.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExhausted means every configured mail provider is at its
	// daily quota. Interactive callers surface it as a retry-later
	// condition; scheduled callers log and continue.
	ErrQuotaExhausted = errors.New("all mail providers are at their daily quota")

	// ErrDeliveryFailed means a provider was available but the attempt and
	// its single fallback pass both failed.
	ErrDeliveryFailed = errors.New("mail delivery failed")
)
