package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies completion failures. Timeout and RateLimited are transient
// and may be retried by the caller; ProviderError and InvalidResponse are not.
type Kind string

const (
	KindTimeout         Kind = "timeout"
	KindRateLimited     Kind = "rate_limited"
	KindProviderError   Kind = "provider_error"
	KindInvalidResponse Kind = "invalid_response"
)

type Error struct {
	Kind   Kind
	Status int
	Msg    string
	Err    error

	// RetryAfter carries the provider's Retry-After hint on rate limits;
	// zero means the provider gave none.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("completion %s: %s", e.Kind, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("completion %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatusCode() int { return e.Status }

// IsTransient reports whether err is a completion error worth retrying.
func IsTransient(err error) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == KindTimeout || ce.Kind == KindRateLimited
}

func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindProviderError
}

// RetryAfterOf extracts the provider's backoff hint from err, or zero.
func RetryAfterOf(err error) time.Duration {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.RetryAfter
	}
	return 0
}

type Options struct {
	MaxTokens   int
	Temperature float32
}

// Client is the single outbound contract of the simulation pipeline: one
// prompt in, one completion out. Implementations make exactly one provider
// call per invocation; retry policy belongs to the caller.
type Client interface {
	Complete(ctx context.Context, system, user string, opts Options) (string, error)
	Model() string
}
