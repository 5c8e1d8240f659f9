package openai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies provider failures so callers branch on type instead of
// matching substrings of a particular provider's wording.
type ErrorKind int

const (
	// KindOther covers failures with no special handling.
	KindOther ErrorKind = iota
	// KindTooLarge marks payload-size rejections. Retrying cannot succeed.
	KindTooLarge
	// KindRateLimited marks 429 responses. Safe to retry after a backoff.
	KindRateLimited
)

// APIError is a classified provider error.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindTooLarge:
		return fmt.Sprintf("openai: payload too large (status %d): %s", e.StatusCode, e.Message)
	case KindRateLimited:
		return fmt.Sprintf("openai: rate limited (status %d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("openai: request failed (status %d): %s", e.StatusCode, e.Message)
	}
}

// IsTooLarge reports whether err is a payload-size rejection.
func IsTooLarge(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindTooLarge
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited
}

// classify maps a non-2xx response to an APIError. The provider reports size
// rejections inconsistently (413 for some endpoints, 400 with prose for
// others), so the body text is inspected as a fallback.
func classify(status int, body string) *APIError {
	kind := KindOther
	lower := strings.ToLower(body)
	switch {
	case status == 429 || strings.Contains(lower, "rate limit"):
		kind = KindRateLimited
	case status == 413,
		strings.Contains(lower, "file too large"),
		strings.Contains(lower, "size limit"),
		strings.Contains(lower, "maximum content size") && strings.Contains(body, "25"):
		kind = KindTooLarge
	}
	return &APIError{Kind: kind, StatusCode: status, Message: strings.TrimSpace(body)}
}
