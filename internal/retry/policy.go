// Package retry implements the retry condition and backoff curve used by the
// revocation client on top of go-retryablehttp.
package retry

import (
	"context"
	"crypto/x509"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Policy holds the knobs of the retry behaviour. It is immutable once built.
type Policy struct {
	RateLimitDelay time.Duration
	WaitMin        time.Duration
	WaitMax        time.Duration
}

// IsIdempotent reports whether method is conventionally safe to repeat.
func IsIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// ShouldRetry decides whether an attempt that ended with resp/err is repeated.
// It has the go-retryablehttp CheckRetry signature and never returns an error,
// so the original failure always reaches the caller unchanged.
func (p Policy) ShouldRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}

	if err != nil {
		return isRetryableTransportError(err), nil
	}
	if resp == nil {
		return false, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}

	if resp.StatusCode >= 500 && resp.StatusCode <= 599 && resp.Request != nil {
		return IsIdempotent(resp.Request.Method), nil
	}

	return false, nil
}

// Backoff returns the wait before retry number attemptNum (0-based).
// Rate-limited responses wait a constant delay; everything else grows
// exponentially between min and max.
func (p Policy) Backoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return p.RateLimitDelay
	}
	return exponential(min, max, attemptNum)
}

// Delay is Backoff bound to the policy's own bounds.
func (p Policy) Delay(attemptNum int, resp *http.Response) time.Duration {
	return p.Backoff(p.WaitMin, p.WaitMax, attemptNum, resp)
}

// Apply installs the policy on a retryablehttp client.
func (p Policy) Apply(c *retryablehttp.Client, maxRetries int) {
	c.RetryMax = maxRetries
	c.RetryWaitMin = p.WaitMin
	c.RetryWaitMax = p.WaitMax
	c.CheckRetry = p.ShouldRetry
	c.Backoff = p.Backoff
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
}

func exponential(min, max time.Duration, attemptNum int) time.Duration {
	if attemptNum < 0 {
		attemptNum = 0
	}
	mult := math.Pow(2, float64(attemptNum))
	sleep := float64(min) * mult
	if sleep > float64(max) || math.IsInf(sleep, 0) {
		return max
	}
	return time.Duration(sleep)
}

func isRetryableTransportError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return false
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return false
	}

	return true
}
