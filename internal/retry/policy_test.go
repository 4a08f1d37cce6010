package retry_test

import (
	"context"
	"crypto/x509"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwtrevoke/jwtrevoke-go/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{
		RateLimitDelay: 750 * time.Millisecond,
		WaitMin:        100 * time.Millisecond,
		WaitMax:        2 * time.Second,
	}
}

func response(method string, status int) *http.Response {
	req, _ := http.NewRequest(method, "https://api.example.com/api/revocations/list", nil)
	return &http.Response{StatusCode: status, Request: req}
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	netErr := &url.Error{Op: "Get", URL: "https://api.example.com", Err: errors.New("connection refused")}

	tests := []struct {
		name string
		resp *http.Response
		err  error
		want bool
	}{
		{"transport failure", nil, netErr, true},
		{"timeout", nil, &url.Error{Op: "Post", URL: "https://api.example.com", Err: context.DeadlineExceeded}, true},
		{"canceled by caller", nil, &url.Error{Op: "Get", URL: "https://api.example.com", Err: context.Canceled}, false},
		{"untrusted certificate", nil, &url.Error{Op: "Get", URL: "https://api.example.com", Err: x509.UnknownAuthorityError{}}, false},
		{"rate limited GET", response(http.MethodGet, 429), nil, true},
		{"rate limited POST", response(http.MethodPost, 429), nil, true},
		{"server error GET", response(http.MethodGet, 503), nil, true},
		{"server error DELETE", response(http.MethodDelete, 500), nil, true},
		{"server error POST", response(http.MethodPost, 500), nil, false},
		{"bad request", response(http.MethodGet, 400), nil, false},
		{"unauthorized", response(http.MethodGet, 401), nil, false},
		{"forbidden", response(http.MethodDelete, 403), nil, false},
		{"not found", response(http.MethodDelete, 404), nil, false},
		{"success", response(http.MethodGet, 200), nil, false},
	}

	p := testPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := p.ShouldRetry(context.Background(), tt.resp, tt.err)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldRetryStopsWhenContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := testPolicy().ShouldRetry(ctx, response(http.MethodGet, 429), nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	t.Run("rate limit delay is constant", func(t *testing.T) {
		t.Parallel()
		p := testPolicy()
		for attempt := 0; attempt < 10; attempt++ {
			assert.Equal(t, 750*time.Millisecond, p.Delay(attempt, response(http.MethodGet, 429)))
		}
	})

	t.Run("rate limit ignores Retry-After", func(t *testing.T) {
		t.Parallel()
		resp := response(http.MethodGet, 429)
		resp.Header = http.Header{"Retry-After": []string{"120"}}
		assert.Equal(t, 750*time.Millisecond, testPolicy().Delay(0, resp))
	})

	t.Run("exponential growth for other failures", func(t *testing.T) {
		t.Parallel()
		p := testPolicy()
		assert.Equal(t, 100*time.Millisecond, p.Delay(0, nil))
		assert.Equal(t, 200*time.Millisecond, p.Delay(1, nil))
		assert.Equal(t, 400*time.Millisecond, p.Delay(2, response(http.MethodGet, 503)))
		assert.Equal(t, 2*time.Second, p.Delay(10, nil))
		assert.Equal(t, 2*time.Second, p.Delay(5000, nil))
	})

	t.Run("non-decreasing with attempt count", func(t *testing.T) {
		t.Parallel()
		p := testPolicy()
		prev := time.Duration(0)
		for attempt := 0; attempt < 64; attempt++ {
			d := p.Delay(attempt, nil)
			assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
			prev = d
		}
	})
}

func TestIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete} {
		assert.True(t, retry.IsIdempotent(m), m)
	}
	for _, m := range []string{http.MethodPost, http.MethodPatch} {
		assert.False(t, retry.IsIdempotent(m), m)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	c := retryablehttp.NewClient()
	testPolicy().Apply(c, 5)

	assert.Equal(t, 5, c.RetryMax)
	assert.Equal(t, 100*time.Millisecond, c.RetryWaitMin)
	assert.Equal(t, 2*time.Second, c.RetryWaitMax)
	require.NotNil(t, c.CheckRetry)
	require.NotNil(t, c.Backoff)
	require.NotNil(t, c.ErrorHandler)
}
