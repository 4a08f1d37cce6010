// Package jwtrevoke provides a client SDK for the JWT revocation API
package jwtrevoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/jwtrevoke/jwtrevoke-go/internal/retry"
	"github.com/jwtrevoke/jwtrevoke-go/pkg/jwt"
	"github.com/jwtrevoke/jwtrevoke-go/pkg/types"
)

// API paths
const (
	pathList   = "/api/revocations/list"
	pathRevoke = "/api/revocations/revoke"
	pathDelete = "/api/revocations/"
)

// ClaimsRevocationTTL is how long a revocation built from claims without an
// exp claim is kept by the server
const ClaimsRevocationTTL = 30 * 24 * time.Hour

// Client represents the JWT revocation client.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	cfg        Config
	httpClient *retryablehttp.Client
	logger     *slog.Logger
	metrics    *metrics
}

type operationKey struct{}

// NewClient creates a new client authenticated with apiKey.
// An empty API key is rejected with ErrMissingAPIKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	return NewClientFromConfig(DefaultConfig(apiKey), opts...)
}

// NewClientFromEnv creates a new client configured from JWT_REVOKE_* environment variables
// (and a .env file, if any). Options override values read from the environment.
func NewClientFromEnv(opts ...Option) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeConfigurationError, "failed to load configuration", err.Error())
	}
	return NewClientFromConfig(cfg, opts...)
}

// NewClientFromConfig creates a new client from an explicit configuration
func NewClientFromConfig(cfg Config, opts ...Option) (*Client, error) {
	s := &settings{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.cfg.validate(); err != nil {
		return nil, err
	}

	m, err := newMetrics(s.registerer)
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeConfigurationError, "failed to register metrics", err.Error())
	}

	// Create HTTP client with its own pool; a caller-supplied one is copied, not modified
	var httpClient *http.Client
	if s.httpClient != nil {
		copied := *s.httpClient
		httpClient = &copied
	} else {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	httpClient.Timeout = s.cfg.Timeout

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.Logger = nil
	if s.logger != nil {
		rc.Logger = s.logger
	}

	policy := retry.Policy{
		RateLimitDelay: s.cfg.RateLimitRetryDelay,
		WaitMin:        s.cfg.RetryWaitMin,
		WaitMax:        s.cfg.RetryWaitMax,
	}
	policy.Apply(rc, s.cfg.MaxRetries)

	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt == 0 {
			return
		}
		op, _ := req.Context().Value(operationKey{}).(string)
		m.retried(op)
	}

	logger := s.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		cfg:        s.cfg,
		httpClient: rc,
		logger:     logger,
		metrics:    m,
	}, nil
}

// Config returns a copy of the configuration the client is bound to
func (c *Client) Config() Config {
	return c.cfg
}

// ListRevokedTokens returns every revocation known to the API
func (c *Client) ListRevokedTokens(ctx context.Context) ([]RevocationRecord, error) {
	status, body, err := c.do(ctx, opList, http.MethodGet, pathList, nil)
	if err != nil {
		return nil, err
	}

	var records []RevocationRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, decodeError(status, body, err)
	}
	if records == nil {
		records = []RevocationRecord{}
	}

	return records, nil
}

// RevokeToken revokes the token identified by jwtID.
// expiryDate tells the server when the revocation record itself may be purged.
func (c *Client) RevokeToken(ctx context.Context, jwtID, reason string, expiryDate time.Time) (RevocationRecord, error) {
	return c.Revoke(ctx, RevocationRequest{
		JwtID:      jwtID,
		Reason:     reason,
		ExpiryDate: expiryDate,
	})
}

// Revoke sends a prepared revocation request as-is
func (c *Client) Revoke(ctx context.Context, req RevocationRequest) (RevocationRecord, error) {
	status, body, err := c.do(ctx, opRevoke, http.MethodPost, pathRevoke, &req)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var record RevocationRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, decodeError(status, body, err)
	}

	return record, nil
}

// RevokeClaims revokes the token the already-parsed claims belong to.
// The jti claim is required; the revocation expires with the token's exp claim,
// or after ClaimsRevocationTTL when the token has none.
func (c *Client) RevokeClaims(ctx context.Context, claims gojwt.Claims, reason string) (RevocationRecord, error) {
	req, err := jwt.RequestFromClaims(claims, reason, ClaimsRevocationTTL)
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeValidationError, "cannot build revocation from claims", err.Error())
	}
	return c.Revoke(ctx, *req)
}

// DeleteRevokedToken removes the revocation of jwtID. Any response body is discarded.
func (c *Client) DeleteRevokedToken(ctx context.Context, jwtID string) error {
	if jwtID == "" {
		return NewClientError(ErrCodeValidationError, "jwtId is required")
	}

	_, _, err := c.do(ctx, opDelete, http.MethodDelete, pathDelete+url.PathEscape(jwtID), nil)
	return err
}

// do performs an authenticated request with retries and returns the status and
// body of a 2xx response. Non-2xx responses come back as *ClientError; failures
// without a response are returned unmodified.
func (c *Client) do(ctx context.Context, op, method, path string, body interface{}) (status int, respBody []byte, err error) {
	start := time.Now()
	defer func() {
		if cerr := GetClientError(err); cerr != nil && status == 0 {
			status = cerr.Status
		}
		c.metrics.observe(op, status, err, start)
		if err != nil {
			c.logger.WarnContext(ctx, "revocation API call failed",
				slog.String("operation", op),
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Any("error", err))
		}
	}()

	// Prepare request body if provided
	var reqBody interface{}
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = jsonBody
	}

	ctx = context.WithValue(ctx, operationKey{}, op)
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	// Set headers
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		if !isSuccess(resp.StatusCode) {
			// A status was received, so this is still an API error
			return resp.StatusCode, nil, &ClientError{
				Code:    ErrCodeHTTPError,
				Message: DefaultErrorMessage,
				Details: err.Error(),
				Status:  resp.StatusCode,
				Data:    rawBody(respBody),
			}
		}
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := normalizeResponse(resp.StatusCode, respBody); err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, respBody, nil
}

// normalizeResponse turns a non-2xx response into a *ClientError carrying the
// server's message (or DefaultErrorMessage), the status and the raw body.
func normalizeResponse(status int, body []byte) error {
	if isSuccess(status) {
		return nil
	}

	message := DefaultErrorMessage
	var errResp types.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		message = errResp.Message
	}

	return &ClientError{
		Code:    ErrCodeHTTPError,
		Message: message,
		Status:  status,
		Data:    rawBody(body),
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

func decodeError(status int, body []byte, err error) error {
	return &ClientError{
		Code:    ErrCodeDecodeError,
		Message: "failed to decode response",
		Details: err.Error(),
		Status:  status,
		Data:    rawBody(body),
	}
}

func rawBody(body []byte) json.RawMessage {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.RawMessage(body)
}
