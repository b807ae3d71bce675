package fitapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/auth"
	"github.com/angelmondragon/fitconnect-client/pkg/logger"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout             = 15 * time.Second
	defaultBreakerFailures     = 5
	defaultBreakerOpenTimeout  = 30 * time.Second
	responseBodyReadLimit      = 1 << 20
	errorBodyReadLimit   int64 = 4096

	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

var errBaseURLRequired = errors.New("fitconnect api base url is required")

// rawResponse is what crosses the circuit breaker: status and body, already read.
type rawResponse struct {
	status int
	body   []byte
}

// serverError marks 5xx answers so the breaker counts them as failures.
type serverError struct {
	status int
	body   []byte
}

func (e *serverError) Error() string {
	return fmt.Sprintf("status %d", e.status)
}

// Client talks to the marketplace REST service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logg       *logger.Logger
	breaker    *gobreaker.CircuitBreaker[*rawResponse]
	newID      func() string

	breakerFailures uint32
	breakerTimeout  time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default instrumented HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithLogger attaches a logger for per-request debug lines.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// WithTimeout overrides the HTTP timeout of the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithBreaker tunes how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		if maxFailures > 0 {
			c.breakerFailures = maxFailures
		}
		if openTimeout > 0 {
			c.breakerTimeout = openTimeout
		}
	}
}

// WithIDGenerator replaces the uuid generator used for request ids and idempotency keys.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewClient builds the marketplace client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logg:            logger.Nop(),
		newID:           uuid.NewString,
		breakerFailures: defaultBreakerFailures,
		breakerTimeout:  defaultBreakerOpenTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	failures := client.breakerFailures
	client.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:    "fitconnect-api",
		Timeout: client.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})

	return client, nil
}

type requestOptions struct {
	idempotencyKey string
}

func (c *Client) do(ctx context.Context, operation, method, path string, body any, out any, reqOpts requestOptions) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "fitconnect api client not configured")
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+operation+" request")
		}
		payload = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+operation+" request")
	}
	requestID := c.newID()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(headerRequestID, requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if header := auth.AuthorizationHeader(c.token); header != "" {
		httpReq.Header.Set("Authorization", header)
	}
	if reqOpts.idempotencyKey != "" {
		httpReq.Header.Set(headerIdempotencyKey, reqOpts.idempotencyKey)
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"request_id": requestID,
		"operation":  operation,
		"method":     method,
		"path":       path,
	})

	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer func() { _ = httpResp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(httpResp.Body, responseBodyReadLimit))
		if err != nil {
			return nil, err
		}
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return nil, &serverError{status: httpResp.StatusCode, body: data}
		}
		return &rawResponse{status: httpResp.StatusCode, body: data}, nil
	})
	if err != nil {
		mapped := c.mapTransportError(operation, err)
		c.logg.Warn(logCtx, operation+" failed: "+err.Error())
		return mapped
	}

	logCtx = c.logg.WithField(logCtx, "status", resp.status)
	if resp.status < 200 || resp.status >= 300 {
		c.logg.Warn(logCtx, operation+" rejected")
		return statusToError(operation, resp.status, resp.body)
	}
	c.logg.Debug(logCtx, operation+" ok")

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+operation+" response")
	}
	return nil
}

func (c *Client) mapTransportError(operation string, err error) error {
	var srvErr *serverError
	switch {
	case errors.As(err, &srvErr):
		return statusToError(operation, srvErr.status, srvErr.body)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fitconnect api temporarily unavailable")
	case errors.Is(err, context.Canceled):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, operation+" cancelled")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+operation+" request")
	}
}

// StatusError carries the HTTP status of a rejected call.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

func statusToError(operation string, status int, body []byte) error {
	code := pkgerrors.CodeForStatus(status)
	snippet := body
	if int64(len(snippet)) > errorBodyReadLimit {
		snippet = snippet[:errorBodyReadLimit]
	}
	cause := &StatusError{Status: status, Body: strings.TrimSpace(string(snippet))}

	message := operation + " failed"
	if remote := remoteMessage(body); remote != "" {
		message = remote
	}
	return pkgerrors.Wrap(code, cause, message)
}

func remoteMessage(body []byte) string {
	var envelope ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	var flat struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat.Message
	}
	return ""
}
