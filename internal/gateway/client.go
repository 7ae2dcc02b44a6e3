package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"cbir/internal/logging"
	"cbir/internal/services"
)

const (
	// RequestIDHeader carries the per-request correlation identifier.
	RequestIDHeader = "X-Request-ID"

	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 64 << 10
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for backend calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout overrides the per-request deadline. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "gateway")
	}
}

// Client talks to the retrieval backend over HTTP.
type Client struct {
	baseURL string
	http    HTTPDoer
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("gateway: base url is required")
	}
	c := &Client{
		baseURL: trimmed,
		http:    &http.Client{},
		timeout: defaultTimeout,
		logger:  logging.NewComponentLogger(nil, "gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	operation   string
	method      string
	path        string
	body        io.Reader
	contentType string
}

func jsonRequest(operation, method, path string, payload any) (request, error) {
	req := request{operation: operation, method: method, path: path}
	if payload == nil {
		return req, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return request{}, services.Wrap(services.ErrValidation, operation, "encode request", err)
	}
	req.body = bytes.NewReader(data)
	req.contentType = "application/json"
	return req, nil
}

// do sends req and decodes a successful JSON answer into out. A nil out
// discards the body.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, c.logger).With(slog.String(logging.FieldOperation, req.operation))

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, req.body)
	if err != nil {
		return services.Wrap(services.ErrValidation, req.operation, "build request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	started := time.Now()
	logger.Debug("backend request", "method", req.method, "path", req.path)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		transportErr := &services.TransportError{
			Operation: req.operation,
			Timeout:   isTimeout(ctx, err),
			Err:       err,
		}
		logger.Debug("backend request failed",
			"timeout", transportErr.Timeout,
			"duration", time.Since(started),
			logging.Error(err),
		)
		return transportErr
	}
	defer resp.Body.Close()

	logger.Debug("backend response", "status", resp.StatusCode, "duration", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return backendError(req.operation, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &services.TransportError{Operation: req.operation, Timeout: isTimeout(ctx, err), Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &services.BackendError{
			Operation: req.operation,
			Status:    resp.StatusCode,
			Message:   "malformed response",
		}
	}
	if failed, ok := out.(bodyFailure); ok {
		if message := failed.failureMessage(); message != "" {
			return &services.BackendError{
				Operation: req.operation,
				Status:    resp.StatusCode,
				Message:   message,
			}
		}
	}
	return nil
}

func backendError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	var payload errorResponse
	message := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		message = strings.TrimSpace(payload.Error)
		if message == "" {
			message = strings.TrimSpace(payload.Message)
		}
	}
	return &services.BackendError{
		Operation: operation,
		Status:    resp.StatusCode,
		Message:   message,
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func operationError(operation, message string) error {
	return &services.BackendError{Operation: operation, Message: message}
}
