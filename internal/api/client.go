package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"clipdeck/internal/config"
	"clipdeck/internal/logging"
	"clipdeck/internal/services"
)

const (
	userAgentProduct = "clipdeck"
	maxErrorBody     = 64 << 10
)

// Version is reported in the User-Agent header.
var Version = "dev"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Recorder receives per-request telemetry.
type Recorder interface {
	ObserveRequest(operation string, status int, duration time.Duration)
}

// Client talks to the remote video service.
type Client struct {
	baseURL string
	http    HTTPDoer
	limiter *rate.Limiter
	metrics Recorder
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP backend.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithRateLimit paces outgoing requests. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRecorder attaches a telemetry sink.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "api")
	return c
}

// NewFromConfig builds a client from application configuration. Extra options
// are applied after the configured ones.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.APITimeout()}),
		WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		WithLogger(logger),
	}
	return New(cfg.API.BaseURL, append(base, opts...)...)
}

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	op     string
	method string
	path   string
	token  string
	body   any
	form   url.Values
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return services.Wrap(services.ErrTransient, "api", req.op, "rate limiter", err)
		}
	}

	var (
		reader      io.Reader
		contentType string
	)
	switch {
	case req.form != nil:
		reader = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.body != nil:
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("User-Agent", fmt.Sprintf("%s/%s (%s)", userAgentProduct, Version, runtime.GOOS))
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	logger := logging.WithContext(services.WithRequestID(ctx, requestID), c.logger)
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(req.op, 0, elapsed)
		logger.Debug("request failed", logging.String("op", req.op), logging.Error(err))
		return services.Wrap(services.ErrTransient, "api", req.method+" "+req.path, "request failed", err)
	}
	defer resp.Body.Close()

	c.observe(req.op, resp.StatusCode, elapsed)
	logger.Debug("request complete",
		logging.String("op", req.op),
		logging.String("method", req.method),
		logging.String("path", req.path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", elapsed),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newError(resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "api", req.method+" "+req.path, "decode response", err)
	}
	return nil
}

func (c *Client) observe(op string, status int, elapsed time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveRequest(op, status, elapsed)
	}
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
