package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout               = 15 * time.Second
	defaultBreakerFailures       = 5
	defaultBreakerCooldown       = 30 * time.Second
	responseBodyLimit      int64 = 8 << 20
	errorBodyLimit               = 1024
)

var (
	errBaseURLRequired     = errors.New("commerce base url is required")
	errCredentialsRequired = errors.New("commerce consumer key and secret are required")
)

// Client talks to the commerce REST API. Every call carries the consumer
// credentials as query parameters.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	breaker        *gobreaker.CircuitBreaker[*rawResponse]
	metrics        *metrics.CommerceMetrics
	logg           *logger.Logger
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

// WithBaseURL overrides the configured base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func WithMetrics(m *metrics.CommerceMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

type rawResponse struct {
	status int
	body   []byte
}

type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, snippet(e.body))
}

// NewClient builds the commerce client from configuration.
func NewClient(cfg config.CommerceConfig, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:        strings.TrimSpace(cfg.BaseURL),
		consumerKey:    strings.TrimSpace(cfg.ConsumerKey),
		consumerSecret: strings.TrimSpace(cfg.ConsumerSecret),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logg: logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.baseURL == "" {
		return nil, errBaseURLRequired
	}
	if client.consumerKey == "" || client.consumerSecret == "" {
		return nil, errCredentialsRequired
	}

	client.breaker = gobreaker.NewCircuitBreaker[*rawResponse](breakerSettings(cfg, client.logg))
	return client, nil
}

func breakerSettings(cfg config.CommerceConfig, logg *logger.Logger) gobreaker.Settings {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	return gobreaker.Settings{
		Name:        "commerce",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "commerce.breaker.state_changed")
		},
	}
}

// do executes one call. endpoint is a low-cardinality label for metrics.
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode commerce request")
		}
		payload = encoded
	}
	target := c.buildURL(path, query)

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		return c.roundTrip(ctx, method, target, payload)
	})
	outcome := outcomeOf(resp, err)
	c.metrics.Observe(endpoint, method, outcome, time.Since(start))

	if err != nil {
		var se *statusError
		switch {
		case errors.As(err, &se):
			return statusFailure(endpoint, se.status, se.body)
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return pkgerrors.Wrap(pkgerrors.CodeNetworkFailure, err, "commerce api unavailable")
		default:
			return pkgerrors.Wrap(pkgerrors.CodeNetworkFailure, err, fmt.Sprintf("commerce %s request failed", endpoint))
		}
	}

	if resp.status < 200 || resp.status > 299 {
		return statusFailure(endpoint, resp.status, resp.body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode commerce %s response", endpoint))
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte) (*rawResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(res.Body, responseBodyLimit))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 500 {
		return nil, &statusError{status: res.StatusCode, body: data}
	}
	return &rawResponse{status: res.StatusCode, body: data}, nil
}

func statusFailure(endpoint string, status int, body []byte) error {
	details := map[string]any{"status": status, "body": snippet(body)}
	if status == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("commerce %s not found", endpoint)).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d", status), fmt.Sprintf("commerce %s request rejected", endpoint)).WithDetails(details)
}

func outcomeOf(resp *rawResponse, err error) string {
	var se *statusError
	switch {
	case err == nil && resp != nil && resp.status == http.StatusNotFound:
		return "not_found"
	case err == nil && resp != nil && resp.status >= 400:
		return "client_error"
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return "server_error"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	default:
		return "network_error"
	}
}

func (c *Client) buildURL(path string, query url.Values) string {
	q := url.Values{}
	for key, values := range query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	q.Set("consumer_key", c.consumerKey)
	q.Set("consumer_secret", c.consumerSecret)

	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s?%s", trimmed, path, q.Encode())
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > errorBodyLimit {
		return text[:errorBodyLimit]
	}
	return text
}
