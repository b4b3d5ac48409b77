// Package routemisr is a client for the remote e-commerce REST API that owns
// every business operation of the storefront: accounts, catalog, carts,
// wishlists, orders and reviews.
package routemisr

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://ecommerce.routemisr.com/api/v1"

// TokenHeader carries the session token on authenticated calls.
const TokenHeader = "token"

// maxBodySize bounds how much of an upstream response is read.
const maxBodySize = 8 << 20

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client calls the remote API. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
	now  func() time.Time
}

// New creates a Client. Outgoing requests are traced and measured through
// otelhttp with the configured providers.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	rt := cfg.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}
	opts = append(opts, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return "upstream " + r.Method
	}))

	return &Client{
		base: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(rt, opts...),
		},
		now: time.Now,
	}, nil
}

// call describes one upstream request.
type call struct {
	method string
	path   string
	token  string
	query  url.Values
	body   any
}

// do executes c and decodes a 2xx JSON response into out (when non-nil).
// Non-2xx responses become *APIError.
func (cl *Client) do(ctx context.Context, c call, out any) error {
	u := *cl.base
	u.Path = cl.base.Path + c.path
	if len(c.query) > 0 {
		u.RawQuery = c.query.Encode()
	}

	var body io.Reader
	if c.body != nil {
		buf, err := json.Marshal(c.body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(TokenHeader, c.token)
	}

	start := cl.now()
	resp, err := cl.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", c.method, c.path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.Wrapf(err, "read %s %s", c.method, c.path)
	}

	zctx.From(ctx).Debug("Upstream call",
		zap.String("method", c.method),
		zap.String("path", c.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", cl.now().Sub(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", c.method, c.path)
	}
	return nil
}

// Ping checks that the API answers a cheap catalog query.
func (cl *Client) Ping(ctx context.Context) error {
	return cl.do(ctx, call{
		method: http.MethodGet,
		path:   "/categories",
		query:  url.Values{"limit": {"1"}},
	}, nil)
}
