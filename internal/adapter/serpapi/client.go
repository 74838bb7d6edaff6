// Package serpapi is the adapter for the SerpApi search API. Each exported
// call is one synchronous request against /search.json (or /account.json)
// whose JSON body is shape-checked and reshaped into domain records.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/config"
	"universal-mcp-serpapi/internal/infra/metrics"
	"universal-mcp-serpapi/internal/infra/tracer"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 4 << 20

const (
	searchPath  = "/search.json"
	accountPath = "/account.json"
)

// reservedParams may not be set through SearchRequest.Params and friends.
var reservedParams = map[string]bool{"api_key": true, "engine": true, "output": true}

// Client talks to SerpApi.
type Client struct {
	http          *http.Client
	baseURL       string
	apiKey        string
	defaultEngine string
	noCache       bool

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*response]
	shapes  *shapeValidator

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client, e.g. with a fake transport in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records upstream calls in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client from config. A missing API key is accepted here;
// every call then fails with an authentication error.
func New(cfg config.SerpAPIConfig, opts ...Option) (*Client, error) {
	shapes, err := newShapeValidator()
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		defaultEngine: cfg.DefaultEngine,
		noCache:       cfg.NoCache,
		shapes:        shapes,
		logger:        slog.Default(),
	}
	if c.defaultEngine == "" {
		c.defaultEngine = domain.EngineGoogleLight
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(cfg.Timeout)
	}

	if cfg.RequestsPerMinute > 0 {
		burst := cfg.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, c.logger, c.metrics)
	}
	return c, nil
}

// Name implements domain.SearchProvider.
func (c *Client) Name() string { return "serpapi" }

// HasAPIKey reports whether a key is configured.
func (c *Client) HasAPIKey() bool { return c.apiKey != "" }

// BreakerState returns the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// response is one successful round trip: a 2xx body that decoded into a
// JSON object and passed the shape check.
type response struct {
	status int
	body   []byte
	// empty is set when the vendor answered with its "no results" error.
	empty bool
}

// get performs one request and returns the raw body of a successful response.
// Every failure is an *domain.UpstreamError.
func (c *Client) get(ctx context.Context, engine, path string, params url.Values) (*response, error) {
	if c.apiKey == "" {
		return nil, domain.NewUpstreamError(engine, 0, "no API key configured (set SERPAPI_API_KEY)", domain.ErrAuthInvalid)
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, domain.NewUpstreamError(engine, 0, "client-side request budget exhausted", domain.ErrRateLimit)
	}

	ctx, span := tracer.StartSpan(ctx, "serpapi."+engine)
	defer span.End()
	span.SetAttributes(tracer.StringAttr("serpapi.engine", engine))

	call := func() (*response, error) { return c.roundTrip(ctx, engine, path, params) }

	var (
		resp *response
		err  error
	)
	if c.breaker != nil {
		resp, err = c.breaker.Execute(call)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = domain.NewUpstreamError(engine, 0, "circuit open, not calling upstream", fmt.Errorf("%w: %w", domain.ErrCircuitOpen, err))
		}
	} else {
		resp, err = call()
	}

	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(tracer.IntAttr("http.status_code", resp.status), tracer.BoolAttr("serpapi.empty", resp.empty))
	tracer.SetOK(span)
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, engine, path string, params url.Values) (*response, error) {
	q := url.Values{}
	for k, vs := range params {
		if reservedParams[k] {
			continue
		}
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	if engine != accountEngine {
		q.Set("engine", engine)
		if c.noCache {
			q.Set("no_cache", "true")
		}
	}
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.NewUpstreamError(engine, 0, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(engine, "error", time.Since(start))
		return nil, transportError(engine, redactKey(err, c.apiKey))
	}
	defer httpResp.Body.Close()
	c.metrics.RecordUpstream(engine, strconv.Itoa(httpResp.StatusCode), time.Since(start))

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize+1))
	if err != nil {
		return nil, transportError(engine, redactKey(err, c.apiKey))
	}
	if len(body) > maxBodySize {
		return nil, malformed(engine, httpResp.StatusCode, fmt.Errorf("body exceeds %d bytes", maxBodySize))
	}

	var decoded any
	decodeErr := json.Unmarshal(body, &decoded)
	obj, isObject := decoded.(map[string]any)
	vendorMsg := ""
	if isObject {
		vendorMsg, _ = obj["error"].(string)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		if vendorMsg == "" && decodeErr != nil {
			vendorMsg = snippet(body, 200)
		}
		if isNoResults(vendorMsg) {
			return &response{status: httpResp.StatusCode, empty: true}, nil
		}
		return nil, vendorError(engine, httpResp.StatusCode, vendorMsg)
	}

	if decodeErr != nil {
		return nil, malformed(engine, httpResp.StatusCode, decodeErr)
	}
	if !isObject {
		return nil, malformed(engine, httpResp.StatusCode, fmt.Errorf("expected JSON object, got %T", decoded))
	}
	if err := c.shapes.validate(engine, decoded); err != nil {
		return nil, malformed(engine, httpResp.StatusCode, err)
	}
	if vendorMsg != "" {
		if isNoResults(vendorMsg) {
			return &response{status: httpResp.StatusCode, body: body, empty: true}, nil
		}
		return nil, vendorError(engine, httpResp.StatusCode, vendorMsg)
	}

	c.logger.Debug("serpapi request completed", "engine", engine, "status", httpResp.StatusCode, "bytes", len(body))
	return &response{status: httpResp.StatusCode, body: body}, nil
}

// decode unmarshals a successful response body into v. Empty responses
// leave v untouched.
func decode(engine string, resp *response, v any) error {
	if resp.empty || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, v); err != nil {
		return malformed(engine, resp.status, err)
	}
	return nil
}

// redactKey strips the API key from errors that embed the request URL.
func redactKey(err error, key string) error {
	var ue *url.Error
	if key == "" || !errors.As(err, &ue) {
		return err
	}
	return &url.Error{
		Op:  ue.Op,
		URL: strings.ReplaceAll(ue.URL, url.QueryEscape(key), "REDACTED"),
		Err: ue.Err,
	}
}

// setParams copies extra caller params into q without touching reserved keys.
func setParams(q url.Values, extra map[string]string) {
	for k, v := range extra {
		if reservedParams[k] {
			continue
		}
		q.Set(k, v)
	}
}

// Compile-time interface check.
var _ domain.SearchProvider = (*Client)(nil)
