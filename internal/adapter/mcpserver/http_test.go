package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universal-mcp-serpapi/internal/infra/metrics"
	"universal-mcp-serpapi/internal/infra/middleware"
)

type fakeUpstream struct{ breaker string }

func (f fakeUpstream) Name() string         { return "serpapi" }
func (f fakeUpstream) HasAPIKey() bool      { return true }
func (f fakeUpstream) BreakerState() string { return f.breaker }

func newHTTPTestServer(t *testing.T, cfg HTTPConfig, upstream UpstreamStatus) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	h := NewHTTPServer(newTestServer(t, &stubProvider{}), cfg, m, upstream, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(h.Handler(ctx))
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, m
}

func get(t *testing.T, url string, hdr map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHTTP_Healthz(t *testing.T) {
	ts, _ := newHTTPTestServer(t, HTTPConfig{Version: "1.2.3", AuthTokens: []string{"secret"}}, fakeUpstream{breaker: "closed"})

	resp, body := get(t, ts.URL+"/healthz", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode, "healthz is public")
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	var health HealthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, 3, health.Tools)
	require.NotNil(t, health.Upstream)
	assert.Equal(t, "serpapi", health.Upstream.Provider)
	assert.True(t, health.Upstream.APIKey)
}

func TestHTTP_HealthzDegradedWhenBreakerOpen(t *testing.T) {
	ts, _ := newHTTPTestServer(t, HTTPConfig{}, fakeUpstream{breaker: "open"})

	_, body := get(t, ts.URL+"/healthz", nil)
	assert.Contains(t, body, `"status":"degraded"`)
}

func TestHTTP_Metrics(t *testing.T) {
	ts, _ := newHTTPTestServer(t, HTTPConfig{MetricsPath: "/metrics", AuthTokens: []string{"secret"}}, nil)

	get(t, ts.URL+"/healthz", nil)
	resp, body := get(t, ts.URL+"/metrics", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "serpapi_mcp_http_requests_total")
}

func TestHTTP_EndpointRequiresToken(t *testing.T) {
	ts, _ := newHTTPTestServer(t, HTTPConfig{AuthTokens: []string{"secret"}}, nil)

	resp, err := http.Post(ts.URL+"/mcp", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/mcp", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHTTP_RateLimited(t *testing.T) {
	ts, _ := newHTTPTestServer(t, HTTPConfig{
		RateLimit: middleware.RateLimitConfig{RequestsPerMin: 60, BurstSize: 2},
	}, nil)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp, _ := get(t, ts.URL+"/healthz", nil)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429, 429}, codes)
}

func TestHTTP_StreamableRoundTrip(t *testing.T) {
	ts, _ := newHTTPTestServer(t, HTTPConfig{AuthTokens: []string{"secret"}}, nil)

	c, err := client.NewStreamableHttpClient(ts.URL+"/mcp",
		transport.WithHTTPHeaders(map[string]string{"Authorization": "Bearer secret"}),
	)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "http-test", Version: "1.0.0"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, tools.Tools, 3)

	res := callTool(t, c, "google_maps_search", map[string]any{"query": "cafe", "format": "text"})
	assert.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), "Name: Cafe")
}
