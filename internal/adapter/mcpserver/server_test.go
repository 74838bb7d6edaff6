package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universal-mcp-serpapi/internal/adapter/tool"
	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubProvider answers every search with fixed results or err.
type stubProvider struct {
	err error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResults, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.SearchResults{
		Query:  req.Query,
		Engine: req.Engine,
		Results: []domain.SearchResult{
			{Position: 1, Title: "OpenAI", Link: "https://openai.com/", Snippet: "AI research and deployment"},
		},
	}, nil
}

func (p *stubProvider) MapsSearch(_ context.Context, req domain.MapsSearchRequest) (*domain.MapsSearchResults, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.MapsSearchResults{Query: req.Query, Places: []domain.Place{{Position: 1, Name: "Cafe", PlaceID: "ChIJ1"}}}, nil
}

func (p *stubProvider) MapsReviews(_ context.Context, _ domain.ReviewsRequest) (*domain.ReviewsResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.ReviewsResult{Reviews: []domain.Review{{Author: "Sam", Rating: 5, Text: "Nice"}}}, nil
}

func newTestServer(t *testing.T, p domain.SearchProvider) *Server {
	t.Helper()
	reg, err := tool.NewSearchRegistry(p, config.Defaults(), nil, testLogger())
	require.NoError(t, err)
	return New("universal_mcp_serpapi", "test", reg, testLogger())
}

func connect(t *testing.T, s *Server) *client.Client {
	t.Helper()
	c, err := client.NewInProcessClient(s.MCP())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "1.0.0"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)
	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", res.Content[0])
		return ""
	}
}

func TestServer_ListTools(t *testing.T) {
	c := connect(t, newTestServer(t, &stubProvider{}))

	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	var names []string
	for _, tl := range res.Tools {
		names = append(names, tl.Name)
		require.NotNil(t, tl.Annotations.ReadOnlyHint, tl.Name)
		assert.True(t, *tl.Annotations.ReadOnlyHint, tl.Name)
		assert.NotEmpty(t, tl.Description)
	}
	assert.ElementsMatch(t, []string{"search", "google_maps_search", "get_google_maps_reviews"}, names)

	for _, tl := range res.Tools {
		if tl.Name == "search" {
			assert.Contains(t, tl.InputSchema.Properties, "query")
			assert.Equal(t, []string{"query"}, tl.InputSchema.Required)
		}
	}
}

func TestServer_CallSearch_JSON(t *testing.T) {
	c := connect(t, newTestServer(t, &stubProvider{}))

	res := callTool(t, c, "search", map[string]any{"query": "openai"})

	assert.False(t, res.IsError)
	text := textOf(t, res)
	assert.Contains(t, text, `"title": "OpenAI"`)
	assert.Contains(t, text, `"link": "https://openai.com/"`)
	assert.NotNil(t, res.StructuredContent)
}

func TestServer_CallSearch_Text(t *testing.T) {
	c := connect(t, newTestServer(t, &stubProvider{}))

	res := callTool(t, c, "search", map[string]any{"query": "openai", "format": "text"})

	assert.False(t, res.IsError)
	assert.Equal(t, "Title: OpenAI\nLink: https://openai.com/\nSnippet: AI research and deployment\n", textOf(t, res))
}

func TestServer_CallSearch_SchemaRejection(t *testing.T) {
	c := connect(t, newTestServer(t, &stubProvider{}))

	res := callTool(t, c, "search", map[string]any{"query": "x", "num": 500})

	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(textOf(t, res), "INVALID_INPUT: "), textOf(t, res))
}

func TestServer_CallReviews_UpstreamFailure(t *testing.T) {
	p := &stubProvider{err: domain.NewUpstreamError(domain.EngineGoogleMapsReviews, 401, "Invalid API key.", domain.ErrAuthInvalid)}
	c := connect(t, newTestServer(t, p))

	res := callTool(t, c, "get_google_maps_reviews", map[string]any{"place_id": "ChIJ1"})

	assert.True(t, res.IsError)
	text := textOf(t, res)
	assert.True(t, strings.HasPrefix(text, "AUTH_INVALID: "), text)
	assert.Contains(t, text, "Invalid API key.")
	assert.Nil(t, res.StructuredContent)
}

func TestServer_UnknownTool(t *testing.T) {
	c := connect(t, newTestServer(t, &stubProvider{}))

	req := mcp.CallToolRequest{}
	req.Params.Name = "nope"
	_, err := c.CallTool(context.Background(), req)
	assert.Error(t, err)
}

func TestServer_EnabledToolsOnly(t *testing.T) {
	cfg := config.Defaults()
	cfg.Tools.Enabled = []string{"google_maps_search"}
	reg, err := tool.NewSearchRegistry(&stubProvider{}, cfg, nil, testLogger())
	require.NoError(t, err)
	c := connect(t, New("x", "test", reg, testLogger()))

	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, "google_maps_search", res.Tools[0].Name)
}

func TestToCallResult(t *testing.T) {
	ok := toCallResult(&domain.ToolResult{Content: "{}", Structured: map[string]int{"a": 1}})
	assert.False(t, ok.IsError)
	assert.Equal(t, map[string]int{"a": 1}, ok.StructuredContent)

	failed := toCallResult(&domain.ToolResult{Content: "UPSTREAM_ERROR: boom", IsError: true, Structured: "ignored"})
	assert.True(t, failed.IsError)
	assert.Nil(t, failed.StructuredContent)

	assert.True(t, toCallResult(nil).IsError)
}
