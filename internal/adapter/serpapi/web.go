package serpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"universal-mcp-serpapi/internal/domain"
)

// webParamNames maps the common request fields to each engine's parameter
// names. An empty name means the engine has no equivalent and the field is
// not sent.
type webParamNames struct {
	query, num, start, country, language, location, safe string
	// startBase is added to Start, for engines whose offset is 1-based.
	startBase int
}

var webEngineParams = map[string]webParamNames{
	domain.EngineGoogle:      {query: "q", num: "num", start: "start", country: "gl", language: "hl", location: "location", safe: "safe"},
	domain.EngineGoogleLight: {query: "q", num: "num", start: "start", country: "gl", language: "hl", location: "location", safe: "safe"},
	domain.EngineBing:        {query: "q", num: "count", start: "first", country: "cc", location: "location", startBase: 1},
	domain.EngineDuckDuckGo:  {query: "q", country: "kl"},
}

type webResponse struct {
	SearchMetadata    searchMetadata `json:"search_metadata"`
	SearchInformation struct {
		TotalResults looseInt `json:"total_results"`
	} `json:"search_information"`
	OrganicResults []organicResult `json:"organic_results"`
}

type searchMetadata struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type organicResult struct {
	Position      int    `json:"position"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	Snippet       string `json:"snippet"`
	DisplayedLink string `json:"displayed_link"`
	Source        string `json:"source"`
	Date          string `json:"date"`
}

// Search runs a web search against req.Engine (or the configured default)
// and returns its organic results. Entries without a link are dropped and
// a missing title becomes "No title", so every result has both.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResults, error) {
	engine := req.Engine
	if engine == "" {
		engine = c.defaultEngine
	}
	names, ok := webEngineParams[engine]
	if !ok {
		return nil, domain.NewDomainError("serpapi.Search", domain.ErrInvalidInput, "unsupported engine "+strconv.Quote(engine))
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.NewDomainError("serpapi.Search", domain.ErrInvalidInput, "query is required")
	}

	q := url.Values{}
	set := func(name, value string) {
		if name != "" && value != "" {
			q.Set(name, value)
		}
	}
	set(names.query, req.Query)
	if req.Num > 0 {
		set(names.num, strconv.Itoa(req.Num))
	}
	if req.Start > 0 {
		set(names.start, strconv.Itoa(req.Start+names.startBase))
	}
	set(names.country, req.Country)
	set(names.language, req.Language)
	set(names.location, req.Location)
	set(names.safe, req.SafeSearch)
	setParams(q, req.Params)

	resp, err := c.get(ctx, engine, searchPath, q)
	if err != nil {
		return nil, err
	}

	var raw webResponse
	if err := decode(engine, resp, &raw); err != nil {
		return nil, err
	}

	out := &domain.SearchResults{
		Query:        req.Query,
		Engine:       engine,
		SearchID:     raw.SearchMetadata.ID,
		TotalResults: int64(raw.SearchInformation.TotalResults),
		Results:      make([]domain.SearchResult, 0, len(raw.OrganicResults)),
	}
	for _, r := range raw.OrganicResults {
		if r.Link == "" {
			continue
		}
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = "No title"
		}
		out.Results = append(out.Results, domain.SearchResult{
			Position:      r.Position,
			Title:         title,
			Link:          r.Link,
			Snippet:       r.Snippet,
			DisplayedLink: r.DisplayedLink,
			Source:        r.Source,
			Date:          r.Date,
		})
	}
	return out, nil
}

// looseInt accepts a JSON number or a numeric string ("1,230,000").
type looseInt int64

func (n *looseInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.NewReplacer(",", "", ".", "", " ", "").Replace(s)
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil // non-numeric text carries no count
		}
		*n = looseInt(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = looseInt(f)
	return nil
}
