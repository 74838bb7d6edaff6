package domain

import "context"

// Vendor engine identifiers.
const (
	EngineGoogle            = "google"
	EngineGoogleLight       = "google_light"
	EngineBing              = "bing"
	EngineDuckDuckGo        = "duckduckgo"
	EngineGoogleMaps        = "google_maps"
	EngineGoogleMapsReviews = "google_maps_reviews"
)

// WebEngines lists the engines whose responses carry organic_results.
var WebEngines = []string{EngineGoogle, EngineGoogleLight, EngineBing, EngineDuckDuckGo}

// IsWebEngine reports whether engine is one of WebEngines.
func IsWebEngine(engine string) bool {
	for _, e := range WebEngines {
		if e == engine {
			return true
		}
	}
	return false
}

// SearchProvider is the interface for the vendor search API.
type SearchProvider interface {
	// Search runs a web search and returns its organic results.
	Search(ctx context.Context, req SearchRequest) (*SearchResults, error)
	// MapsSearch runs a places search.
	MapsSearch(ctx context.Context, req MapsSearchRequest) (*MapsSearchResults, error)
	// MapsReviews fetches one page of reviews for a single place.
	MapsReviews(ctx context.Context, req ReviewsRequest) (*ReviewsResult, error)
	// Name returns the provider's identifier (e.g., "serpapi").
	Name() string
}

// SearchRequest is a web search query.
type SearchRequest struct {
	Query      string            `json:"query"`
	Engine     string            `json:"engine,omitempty"`
	Location   string            `json:"location,omitempty"`
	Country    string            `json:"country,omitempty"`  // gl
	Language   string            `json:"language,omitempty"` // hl
	Num        int               `json:"num,omitempty"`
	Start      int               `json:"start,omitempty"`
	SafeSearch string            `json:"safe_search,omitempty"`
	Params     map[string]string `json:"params,omitempty"` // engine-specific extras
}

// SearchResult is a single simplified organic result.
type SearchResult struct {
	Position      int    `json:"position,omitempty"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	Snippet       string `json:"snippet,omitempty"`
	DisplayedLink string `json:"displayed_link,omitempty"`
	Source        string `json:"source,omitempty"`
	Date          string `json:"date,omitempty"`
}

// SearchResults is the simplified response to a SearchRequest.
type SearchResults struct {
	Query        string         `json:"query"`
	Engine       string         `json:"engine"`
	SearchID     string         `json:"search_id,omitempty"`
	TotalResults int64          `json:"total_results,omitempty"`
	Results      []SearchResult `json:"results"`
}

// MapsSearchRequest is a places query.
type MapsSearchRequest struct {
	Query    string            `json:"query"`
	LL       string            `json:"ll,omitempty"` // "@lat,lng,zoom"
	Language string            `json:"language,omitempty"`
	Country  string            `json:"country,omitempty"`
	Start    int               `json:"start,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
}

// Place is a single simplified maps result.
type Place struct {
	Position  int     `json:"position,omitempty"`
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Rating    float64 `json:"rating,omitempty"`
	Reviews   int     `json:"reviews,omitempty"`
	Type      string  `json:"type,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Website   string  `json:"website,omitempty"`
	PlaceID   string  `json:"place_id,omitempty"`
	DataID    string  `json:"data_id,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Price     string  `json:"price,omitempty"`
	OpenState string  `json:"open_state,omitempty"`
}

// MapsSearchResults is the simplified response to a MapsSearchRequest.
type MapsSearchResults struct {
	Query    string  `json:"query"`
	SearchID string  `json:"search_id,omitempty"`
	Places   []Place `json:"places"`
}

// ReviewSortOrders are the accepted ReviewsRequest.SortBy values.
var ReviewSortOrders = []string{"qualityScore", "newestFirst", "ratingHigh", "ratingLow"}

// ReviewsRequest selects the reviews of one place. Exactly one of PlaceID
// and DataID identifies the place.
type ReviewsRequest struct {
	PlaceID       string `json:"place_id,omitempty"`
	DataID        string `json:"data_id,omitempty"`
	Language      string `json:"language,omitempty"`
	SortBy        string `json:"sort_by,omitempty"`
	NextPageToken string `json:"next_page_token,omitempty"`
	Num           int    `json:"num,omitempty"`
}

// PlaceInfo is the header of a reviews page.
type PlaceInfo struct {
	Name    string  `json:"name,omitempty"`
	Address string  `json:"address,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
	Reviews int     `json:"reviews,omitempty"`
}

// Review is a single simplified place review.
type Review struct {
	Author        string  `json:"author"`
	AuthorLink    string  `json:"author_link,omitempty"`
	Rating        float64 `json:"rating"`
	Date          string  `json:"date,omitempty"`
	ISODate       string  `json:"iso_date,omitempty"`
	Text          string  `json:"text"`
	Likes         int     `json:"likes,omitempty"`
	OwnerResponse string  `json:"owner_response,omitempty"`
	ReviewID      string  `json:"review_id,omitempty"`
	Link          string  `json:"link,omitempty"`
}

// ReviewsResult is the simplified response to a ReviewsRequest.
type ReviewsResult struct {
	Place         PlaceInfo `json:"place"`
	Reviews       []Review  `json:"reviews"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}
