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

type mapsResponse struct {
	SearchMetadata searchMetadata `json:"search_metadata"`
	LocalResults   []mapsPlace    `json:"local_results"`
	PlaceResults   *mapsPlace     `json:"place_results"`
}

type mapsPlace struct {
	Position       int          `json:"position"`
	Title          string       `json:"title"`
	PlaceID        string       `json:"place_id"`
	DataID         string       `json:"data_id"`
	GPSCoordinates *gps         `json:"gps_coordinates"`
	Rating         float64      `json:"rating"`
	Reviews        looseInt     `json:"reviews"`
	Price          string       `json:"price"`
	Type           stringOrList `json:"type"`
	Address        string       `json:"address"`
	Phone          string       `json:"phone"`
	Website        string       `json:"website"`
	OpenState      string       `json:"open_state"`
}

type gps struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MapsSearch runs a Google Maps search. When the vendor resolves the query to
// a single place, that place is returned as the only result.
func (c *Client) MapsSearch(ctx context.Context, req domain.MapsSearchRequest) (*domain.MapsSearchResults, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.NewDomainError("serpapi.MapsSearch", domain.ErrInvalidInput, "query is required")
	}

	q := url.Values{}
	q.Set("type", "search")
	q.Set("q", req.Query)
	if req.LL != "" {
		q.Set("ll", req.LL)
	}
	if req.Language != "" {
		q.Set("hl", req.Language)
	}
	if req.Country != "" {
		q.Set("gl", req.Country)
	}
	if req.Start > 0 {
		q.Set("start", strconv.Itoa(req.Start))
	}
	setParams(q, req.Params)

	resp, err := c.get(ctx, domain.EngineGoogleMaps, searchPath, q)
	if err != nil {
		return nil, err
	}

	var raw mapsResponse
	if err := decode(domain.EngineGoogleMaps, resp, &raw); err != nil {
		return nil, err
	}

	places := raw.LocalResults
	if len(places) == 0 && raw.PlaceResults != nil {
		places = []mapsPlace{*raw.PlaceResults}
	}

	out := &domain.MapsSearchResults{
		Query:    req.Query,
		SearchID: raw.SearchMetadata.ID,
		Places:   make([]domain.Place, 0, len(places)),
	}
	for i, p := range places {
		name := strings.TrimSpace(p.Title)
		if name == "" {
			name = "No name"
		}
		pos := p.Position
		if pos == 0 {
			pos = req.Start + i + 1
		}
		place := domain.Place{
			Position:  pos,
			Name:      name,
			Address:   p.Address,
			Rating:    p.Rating,
			Reviews:   int(p.Reviews),
			Type:      string(p.Type),
			Phone:     p.Phone,
			Website:   p.Website,
			PlaceID:   p.PlaceID,
			DataID:    p.DataID,
			Price:     p.Price,
			OpenState: p.OpenState,
		}
		if p.GPSCoordinates != nil {
			place.Latitude = p.GPSCoordinates.Latitude
			place.Longitude = p.GPSCoordinates.Longitude
		}
		out.Places = append(out.Places, place)
	}
	return out, nil
}

// stringOrList accepts "Cafe" as well as ["Cafe", "Bakery"].
type stringOrList string

func (s *stringOrList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*s = stringOrList(strings.Join(list, ", "))
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = stringOrList(v)
	return nil
}
