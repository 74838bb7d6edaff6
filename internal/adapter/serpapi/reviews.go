package serpapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"universal-mcp-serpapi/internal/domain"
)

type reviewsResponse struct {
	PlaceInfo struct {
		Title   string   `json:"title"`
		Address string   `json:"address"`
		Rating  float64  `json:"rating"`
		Reviews looseInt `json:"reviews"`
	} `json:"place_info"`
	Reviews []struct {
		Link      string   `json:"link"`
		Rating    float64  `json:"rating"`
		Date      string   `json:"date"`
		ISODate   string   `json:"iso_date"`
		Snippet   string   `json:"snippet"`
		Extracted *struct {
			Original string `json:"original"`
		} `json:"extracted_snippet"`
		Likes    looseInt `json:"likes"`
		ReviewID string   `json:"review_id"`
		User     struct {
			Name string `json:"name"`
			Link string `json:"link"`
		} `json:"user"`
		Response *struct {
			Snippet string `json:"snippet"`
		} `json:"response"`
	} `json:"reviews"`
	Pagination struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"serpapi_pagination"`
}

// MapsReviews fetches one page of reviews for a place identified by exactly
// one of req.PlaceID and req.DataID.
func (c *Client) MapsReviews(ctx context.Context, req domain.ReviewsRequest) (*domain.ReviewsResult, error) {
	const op = "serpapi.MapsReviews"
	placeID := strings.TrimSpace(req.PlaceID)
	dataID := strings.TrimSpace(req.DataID)
	switch {
	case placeID == "" && dataID == "":
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "place_id or data_id is required")
	case placeID != "" && dataID != "":
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "place_id and data_id are mutually exclusive")
	}

	q := url.Values{}
	if placeID != "" {
		q.Set("place_id", placeID)
	} else {
		q.Set("data_id", dataID)
	}
	if req.Language != "" {
		q.Set("hl", req.Language)
	}
	if req.SortBy != "" {
		q.Set("sort_by", req.SortBy)
	}
	if req.NextPageToken != "" {
		q.Set("next_page_token", req.NextPageToken)
	}
	// The vendor rejects num on the first page.
	if req.Num > 0 && req.NextPageToken != "" {
		q.Set("num", strconv.Itoa(req.Num))
	}

	resp, err := c.get(ctx, domain.EngineGoogleMapsReviews, searchPath, q)
	if err != nil {
		return nil, err
	}

	var raw reviewsResponse
	if err := decode(domain.EngineGoogleMapsReviews, resp, &raw); err != nil {
		return nil, err
	}

	out := &domain.ReviewsResult{
		Place: domain.PlaceInfo{
			Name:    raw.PlaceInfo.Title,
			Address: raw.PlaceInfo.Address,
			Rating:  raw.PlaceInfo.Rating,
			Reviews: int(raw.PlaceInfo.Reviews),
		},
		Reviews:       make([]domain.Review, 0, len(raw.Reviews)),
		NextPageToken: raw.Pagination.NextPageToken,
	}
	for _, r := range raw.Reviews {
		text := r.Snippet
		if text == "" && r.Extracted != nil {
			text = r.Extracted.Original
		}
		author := strings.TrimSpace(r.User.Name)
		if author == "" {
			author = "Anonymous"
		}
		review := domain.Review{
			Author:     author,
			AuthorLink: r.User.Link,
			Rating:     r.Rating,
			Date:       r.Date,
			ISODate:    r.ISODate,
			Text:       text,
			Likes:      int(r.Likes),
			ReviewID:   r.ReviewID,
			Link:       r.Link,
		}
		if r.Response != nil {
			review.OwnerResponse = r.Response.Snippet
		}
		out.Reviews = append(out.Reviews, review)
	}
	return out, nil
}
