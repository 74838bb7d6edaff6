package tool

import (
	"fmt"
	"strconv"
	"strings"

	"universal-mcp-serpapi/internal/domain"
)

// Output formats accepted by every search tool.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Formats lists the accepted values of a tool's "format" argument.
var Formats = []string{FormatJSON, FormatText}

// render returns v unchanged for json output, or the text produced by text.
func render(format string, v any, text func() string) any {
	if format == FormatText {
		return text()
	}
	return v
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// FormatSearchText lays out organic results as "Title/Link/Snippet" blocks.
func FormatSearchText(r *domain.SearchResults) string {
	if r == nil || len(r.Results) == 0 {
		return "No organic results found."
	}
	blocks := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nLink: %s\nSnippet: %s\n",
			orDefault(res.Title, "No title"),
			orDefault(res.Link, "No link"),
			orDefault(res.Snippet, "No snippet"),
		))
	}
	return strings.Join(blocks, "\n")
}

// FormatPlacesText lays out places one block per place.
func FormatPlacesText(r *domain.MapsSearchResults) string {
	if r == nil || len(r.Places) == 0 {
		return "No places found."
	}
	blocks := make([]string, 0, len(r.Places))
	for _, p := range r.Places {
		var b strings.Builder
		fmt.Fprintf(&b, "Name: %s\n", orDefault(p.Name, "No name"))
		fmt.Fprintf(&b, "Address: %s\n", orDefault(p.Address, "No address"))
		fmt.Fprintf(&b, "Rating: %s\n", formatRating(p.Rating, p.Reviews))
		if p.Type != "" {
			fmt.Fprintf(&b, "Type: %s\n", p.Type)
		}
		if p.Phone != "" {
			fmt.Fprintf(&b, "Phone: %s\n", p.Phone)
		}
		if p.Website != "" {
			fmt.Fprintf(&b, "Website: %s\n", p.Website)
		}
		if p.PlaceID != "" {
			fmt.Fprintf(&b, "Place ID: %s\n", p.PlaceID)
		}
		if p.DataID != "" {
			fmt.Fprintf(&b, "Data ID: %s\n", p.DataID)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}

// FormatReviewsText lays out a place header followed by one block per review.
func FormatReviewsText(r *domain.ReviewsResult) string {
	if r == nil {
		return "No reviews found."
	}
	var header strings.Builder
	if r.Place.Name != "" {
		fmt.Fprintf(&header, "Place: %s\n", r.Place.Name)
		if r.Place.Address != "" {
			fmt.Fprintf(&header, "Address: %s\n", r.Place.Address)
		}
		fmt.Fprintf(&header, "Rating: %s\n", formatRating(r.Place.Rating, r.Place.Reviews))
	}

	if len(r.Reviews) == 0 {
		if header.Len() == 0 {
			return "No reviews found."
		}
		return header.String() + "\nNo reviews found."
	}

	blocks := make([]string, 0, len(r.Reviews)+2)
	if header.Len() > 0 {
		blocks = append(blocks, header.String())
	}
	for _, rv := range r.Reviews {
		var b strings.Builder
		fmt.Fprintf(&b, "Author: %s\n", orDefault(rv.Author, "Anonymous"))
		fmt.Fprintf(&b, "Rating: %s\n", strconv.FormatFloat(rv.Rating, 'f', -1, 64))
		if rv.Date != "" {
			fmt.Fprintf(&b, "Date: %s\n", rv.Date)
		}
		fmt.Fprintf(&b, "Review: %s\n", orDefault(rv.Text, "No text"))
		if rv.OwnerResponse != "" {
			fmt.Fprintf(&b, "Owner response: %s\n", rv.OwnerResponse)
		}
		blocks = append(blocks, b.String())
	}
	if r.NextPageToken != "" {
		blocks = append(blocks, fmt.Sprintf("Next page token: %s\n", r.NextPageToken))
	}
	return strings.Join(blocks, "\n")
}

func formatRating(rating float64, count int) string {
	if rating == 0 && count == 0 {
		return "n/a"
	}
	s := strconv.FormatFloat(rating, 'f', -1, 64)
	if count > 0 {
		s += fmt.Sprintf(" (%d reviews)", count)
	}
	return s
}
