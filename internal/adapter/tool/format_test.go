package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"universal-mcp-serpapi/internal/domain"
)

func TestFormatSearchText(t *testing.T) {
	got := FormatSearchText(&domain.SearchResults{Results: []domain.SearchResult{
		{Title: "OpenAI", Link: "https://openai.com/", Snippet: "AI research"},
		{Title: "Docs", Link: "https://platform.openai.com/docs"},
	}})

	want := "Title: OpenAI\nLink: https://openai.com/\nSnippet: AI research\n" +
		"\n" +
		"Title: Docs\nLink: https://platform.openai.com/docs\nSnippet: No snippet\n"
	assert.Equal(t, want, got)
}

func TestFormatSearchText_Empty(t *testing.T) {
	assert.Equal(t, "No organic results found.", FormatSearchText(nil))
	assert.Equal(t, "No organic results found.", FormatSearchText(&domain.SearchResults{}))
}

func TestFormatPlacesText(t *testing.T) {
	got := FormatPlacesText(&domain.MapsSearchResults{Places: []domain.Place{
		{Name: "Houndstooth Coffee", Address: "401 Congress Ave", Rating: 4.6, Reviews: 1200, Type: "Coffee shop", PlaceID: "ChIJ1"},
		{Name: "", Phone: "+1 512-555-0100"},
	}})

	want := "Name: Houndstooth Coffee\nAddress: 401 Congress Ave\nRating: 4.6 (1200 reviews)\nType: Coffee shop\nPlace ID: ChIJ1\n" +
		"\n" +
		"Name: No name\nAddress: No address\nRating: n/a\nPhone: +1 512-555-0100\n"
	assert.Equal(t, want, got)
	assert.Equal(t, "No places found.", FormatPlacesText(&domain.MapsSearchResults{}))
}

func TestFormatReviewsText(t *testing.T) {
	got := FormatReviewsText(&domain.ReviewsResult{
		Place: domain.PlaceInfo{Name: "Houndstooth Coffee", Rating: 4.6, Reviews: 1200},
		Reviews: []domain.Review{
			{Author: "Sam", Rating: 5, Date: "a week ago", Text: "Great espresso", OwnerResponse: "Thanks!"},
			{Rating: 3},
		},
		NextPageToken: "tok",
	})

	want := "Place: Houndstooth Coffee\nRating: 4.6 (1200 reviews)\n" +
		"\n" +
		"Author: Sam\nRating: 5\nDate: a week ago\nReview: Great espresso\nOwner response: Thanks!\n" +
		"\n" +
		"Author: Anonymous\nRating: 3\nReview: No text\n" +
		"\n" +
		"Next page token: tok\n"
	assert.Equal(t, want, got)
}

func TestFormatReviewsText_Empty(t *testing.T) {
	assert.Equal(t, "No reviews found.", FormatReviewsText(nil))
	assert.Equal(t, "No reviews found.", FormatReviewsText(&domain.ReviewsResult{}))
	assert.Equal(t, "Place: Cafe\nRating: n/a\n\nNo reviews found.",
		FormatReviewsText(&domain.ReviewsResult{Place: domain.PlaceInfo{Name: "Cafe"}}))
}
