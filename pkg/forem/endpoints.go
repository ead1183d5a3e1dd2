package forem

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// DefaultBaseURL is the latest-articles endpoint of dev.to, the
	// reference Forem instance.
	DefaultBaseURL = "https://dev.to/api/articles/latest"

	// DefaultPerPage is the page size requested from the API.
	DefaultPerPage = 300

	// MaxPerPage is the largest page size the API accepts.
	MaxPerPage = 1000
)

// ArticlesURL constructs the URL for one page of latest articles.
func ArticlesURL(baseURL string, page, perPage int) string {
	if perPage <= 0 {
		perPage = DefaultPerPage
	} else if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	return fmt.Sprintf("%s?%s", baseURL, params.Encode())
}
