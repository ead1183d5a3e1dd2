package forem

import (
	"fmt"
	"time"
)

// PublishedAtField is the article field carrying the publication timestamp.
const PublishedAtField = "published_at"

// Article is one fetched record. Articles are kept opaque: the harvester
// extracts the publication timestamp and otherwise passes the document
// through unchanged.
type Article map[string]interface{}

// PublishedAt extracts the article's publication timestamp.
func (a Article) PublishedAt() (time.Time, error) {
	raw, ok := a[PublishedAtField]
	if !ok {
		return time.Time{}, fmt.Errorf("article has no %s field", PublishedAtField)
	}

	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%s is not a string: %T", PublishedAtField, raw)
	}

	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", PublishedAtField, err)
	}

	return ts, nil
}

// PageStatus tags the outcome of one page fetch. Callers can tell true
// exhaustion apart from a degraded upstream instead of collapsing both
// into an empty slice.
type PageStatus string

const (
	// PageOK means the page was fetched and contains articles.
	PageOK PageStatus = "ok"
	// PageExhausted means the upstream returned an empty page: no more data.
	PageExhausted PageStatus = "exhausted"
	// PageTransientFailure means all fetch attempts failed transiently.
	PageTransientFailure PageStatus = "transient_failure"
	// PageMalformed means the response body could not be decoded.
	PageMalformed PageStatus = "malformed"
)

// Page is the deserialized response of one fetch call. Articles preserve
// the API's order, which is assumed newest-first.
type Page struct {
	Number   int
	Status   PageStatus
	Articles []Article
}

// Empty reports whether the page carries no articles.
func (p Page) Empty() bool {
	return len(p.Articles) == 0
}
