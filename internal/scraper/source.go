package scraper

import (
	"context"
	"net/url"
	"strings"

	"titletrack/pkg/models"
)

// Source is implemented by every upstream we know how to read. Matches is a
// cheap hostname check; Identify pulls the upstream id out of the URL and
// Fetch performs the actual requests.
type Source interface {
	Name() string
	Matches(u *url.URL) bool
	Identify(u *url.URL) (string, error)
	Fetch(ctx context.Context, m SourceMatch) (Result, error)
}

// SourceMatch is the outcome of adapter selection for one resolve call.
type SourceMatch struct {
	Source Source
	URL    *url.URL
	ID     string
}

// Result is what an adapter extracted before normalization. Fields may be
// empty; the placeholders decide whether an empty field is acceptable.
type Result struct {
	Title            string
	TitlePlaceholder string

	ImageURL         string
	ImagePlaceholder string

	Total int

	// Type is set when the upstream states the category outright.
	Type models.MediaType
	// Country is the ISO country of origin, when known.
	Country string
	// Cues is free text (format labels, breadcrumbs) used for keyword
	// classification when neither Type nor Country decide.
	Cues []string
}

// hostIn reports whether u's host is one of hosts or a subdomain of one.
func hostIn(u *url.URL, hosts ...string) bool {
	if u == nil {
		return false
	}
	h := strings.ToLower(u.Hostname())
	for _, want := range hosts {
		if h == want || strings.HasSuffix(h, "."+want) {
			return true
		}
	}
	return false
}
