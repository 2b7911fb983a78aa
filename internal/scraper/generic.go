package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

var genericCountPattern = regexp.MustCompile(`(?i)\b(\d{1,5})\s*(?:episodes?|eps|chapters?|chs?)\b`)

// Generic is the optional catch-all used when no specific source
// recognises a URL. It reads the page's social metadata and looks for a
// count in the text; a page without a count is assumed to be a single unit.
type Generic struct {
	client *Client
}

func NewGeneric(c *Client) *Generic {
	return &Generic{client: c}
}

func (s *Generic) Name() string { return "generic" }

func (s *Generic) Matches(u *url.URL) bool {
	return u != nil && u.Host != ""
}

func (s *Generic) Identify(u *url.URL) (string, error) {
	return u.String(), nil
}

func (s *Generic) Fetch(ctx context.Context, m SourceMatch) (Result, error) {
	html, err := s.client.GetPage(ctx, m.URL.String())
	if err != nil {
		return Result{}, err
	}
	doc, err := parseDocument(html)
	if err != nil {
		return Result{}, err
	}

	title := metaContent(doc, "og:title", "twitter:title")
	if title == "" {
		title = firstText(doc, "title", "h1")
	}

	image := metaContent(doc, "og:image", "og:image:url", "twitter:image")
	if image == "" {
		image = firstAttr(doc, `link[rel="image_src"]`, "href")
	}

	return Result{
		Title:    title,
		ImageURL: image,
		Total:    genericCount(doc),
		Cues: []string{
			metaContent(doc, "og:type"),
			metaContent(doc, "keywords"),
			title,
			metaContent(doc, "og:description", "description"),
		},
	}, nil
}

func genericCount(doc *goquery.Document) int {
	text := metaContent(doc, "og:description", "description") + " " + doc.Find("body").Text()
	if m := genericCountPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 1
}
