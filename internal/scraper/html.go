package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var digitsPattern = regexp.MustCompile(`\d+`)

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrParsePatternMismatch, err)
	}
	return doc, nil
}

// metaContent returns the content of the first meta tag whose property or
// name equals one of keys, tried in order.
func metaContent(doc *goquery.Document, keys ...string) string {
	for _, k := range keys {
		sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, k, k)
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			return v
		}
	}
	return ""
}

// firstText returns the trimmed text of the first selector that yields any.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v := cleanText(doc.Find(sel).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

// firstAttr returns the first non-empty attribute among attrs on the first
// element matching sel.
func firstAttr(doc *goquery.Document, sel string, attrs ...string) string {
	node := doc.Find(sel).First()
	for _, a := range attrs {
		if v := strings.TrimSpace(node.AttrOr(a, "")); v != "" {
			return v
		}
	}
	return ""
}

// leadingInt returns the first run of digits in s, or -1.
func leadingInt(s string) int {
	m := digitsPattern.FindString(s)
	if m == "" {
		return -1
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return -1
	}
	return n
}

// lastPathSegment returns the final non-empty path element.
func lastPathSegment(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	return parts[len(parts)-1]
}
