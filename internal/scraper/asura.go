package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"titletrack/pkg/models"
)

// Asura renders from a Next.js flight payload, so the series record only
// shows up as (often backslash-escaped) JSON inside script tags. These
// patterns accept both the escaped and the plain form. Name and cover must
// sit in the same object.
var (
	asuraNameCover = regexp.MustCompile(`(?s)\\*"name\\*"\s*:\s*\\*"((?:[^"\\]|\\/|\\u[0-9a-fA-F]{4})+)\\*"[^{}]{0,600}?\\*"cover\\*"\s*:\s*\\*"((?:[^"\\]|\\/|\\u[0-9a-fA-F]{4})+)`)
	asuraCoverName = regexp.MustCompile(`(?s)\\*"cover\\*"\s*:\s*\\*"((?:[^"\\]|\\/|\\u[0-9a-fA-F]{4})+)\\*"[^{}]{0,600}?\\*"name\\*"\s*:\s*\\*"((?:[^"\\]|\\/|\\u[0-9a-fA-F]{4})+)`)
	asuraChapters  = regexp.MustCompile(`\\*"(?:chapter_count|chapters_count|total_chapters)\\*"\s*:\s*\\*"?(\d+)`)
	asuraTypeCue   = regexp.MustCompile(`(?i)\\*"type\\*"\s*:\s*[^,]{0,40}?(manhwa|manhua|manga|webtoon)`)
)

const asuraWindow = 4000

// Asura scrapes series pages of Asura Scans, which publishes manhwa,
// manhua and the occasional manga.
type Asura struct {
	client *Client
}

func NewAsura(c *Client) *Asura {
	return &Asura{client: c}
}

func (s *Asura) Name() string { return "asura" }

func (s *Asura) Matches(u *url.URL) bool {
	return hostIn(u, "asuracomic.net", "asurascans.com", "asuratoon.com")
}

func (s *Asura) Identify(u *url.URL) (string, error) {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if (p == "series" || p == "manga" || p == "comics") && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: no series slug in %s", ErrInvalidIdentifier, u.Path)
}

func (s *Asura) Fetch(ctx context.Context, m SourceMatch) (Result, error) {
	html, err := s.client.GetPage(ctx, m.URL.String())
	if err != nil {
		return Result{}, err
	}
	return parseAsura(html)
}

func parseAsura(html string) (Result, error) {
	var name, cover string
	start := -1
	if loc := asuraNameCover.FindStringSubmatchIndex(html); loc != nil {
		name, cover = html[loc[2]:loc[3]], html[loc[4]:loc[5]]
		start = loc[0]
	} else if loc := asuraCoverName.FindStringSubmatchIndex(html); loc != nil {
		cover, name = html[loc[2]:loc[3]], html[loc[4]:loc[5]]
		start = loc[0]
	}
	if start < 0 {
		return Result{}, fmt.Errorf("%w: no series data found on the page, the site layout may have changed", ErrParsePatternMismatch)
	}

	// count and type live in the same record, shortly after it starts
	window := html[start:min(len(html), start+asuraWindow)]

	total := 0
	if cm := asuraChapters.FindStringSubmatch(window); cm != nil {
		total, _ = strconv.Atoi(cm[1])
	}

	t := models.MediaManhwa
	if tm := asuraTypeCue.FindStringSubmatch(window); tm != nil {
		if parsed, ok := models.ParseMediaType(tm[1]); ok {
			t = parsed
		}
	}

	return Result{
		Title:    unescapeJSONText(name),
		ImageURL: unescapeJSONText(cover),
		Total:    total,
		Type:     t,
	}, nil
}

var jsonUnicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)

func unescapeJSONText(s string) string {
	s = strings.ReplaceAll(s, `\/`, "/")
	s = jsonUnicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
		r, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(r))
	})
	return strings.TrimSpace(s)
}
