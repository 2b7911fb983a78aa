package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"titletrack/pkg/models"
)

var hianimeTitleSuffix = regexp.MustCompile(`(?i)\s*(?:[-|]\s*)?(?:English\s+(?:Sub|Dub).*|(?:on|at)\s+(?:HiAnime|AniWatch)(?:\.\w+)?|(?:HiAnime|AniWatch)(?:\.\w+)?)$`)

// HiAnime scrapes the anime detail pages of HiAnime and its mirrors. The
// site only lists anime, so the type is fixed.
type HiAnime struct {
	client *Client
}

func NewHiAnime(c *Client) *HiAnime {
	return &HiAnime{client: c}
}

func (s *HiAnime) Name() string { return "hianime" }

func (s *HiAnime) Matches(u *url.URL) bool {
	return hostIn(u, "hianime.to", "hianime.nz", "hianime.sx", "hianimez.to", "aniwatch.to")
}

func (s *HiAnime) Identify(u *url.URL) (string, error) {
	slug := lastPathSegment(u.Path)
	if slug == "" || slug == "home" || slug == "search" {
		return "", fmt.Errorf("%w: no anime slug in %s", ErrInvalidIdentifier, u.Path)
	}
	return slug, nil
}

func (s *HiAnime) Fetch(ctx context.Context, m SourceMatch) (Result, error) {
	html, err := s.client.GetPage(ctx, m.URL.String())
	if err != nil {
		return Result{}, err
	}
	doc, err := parseDocument(html)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Title:    hianimeTitle(doc),
		ImageURL: hianimeImage(doc),
		Total:    hianimeCount(doc),
		Type:     models.MediaAnime,
	}, nil
}

func hianimeTitle(doc *goquery.Document) string {
	t := firstText(doc, "h2[itemprop=name]", "h1[itemprop=name]", "[itemprop=name]", "h2.film-name")
	if t == "" {
		t = metaContent(doc, "og:title")
	}
	return cleanHiAnimeTitle(t)
}

func cleanHiAnimeTitle(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimPrefix(t, "Watch ")
	t = hianimeTitleSuffix.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

func hianimeImage(doc *goquery.Document) string {
	if v := firstAttr(doc, "img[itemprop=image]", "src", "data-src"); v != "" {
		return v
	}
	if v := firstAttr(doc, ".film-poster img", "data-src", "src"); v != "" {
		return v
	}
	return metaContent(doc, "og:image")
}

// hianimeCount reads the sub episode badge. Pages without it but with a
// format badge are single releases (movies, specials) and count as 1.
func hianimeCount(doc *goquery.Document) int {
	if n := leadingInt(doc.Find(".tick-sub").First().Text()); n >= 0 {
		return n
	}
	if doc.Find(".film-stats .item, .tick-item").Length() > 0 {
		return 1
	}
	return 0
}
