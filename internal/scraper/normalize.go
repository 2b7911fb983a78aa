package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"titletrack/pkg/models"
)

// Normalize applies the invariants every TitleInfo must satisfy: a title,
// an absolute image URL, a non-negative total and one of the known types.
// It performs no I/O.
func Normalize(pageURL *url.URL, r Result) (models.TitleInfo, error) {
	title := cleanText(r.Title)
	if title == "" {
		title = r.TitlePlaceholder
	}
	if title == "" {
		return models.TitleInfo{}, fmt.Errorf("%w: no title found", ErrParsePatternMismatch)
	}

	image := absoluteURL(pageURL, r.ImageURL)
	if image == "" {
		image = r.ImagePlaceholder
	}
	if image == "" {
		return models.TitleInfo{}, fmt.Errorf("%w: no cover image found", ErrParsePatternMismatch)
	}

	total := r.Total
	if total < 0 {
		total = 0
	}

	return models.TitleInfo{
		Title:    title,
		ImageURL: image,
		Total:    total,
		Type:     classify(r),
	}, nil
}

// classify picks the media type from, in order: an explicit upstream type,
// the country of origin, and keyword cues. Manga is the last resort.
func classify(r Result) models.MediaType {
	if t, ok := models.ParseMediaType(string(r.Type)); ok {
		return t
	}
	if strings.EqualFold(r.Country, "KR") {
		return models.MediaManhwa
	}
	if t, ok := typeFromCues(r.Cues...); ok {
		return t
	}
	return models.MediaManga
}

func typeFromCues(cues ...string) (models.MediaType, bool) {
	text := strings.ToLower(strings.Join(cues, " "))
	switch {
	case text == "":
		return "", false
	case strings.Contains(text, "manhwa"), strings.Contains(text, "manhua"), strings.Contains(text, "webtoon"):
		return models.MediaManhwa, true
	case strings.Contains(text, "episode"), strings.Contains(text, "anime"):
		return models.MediaAnime, true
	case strings.Contains(text, "chapter"), strings.Contains(text, "manga"):
		return models.MediaManga, true
	}
	return "", false
}

// absoluteURL resolves raw against the page's origin. The result is always
// an http(s) URL with a host; anything else yields "".
func absoluteURL(pageURL *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !ref.IsAbs() {
		if pageURL == nil || pageURL.Host == "" {
			return ""
		}
		origin := &url.URL{Scheme: pageURL.Scheme, Host: pageURL.Host, Path: "/"}
		if origin.Scheme == "" {
			origin.Scheme = "https"
		}
		ref = origin.ResolveReference(ref)
	}
	if (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return ""
	}
	return ref.String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
