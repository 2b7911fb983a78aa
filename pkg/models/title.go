package models

import "strings"

// MediaType is the canonical category of a tracked title.
type MediaType string

const (
	MediaAnime  MediaType = "Anime"
	MediaManga  MediaType = "Manga"
	MediaManhwa MediaType = "Manhwa"
)

// ParseMediaType accepts the canonical names in any case, plus the
// upstream spellings (ANIME, MANGA, manhua) seen from sources.
func ParseMediaType(s string) (MediaType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anime":
		return MediaAnime, true
	case "manga":
		return MediaManga, true
	case "manhwa", "manhua", "webtoon":
		return MediaManhwa, true
	default:
		return "", false
	}
}

// TitleInfo is the normalized, source-independent description of a title
// as returned by the resolver.
//
// ImageURL is always absolute. Total 0 means the source reported an
// unknown length, which is not the same as a failed lookup.
type TitleInfo struct {
	Title    string    `json:"title"`
	ImageURL string    `json:"imageUrl"`
	Total    int       `json:"total"`
	Type     MediaType `json:"type"`
}
