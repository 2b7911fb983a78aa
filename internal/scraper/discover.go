package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/shurcooL/graphql"
	"golang.org/x/sync/errgroup"

	"titletrack/pkg/models"
)

const (
	topPerPage    = 5
	searchPerPage = 10
	searchLimit   = 10
)

// DiscoveredTitle is a discovery hit: the normalized info plus the AniList
// page it came from, so it can be saved with a refreshable source URL.
type DiscoveredTitle struct {
	models.TitleInfo
	SourceURL string `json:"sourceUrl,omitempty"`
}

// Top returns the currently trending titles for a category. kind is one of
// ANIME, MANGA (Japanese) or MANHWA (Korean).
func (s *AniList) Top(ctx context.Context, kind string) ([]DiscoveredTitle, error) {
	vars := map[string]any{
		"perPage": graphql.Int(topPerPage),
		"sort":    []MediaSort{"TRENDING_DESC", "POPULARITY_DESC"},
		"country": (*CountryCode)(nil),
	}
	switch strings.ToUpper(strings.TrimSpace(kind)) {
	case "ANIME":
		vars["type"] = MediaType("ANIME")
	case "MANGA":
		jp := CountryCode("JP")
		vars["type"], vars["country"] = MediaType("MANGA"), &jp
	case "MANHWA":
		kr := CountryCode("KR")
		vars["type"], vars["country"] = MediaType("MANGA"), &kr
	default:
		return nil, fmt.Errorf("unknown category %q", kind)
	}

	var q struct {
		Page struct {
			Media []alMedia `graphql:"media(type: $type, sort: $sort, countryOfOrigin: $country, status_not_in: [NOT_YET_RELEASED])"`
		} `graphql:"Page(page: 1, perPage: $perPage)"`
	}
	if err := s.query(ctx, &q, vars); err != nil {
		return nil, err
	}

	out := make([]DiscoveredTitle, 0, len(q.Page.Media))
	for _, md := range q.Page.Media {
		if d, ok := discovered(md, true); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// TopAll fetches the three categories concurrently.
func (s *AniList) TopAll(ctx context.Context) (map[models.MediaType][]DiscoveredTitle, error) {
	kinds := map[models.MediaType]string{
		models.MediaAnime:  "ANIME",
		models.MediaManga:  "MANGA",
		models.MediaManhwa: "MANHWA",
	}
	results := make(map[models.MediaType][]DiscoveredTitle, len(kinds))
	lists := make([][]DiscoveredTitle, 3)
	order := []models.MediaType{models.MediaAnime, models.MediaManga, models.MediaManhwa}

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range order {
		i, t := i, t
		g.Go(func() error {
			list, err := s.Top(gctx, kinds[t])
			if err != nil {
				return fmt.Errorf("top %s: %w", kinds[t], err)
			}
			lists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, t := range order {
		results[t] = lists[i]
	}
	return results, nil
}

// Search looks the query up as anime and as manga concurrently; anime hits
// come first and the combined list is capped.
func (s *AniList) Search(ctx context.Context, query string) ([]DiscoveredTitle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []DiscoveredTitle{}, nil
	}

	var anime, manga []alMedia
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		anime, err = s.search(gctx, query, "ANIME")
		return err
	})
	g.Go(func() error {
		var err error
		manga, err = s.search(gctx, query, "MANGA")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]DiscoveredTitle, 0, searchLimit)
	for _, md := range append(anime, manga...) {
		if len(out) == searchLimit {
			break
		}
		if d, ok := discovered(md, false); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *AniList) search(ctx context.Context, query, mediaType string) ([]alMedia, error) {
	var q struct {
		Page struct {
			Media []alMedia `graphql:"media(search: $search, type: $type, sort: [SEARCH_MATCH])"`
		} `graphql:"Page(page: 1, perPage: $perPage)"`
	}
	vars := map[string]any{
		"search":  graphql.String(query),
		"type":    MediaType(mediaType),
		"perPage": graphql.Int(searchPerPage),
	}
	if err := s.query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("search %s: %w", strings.ToLower(mediaType), err)
	}
	return q.Page.Media, nil
}

// discovered maps a media record for listing. For top lists the count is
// estimated more generously: a releasing anime counts the episodes aired so
// far and a manga without chapters falls back to volumes.
func discovered(md alMedia, estimate bool) (DiscoveredTitle, bool) {
	title := mediaTitle(md)
	image := firstNonEmpty(deref(md.CoverImage.Large), deref(md.CoverImage.ExtraLarge))
	if title == "" || image == "" {
		return DiscoveredTitle{}, false
	}

	t := mediaType(md)
	var total int
	if t == models.MediaAnime {
		total = deref(md.Episodes)
		if next := deref(md.NextAiringEpisode.Episode); estimate && deref(md.Status) == "RELEASING" && next > 0 {
			total = next - 1
		}
	} else {
		total = deref(md.Chapters)
		if estimate && total == 0 {
			total = deref(md.Volumes)
		}
	}
	if total < 0 {
		total = 0
	}

	return DiscoveredTitle{
		TitleInfo: models.TitleInfo{
			Title:    title,
			ImageURL: image,
			Total:    total,
			Type:     t,
		},
		SourceURL: deref(md.SiteURL),
	}, true
}
