package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/shurcooL/graphql"

	"titletrack/pkg/models"
)

const (
	anilistEndpoint = "https://graphql.anilist.co"

	// AniListPlaceholderImage is AniList's own default cover.
	AniListPlaceholderImage = "https://s4.anilist.co/file/anilistcdn/media/anime/cover/medium/default.jpg"
)

var (
	anilistPathPattern = regexp.MustCompile(`^/(anime|manga)/(\d+)(?:/|$)`)
	graphqlStatus      = regexp.MustCompile(`status code: (\d{3})`)
)

// AniList resolves anime and manga pages through the AniList GraphQL API.
// It also backs the discovery queries (top titles, search).
type AniList struct {
	client *Client
	gql    *graphql.Client
}

func NewAniList(c *Client) *AniList {
	return NewAniListWithEndpoint(c, anilistEndpoint)
}

func NewAniListWithEndpoint(c *Client, endpoint string) *AniList {
	return &AniList{client: c, gql: graphql.NewClient(endpoint, c.HTTP())}
}

func (s *AniList) Name() string { return "anilist" }

func (s *AniList) Matches(u *url.URL) bool { return hostIn(u, "anilist.co") }

func (s *AniList) Identify(u *url.URL) (string, error) {
	m := anilistPathPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("%w: expected /anime/<id> or /manga/<id>, got %s", ErrInvalidIdentifier, u.Path)
	}
	return m[2], nil
}

// The names of these types are sent as GraphQL variable types, so they
// must match the AniList schema.
type (
	MediaType   string
	MediaSort   string
	CountryCode string
)

type alMedia struct {
	ID    int `graphql:"id"`
	Title struct {
		Romaji  *string `graphql:"romaji"`
		English *string `graphql:"english"`
	} `graphql:"title"`
	CoverImage struct {
		ExtraLarge *string `graphql:"extraLarge"`
		Large      *string `graphql:"large"`
	} `graphql:"coverImage"`
	Episodes          *int    `graphql:"episodes"`
	Chapters          *int    `graphql:"chapters"`
	Volumes           *int    `graphql:"volumes"`
	Type              *string `graphql:"type"`
	CountryOfOrigin   *string `graphql:"countryOfOrigin"`
	Status            *string `graphql:"status"`
	SiteURL           *string `graphql:"siteUrl"`
	NextAiringEpisode struct {
		Episode *int `graphql:"episode"`
	} `graphql:"nextAiringEpisode"`
}

func (s *AniList) Fetch(ctx context.Context, m SourceMatch) (Result, error) {
	id, err := strconv.Atoi(m.ID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, m.ID)
	}

	var q struct {
		Media alMedia `graphql:"Media(id: $id)"`
	}
	vars := map[string]any{"id": graphql.Int(id)}
	if err := s.query(ctx, &q, vars); err != nil {
		return Result{}, fmt.Errorf("media %d: %w", id, err)
	}
	if q.Media.ID == 0 {
		return Result{}, fmt.Errorf("%w: media %d", ErrMediaNotFound, id)
	}

	md := q.Media
	t := mediaType(md)
	total := 0
	if t == models.MediaAnime {
		total = deref(md.Episodes)
	} else {
		total = deref(md.Chapters)
	}

	return Result{
		Title:            mediaTitle(md),
		ImageURL:         firstNonEmpty(deref(md.CoverImage.ExtraLarge), deref(md.CoverImage.Large)),
		ImagePlaceholder: AniListPlaceholderImage,
		Total:            total,
		Type:             t,
		Country:          deref(md.CountryOfOrigin),
	}, nil
}

// query runs q with the client's retry policy and maps failures onto the
// scraper error kinds.
func (s *AniList) query(ctx context.Context, q any, vars map[string]any) error {
	err := retry.Do(
		func() error { return graphqlError(s.gql.Query(ctx, q, vars)) },
		retry.Context(ctx),
		retry.Attempts(uint(s.client.maxRetries)+1),
		retry.Delay(s.client.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err == nil {
		return nil
	}
	var se *statusError
	if errors.As(err, &se) && se.Code == 404 {
		return fmt.Errorf("%w: %v", ErrMediaNotFound, err)
	}
	if errors.Is(err, ErrMediaNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSourceFetch, err)
}

// graphqlError recovers the HTTP status from the graphql client's error
// text so the retry policy can tell 4xx from 5xx.
func graphqlError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if m := graphqlStatus.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		return &statusError{Code: code, Body: truncate(msg, 200)}
	}
	// 200 responses carrying a GraphQL error
	if strings.Contains(strings.ToLower(msg), "not found") {
		return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrMediaNotFound, msg))
	}
	return err
}

func mediaType(md alMedia) models.MediaType {
	if strings.EqualFold(deref(md.Type), "ANIME") {
		return models.MediaAnime
	}
	if strings.EqualFold(deref(md.CountryOfOrigin), "KR") {
		return models.MediaManhwa
	}
	return models.MediaManga
}

func mediaTitle(md alMedia) string {
	return firstNonEmpty(deref(md.Title.English), deref(md.Title.Romaji))
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
