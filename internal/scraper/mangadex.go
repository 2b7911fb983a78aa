package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"titletrack/pkg/models"
)

const (
	// MangaDex API base (public)
	mangadexBase      = "https://api.mangadex.org"
	mangadexCoverBase = "https://uploads.mangadex.org/covers"

	// MangaDexPlaceholderImage stands in when a title has no usable cover.
	MangaDexPlaceholderImage = "https://picsum.photos/seed/mangadex-fallback/400/600"

	unknownTitle = "Unknown Title"
)

var mangadexIDPattern = regexp.MustCompile(`/title/([a-f0-9-]+)`)

// MangaDex reads a title from the MangaDex REST API: the manga record, its
// cover and a chapter count.
type MangaDex struct {
	BaseURL string
	client  *Client
}

func NewMangaDex(c *Client) *MangaDex {
	return &MangaDex{BaseURL: mangadexBase, client: c}
}

func (s *MangaDex) Name() string { return "mangadex" }

func (s *MangaDex) Matches(u *url.URL) bool { return hostIn(u, "mangadex.org") }

func (s *MangaDex) Identify(u *url.URL) (string, error) {
	m := mangadexIDPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("%w: no manga id in %s", ErrInvalidIdentifier, u.Path)
	}
	return m[1], nil
}

type mdMangaResponse struct {
	Result string `json:"result"`
	Data   struct {
		ID         string `json:"id"`
		Attributes struct {
			Title map[string]string `json:"title"`
		} `json:"attributes"`
		Relationships []struct {
			ID         string `json:"id"`
			Type       string `json:"type"`
			Attributes struct {
				FileName string `json:"fileName"` // only when includes[]=cover_art
			} `json:"attributes"`
		} `json:"relationships"`
	} `json:"data"`
}

type mdCoverResponse struct {
	Data struct {
		Attributes struct {
			FileName string `json:"fileName"`
		} `json:"attributes"`
	} `json:"data"`
}

type mdChapterList struct {
	Total *int `json:"total"`
}

func (s *MangaDex) Fetch(ctx context.Context, m SourceMatch) (Result, error) {
	var md mdMangaResponse
	if err := s.client.GetJSON(ctx, s.BaseURL+"/manga/"+url.PathEscape(m.ID), &md); err != nil {
		return Result{}, fmt.Errorf("manga %s: %w", m.ID, err)
	}

	coverID, coverFile := "", ""
	for _, rel := range md.Data.Relationships {
		if rel.Type == "cover_art" {
			coverID, coverFile = rel.ID, rel.Attributes.FileName
			break
		}
	}

	// cover and chapter count are independent and both best effort
	var (
		g      errgroup.Group
		image  string
		total  = 1
		logger = log.With().Str("source", s.Name()).Str("id", m.ID).Logger()
	)
	g.Go(func() error {
		if coverFile == "" && coverID != "" {
			coverFile = s.fetchCoverFile(ctx, coverID)
		}
		if coverFile != "" {
			image = fmt.Sprintf("%s/%s/%s", mangadexCoverBase, m.ID, coverFile)
		} else {
			logger.Debug().Str("cover", coverID).Msg("no cover, using placeholder")
		}
		return nil
	})
	g.Go(func() error {
		q := url.Values{}
		q.Set("manga", m.ID)
		q.Set("limit", "1")
		var list mdChapterList
		if err := s.client.GetJSON(ctx, s.BaseURL+"/chapter?"+q.Encode(), &list); err != nil {
			logger.Debug().Err(err).Msg("chapter count unavailable")
			return nil
		}
		if list.Total != nil {
			total = *list.Total
		}
		return nil
	})
	_ = g.Wait()

	return Result{
		Title:            pickTitle(md.Data.Attributes.Title),
		TitlePlaceholder: unknownTitle,
		ImageURL:         image,
		ImagePlaceholder: MangaDexPlaceholderImage,
		Total:            total,
		Type:             models.MediaManga,
	}, nil
}

func (s *MangaDex) fetchCoverFile(ctx context.Context, coverID string) string {
	var cover mdCoverResponse
	if err := s.client.GetJSON(ctx, s.BaseURL+"/cover/"+url.PathEscape(coverID), &cover); err != nil {
		return ""
	}
	return strings.TrimSpace(cover.Data.Attributes.FileName)
}

// pickTitle prefers English, then the first non-empty value by language key.
func pickTitle(titles map[string]string) string {
	if t := pickLang(titles, "en"); t != "" {
		return t
	}
	keys := make([]string, 0, len(titles))
	for k := range titles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t := pickLang(titles, k); t != "" {
			return t
		}
	}
	return ""
}

func pickLang(m map[string]string, lang string) string {
	if m == nil {
		return ""
	}
	if v := strings.TrimSpace(m[lang]); v != "" {
		return v
	}
	return ""
}
