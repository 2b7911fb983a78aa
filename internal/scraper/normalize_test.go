package scraper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titletrack/pkg/models"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNormalizeImageIsAbsolute(t *testing.T) {
	pageURL := mustURL(t, "https://example.org/series/some-title?x=1")
	tests := []struct {
		raw  string
		want string
	}{
		{"https://cdn.example/a.jpg", "https://cdn.example/a.jpg"},
		{"//cdn.example/b.jpg", "https://cdn.example/b.jpg"},
		{"/img/c.jpg", "https://example.org/img/c.jpg"},
		{"img/d.jpg", "https://example.org/img/d.jpg"},
		{"  /img/e.jpg  ", "https://example.org/img/e.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			info, err := Normalize(pageURL, Result{Title: "T", ImageURL: tt.raw})
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.ImageURL)

			parsed, err := url.Parse(info.ImageURL)
			require.NoError(t, err)
			assert.NotEmpty(t, parsed.Scheme)
			assert.NotEmpty(t, parsed.Host)
		})
	}
}

func TestNormalizeRejectsNonWebImages(t *testing.T) {
	pageURL := mustURL(t, "https://hianime.to/x-1")
	for _, raw := range []string{"javascript:void(0)", "mailto:a@b", "about:blank", "https:/img.jpg", "ftp://cdn.example/a.jpg"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Normalize(pageURL, Result{Title: "T", ImageURL: raw})
			require.ErrorIs(t, err, ErrParsePatternMismatch)

			info, err := Normalize(pageURL, Result{Title: "T", ImageURL: raw, ImagePlaceholder: "https://cdn.example/none.jpg"})
			require.NoError(t, err)
			assert.Equal(t, "https://cdn.example/none.jpg", info.ImageURL)
		})
	}
}

func TestNormalizePlaceholders(t *testing.T) {
	pageURL := mustURL(t, "https://example.org/x")

	info, err := Normalize(pageURL, Result{TitlePlaceholder: "Unknown Title", ImagePlaceholder: "https://p/x.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "Unknown Title", info.Title)
	assert.Equal(t, "https://p/x.jpg", info.ImageURL)

	_, err = Normalize(pageURL, Result{ImageURL: "https://p/x.jpg"})
	assert.ErrorIs(t, err, ErrParsePatternMismatch)

	_, err = Normalize(pageURL, Result{Title: "T", ImageURL: "data:image/gif;base64,R0lGOD"})
	assert.ErrorIs(t, err, ErrParsePatternMismatch)
}

func TestNormalizeTitleWhitespace(t *testing.T) {
	info, err := Normalize(mustURL(t, "https://e.org"), Result{Title: "  The \n  Title ", ImageURL: "https://i/x"})
	require.NoError(t, err)
	assert.Equal(t, "The Title", info.Title)
}

func TestNormalizeClampsTotal(t *testing.T) {
	info, err := Normalize(mustURL(t, "https://e.org"), Result{Title: "T", ImageURL: "https://i/x", Total: -3})
	require.NoError(t, err)
	assert.Equal(t, 0, info.Total)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   Result
		want models.MediaType
	}{
		{"explicit wins over country", Result{Type: models.MediaAnime, Country: "KR"}, models.MediaAnime},
		{"korean origin", Result{Country: "kr"}, models.MediaManhwa},
		{"episode cue", Result{Cues: []string{"video.tv_show", "Watch all episodes"}}, models.MediaAnime},
		{"webtoon cue", Result{Cues: []string{"read the webtoon"}}, models.MediaManhwa},
		{"chapter cue", Result{Cues: []string{"Read chapter 12"}}, models.MediaManga},
		{"nothing known", Result{}, models.MediaManga},
		{"japanese origin no cues", Result{Country: "JP"}, models.MediaManga},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.in))
		})
	}
}
