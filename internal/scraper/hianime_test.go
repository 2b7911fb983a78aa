package scraper

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titletrack/pkg/models"
)

func hianimeResolver(t *testing.T, status int, html string) *Resolver {
	return NewResolver(NewRegistry(NewHiAnime(testClient(func(req *http.Request) (*http.Response, error) {
		assert.Contains(t, req.Header.Get("User-Agent"), "Mozilla/5.0")
		return respond(status, html)
	}))))
}

func TestHiAnimeDetailPage(t *testing.T) {
	html := page(
		`<meta property="og:title" content="Watch Frieren: Beyond Journey's End English Sub/Dub online Free on HiAnime.to">
		<meta property="og:image" content="https://cdn.example/og.jpg">`,
		`<div class="anis-content">
			<div class="film-poster"><img class="film-poster-img" data-src="/images/frieren.jpg" src="/images/lazy.gif"></div>
			<div class="anisc-detail">
				<h2 class="film-name dynamic-name" itemprop="name">Frieren: Beyond Journey's End</h2>
				<div class="film-stats"><div class="tick"><div class="tick-item tick-sub"><i></i>28</div><div class="tick-item tick-dub">28</div><span class="item">TV</span></div></div>
			</div>
		</div>`,
	)

	info, err := hianimeResolver(t, http.StatusOK, html).Resolve(context.Background(), "https://hianime.to/frieren-beyond-journeys-end-18542")
	require.NoError(t, err)
	assert.Equal(t, models.TitleInfo{
		Title:    "Frieren: Beyond Journey's End",
		ImageURL: "https://hianime.to/images/frieren.jpg",
		Total:    28,
		Type:     models.MediaAnime,
	}, info)
}

func TestHiAnimeFallsBackToSocialMeta(t *testing.T) {
	html := page(
		`<meta property="og:title" content="Watch Your Name English Sub/Dub online Free on HiAnime.to">
		<meta property="og:image" content="//cdn.noitatnemucod.net/thumbnail/your-name.jpg">`,
		`<div class="film-stats"><span class="item">Movie</span></div>`,
	)

	info, err := hianimeResolver(t, http.StatusOK, html).Resolve(context.Background(), "https://aniwatch.to/your-name-16")
	require.NoError(t, err)
	assert.Equal(t, "Your Name", info.Title)
	assert.Equal(t, "https://cdn.noitatnemucod.net/thumbnail/your-name.jpg", info.ImageURL)
	// a format badge without an episode badge is a single release
	assert.Equal(t, 1, info.Total)
}

func TestHiAnimeNoBadgesCountsZero(t *testing.T) {
	html := page(`<meta property="og:image" content="https://cdn.example/x.jpg">`,
		`<h2 itemprop="name">Upcoming Show</h2>`)

	info, err := hianimeResolver(t, http.StatusOK, html).Resolve(context.Background(), "https://hianime.to/upcoming-show-1")
	require.NoError(t, err)
	assert.Equal(t, "Upcoming Show", info.Title)
	assert.Equal(t, 0, info.Total)
}

func TestHiAnimeBlocked(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"forbidden", http.StatusForbidden, page("", "<p>denied</p>")},
		{"challenge page", http.StatusOK, "<html><body>Just a moment...</body></html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hianimeResolver(t, tt.status, tt.body).Resolve(context.Background(), "https://hianime.to/one-piece-100")
			assert.ErrorIs(t, err, ErrFetchBlocked)
		})
	}
}

func TestHiAnimeMissingTitle(t *testing.T) {
	html := page(`<meta property="og:image" content="https://cdn.example/x.jpg">`, `<div>nothing here</div>`)

	_, err := hianimeResolver(t, http.StatusOK, html).Resolve(context.Background(), "https://hianime.to/one-piece-100")
	assert.ErrorIs(t, err, ErrParsePatternMismatch)
}

func TestCleanHiAnimeTitle(t *testing.T) {
	assert.Equal(t, "One Piece", cleanHiAnimeTitle("Watch One Piece English Sub/Dub online Free on HiAnime.to"))
	assert.Equal(t, "One Piece", cleanHiAnimeTitle("One Piece - HiAnime"))
	assert.Equal(t, "Bleach", cleanHiAnimeTitle("Bleach | AniWatch"))
	assert.Equal(t, "Watchmen", cleanHiAnimeTitle("Watchmen"))
	assert.Equal(t, "Love at HiAnime Academy", cleanHiAnimeTitle("Love at HiAnime Academy"))
	assert.Equal(t, "Frieren", cleanHiAnimeTitle("Watch Frieren on HiAnime.to"))
}
