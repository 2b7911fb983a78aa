package scraper

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titletrack/pkg/models"
)

func anilistResolver(rt roundTripFunc) *Resolver {
	return NewResolver(NewRegistry(NewAniList(testClient(rt))))
}

func TestAniListResolveAnime(t *testing.T) {
	r := anilistResolver(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "graphql.anilist.co", req.URL.Host)
		body := decodeGraphQL(t, req)
		assert.Contains(t, body.Query, "Media(id: $id)")
		assert.EqualValues(t, 1535, body.Variables["id"])
		return respond(http.StatusOK, `{"data":{"Media":{"id":1535,"title":{"romaji":"Death Note","english":null},"coverImage":{"extraLarge":"https://s4.anilist.co/file/anilistcdn/media/anime/cover/large/bx1535.jpg","large":null},"episodes":37,"chapters":null,"type":"ANIME","countryOfOrigin":"JP"}}}`)
	})

	info, err := r.Resolve(context.Background(), "https://anilist.co/anime/1535")
	require.NoError(t, err)
	assert.Equal(t, "Death Note", info.Title)
	assert.Equal(t, 37, info.Total)
	assert.Equal(t, models.MediaAnime, info.Type)
	assert.Equal(t, "https://s4.anilist.co/file/anilistcdn/media/anime/cover/large/bx1535.jpg", info.ImageURL)
}

func TestAniListTypeClassification(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		country   string
		want      models.MediaType
		total     int
	}{
		{"korean manga is manhwa", "MANGA", "KR", models.MediaManhwa, 120},
		{"japanese manga", "MANGA", "JP", models.MediaManga, 120},
		{"chinese manga stays manga", "MANGA", "CN", models.MediaManga, 120},
		{"korean anime is anime", "ANIME", "KR", models.MediaAnime, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := anilistResolver(func(req *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `{"data":{"Media":{"id":1,"title":{"romaji":"X","english":"Y"},"coverImage":{"extraLarge":null,"large":"https://img/x.jpg"},"episodes":12,"chapters":120,"type":"`+tt.mediaType+`","countryOfOrigin":"`+tt.country+`"}}}`)
			})

			info, err := r.Resolve(context.Background(), "https://anilist.co/manga/1/some-title")
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Type)
			assert.Equal(t, tt.total, info.Total)
			assert.Equal(t, "Y", info.Title)
		})
	}
}

func TestAniListNullCountIsZero(t *testing.T) {
	r := anilistResolver(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{"data":{"Media":{"id":2,"title":{"romaji":"Ongoing","english":null},"coverImage":{"extraLarge":"https://img/o.jpg"},"episodes":null,"chapters":null,"type":"MANGA","countryOfOrigin":"JP"}}}`)
	})

	info, err := r.Resolve(context.Background(), "https://anilist.co/manga/2")
	require.NoError(t, err)
	assert.Equal(t, 0, info.Total)
	assert.Equal(t, models.MediaManga, info.Type)
}

func TestAniListMediaNotFound(t *testing.T) {
	t.Run("null media", func(t *testing.T) {
		r := anilistResolver(func(req *http.Request) (*http.Response, error) {
			return respond(http.StatusOK, `{"data":{"Media":null}}`)
		})
		_, err := r.Resolve(context.Background(), "https://anilist.co/anime/999999")
		assert.ErrorIs(t, err, ErrMediaNotFound)
	})

	t.Run("upstream 404", func(t *testing.T) {
		r := anilistResolver(func(req *http.Request) (*http.Response, error) {
			return respond(http.StatusNotFound, `{"errors":[{"message":"Not Found.","status":404}],"data":{"Media":null}}`)
		})
		_, err := r.Resolve(context.Background(), "https://anilist.co/anime/999999")
		assert.ErrorIs(t, err, ErrMediaNotFound)
	})
}

func TestAniListServerErrorIsFetchError(t *testing.T) {
	r := anilistResolver(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusInternalServerError, `oops`)
	})

	_, err := r.Resolve(context.Background(), "https://anilist.co/anime/1")
	assert.ErrorIs(t, err, ErrSourceFetch)
	assert.NotErrorIs(t, err, ErrMediaNotFound)
}

func TestAniListRetriesServerErrors(t *testing.T) {
	calls := 0
	c := NewClient(ClientOptions{MaxRetries: 2, RetryDelay: 1, Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return respond(http.StatusServiceUnavailable, "busy")
		}
		return respond(http.StatusOK, `{"data":{"Media":{"id":5,"title":{"romaji":"Later"},"coverImage":{"large":"https://img/l.jpg"},"episodes":3,"type":"ANIME"}}}`)
	})})
	r := NewResolver(NewRegistry(NewAniList(c)))

	info, err := r.Resolve(context.Background(), "https://anilist.co/anime/5")
	require.NoError(t, err)
	assert.Equal(t, "Later", info.Title)
	assert.Equal(t, 3, calls)
}

func TestAniListInvalidIdentifier(t *testing.T) {
	r := anilistResolver(func(req *http.Request) (*http.Response, error) {
		t.Error("no request expected")
		return respond(http.StatusOK, "{}")
	})

	for _, raw := range []string{
		"https://anilist.co/user/someone",
		"https://anilist.co/anime/abc",
		"https://anilist.co/",
	} {
		_, err := r.Resolve(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, raw)
	}
}

func TestAniListTopManhwa(t *testing.T) {
	a := NewAniList(testClient(func(req *http.Request) (*http.Response, error) {
		body := decodeGraphQL(t, req)
		assert.Contains(t, body.Query, "status_not_in: [NOT_YET_RELEASED]")
		assert.Equal(t, "MANGA", body.Variables["type"])
		assert.Equal(t, "KR", body.Variables["country"])
		assert.EqualValues(t, 5, body.Variables["perPage"])
		return respond(http.StatusOK, `{"data":{"Page":{"media":[
			{"id":1,"title":{"romaji":"Na Honjaman","english":"Solo Leveling"},"coverImage":{"large":"https://img/s.jpg"},"chapters":200,"volumes":14,"type":"MANGA","countryOfOrigin":"KR","status":"FINISHED","siteUrl":"https://anilist.co/manga/1"},
			{"id":2,"title":{"romaji":"Ongoing"},"coverImage":{"large":"https://img/o.jpg"},"chapters":null,"volumes":4,"type":"MANGA","countryOfOrigin":"KR","status":"RELEASING"},
			{"id":3,"title":{"romaji":"No Cover"},"coverImage":{"large":null},"type":"MANGA"}
		]}}}`)
	}))

	got, err := a.Top(context.Background(), "manhwa")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Solo Leveling", got[0].Title)
	assert.Equal(t, 200, got[0].Total)
	assert.Equal(t, models.MediaManhwa, got[0].Type)
	assert.Equal(t, "https://anilist.co/manga/1", got[0].SourceURL)
	// volumes stand in for an unknown chapter count
	assert.Equal(t, 4, got[1].Total)
}

func TestAniListTopAnimeUsesAiredEpisodes(t *testing.T) {
	a := NewAniList(testClient(func(req *http.Request) (*http.Response, error) {
		body := decodeGraphQL(t, req)
		assert.Equal(t, "ANIME", body.Variables["type"])
		assert.Nil(t, body.Variables["country"])
		return respond(http.StatusOK, `{"data":{"Page":{"media":[
			{"id":1,"title":{"romaji":"Airing"},"coverImage":{"large":"https://img/a.jpg"},"episodes":null,"type":"ANIME","countryOfOrigin":"JP","status":"RELEASING","nextAiringEpisode":{"episode":9}}
		]}}}`)
	}))

	got, err := a.Top(context.Background(), "ANIME")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 8, got[0].Total)
	assert.Equal(t, models.MediaAnime, got[0].Type)
}

func TestAniListTopUnknownCategory(t *testing.T) {
	a := NewAniList(testClient(func(req *http.Request) (*http.Response, error) {
		t.Error("no request expected")
		return respond(http.StatusOK, "{}")
	}))
	_, err := a.Top(context.Background(), "novels")
	assert.Error(t, err)
}

func TestAniListTopAll(t *testing.T) {
	a := NewAniList(testClient(func(req *http.Request) (*http.Response, error) {
		body := decodeGraphQL(t, req)
		name := body.Variables["type"].(string)
		if c, ok := body.Variables["country"].(string); ok {
			name += "-" + c
		}
		return respond(http.StatusOK, `{"data":{"Page":{"media":[{"id":1,"title":{"romaji":"`+name+`"},"coverImage":{"large":"https://img/x.jpg"},"type":"`+body.Variables["type"].(string)+`","countryOfOrigin":"KR"}]}}}`)
	}))

	got, err := a.TopAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ANIME", got[models.MediaAnime][0].Title)
	assert.Equal(t, "MANGA-JP", got[models.MediaManga][0].Title)
	assert.Equal(t, "MANGA-KR", got[models.MediaManhwa][0].Title)
}

func TestAniListSearchAnimeFirstAndCapped(t *testing.T) {
	mediaPage := func(prefix, mediaType string, n int) string {
		items := make([]string, n)
		for i := range items {
			items[i] = `{"id":1,"title":{"romaji":"` + prefix + `"},"coverImage":{"large":"https://img/x.jpg"},"episodes":1,"chapters":2,"type":"` + mediaType + `","countryOfOrigin":"JP"}`
		}
		return `{"data":{"Page":{"media":[` + strings.Join(items, ",") + `]}}}`
	}
	a := NewAniList(testClient(func(req *http.Request) (*http.Response, error) {
		body := decodeGraphQL(t, req)
		assert.Equal(t, "frieren", body.Variables["search"])
		assert.Contains(t, body.Query, "sort: [SEARCH_MATCH]")
		if body.Variables["type"] == "ANIME" {
			return respond(http.StatusOK, mediaPage("anime", "ANIME", 4))
		}
		return respond(http.StatusOK, mediaPage("manga", "MANGA", 10))
	}))

	got, err := a.Search(context.Background(), "  frieren ")
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i := 0; i < 4; i++ {
		assert.Equal(t, models.MediaAnime, got[i].Type)
		assert.Equal(t, 1, got[i].Total)
	}
	assert.Equal(t, models.MediaManga, got[4].Type)
	assert.Equal(t, 2, got[4].Total)
}

func TestAniListSearchEmptyQuery(t *testing.T) {
	a := NewAniList(testClient(func(req *http.Request) (*http.Response, error) {
		t.Error("no request expected")
		return respond(http.StatusOK, "{}")
	}))
	got, err := a.Search(context.Background(), " ")
	require.NoError(t, err)
	assert.Empty(t, got)
}
