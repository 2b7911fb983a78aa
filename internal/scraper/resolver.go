package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"titletrack/pkg/config"
	"titletrack/pkg/models"
)

type Resolver struct {
	Registry *Registry
}

func NewResolver(reg *Registry) *Resolver {
	return &Resolver{Registry: reg}
}

// NewDefaultResolver wires the built-in sources, each with its own client,
// limiter and timeout. transport may be nil.
func NewDefaultResolver(cfg config.SourcesConfig, transport http.RoundTripper) *Resolver {
	opts := func(name string) ClientOptions {
		return ClientOptions{
			Name:              name,
			Timeout:           cfg.Timeout(),
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
			MaxRetries:        cfg.MaxRetries,
			UserAgent:         cfg.UserAgent,
			Transport:         transport,
		}
	}

	reg := NewRegistry(
		NewMangaDex(NewClient(opts("mangadex"))),
		NewAniList(NewClient(opts("anilist"))),
		NewHiAnime(NewClient(opts("hianime"))),
		NewAsura(NewClient(opts("asura"))),
	)
	if cfg.GenericFallback {
		reg.WithFallback(NewGeneric(NewClient(opts("generic"))))
	}
	return NewResolver(reg)
}

// Resolve turns a title page URL into a TitleInfo. Errors from the chosen
// source are returned as-is apart from a source-name prefix; no other
// source is tried once one has matched.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (models.TitleInfo, error) {
	u, err := parseTitleURL(rawURL)
	if err != nil {
		return models.TitleInfo{}, err
	}

	m, err := r.Registry.Match(u)
	if err != nil {
		return models.TitleInfo{}, err
	}

	start := time.Now()
	logger := log.With().Str("source", m.Source.Name()).Str("id", m.ID).Logger()

	res, err := m.Source.Fetch(ctx, m)
	if err != nil {
		logger.Warn().Err(err).Dur("took", time.Since(start)).Msg("resolve failed")
		return models.TitleInfo{}, fmt.Errorf("%s: %w", m.Source.Name(), err)
	}

	info, err := Normalize(u, res)
	if err != nil {
		logger.Warn().Err(err).Msg("normalize failed")
		return models.TitleInfo{}, fmt.Errorf("%s: %w", m.Source.Name(), err)
	}

	logger.Debug().Str("title", info.Title).Int("total", info.Total).Dur("took", time.Since(start)).Msg("resolved")
	return info, nil
}

// Discovery returns the AniList source used for top lists and search, or
// nil when the registry has none.
func (r *Resolver) Discovery() *AniList {
	al, _ := r.Registry.Lookup("anilist").(*AniList)
	return al
}

func parseTitleURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty url", ErrUnsupportedSource)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url %q", ErrUnsupportedSource, raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrUnsupportedSource, raw)
	}
	return u, nil
}
