package scraper

import (
	"fmt"
	"net/url"
)

// Registry holds sources in priority order. The first source whose Matches
// returns true wins; the fallback is only consulted when none do.
type Registry struct {
	sources  []Source
	fallback Source
}

func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// WithFallback sets the source used for URLs no specific source recognises.
func (r *Registry) WithFallback(s Source) *Registry {
	r.fallback = s
	return r
}

func (r *Registry) Sources() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Lookup returns the registered source with the given name, or nil.
func (r *Registry) Lookup(name string) Source {
	for _, s := range r.sources {
		if s.Name() == name {
			return s
		}
	}
	if r.fallback != nil && r.fallback.Name() == name {
		return r.fallback
	}
	return nil
}

// Match selects the source for u and extracts its id.
func (r *Registry) Match(u *url.URL) (SourceMatch, error) {
	src := r.pick(u)
	if src == nil {
		return SourceMatch{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, u.Hostname())
	}

	id, err := src.Identify(u)
	if err != nil {
		return SourceMatch{}, fmt.Errorf("%s: %w", src.Name(), err)
	}
	return SourceMatch{Source: src, URL: u, ID: id}, nil
}

func (r *Registry) pick(u *url.URL) Source {
	for _, s := range r.sources {
		if s.Matches(u) {
			return s
		}
	}
	if r.fallback != nil && r.fallback.Matches(u) {
		return r.fallback
	}
	return nil
}
