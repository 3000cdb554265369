// Package query turns domain views into filter requests against the
// document collection.
package query

import (
	"context"
	"fmt"

	"github.com/starford/sanctum/internal/apperr"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
)

// Router issues tag-scoped reads. It holds no state beyond its collaborators,
// so every call re-fetches.
type Router struct {
	store    storage.Provider
	registry *tags.Registry
}

// NewRouter creates a router over store using registry for tag rules.
func NewRouter(store storage.Provider, registry *tags.Registry) *Router {
	return &Router{store: store, registry: registry}
}

// Registry returns the tag registry the router classifies with.
func (r *Router) Registry() *tags.Registry {
	return r.registry
}

// FetchByTag returns documents whose title starts with tag. Documents the
// registry attributes to a different domain are dropped.
func (r *Router) FetchByTag(ctx context.Context, tag string, sort storage.Sort) ([]storage.Document, error) {
	want, ok := r.registry.MatchesAny(tag)
	if !ok {
		return nil, fmt.Errorf("query: %w: unregistered tag %q", apperr.ErrValidation, tag)
	}
	sort, err := checkSort(sort)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.Filter(ctx, storage.Query{
		Title: &storage.TitleMatch{Pattern: tags.PrefixPattern(tag)},
	}, sort)
	if err != nil {
		return nil, apperr.OperationFailed("query: fetch "+tag, err)
	}
	return r.keep(docs, func(d tags.Domain) bool { return d == want }), nil
}

// FetchDomain is FetchByTag keyed on the domain instead of its tag.
func (r *Router) FetchDomain(ctx context.Context, d tags.Domain, sort storage.Sort) ([]storage.Document, error) {
	tag := r.registry.PrefixFor(d)
	if tag == "" {
		return nil, fmt.Errorf("query: %w: domain %q has no tag", apperr.ErrValidation, d)
	}
	return r.FetchByTag(ctx, tag, sort)
}

// FetchUntagged returns the caller's documents whose title starts with no
// registered tag.
func (r *Router) FetchUntagged(ctx context.Context, sort storage.Sort) ([]storage.Document, error) {
	q := storage.Query{CreatedBy: storage.OwnerFrom(ctx)}
	if p := r.registry.ExclusionPattern(); p != "" {
		q.Title = &storage.TitleMatch{Pattern: p, Negate: true}
	}
	sort, err := checkSort(sort)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.Filter(ctx, q, sort)
	if err != nil {
		return nil, apperr.OperationFailed("query: fetch untagged", err)
	}
	return r.keep(docs, func(d tags.Domain) bool { return d == tags.Note }), nil
}

func (r *Router) keep(docs []storage.Document, want func(tags.Domain) bool) []storage.Document {
	out := docs[:0]
	for _, doc := range docs {
		if want(r.registry.Classify(doc.Title)) {
			out = append(out, doc)
		}
	}
	return out
}

func checkSort(s storage.Sort) (storage.Sort, error) {
	if s == "" {
		return storage.DefaultSort, nil
	}
	if _, _, err := s.Parse(); err != nil {
		return "", err
	}
	return s, nil
}
