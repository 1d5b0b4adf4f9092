package pages

import (
	"context"
	"errors"
)

// Fallback decides what happens when a path that was not enumerated at build
// time is requested.
type Fallback string

const (
	// FallbackFalse answers unknown paths with NotFound.
	FallbackFalse Fallback = "false"
	// FallbackTrue serves a loading placeholder and generates in the background.
	FallbackTrue Fallback = "true"
	// FallbackBlocking generates synchronously before answering.
	FallbackBlocking Fallback = "blocking"
)

// ErrMissingLocales is returned when paths are enumerated without locales.
var ErrMissingLocales = errors.New("pages: no locales configured")

// Path is one statically generated page: a route parameter set in a locale.
type Path struct {
	Params map[string]string
	Locale string
}

// StaticPaths is the enumeration for one route family.
type StaticPaths struct {
	Route    string
	Paths    []Path
	Fallback Fallback
}

// EnumeratePaths produces one Path per (value, locale) pair, value-major, in
// input order.
func EnumeratePaths(param string, values, locales []string) ([]Path, error) {
	if len(locales) == 0 {
		return nil, ErrMissingLocales
	}
	paths := make([]Path, 0, len(values)*len(locales))
	for _, v := range values {
		for _, locale := range locales {
			paths = append(paths, Path{Params: map[string]string{param: v}, Locale: locale})
		}
	}
	return paths, nil
}

// EntryPaths enumerates known plant slugs.
func (r *Resolver) EntryPaths(ctx context.Context) (StaticPaths, error) {
	plants, err := r.src.GetPlantList(ctx, listQuery(pathLimit, ""))
	if err != nil {
		return StaticPaths{}, err
	}
	slugs := make([]string, 0, len(plants))
	for _, p := range plants {
		slugs = append(slugs, p.Slug)
	}
	paths, err := EnumeratePaths(ParamSlug, slugs, r.locales)
	if err != nil {
		return StaticPaths{}, err
	}
	return StaticPaths{Route: RouteEntry, Paths: paths, Fallback: FallbackTrue}, nil
}

// CategoryPaths enumerates known category slugs.
func (r *Resolver) CategoryPaths(ctx context.Context) (StaticPaths, error) {
	categories, err := r.src.GetCategoryList(ctx, listQuery(pathLimit, ""))
	if err != nil {
		return StaticPaths{}, err
	}
	slugs := make([]string, 0, len(categories))
	for _, c := range categories {
		slugs = append(slugs, c.Slug)
	}
	paths, err := EnumeratePaths(ParamCategorySlug, slugs, r.locales)
	if err != nil {
		return StaticPaths{}, err
	}
	return StaticPaths{Route: RouteCategory, Paths: paths, Fallback: FallbackBlocking}, nil
}

// HomePaths has one path per locale.
func (r *Resolver) HomePaths(context.Context) (StaticPaths, error) {
	if len(r.locales) == 0 {
		return StaticPaths{}, ErrMissingLocales
	}
	paths := make([]Path, 0, len(r.locales))
	for _, locale := range r.locales {
		paths = append(paths, Path{Params: map[string]string{}, Locale: locale})
	}
	return StaticPaths{Route: RouteHome, Paths: paths, Fallback: FallbackBlocking}, nil
}
