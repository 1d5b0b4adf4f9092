package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"plantpedia/internal/isr"
	"plantpedia/internal/pages"
)

// StaticTargets enumerates every statically generated page: home, entry and
// category paths for each configured locale.
func (s *Server) StaticTargets(ctx context.Context) ([]isr.Target, error) {
	home, err := s.resolver.HomePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("home paths: %w", err)
	}
	entries, err := s.resolver.EntryPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("entry paths: %w", err)
	}
	categories, err := s.resolver.CategoryPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("category paths: %w", err)
	}

	var targets []isr.Target
	for _, p := range home.Paths {
		locale := p.Locale
		targets = append(targets, isr.Target{
			Key: isr.Key(locale, "/"), Locale: locale, Path: "/",
			Generate: func(ctx context.Context) (isr.Page, error) { return s.renderHome(ctx, locale) },
		})
	}
	for _, p := range entries.Paths {
		locale, slug := p.Locale, p.Params[pages.ParamSlug]
		path := "/entry/" + slug
		targets = append(targets, isr.Target{
			Key: isr.Key(locale, path), Locale: locale, Path: path,
			Generate: func(ctx context.Context) (isr.Page, error) { return s.renderEntry(ctx, slug, locale, false) },
		})
	}
	for _, p := range categories.Paths {
		locale, slug := p.Locale, p.Params[pages.ParamCategorySlug]
		path := "/category/" + slug
		targets = append(targets, isr.Target{
			Key: isr.Key(locale, path), Locale: locale, Path: path,
			Generate: func(ctx context.Context) (isr.Page, error) { return s.renderCategory(ctx, slug, locale) },
		})
	}
	return targets, nil
}

// Prebuild renders the static page set into the store. A content source
// outage is logged and does not stop the server; pages are then generated on
// first request.
func (s *Server) Prebuild(ctx context.Context) {
	stats, err := s.engine.Prebuild(ctx, s.StaticTargets)
	if err != nil {
		log.Error().Err(err).Msg("prebuild static pages")
		return
	}
	log.Info().
		Int("targets", stats.Targets).
		Int("rendered", stats.Rendered).
		Int("failed", stats.Failed).
		Msg("prebuild finished")
}

// NewWarmer schedules periodic prebuilds per isr.warm_schedule.
func (s *Server) NewWarmer() (*isr.Warmer, error) {
	return isr.NewWarmer(s.engine, s.cfg.ISR.WarmSchedule, s.StaticTargets)
}

// PublicPath is the URL path of an unprefixed path in locale.
func (s *Server) PublicPath(locale, path string) string {
	return localizePath(locale, s.bundle.Default(), path)
}
