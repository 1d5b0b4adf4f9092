package isr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"plantpedia/internal/pages"
)

const (
	defaultRegenerateTimeout = 30 * time.Second
	defaultMarkerTTL         = 10 * time.Minute
)

// GenerateFunc renders one page. A nil error means the returned page is the
// new truth for its key, whatever its status. A non-nil error marks a content
// source failure; the returned page, when it has a status, is what to serve
// if nothing better is stored.
type GenerateFunc func(ctx context.Context) (Page, error)

// Response is what the engine decided to serve.
type Response struct {
	Page Page
	// Placeholder is set when the page is being generated in the background
	// and the caller should render a loading page instead.
	Placeholder bool
	// Stale is set when Page is past its revalidation interval.
	Stale bool
}

// Engine serves pages from a Store and regenerates them on demand.
type Engine struct {
	store     Store
	timeout   time.Duration
	markerTTL time.Duration
	now       func() time.Time

	group singleflight.Group
	wg    sync.WaitGroup
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRegenerateTimeout bounds each background regeneration.
func WithRegenerateTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMarkerTTL sets how long a not-found marker is kept before the store may
// drop it.
func WithMarkerTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.markerTTL = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, timeout: defaultRegenerateTimeout, markerTTL: defaultMarkerTTL, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the backing store.
func (e *Engine) Store() Store {
	return e.store
}

// Serve answers key under the given fallback policy.
func (e *Engine) Serve(ctx context.Context, key string, fallback pages.Fallback, generate GenerateFunc) (Response, error) {
	cached, hit := e.lookup(ctx, key)
	if hit {
		if cached.Fresh(e.now()) {
			return Response{Page: cached}, nil
		}
		e.regenerateInBackground(ctx, key, generate)
		return Response{Page: cached, Stale: true}, nil
	}

	switch fallback {
	case pages.FallbackBlocking:
		page, err := e.regenerate(ctx, key, generate)
		if err != nil {
			return Response{}, err
		}
		return Response{Page: page}, nil
	case pages.FallbackTrue:
		e.regenerateInBackground(ctx, key, generate)
		return Response{Placeholder: true}, nil
	default:
		return Response{Page: Page{Key: key, Status: http.StatusNotFound}}, nil
	}
}

// Warm generates key when it is not stored yet. It reports whether a render
// happened.
func (e *Engine) Warm(ctx context.Context, key string, generate GenerateFunc) (bool, error) {
	if _, hit := e.lookup(ctx, key); hit {
		return false, nil
	}
	if _, err := e.regenerate(ctx, key, generate); err != nil {
		return false, err
	}
	return true, nil
}

// Close waits for background regenerations to finish.
func (e *Engine) Close() {
	e.wg.Wait()
}

func (e *Engine) lookup(ctx context.Context, key string) (Page, bool) {
	page, ok, err := e.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("page store read failed, treating as miss")
		return Page{}, false
	}
	if ok && page.Expired(e.now()) {
		return Page{}, false
	}
	return page, ok
}

func (e *Engine) regenerateInBackground(ctx context.Context, key string, generate GenerateFunc) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		if _, err := e.regenerate(bg, key, generate); err != nil {
			log.Error().Err(err).Str("key", key).Msg("background regeneration failed")
		}
	}()
}

// regenerate renders key once per concurrent burst and applies the outcome to
// the store.
func (e *Engine) regenerate(ctx context.Context, key string, generate GenerateFunc) (Page, error) {
	result, err, shared := e.group.Do(key, func() (interface{}, error) {
		return e.render(ctx, key, generate)
	})
	if err != nil {
		return Page{}, err
	}
	page, ok := result.(Page)
	if !ok {
		return Page{}, fmt.Errorf("regenerate %s: unexpected result %T", key, result)
	}
	if shared {
		log.Debug().Str("key", key).Msg("joined in-flight regeneration")
	}
	return page, nil
}

func (e *Engine) render(ctx context.Context, key string, generate GenerateFunc) (Page, error) {
	started := e.now()
	page, genErr := generate(ctx)
	page.Key = key
	if page.GeneratedAt.IsZero() {
		page.GeneratedAt = e.now()
	}

	if genErr != nil {
		previous, hit := e.lookup(ctx, key)
		if hit && previous.OK() {
			log.Error().Err(genErr).Str("key", key).Msg("regeneration failed, keeping stale page")
			return previous, nil
		}
		if page.Status == 0 {
			return Page{}, fmt.Errorf("generate %s: %w", key, genErr)
		}
		log.Error().Err(genErr).Str("key", key).Int("status", page.Status).Msg("generation failed, storing fallback page")
	}

	if page.Status == 0 {
		page.Status = http.StatusOK
	}
	if page.Status == http.StatusNotFound {
		// Markers are rendered by the caller at serve time.
		page.Body = nil
		page.ExpiresAt = page.GeneratedAt.Add(e.markerTTL)
	}
	if err := e.store.Put(ctx, page); err != nil {
		if errors.Is(err, context.Canceled) {
			return page, nil
		}
		log.Error().Err(err).Str("key", key).Msg("page store write failed")
	}

	log.Info().
		Str("key", key).
		Int("status", page.Status).
		Dur("took", e.now().Sub(started)).
		Msg("page generated")
	return page, nil
}
