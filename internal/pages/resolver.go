package pages

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"plantpedia/internal/content"
)

// Route families.
const (
	RouteHome       = "home"
	RouteEntry      = "entry"
	RouteCategory   = "category"
	RouteTopStories = "top-stories"
	RouteSearch     = "search"
)

// Route parameter names.
const (
	ParamSlug         = "slug"
	ParamCategorySlug = "categorySlug"
	ParamAuthor       = "author"
)

const (
	EntryRevalidate    = 5 * time.Minute
	CategoryRevalidate = 15 * time.Minute
	HomeRevalidate     = 5 * time.Minute
)

const (
	pathLimit         = 10
	otherEntriesLimit = 5
	categoryListLimit = 10
	categoryPageLimit = 12
	homeLimit         = 10
	authorListLimit   = 10
	authorStoryLimit  = 12
	searchLimit       = 12
	maxSearchTerm     = 128
)

// ContentSource is the subset of the content client the resolver needs.
type ContentSource interface {
	GetPlant(ctx context.Context, q content.PlantQuery) (content.Plant, error)
	GetPlantList(ctx context.Context, q content.ListQuery) ([]content.Plant, error)
	GetPlantListByCategory(ctx context.Context, q content.CategoryQuery) (content.CategoryPlants, error)
	GetPlantListByAuthor(ctx context.Context, q content.AuthorQuery) ([]content.Plant, error)
	SearchPlants(ctx context.Context, q content.SearchQuery) ([]content.Plant, error)
	GetCategoryList(ctx context.Context, q content.ListQuery) ([]content.Category, error)
	GetAuthorList(ctx context.Context, q content.ListQuery) ([]content.Author, error)
}

// Resolver turns route parameters into page props.
type Resolver struct {
	src     ContentSource
	locales []string
}

// NewResolver builds a Resolver for the configured locales.
func NewResolver(src ContentSource, locales []string) *Resolver {
	return &Resolver{src: src, locales: append([]string(nil), locales...)}
}

// FallbackFor reports the fallback policy of a route family.
func FallbackFor(route string) Fallback {
	switch route {
	case RouteEntry:
		return FallbackTrue
	case RouteCategory, RouteHome:
		return FallbackBlocking
	default:
		return FallbackFalse
	}
}

func listQuery(limit int, locale string) content.ListQuery {
	return content.ListQuery{Limit: limit, Locale: locale}
}

// EntryProps feeds the plant entry page.
type EntryProps struct {
	Plant        content.Plant
	OtherEntries []content.Plant
	Categories   []content.Category
}

// Entry resolves /entry/:slug. The three fetches are independent and run
// concurrently; the first failure decides the outcome.
func (r *Resolver) Entry(ctx context.Context, params Params, locale string, preview bool) Result[EntryProps] {
	slug, ok := slugParam(params, ParamSlug)
	if !ok {
		return notFound[EntryProps](CauseMalformed, nil)
	}

	var props EntryProps
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plant, err := r.src.GetPlant(gctx, content.PlantQuery{Slug: slug, Preview: preview, Locale: locale})
		props.Plant = plant
		return err
	})
	g.Go(func() error {
		others, err := r.src.GetPlantList(gctx, content.ListQuery{Limit: otherEntriesLimit, Locale: locale, Preview: preview})
		props.OtherEntries = others
		return err
	})
	g.Go(func() error {
		categories, err := r.src.GetCategoryList(gctx, listQuery(categoryListLimit, locale))
		props.Categories = categories
		return err
	})
	if err := g.Wait(); err != nil {
		return fromError[EntryProps](err)
	}

	return found(props, EntryRevalidate)
}

// CategoryProps feeds the category page.
type CategoryProps struct {
	Entries  []content.Plant
	Category content.Category
	Status   content.QueryStatus
}

// Empty reports whether the "no entries" banner should show.
func (p CategoryProps) Empty() bool {
	return len(p.Entries) == 0
}

// Category resolves /category/:categorySlug.
func (r *Resolver) Category(ctx context.Context, params Params, locale string) Result[CategoryProps] {
	slug, ok := slugParam(params, ParamCategorySlug)
	if !ok {
		return notFound[CategoryProps](CauseMalformed, nil)
	}

	res, err := r.src.GetPlantListByCategory(ctx, content.CategoryQuery{Category: slug, Limit: categoryPageLimit, Locale: locale})
	if err != nil {
		return fromError[CategoryProps](err)
	}

	return found(CategoryProps{Entries: res.Entries, Category: res.Category, Status: content.StatusSuccess}, CategoryRevalidate)
}

// HomeProps feeds the home page.
type HomeProps struct {
	Plants []content.Plant
}

// Home resolves the landing page.
func (r *Resolver) Home(ctx context.Context, locale string) Result[HomeProps] {
	plants, err := r.src.GetPlantList(ctx, listQuery(homeLimit, locale))
	if err != nil {
		return fromError[HomeProps](err)
	}
	return found(HomeProps{Plants: plants}, HomeRevalidate)
}

// TopStoriesProps feeds the top stories page.
type TopStoriesProps struct {
	Authors       []content.Author
	CurrentAuthor string
	Status        content.QueryStatus
}

// Current returns the author whose handle is CurrentAuthor.
func (p TopStoriesProps) Current() (content.Author, bool) {
	for _, a := range p.Authors {
		if a.Handle == p.CurrentAuthor {
			return a, true
		}
	}
	return content.Author{}, false
}

// TopStoriesPath is the canonical path for an author's tab.
func TopStoriesPath(handle string) string {
	return "/" + RouteTopStories + "/" + handle
}

// TopStories resolves /top-stories/:author at request time. Unknown handles
// are canonicalized to the first known author.
func (r *Resolver) TopStories(ctx context.Context, params Params, locale string) Result[TopStoriesProps] {
	handle, ok := params.Single(ParamAuthor)
	if !ok {
		return notFound[TopStoriesProps](CauseMalformed, nil)
	}
	return r.topStories(ctx, handle, locale)
}

// TopStoriesIndex resolves /top-stories, which always redirects to the first
// author when there is one.
func (r *Resolver) TopStoriesIndex(ctx context.Context, locale string) Result[TopStoriesProps] {
	return r.topStories(ctx, "", locale)
}

func (r *Resolver) topStories(ctx context.Context, handle, locale string) Result[TopStoriesProps] {
	authors, err := r.src.GetAuthorList(ctx, listQuery(authorListLimit, locale))
	if err != nil {
		res := found(TopStoriesProps{Authors: []content.Author{}, CurrentAuthor: handle, Status: content.StatusError}, 0)
		res.Cause = CauseFetchFailure
		res.Err = err
		return res
	}

	if len(authors) == 0 {
		return found(TopStoriesProps{Authors: []content.Author{}, CurrentAuthor: handle, Status: content.StatusError}, 0)
	}

	props := TopStoriesProps{Authors: authors, CurrentAuthor: handle, Status: content.StatusSuccess}
	if _, exists := props.Current(); !exists {
		return redirect[TopStoriesProps](TopStoriesPath(authors[0].Handle))
	}
	return found(props, 0)
}

// AuthorStories lists the plants shown in an author's tab.
func (r *Resolver) AuthorStories(ctx context.Context, authorID, locale string) ([]content.Plant, error) {
	return r.src.GetPlantListByAuthor(ctx, content.AuthorQuery{AuthorID: authorID, Limit: authorStoryLimit, Locale: locale})
}

// SearchProps feeds the search results page.
type SearchProps struct {
	Term    string
	Results []content.Plant
}

// Search resolves /search?q=. An empty term sends the visitor home. Terms are
// NFC-composed so pasted decomposed accents match stored names.
func (r *Resolver) Search(ctx context.Context, term, locale string) Result[SearchProps] {
	term = norm.NFC.String(strings.TrimSpace(term))
	if term == "" {
		return redirect[SearchProps]("/")
	}
	if utf8.RuneCountInString(term) > maxSearchTerm {
		term = string([]rune(term)[:maxSearchTerm])
	}

	results, err := r.src.SearchPlants(ctx, content.SearchQuery{Term: term, Limit: searchLimit, Locale: locale})
	if err != nil {
		return fromError[SearchProps](err)
	}
	return found(SearchProps{Term: term, Results: results}, 0)
}
