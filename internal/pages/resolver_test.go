package pages

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpedia/internal/content"
)

type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int

	plants     map[string]content.Plant
	list       []content.Plant
	categories []content.Category
	byCategory map[string]content.CategoryPlants
	authors    []content.Author
	byAuthor   map[string][]content.Plant
	err        error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls:      map[string]int{},
		plants:     map[string]content.Plant{},
		byCategory: map[string]content.CategoryPlants{},
		byAuthor:   map[string][]content.Plant{},
	}
}

func (f *fakeSource) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.err
}

func (f *fakeSource) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeSource) GetPlant(_ context.Context, q content.PlantQuery) (content.Plant, error) {
	if err := f.record("GetPlant"); err != nil {
		return content.Plant{}, err
	}
	p, ok := f.plants[q.Slug]
	if !ok {
		return content.Plant{}, content.ErrNotFound
	}
	return p, nil
}

func (f *fakeSource) GetPlantList(_ context.Context, q content.ListQuery) ([]content.Plant, error) {
	if err := f.record("GetPlantList"); err != nil {
		return nil, err
	}
	if q.Limit < len(f.list) {
		return f.list[:q.Limit], nil
	}
	return f.list, nil
}

func (f *fakeSource) GetPlantListByCategory(_ context.Context, q content.CategoryQuery) (content.CategoryPlants, error) {
	if err := f.record("GetPlantListByCategory"); err != nil {
		return content.CategoryPlants{}, err
	}
	res, ok := f.byCategory[q.Category]
	if !ok {
		return content.CategoryPlants{}, content.ErrNotFound
	}
	return res, nil
}

func (f *fakeSource) GetPlantListByAuthor(_ context.Context, q content.AuthorQuery) ([]content.Plant, error) {
	if err := f.record("GetPlantListByAuthor"); err != nil {
		return nil, err
	}
	return f.byAuthor[q.AuthorID], nil
}

func (f *fakeSource) SearchPlants(_ context.Context, q content.SearchQuery) ([]content.Plant, error) {
	if err := f.record("SearchPlants"); err != nil {
		return nil, err
	}
	return f.list, nil
}

func (f *fakeSource) GetCategoryList(context.Context, content.ListQuery) ([]content.Category, error) {
	if err := f.record("GetCategoryList"); err != nil {
		return nil, err
	}
	return f.categories, nil
}

func (f *fakeSource) GetAuthorList(context.Context, content.ListQuery) ([]content.Author, error) {
	if err := f.record("GetAuthorList"); err != nil {
		return nil, err
	}
	return f.authors, nil
}

func single(name, value string) Params {
	return Params{name: {value}}
}

func TestEntryResolvesPlant(t *testing.T) {
	src := newFakeSource()
	src.plants["monstera"] = content.Plant{ID: "p1", Slug: "monstera", PlantName: "Monstera"}
	src.list = []content.Plant{{Slug: "monstera"}, {Slug: "fern"}}
	src.categories = []content.Category{{ID: "c1", Slug: "tropical"}}

	r := NewResolver(src, []string{"en-US", "es"})
	res := r.Entry(context.Background(), single(ParamSlug, "monstera"), "es", false)

	require.Equal(t, KindProps, res.Kind)
	assert.Equal(t, "monstera", res.Props.Plant.Slug)
	assert.Len(t, res.Props.OtherEntries, 2)
	assert.Len(t, res.Props.Categories, 1)
	assert.Equal(t, EntryRevalidate, res.Revalidate)
	assert.Equal(t, CauseNone, res.Cause)
}

func TestEntryPassesSlugThroughUnchanged(t *testing.T) {
	src := newFakeSource()
	src.plants["Boston.Fern"] = content.Plant{ID: "p3", Slug: "Boston.Fern", PlantName: "Boston Fern"}
	r := NewResolver(src, []string{"en-US"})

	res := r.Entry(context.Background(), single(ParamSlug, "Boston.Fern"), "en-US", false)
	require.Equal(t, KindProps, res.Kind)
	assert.Equal(t, "Boston.Fern", res.Props.Plant.Slug)

	lower := r.Entry(context.Background(), single(ParamSlug, "boston.fern"), "en-US", false)
	assert.Equal(t, KindNotFound, lower.Kind)
	assert.Equal(t, CauseAbsent, lower.Cause)
}

func TestMalformedParamsSkipContentSource(t *testing.T) {
	cases := map[string]Params{
		"missing":  {},
		"empty":    single(ParamSlug, ""),
		"multiple": {ParamSlug: {"a", "b"}},
		"path":     single(ParamSlug, "../secret"),
		"control":  single(ParamSlug, "fern\n"),
	}

	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			src := newFakeSource()
			r := NewResolver(src, []string{"en-US"})

			entry := r.Entry(context.Background(), params, "en-US", false)
			assert.Equal(t, KindNotFound, entry.Kind)
			assert.Equal(t, CauseMalformed, entry.Cause)

			catParams := Params{}
			for _, v := range params {
				catParams[ParamCategorySlug] = v
			}
			category := r.Category(context.Background(), catParams, "en-US")
			assert.Equal(t, KindNotFound, category.Kind)
			assert.Equal(t, CauseMalformed, category.Cause)

			assert.Zero(t, src.total())
		})
	}
}

func TestEntryUnknownSlugIsAbsent(t *testing.T) {
	src := newFakeSource()
	r := NewResolver(src, []string{"en-US"})

	res := r.Entry(context.Background(), single(ParamSlug, "ghost"), "en-US", false)
	assert.Equal(t, KindNotFound, res.Kind)
	assert.Equal(t, CauseAbsent, res.Cause)
	assert.ErrorIs(t, res.Err, content.ErrNotFound)
}

func TestFetchFailureIsDistinguishable(t *testing.T) {
	src := newFakeSource()
	src.err = &content.FetchError{Op: "getPlant", Status: 503, Err: errors.New("unavailable")}
	r := NewResolver(src, []string{"en-US"})

	res := r.Entry(context.Background(), single(ParamSlug, "monstera"), "en-US", false)
	assert.Equal(t, KindNotFound, res.Kind)
	assert.Equal(t, CauseFetchFailure, res.Cause)
	assert.True(t, content.IsTransient(res.Err))
}

func TestCategory(t *testing.T) {
	src := newFakeSource()
	src.byCategory["succulents"] = content.CategoryPlants{
		Category: content.Category{ID: "c2", Slug: "succulents", Title: "Succulents"},
		Entries:  []content.Plant{},
	}
	r := NewResolver(src, []string{"en-US"})

	res := r.Category(context.Background(), single(ParamCategorySlug, "succulents"), "en-US")
	require.Equal(t, KindProps, res.Kind)
	assert.True(t, res.Props.Empty())
	assert.Equal(t, "Succulents", res.Props.Category.Title)
	assert.Equal(t, CategoryRevalidate, res.Revalidate)

	unknown := r.Category(context.Background(), single(ParamCategorySlug, "cacti"), "en-US")
	assert.Equal(t, KindNotFound, unknown.Kind)
	assert.Equal(t, CauseAbsent, unknown.Cause)
}

func TestTopStoriesUnknownAuthorRedirects(t *testing.T) {
	src := newFakeSource()
	src.authors = []content.Author{{ID: "a1", Handle: "ana"}, {ID: "a2", Handle: "bruno"}}
	r := NewResolver(src, []string{"en-US"})

	res := r.TopStories(context.Background(), single(ParamAuthor, "nobody"), "en-US")
	require.Equal(t, KindRedirect, res.Kind)
	assert.Equal(t, "/top-stories/ana", res.Redirect.Destination)
	assert.False(t, res.Redirect.Permanent)

	known := r.TopStories(context.Background(), single(ParamAuthor, "bruno"), "en-US")
	require.Equal(t, KindProps, known.Kind)
	current, ok := known.Props.Current()
	require.True(t, ok)
	assert.Equal(t, "a2", current.ID)
	assert.Equal(t, content.StatusSuccess, known.Props.Status)

	index := r.TopStoriesIndex(context.Background(), "en-US")
	require.Equal(t, KindRedirect, index.Kind)
	assert.Equal(t, "/top-stories/ana", index.Redirect.Destination)
}

func TestTopStoriesEmptyAuthorSet(t *testing.T) {
	src := newFakeSource()
	r := NewResolver(src, []string{"en-US"})

	res := r.TopStories(context.Background(), single(ParamAuthor, "nobody"), "en-US")
	require.Equal(t, KindProps, res.Kind)
	assert.Empty(t, res.Props.Authors)
	assert.NotNil(t, res.Props.Authors)
	assert.Equal(t, content.StatusError, res.Props.Status)
}

func TestSearch(t *testing.T) {
	src := newFakeSource()
	src.list = []content.Plant{{Slug: "fern"}}
	r := NewResolver(src, []string{"en-US"})

	empty := r.Search(context.Background(), "   ", "en-US")
	require.Equal(t, KindRedirect, empty.Kind)
	assert.Equal(t, "/", empty.Redirect.Destination)
	assert.Zero(t, src.total())

	long := make([]rune, 200)
	for i := range long {
		long[i] = 'ñ'
	}
	res := r.Search(context.Background(), string(long), "en-US")
	require.Equal(t, KindProps, res.Kind)
	assert.Equal(t, maxSearchTerm, len([]rune(res.Props.Term)))
	assert.Len(t, res.Props.Results, 1)

	decomposed := r.Search(context.Background(), "cafe\u0301", "en-US")
	require.Equal(t, KindProps, decomposed.Kind)
	assert.Equal(t, "caf\u00e9", decomposed.Props.Term)
}

func TestEnumeratePathsOrder(t *testing.T) {
	paths, err := EnumeratePaths(ParamSlug, []string{"a", "b"}, []string{"en-US", "es"})
	require.NoError(t, err)

	want := []Path{
		{Params: map[string]string{ParamSlug: "a"}, Locale: "en-US"},
		{Params: map[string]string{ParamSlug: "a"}, Locale: "es"},
		{Params: map[string]string{ParamSlug: "b"}, Locale: "en-US"},
		{Params: map[string]string{ParamSlug: "b"}, Locale: "es"},
	}
	assert.Equal(t, want, paths)

	_, err = EnumeratePaths(ParamSlug, []string{"a"}, nil)
	assert.ErrorIs(t, err, ErrMissingLocales)
}

func TestStaticPathFamilies(t *testing.T) {
	src := newFakeSource()
	src.list = []content.Plant{{Slug: "a"}, {Slug: "b"}}
	src.categories = []content.Category{{Slug: "tropical"}}
	r := NewResolver(src, []string{"en-US", "es"})

	entries, err := r.EntryPaths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FallbackTrue, entries.Fallback)
	assert.Len(t, entries.Paths, 4)

	categories, err := r.CategoryPaths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FallbackBlocking, categories.Fallback)
	assert.Len(t, categories.Paths, 2)

	home, err := r.HomePaths(context.Background())
	require.NoError(t, err)
	assert.Len(t, home.Paths, 2)

	assert.Equal(t, FallbackFalse, FallbackFor(RouteTopStories))
}
