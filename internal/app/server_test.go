package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpedia/internal/auth"
	"plantpedia/internal/content"
	"plantpedia/internal/isr"
)

type stubContent struct {
	mu       sync.Mutex
	previews int

	plants     []content.Plant
	categories []content.Category
	authors    []content.Author
	byAuthor   map[string][]content.Plant
	err        error
}

func newStubContent() *stubContent {
	monstera := content.Plant{
		ID:          "p1",
		Slug:        "monstera",
		PlantName:   "Monstera Deliciosa",
		Description: content.RichText(`{"nodeType":"document","content":[{"nodeType":"paragraph","content":[{"nodeType":"text","value":"Big leaves.","marks":[]}]}]}`),
		Image:       content.Image{URL: "https://images.example.test/monstera.jpg"},
		Author:      content.Author{ID: "a1", Handle: "ada", FullName: "Ada Gardener"},
	}
	fern := content.Plant{ID: "p2", Slug: "fern", PlantName: "Boston Fern", Author: monstera.Author}
	return &stubContent{
		plants:     []content.Plant{monstera, fern},
		categories: []content.Category{{ID: "c1", Slug: "tropical", Title: "Tropical"}},
		authors:    []content.Author{monstera.Author, {ID: "a2", Handle: "bo", FullName: "Bo Botanist"}},
		byAuthor:   map[string][]content.Plant{"a1": {monstera, fern}},
	}
}

func (c *stubContent) GetPlant(_ context.Context, q content.PlantQuery) (content.Plant, error) {
	if c.err != nil {
		return content.Plant{}, c.err
	}
	if q.Preview {
		c.mu.Lock()
		c.previews++
		c.mu.Unlock()
	}
	for _, p := range c.plants {
		if p.Slug == q.Slug {
			return p, nil
		}
	}
	return content.Plant{}, content.ErrNotFound
}

func (c *stubContent) GetPlantList(context.Context, content.ListQuery) ([]content.Plant, error) {
	return c.plants, c.err
}

func (c *stubContent) GetPlantListByCategory(_ context.Context, q content.CategoryQuery) (content.CategoryPlants, error) {
	if c.err != nil {
		return content.CategoryPlants{}, c.err
	}
	for _, cat := range c.categories {
		if cat.Slug == q.Category {
			return content.CategoryPlants{Category: cat, Entries: c.plants[:1]}, nil
		}
	}
	return content.CategoryPlants{}, content.ErrNotFound
}

func (c *stubContent) GetPlantListByAuthor(_ context.Context, q content.AuthorQuery) ([]content.Plant, error) {
	return c.byAuthor[q.AuthorID], c.err
}

func (c *stubContent) SearchPlants(_ context.Context, q content.SearchQuery) ([]content.Plant, error) {
	var out []content.Plant
	for _, p := range c.plants {
		if strings.Contains(strings.ToLower(p.PlantName), strings.ToLower(q.Term)) {
			out = append(out, p)
		}
	}
	return out, c.err
}

func (c *stubContent) GetCategoryList(context.Context, content.ListQuery) ([]content.Category, error) {
	return c.categories, c.err
}

func (c *stubContent) GetAuthorList(context.Context, content.ListQuery) ([]content.Author, error) {
	return c.authors, c.err
}

const testPassword = "correct horse"

type testEnv struct {
	srv     *Server
	content *stubContent
	store   *isr.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	verify := httptest.NewServer(auth.VerifyHandler(hash))
	t.Cleanup(verify.Close)

	floof := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"image":"https://images.example.test/fox.jpg","link":"https://example.test/fox"}`))
	}))
	t.Cleanup(floof.Close)

	cfg := Config{
		Env:           "test",
		SiteURL:       "http://plantpedia.test",
		Locales:       []string{"en-US", "es"},
		DefaultLocale: "en-US",
		PreviewSecret: "preview-secret",
		Auth:          AuthConfig{Secret: "test-secret", PasswordHash: hash},
		Store:         StoreConfig{Driver: StoreMemory},
	}

	src := newStubContent()
	store := isr.NewMemoryStore()
	srv, err := NewServer(cfg, Deps{
		Content:     src,
		Store:       store,
		PremiumURL:  floof.URL,
		Credentials: auth.NewCredentialsProvider(verify.URL, nil),
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, content: src, store: store}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(t, req)
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestEntryServesPlaceholderThenPage(t *testing.T) {
	env := newTestEnv(t)

	first := env.get(t, "/entry/monstera")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "FALLBACK", first.Header().Get("X-Plantpedia-Cache"))
	assert.Contains(t, first.Body.String(), "Loading...")

	env.srv.Engine().Close()

	second := env.get(t, "/entry/monstera")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Plantpedia-Cache"))
	body := second.Body.String()
	assert.Contains(t, body, "Monstera Deliciosa")
	assert.Contains(t, body, "<p>Big leaves.</p>")
	assert.Contains(t, body, "Boston Fern")
	assert.Contains(t, body, `href="/category/tropical"`)
}

func TestUnknownEntryBecomesNotFound(t *testing.T) {
	env := newTestEnv(t)

	env.get(t, "/entry/ghost")
	env.srv.Engine().Close()

	marker, ok, err := env.store.Get(context.Background(), isr.Key("en-US", "/entry/ghost"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, marker.Body)
	assert.False(t, marker.ExpiresAt.IsZero())

	rec := env.get(t, "/entry/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "We could not find what you were looking for.")
}

func TestCategoryBlocksOnFirstRequest(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/category/tropical")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tropical")
	assert.Contains(t, rec.Body.String(), "Monstera Deliciosa")

	missing := env.get(t, "/category/cacti")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestLocalePrefixSelectsLocale(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/es/category/tropical")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<html lang="es">`)
	assert.Contains(t, body, `href="/es/entry/monstera"`)

	_, ok, err := env.store.Get(context.Background(), isr.Key("es", "/category/tropical"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHomeAndUnknownPath(t *testing.T) {
	env := newTestEnv(t)

	home := env.get(t, "/")
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Boston Fern")

	missing := env.get(t, "/no/such/page")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)

	empty := env.get(t, "/search?q=%20%20")
	assert.Equal(t, http.StatusFound, empty.Code)
	assert.Equal(t, "/", empty.Header().Get("Location"))

	rec := env.get(t, "/search?q=fern")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Boston Fern")
	assert.NotContains(t, rec.Body.String(), "Monstera Deliciosa")
	assert.Contains(t, rec.Body.String(), `value="fern"`)
}

func TestTopStoriesRedirectsToFirstAuthor(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/top-stories")
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/top-stories/ada", rec.Header().Get("Location"))

	localized := env.get(t, "/es/top-stories/nobody")
	assert.Equal(t, http.StatusTemporaryRedirect, localized.Code)
	assert.Equal(t, "/es/top-stories/ada", localized.Header().Get("Location"))
}

func TestTopStoriesRendersAuthorTab(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/top-stories/ada")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Monstera Deliciosa")
	assert.Contains(t, body, `data-author-id="a2"`)

	empty := env.get(t, "/top-stories/bo")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Contains(t, empty.Body.String(), `class="banner"`)
}

func TestTopStoriesWithoutAuthors(t *testing.T) {
	env := newTestEnv(t)
	env.content.authors = nil

	rec := env.get(t, "/top-stories/ada")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "banner error")
}

func TestAuthorPlantsAPI(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/authors/a1/plants?locale=es")
	require.Equal(t, http.StatusOK, rec.Code)

	var body authorPlantsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, content.StatusSuccess, body.Status)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "/es/entry/monstera", body.Data[0].Href)

	empty := env.get(t, "/api/authors/a2/plants")
	require.Equal(t, http.StatusOK, empty.Code)
	require.NoError(t, json.Unmarshal(empty.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
	assert.EqualValues(t, "no_stories", body.Banner)
}

func TestPremiumRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	page := env.get(t, "/premium")
	assert.Equal(t, http.StatusFound, page.Code)
	assert.Equal(t, "/api/auth/signin?callbackUrl=%2Fpremium", page.Header().Get("Location"))

	api := env.get(t, "/api/premium")
	assert.Equal(t, http.StatusUnauthorized, api.Code)
}

func postSignIn(t *testing.T, env *testEnv, password, callback string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"password": {password}, "callbackUrl": {callback}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/callback/credentials", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return env.do(t, req)
}

func TestCredentialsSignInFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := postSignIn(t, env, testPassword, "/premium")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/premium", rec.Header().Get("Location"))
	session := cookieNamed(rec, auth.SessionCookie)
	require.NotNil(t, session)

	page := env.get(t, "/premium", session)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Plantpedia member")

	api := env.get(t, "/api/premium", session)
	require.Equal(t, http.StatusOK, api.Code)
	assert.JSONEq(t, `{"data":"https://images.example.test/fox.jpg"}`, api.Body.String())

	who := env.get(t, "/api/auth/session", session)
	assert.Contains(t, who.Body.String(), `"provider":"credentials"`)
}

func TestCredentialsSignInRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := postSignIn(t, env, "wrong", "//evil.example")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/signin", loc.Path)
	assert.Equal(t, "CredentialsSignin", loc.Query().Get("error"))
	assert.Equal(t, "/", loc.Query().Get("callbackUrl"))
	assert.Nil(t, cookieNamed(rec, auth.SessionCookie))

	page := env.get(t, loc.String())
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Sign in failed.")
}

func TestCredentialsSignInIsRateLimited(t *testing.T) {
	env := newTestEnv(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = postSignIn(t, env, "wrong", "/")
	}
	assert.Contains(t, last.Header().Get("Location"), "error=TooManyAttempts")
}

func TestRotatingForwardedForDoesNotBypassRateLimit(t *testing.T) {
	env := newTestEnv(t)

	limited := 0
	for i := 0; i < 50; i++ {
		form := url.Values{"password": {"wrong"}, "callbackUrl": {"/"}}
		req := httptest.NewRequest(http.MethodPost, "/api/auth/callback/credentials", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		if strings.Contains(env.do(t, req).Header().Get("Location"), "error=TooManyAttempts") {
			limited++
		}
	}
	assert.Equal(t, 45, limited)
}

func TestSafeCallback(t *testing.T) {
	cases := map[string]string{
		"":                   "/",
		"/premium?x=1":       "/premium?x=1",
		"/es/entry/monstera": "/es/entry/monstera",
		"//evil.example":     "/",
		"/\\evil.example":    "/",
		"/\t/evil.example":   "/",
		"/\n/evil.example":   "/",
		"/\x7f/evil":         "/",
		"https://evil":       "/",
		"premium":            "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeCallback(in), "callback %q", in)
	}
}

func TestSessionEndpointWithoutCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/auth/session")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestSignOutClearsSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cleared := cookieNamed(rec, auth.SessionCookie)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

func TestGitHubDisabledWithoutClientID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/auth/signin/github")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviewMode(t *testing.T) {
	env := newTestEnv(t)

	denied := env.get(t, "/api/preview?secret=nope&slug=monstera")
	assert.Equal(t, http.StatusUnauthorized, denied.Code)

	rec := env.get(t, "/api/preview?secret=preview-secret&slug=monstera")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/entry/monstera", rec.Header().Get("Location"))
	preview := cookieNamed(rec, auth.PreviewCookie)
	require.NotNil(t, preview)

	page := env.get(t, "/entry/monstera", preview)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Equal(t, "PREVIEW", page.Header().Get("X-Plantpedia-Cache"))
	assert.Contains(t, page.Body.String(), "Monstera Deliciosa")
	assert.Equal(t, 1, env.content.previews)

	_, stored, err := env.store.Get(context.Background(), isr.Key("en-US", "/entry/monstera"))
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestStaticTargetsAndPrebuild(t *testing.T) {
	env := newTestEnv(t)

	targets, err := env.srv.StaticTargets(context.Background())
	require.NoError(t, err)
	// 2 home + 2 plants x 2 locales + 1 category x 2 locales
	assert.Len(t, targets, 8)

	env.srv.Prebuild(context.Background())
	assert.Equal(t, 8, env.store.Len())

	rec := env.get(t, "/es/entry/fern")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Plantpedia-Cache"))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
