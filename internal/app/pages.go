package app

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"plantpedia/internal/content"
	"plantpedia/internal/isr"
	"plantpedia/internal/pages"
	"plantpedia/internal/richtext"
)

// pageView names the template, title and data of a resolved page.
type pageView struct {
	Template string
	Title    string
	Data     any
}

// resultPage turns a resolution into a storable page. A fetch failure still
// yields a 404 page, returned with the error so the engine can prefer a stale
// copy.
func resultPage[P any](s *Server, res pages.Result[P], locale, path string, notFoundRevalidate time.Duration, build func(P) pageView) (isr.Page, error) {
	switch res.Kind {
	case pages.KindRedirect:
		status := http.StatusTemporaryRedirect
		if res.Redirect.Permanent {
			status = http.StatusPermanentRedirect
		}
		return isr.Page{Status: status, Location: res.Redirect.Destination, Revalidate: res.Revalidate}, nil

	case pages.KindNotFound:
		// Markers carry no body; writePage renders the error page per request.
		page := isr.Page{Status: http.StatusNotFound, Revalidate: notFoundRevalidate}
		if res.Cause == pages.CauseFetchFailure {
			return page, res.Err
		}
		log.Debug().Str("path", path).Str("locale", locale).Stringer("cause", res.Cause).Msg("page not found")
		return page, nil

	default:
		pv := build(res.Props)
		body, err := s.renderBytes(pv.Template, s.newView(locale, path, pv.Title, pv.Data))
		if err != nil {
			return isr.Page{}, err
		}
		return isr.Page{Status: http.StatusOK, Body: body, Revalidate: res.Revalidate}, nil
	}
}

// serveISR answers a statically generated route through the engine. Preview
// requests render directly and never touch the store.
func (s *Server) serveISR(w http.ResponseWriter, r *http.Request, route string, generate func(ctx context.Context, preview bool) (isr.Page, error)) {
	info := requestInfo(r)
	ctx := r.Context()

	if info.Preview {
		page, err := generate(ctx, true)
		if err != nil && page.Status == 0 {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("preview render failed")
			s.renderError(w, r, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Cache-Control", "private, no-store")
		s.writePage(w, r, page, "PREVIEW")
		return
	}

	key := isr.Key(info.Locale, r.URL.Path)
	resp, err := s.engine.Serve(ctx, key, pages.FallbackFor(route), func(ctx context.Context) (isr.Page, error) {
		return generate(ctx, false)
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("serve page")
		s.renderError(w, r, http.StatusInternalServerError)
		return
	}

	if resp.Placeholder {
		title := info.T.Text("common.loading")
		if slug := r.PathValue(pages.ParamSlug); slug != "" {
			title = pages.SlugTitle(slug)
		}
		v := s.newView(info.Locale, r.URL.Path, title, nil)
		v.Refresh = 2
		body, err := s.renderBytes("loading.gohtml", v)
		if err != nil {
			log.Error().Err(err).Msg("render loading page")
			s.renderError(w, r, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Plantpedia-Cache", "FALLBACK")
		writeHTML(w, http.StatusOK, body)
		return
	}

	state := "HIT"
	if resp.Stale {
		state = "STALE"
	}
	s.writePage(w, r, resp.Page, state)
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, page isr.Page, state string) {
	w.Header().Set("X-Plantpedia-Cache", state)
	if page.Location != "" {
		http.Redirect(w, r, localizePath(requestInfo(r).Locale, s.bundle.Default(), page.Location), page.Status)
		return
	}
	if page.Status == http.StatusNotFound && len(page.Body) == 0 {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	writeHTML(w, page.Status, page.Body)
}

type homeView struct {
	Plants []content.Plant
}

func (s *Server) renderHome(ctx context.Context, locale string) (isr.Page, error) {
	res := s.resolver.Home(ctx, locale)
	return resultPage(s, res, locale, "/", pages.HomeRevalidate, func(p pages.HomeProps) pageView {
		return pageView{Template: "home.gohtml", Data: homeView{Plants: p.Plants}}
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	locale := requestInfo(r).Locale
	s.serveISR(w, r, pages.RouteHome, func(ctx context.Context, _ bool) (isr.Page, error) {
		return s.renderHome(ctx, locale)
	})
}

type entryView struct {
	Plant        content.Plant
	Description  template.HTML
	AuthorBio    template.HTML
	OtherEntries []content.Plant
	Categories   []content.Category
}

func (s *Server) renderEntry(ctx context.Context, slug, locale string, preview bool) (isr.Page, error) {
	res := s.resolver.Entry(ctx, pages.Params{pages.ParamSlug: {slug}}, locale, preview)
	return resultPage(s, res, locale, "/entry/"+slug, pages.EntryRevalidate, func(p pages.EntryProps) pageView {
		return pageView{
			Template: "entry.gohtml",
			Title:    p.Plant.PlantName,
			Data: entryView{
				Plant:        p.Plant,
				Description:  s.richHTML(locale, p.Plant.Description),
				AuthorBio:    s.richHTML(locale, p.Plant.Author.Biography),
				OtherEntries: p.OtherEntries,
				Categories:   p.Categories,
			},
		}
	})
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	locale := requestInfo(r).Locale
	slug := r.PathValue(pages.ParamSlug)
	s.serveISR(w, r, pages.RouteEntry, func(ctx context.Context, preview bool) (isr.Page, error) {
		return s.renderEntry(ctx, slug, locale, preview)
	})
}

type categoryView struct {
	Category    content.Category
	Description template.HTML
	Entries     []content.Plant
	Empty       bool
}

func (s *Server) renderCategory(ctx context.Context, slug, locale string) (isr.Page, error) {
	res := s.resolver.Category(ctx, pages.Params{pages.ParamCategorySlug: {slug}}, locale)
	return resultPage(s, res, locale, "/category/"+slug, pages.CategoryRevalidate, func(p pages.CategoryProps) pageView {
		return pageView{
			Template: "category.gohtml",
			Title:    p.Category.Title,
			Data: categoryView{
				Category:    p.Category,
				Description: s.markdownHTML(locale, p.Category.Description),
				Entries:     p.Entries,
				Empty:       p.Empty(),
			},
		}
	})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	locale := requestInfo(r).Locale
	slug := r.PathValue(pages.ParamCategorySlug)
	s.serveISR(w, r, pages.RouteCategory, func(ctx context.Context, _ bool) (isr.Page, error) {
		return s.renderCategory(ctx, slug, locale)
	})
}

type topStoriesView struct {
	Authors   []content.Author
	Current   content.Author
	AuthorBio template.HTML
	Plants    []content.Plant
	Banner    pages.Banner
	Status    content.QueryStatus
}

func (s *Server) handleTopStories(w http.ResponseWriter, r *http.Request) {
	info := requestInfo(r)
	ctx := r.Context()

	var res pages.Result[pages.TopStoriesProps]
	if handle := r.PathValue(pages.ParamAuthor); handle != "" {
		res = s.resolver.TopStories(ctx, pages.Params{pages.ParamAuthor: {handle}}, info.Locale)
	} else {
		res = s.resolver.TopStoriesIndex(ctx, info.Locale)
	}

	switch res.Kind {
	case pages.KindRedirect:
		http.Redirect(w, r, localizePath(info.Locale, s.bundle.Default(), res.Redirect.Destination), http.StatusTemporaryRedirect)
		return
	case pages.KindNotFound:
		s.renderError(w, r, http.StatusNotFound)
		return
	}

	if res.Err != nil {
		log.Error().Err(res.Err).Msg("load authors")
	}
	current, ok := res.Props.Current()
	if res.Props.Status == content.StatusError || !ok {
		s.renderErrorMessage(w, r, http.StatusOK, info.T.Text("page-top-stories.noInfoAvailable"))
		return
	}

	// The first paint renders the selected author through the same state
	// machine the page script mirrors on tab switches.
	tab := pages.NewTab(func(ctx context.Context, authorID string) ([]content.Plant, error) {
		return s.resolver.AuthorStories(ctx, authorID, info.Locale)
	})
	state, err := tab.Await(ctx, tab.Select(ctx, current.ID))
	if err != nil {
		log.Warn().Err(err).Str("author", current.Handle).Msg("author stories interrupted")
	}
	if state.Err != nil {
		log.Error().Err(state.Err).Str("author", current.Handle).Msg("load author stories")
	}

	s.render(w, r, http.StatusOK, "top-stories.gohtml", info.T.Text("page-top-stories.top10Stories"), topStoriesView{
		Authors:   res.Props.Authors,
		Current:   current,
		AuthorBio: s.richHTML(info.Locale, current.Biography),
		Plants:    state.Plants,
		Banner:    state.Banner(),
		Status:    state.Status,
	})
}

type authorPlantsResponse struct {
	Status content.QueryStatus `json:"status"`
	Banner pages.Banner        `json:"banner,omitempty"`
	Data   []authorPlant       `json:"data"`
}

type authorPlant struct {
	Slug      string `json:"slug"`
	PlantName string `json:"plantName"`
	Href      string `json:"href"`
	Image     string `json:"image,omitempty"`
}

// handleAuthorPlants serves tab switches on the top stories page.
func (s *Server) handleAuthorPlants(w http.ResponseWriter, r *http.Request) {
	info := requestInfo(r)
	authorID := r.PathValue("id")
	if authorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing author id"})
		return
	}

	// One fetch per request; the page script drops responses for tabs it has
	// since left.
	plants, err := s.resolver.AuthorStories(r.Context(), authorID, info.Locale)
	state := pages.SettledState(authorID, plants, err)
	if state.Status == content.StatusError {
		log.Error().Err(state.Err).Str("author", authorID).Msg("load author stories")
		writeJSON(w, http.StatusBadGateway, authorPlantsResponse{Status: content.StatusError, Banner: pages.BannerError, Data: []authorPlant{}})
		return
	}

	data := make([]authorPlant, 0, len(state.Plants))
	for _, p := range state.Plants {
		data = append(data, authorPlant{
			Slug:      p.Slug,
			PlantName: p.PlantName,
			Href:      localizePath(info.Locale, s.bundle.Default(), "/entry/"+p.Slug),
			Image:     content.ImageURL(p.Image.URL, 460, content.Ratio4x3, content.FitFill),
		})
	}
	writeJSON(w, http.StatusOK, authorPlantsResponse{Status: state.Status, Banner: state.Banner(), Data: data})
}

type searchView struct {
	Term    string
	Results []content.Plant
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	info := requestInfo(r)
	res := s.resolver.Search(r.Context(), r.FormValue("q"), info.Locale)

	switch res.Kind {
	case pages.KindRedirect:
		http.Redirect(w, r, localizePath(info.Locale, s.bundle.Default(), res.Redirect.Destination), http.StatusFound)
		return
	case pages.KindNotFound:
		log.Error().Err(res.Err).Msg("search plants")
		s.renderError(w, r, http.StatusInternalServerError)
		return
	}

	s.render(w, r, http.StatusOK, "search.gohtml", info.T.Text("common.search"), searchView{Term: res.Props.Term, Results: res.Props.Results})
}

func (s *Server) handleGettingStarted(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "getting-started.gohtml", requestInfo(r).T.Text("common.gettingStarted"), nil)
}

// excerpt is used for card summaries.
func excerpt(doc content.RichText, max int) string {
	text := []rune(richtext.PlainText(doc))
	if len(text) <= max {
		return string(text)
	}
	return string(text[:max]) + "…"
}
