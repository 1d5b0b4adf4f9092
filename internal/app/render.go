package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"plantpedia/internal/auth"
	"plantpedia/internal/content"
	"plantpedia/internal/i18n"
	"plantpedia/internal/pages"
)

// view is the data every template receives. Data holds the page-specific
// part.
type view struct {
	Title       string
	Locale      string
	Locales     []localeOption
	T           *i18n.Translator
	Preview     bool
	Session     *auth.Session
	SearchQuery string
	Refresh     int
	Data        any
}

type localeOption struct {
	Locale  string
	Href    string
	Current bool
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"slugTitle": pages.SlugTitle,
		"localize": func(locale, path string) string {
			return localizePath(locale, s.bundle.Default(), path)
		},
		"imageURL": func(src string, width int, ratio, fit string) string {
			return content.ImageURL(src, width, content.AspectRatio(ratio), content.ImageFit(fit))
		},
		"imageHeight": func(ratio string, width int) int {
			return content.HeightFor(content.AspectRatio(ratio), width)
		},
		"pathEscape": url.PathEscape,
		"excerpt":    excerpt,
		"card": func(locale string, plant content.Plant) cardData {
			return cardData{Locale: locale, Plant: plant}
		},
		"grid": func(locale string, plants []content.Plant) gridData {
			return gridData{Locale: locale, Plants: plants}
		},
		"categories": func(locale string, categories []content.Category) categoryListData {
			return categoryListData{Locale: locale, Categories: categories}
		},
	}
}

// Partials only see their own argument, so the locale travels with it.
type cardData struct {
	Locale string
	Plant  content.Plant
}

type gridData struct {
	Locale string
	Plants []content.Plant
}

type categoryListData struct {
	Locale     string
	Categories []content.Category
}

// newView builds the shared view for path (without locale prefix).
func (s *Server) newView(locale, path, title string, data any) view {
	options := make([]localeOption, 0, len(s.cfg.Locales))
	for _, l := range s.cfg.Locales {
		options = append(options, localeOption{Locale: l, Href: localizePath(l, s.bundle.Default(), path), Current: l == locale})
	}
	return view{
		Title:   title,
		Locale:  locale,
		Locales: options,
		T:       s.bundle.Translator(locale),
		Data:    data,
	}
}

// requestView is newView plus the per-request state that must never end up
// in a stored page.
func (s *Server) requestView(r *http.Request, title string, data any) view {
	info := requestInfo(r)
	v := s.newView(info.Locale, r.URL.Path, title, data)
	v.Session = info.Session
	v.Preview = info.Preview
	v.SearchQuery = r.URL.Query().Get("q")
	return v
}

func (s *Server) renderBytes(name string, v view) ([]byte, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %s", name)
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", v); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	if s.cfg.Analyze {
		log.Info().
			Str("template", name).
			Str("locale", v.Locale).
			Int("bytes", buf.Len()).
			Dur("took", time.Since(start)).
			Msg("render timing")
	}
	return buf.Bytes(), nil
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

// render executes a request-time page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	body, err := s.renderBytes(name, s.requestView(r, title, data))
	if err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("render page")
		s.renderError(w, r, http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, body)
}

type errorView struct {
	Status  int
	Message string
}

func (s *Server) errorMessage(t *i18n.Translator, status int) string {
	switch status {
	case http.StatusNotFound:
		return t.Text("common.notFound")
	case http.StatusTooManyRequests:
		return t.Text("common.tooManyAttempts")
	default:
		return t.Text("common.serverError")
	}
}

// errorBody renders the error page for locale and path.
func (s *Server) errorBody(locale, path string, status int, message string) ([]byte, error) {
	v := s.newView(locale, path, http.StatusText(status), nil)
	if message == "" {
		message = s.errorMessage(v.T, status)
	}
	v.Data = errorView{Status: status, Message: message}
	return s.renderBytes("error.gohtml", v)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int) {
	s.renderErrorMessage(w, r, status, "")
}

func (s *Server) renderErrorMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	locale := requestInfo(r).Locale
	if locale == "" {
		locale = s.bundle.Default()
	}
	body, err := s.errorBody(locale, r.URL.Path, status, message)
	if err != nil {
		log.Error().Err(err).Msg("render error page")
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeHTML(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("encode json response")
	}
}

// richHTML renders a rich text document with links localized.
func (s *Server) richHTML(locale string, doc content.RichText) template.HTML {
	out, err := s.renderer.Document(doc)
	if err != nil {
		log.Warn().Err(err).Msg("render rich text")
		return ""
	}
	return template.HTML(localizeInternalLinks(string(out), localePrefix(locale, s.bundle.Default())))
}

// markdownHTML renders markdown with links localized.
func (s *Server) markdownHTML(locale, src string) template.HTML {
	out, err := s.renderer.Markdown(src)
	if err != nil {
		log.Warn().Err(err).Msg("render markdown")
		return ""
	}
	return template.HTML(localizeInternalLinks(string(out), localePrefix(locale, s.bundle.Default())))
}
