package app

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// logRequests writes one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", rec.bytes).
			Dur("latency", time.Since(start)).
			Str("locale", requestInfo(r).Locale).
			Msg("request")
	})
}

// recoverPanics turns a handler panic into a 500 page.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("path", r.URL.Path).
					Msg("handler panic")
				s.renderError(w, r, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// resolveRequest strips a locale prefix from the path and attaches the
// request info. The prefix wins over ?locale=, which wins over the default.
func (s *Server) resolveRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := RequestInfo{Locale: s.bundle.Default(), LocaleFrom: "default"}

		trimmed := strings.TrimPrefix(r.URL.Path, "/")
		first, rest, _ := strings.Cut(trimmed, "/")
		if first != "" && s.bundle.IsLocale(first) {
			info.Locale = s.bundle.Match(first)
			info.LocaleFrom = "path"
			r = stripPrefix(r, "/"+rest)
		} else if q := r.URL.Query().Get("locale"); q != "" {
			info.Locale = s.bundle.Match(q)
			info.LocaleFrom = "query"
		}

		if session, err := s.sessions.FromRequest(r); err == nil {
			info.Session = &session
		}
		info.Preview = s.sessions.PreviewFromRequest(r)
		info.T = s.bundle.Translator(info.Locale)

		next.ServeHTTP(w, r.WithContext(withRequestInfo(r.Context(), info)))
	})
}

func stripPrefix(r *http.Request, path string) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	u := *r.URL
	u.Path = path
	u.RawPath = ""
	r2.URL = &u
	return r2
}
