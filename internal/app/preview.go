package app

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"plantpedia/internal/pages"
)

// handlePreview turns on draft content for this browser when the shared
// secret matches, then sends it to the entry being previewed.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")
	if s.cfg.PreviewSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.PreviewSecret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid preview secret"})
		return
	}

	destination := "/"
	if raw := r.URL.Query().Get("slug"); raw != "" {
		slug, err := pages.CheckSlug(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid slug"})
			return
		}
		destination = "/entry/" + url.PathEscape(slug)
	}

	if err := s.sessions.EnablePreview(w); err != nil {
		log.Error().Err(err).Msg("enable preview")
		s.renderError(w, r, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, localizePath(requestInfo(r).Locale, s.bundle.Default(), destination), http.StatusTemporaryRedirect)
}

func (s *Server) handlePreviewExit(w http.ResponseWriter, r *http.Request) {
	s.sessions.DisablePreview(w)
	http.Redirect(w, r, localizePath(requestInfo(r).Locale, s.bundle.Default(), "/"), http.StatusTemporaryRedirect)
}
