package app

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"plantpedia/internal/auth"
)

const (
	oauthStateCookie    = "plantpedia.oauth_state"
	oauthCallbackCookie = "plantpedia.oauth_callback"
	signInPath          = "/api/auth/signin"
)

type signInView struct {
	CallbackURL string
	Error       string
	GitHub      bool
}

// safeCallback keeps post sign-in redirects on this site. Browsers drop tabs
// and newlines from URLs, so "/\t/host" would otherwise leave the site.
func safeCallback(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < 0x20 || raw[i] == 0x7f {
			return "/"
		}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "/"
	}
	return raw
}

func signInURL(callback, errCode string) string {
	q := url.Values{}
	q.Set("callbackUrl", callback)
	if errCode != "" {
		q.Set("error", errCode)
	}
	return signInPath + "?" + q.Encode()
}

func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	info := requestInfo(r)
	data := signInView{
		CallbackURL: safeCallback(r.URL.Query().Get("callbackUrl")),
		GitHub:      s.github != nil,
	}
	switch r.URL.Query().Get("error") {
	case "":
	case "TooManyAttempts":
		data.Error = info.T.Text("common.tooManyAttempts")
	default:
		data.Error = info.T.Text("common.signInError")
	}
	s.render(w, r, http.StatusOK, "signin.gohtml", info.T.Text("common.signIn"), data)
}

func (s *Server) handleCredentialsCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	callback := safeCallback(r.PostFormValue("callbackUrl"))

	if ip := s.proxies.ClientIP(r); !s.limiter.Allow(ip) {
		log.Warn().Str("ip", ip).Msg("sign-in rate limited")
		http.Redirect(w, r, signInURL(callback, "TooManyAttempts"), http.StatusSeeOther)
		return
	}

	user, err := s.credentials.Authorize(r.Context(), r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error().Err(err).Msg("credentials sign-in")
		}
		http.Redirect(w, r, signInURL(callback, "CredentialsSignin"), http.StatusSeeOther)
		return
	}

	if _, err := s.sessions.SignIn(w, user, auth.ProviderCredentials); err != nil {
		log.Error().Err(err).Msg("issue session")
		s.renderError(w, r, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, callback, http.StatusSeeOther)
}

func (s *Server) handleGitHubSignIn(w http.ResponseWriter, r *http.Request) {
	if s.github == nil {
		s.renderError(w, r, http.StatusNotFound)
		return
	}

	state := uuid.NewString()
	secure := s.cfg.SecureCookies()
	for name, value := range map[string]string{
		oauthStateCookie:    state,
		oauthCallbackCookie: safeCallback(r.URL.Query().Get("callbackUrl")),
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/api/auth",
			MaxAge:   int((10 * time.Minute) / time.Second),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, s.github.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if s.github == nil {
		s.renderError(w, r, http.StatusNotFound)
		return
	}

	callback := "/"
	if c, err := r.Cookie(oauthCallbackCookie); err == nil {
		callback = safeCallback(c.Value)
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		log.Warn().Msg("github callback state mismatch")
		http.Redirect(w, r, signInURL(callback, "OAuthCallback"), http.StatusFound)
		return
	}
	for _, name := range []string{oauthStateCookie, oauthCallbackCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/api/auth", MaxAge: -1})
	}

	user, err := s.github.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("github sign-in")
		http.Redirect(w, r, signInURL(callback, "OAuthCallback"), http.StatusFound)
		return
	}

	if _, err := s.sessions.SignIn(w, user, auth.ProviderGitHub); err != nil {
		log.Error().Err(err).Msg("issue session")
		s.renderError(w, r, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, callback, http.StatusFound)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.sessions.SignOut(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	info := requestInfo(r)
	if info.Session == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, info.Session)
}
