package app

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"plantpedia/internal/auth"
	"plantpedia/internal/i18n"
	"plantpedia/internal/isr"
	"plantpedia/internal/pages"
	"plantpedia/internal/richtext"
)

const defaultPremiumURL = "https://randomfox.ca/floof/"

// Deps are the external collaborators of a Server.
type Deps struct {
	Content    pages.ContentSource
	Store      isr.Store
	HTTPClient *http.Client
	// PremiumURL overrides the random image API.
	PremiumURL string
	// Credentials overrides the credential provider, which otherwise calls
	// {auth.url}/api/auth/verify.
	Credentials *auth.CredentialsProvider
	GitHub      *auth.GitHubProvider
}

// Server wires handlers, templates, and external dependencies together.
type Server struct {
	cfg         Config
	resolver    *pages.Resolver
	engine      *isr.Engine
	bundle      *i18n.Bundle
	renderer    *richtext.Renderer
	templates   map[string]*template.Template
	sessions    *auth.Sessions
	credentials *auth.CredentialsProvider
	github      *auth.GitHubProvider
	limiter     *auth.IPLimiter
	proxies     *auth.ProxyResolver
	premium     *premiumClient
	mux         *http.ServeMux
	handler     http.Handler
}

// NewServer constructs an HTTP handler ready to serve Plantpedia.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Content == nil {
		return nil, fmt.Errorf("missing content source")
	}
	if deps.Store == nil {
		deps.Store = isr.NewMemoryStore()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if deps.PremiumURL == "" {
		deps.PremiumURL = defaultPremiumURL
	}

	bundle, err := i18n.Load(cfg.Locales, cfg.DefaultLocale)
	if err != nil {
		return nil, err
	}

	sessions, err := auth.NewSessions([]byte(cfg.Auth.Secret), cfg.SecureCookies())
	if err != nil {
		return nil, err
	}
	if cfg.Auth.EphemeralSecret {
		log.Warn().Msg("auth.secret not set, sessions will not survive a restart")
	}

	credentials := deps.Credentials
	if credentials == nil {
		credentials = auth.NewCredentialsProvider(cfg.Auth.URL, deps.HTTPClient)
	}
	github := deps.GitHub
	if github == nil {
		github = auth.NewGitHubProvider(cfg.Auth.GitHubID, cfg.Auth.GitHubSecret, cfg.SiteURL+"/api/auth/callback/github")
	}

	proxies, err := auth.NewProxyResolver(cfg.Auth.TrustedProxies)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:         cfg,
		resolver:    pages.NewResolver(deps.Content, cfg.Locales),
		engine: isr.NewEngine(deps.Store,
			isr.WithRegenerateTimeout(cfg.ISR.RegenerateTimeout),
			isr.WithMarkerTTL(cfg.ISR.MarkerTTL),
		),
		bundle:      bundle,
		renderer:    richtext.New(),
		sessions:    sessions,
		credentials: credentials,
		github:      github,
		limiter:     auth.NewIPLimiter(5, 5),
		proxies:     proxies,
		premium:     &premiumClient{url: deps.PremiumURL, client: deps.HTTPClient},
		mux:         http.NewServeMux(),
	}

	srv.templates, err = parseTemplates(srv.templateFuncs())
	if err != nil {
		return nil, err
	}

	srv.routes()
	srv.handler = srv.resolveRequest(srv.logRequests(srv.recoverPanics(srv.mux)))

	return srv, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /entry/{slug}", s.handleEntry)
	s.mux.HandleFunc("GET /category/{categorySlug}", s.handleCategory)
	s.mux.HandleFunc("GET /top-stories", s.handleTopStories)
	s.mux.HandleFunc("GET /top-stories/{author}", s.handleTopStories)
	s.mux.HandleFunc("GET /search", s.handleSearch)
	s.mux.HandleFunc("GET /getting-started", s.handleGettingStarted)
	s.mux.HandleFunc("GET /premium", s.handlePremiumPage)

	s.mux.HandleFunc("GET /api/premium", s.handlePremiumAPI)
	s.mux.HandleFunc("GET /api/authors/{id}/plants", s.handleAuthorPlants)

	s.mux.HandleFunc("GET /api/auth/signin", s.handleSignInPage)
	s.mux.HandleFunc("POST /api/auth/callback/credentials", s.handleCredentialsCallback)
	s.mux.HandleFunc("GET /api/auth/signin/github", s.handleGitHubSignIn)
	s.mux.HandleFunc("GET /api/auth/callback/github", s.handleGitHubCallback)
	s.mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)
	s.mux.HandleFunc("GET /api/auth/session", s.handleSession)
	s.mux.Handle("POST /api/auth/verify", auth.VerifyHandler(s.cfg.Auth.PasswordHash))

	s.mux.HandleFunc("GET /api/preview", s.handlePreview)
	s.mux.HandleFunc("GET /api/preview/exit", s.handlePreviewExit)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("/", s.handleNotFound)
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Engine exposes the regeneration engine, used by the CLI to warm and drain.
func (s *Server) Engine() *isr.Engine {
	return s.engine
}

// Close waits for background regenerations.
func (s *Server) Close() {
	s.engine.Close()
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, _, err := s.engine.Store().Get(ctx, "healthz"); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
