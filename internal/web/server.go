// Package web serves the blog over HTTP: HTML pages, the read-only JSON API,
// revalidation, the sitemap and session handling.
package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"filippo.io/csrf/gorilla"
	"github.com/go-chi/chi/v5"
	servertiming "github.com/mitchellh/go-server-timing"

	"github.com/starford/folio/internal/auth"
	"github.com/starford/folio/internal/blogservice"
	"github.com/starford/folio/internal/pagecache"
	"github.com/starford/folio/internal/sse"
)

// RecentPosts is how many posts the home page shows.
const RecentPosts = 3

// Config holds the presentation settings of the site.
type Config struct {
	SiteName        string
	SiteDescription string
	Author          string
	BaseURL         string

	CookieName    string
	SecureCookies bool

	RevalidateSecret string

	// CSRFKey is passed to csrf.Protect. TrustedOrigins are host values
	// allowed to post cross-origin.
	CSRFKey        []byte
	TrustedOrigins []string

	// Users are shown on the admin dashboard.
	Users []auth.Principal
}

// Server owns the handlers and their collaborators.
type Server struct {
	cfg      Config
	svc      *blogservice.Service
	authn    *auth.Authenticator
	sessions *auth.Sessions
	cache    *pagecache.Cache
	broker   *sse.Broker
	views    *views
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithCache enables the page cache for anonymous page requests.
func WithCache(c *pagecache.Cache) Option {
	return func(s *Server) { s.cache = c }
}

// WithBroker enables the event stream and revalidation events.
func WithBroker(b *sse.Broker) Option {
	return func(s *Server) { s.broker = b }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server.
func New(cfg Config, svc *blogservice.Service, authn *auth.Authenticator, sessions *auth.Sessions, opts ...Option) (*Server, error) {
	if svc == nil || authn == nil || sessions == nil {
		return nil, errors.New("web: service, authenticator and sessions are required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "Folio"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	s := &Server{
		cfg:      cfg,
		svc:      svc,
		authn:    authn,
		sessions: sessions,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	v, err := loadViews(svc.IndexPath())
	if err != nil {
		return nil, err
	}
	s.views = v
	return s, nil
}

// Routes returns the router with every page and API route mounted.
func (s *Server) Routes() chi.Router {
	index := s.svc.IndexPath()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return servertiming.Middleware(next, nil)
	})
	r.Use(skipCSRF("/api/revalidate"))
	r.Use(csrf.Protect(s.cfg.CSRFKey,
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailed)),
		csrf.TrustedOrigins(s.cfg.TrustedOrigins),
	))
	r.Use(s.loadSession)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "This page could not be found.")
	})

	r.Get("/static/site.css", s.siteCSS)
	r.Get("/static/highlight.css", s.highlightCSS)
	r.Get("/sitemap.xml", s.sitemap)
	r.Get("/robots.txt", s.robots)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", s.listPosts)
		r.Get("/posts/{slug}", s.getPost)
		r.Get("/categories", s.listCategories)
		r.Get("/slugs", s.listSlugs)
		r.Post("/revalidate", s.revalidate)

		r.Post("/auth/login", s.apiLogin)
		r.Post("/auth/logout", s.apiLogout)
		r.Get("/auth/session", s.apiSession)

		if s.broker != nil {
			r.With(requireAPISession).Get("/events", s.broker.ServeHTTP)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(s.cachePages)
		r.Get("/", s.home)
		r.Get(index, s.blogIndex)
		r.Get(index+"/category/{slug}", s.category)
		r.Get(index+"/{slug}", s.post)
	})

	r.Group(func(r chi.Router) {
		r.Use(redirectSignedIn)
		r.Get("/login", s.loginPage)
		r.Post("/login", s.loginSubmit)
		r.Get("/register", s.registerPage)
	})
	r.Post("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(requirePageSession)
		r.Get("/dashboard", s.dashboard)
		r.Get("/settings", s.settings)
	})

	return r
}

// skipCSRF exempts paths authenticated by other means.
func skipCSRF(paths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range paths {
				if r.URL.Path == p {
					r = csrf.UnsafeSkipCheck(r)
					break
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) csrfFailed(w http.ResponseWriter, r *http.Request) {
	reason := csrf.FailureReason(r)
	msg := "cross-origin request rejected"
	if reason != nil {
		s.logger.Warn("csrf check failed", slog.String("path", r.URL.Path), slog.String("error", reason.Error()))
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusForbidden, errorBody(msg))
		return
	}
	s.renderError(w, r, http.StatusForbidden, "This request was rejected because it came from another site.")
}

func (s *Server) siteCSS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(siteCSS)
}

func (s *Server) highlightCSS(w http.ResponseWriter, _ *http.Request) {
	css, err := s.svc.Renderer().Highlighter().CSS()
	if err != nil {
		s.logger.Error("highlight css failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = io.WriteString(w, css)
}
