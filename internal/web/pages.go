package web

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/auth"
	"github.com/starford/folio/internal/blogservice"
	"github.com/starford/folio/internal/posts"
	"github.com/starford/folio/internal/seo"
)

// pageParam reads the 1-based page query parameter. Anything unparseable is page 1.
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// failPage maps a service error to the error page.
func (s *Server) failPage(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "This page could not be found.")
		return
	}
	s.logger.Error("page failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	s.renderError(w, r, http.StatusBadGateway, "The content source is unavailable right now. Please try again shortly.")
}

type homeView struct {
	Posts []posts.Post
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	recent, err := s.svc.Recent(r.Context(), RecentPosts)
	if err != nil {
		s.failPage(w, r, err)
		return
	}
	s.render(w, http.StatusOK, "home", s.newViewData(r, "", homeView{Posts: recent}))
}

type categoryFilter struct {
	Categories []posts.Category
	Active     *posts.Category
	IndexPath  string
}

type blogView struct {
	Listing blogservice.Listing
	Active  *posts.Category
	Filter  categoryFilter
}

func (s *Server) newBlogView(l blogservice.Listing) blogView {
	return blogView{
		Listing: l,
		Active:  l.Active,
		Filter:  categoryFilter{Categories: l.Categories, Active: l.Active, IndexPath: s.svc.IndexPath()},
	}
}

func (s *Server) blogIndex(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Index(r.Context(), pageParam(r))
	if err != nil {
		s.failPage(w, r, err)
		return
	}
	s.render(w, http.StatusOK, "blog", s.newViewData(r, "Blog", s.newBlogView(l)))
}

func (s *Server) category(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Category(r.Context(), chi.URLParam(r, "slug"), pageParam(r))
	if err != nil {
		s.failPage(w, r, err)
		return
	}
	s.render(w, http.StatusOK, "blog", s.newViewData(r, l.Active.Name, s.newBlogView(l)))
}

type postView struct {
	Detail blogservice.PostDetail
	JSONLD any
}

func (s *Server) post(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Post(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.failPage(w, r, err)
		return
	}
	canonical := s.cfg.BaseURL + r.URL.Path
	data := s.newViewData(r, d.Post.Title, postView{
		Detail: d,
		JSONLD: seo.JSONLD(seo.NewBlogPosting(d.Post, canonical, s.cfg.Author)),
	})
	if d.Post.Description != "" {
		data.Description = d.Post.Description
	}
	s.render(w, http.StatusOK, "post", data)
}

func (s *Server) sitemap(w http.ResponseWriter, r *http.Request) {
	b := seo.NewBuilder(s.cfg.BaseURL, s.svc.IndexPath(), s.now())
	body, err := seo.Generate(r.Context(), s.svc.Repository(), b, s.logger)
	if err != nil {
		s.logger.Error("sitemap build failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(body)
}

func (s *Server) robots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("User-agent: *\nAllow: /\nDisallow: /dashboard\nDisallow: /settings\n\nSitemap: " + s.cfg.BaseURL + "/sitemap.xml\n"))
}

type loginView struct {
	Callback string
	Email    string
	Error    string
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	v := loginView{Callback: safeCallback(r.URL.Query().Get("callbackUrl"))}
	s.render(w, http.StatusOK, "login", s.newViewData(r, "Sign in", v))
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	c := auth.Credentials{Email: r.PostForm.Get("email"), Password: r.PostForm.Get("password")}
	v := loginView{Callback: safeCallback(r.PostForm.Get("callbackUrl")), Email: c.Email}

	p, err := s.authn.Authenticate(r.Context(), c)
	if err != nil {
		status := http.StatusUnauthorized
		v.Error = "Invalid email or password."
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			status = http.StatusBadRequest
			v.Error = "Enter a valid email and a password of at least 8 characters."
		}
		s.render(w, status, "login", s.newViewData(r, "Sign in", v))
		return
	}

	token, exp := s.sessions.Issue(p)
	s.setSessionCookie(w, token, exp)
	s.logger.Info("signed in", slog.String("user", p.ID))
	http.Redirect(w, r, v.Callback, http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "register", s.newViewData(r, "Register", nil))
}

type stat struct {
	Label string
	Value string
}

type dashboardView struct {
	Stats []stat
	Users []auth.Principal
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	catalog, err := s.svc.Repository().Catalog(r.Context())
	if err != nil {
		s.failPage(w, r, err)
		return
	}
	clients := 0
	if s.broker != nil {
		clients = s.broker.ClientCount()
	}
	v := dashboardView{
		Stats: []stat{
			{Label: "Published posts", Value: strconv.Itoa(catalog.Len())},
			{Label: "Categories", Value: strconv.Itoa(len(catalog.Categories()))},
			{Label: "Live dashboards", Value: strconv.Itoa(clients)},
		},
	}
	if p.Role == auth.RoleAdmin {
		v.Users = append(v.Users, s.cfg.Users...)
		sort.SliceStable(v.Users, func(i, j int) bool { return v.Users[i].Name < v.Users[j].Name })
	} else {
		v.Users = []auth.Principal{p}
	}
	s.render(w, http.StatusOK, "dashboard", s.newViewData(r, "Dashboard", v))
}

type settingsView struct {
	Lifetime string
}

func (s *Server) settings(w http.ResponseWriter, r *http.Request) {
	v := settingsView{Lifetime: s.sessions.Lifetime().String()}
	s.render(w, http.StatusOK, "settings", s.newViewData(r, "Settings", v))
}
