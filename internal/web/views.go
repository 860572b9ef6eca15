package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/folio/internal/auth"
	"github.com/starford/folio/internal/posts"
)

//go:embed templates
var templateFS embed.FS

//go:embed static/site.css
var siteCSS []byte

var pageNames = []string{
	"home", "blog", "post", "login", "register", "dashboard", "settings", "error",
}

// views holds one template set per page, each made of the layout, the
// partials and the page's own content block.
type views struct {
	pages map[string]*template.Template
}

func funcMap(indexPath string) template.FuncMap {
	return template.FuncMap{
		"postURL": func(slug string) string { return indexPath + "/" + slug },
		"date": func(p posts.Post) string {
			t := p.PublishedTime()
			if t.IsZero() {
				return ""
			}
			return t.Format("January 2, 2006")
		},
	}
}

func loadViews(indexPath string) (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcMap(indexPath)).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials/*.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// viewData is what every page template receives.
type viewData struct {
	Site        string
	Title       string
	Description string
	Canonical   string
	IndexPath   string
	Year        int
	User        *auth.Principal
	Data        any
}

func (s *Server) newViewData(r *http.Request, title string, data any) viewData {
	d := viewData{
		Site:        s.cfg.SiteName,
		Title:       title,
		Description: s.cfg.SiteDescription,
		IndexPath:   s.svc.IndexPath(),
		Year:        time.Now().Year(),
		Data:        data,
	}
	if s.cfg.BaseURL != "" {
		d.Canonical = s.cfg.BaseURL + r.URL.Path
	}
	if p, ok := auth.FromContext(r.Context()); ok {
		d.User = &p
	}
	return d
}

// render executes a page into a buffer first so a template failure never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, page string, d viewData) {
	t, ok := s.views.pages[page]
	if !ok {
		s.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", d); err != nil {
		s.logger.Error("render page failed", slog.String("page", page), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

type errorView struct {
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, status, "error", s.newViewData(r, http.StatusText(status), errorView{Status: status, Message: msg}))
}
