// Package seo builds the sitemap and structured data for blog pages.
package seo

import (
	"context"
	"encoding/xml"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/posts"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq is a sitemap change frequency.
type ChangeFreq string

const (
	ChangeFreqDaily  ChangeFreq = "daily"
	ChangeFreqWeekly ChangeFreq = "weekly"
)

// URL is one sitemap entry.
type URL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap is the urlset document.
type Sitemap struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// Builder accumulates sitemap entries for one site.
type Builder struct {
	baseURL   string
	indexPath string
	now       time.Time
	urls      []URL
}

// NewBuilder creates a Builder. now stamps entries that have no date of their own.
func NewBuilder(baseURL, indexPath string, now time.Time) *Builder {
	if indexPath == "" {
		indexPath = "/blog"
	}
	return &Builder{baseURL: strings.TrimSuffix(baseURL, "/"), indexPath: indexPath, now: now}
}

func (b *Builder) stamp(t time.Time) string {
	if t.IsZero() {
		t = b.now
	}
	return t.UTC().Format(time.RFC3339)
}

// AddStatic adds the home page and the blog index.
func (b *Builder) AddStatic() {
	b.urls = append(b.urls,
		URL{Loc: b.baseURL, LastMod: b.stamp(time.Time{}), ChangeFreq: ChangeFreqWeekly, Priority: "1.0"},
		URL{Loc: b.baseURL + b.indexPath, LastMod: b.stamp(time.Time{}), ChangeFreq: ChangeFreqDaily, Priority: "0.9"},
	)
}

// AddPost adds a post, last modified at its publish date.
func (b *Builder) AddPost(p posts.Post) {
	b.urls = append(b.urls, URL{
		Loc:        b.baseURL + b.indexPath + "/" + p.Slug,
		LastMod:    b.stamp(p.PublishedTime()),
		ChangeFreq: ChangeFreqWeekly,
		Priority:   "0.8",
	})
}

// AddCategory adds a category listing.
func (b *Builder) AddCategory(c posts.Category) {
	b.urls = append(b.urls, URL{
		Loc:        b.baseURL + b.indexPath + "/category/" + c.Slug,
		LastMod:    b.stamp(time.Time{}),
		ChangeFreq: ChangeFreqWeekly,
		Priority:   "0.7",
	})
}

// URLs returns the accumulated entries.
func (b *Builder) URLs() []URL { return b.urls }

// Build renders the sitemap XML with its header.
func (b *Builder) Build() ([]byte, error) {
	body, err := xml.MarshalIndent(Sitemap{XMLNS: XMLNamespace, URLs: b.urls}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// Lister is the part of the post repository the sitemap reads.
type Lister interface {
	ListPublished(ctx context.Context) ([]posts.Post, error)
	ListCategories(ctx context.Context) ([]posts.Category, error)
}

// Generate builds the full sitemap. Posts and categories are fetched
// concurrently; if either fails the error is logged and only the static
// entries are returned.
func Generate(ctx context.Context, l Lister, b *Builder, logger *slog.Logger) ([]byte, error) {
	b.AddStatic()

	var (
		published  []posts.Post
		categories []posts.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		published, err = l.ListPublished(gctx)
		return err
	})
	g.Go(func() (err error) {
		categories, err = l.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("sitemap: document source unavailable, serving static entries",
			slog.String("error", err.Error()))
		return b.Build()
	}

	for _, p := range published {
		b.AddPost(p)
	}
	for _, c := range categories {
		b.AddCategory(c)
	}
	return b.Build()
}
