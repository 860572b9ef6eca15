// Package blogservice assembles what each blog page needs from the post
// repository, the content fetcher and the renderer.
package blogservice

import (
	"context"
	"fmt"
	"html/template"

	servertiming "github.com/mitchellh/go-server-timing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/block"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/fetcher"
	"github.com/starford/folio/internal/pagination"
	"github.com/starford/folio/internal/posts"
	"github.com/starford/folio/internal/render"
)

// DefaultIndexPath is where the blog listing lives.
const DefaultIndexPath = "/blog"

// Listing is one page of the blog index or of a category.
type Listing struct {
	posts.ListResult
	Categories []posts.Category `json:"categories"`
	Active     *posts.Category  `json:"active_category,omitempty"`
	Nav        pagination.Nav   `json:"-"`
	ShowNav    bool             `json:"-"`
	BasePath   string           `json:"-"`
}

// PostDetail is everything the post page shows.
type PostDetail struct {
	Post     posts.Post         `json:"post"`
	TOC      []document.TocItem `json:"toc"`
	Adjacent posts.Adjacent     `json:"adjacent"`
	HTML     template.HTML      `json:"html"`
	Blocks   []block.Block      `json:"-"`
}

// Service composes the read side of the blog.
type Service struct {
	repo      *posts.Repository
	fetcher   *fetcher.Fetcher
	renderer  *render.Renderer
	pageSize  int
	indexPath string
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithIndexPath sets the listing path used to build navigation links.
func WithIndexPath(p string) Option {
	return func(s *Service) {
		if p != "" {
			s.indexPath = p
		}
	}
}

// New creates a Service.
func New(repo *posts.Repository, f *fetcher.Fetcher, r *render.Renderer, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		fetcher:   f,
		renderer:  r,
		pageSize:  posts.DefaultPageSize,
		indexPath: DefaultIndexPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexPath returns the listing path.
func (s *Service) IndexPath() string { return s.indexPath }

// Renderer returns the block renderer.
func (s *Service) Renderer() *render.Renderer { return s.renderer }

// Repository returns the post repository.
func (s *Service) Repository() *posts.Repository { return s.repo }

// Index returns page of the unfiltered listing.
func (s *Service) Index(ctx context.Context, page int) (Listing, error) {
	return s.list(ctx, page, "", s.indexPath)
}

// Category returns page of the listing for one category. An unknown
// category is apperr.ErrNotFound.
func (s *Service) Category(ctx context.Context, categorySlug string, page int) (Listing, error) {
	return s.list(ctx, page, categorySlug, s.indexPath+"/category/"+categorySlug)
}

func (s *Service) list(ctx context.Context, page int, categorySlug, basePath string) (Listing, error) {
	defer startMetric(ctx, "posts", "post listing")()

	catalog, err := s.repo.Catalog(ctx)
	if err != nil {
		return Listing{}, err
	}

	l := Listing{BasePath: basePath, Categories: catalog.Categories()}
	if categorySlug != "" {
		cat, ok := catalog.CategoryBySlug(categorySlug)
		if !ok {
			return Listing{}, fmt.Errorf("blogservice: category %q: %w", categorySlug, apperr.ErrNotFound)
		}
		l.Active = &cat
	}
	l.ListResult = catalog.Page(page, s.pageSize, categorySlug)
	l.Nav, l.ShowNav = pagination.Build(basePath, l.Page, l.TotalPages)
	return l, nil
}

// Post resolves a post and its neighbours from one catalog snapshot, then
// fetches its block tree. Any failure aborts the whole result.
func (s *Service) Post(ctx context.Context, slug string) (PostDetail, error) {
	catalog, err := s.repo.Catalog(ctx)
	if err != nil {
		return PostDetail{}, err
	}
	post, ok := catalog.BySlug(slug)
	if !ok {
		return PostDetail{}, fmt.Errorf("blogservice: post %q: %w", slug, apperr.ErrNotFound)
	}
	adjacent := catalog.Adjacent(slug)

	stopTree := startMetric(ctx, "blocks", "block tree")
	blocks, err := s.fetcher.Tree(ctx, post.ID)
	stopTree()
	if err != nil {
		return PostDetail{}, fmt.Errorf("blogservice: post %q: %w", slug, err)
	}

	stop := startMetric(ctx, "render", "render blocks")
	post.ReadingTime = document.ReadingTime(blocks)
	d := PostDetail{
		Post:     post,
		TOC:      document.TableOfContents(blocks),
		Adjacent: adjacent,
		HTML:     s.renderer.Render(blocks),
		Blocks:   blocks,
	}
	stop()
	return d, nil
}

// Categories lists every category.
func (s *Service) Categories(ctx context.Context) ([]posts.Category, error) {
	return s.repo.ListCategories(ctx)
}

// Slugs lists every published slug.
func (s *Service) Slugs(ctx context.Context) ([]string, error) {
	return s.repo.ListAllSlugs(ctx)
}

// Recent returns the n most recent posts.
func (s *Service) Recent(ctx context.Context, n int) ([]posts.Post, error) {
	res, err := s.repo.ListByPage(ctx, 1, n, "")
	if err != nil {
		return nil, err
	}
	return res.Posts, nil
}

// startMetric records a Server-Timing metric when the request carries a
// timing header, and returns the function that stops it.
func startMetric(ctx context.Context, name, desc string) func() {
	h := servertiming.FromContext(ctx)
	if h == nil {
		return func() {}
	}
	m := h.NewMetric(name).WithDesc(desc).Start()
	return func() { m.Stop() }
}
