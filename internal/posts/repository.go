package posts

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/notion"
)

// DefaultFetchTimeout bounds one shared fetch of the published set.
const DefaultFetchTimeout = time.Minute

// Repository reads posts from a Source. It keeps no state between calls
// beyond collapsing concurrent identical fetches.
type Repository struct {
	src          notion.Source
	group        singleflight.Group
	fetchTimeout time.Duration
}

// NewRepository creates a Repository over src.
func NewRepository(src notion.Source) *Repository {
	return &Repository{src: src, fetchTimeout: DefaultFetchTimeout}
}

// Catalog fetches the full published set and wraps it for in-memory queries.
// The shared fetch outlives any single caller; a caller that goes away only
// stops waiting for it.
func (r *Repository) Catalog(ctx context.Context) (*Catalog, error) {
	ch := r.group.DoChan("published", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()
		posts, err := r.fetchAll(fetchCtx)
		if err != nil {
			return nil, err
		}
		return NewCatalog(posts), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Catalog), nil
	}
}

func (r *Repository) fetchAll(ctx context.Context) ([]Post, error) {
	var out []Post
	cursor := ""
	for {
		page, err := r.src.QueryPublished(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("posts: query published: %w", err)
		}
		for _, rec := range page.Results {
			if isPage(rec) {
				out = append(out, FromPage(rec))
			}
		}
		if !page.HasMore {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// ListPublished returns every published post in descending publish order.
func (r *Repository) ListPublished(ctx context.Context) ([]Post, error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Posts(), nil
}

// ListByPage returns one page of posts, optionally restricted to a category slug.
func (r *Repository) ListByPage(ctx context.Context, page, pageSize int, categorySlug string) (ListResult, error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return ListResult{}, err
	}
	return c.Page(page, pageSize, categorySlug), nil
}

// GetBySlug returns the post with slug or apperr.ErrNotFound.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (Post, error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return Post{}, err
	}
	p, ok := c.BySlug(slug)
	if !ok {
		return Post{}, fmt.Errorf("posts: slug %q: %w", slug, apperr.ErrNotFound)
	}
	return p, nil
}

// ListCategories returns category aggregates, most used first.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Categories(), nil
}

// GetAdjacent returns the neighbours of slug; both are nil for unknown slugs.
func (r *Repository) GetAdjacent(ctx context.Context, slug string) (Adjacent, error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return Adjacent{}, err
	}
	return c.Adjacent(slug), nil
}

// ListAllSlugs returns every published slug.
func (r *Repository) ListAllSlugs(ctx context.Context) ([]string, error) {
	c, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Slugs(), nil
}
