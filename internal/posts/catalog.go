package posts

import (
	"sort"

	"github.com/starford/folio/internal/slug"
)

// DefaultPageSize is the listing page size when none is given.
const DefaultPageSize = 9

// Catalog is an immutable snapshot of the published posts in descending
// publish order. All listing operations are pure over that snapshot.
type Catalog struct {
	posts  []Post
	bySlug map[string]int
}

// NewCatalog wraps posts, which must already be in publish order.
func NewCatalog(posts []Post) *Catalog {
	c := &Catalog{posts: posts, bySlug: make(map[string]int, len(posts))}
	for i, p := range posts {
		// First occurrence wins, matching a linear find.
		if _, dup := c.bySlug[p.Slug]; !dup {
			c.bySlug[p.Slug] = i
		}
	}
	return c
}

// Len returns the number of posts.
func (c *Catalog) Len() int { return len(c.posts) }

// Posts returns a copy of every post.
func (c *Catalog) Posts() []Post {
	out := make([]Post, len(c.posts))
	copy(out, c.posts)
	return out
}

// Page slices the (optionally category filtered) list. A page past the end
// yields no posts; page and pageSize below 1 fall back to 1 and DefaultPageSize.
func (c *Catalog) Page(page, pageSize int, categorySlug string) ListResult {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	filtered := c.posts
	if categorySlug != "" {
		filtered = make([]Post, 0, len(c.posts))
		for _, p := range c.posts {
			if slug.Slugify(p.Category) == categorySlug {
				filtered = append(filtered, p)
			}
		}
	}

	total := len(filtered)
	res := ListResult{
		Posts:      []Post{},
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
		Category:   categorySlug,
	}
	start := (page - 1) * pageSize
	if start >= total {
		return res
	}
	end := min(start+pageSize, total)
	res.Posts = append(res.Posts, filtered[start:end]...)
	return res
}

// BySlug returns the post with the given slug.
func (c *Catalog) BySlug(s string) (Post, bool) {
	i, ok := c.bySlug[s]
	if !ok {
		return Post{}, false
	}
	return c.posts[i], true
}

// Categories counts posts per non-empty category, most used first. Equal
// counts keep the order in which each category first appears.
func (c *Catalog) Categories() []Category {
	index := make(map[string]int)
	out := []Category{}
	for _, p := range c.posts {
		if p.Category == "" {
			continue
		}
		if i, ok := index[p.Category]; ok {
			out[i].Count++
			continue
		}
		index[p.Category] = len(out)
		out = append(out, Category{Name: p.Category, Slug: slug.Slugify(p.Category), Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// CategoryBySlug finds a category aggregate by its slug.
func (c *Catalog) CategoryBySlug(s string) (Category, bool) {
	for _, cat := range c.Categories() {
		if cat.Slug == s {
			return cat, true
		}
	}
	return Category{}, false
}

// Adjacent returns the more recent (Previous) and older (Next) neighbours.
func (c *Catalog) Adjacent(s string) Adjacent {
	i, ok := c.bySlug[s]
	if !ok {
		return Adjacent{}
	}
	var adj Adjacent
	if i > 0 {
		prev := c.posts[i-1]
		adj.Previous = &prev
	}
	if i < len(c.posts)-1 {
		next := c.posts[i+1]
		adj.Next = &next
	}
	return adj
}

// Slugs returns every slug in publish order.
func (c *Catalog) Slugs() []string {
	out := make([]string, 0, len(c.posts))
	for _, p := range c.posts {
		out = append(out, p.Slug)
	}
	return out
}
