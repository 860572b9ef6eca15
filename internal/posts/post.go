// Package posts projects database pages into blog posts and answers every
// listing question (pages, categories, adjacency, slugs) from one fetch of
// the full published set.
package posts

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/starford/folio/internal/richtext"
	"github.com/starford/folio/internal/slug"
)

// Post is a read-only snapshot of one published document.
type Post struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	PublishedAt string   `json:"published_at"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	ReadingTime int      `json:"reading_time,omitempty"`
}

// PublishedTime parses PublishedAt, which is either a date or a timestamp.
// It returns the zero time when the value is not parseable.
func (p Post) PublishedTime() time.Time {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, p.PublishedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CategorySlug is the slug of the post's category, "" when uncategorized.
func (p Post) CategorySlug() string {
	return slug.Slugify(p.Category)
}

// Category is an aggregate over posts sharing a category name.
type Category struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// Adjacent holds the neighbours of a post in publish order. Previous is the
// more recent one.
type Adjacent struct {
	Previous *Post `json:"previous"`
	Next     *Post `json:"next"`
}

// ListResult is one page of a possibly filtered listing.
type ListResult struct {
	Posts      []Post `json:"posts"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
	Category   string `json:"category,omitempty"`
}

// FromPage projects one database page record.
//
// The slug is the Slug property, else the slugified title, else the page id.
// PublishedAt falls back to the page creation time. The thumbnail is the page
// cover, else the Thumbnail url property.
func FromPage(page gjson.Result) Post {
	title := titleOf(page)
	p := Post{
		ID:          page.Get("id").String(),
		Title:       title,
		Description: richtext.PlainText(richtext.FromJSON(property(page, "Description", "rich_text"))),
		Category:    property(page, "Category", "select").Get("name").String(),
		Tags:        []string{},
		Published:   property(page, "Published", "checkbox").Bool(),
		PublishedAt: property(page, "PublishedAt", "date").Get("start").String(),
	}

	p.Slug = richtext.PlainText(richtext.FromJSON(property(page, "Slug", "rich_text")))
	if p.Slug == "" {
		p.Slug = slug.Slugify(title)
	}
	if p.Slug == "" {
		p.Slug = p.ID
	}

	for _, t := range property(page, "Tags", "multi_select").Array() {
		p.Tags = append(p.Tags, t.Get("name").String())
	}
	if p.PublishedAt == "" {
		p.PublishedAt = page.Get("created_time").String()
	}

	cover := page.Get("cover")
	switch cover.Get("type").String() {
	case "external":
		p.Thumbnail = cover.Get("external.url").String()
	case "file":
		p.Thumbnail = cover.Get("file.url").String()
	}
	if p.Thumbnail == "" {
		p.Thumbnail = property(page, "Thumbnail", "url").String()
	}
	return p
}

// property returns the typed payload of a named property, or an empty result
// when the property is missing or has a different type.
func property(page gjson.Result, name, typ string) gjson.Result {
	prop := page.Get("properties." + gjson.Escape(name))
	if prop.Get("type").String() != typ {
		return gjson.Result{}
	}
	return prop.Get(typ)
}

func titleOf(page gjson.Result) string {
	var title string
	page.Get("properties").ForEach(func(_, prop gjson.Result) bool {
		if prop.Get("type").String() == "title" {
			title = richtext.PlainText(richtext.FromJSON(prop.Get("title")))
			return false
		}
		return true
	})
	return title
}

// isPage filters query results down to page records.
func isPage(rec gjson.Result) bool {
	obj := rec.Get("object").String()
	return (obj == "" || obj == "page") && rec.Get("properties").IsObject()
}
