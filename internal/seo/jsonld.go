package seo

import (
	"encoding/json"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/starford/folio/internal/posts"
)

// BlogPosting is schema.org BlogPosting metadata.
type BlogPosting struct {
	Context        string  `json:"@context"`
	Type           string  `json:"@type"`
	Headline       string  `json:"headline"`
	Description    string  `json:"description,omitempty"`
	URL            string  `json:"url"`
	Image          string  `json:"image,omitempty"`
	DatePublished  string  `json:"datePublished,omitempty"`
	ArticleSection string  `json:"articleSection,omitempty"`
	Keywords       string  `json:"keywords,omitempty"`
	TimeRequired   string  `json:"timeRequired,omitempty"`
	Author         *Person `json:"author,omitempty"`
}

// Person is a schema.org Person.
type Person struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// NewBlogPosting describes p published at url.
func NewBlogPosting(p posts.Post, url, author string) BlogPosting {
	bp := BlogPosting{
		Context:        "https://schema.org",
		Type:           "BlogPosting",
		Headline:       p.Title,
		Description:    p.Description,
		URL:            url,
		Image:          p.Thumbnail,
		ArticleSection: p.Category,
		Keywords:       strings.Join(p.Tags, ", "),
	}
	if t := p.PublishedTime(); !t.IsZero() {
		bp.DatePublished = t.UTC().Format(time.RFC3339)
	}
	if p.ReadingTime > 0 {
		bp.TimeRequired = "PT" + strconv.Itoa(p.ReadingTime) + "M"
	}
	if author != "" {
		bp.Author = &Person{Type: "Person", Name: author}
	}
	return bp
}

// JSONLD returns v as a script-safe JSON-LD payload.
func JSONLD(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	// json.Marshal escapes <, > and & so the payload cannot close the script element.
	return template.JS(b) //nolint:gosec
}
