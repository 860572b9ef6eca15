package seo

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/posts"
)

type fakeLister struct {
	posts      []posts.Post
	categories []posts.Category
	err        error
}

func (f fakeLister) ListPublished(context.Context) ([]posts.Post, error) {
	return f.posts, f.err
}

func (f fakeLister) ListCategories(context.Context) ([]posts.Category, error) {
	return f.categories, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func parse(t *testing.T, data []byte) Sitemap {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, []byte(xml.Header)))
	var sm Sitemap
	require.NoError(t, xml.Unmarshal(data, &sm))
	return sm
}

func TestGenerate(t *testing.T) {
	l := fakeLister{
		posts: []posts.Post{
			{Slug: "hello-world", PublishedAt: "2026-02-10"},
			{Slug: "second", PublishedAt: "2026-02-01T09:30:00.000Z"},
		},
		categories: []posts.Category{{Name: "Dev Log", Slug: "dev-log", Count: 2}},
	}
	data, err := Generate(context.Background(), l, NewBuilder("https://blog.example.com/", "/blog", fixedNow), slog.Default())
	require.NoError(t, err)

	sm := parse(t, data)
	assert.Contains(t, string(data), `xmlns="`+XMLNamespace+`"`)
	require.Len(t, sm.URLs, 5)

	assert.Equal(t, URL{Loc: "https://blog.example.com", LastMod: "2026-03-01T12:00:00Z", ChangeFreq: ChangeFreqWeekly, Priority: "1.0"}, sm.URLs[0])
	assert.Equal(t, "https://blog.example.com/blog", sm.URLs[1].Loc)
	assert.Equal(t, ChangeFreqDaily, sm.URLs[1].ChangeFreq)
	assert.Equal(t, "0.9", sm.URLs[1].Priority)

	assert.Equal(t, URL{Loc: "https://blog.example.com/blog/hello-world", LastMod: "2026-02-10T00:00:00Z", ChangeFreq: ChangeFreqWeekly, Priority: "0.8"}, sm.URLs[2])
	assert.Equal(t, "2026-02-01T09:30:00Z", sm.URLs[3].LastMod)
	assert.Equal(t, URL{Loc: "https://blog.example.com/blog/category/dev-log", LastMod: "2026-03-01T12:00:00Z", ChangeFreq: ChangeFreqWeekly, Priority: "0.7"}, sm.URLs[4])
}

func TestGenerate_FallsBackToStatic(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	data, err := Generate(context.Background(), fakeLister{err: errors.New("boom")}, NewBuilder("http://localhost:8080", "", fixedNow), logger)
	require.NoError(t, err)

	sm := parse(t, data)
	require.Len(t, sm.URLs, 2)
	assert.Equal(t, "http://localhost:8080/blog", sm.URLs[1].Loc)
	assert.True(t, strings.Contains(logs.String(), "boom"))
}

func TestNewBlogPosting(t *testing.T) {
	p := posts.Post{
		Title:       "Hello </script>",
		Description: "desc",
		Category:    "Dev",
		Tags:        []string{"go", "web"},
		PublishedAt: "2026-02-10",
		ReadingTime: 4,
	}
	bp := NewBlogPosting(p, "https://blog.example.com/blog/hello", "Folio")
	assert.Equal(t, "BlogPosting", bp.Type)
	assert.Equal(t, "2026-02-10T00:00:00Z", bp.DatePublished)
	assert.Equal(t, "go, web", bp.Keywords)
	assert.Equal(t, "PT4M", bp.TimeRequired)
	require.NotNil(t, bp.Author)

	js := string(JSONLD(bp))
	assert.NotContains(t, js, "</script>")
	assert.Contains(t, js, `"@context":"https://schema.org"`)
}
