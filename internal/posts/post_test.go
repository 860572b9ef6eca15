package posts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/starford/folio/internal/testutil"
)

func TestFromPage_AllFields(t *testing.T) {
	rec := gjson.Parse(testutil.Post(testutil.PostFixture{
		ID:          "abc",
		Title:       "Hello World",
		Slug:        "custom-slug",
		Description: "A short intro",
		Category:    "Dev Notes",
		Tags:        []string{"go", "web"},
		PublishedAt: "2024-05-01",
		Cover:       "https://img.example/cover.png",
		Thumbnail:   "https://img.example/thumb.png",
	}))
	p := FromPage(rec)
	assert.Equal(t, "abc", p.ID)
	assert.Equal(t, "Hello World", p.Title)
	assert.Equal(t, "custom-slug", p.Slug)
	assert.Equal(t, "A short intro", p.Description)
	assert.Equal(t, "Dev Notes", p.Category)
	assert.Equal(t, "dev-notes", p.CategorySlug())
	assert.Equal(t, []string{"go", "web"}, p.Tags)
	assert.True(t, p.Published)
	assert.Equal(t, "2024-05-01", p.PublishedAt)
	assert.Equal(t, "https://img.example/cover.png", p.Thumbnail)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), p.PublishedTime())
}

func TestFromPage_SlugFallbacks(t *testing.T) {
	fromTitle := FromPage(gjson.Parse(testutil.Post(testutil.PostFixture{ID: "id1", Title: "Hello World"})))
	assert.Equal(t, "hello-world", fromTitle.Slug)

	fromID := FromPage(gjson.Parse(testutil.Post(testutil.PostFixture{ID: "id2", Title: "???"})))
	assert.Equal(t, "id2", fromID.Slug)

	noTitle := FromPage(gjson.Parse(testutil.Post(testutil.PostFixture{ID: "id3"})))
	assert.Equal(t, "id3", noTitle.Slug)
}

func TestFromPage_DateAndThumbnailFallbacks(t *testing.T) {
	p := FromPage(gjson.Parse(testutil.Post(testutil.PostFixture{
		ID:          "x",
		Title:       "T",
		CreatedTime: "2023-02-03T04:05:06.000Z",
		Thumbnail:   "https://img.example/thumb.png",
	})))
	assert.Equal(t, "2023-02-03T04:05:06.000Z", p.PublishedAt)
	assert.Equal(t, "https://img.example/thumb.png", p.Thumbnail)
	assert.Equal(t, 2023, p.PublishedTime().Year())
	assert.Empty(t, p.Category)
	assert.Equal(t, []string{}, p.Tags)
}

func TestFromPage_FileCoverAndTypeMismatch(t *testing.T) {
	raw := `{"object":"page","id":"f","created_time":"2024-01-01T00:00:00.000Z",
		"cover":{"type":"file","file":{"url":"https://files.example/c.png"}},
		"properties":{
			"Title":{"type":"title","title":[{"type":"text","plain_text":"File "},{"type":"text","plain_text":"cover"}]},
			"Slug":{"type":"url","url":"not-a-rich-text"},
			"Category":{"type":"rich_text","rich_text":[{"plain_text":"ignored"}]}
		}}`
	p := FromPage(gjson.Parse(raw))
	assert.Equal(t, "File cover", p.Title)
	assert.Equal(t, "file-cover", p.Slug)
	assert.Equal(t, "https://files.example/c.png", p.Thumbnail)
	assert.Empty(t, p.Category)
	assert.False(t, p.Published)
}

func TestIsPage(t *testing.T) {
	assert.True(t, isPage(gjson.Parse(`{"object":"page","properties":{}}`)))
	assert.False(t, isPage(gjson.Parse(`{"object":"data_source","properties":{}}`)))
	assert.False(t, isPage(gjson.Parse(`{"object":"page"}`)))
}
