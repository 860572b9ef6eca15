package notion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/testutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileSource_QueryPublished_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, DatabaseFile), "["+
		testutil.Post(testutil.PostFixture{ID: "old", Title: "Old", PublishedAt: "2024-01-01"})+","+
		testutil.Post(testutil.PostFixture{ID: "draft", Title: "Draft", PublishedAt: "2024-06-01", Unpublished: true})+","+
		testutil.Post(testutil.PostFixture{ID: "new", Title: "New", PublishedAt: "2024-05-01"})+
		"]")

	src, err := NewFileSource(dir)
	require.NoError(t, err)

	page, err := src.QueryPublished(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "new", page.Results[0].Get("id").String())
	assert.Equal(t, "old", page.Results[1].Get("id").String())
	assert.False(t, page.HasMore)
}

func TestFileSource_ListChildren(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, BlocksDir, "page.json"),
		`{"object":"list","results":[`+testutil.Paragraph("b1", "hi")+`],"has_more":false,"next_cursor":null}`)

	src, err := NewFileSource(dir)
	require.NoError(t, err)

	page, err := src.ListChildren(context.Background(), "page", "")
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "b1", page.Results[0].Get("id").String())

	empty, err := src.ListChildren(context.Background(), "no-children-file", "")
	require.NoError(t, err)
	assert.Empty(t, empty.Results)
}

func TestFileSource_RejectsTraversal(t *testing.T) {
	src, err := NewFileSource(t.TempDir())
	require.NoError(t, err)

	_, err = src.ListChildren(context.Background(), "../../etc/passwd", "")
	assert.Error(t, err)
	_, err = src.safePath("../outside.json")
	assert.Error(t, err)
}

func TestFileSource_MissingDatabase(t *testing.T) {
	src, err := NewFileSource(t.TempDir())
	require.NoError(t, err)
	_, err = src.QueryPublished(context.Background(), "")
	assert.Error(t, err)
}

func TestNewFileSource_NotADirectory(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	writeFile(t, f, "x")
	_, err := NewFileSource(f)
	assert.Error(t, err)
}

func TestWriteSnapshot_RoundTripsThroughFileSource(t *testing.T) {
	fake := testutil.NewFakeNotion(t)
	fake.AddPages(testutil.Post(testutil.PostFixture{ID: "p1", Title: "One", PublishedAt: "2024-03-01"}))
	fake.SetChildren("p1", testutil.Paragraph("b1", "intro"), testutil.Toggle("t1", "more"))
	fake.SetChildren("t1", testutil.Paragraph("b2", "hidden"))
	client := testClient(t, fake, WithPageSize(1))

	dir := t.TempDir()
	stats, err := WriteSnapshot(context.Background(), client, dir, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, SnapshotStats{Pages: 1, Blocks: 3}, stats)

	src, err := NewFileSource(dir)
	require.NoError(t, err)
	pages, err := src.QueryPublished(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, pages.Results, 1)
	assert.Equal(t, "p1", pages.Results[0].Get("id").String())

	nested, err := src.ListChildren(context.Background(), "t1", "")
	require.NoError(t, err)
	require.Len(t, nested.Results, 1)
	assert.Equal(t, "hidden", nested.Results[0].Get("paragraph.rich_text.0.plain_text").String())
}
