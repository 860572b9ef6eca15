package blogservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/fetcher"
	"github.com/starford/folio/internal/notion"
	"github.com/starford/folio/internal/posts"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/testutil"
)

func testService(t *testing.T) (*Service, *testutil.FakeNotion) {
	t.Helper()
	fake := testutil.NewFakeNotion(t)
	for i := 0; i < 12; i++ {
		cat := "Go"
		if i%4 == 0 {
			cat = "Dev Log"
		}
		fake.AddPages(testutil.Post(testutil.PostFixture{
			ID:          fmt.Sprintf("page-%d", i),
			Title:       fmt.Sprintf("Post %d", i),
			Category:    cat,
			PublishedAt: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -i).Format(time.DateOnly),
		}))
	}
	fake.SetChildren("page-1",
		testutil.Heading("h1", 1, "Introduction"),
		testutil.Paragraph("p1", testutil.Words(240)),
		testutil.Toggle("t1", "Details"),
		testutil.Heading("h2", 2, "Wrap Up"),
		testutil.Code("c1", "go", "fmt.Println(\"hi\")", ""),
	)
	fake.SetChildren("t1", testutil.Paragraph("p2", testutil.Words(150)))

	client := notion.NewClient("secret_test", "db",
		notion.WithBaseURL(fake.URL()),
		notion.WithRateLimit(0),
		notion.WithRetry(0, time.Millisecond),
		notion.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	svc := New(posts.NewRepository(client), fetcher.New(client), render.New(),
		WithPageSize(5), WithIndexPath("/blog"))
	return svc, fake
}

func TestService_Index(t *testing.T) {
	svc, _ := testService(t)

	l, err := svc.Index(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 12, l.Total)
	assert.Equal(t, 3, l.TotalPages)
	require.Len(t, l.Posts, 5)
	assert.Equal(t, "post-5", l.Posts[0].Slug)
	assert.True(t, l.ShowNav)
	assert.True(t, l.Nav.HasPrev)
	assert.Equal(t, "/blog", l.Nav.PrevURL)
	assert.Equal(t, "/blog?page=3", l.Nav.NextURL)
	assert.Nil(t, l.Active)
	require.Len(t, l.Categories, 2)
	assert.Equal(t, "Go", l.Categories[0].Name)
}

func TestService_Category(t *testing.T) {
	svc, _ := testService(t)

	l, err := svc.Category(context.Background(), "dev-log", 1)
	require.NoError(t, err)
	require.NotNil(t, l.Active)
	assert.Equal(t, "Dev Log", l.Active.Name)
	assert.Equal(t, 3, l.Total)
	assert.False(t, l.ShowNav)
	assert.Equal(t, "/blog/category/dev-log", l.BasePath)

	_, err = svc.Category(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Post(t *testing.T) {
	svc, fake := testService(t)

	d, err := svc.Post(context.Background(), "post-1")
	require.NoError(t, err)

	assert.Equal(t, 2, d.Post.ReadingTime, "395 words")
	require.Len(t, d.TOC, 2)
	assert.Equal(t, "introduction", d.TOC[0].ID)
	assert.Equal(t, 2, d.TOC[1].Level)

	require.NotNil(t, d.Adjacent.Previous)
	require.NotNil(t, d.Adjacent.Next)
	assert.Equal(t, "post-0", d.Adjacent.Previous.Slug)
	assert.Equal(t, "post-2", d.Adjacent.Next.Slug)

	html := string(d.HTML)
	assert.Contains(t, html, `id="introduction"`)
	assert.Contains(t, html, "notion-code")
	assert.Contains(t, html, "<details")
	assert.Equal(t, 1, fake.Requests("/blocks/t1/children"))
}

func TestService_PostQueriesCatalogOnce(t *testing.T) {
	svc, fake := testService(t)

	_, err := svc.Post(context.Background(), "post-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Requests("/databases/db/query"))
}

func TestService_PostNotFound(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Post(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_PostTreeFailureAborts(t *testing.T) {
	svc, fake := testService(t)
	fake.FailNext("/blocks/t1", http.StatusBadGateway, 1)

	_, err := svc.Post(context.Background(), "post-1")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "post-1"))
}

func TestService_RecentAndSlugs(t *testing.T) {
	svc, _ := testService(t)

	recent, err := svc.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "post-0", recent[0].Slug)

	slugs, err := svc.Slugs(context.Background())
	require.NoError(t, err)
	assert.Len(t, slugs, 12)

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestService_ServerTiming(t *testing.T) {
	svc, _ := testService(t)

	h := servertiming.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := svc.Post(r.Context(), "post-1")
		require.NoError(t, err)
		w.WriteHeader(http.StatusNoContent)
	}), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog/post-1", nil))

	timing := rec.Header().Get(servertiming.HeaderKey)
	assert.Contains(t, timing, "blocks")
	assert.Contains(t, timing, "render")
}
