package posts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/notion"
	"github.com/starford/folio/internal/testutil"
)

func testRepo(t *testing.T, n int) (*Repository, *testutil.FakeNotion) {
	t.Helper()
	fake := testutil.NewFakeNotion(t)
	for i := 0; i < n; i++ {
		cat := "Go"
		if i%3 == 0 {
			cat = "Life"
		}
		fake.AddPages(testutil.Post(testutil.PostFixture{
			ID:          fmt.Sprintf("page-%d", i),
			Title:       fmt.Sprintf("Post number %d", i),
			Category:    cat,
			PublishedAt: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -i).Format(time.DateOnly),
		}))
	}
	client := notion.NewClient("secret_test", "db",
		notion.WithBaseURL(fake.URL()),
		notion.WithRateLimit(0),
		notion.WithRetry(0, time.Millisecond),
		notion.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return NewRepository(client), fake
}

func TestRepository_ListPublished_PagesThroughCursor(t *testing.T) {
	repo, fake := testRepo(t, 230)

	all, err := repo.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 230)
	assert.Equal(t, "post-number-0", all[0].Slug)
	assert.Equal(t, "post-number-229", all[229].Slug)
	assert.Equal(t, 3, fake.Requests("/databases/db/query"))
}

func TestRepository_ListByPage(t *testing.T) {
	repo, _ := testRepo(t, 20)

	res, err := repo.ListByPage(context.Background(), 1, 9, "")
	require.NoError(t, err)
	assert.Len(t, res.Posts, 9)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 20, res.Total)

	life, err := repo.ListByPage(context.Background(), 1, 9, "life")
	require.NoError(t, err)
	assert.Equal(t, 7, life.Total)
	assert.Equal(t, 1, life.TotalPages)
}

func TestRepository_GetBySlug(t *testing.T) {
	repo, _ := testRepo(t, 3)

	p, err := repo.GetBySlug(context.Background(), "post-number-1")
	require.NoError(t, err)
	assert.Equal(t, "page-1", p.ID)

	_, err = repo.GetBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepository_CategoriesAdjacentSlugs(t *testing.T) {
	repo, _ := testRepo(t, 6)
	ctx := context.Background()

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Category{{Name: "Go", Slug: "go", Count: 4}, {Name: "Life", Slug: "life", Count: 2}}, cats)

	adj, err := repo.GetAdjacent(ctx, "post-number-0")
	require.NoError(t, err)
	assert.Nil(t, adj.Previous)
	require.NotNil(t, adj.Next)
	assert.Equal(t, "post-number-1", adj.Next.Slug)

	slugs, err := repo.ListAllSlugs(ctx)
	require.NoError(t, err)
	assert.Len(t, slugs, 6)
}

func TestRepository_SourceErrorPropagates(t *testing.T) {
	repo, fake := testRepo(t, 3)
	fake.FailNext("/databases/", http.StatusInternalServerError, 1)

	_, err := repo.ListPublished(context.Background())
	require.Error(t, err)
	var apiErr *notion.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepository_ConcurrentCallsShareOneFetch(t *testing.T) {
	repo, fake := testRepo(t, 5)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ListPublished(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	// Collapsed calls never exceed one request per caller and usually share one.
	assert.LessOrEqual(t, fake.Requests("/databases/db/query"), 10)
}

type gatedSource struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedSource) QueryPublished(ctx context.Context, _ string) (notion.Page, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return notion.Page{}, nil
	case <-ctx.Done():
		return notion.Page{}, ctx.Err()
	}
}

func (s *gatedSource) ListChildren(context.Context, string, string) (notion.Page, error) {
	return notion.Page{}, nil
}

func TestRepository_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	src := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	repo := NewRepository(src)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := repo.Catalog(ctxA)
		errA <- err
	}()
	<-src.started

	errB := make(chan error, 1)
	go func() {
		_, err := repo.Catalog(context.Background())
		errB <- err
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(src.release)

	select {
	case err := <-errB:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waiting caller never returned")
	}
}
