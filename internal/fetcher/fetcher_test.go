package fetcher

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/starford/folio/internal/block"
	"github.com/starford/folio/internal/notion"
	"github.com/starford/folio/internal/testutil"
)

// memSource serves children from memory, pageSize records per call.
type memSource struct {
	pageSize int
	children map[string][]string
	fail     map[string]error
	delay    func(id string) time.Duration

	mu    sync.Mutex
	calls []string
	inFlight, maxInFlight atomic.Int32
}

func (m *memSource) QueryPublished(context.Context, string) (notion.Page, error) {
	return notion.Page{}, nil
}

func (m *memSource) ListChildren(ctx context.Context, id, cursor string) (notion.Page, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, id+"@"+cursor)
	m.mu.Unlock()

	if m.delay != nil {
		select {
		case <-time.After(m.delay(id)):
		case <-ctx.Done():
			return notion.Page{}, ctx.Err()
		}
	}
	if err := m.fail[id]; err != nil {
		return notion.Page{}, err
	}
	recs := m.children[id]
	start, _ := strconv.Atoi(cursor)
	size := m.pageSize
	if size <= 0 {
		size = 100
	}
	end := start + size
	if end > len(recs) {
		end = len(recs)
	}
	page := notion.Page{}
	for _, r := range recs[start:end] {
		page.Results = append(page.Results, gjson.Parse(r))
	}
	if end < len(recs) {
		page.HasMore = true
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func ids(blocks []block.Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Base().ID)
	}
	return out
}

func sampleTree() map[string][]string {
	return map[string][]string{
		"page": {
			testutil.Heading("h1", 1, "Intro"),
			testutil.Toggle("t1", "Details"),
			testutil.Bulleted("l1", "parent", true),
			testutil.Paragraph("p1", "tail"),
			testutil.Table("tbl", 2, true, false),
		},
		"t1":  {testutil.Paragraph("t1c1", "inside"), testutil.Toggle("t2", "deeper")},
		"t2":  {testutil.Paragraph("t2c1", "deepest")},
		"l1":  {testutil.Bulleted("l1c1", "child", false)},
		"tbl": {testutil.TableRow("r1", "a", "b"), testutil.TableRow("r2", "c", "d")},
	}
}

func TestTree_PaginatesAndRecurses(t *testing.T) {
	src := &memSource{pageSize: 2, children: sampleTree()}
	tree, err := New(src).Tree(context.Background(), "page")
	require.NoError(t, err)

	assert.Equal(t, []string{"h1", "t1", "l1", "p1", "tbl"}, ids(tree))
	toggle := tree[1].(*block.Toggle)
	assert.Equal(t, []string{"t1c1", "t2"}, ids(toggle.Children))
	assert.Equal(t, []string{"t2c1"}, ids(toggle.Children[1].Base().Children))
	assert.Equal(t, []string{"r1", "r2"}, ids(tree[4].Base().Children))
	assert.Nil(t, tree[0].Base().Children)
	assert.Equal(t, 11, Count(tree))
}

func TestTree_DepthFirstRequestOrder(t *testing.T) {
	src := &memSource{pageSize: 100, children: sampleTree()}
	_, err := New(src).Tree(context.Background(), "page")
	require.NoError(t, err)
	assert.Equal(t, []string{"page@", "t1@", "t2@", "l1@", "tbl@"}, src.calls)
}

func TestTree_FailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	src := &memSource{children: sampleTree(), fail: map[string]error{"t2": boom}}
	tree, err := New(src).Tree(context.Background(), "page")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, tree)
}

func TestTree_ParallelKeepsSiblingOrder(t *testing.T) {
	children := map[string][]string{"page": {}}
	for i := 0; i < 8; i++ {
		id := "t" + strconv.Itoa(i)
		children["page"] = append(children["page"], testutil.Toggle(id, id))
		children[id] = []string{testutil.Paragraph(id+"-c", "x")}
	}
	src := &memSource{
		children: children,
		delay: func(id string) time.Duration {
			if id == "page" {
				return 0
			}
			// Earlier siblings finish last.
			n, _ := strconv.Atoi(id[1:])
			return time.Duration(8-n) * 5 * time.Millisecond
		},
	}

	tree, err := New(src, WithParallelism(4)).Tree(context.Background(), "page")
	require.NoError(t, err)
	require.Len(t, tree, 8)
	for i, b := range tree {
		id := "t" + strconv.Itoa(i)
		assert.Equal(t, id, b.Base().ID)
		assert.Equal(t, []string{id + "-c"}, ids(b.Base().Children))
	}
	assert.LessOrEqual(t, src.maxInFlight.Load(), int32(4))
	assert.Greater(t, src.maxInFlight.Load(), int32(1))
}

func TestTree_ParallelFailureCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")
	src := &memSource{
		children: sampleTree(),
		fail:     map[string]error{"l1": boom},
	}
	_, err := New(src, WithParallelism(3)).Tree(context.Background(), "page")
	assert.ErrorIs(t, err, boom)
}

func TestTree_EmptyPage(t *testing.T) {
	src := &memSource{children: map[string][]string{}}
	tree, err := New(src).Tree(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, tree)
}
