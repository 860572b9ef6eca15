package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ellipsis = Item{Ellipsis: true}

func nums(ns ...int) []Item {
	out := make([]Item, 0, len(ns))
	for _, n := range ns {
		if n == 0 {
			out = append(out, ellipsis)
			continue
		}
		out = append(out, Item{Number: n})
	}
	return out
}

func TestVisible_SmallTotalsShowAll(t *testing.T) {
	for total := 2; total <= 7; total++ {
		for cur := 1; cur <= total; cur++ {
			got := Visible(cur, total)
			assert.Len(t, got, total)
			for i, it := range got {
				assert.False(t, it.Ellipsis)
				assert.Equal(t, i+1, it.Number)
			}
		}
	}
}

func TestVisible_NoControl(t *testing.T) {
	assert.Nil(t, Visible(1, 1))
	assert.Nil(t, Visible(1, 0))
	assert.False(t, Show(1))
	assert.True(t, Show(2))
}

func TestVisible_Compressed(t *testing.T) {
	cases := []struct {
		cur, total int
		want       []Item
	}{
		{1, 10, nums(1, 2, 3, 0, 10)},
		{10, 10, nums(1, 0, 8, 9, 10)},
		{4, 10, nums(1, 2, 3, 4, 5, 6, 0, 10)},
		{5, 10, nums(1, 0, 3, 4, 5, 6, 7, 0, 10)},
		{7, 10, nums(1, 0, 5, 6, 7, 8, 9, 10)},
		{6, 10, nums(1, 0, 4, 5, 6, 7, 8, 0, 10)},
		{1, 8, nums(1, 2, 3, 0, 8)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Visible(tc.cur, tc.total), "current=%d total=%d", tc.cur, tc.total)
	}
}

func TestVisible_ClampsCurrent(t *testing.T) {
	assert.Equal(t, Visible(10, 10), Visible(99, 10))
	assert.Equal(t, Visible(1, 10), Visible(-3, 10))
}

func TestHref(t *testing.T) {
	assert.Equal(t, "/blog", Href("/blog", 1))
	assert.Equal(t, "/blog?page=3", Href("/blog", 3))
	assert.Equal(t, "/blog/category/go?page=2", Href("/blog/category/go", 2))
}

func TestBuild(t *testing.T) {
	_, ok := Build("/blog", 1, 1)
	assert.False(t, ok)

	nav, ok := Build("/blog", 2, 3)
	assert.True(t, ok)
	assert.Equal(t, []Link{
		{Number: 1, Href: "/blog"},
		{Number: 2, Href: "/blog?page=2", Current: true},
		{Number: 3, Href: "/blog?page=3"},
	}, nav.Links)
	assert.Equal(t, "/blog", nav.PrevURL)
	assert.Equal(t, "/blog?page=3", nav.NextURL)
	assert.True(t, nav.HasPrev)
	assert.True(t, nav.HasNext)

	first, _ := Build("/blog", 1, 10)
	assert.False(t, first.HasPrev)
	assert.True(t, first.Links[3].Ellipsis)
}

func TestBuild_ClampsCurrent(t *testing.T) {
	past, ok := Build("/blog", 5, 3)
	require.True(t, ok)
	assert.True(t, past.Links[2].Current)
	assert.Equal(t, "/blog?page=2", past.PrevURL)
	assert.False(t, past.HasNext)
	assert.Empty(t, past.NextURL)

	before, _ := Build("/blog", 0, 3)
	assert.True(t, before.Links[0].Current)
	assert.False(t, before.HasPrev)
	assert.Equal(t, "/blog?page=2", before.NextURL)
}
