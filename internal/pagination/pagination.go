// Package pagination computes the page-number strip of a paginated listing.
package pagination

import (
	"net/url"
	"strconv"
)

// MaxUncompressed is the largest page count shown without ellipses.
const MaxUncompressed = 7

// Item is a page number or an ellipsis marker.
type Item struct {
	Number   int
	Ellipsis bool
}

// Visible returns the page numbers to display for current out of total.
//
// Up to MaxUncompressed pages are all shown. Beyond that the first and last
// pages are fixed, a window of two pages either side of current is shown,
// and gaps are collapsed into ellipses. total <= 1 yields nil.
func Visible(current, total int) []Item {
	if total <= 1 {
		return nil
	}
	current = max(1, min(current, total))

	if total <= MaxUncompressed {
		out := make([]Item, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, Item{Number: i})
		}
		return out
	}

	out := []Item{{Number: 1}}
	if current > 4 {
		out = append(out, Item{Ellipsis: true})
	}
	for i := max(2, current-2); i <= min(total-1, current+2); i++ {
		out = append(out, Item{Number: i})
	}
	if current < total-3 {
		out = append(out, Item{Ellipsis: true})
	}
	return append(out, Item{Number: total})
}

// Show reports whether a pagination control should be rendered at all.
func Show(total int) bool { return total > 1 }

// Href returns the link for page n under basePath. Page 1 is basePath itself.
func Href(basePath string, n int) string {
	if n <= 1 {
		return basePath
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(n))
	return basePath + "?" + q.Encode()
}

// Link is a rendered page link.
type Link struct {
	Number   int
	Href     string
	Current  bool
	Ellipsis bool
}

// Nav is everything a template needs to draw the control.
type Nav struct {
	Links   []Link
	PrevURL string
	NextURL string
	HasPrev bool
	HasNext bool
}

// Build assembles a Nav for current of total under basePath. current is
// clamped into [1, total]. ok is false when no control should be drawn.
func Build(basePath string, current, total int) (nav Nav, ok bool) {
	if !Show(total) {
		return Nav{}, false
	}
	current = max(1, min(current, total))
	for _, it := range Visible(current, total) {
		if it.Ellipsis {
			nav.Links = append(nav.Links, Link{Ellipsis: true})
			continue
		}
		nav.Links = append(nav.Links, Link{Number: it.Number, Href: Href(basePath, it.Number), Current: it.Number == current})
	}
	if current > 1 {
		nav.HasPrev = true
		nav.PrevURL = Href(basePath, current-1)
	}
	if current < total {
		nav.HasNext = true
		nav.NextURL = Href(basePath, current+1)
	}
	return nav, true
}
