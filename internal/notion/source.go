// Package notion talks to the remote document source. It exposes two paginated
// capabilities: querying the published documents of one database and listing
// the children of one block. Both hand back raw JSON records; turning them into
// posts and blocks is the job of the posts and block packages.
package notion

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// DefaultPageSize is the maximum number of records the remote source returns per round trip.
const DefaultPageSize = 100

// Page is one round trip worth of results plus the continuation state.
type Page struct {
	Results    []gjson.Result
	NextCursor string
	HasMore    bool
}

// Source is the remote document source contract.
//
// QueryPublished returns documents whose Published flag is set, sorted by
// PublishedAt descending. ListChildren returns the direct children of a
// block (or page) in source sibling order. An empty cursor requests the
// first page; callers loop until HasMore is false.
type Source interface {
	QueryPublished(ctx context.Context, cursor string) (Page, error)
	ListChildren(ctx context.Context, blockID, cursor string) (Page, error)
}

// parsePage decodes a list envelope: {"results": [...], "next_cursor": "...", "has_more": bool}.
func parsePage(data []byte) (Page, error) {
	if !gjson.ValidBytes(data) {
		return Page{}, fmt.Errorf("notion: invalid json response")
	}
	doc := gjson.ParseBytes(data)
	results := doc.Get("results")
	if !results.IsArray() {
		return Page{}, fmt.Errorf("notion: response has no results array")
	}
	p := Page{
		Results: results.Array(),
		HasMore: doc.Get("has_more").Bool(),
	}
	if next := doc.Get("next_cursor"); next.Type == gjson.String {
		p.NextCursor = next.String()
	}
	// A has_more flag without a cursor cannot be followed.
	if p.NextCursor == "" {
		p.HasMore = false
	}
	return p, nil
}
