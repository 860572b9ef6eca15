// Package fetcher materializes the block tree under a page by walking the
// remote children listing with cursor pagination and recursing into every
// block that declares children.
package fetcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/block"
	"github.com/starford/folio/internal/notion"
)

// Fetcher resolves block trees from a Source.
type Fetcher struct {
	src      notion.Source
	parallel int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithParallelism resolves up to n sibling subtrees concurrently per level.
// n <= 1 keeps the strict depth-first order of requests.
func WithParallelism(n int) Option {
	return func(f *Fetcher) { f.parallel = n }
}

// New creates a Fetcher over src.
func New(src notion.Source, opts ...Option) *Fetcher {
	f := &Fetcher{src: src}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Tree returns the children of rootID with every subtree resolved, in source
// sibling order. Any failed request fails the whole tree.
func (f *Fetcher) Tree(ctx context.Context, rootID string) ([]block.Block, error) {
	return f.children(ctx, rootID)
}

func (f *Fetcher) children(ctx context.Context, id string) ([]block.Block, error) {
	var (
		out     []block.Block
		pending []block.Block
		cursor  string
	)
	for {
		page, err := f.src.ListChildren(ctx, id, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetcher: list children of %s: %w", id, err)
		}
		for _, rec := range page.Results {
			b := block.Convert(rec)
			if b.Base().HasChildren {
				if f.parallel > 1 {
					pending = append(pending, b)
				} else if err := f.attach(ctx, b); err != nil {
					return nil, err
				}
			}
			out = append(out, b)
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	if len(pending) == 0 {
		return out, nil
	}

	// Each goroutine writes only its own block's Children, so sibling order
	// in out is untouched.
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallel)
	for _, b := range pending {
		g.Go(func() error {
			return f.attach(gCtx, b)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fetcher) attach(ctx context.Context, b block.Block) error {
	kids, err := f.children(ctx, b.Base().ID)
	if err != nil {
		return err
	}
	b.Base().Children = kids
	return nil
}

// Count returns the number of blocks in a tree, nested ones included.
func Count(blocks []block.Block) int {
	n := 0
	for _, b := range blocks {
		n += 1 + Count(b.Base().Children)
	}
	return n
}
