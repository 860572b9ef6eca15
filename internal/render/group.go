package render

import "github.com/starford/folio/internal/block"

// Group is a unit of rendering: a run of same-type list items, or one block.
type Group struct {
	Kind  block.Kind
	Items []block.Block
}

// IsList reports whether the group is a merged list.
func (g Group) IsList() bool {
	return g.Kind == block.KindBulleted || g.Kind == block.KindNumbered
}

// Groups merges adjacent list items of the same kind. Any other block ends
// the run, so lists separated by a paragraph stay separate.
func Groups(blocks []block.Block) []Group {
	groups := make([]Group, 0, len(blocks))
	for _, b := range blocks {
		k := b.Kind()
		if k == block.KindBulleted || k == block.KindNumbered {
			if n := len(groups); n > 0 && groups[n-1].Kind == k {
				groups[n-1].Items = append(groups[n-1].Items, b)
				continue
			}
		}
		groups = append(groups, Group{Kind: k, Items: []block.Block{b}})
	}
	return groups
}
