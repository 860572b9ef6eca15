// Package document derives facts from a resolved block tree: reading time
// and the heading outline.
package document

import (
	"strings"

	"github.com/starford/folio/internal/block"
	"github.com/starford/folio/internal/richtext"
	"github.com/starford/folio/internal/slug"
)

// WordsPerMinute is the reading speed used by ReadingTime.
const WordsPerMinute = 200

// WordCount counts whitespace separated tokens in the prose of every block,
// nested children included.
func WordCount(blocks []block.Block) int {
	n := 0
	for _, b := range blocks {
		if units, ok := block.PrimaryText(b); ok {
			n += len(strings.Fields(richtext.PlainText(units)))
		}
		n += WordCount(b.Base().Children)
	}
	return n
}

// ReadingTime estimates minutes to read blocks, never less than one.
func ReadingTime(blocks []block.Block) int {
	words := WordCount(blocks)
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	return max(1, minutes)
}

// TocItem is one heading in the outline.
type TocItem struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// TableOfContents collects top-level headings in document order. Headings
// nested inside containers are not visited. Headings with blank text are
// skipped.
func TableOfContents(blocks []block.Block) []TocItem {
	out := []TocItem{}
	for _, b := range blocks {
		h, ok := b.(*block.Heading)
		if !ok {
			continue
		}
		text := richtext.PlainText(h.Text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, TocItem{ID: slug.Slugify(text), Text: text, Level: h.Level})
	}
	return out
}
