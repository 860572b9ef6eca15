package mcpserver

import (
	"strconv"
	"strings"

	"github.com/starford/folio/internal/block"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/richtext"
)

// Outline renders a block tree as compact Markdown-like text.
func Outline(blocks []block.Block) string {
	var b strings.Builder
	writeOutline(&b, blocks, 0)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeOutline(b *strings.Builder, blocks []block.Block, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, g := range render.Groups(blocks) {
		for i, blk := range g.Items {
			writeBlock(b, blk, indent, i+1)
			if children := blk.Base().Children; len(children) > 0 && blk.Kind() != block.KindTable {
				writeOutline(b, children, depth+1)
			}
		}
	}
}

func writeBlock(b *strings.Builder, blk block.Block, indent string, n int) {
	line := func(s string) {
		b.WriteString(indent)
		b.WriteString(s)
		b.WriteByte('\n')
	}
	text := func(u []richtext.Unit) string { return richtext.PlainText(u) }

	switch v := blk.(type) {
	case *block.Paragraph:
		line(text(v.Text))
	case *block.Heading:
		line(strings.Repeat("#", v.Level) + " " + text(v.Text))
	case *block.ListItem:
		if v.Ordered {
			line(strconv.Itoa(n) + ". " + text(v.Text))
		} else {
			line("- " + text(v.Text))
		}
	case *block.ToDo:
		box := "[ ]"
		if v.Checked {
			box = "[x]"
		}
		line("- " + box + " " + text(v.Text))
	case *block.Toggle:
		line("> " + text(v.Text))
	case *block.Quote:
		line("> " + text(v.Text))
	case *block.Callout:
		prefix := ""
		if v.Icon.Kind == block.IconEmoji {
			prefix = v.Icon.Emoji + " "
		}
		line("> " + prefix + text(v.Text))
	case *block.Code:
		line("```" + render.LexerName(v.Language))
		for _, l := range strings.Split(text(v.Text), "\n") {
			line(l)
		}
		line("```")
	case *block.Image:
		if v.URL != "" {
			line("![" + text(v.Caption) + "](" + v.URL + ")")
		}
	case *block.Divider:
		line("---")
	case *block.Table:
		for _, child := range v.Children {
			if row, ok := child.(*block.TableRow); ok {
				cells := make([]string, len(row.Cells))
				for i, c := range row.Cells {
					cells[i] = text(c)
				}
				line("| " + strings.Join(cells, " | ") + " |")
			}
		}
	case *block.Bookmark:
		if v.URL != "" {
			line("<" + v.URL + ">")
		}
	case *block.Equation:
		line("$$ " + v.Expression + " $$")
	}
}
