package block

import (
	"github.com/tidwall/gjson"

	"github.com/starford/folio/internal/richtext"
)

// Convert maps one raw block record to its variant. Unknown types become
// Unsupported. The returned block never has Children set.
func Convert(rec gjson.Result) Block {
	node := Node{
		ID:          rec.Get("id").String(),
		HasChildren: rec.Get("has_children").Bool(),
	}
	typ := rec.Get("type").String()
	data := rec.Get(gjson.Escape(typ))
	text := func() []richtext.Unit { return richtext.FromJSON(data.Get("rich_text")) }
	color := data.Get("color").String()

	switch Kind(typ) {
	case KindParagraph:
		return &Paragraph{Node: node, Text: text(), Color: color}
	case KindHeading1, KindHeading2, KindHeading3:
		return &Heading{
			Node:       node,
			Level:      int(typ[len(typ)-1] - '0'),
			Text:       text(),
			Color:      color,
			Toggleable: data.Get("is_toggleable").Bool(),
		}
	case KindBulleted, KindNumbered:
		return &ListItem{Node: node, Ordered: Kind(typ) == KindNumbered, Text: text(), Color: color}
	case KindToDo:
		return &ToDo{Node: node, Text: text(), Checked: data.Get("checked").Bool(), Color: color}
	case KindToggle:
		return &Toggle{Node: node, Text: text(), Color: color}
	case KindCode:
		return &Code{
			Node:     node,
			Text:     text(),
			Language: data.Get("language").String(),
			Caption:  richtext.FromJSON(data.Get("caption")),
		}
	case KindImage:
		img := &Image{Node: node, Caption: richtext.FromJSON(data.Get("caption"))}
		switch ImageSource(data.Get("type").String()) {
		case ImageExternal:
			img.Source = ImageExternal
			img.URL = data.Get("external.url").String()
		case ImageFile:
			img.Source = ImageFile
			img.URL = data.Get("file.url").String()
		}
		return img
	case KindQuote:
		return &Quote{Node: node, Text: text(), Color: color}
	case KindCallout:
		return &Callout{Node: node, Text: text(), Icon: convertIcon(data.Get("icon")), Color: color}
	case KindDivider:
		return &Divider{Node: node}
	case KindTable:
		return &Table{
			Node:         node,
			Width:        int(data.Get("table_width").Int()),
			ColumnHeader: data.Get("has_column_header").Bool(),
			RowHeader:    data.Get("has_row_header").Bool(),
		}
	case KindTableRow:
		cells := data.Get("cells").Array()
		row := &TableRow{Node: node, Cells: make([][]richtext.Unit, 0, len(cells))}
		for _, c := range cells {
			row.Cells = append(row.Cells, richtext.FromJSON(c))
		}
		return row
	case KindBookmark:
		return &Bookmark{Node: node, URL: data.Get("url").String(), Caption: richtext.FromJSON(data.Get("caption"))}
	case KindEquation:
		return &Equation{Node: node, Expression: data.Get("expression").String()}
	}
	return &Unsupported{Node: node}
}

// convertIcon keeps emoji and external icons; uploaded files, custom emoji
// and anything newer become IconNone.
func convertIcon(icon gjson.Result) Icon {
	switch icon.Get("type").String() {
	case "emoji":
		if e := icon.Get("emoji").String(); e != "" {
			return Icon{Kind: IconEmoji, Emoji: e}
		}
	case "external":
		if u := icon.Get("external.url").String(); u != "" {
			return Icon{Kind: IconExternal, URL: u}
		}
	}
	return Icon{Kind: IconNone}
}
