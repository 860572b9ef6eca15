package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/alecthomas/chroma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/block"
	"github.com/starford/folio/internal/richtext"
)

func plain(s string) []richtext.Unit {
	return []richtext.Unit{{Kind: richtext.KindText, PlainText: s, Annotations: richtext.Annotations{Color: "default"}}}
}

func para(id, text string) *block.Paragraph {
	return &block.Paragraph{Node: block.Node{ID: id}, Text: plain(text)}
}

func item(id, text string, ordered bool, children ...block.Block) *block.ListItem {
	return &block.ListItem{
		Node:    block.Node{ID: id, HasChildren: len(children) > 0, Children: children},
		Ordered: ordered,
		Text:    plain(text),
	}
}

func doc(t *testing.T, blocks ...block.Block) *goquery.Document {
	t.Helper()
	out := New().Render(blocks)
	d, err := goquery.NewDocumentFromReader(strings.NewReader(string(out)))
	require.NoError(t, err)
	return d
}

func TestGroups_AdjacencyOnly(t *testing.T) {
	blocks := []block.Block{
		item("n1", "one", true),
		item("n2", "two", true),
		para("p", "break"),
		item("n3", "three", true),
		item("b1", "bullet", false),
	}
	groups := Groups(blocks)
	require.Len(t, groups, 4)
	assert.Equal(t, block.KindNumbered, groups[0].Kind)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, block.KindParagraph, groups[1].Kind)
	assert.Equal(t, block.KindNumbered, groups[2].Kind)
	assert.Len(t, groups[2].Items, 1)
	assert.Equal(t, block.KindBulleted, groups[3].Kind)
	assert.True(t, groups[3].IsList())
	assert.False(t, groups[1].IsList())
}

func TestGroups_Empty(t *testing.T) {
	assert.Empty(t, Groups(nil))
}

func TestRender_ListsSplitByParagraph(t *testing.T) {
	d := doc(t,
		item("n1", "one", true),
		item("n2", "two", true),
		para("p", "break"),
		item("n3", "three", true),
	)
	lists := d.Find("ol.notion-list")
	require.Equal(t, 2, lists.Length())
	assert.Equal(t, 2, lists.Eq(0).Find("li").Length())
	assert.Equal(t, 1, lists.Eq(1).Find("li").Length())
}

func TestRender_NestedListChildren(t *testing.T) {
	d := doc(t, item("b1", "parent", false, item("b2", "child", false), para("p", "note")))
	outer := d.Find("ul.notion-list").First()
	nested := outer.Find("li .notion-children ul.notion-list li")
	require.Equal(t, 1, nested.Length())
	assert.Equal(t, "child", nested.Text())
	assert.Equal(t, "note", outer.Find(".notion-children p.notion-paragraph").Text())
}

func TestRender_UnsupportedRendersNothing(t *testing.T) {
	out := New().Render([]block.Block{&block.Unsupported{Node: block.Node{ID: "u", HasChildren: true}}})
	assert.Empty(t, strings.TrimSpace(string(out)))
}

func TestRender_EmptyParagraph(t *testing.T) {
	d := doc(t, &block.Paragraph{Node: block.Node{ID: "p"}})
	assert.Equal(t, 1, d.Find("p.notion-paragraph--empty").Length())
}

func TestRender_HeadingAnchors(t *testing.T) {
	d := doc(t,
		&block.Heading{Node: block.Node{ID: "h"}, Level: 2, Text: plain("Getting Started")},
		&block.Heading{Node: block.Node{ID: "h3"}, Level: 3, Text: plain("Café Notes")},
	)
	id, ok := d.Find("h2").Attr("id")
	require.True(t, ok)
	assert.Equal(t, "getting-started", id)
	id, _ = d.Find("h3").Attr("id")
	assert.Equal(t, "cafe-notes", id)
}

func TestRender_ToggleableHeading(t *testing.T) {
	h := &block.Heading{
		Node:       block.Node{ID: "h", HasChildren: true, Children: []block.Block{para("p", "hidden")}},
		Level:      1,
		Text:       plain("More"),
		Toggleable: true,
	}
	d := doc(t, h)
	assert.Equal(t, "More", d.Find("details summary h1").Text())
	assert.Equal(t, "hidden", d.Find("details .notion-children p").Text())
}

func TestRender_InlineAnnotations(t *testing.T) {
	units := []richtext.Unit{
		{Kind: richtext.KindText, PlainText: "bold", Annotations: richtext.Annotations{Bold: true, Color: "default"}},
		{Kind: richtext.KindText, PlainText: "red", Annotations: richtext.Annotations{Italic: true, Color: "red"}},
		{Kind: richtext.KindText, PlainText: "x<y", Annotations: richtext.Annotations{Code: true, Color: "default"}},
		{Kind: richtext.KindText, PlainText: "site", Link: "https://example.com", Annotations: richtext.Annotations{Color: "default"}},
		{Kind: richtext.KindText, PlainText: "local", Link: "/blog", Annotations: richtext.Annotations{Color: "default"}},
	}
	d := doc(t, &block.Paragraph{Node: block.Node{ID: "p"}, Text: units})

	assert.Equal(t, "bold", d.Find("strong").Text())
	assert.Equal(t, "red", d.Find("span.notion-color-red em").Text())
	assert.Equal(t, "x<y", d.Find("code.notion-inline-code").Text())

	ext := d.Find(`a[href="https://example.com"]`)
	require.Equal(t, 1, ext.Length())
	target, _ := ext.Attr("target")
	assert.Equal(t, "_blank", target)
	rel, _ := ext.Attr("rel")
	assert.Contains(t, rel, "noopener")

	local := d.Find(`a[href="/blog"]`)
	require.Equal(t, 1, local.Length())
	_, hasTarget := local.Attr("target")
	assert.False(t, hasTarget)
}

func TestRender_NewlinesBecomeBreaks(t *testing.T) {
	d := doc(t, para("p", "line one\nline two"))
	assert.Equal(t, 1, d.Find("p br").Length())
}

func TestRender_ScriptIsEscaped(t *testing.T) {
	out := string(New().Render([]block.Block{para("p", "<script>alert(1)</script>")}))
	assert.NotContains(t, out, "<script>")
}

func TestRender_Image(t *testing.T) {
	d := doc(t,
		&block.Image{Node: block.Node{ID: "i1"}, Source: block.ImageExternal, URL: "https://img.example.com/a.png"},
		&block.Image{Node: block.Node{ID: "i2"}, Source: block.ImageFile, URL: "https://files.example.com/b.png", Caption: plain("A diagram")},
		&block.Image{Node: block.Node{ID: "i3"}, Source: block.ImageExternal},
	)
	imgs := d.Find("figure.notion-image img")
	require.Equal(t, 2, imgs.Length())
	alt, _ := imgs.Eq(0).Attr("alt")
	assert.Equal(t, DefaultImageAlt, alt)
	alt, _ = imgs.Eq(1).Attr("alt")
	assert.Equal(t, "A diagram", alt)
	assert.Equal(t, "A diagram", d.Find("figure.notion-image figcaption").Text())
}

func TestRender_QuoteAndCallout(t *testing.T) {
	q := &block.Quote{Node: block.Node{ID: "q", HasChildren: true, Children: []block.Block{para("c", "inner")}}, Text: plain("quoted")}
	c := &block.Callout{
		Node:  block.Node{ID: "co"},
		Text:  plain("heads up"),
		Icon:  block.Icon{Kind: block.IconEmoji, Emoji: "💡"},
		Color: "yellow_background",
	}
	plainCallout := &block.Callout{Node: block.Node{ID: "co2"}, Text: plain("no icon"), Icon: block.Icon{Kind: block.IconNone}}
	d := doc(t, q, c, plainCallout)

	assert.Equal(t, "inner", d.Find("blockquote.notion-quote .notion-children p").Text())
	assert.Equal(t, 1, d.Find(".notion-callout--yellow").Length())
	assert.Equal(t, "💡", d.Find(".notion-callout--yellow .notion-callout__icon").Text())
	assert.Equal(t, 0, d.Find(".notion-callout--default .notion-callout__icon").Length())
	assert.Equal(t, "no icon", d.Find(".notion-callout--default .notion-callout__body").Text())
}

func TestRender_Table(t *testing.T) {
	row := func(id string, cells ...string) block.Block {
		r := &block.TableRow{Node: block.Node{ID: id}}
		for _, c := range cells {
			r.Cells = append(r.Cells, plain(c))
		}
		return r
	}
	tbl := &block.Table{
		Node:         block.Node{ID: "t", HasChildren: true, Children: []block.Block{row("r1", "Name", "Qty"), row("r2", "apple", "3"), row("r3", "pear", "5")}},
		Width:        2,
		ColumnHeader: true,
		RowHeader:    true,
	}
	d := doc(t, tbl)
	assert.Equal(t, 2, d.Find("thead th[scope=col]").Length())
	assert.Equal(t, 2, d.Find("tbody tr").Length())
	assert.Equal(t, "apple", d.Find("tbody tr").First().Find("th[scope=row]").Text())
	assert.Equal(t, "3", d.Find("tbody tr").First().Find("td").Text())

	empty := New().Render([]block.Block{&block.Table{Node: block.Node{ID: "t2"}, Width: 2}})
	assert.Empty(t, strings.TrimSpace(string(empty)))
}

func TestRender_ToDoBookmarkEquationDivider(t *testing.T) {
	d := doc(t,
		&block.ToDo{Node: block.Node{ID: "td"}, Text: plain("ship it"), Checked: true},
		&block.Bookmark{Node: block.Node{ID: "bm"}, URL: "https://go.dev", Caption: plain("Go")},
		&block.Bookmark{Node: block.Node{ID: "bm2"}},
		&block.Equation{Node: block.Node{ID: "eq"}, Expression: "a < b"},
		&block.Divider{Node: block.Node{ID: "d"}},
	)
	assert.Equal(t, "ship it", d.Find(".notion-todo--checked .notion-todo__text").Text())
	assert.Equal(t, 1, d.Find("figure.notion-bookmark").Length())
	assert.Equal(t, "Go", d.Find("figure.notion-bookmark figcaption").Text())
	assert.Equal(t, "a < b", d.Find(".notion-equation code").Text())
	assert.Equal(t, 1, d.Find("hr.notion-divider").Length())
}

func TestRender_CodeBothThemes(t *testing.T) {
	d := doc(t, &block.Code{Node: block.Node{ID: "c"}, Text: plain("package main\n\nfunc main() {}\n"), Language: "go", Caption: plain("main.go")})
	fig := d.Find("figure.notion-code")
	require.Equal(t, 1, fig.Length())
	assert.Equal(t, "go", fig.Find(".notion-code__label").Text())
	assert.Equal(t, 1, fig.Find(".notion-code__theme--light").Length())
	assert.Equal(t, 1, fig.Find(".notion-code__theme--dark").Length())
	assert.Contains(t, fig.Find(".notion-code__theme--light").Text(), "func main()")
	assert.Equal(t, "main.go", fig.Find("figcaption").Text())
}

func TestRender_CodeUnknownLanguage(t *testing.T) {
	d := doc(t, &block.Code{Node: block.Node{ID: "c"}, Text: plain("just <text>"), Language: "klingon"})
	assert.Equal(t, "klingon", d.Find(".notion-code__label").Text())
	assert.Contains(t, d.Find(".notion-code__theme--light").Text(), "just <text>")

	d = doc(t, &block.Code{Node: block.Node{ID: "c"}, Text: plain("x")})
	assert.Equal(t, "code", d.Find(".notion-code__label").Text())
}

func TestLexerName(t *testing.T) {
	tests := map[string]string{
		"Plain Text": "plaintext",
		"":           "plaintext",
		"C++":        "cpp",
		"shell":      "bash",
		"Go":         "go",
	}
	for in, want := range tests {
		assert.Equal(t, want, LexerName(in), in)
	}
}

func TestHighlighter_CSS(t *testing.T) {
	css, err := NewHighlighter(DefaultLightTheme, DefaultDarkTheme).CSS()
	require.NoError(t, err)
	assert.Contains(t, css, ".hl-light-")
	assert.Contains(t, css, ".hl-dark-")
	assert.Contains(t, css, "prefers-color-scheme: dark")
}

func TestHighlighter_Highlight(t *testing.T) {
	var buf bytes.Buffer
	NewHighlighter("no-such-theme", DefaultDarkTheme).Highlight(&buf, "echo hi", "bash")
	assert.Contains(t, buf.String(), "notion-code__theme--light")
}

func TestHighlighter_FallsBackToPlainPre(t *testing.T) {
	tests := map[string]func(string, string) (chroma.Iterator, error){
		"error": func(string, string) (chroma.Iterator, error) {
			return nil, errors.New("tokenise failed")
		},
		"panic": func(string, string) (chroma.Iterator, error) {
			panic("lexer blew up")
		},
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			h := NewHighlighter(DefaultLightTheme, DefaultDarkTheme)
			h.tokenise = tok
			out := New(WithHighlighter(h)).Render([]block.Block{
				&block.Code{Node: block.Node{ID: "c"}, Text: plain(`if a < b && c > "d" {}`), Language: "go"},
				para("after", "still here"),
			})
			html := string(out)

			assert.Contains(t, html, `<pre class="notion-code__plain"><code>if a &lt; b &amp;&amp; c &gt;`)
			assert.NotContains(t, html, "a < b")
			assert.NotContains(t, html, "notion-code__theme")

			d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
			require.NoError(t, err)
			assert.Equal(t, `if a < b && c > "d" {}`, d.Find("pre.notion-code__plain > code").Text())
			assert.Contains(t, d.Find("p").Last().Text(), "still here")
		})
	}
}
