// Package render turns a resolved block tree into sanitized HTML.
package render

import (
	"bytes"
	"html"
	"html/template"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/folio/internal/block"
	"github.com/starford/folio/internal/richtext"
	"github.com/starford/folio/internal/slug"
)

// DefaultImageAlt is used when an image has no caption.
const DefaultImageAlt = "blog image"

type handler func(r *Renderer, w *bytes.Buffer, b block.Block)

// Renderer renders block trees. It is safe for concurrent use.
type Renderer struct {
	code     *Highlighter
	policy   *bluemonday.Policy
	handlers map[block.Kind]handler
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithHighlighter replaces the default code highlighter.
func WithHighlighter(h *Highlighter) Option {
	return func(r *Renderer) { r.code = h }
}

// WithPolicy replaces the default sanitizing policy.
func WithPolicy(p *bluemonday.Policy) Option {
	return func(r *Renderer) { r.policy = p }
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	if r.code == nil {
		r.code = NewHighlighter(DefaultLightTheme, DefaultDarkTheme)
	}
	if r.policy == nil {
		r.policy = Policy()
	}
	// List items are rendered through their group and have no entry here.
	// Table rows are rendered by their table; unsupported blocks render nothing.
	r.handlers = map[block.Kind]handler{
		block.KindParagraph: renderParagraph,
		block.KindHeading1:  renderHeading,
		block.KindHeading2:  renderHeading,
		block.KindHeading3:  renderHeading,
		block.KindToDo:      renderToDo,
		block.KindToggle:    renderToggle,
		block.KindCode:      renderCode,
		block.KindImage:     renderImage,
		block.KindQuote:     renderQuote,
		block.KindCallout:   renderCallout,
		block.KindDivider:   renderDivider,
		block.KindTable:     renderTable,
		block.KindBookmark:  renderBookmark,
		block.KindEquation:  renderEquation,
	}
	return r
}

// Highlighter returns the code highlighter, for serving its CSS.
func (r *Renderer) Highlighter() *Highlighter { return r.code }

// Render renders blocks to sanitized HTML.
func (r *Renderer) Render(blocks []block.Block) template.HTML {
	var buf bytes.Buffer
	r.renderBlocks(&buf, blocks)
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitized above
}

func (r *Renderer) renderBlocks(w *bytes.Buffer, blocks []block.Block) {
	for _, g := range Groups(blocks) {
		if g.IsList() {
			r.renderList(w, g)
			continue
		}
		h, ok := r.handlers[g.Kind]
		if !ok {
			continue
		}
		for _, b := range g.Items {
			h(r, w, b)
		}
	}
}

func (r *Renderer) renderChildren(w *bytes.Buffer, b block.Block) {
	children := b.Base().Children
	if len(children) == 0 {
		return
	}
	w.WriteString(`<div class="notion-children">`)
	r.renderBlocks(w, children)
	w.WriteString(`</div>`)
}

func (r *Renderer) renderList(w *bytes.Buffer, g Group) {
	tag := "ul"
	if g.Kind == block.KindNumbered {
		tag = "ol"
	}
	w.WriteString(`<` + tag + ` class="notion-list notion-list--` + tag + `">`)
	for _, b := range g.Items {
		item, ok := b.(*block.ListItem)
		if !ok {
			continue
		}
		w.WriteString(`<li>`)
		writeRichText(w, item.Text)
		r.renderChildren(w, item)
		w.WriteString(`</li>`)
	}
	w.WriteString(`</` + tag + `>`)
}

func renderParagraph(_ *Renderer, w *bytes.Buffer, b block.Block) {
	p := b.(*block.Paragraph)
	if richtext.IsBlank(p.Text) {
		w.WriteString(`<p class="notion-paragraph notion-paragraph--empty"></p>`)
		return
	}
	w.WriteString(`<p class="notion-paragraph` + colorClass(p.Color) + `">`)
	writeRichText(w, p.Text)
	w.WriteString(`</p>`)
}

// HeadingID is the anchor id of a heading; it matches the table of contents.
func HeadingID(units []richtext.Unit) string {
	return slug.Slugify(richtext.PlainText(units))
}

func renderHeading(r *Renderer, w *bytes.Buffer, b block.Block) {
	h := b.(*block.Heading)
	tag := "h" + strconv.Itoa(h.Level)
	open := `<` + tag + ` class="notion-heading` + colorClass(h.Color) + `"`
	if id := HeadingID(h.Text); id != "" {
		open += ` id="` + id + `"`
	}
	open += `>`

	if h.Toggleable && len(h.Children) > 0 {
		w.WriteString(`<details class="notion-toggle notion-toggle--heading"><summary>`)
		w.WriteString(open)
		writeRichText(w, h.Text)
		w.WriteString(`</` + tag + `></summary>`)
		r.renderChildren(w, h)
		w.WriteString(`</details>`)
		return
	}
	w.WriteString(open)
	writeRichText(w, h.Text)
	w.WriteString(`</` + tag + `>`)
	r.renderChildren(w, h)
}

func renderToDo(r *Renderer, w *bytes.Buffer, b block.Block) {
	t := b.(*block.ToDo)
	class, mark := "notion-todo", "☐"
	if t.Checked {
		class, mark = "notion-todo notion-todo--checked", "☑"
	}
	w.WriteString(`<div class="` + class + `"><span class="notion-todo__box" aria-hidden="true">` + mark + `</span><span class="notion-todo__text">`)
	writeRichText(w, t.Text)
	w.WriteString(`</span>`)
	r.renderChildren(w, t)
	w.WriteString(`</div>`)
}

func renderToggle(r *Renderer, w *bytes.Buffer, b block.Block) {
	t := b.(*block.Toggle)
	w.WriteString(`<details class="notion-toggle` + colorClass(t.Color) + `"><summary>`)
	writeRichText(w, t.Text)
	w.WriteString(`</summary>`)
	r.renderChildren(w, t)
	w.WriteString(`</details>`)
}

func renderCode(r *Renderer, w *bytes.Buffer, b block.Block) {
	c := b.(*block.Code)
	label := strings.TrimSpace(c.Language)
	if label == "" {
		label = "code"
	}
	w.WriteString(`<figure class="notion-code"><div class="notion-code__label">`)
	w.WriteString(html.EscapeString(label))
	w.WriteString(`</div>`)
	r.code.Highlight(w, richtext.PlainText(c.Text), c.Language)
	if !richtext.IsBlank(c.Caption) {
		w.WriteString(`<figcaption class="notion-code__caption">`)
		writeRichText(w, c.Caption)
		w.WriteString(`</figcaption>`)
	}
	w.WriteString(`</figure>`)
}

func renderImage(_ *Renderer, w *bytes.Buffer, b block.Block) {
	img := b.(*block.Image)
	if img.URL == "" {
		return
	}
	alt := strings.TrimSpace(richtext.PlainText(img.Caption))
	if alt == "" {
		alt = DefaultImageAlt
	}
	w.WriteString(`<figure class="notion-image"><img src="` + html.EscapeString(img.URL) + `" alt="` + html.EscapeString(alt) + `" loading="lazy">`)
	if !richtext.IsBlank(img.Caption) {
		w.WriteString(`<figcaption>`)
		writeRichText(w, img.Caption)
		w.WriteString(`</figcaption>`)
	}
	w.WriteString(`</figure>`)
}

func renderQuote(r *Renderer, w *bytes.Buffer, b block.Block) {
	q := b.(*block.Quote)
	w.WriteString(`<blockquote class="notion-quote` + colorClass(q.Color) + `">`)
	writeRichText(w, q.Text)
	r.renderChildren(w, q)
	w.WriteString(`</blockquote>`)
}

func renderCallout(r *Renderer, w *bytes.Buffer, b block.Block) {
	c := b.(*block.Callout)
	color := strings.TrimSuffix(c.Color, "_background")
	if color == "" {
		color = "default"
	}
	w.WriteString(`<div class="notion-callout notion-callout--` + html.EscapeString(color) + `">`)
	switch c.Icon.Kind {
	case block.IconEmoji:
		w.WriteString(`<div class="notion-callout__icon" aria-hidden="true">` + html.EscapeString(c.Icon.Emoji) + `</div>`)
	case block.IconExternal:
		w.WriteString(`<div class="notion-callout__icon"><img src="` + html.EscapeString(c.Icon.URL) + `" alt=""></div>`)
	}
	w.WriteString(`<div class="notion-callout__body">`)
	writeRichText(w, c.Text)
	r.renderChildren(w, c)
	w.WriteString(`</div></div>`)
}

func renderDivider(_ *Renderer, w *bytes.Buffer, _ block.Block) {
	w.WriteString(`<hr class="notion-divider">`)
}

func renderTable(_ *Renderer, w *bytes.Buffer, b block.Block) {
	t := b.(*block.Table)
	var rows []*block.TableRow
	for _, child := range t.Children {
		if row, ok := child.(*block.TableRow); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return
	}

	w.WriteString(`<div class="notion-table"><table>`)
	body := rows
	if t.ColumnHeader {
		w.WriteString(`<thead><tr>`)
		for _, cell := range rows[0].Cells {
			w.WriteString(`<th scope="col">`)
			writeRichText(w, cell)
			w.WriteString(`</th>`)
		}
		w.WriteString(`</tr></thead>`)
		body = rows[1:]
	}
	w.WriteString(`<tbody>`)
	for _, row := range body {
		w.WriteString(`<tr>`)
		for i, cell := range row.Cells {
			if i == 0 && t.RowHeader {
				w.WriteString(`<th scope="row">`)
				writeRichText(w, cell)
				w.WriteString(`</th>`)
				continue
			}
			w.WriteString(`<td>`)
			writeRichText(w, cell)
			w.WriteString(`</td>`)
		}
		w.WriteString(`</tr>`)
	}
	w.WriteString(`</tbody></table></div>`)
}

func renderBookmark(_ *Renderer, w *bytes.Buffer, b block.Block) {
	bm := b.(*block.Bookmark)
	if bm.URL == "" {
		return
	}
	u := html.EscapeString(bm.URL)
	w.WriteString(`<figure class="notion-bookmark"><a href="` + u + `" class="notion-link">` + u + `</a>`)
	if !richtext.IsBlank(bm.Caption) {
		w.WriteString(`<figcaption>`)
		writeRichText(w, bm.Caption)
		w.WriteString(`</figcaption>`)
	}
	w.WriteString(`</figure>`)
}

func renderEquation(_ *Renderer, w *bytes.Buffer, b block.Block) {
	e := b.(*block.Equation)
	w.WriteString(`<div class="notion-equation"><code>` + html.EscapeString(e.Expression) + `</code></div>`)
}

func colorClass(color string) string {
	if color == "" || color == "default" {
		return ""
	}
	return " notion-color-" + html.EscapeString(color)
}
