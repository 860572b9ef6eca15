package render

import (
	"bytes"
	"html"
	"strings"

	"github.com/starford/folio/internal/richtext"
)

// writeRichText renders inline runs. Newlines become <br>.
func writeRichText(w *bytes.Buffer, units []richtext.Unit) {
	for _, u := range units {
		writeUnit(w, u)
	}
}

func writeUnit(w *bytes.Buffer, u richtext.Unit) {
	if u.PlainText == "" {
		return
	}
	text := strings.ReplaceAll(html.EscapeString(u.PlainText), "\n", "<br>")
	if u.Kind == richtext.KindEquation {
		text = `<span class="notion-inline-equation">` + text + `</span>`
	}

	a := u.Annotations
	var openers, closers []string
	wrap := func(tag, attrs string) {
		openers = append(openers, "<"+tag+attrs+">")
		closers = append([]string{"</" + tag + ">"}, closers...)
	}
	if u.Link != "" {
		wrap("a", ` href="`+html.EscapeString(u.Link)+`" class="notion-link"`)
	}
	if a.Color != "" && a.Color != "default" {
		wrap("span", ` class="notion-color-`+html.EscapeString(a.Color)+`"`)
	}
	if a.Bold {
		wrap("strong", "")
	}
	if a.Italic {
		wrap("em", "")
	}
	if a.Strikethrough {
		wrap("s", "")
	}
	if a.Underline {
		wrap("u", "")
	}
	if a.Code {
		wrap("code", ` class="notion-inline-code"`)
	}

	for _, o := range openers {
		w.WriteString(o)
	}
	w.WriteString(text)
	for _, c := range closers {
		w.WriteString(c)
	}
}
