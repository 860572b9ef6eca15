// Package richtext normalizes inline text runs into a stable internal form.
package richtext

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Kind of a rich-text run.
type Kind string

const (
	KindText     Kind = "text"
	KindMention  Kind = "mention"
	KindEquation Kind = "equation"
)

// Annotations are the style flags of one run.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// Unit is one run of inline text. PlainText is always set, whatever the kind.
type Unit struct {
	Kind        Kind        `json:"kind"`
	PlainText   string      `json:"plain_text"`
	Link        string      `json:"link,omitempty"`
	Annotations Annotations `json:"annotations"`
}

// FromJSON converts a rich_text array into units, one per run, in order.
// Anything that is not an array yields nil.
func FromJSON(arr gjson.Result) []Unit {
	if !arr.IsArray() {
		return nil
	}
	runs := arr.Array()
	out := make([]Unit, 0, len(runs))
	for _, r := range runs {
		out = append(out, convert(r))
	}
	return out
}

func convert(r gjson.Result) Unit {
	kind := Kind(r.Get("type").String())
	switch kind {
	case KindText, KindMention, KindEquation:
	default:
		kind = KindText
	}

	link := r.Get("href").String()
	if link == "" && kind == KindText {
		link = r.Get("text.link.url").String()
	}

	color := r.Get("annotations.color").String()
	if color == "" {
		color = "default"
	}
	return Unit{
		Kind:      kind,
		PlainText: r.Get("plain_text").String(),
		Link:      link,
		Annotations: Annotations{
			Bold:          r.Get("annotations.bold").Bool(),
			Italic:        r.Get("annotations.italic").Bool(),
			Strikethrough: r.Get("annotations.strikethrough").Bool(),
			Underline:     r.Get("annotations.underline").Bool(),
			Code:          r.Get("annotations.code").Bool(),
			Color:         color,
		},
	}
}

// PlainText concatenates the visible text of units.
func PlainText(units []Unit) string {
	switch len(units) {
	case 0:
		return ""
	case 1:
		return units[0].PlainText
	}
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u.PlainText)
	}
	return b.String()
}

// IsBlank reports whether units carry no visible text.
func IsBlank(units []Unit) bool {
	return strings.TrimSpace(PlainText(units)) == ""
}
