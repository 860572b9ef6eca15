package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Annotations mirrors the remote annotation object.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// Plain is the default annotation set.
var Plain = Annotations{Color: "default"}

// Text builds one text rich-text run.
func Text(content string) map[string]any {
	return StyledText(content, Plain, "")
}

// StyledText builds a text run with annotations and an optional link.
func StyledText(content string, a Annotations, link string) map[string]any {
	var linkObj any
	var href any
	if link != "" {
		linkObj = map[string]any{"url": link}
		href = link
	}
	return map[string]any{
		"type":        "text",
		"text":        map[string]any{"content": content, "link": linkObj},
		"annotations": a,
		"plain_text":  content,
		"href":        href,
	}
}

// Runs wraps runs into a rich_text array; a single string becomes one plain run.
func Runs(texts ...string) []map[string]any {
	out := make([]map[string]any, 0, len(texts))
	for _, t := range texts {
		out = append(out, Text(t))
	}
	return out
}

// Block builds a block record of the given type with payload under the type key.
func Block(id, typ string, payload map[string]any, hasChildren bool) string {
	rec := map[string]any{
		"object":       "block",
		"id":           id,
		"type":         typ,
		"has_children": hasChildren,
		typ:            payload,
	}
	return mustJSON(rec)
}

// Paragraph builds a paragraph block with one plain run (none when text is empty).
func Paragraph(id, text string) string {
	return Block(id, "paragraph", map[string]any{"rich_text": textRuns(text), "color": "default"}, false)
}

// Heading builds a heading_1..3 block.
func Heading(id string, level int, text string) string {
	return Block(id, fmt.Sprintf("heading_%d", level), map[string]any{
		"rich_text": textRuns(text), "color": "default", "is_toggleable": false,
	}, false)
}

// Bulleted builds a bulleted_list_item block.
func Bulleted(id, text string, hasChildren bool) string {
	return Block(id, "bulleted_list_item", map[string]any{"rich_text": textRuns(text), "color": "default"}, hasChildren)
}

// Numbered builds a numbered_list_item block.
func Numbered(id, text string, hasChildren bool) string {
	return Block(id, "numbered_list_item", map[string]any{"rich_text": textRuns(text), "color": "default"}, hasChildren)
}

// ToDo builds a to_do block.
func ToDo(id, text string, checked bool) string {
	return Block(id, "to_do", map[string]any{"rich_text": textRuns(text), "checked": checked, "color": "default"}, false)
}

// Toggle builds a toggle block that declares children.
func Toggle(id, text string) string {
	return Block(id, "toggle", map[string]any{"rich_text": textRuns(text), "color": "default"}, true)
}

// Quote builds a quote block.
func Quote(id, text string) string {
	return Block(id, "quote", map[string]any{"rich_text": textRuns(text), "color": "default"}, false)
}

// Code builds a code block.
func Code(id, language, source, caption string) string {
	return Block(id, "code", map[string]any{
		"rich_text": textRuns(source), "language": language, "caption": textRuns(caption),
	}, false)
}

// ExternalImage builds an image block hosted externally.
func ExternalImage(id, url, caption string) string {
	return Block(id, "image", map[string]any{
		"type": "external", "external": map[string]any{"url": url}, "caption": textRuns(caption),
	}, false)
}

// FileImage builds an image block uploaded to the source.
func FileImage(id, url string) string {
	return Block(id, "image", map[string]any{
		"type": "file", "file": map[string]any{"url": url, "expiry_time": "2030-01-01T00:00:00.000Z"}, "caption": []any{},
	}, false)
}

// Callout builds a callout block with an emoji icon (no icon when emoji is empty).
func Callout(id, emoji, text, color string) string {
	var icon any
	if emoji != "" {
		icon = map[string]any{"type": "emoji", "emoji": emoji}
	}
	return Block(id, "callout", map[string]any{"rich_text": textRuns(text), "icon": icon, "color": color}, false)
}

// Divider builds a divider block.
func Divider(id string) string {
	return Block(id, "divider", map[string]any{}, false)
}

// Table builds a table block; its rows are listed as children.
func Table(id string, width int, columnHeader, rowHeader bool) string {
	return Block(id, "table", map[string]any{
		"table_width": width, "has_column_header": columnHeader, "has_row_header": rowHeader,
	}, true)
}

// TableRow builds a table_row block with one plain run per cell.
func TableRow(id string, cells ...string) string {
	list := make([]any, 0, len(cells))
	for _, c := range cells {
		list = append(list, textRuns(c))
	}
	return Block(id, "table_row", map[string]any{"cells": list}, false)
}

// Bookmark builds a bookmark block.
func Bookmark(id, url, caption string) string {
	return Block(id, "bookmark", map[string]any{"url": url, "caption": textRuns(caption)}, false)
}

// Equation builds an equation block.
func Equation(id, expression string) string {
	return Block(id, "equation", map[string]any{"expression": expression}, false)
}

// Unsupported builds a block of a type the renderer does not know.
func Unsupported(id, typ string) string {
	return Block(id, typ, map[string]any{}, false)
}

// PostFixture describes a database page record.
type PostFixture struct {
	ID          string
	Title       string
	Slug        string
	Description string
	Category    string
	Tags        []string
	PublishedAt string
	CreatedTime string
	Unpublished bool
	Cover       string
	Thumbnail   string
}

// Post builds a database page record.
func Post(p PostFixture) string {
	created := p.CreatedTime
	if created == "" {
		created = "2024-01-01T00:00:00.000Z"
	}
	props := map[string]any{
		"Name":        map[string]any{"type": "title", "title": textRuns(p.Title)},
		"Slug":        map[string]any{"type": "rich_text", "rich_text": textRuns(p.Slug)},
		"Description": map[string]any{"type": "rich_text", "rich_text": textRuns(p.Description)},
		"Published":   map[string]any{"type": "checkbox", "checkbox": !p.Unpublished},
		"Thumbnail":   map[string]any{"type": "url", "url": nullable(p.Thumbnail)},
	}
	if p.Category != "" {
		props["Category"] = map[string]any{"type": "select", "select": map[string]any{"name": p.Category}}
	} else {
		props["Category"] = map[string]any{"type": "select", "select": nil}
	}
	tags := make([]any, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, map[string]any{"name": t})
	}
	props["Tags"] = map[string]any{"type": "multi_select", "multi_select": tags}
	if p.PublishedAt != "" {
		props["PublishedAt"] = map[string]any{"type": "date", "date": map[string]any{"start": p.PublishedAt}}
	} else {
		props["PublishedAt"] = map[string]any{"type": "date", "date": nil}
	}
	rec := map[string]any{
		"object":       "page",
		"id":           p.ID,
		"created_time": created,
		"properties":   props,
		"cover":        nil,
	}
	if p.Cover != "" {
		rec["cover"] = map[string]any{"type": "external", "external": map[string]any{"url": p.Cover}}
	}
	return mustJSON(rec)
}

// Words returns n space-separated words.
func Words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func textRuns(text string) []map[string]any {
	if text == "" {
		return []map[string]any{}
	}
	return Runs(text)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
