// Package block defines the closed set of document block variants and the
// converter from raw source records.
//
// Every variant embeds Node, which owns the block's children. Children are
// never set by Convert; only the fetcher populates them, and only for blocks
// whose HasChildren flag was set by the source.
package block

import (
	"github.com/starford/folio/internal/richtext"
)

// Kind is the discriminant of a block variant.
type Kind string

const (
	KindParagraph   Kind = "paragraph"
	KindHeading1    Kind = "heading_1"
	KindHeading2    Kind = "heading_2"
	KindHeading3    Kind = "heading_3"
	KindBulleted    Kind = "bulleted_list_item"
	KindNumbered    Kind = "numbered_list_item"
	KindToDo        Kind = "to_do"
	KindToggle      Kind = "toggle"
	KindCode        Kind = "code"
	KindImage       Kind = "image"
	KindQuote       Kind = "quote"
	KindCallout     Kind = "callout"
	KindDivider     Kind = "divider"
	KindTable       Kind = "table"
	KindTableRow    Kind = "table_row"
	KindBookmark    Kind = "bookmark"
	KindEquation    Kind = "equation"
	KindUnsupported Kind = "unsupported"
)

// Kinds lists every variant tag.
var Kinds = []Kind{
	KindParagraph, KindHeading1, KindHeading2, KindHeading3,
	KindBulleted, KindNumbered, KindToDo, KindToggle, KindCode,
	KindImage, KindQuote, KindCallout, KindDivider, KindTable,
	KindTableRow, KindBookmark, KindEquation, KindUnsupported,
}

// Block is one node of a document tree.
type Block interface {
	Kind() Kind
	Base() *Node
	sealed()
}

// Node holds the fields common to all variants.
type Node struct {
	ID          string
	HasChildren bool
	Children    []Block
}

// Base returns the common fields.
func (n *Node) Base() *Node { return n }

func (*Node) sealed() {}

type Paragraph struct {
	Node
	Text  []richtext.Unit
	Color string
}

// Heading is a level 1..3 heading.
type Heading struct {
	Node
	Level      int
	Text       []richtext.Unit
	Color      string
	Toggleable bool
}

// ListItem is a bulleted or numbered list item.
type ListItem struct {
	Node
	Ordered bool
	Text    []richtext.Unit
	Color   string
}

type ToDo struct {
	Node
	Text    []richtext.Unit
	Checked bool
	Color   string
}

type Toggle struct {
	Node
	Text  []richtext.Unit
	Color string
}

type Code struct {
	Node
	Text     []richtext.Unit
	Language string
	Caption  []richtext.Unit
}

// ImageSource tells where an image is hosted.
type ImageSource string

const (
	ImageExternal ImageSource = "external"
	ImageFile     ImageSource = "file"
)

type Image struct {
	Node
	Source  ImageSource
	URL     string
	Caption []richtext.Unit
}

type Quote struct {
	Node
	Text  []richtext.Unit
	Color string
}

// IconKind is the shape of a callout icon.
type IconKind string

const (
	IconNone     IconKind = "none"
	IconEmoji    IconKind = "emoji"
	IconExternal IconKind = "external"
)

// Icon is a callout icon: an emoji, an external image, or nothing.
type Icon struct {
	Kind  IconKind
	Emoji string
	URL   string
}

type Callout struct {
	Node
	Text  []richtext.Unit
	Icon  Icon
	Color string
}

type Divider struct {
	Node
}

// Table carries layout flags; its rows arrive as TableRow children.
type Table struct {
	Node
	Width        int
	ColumnHeader bool
	RowHeader    bool
}

type TableRow struct {
	Node
	Cells [][]richtext.Unit
}

type Bookmark struct {
	Node
	URL     string
	Caption []richtext.Unit
}

type Equation struct {
	Node
	Expression string
}

// Unsupported stands in for any block type without a variant.
type Unsupported struct {
	Node
}

func (*Paragraph) Kind() Kind { return KindParagraph }

func (h *Heading) Kind() Kind {
	switch h.Level {
	case 1:
		return KindHeading1
	case 2:
		return KindHeading2
	default:
		return KindHeading3
	}
}

func (l *ListItem) Kind() Kind {
	if l.Ordered {
		return KindNumbered
	}
	return KindBulleted
}

func (*ToDo) Kind() Kind        { return KindToDo }
func (*Toggle) Kind() Kind      { return KindToggle }
func (*Code) Kind() Kind        { return KindCode }
func (*Image) Kind() Kind       { return KindImage }
func (*Quote) Kind() Kind       { return KindQuote }
func (*Callout) Kind() Kind     { return KindCallout }
func (*Divider) Kind() Kind     { return KindDivider }
func (*Table) Kind() Kind       { return KindTable }
func (*TableRow) Kind() Kind    { return KindTableRow }
func (*Bookmark) Kind() Kind    { return KindBookmark }
func (*Equation) Kind() Kind    { return KindEquation }
func (*Unsupported) Kind() Kind { return KindUnsupported }

// PrimaryText returns the main rich text of variants that carry prose.
// Images, tables, rows, dividers, bookmarks and equations report false.
func PrimaryText(b Block) ([]richtext.Unit, bool) {
	switch v := b.(type) {
	case *Paragraph:
		return v.Text, true
	case *Heading:
		return v.Text, true
	case *ListItem:
		return v.Text, true
	case *ToDo:
		return v.Text, true
	case *Toggle:
		return v.Text, true
	case *Quote:
		return v.Text, true
	case *Callout:
		return v.Text, true
	case *Code:
		return v.Text, true
	}
	return nil, false
}
