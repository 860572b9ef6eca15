package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Default highlight themes.
const (
	DefaultLightTheme = "github"
	DefaultDarkTheme  = "github-dark"
)

const (
	lightPrefix = "hl-light-"
	darkPrefix  = "hl-dark-"
)

// languageAliases maps declared code languages to lexer names. Names missing
// here are tried as-is; anything chroma does not know renders as plain text.
var languageAliases = map[string]string{
	"plain text":    "plaintext",
	"c++":           "cpp",
	"c#":            "csharp",
	"docker":        "dockerfile",
	"f#":            "fsharp",
	"flow":          "javascript",
	"markup":        "html",
	"objective-c":   "objectivec",
	"shell":         "bash",
	"visual basic":  "vb.net",
	"webassembly":   "wast",
	"java/c/c++/c#": "java",
}

// LexerName resolves a declared language to a lexer name.
func LexerName(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if alias, ok := languageAliases[lang]; ok {
		return alias
	}
	if lang == "" {
		return "plaintext"
	}
	return lang
}

// Highlighter renders code in a light and a dark theme. Colors come from class
// names, so CSS must be served alongside.
type Highlighter struct {
	light, dark       *chroma.Style
	lightFmt, darkFmt *chromahtml.Formatter
	tokenise          func(lexerName, code string) (chroma.Iterator, error)
}

// NewHighlighter creates a Highlighter. Unknown theme names fall back to chroma's default style.
func NewHighlighter(lightTheme, darkTheme string) *Highlighter {
	return &Highlighter{
		light:    styles.Get(lightTheme),
		dark:     styles.Get(darkTheme),
		lightFmt: chromahtml.New(chromahtml.WithClasses(true), chromahtml.ClassPrefix(lightPrefix), chromahtml.TabWidth(4)),
		darkFmt:  chromahtml.New(chromahtml.WithClasses(true), chromahtml.ClassPrefix(darkPrefix), chromahtml.TabWidth(4)),
		tokenise: tokenise,
	}
}

func tokenise(lexerName, code string) (chroma.Iterator, error) {
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer).Tokenise(nil, code)
}

// Highlight writes both themed renditions of code. If highlighting fails for
// any reason an unstyled <pre><code> block is written instead.
func (h *Highlighter) Highlight(w *bytes.Buffer, code, language string) {
	light, dark, err := h.highlight(code, LexerName(language))
	if err != nil {
		w.WriteString(`<pre class="notion-code__plain"><code>`)
		w.WriteString(html.EscapeString(code))
		w.WriteString(`</code></pre>`)
		return
	}
	w.WriteString(`<div class="notion-code__theme notion-code__theme--light">`)
	w.WriteString(light)
	w.WriteString(`</div><div class="notion-code__theme notion-code__theme--dark">`)
	w.WriteString(dark)
	w.WriteString(`</div>`)
}

func (h *Highlighter) highlight(code, lexerName string) (light, dark string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render: highlighter panic: %v", r)
		}
	}()

	format := func(f *chromahtml.Formatter, style *chroma.Style) (string, error) {
		it, err := h.tokenise(lexerName, code)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := f.Format(&buf, style, it); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	if light, err = format(h.lightFmt, h.light); err != nil {
		return "", "", err
	}
	if dark, err = format(h.darkFmt, h.dark); err != nil {
		return "", "", err
	}
	return light, dark, nil
}

// CSS returns the stylesheet for both themes plus the rules that show the
// dark rendition under prefers-color-scheme: dark or [data-theme="dark"].
func (h *Highlighter) CSS() (string, error) {
	var buf bytes.Buffer
	if err := h.lightFmt.WriteCSS(&buf, h.light); err != nil {
		return "", fmt.Errorf("render: light css: %w", err)
	}
	if err := h.darkFmt.WriteCSS(&buf, h.dark); err != nil {
		return "", fmt.Errorf("render: dark css: %w", err)
	}
	buf.WriteString(`
.notion-code__theme--dark { display: none; }
[data-theme="dark"] .notion-code__theme--light { display: none; }
[data-theme="dark"] .notion-code__theme--dark { display: block; }
@media (prefers-color-scheme: dark) {
  :root:not([data-theme="light"]) .notion-code__theme--light { display: none; }
  :root:not([data-theme="light"]) .notion-code__theme--dark { display: block; }
}
`)
	return buf.String(), nil
}
