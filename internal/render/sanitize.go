package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var anchorID = regexp.MustCompile(`^[\p{L}\p{N}-]+$`)

// Policy returns the sanitizing policy for rendered documents. It accepts the
// markup the renderers emit and opens fully qualified links in a new tab.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("id").Matching(anchorID).OnElements("h1", "h2", "h3")
	p.AllowElements("details", "summary", "figure", "figcaption")
	p.AllowAttrs("scope").Matching(regexp.MustCompile(`^(row|col)$`)).OnElements("th")
	p.AllowAttrs("aria-hidden").Matching(regexp.MustCompile(`^true$`)).OnElements("span", "div")
	p.AllowAttrs("loading").Matching(regexp.MustCompile(`^lazy$`)).OnElements("img")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}
