package mirror

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedElements is the subset of HTML accepted in Asana rich text, mapped to
// the attributes kept on each element. Everything else is stripped.
var allowedElements = map[string][]string{
	"a":          {"href"},
	"blockquote": nil,
	"br":         nil,
	"code":       nil,
	"em":         nil,
	"h1":         nil,
	"h2":         nil,
	"hr":         nil,
	"li":         nil,
	"ol":         nil,
	"p":          nil,
	"pre":        nil,
	"s":          nil,
	"strong":     nil,
	"u":          nil,
	"ul":         nil,
}

// voidElements are written self-closed
var voidElements = map[string]bool{
	"br": true,
	"hr": true,
}

var allowedURLSchemes = []string{"http", "https", "mailto"}

// Sanitizer filters issue bodies down to the Asana rich-text subset
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds a sanitizer from the allow-list table
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	for element, attrs := range allowedElements {
		if len(attrs) == 0 {
			p.AllowElements(element)
			continue
		}
		p.AllowAttrs(attrs...).OnElements(element)
	}
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes(allowedURLSchemes...)

	return &Sanitizer{policy: p}
}

// Sanitize strips disallowed elements and attributes and returns well-formed
// markup: every kept element is closed and void elements are self-closed.
// Applying it to its own output returns the same string.
func (s *Sanitizer) Sanitize(body string) string {
	return strings.TrimSpace(balance(s.policy.Sanitize(body)))
}

// balance re-parses filtered markup as a body fragment and renders it back in
// XML form. Implicitly closed and unclosed tags are closed, stray end tags are
// resolved the way a browser would.
func balance(markup string) string {
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), root)
	if err != nil {
		return html.EscapeString(markup)
	}

	var sb strings.Builder
	for _, n := range nodes {
		renderNode(&sb, n)
	}
	return sb.String()
}

func renderNode(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	attrs, ok := allowedElements[n.Data]
	if !ok {
		renderChildren(sb, n)
		return
	}

	sb.WriteString("<" + n.Data)
	for _, a := range n.Attr {
		if a.Namespace == "" && contains(attrs, a.Key) {
			sb.WriteString(" " + a.Key + `="` + html.EscapeString(a.Val) + `"`)
		}
	}
	if voidElements[n.Data] {
		sb.WriteString("/>")
		return
	}
	sb.WriteString(">")

	// The parser drops one newline directly after <pre>, so write it back.
	if n.Data == "pre" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode &&
		strings.HasPrefix(n.FirstChild.Data, "\n") {
		sb.WriteString("\n")
	}
	renderChildren(sb, n)
	sb.WriteString("</" + n.Data + ">")
}

func renderChildren(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(sb, c)
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
