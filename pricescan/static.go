package pricescan

import (
	"fmt"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// nonRendering matches containers whose text is never a visible price.
var nonRendering = cascadia.MustCompile("script, style, noscript, template")

// hiddenByDefault lists elements the user-agent stylesheet renders display:none.
var hiddenByDefault = map[string]struct{}{
	"head":     {},
	"title":    {},
	"meta":     {},
	"link":     {},
	"base":     {},
	"script":   {},
	"style":    {},
	"template": {},
	"noscript": {},
	"datalist": {},
}

// ScanHTML parses rawHTML and returns the static scan of the resulting tree.
func (p *Pattern) ScanHTML(rawHTML string) (iter.Seq[string], error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("pricescan: parse html: %w", err)
	}
	return p.ScanDocument(goquery.NewDocumentFromNode(root)), nil
}

// ScanDocument walks every element of doc in document order and yields the
// raw numeric string of each visible clean price. Computed style is resolved
// from inline declarations, the hidden attribute and user-agent defaults;
// stylesheet rules are not evaluated.
//
// The returned sequence is single use: ranging over it a second time yields
// nothing.
func (p *Pattern) ScanDocument(doc *goquery.Document) iter.Seq[string] {
	var consumed atomic.Bool
	return func(yield func(string) bool) {
		if consumed.Swap(true) {
			return
		}
		doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			n := s.Get(0)
			if nonRendering.Match(n) || inTemplateContent(n) {
				return true
			}
			raw, ok := p.Extract(textContent(n))
			if !ok {
				return true
			}
			if !isVisible(n) {
				return true
			}
			return yield(raw)
		})
	}
}

// textContent concatenates descendant text like the DOM property of the same
// name. Template children belong to a separate document fragment in a browser,
// so they contribute nothing.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				b.WriteString(c.Data)
			case c.Type == html.ElementNode && c.Data == "template":
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// inTemplateContent reports whether n sits inside a template, where a
// browser's document-wide queries never reach it.
func inTemplateContent(n *html.Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && cur.Data == "template" {
			return true
		}
	}
	return false
}

// isVisible mirrors the getComputedStyle check: own display is not none and
// inherited visibility is not hidden. display is not inherited, so a child of
// a display:none parent still counts.
func isVisible(n *html.Node) bool {
	return computedDisplay(n) != "none" && computedVisibility(n) != "hidden"
}

func computedDisplay(n *html.Node) string {
	if v, ok := inlineStyle(n)["display"]; ok && v != "inherit" {
		return v
	}
	if _, ok := attr(n, "hidden"); ok {
		return "none"
	}
	if _, ok := hiddenByDefault[n.Data]; ok {
		return "none"
	}
	return "inline"
}

func computedVisibility(n *html.Node) string {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if v, ok := inlineStyle(cur)["visibility"]; ok && v != "inherit" {
			return v
		}
	}
	return "visible"
}

// inlineStyle parses the style attribute into lower-cased property/value pairs.
// Later declarations win, as in the cascade.
func inlineStyle(n *html.Node) map[string]string {
	raw, ok := attr(n, "style")
	if !ok || raw == "" {
		return nil
	}
	decls := make(map[string]string)
	for _, decl := range strings.Split(raw, ";") {
		prop, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		if prop == "" || val == "" {
			continue
		}
		decls[prop] = val
	}
	return decls
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
