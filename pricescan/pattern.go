// Package pricescan harvests currency-formatted text from a rendered page.
//
// A candidate is any element (other than script/style/noscript/template)
// whose collapsed text is nothing but a price, e.g. "£1,234.56", and whose
// computed style is neither display:none nor visibility:hidden. Every element
// is visited, so an ancestor whose aggregate text equals a clean price is
// reported alongside the leaf that holds it.
package pricescan

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultSymbol is the currency symbol used when none is configured.
const DefaultSymbol = "£"

// Pattern recognises price text for exactly one currency symbol.
type Pattern struct {
	symbol string
	re     *regexp.Regexp
}

// NewPattern compiles the strict price pattern for symbol:
// ^<symbol>\s?[\d,]+(\.\d{2})?$
func NewPattern(symbol string) *Pattern {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return &Pattern{
		symbol: symbol,
		re:     regexp.MustCompile(`^` + regexp.QuoteMeta(symbol) + `\s?[\d,]+(\.\d{2})?$`),
	}
}

// Symbol returns the currency symbol the pattern matches.
func (p *Pattern) Symbol() string { return p.symbol }

// Extract collapses whitespace in text and, if what remains is a clean price,
// returns it with the symbol and thousands separators removed.
func (p *Pattern) Extract(text string) (string, bool) {
	text = CollapseSpace(text)
	if !strings.Contains(text, p.symbol) || !p.re.MatchString(text) {
		return "", false
	}
	return Clean(text, p.symbol), true
}

// Clean removes the first occurrence of symbol and every thousands separator.
func Clean(text, symbol string) string {
	text = strings.Replace(text, symbol, "", 1)
	text = strings.ReplaceAll(text, ",", "")
	return strings.TrimSpace(text)
}

// CollapseSpace replaces each whitespace run with one space and trims the ends.
// Whitespace is the JavaScript \s class: U+FEFF counts, U+0085 does not.
func CollapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, isScriptSpace), " ")
}

func isScriptSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}
