package pricescan

import (
	"iter"
	"sync/atomic"

	"github.com/ysmood/gson"
)

// Script is evaluated inside the page with the currency symbol as its only
// argument. It applies the same rules as ScanDocument against the live DOM
// and the browser's computed style, returning an array of raw numeric strings.
const Script = `(symbol) => {
	const escaped = symbol.replace(/[.*+?^${}()|[\]\\]/g, '\\$&');
	const pattern = new RegExp('^' + escaped + '\\s?[\\d,]+(\\.\\d{2})?$');
	const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE']);
	const prices = [];
	for (const el of document.querySelectorAll('*')) {
		if (skip.has(el.tagName)) continue;
		const txt = (el.textContent || '').replace(/\s+/g, ' ').trim();
		if (!txt.includes(symbol) || !pattern.test(txt)) continue;
		const style = window.getComputedStyle(el);
		if (style.visibility === 'hidden' || style.display === 'none') continue;
		prices.push(txt.replace(symbol, '').replace(/,/g, '').trim());
	}
	return prices;
}`

// FromJSON turns the value returned by Script into a single-use sequence.
// Non-string entries are skipped.
func FromJSON(v gson.JSON) iter.Seq[string] {
	var consumed atomic.Bool
	return func(yield func(string) bool) {
		if consumed.Swap(true) || v.Nil() {
			return
		}
		for _, item := range v.Arr() {
			s, ok := item.Val().(string)
			if !ok {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}
