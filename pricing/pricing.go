// Package pricing converts extracted price strings and the caller's target
// into canonical two-decimal values and decides whether the target matched.
package pricing

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"math/big"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidTarget is returned when a supplied target price does not parse.
var ErrInvalidTarget = errors.New("pricing: invalid target price")

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

var hundred = big.NewRat(100, 1)

// Quantize rounds v to two fractional digits the way Number.prototype.toFixed
// does: on the exact binary value, with ties going away from zero. Equal
// prices therefore compare equal as float64.
func Quantize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	neg := v < 0
	r := new(big.Rat).SetFloat64(math.Abs(v))
	r.Mul(r, hundred)

	n := new(big.Int).Quo(r.Num(), r.Denom())
	frac := new(big.Rat).Sub(r, new(big.Rat).SetInt(n))
	if frac.Cmp(big.NewRat(1, 2)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	q, _ := new(big.Rat).SetFrac(n, big.NewInt(100)).Float64()
	if neg {
		q = -q
	}
	return q
}

// ParseLeading parses the numeric prefix of s, ignoring leading whitespace
// and any trailing garbage. It reports false when no finite number leads s.
func ParseLeading(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Canonical strips the first currency symbol and all thousands separators
// from s, then parses and quantises it.
func Canonical(s, symbol string) (float64, bool) {
	if symbol != "" {
		s = strings.Replace(s, symbol, "", 1)
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	v, ok := ParseLeading(s)
	if !ok {
		return 0, false
	}
	return Quantize(v), true
}

// Normalize canonicalises every raw string, silently dropping those that do
// not parse. The result keeps first-occurrence order and holds each value
// once. It is never nil.
func Normalize(raws iter.Seq[string], symbol string) []float64 {
	out := []float64{}
	seen := make(map[float64]struct{})
	for raw := range raws {
		v, ok := Canonical(raw, symbol)
		if !ok {
			slog.Debug("pricing: dropping unparsable price", "raw", raw)
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ParseTarget canonicalises the caller's target price. An empty target means
// none was supplied and yields nil; anything else that fails to parse is an
// ErrInvalidTarget.
func ParseTarget(raw, symbol string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, ok := Canonical(raw, symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidTarget, raw)
	}
	return &v, nil
}

// Found reports whether target is one of prices. Both sides are already
// quantised, so exact comparison is well defined.
func Found(target *float64, prices []float64) bool {
	if target == nil {
		return false
	}
	return slices.Contains(prices, *target)
}
