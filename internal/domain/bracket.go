package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// BracketBounds is the parsed form of a bracket label. Exactly one of
// the "open" flags is set, or neither, for a closed interval.
//
//	"<=52"   -> Bottom=true,  Upper=52
//	">=90"   -> Top=true,     Lower=90
//	"53-54"  -> Lower=53, Upper=54
type BracketBounds struct {
	Bottom bool // true for "<=X" style labels, no lower bound
	Top    bool // true for ">=X" style labels, no upper bound
	Lower  float64
	Upper  float64
}

var (
	numRe       = regexp.MustCompile(`-?[\d.]+`)
	belowWordRe = regexp.MustCompile(`(?i)below|or below|and below`)
	aboveWordRe = regexp.MustCompile(`(?i)above|or above|and above`)
)

// ParseBracketLabel parses one of the three label grammars used by the
// exchange's bracket tickers: "<=X", ">=X", or "L-U", tolerating a
// trailing degree symbol, "F"/"f" suffix, and surrounding whitespace.
func ParseBracketLabel(label string) (BracketBounds, error) {
	clean := strings.TrimSpace(label)
	clean = strings.ReplaceAll(clean, "°", "")
	clean = strings.TrimSpace(clean)

	switch {
	case strings.HasPrefix(clean, "<=") || belowWordRe.MatchString(clean):
		n := firstNumber(clean)
		if n == nil {
			return BracketBounds{}, NewInputError("could not parse upper bound from bracket label: "+label, nil)
		}
		return BracketBounds{Bottom: true, Upper: *n}, nil

	case strings.HasPrefix(clean, ">=") || aboveWordRe.MatchString(clean):
		n := firstNumber(clean)
		if n == nil {
			return BracketBounds{}, NewInputError("could not parse lower bound from bracket label: "+label, nil)
		}
		return BracketBounds{Top: true, Lower: *n}, nil

	default:
		body := strings.TrimSuffix(strings.TrimSuffix(clean, "F"), "f")
		parts := strings.SplitN(body, "-", 2)
		if len(parts) != 2 {
			return BracketBounds{}, NewInputError("unrecognized bracket label: "+label, nil)
		}
		lower, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		upper, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			return BracketBounds{}, NewInputError("unrecognized bracket label: "+label, nil)
		}
		return BracketBounds{Lower: lower, Upper: upper}, nil
	}
}

func firstNumber(s string) *float64 {
	m := numRe.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Contains reports whether actualTemp falls within the bracket, using
// inclusive bounds on every side.
func (b BracketBounds) Contains(actualTemp float64) bool {
	switch {
	case b.Bottom:
		return actualTemp <= b.Upper
	case b.Top:
		return actualTemp >= b.Lower
	default:
		return actualTemp >= b.Lower && actualTemp <= b.Upper
	}
}

// DidBracketWin determines whether a position on side at the given
// bracket label wins given the settled actual temperature: the bracket
// hits if actualTemp falls inside its bounds, and then a YES side wins
// on a hit while a NO side wins on a miss.
func DidBracketWin(label string, actualTemp float64, side Side) (bool, error) {
	bounds, err := ParseBracketLabel(label)
	if err != nil {
		return false, err
	}
	hit := bounds.Contains(actualTemp)
	if side == SideYes {
		return hit, nil
	}
	return !hit, nil
}
