package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// urlPattern matches "http" followed by a run of non-space characters and its trailing whitespace.
// Spaces here are Unicode spaces so that a no-break space ends a URL just like a regular one.
var urlPattern = regexp.MustCompile(`http[^\s\p{Z}\x{0085}\x{000B}]+[\s\p{Z}\x{0085}\x{000B}]*`)

// asciiPunctuation is the set of printable ASCII punctuation characters.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize lowercases text, replaces URLs and ASCII punctuation with spaces,
// then collapses whitespace runs into single spaces and trims the ends.
// It never fails and is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && strings.ContainsRune(asciiPunctuation, r) {
			return ' '
		}
		return r
	}, text)

	return strings.Join(strings.Fields(text), " ")
}

// WordCount counts whitespace-delimited words in raw text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// round1 rounds to one decimal place from the exact binary value, ties to even, as
// Python's round(x, 1) does. Scaling by 10 first would round 0.35 up.
func round1(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// clamp limits v to [lo, hi]. NaN becomes lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
