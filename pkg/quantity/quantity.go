// Package quantity turns spoken quantities into positive integers.
package quantity

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var words = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30, "forty": 40, "fifty": 50, "sixty": 60,
	"seventy": 70, "eighty": 80, "ninety": 90, "hundred": 100,
}

var digitRun = regexp.MustCompile(`\d+`)

// Parse converts a spoken quantity to an integer of at least 1. It never fails:
// unrecognised input yields 1.
//
// Accepted forms are integers, digit strings, cardinal words ("seven"),
// tens-and-unit compounds ("twenty-one", "twenty one"), the articles "a"/"an"
// and any text containing a digit run ("3 please").
func Parse(v any) int {
	switch n := v.(type) {
	case nil:
		return 1
	case int:
		return atLeastOne(n)
	case int32:
		return atLeastOne(int(n))
	case int64:
		return atLeastOne(int(n))
	case float64:
		return atLeastOne(int(math.Round(n)))
	case float32:
		return atLeastOne(int(math.Round(float64(n))))
	case string:
		return parseString(n)
	default:
		return 1
	}
}

func parseString(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 1
	}
	if n, err := strconv.Atoi(s); err == nil {
		return atLeastOne(n)
	}
	if n, ok := words[s]; ok {
		return atLeastOne(n)
	}
	if s == "a" || s == "an" {
		return 1
	}
	if n, ok := compound(s); ok {
		return atLeastOne(n)
	}
	if m := digitRun.FindString(s); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return atLeastOne(n)
		}
	}
	return 1
}

// compound handles a tens word followed by a unit word: "twenty-one",
// "twenty one".
func compound(s string) (int, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == ' ' })
	if len(parts) != 2 {
		return 0, false
	}
	tens, ok := words[parts[0]]
	if !ok || tens < 20 || tens > 90 || tens%10 != 0 {
		return 0, false
	}
	unit, ok := words[parts[1]]
	if !ok || unit < 1 || unit > 9 {
		return 0, false
	}
	return tens + unit, true
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
