package scoring

import (
	"strconv"
	"strings"

	"github.com/bluebook-labs/satprep/internal/testbank"
)

// matcher decides whether a submitted value answers a question correctly.
// A missing or mismatched value is simply incorrect, never an error.
type matcher interface {
	Match(q testbank.Question, value string) bool
}

var matchers = map[string]matcher{
	testbank.FormatMultipleChoice: choiceMatcher{},
	testbank.FormatFillIn:         fillInMatcher{},
}

// Correct reports whether value answers q. Unknown formats count incorrect.
func Correct(q testbank.Question, value string) bool {
	m, ok := matchers[q.Format]
	if !ok {
		return false
	}
	return m.Match(q, value)
}

type choiceMatcher struct{}

func (choiceMatcher) Match(q testbank.Question, value string) bool {
	return value != "" && strings.EqualFold(strings.TrimSpace(value), q.Answer)
}

type fillInMatcher struct{}

// Fill-in values match on normalized text, with numeric equivalence so
// "0.5", ".5" and "1/2" all satisfy a key of "1/2".
func (fillInMatcher) Match(q testbank.Question, value string) bool {
	v := normalize(value)
	if v == "" {
		return false
	}
	for _, key := range strings.Split(q.Answer, ";") {
		k := normalize(key)
		if k == "" {
			continue
		}
		if v == k {
			return true
		}
		if vn, ok := parseNumeric(v); ok {
			if kn, ok := parseNumeric(k); ok && numericEqual(vn, kn) {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func parseNumeric(s string) (float64, bool) {
	if i := strings.IndexByte(s, '/'); i > 0 {
		num, err1 := strconv.ParseFloat(s[:i], 64)
		den, err2 := strconv.ParseFloat(s[i+1:], 64)
		if err1 == nil && err2 == nil && den != 0 {
			return num / den, true
		}
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func numericEqual(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	return d < eps && d > -eps
}
