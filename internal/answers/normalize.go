package answers

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Kind is the answer type the model declares alongside its answer.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindBoolean Kind = "boolean"
	KindText    Kind = "text"
)

// ParseKind maps a declared type onto a Kind, defaulting to text.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindNumeric, KindBoolean:
		return k
	default:
		return KindText
	}
}

var (
	numericRun = regexp.MustCompile(`[+\d][\d.,\s]*`)

	yesNoTokens       = map[string]bool{"yes": true, "no": true, "si": true, "sí": true}
	affirmativeTokens = map[string]bool{"yes": true, "y": true, "true": true, "si": true, "sí": true}

	experienceHints     = []string{"year", "experi", "año"}
	numericQuestionHint = []string{"phone", "year", "salary", "gpa", "number", "años", "salario"}
)

// Normalize coerces a raw answer into the form expected for kind.
func Normalize(value string, kind Kind, question string, defaultExperience int) string {
	switch kind {
	case KindNumeric:
		return NormalizeNumeric(value, question, defaultExperience)
	case KindBoolean:
		return NormalizeBoolean(value)
	default:
		return NormalizeText(value)
	}
}

// NormalizeNumeric extracts the first number-like run from value. A bare
// yes/no is replaced with defaultExperience for experience questions and
// with "0" otherwise. Applying it to its own output is a no-op.
func NormalizeNumeric(value, question string, defaultExperience int) string {
	clean := strings.TrimSpace(value)

	if yesNoTokens[strings.Trim(strings.ToLower(clean), " .!")] {
		if containsAny(strings.ToLower(question), experienceHints) {
			return strconv.Itoa(defaultExperience)
		}
		return "0"
	}

	run := numericRun.FindString(clean)
	if run == "" {
		return "0"
	}

	run = strings.Join(strings.Fields(run), "")
	for {
		next := stripThousands(strings.TrimRight(run, ".,"))
		if next == run {
			break
		}
		run = next
	}

	if !strings.ContainsFunc(run, unicode.IsDigit) {
		return "0"
	}
	return run
}

// stripThousands drops every comma followed by exactly three digits.
func stripThousands(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && isGroup(s, i+1) {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isGroup(s string, start int) bool {
	if start+3 > len(s) {
		return false
	}
	for i := start; i < start+3; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return start+3 == len(s) || s[start+3] < '0' || s[start+3] > '9'
}

// NormalizeBoolean returns "Yes" when value contains an affirmative word.
func NormalizeBoolean(value string) string {
	words := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if affirmativeTokens[w] {
			return "Yes"
		}
	}
	return "No"
}

// NormalizeText strips one layer of surrounding quotes.
func NormalizeText(value string) string {
	clean := strings.TrimSpace(value)
	for _, pair := range [][2]string{{`"`, `"`}, {"“", "”"}} {
		if len(clean) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(clean, pair[0]) && strings.HasSuffix(clean, pair[1]) {
			return clean[len(pair[0]) : len(clean)-len(pair[1])]
		}
	}
	return clean
}

// IsNumericQuestion reports whether question asks for a number.
func IsNumericQuestion(question string) bool {
	return containsAny(strings.ToLower(question), numericQuestionHint)
}

// CleanCached re-normalizes a stored answer. Numeric questions get numeric
// normalization; everything else is only trimmed.
func CleanCached(answer, question string, defaultExperience int) string {
	if IsNumericQuestion(question) {
		return NormalizeNumeric(answer, question, defaultExperience)
	}
	return strings.TrimSpace(answer)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
