package answers

import "testing"

func TestNormalizeNumeric(t *testing.T) {
	tests := []struct {
		value    string
		question string
		want     string
	}{
		{value: "1,500", question: "Expected salary", want: "1500"},
		{value: "$ 120,000 per year", question: "Expected salary", want: "120000"},
		{value: "+1 555 123 4567", question: "Phone", want: "+15551234567"},
		{value: "3.5.", question: "GPA", want: "3.5"},
		{value: "12,34", question: "Number", want: "12,34"},
		{value: "1,,000", question: "Number", want: "1000"},
		{value: "Yes", question: "Years of experience with Go", want: "4"},
		{value: "sí", question: "¿Cuántos años de experiencia?", want: "4"},
		{value: "No", question: "Phone extension", want: "0"},
		{value: "two", question: "How many years?", want: "0"},
		{value: "+", question: "Number", want: "0"},
		{value: "", question: "Number", want: "0"},
	}

	for _, tt := range tests {
		got := NormalizeNumeric(tt.value, tt.question, 4)
		if got != tt.want {
			t.Fatalf("NormalizeNumeric(%q, %q) = %q, want %q", tt.value, tt.question, got, tt.want)
		}
		if again := NormalizeNumeric(got, tt.question, 4); again != got {
			t.Fatalf("NormalizeNumeric is not idempotent for %q: %q then %q", tt.value, got, again)
		}
	}
}

func TestNormalizeBoolean(t *testing.T) {
	tests := map[string]string{
		"Yes, I am":  "Yes",
		"TRUE":       "Yes",
		"Sí":         "Yes",
		"y":          "Yes",
		"yesterday":  "No",
		"no":         "No",
		"Not at all": "No",
		"":           "No",
	}

	for value, want := range tests {
		if got := NormalizeBoolean(value); got != want {
			t.Fatalf("NormalizeBoolean(%q) = %q, want %q", value, got, want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	tests := map[string]string{
		`"Hello"`:     "Hello",
		"“Hi there”":  "Hi there",
		`""nested""`:  `"nested"`,
		`  plain  `:   "plain",
		`"unbalanced`: `"unbalanced`,
		`"`:           `"`,
	}

	for value, want := range tests {
		if got := NormalizeText(value); got != want {
			t.Fatalf("NormalizeText(%q) = %q, want %q", value, got, want)
		}
	}
}

func TestNormalizeDispatch(t *testing.T) {
	if got := Normalize("about 7", ParseKind(" Numeric "), "Years", 3); got != "7" {
		t.Fatalf("numeric dispatch = %q", got)
	}
	if got := Normalize("yes please", ParseKind("boolean"), "", 3); got != "Yes" {
		t.Fatalf("boolean dispatch = %q", got)
	}
	if got := Normalize(`"Engineer"`, ParseKind("whatever"), "", 3); got != "Engineer" {
		t.Fatalf("text dispatch = %q", got)
	}
}

func TestCleanCached(t *testing.T) {
	tests := []struct {
		answer   string
		question string
		want     string
	}{
		{answer: "about 10 years", question: "Years of Go", want: "10"},
		{answer: "  Berlin ", question: "City of residence", want: "Berlin"},
		{answer: "Yes", question: "Years with Kubernetes", want: "3"},
		{answer: "Remote only", question: "Work arrangement", want: "Remote only"},
	}

	for _, tt := range tests {
		if got := CleanCached(tt.answer, tt.question, 3); got != tt.want {
			t.Fatalf("CleanCached(%q, %q) = %q, want %q", tt.answer, tt.question, got, tt.want)
		}
	}
}
