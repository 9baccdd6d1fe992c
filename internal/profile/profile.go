// Package profile builds and stores the candidate profile: the single text
// block every model prompt treats as the source of truth about the candidate.
package profile

import "strings"

// Profile is immutable once built.
type Profile struct {
	text string
}

func New(text string) Profile {
	return Profile{text: strings.TrimSpace(text)}
}

func (p Profile) Text() string {
	return p.text
}

func (p Profile) IsZero() bool {
	return p.text == ""
}

// Mentions reports whether the profile contains term, ignoring case.
func (p Profile) Mentions(term string) bool {
	return strings.Contains(strings.ToLower(p.text), strings.ToLower(term))
}
