// Package preferences holds the structured answers the candidate configured
// up front: checkbox style eligibility flags, personal details, years of
// experience per skill and GPA.
package preferences

import (
	"strconv"
	"strings"
)

const (
	DefaultExperienceYears = 3
	DefaultGPA             = "3.5"

	experienceDefaultKey = "default"
)

type Preferences struct {
	Email         string            `mapstructure:"email" yaml:"email"`
	Checkboxes    map[string]bool   `mapstructure:"checkboxes" yaml:"checkboxes"`
	PersonalInfo  map[string]string `mapstructure:"personal-info" yaml:"personal-info"`
	Experience    map[string]int    `mapstructure:"experience" yaml:"experience"`
	UniversityGPA float64           `mapstructure:"university-gpa" yaml:"university-gpa" validate:"gte=0,lte=10"`
}

// Checkbox returns the configured flag for name.
func (p *Preferences) Checkbox(name string) (bool, bool) {
	if p == nil {
		return false, false
	}
	v, ok := lookupFold(p.Checkboxes, name)
	return v, ok
}

// Personal returns a trimmed personal info field. Missing and blank fields
// both report false.
func (p *Preferences) Personal(field string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := lookupFold(p.PersonalInfo, field)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// ExperienceYears returns years for skill, falling back to the configured
// default and then to DefaultExperienceYears.
func (p *Preferences) ExperienceYears(skill string) int {
	if p != nil {
		if v, ok := lookupFold(p.Experience, skill); ok {
			return v
		}
	}
	return p.DefaultExperience()
}

func (p *Preferences) DefaultExperience() int {
	if p != nil {
		if v, ok := lookupFold(p.Experience, experienceDefaultKey); ok {
			return v
		}
	}
	return DefaultExperienceYears
}

// GPA renders the configured GPA, or DefaultGPA when unset.
func (p *Preferences) GPA() string {
	if p == nil || p.UniversityGPA <= 0 {
		return DefaultGPA
	}
	return strconv.FormatFloat(p.UniversityGPA, 'f', -1, 64)
}

// lookupFold prefers an exact key match and falls back to a case-insensitive one.
func lookupFold[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}
