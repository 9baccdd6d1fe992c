package intent

import (
	"strconv"
	"strings"

	"github.com/spigell/jobpilot/internal/preferences"
)

// Category says where the value for a learned intent comes from.
type Category string

const (
	CategoryUnknown    Category = ""
	CategoryRaw        Category = "raw"
	CategoryCheckbox   Category = "chk"
	CategoryValue      Category = "val"
	CategoryExperience Category = "exp"
	CategoryPersonal   Category = "pi"
)

const (
	fieldUniversityGPA = "universityGpa"
	fieldEmailAddress  = "Email Address"
)

// Key is an abstract answer reference such as chk:remote or raw:Yes.
type Key struct {
	Category Category
	Field    string
}

// ParseKey splits s at the first colon. Unrecognised prefixes produce a key
// with CategoryUnknown that never resolves.
func ParseKey(s string) Key {
	prefix, field, found := strings.Cut(s, ":")
	if !found {
		return Key{Category: CategoryUnknown, Field: s}
	}

	switch c := Category(prefix); c {
	case CategoryRaw, CategoryCheckbox, CategoryValue, CategoryExperience, CategoryPersonal:
		return Key{Category: c, Field: field}
	default:
		return Key{Category: CategoryUnknown, Field: s}
	}
}

// RawKey references a literal answer.
func RawKey(answer string) Key {
	return Key{Category: CategoryRaw, Field: answer}
}

func (k Key) String() string {
	if k.Category == CategoryUnknown {
		return k.Field
	}
	return string(k.Category) + ":" + k.Field
}

// Resolve turns a key into a concrete answer using the configured
// preferences. The boolean is false when the key has no usable value.
func Resolve(k Key, prefs *preferences.Preferences) (string, bool) {
	var value string

	switch k.Category {
	case CategoryRaw:
		value = k.Field
	case CategoryCheckbox:
		checked, ok := prefs.Checkbox(k.Field)
		if !ok {
			return "", false
		}
		value = "No"
		if checked {
			value = "Yes"
		}
	case CategoryValue:
		if !strings.EqualFold(k.Field, fieldUniversityGPA) {
			return "", false
		}
		value = prefs.GPA()
	case CategoryExperience:
		value = strconv.Itoa(prefs.ExperienceYears(k.Field))
	case CategoryPersonal:
		v, ok := prefs.Personal(k.Field)
		if !ok && k.Field == fieldEmailAddress && prefs != nil {
			v = prefs.Email
		}
		value = v
	case CategoryUnknown:
		return "", false
	default:
		return "", false
	}

	value = strings.TrimSpace(value)
	return value, value != ""
}
