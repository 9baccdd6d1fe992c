package answers

import (
	"regexp"
	"strings"

	"github.com/spigell/jobpilot/internal/preferences"
)

// maxLabelWords bounds how long a question may be for address rules to
// apply. Address fields are short labels ("City", "ZIP / Postal code").
const maxLabelWords = 5

type fieldRule struct {
	name      string
	pattern   *regexp.Regexp
	labelOnly bool
	value     func(p *preferences.Preferences) string
}

func personal(field string) func(p *preferences.Preferences) string {
	return func(p *preferences.Preferences) string {
		v, _ := p.Personal(field)
		return v
	}
}

func words(keywords ...string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}])`)
}

var strictRules = []fieldRule{
	{
		name:    "phone",
		pattern: words("phone", "telephone", "contact number", "mobile number", "cell number", "número de celular", "número de móvil"),
		value:   personal("Mobile Phone Number"),
	},
	{
		name:      "mobile",
		pattern:   words("mobile", "cell", "celular", "móvil", "movil"),
		labelOnly: true,
		value:     personal("Mobile Phone Number"),
	},
	{
		name:    "email",
		pattern: words("email", "e-mail", "correo"),
		value: func(p *preferences.Preferences) string {
			if p == nil {
				return ""
			}
			if email := strings.TrimSpace(p.Email); email != "" {
				return email
			}
			v, _ := p.Personal("Email Address")
			return v
		},
	},
	{
		name:    "linkedin",
		pattern: words("linkedin"),
		value:   personal("Linkedin"),
	},
	{
		name:      "street",
		pattern:   words("street", "address line"),
		labelOnly: true,
		value:     personal("Street address"),
	},
	{
		name:      "city",
		pattern:   words("city", "ciudad"),
		labelOnly: true,
		value:     personal("City"),
	},
	{
		name:      "zip",
		pattern:   words("zip", "postal", "postcode", "zip code"),
		labelOnly: true,
		value:     personal("Zip"),
	},
	{
		name:      "state",
		pattern:   words("state", "province", "region"),
		labelOnly: true,
		value:     personal("State"),
	},
}

// matchRule returns the first strict rule that matches question and has a
// configured value.
func matchRule(question string, prefs *preferences.Preferences) (string, string, bool) {
	label := len(strings.Fields(question)) <= maxLabelWords

	for _, r := range strictRules {
		if r.labelOnly && !label {
			continue
		}
		if !r.pattern.MatchString(question) {
			continue
		}
		if value := strings.TrimSpace(r.value(prefs)); value != "" {
			return r.name, value, true
		}
	}
	return "", "", false
}
