package screening

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelectors = "p, div, li, br, h1, h2, h3, h4, h5, h6, tr, section, article"

// PlainText converts an HTML job description into plain text, one block per
// line. Input without markup is returned trimmed.
func PlainText(html string) (string, error) {
	if !strings.ContainsAny(html, "<>") {
		return strings.TrimSpace(html), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	doc.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return cleanWhitespace(doc.Text()), nil
}

func cleanWhitespace(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
