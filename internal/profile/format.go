package profile

import (
	"fmt"
	"sort"
	"strings"
)

const preferencesBanner = "=== USER PREFERENCES & HARD REQUIREMENTS (STRICT) ==="

var sensitiveKeyParts = []string{"password", "passwd", "apikey", "api-key", "api_key", "token", "secret"}

// FormatPreferences renders a nested preferences tree as a text block for
// prompts. Keys are sorted, booleans become YES/TRUE or NO/FALSE and lists
// become "One of: a, b". Keys that look like credentials are left out.
func FormatPreferences(prefs map[string]any) string {
	if len(prefs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(preferencesBanner)
	b.WriteByte('\n')
	writeTree(&b, prefs, 0)
	b.WriteString(strings.Repeat("=", len(preferencesBanner)))
	b.WriteByte('\n')
	return b.String()
}

func writeTree(b *strings.Builder, tree map[string]any, depth int) {
	indent := strings.Repeat("  ", depth)

	for _, key := range sortedKeys(tree) {
		if isSensitive(key) {
			continue
		}

		if nested, ok := asTree(tree[key]); ok {
			fmt.Fprintf(b, "%s%s:\n", indent, strings.ToUpper(key))
			writeTree(b, nested, depth+1)
			continue
		}
		fmt.Fprintf(b, "%s- %s: %s\n", indent, key, formatValue(tree[key]))
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "YES/TRUE"
		}
		return "NO/FALSE"
	case []string:
		return "One of: " + strings.Join(val, ", ")
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = fmt.Sprint(item)
		}
		return "One of: " + strings.Join(items, ", ")
	default:
		return fmt.Sprint(val)
	}
}

func asTree(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case map[any]any:
		tree := make(map[string]any, len(val))
		for k, item := range val {
			tree[fmt.Sprint(k)] = item
		}
		return tree, true
	case map[string]string:
		tree := make(map[string]any, len(val))
		for k, item := range val {
			tree[k] = item
		}
		return tree, true
	case map[string]bool:
		tree := make(map[string]any, len(val))
		for k, item := range val {
			tree[k] = item
		}
		return tree, true
	default:
		return nil, false
	}
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
