package expand

import (
	"regexp"
	"strings"
)

// placeholderRe matches {name} placeholders. Context placeholders of the
// form {:name:} also match and are filtered out by the colon prefix check.
var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// Names returns the placeholder names referenced in s, in order of
// appearance, excluding {:name:} context placeholders.
func Names(s string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		if strings.HasPrefix(m[1], ":") {
			continue
		}
		names = append(names, m[1])
	}
	return names
}

// rootName strips an attribute or index access from a placeholder name:
// "input.r1" and "input[0]" both root to "input".
func rootName(name string) string {
	if i := strings.IndexAny(name, ".["); i >= 0 {
		return name[:i]
	}
	return name
}

// PartialFormat substitutes every placeholder lookup can resolve and leaves
// the rest untouched for later passes.
func PartialFormat(s string, lookup func(name string) (string, bool)) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		if strings.HasPrefix(name, ":") {
			return m
		}
		if v, ok := lookup(name); ok {
			return v
		}
		return m
	})
}

// StrictFormat substitutes every placeholder and fails if any cannot be
// resolved.
func StrictFormat(s string, lookup func(name string) (string, bool)) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		if strings.HasPrefix(name, ":") {
			missing = append(missing, name)
			return m
		}
		if v, ok := lookup(name); ok {
			return v
		}
		missing = append(missing, name)
		return m
	})
	if len(missing) > 0 {
		return "", &UnresolvedError{Text: s, Names: missing}
	}
	return out, nil
}
