package resourcecache

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// ResourceName derives the REST resource name of T: the type name in kebab
// case with its last word pluralized. HeroSlide becomes hero-slides.
func ResourceName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	words := strings.Split(toSnake(t.Name()), "_")
	if len(words) == 0 || words[0] == "" {
		return ""
	}
	last := len(words) - 1
	words[last] = inflection.Plural(words[last])
	return strings.Join(words, "-")
}

// toSnake converts the provided string to snake_case using ASCII-aware rules.
// Punctuation from reflected type names, such as generic suffixes, is
// dropped so the result is safe as a key segment.
func toSnake(s string) string {
	if s == "" {
		return ""
	}

	// generic instantiations render as Name[pkg.Arg]
	if i := strings.IndexByte(s, '['); i > 0 {
		s = s[:i]
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower) && !lastUnderscore {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false

		case unicode.IsLower(r), unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false

		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}
